package server

import (
	"strconv"
	"time"

	"TourneyLedger/internal/engine"
	"TourneyLedger/internal/observability"
	"TourneyLedger/internal/prize"
	"TourneyLedger/internal/query"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// identityHeader carries the caller's explicit identity. The engine never
// derives identity from ambient state; every mutating request names who acts.
const identityHeader = "X-Identity"

// Server is the HTTP/JSON API over the tournament engine and the audit
// query service.
type Server struct {
	registry *engine.Registry
	querySvc *query.Service
	health   *observability.HealthChecker
	metrics  *observability.Metrics
	log      zerolog.Logger
}

func NewServer(
	registry *engine.Registry,
	querySvc *query.Service,
	health *observability.HealthChecker,
	metrics *observability.Metrics,
	log zerolog.Logger,
) *Server {
	return &Server{
		registry: registry,
		querySvc: querySvc,
		health:   health,
		metrics:  metrics,
		log:      log,
	}
}

// App builds the fiber application with all routes registered.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "tourneyledger",
		DisableStartupMessage: true,
	})

	app.Use(s.instrument())

	if s.health != nil {
		app.Get("/healthz", func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{
				"status": "alive",
				"uptime": s.health.Uptime().String(),
			})
		})
		app.Get("/readyz", func(c *fiber.Ctx) error {
			if !s.health.IsReady() {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "not_ready"})
			}
			return c.JSON(fiber.Map{"status": "ready"})
		})
	}

	v1 := app.Group("/v1")

	tournaments := v1.Group("/tournaments")
	tournaments.Post("/", s.handleCreate)
	tournaments.Get("/", s.handleList)

	one := tournaments.Group("/:id")
	one.Get("/", s.handleGet)
	one.Get("/players", s.handlePlayers)
	one.Get("/claimable", s.handleClaimable)

	one.Post("/join", s.handleJoin)
	one.Post("/start", s.handleStart)
	one.Post("/scores", s.handleSubmitScore)
	one.Post("/winners", s.handleSetWinners)
	one.Post("/distribute", s.handleDistribute)
	one.Post("/cancel", s.handleCancel)
	one.Post("/claims/prize", s.handleClaimPrize)
	one.Post("/claims/refund", s.handleClaimRefund)

	one.Get("/events", s.handleEvents)
	one.Get("/journal", s.handleJournal)
	one.Get("/cashflow", s.handleCashFlow)

	v1.Get("/accounts/:path/activity", s.handleAccountActivity)

	return app
}

// ==========================================================================
// Requests / responses
// ==========================================================================

type createRequest struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	GameKind        string    `json:"game_kind"`
	Asset           string    `json:"asset"`
	EntryFee        int64     `json:"entry_fee"`
	PrizePool       int64     `json:"prize_pool"`
	MinPlayers      int       `json:"min_players"`
	MaxPlayers      int       `json:"max_players"`
	RegistrationEnd time.Time `json:"registration_end"`
	GameStart       time.Time `json:"game_start"`
	GameEnd         time.Time `json:"game_end"`
	Policy          struct {
		Kind        string  `json:"kind"`
		BasisPoints []int64 `json:"basis_points,omitempty"`
	} `json:"policy"`
}

type scoreRequest struct {
	Score int64 `json:"score"`
}

type winnersRequest struct {
	Winners []uuid.UUID `json:"winners"`
}

type claimResponse struct {
	Amount int64 `json:"amount"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// ==========================================================================
// Lifecycle handlers
// ==========================================================================

func (s *Server) handleCreate(c *fiber.Ctx) error {
	creator, err := s.identity(c)
	if err != nil {
		return err
	}

	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return s.writeError(c, fiber.StatusBadRequest, "invalid request body", engine.KindValidation)
	}

	gameKind, _ := engine.ParseGameKind(req.GameKind)
	policyKind, ok := prize.ParsePolicyKind(req.Policy.Kind)
	if !ok {
		return s.writeError(c, fiber.StatusBadRequest, "unknown policy kind: "+req.Policy.Kind, engine.KindValidation)
	}

	cfg := engine.Config{
		Creator:         creator,
		Title:           req.Title,
		Description:     req.Description,
		GameKind:        gameKind,
		Asset:           req.Asset,
		EntryFee:        req.EntryFee,
		PrizePool:       req.PrizePool,
		MinPlayers:      req.MinPlayers,
		MaxPlayers:      req.MaxPlayers,
		RegistrationEnd: req.RegistrationEnd,
		GameStart:       req.GameStart,
		GameEnd:         req.GameEnd,
		Policy:          prize.Policy{Kind: policyKind, BasisPoints: req.Policy.BasisPoints},
	}

	in, err := s.registry.CreateTournament(c.Context(), cfg)
	if err != nil {
		return s.writeEngineError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(in.GameData())
}

func (s *Server) handleList(c *fiber.Ctx) error {
	offset := c.QueryInt("offset", 0)
	count := c.QueryInt("count", 50)

	ids := s.registry.List(offset, count)
	out := make([]engine.GameData, 0, len(ids))
	for _, id := range ids {
		in, err := s.registry.Get(id)
		if err != nil {
			continue
		}
		out = append(out, in.GameData())
	}
	return c.JSON(fiber.Map{
		"tournaments": out,
		"offset":      offset,
		"count":       len(out),
		"total":       s.registry.Len(),
	})
}

func (s *Server) handleGet(c *fiber.Ctx) error {
	in, err := s.instance(c)
	if err != nil {
		return err
	}
	return c.JSON(in.GameData())
}

func (s *Server) handlePlayers(c *fiber.Ctx) error {
	in, err := s.instance(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"players": in.Players()})
}

func (s *Server) handleClaimable(c *fiber.Ctx) error {
	identity, err := s.identity(c)
	if err != nil {
		return err
	}
	in, err := s.instance(c)
	if err != nil {
		return err
	}
	return c.JSON(claimResponse{Amount: in.Claimable(identity)})
}

func (s *Server) handleJoin(c *fiber.Ctx) error {
	identity, err := s.identity(c)
	if err != nil {
		return err
	}
	in, err := s.instance(c)
	if err != nil {
		return err
	}
	if err := in.Join(c.Context(), identity); err != nil {
		return s.writeEngineError(c, err)
	}
	return c.JSON(in.GameData())
}

func (s *Server) handleStart(c *fiber.Ctx) error {
	in, err := s.instance(c)
	if err != nil {
		return err
	}
	if err := in.Start(c.Context()); err != nil {
		return s.writeEngineError(c, err)
	}
	return c.JSON(in.GameData())
}

func (s *Server) handleSubmitScore(c *fiber.Ctx) error {
	identity, err := s.identity(c)
	if err != nil {
		return err
	}
	in, err := s.instance(c)
	if err != nil {
		return err
	}

	var req scoreRequest
	if err := c.BodyParser(&req); err != nil {
		return s.writeError(c, fiber.StatusBadRequest, "invalid request body", engine.KindValidation)
	}

	if err := in.SubmitScore(identity, req.Score); err != nil {
		return s.writeEngineError(c, err)
	}
	return c.JSON(fiber.Map{"recorded": true})
}

func (s *Server) handleSetWinners(c *fiber.Ctx) error {
	caller, err := s.identity(c)
	if err != nil {
		return err
	}
	in, err := s.instance(c)
	if err != nil {
		return err
	}

	var req winnersRequest
	if err := c.BodyParser(&req); err != nil {
		return s.writeError(c, fiber.StatusBadRequest, "invalid request body", engine.KindValidation)
	}

	if err := in.SetWinners(caller, req.Winners); err != nil {
		return s.writeEngineError(c, err)
	}
	return c.JSON(in.GameData())
}

func (s *Server) handleDistribute(c *fiber.Ctx) error {
	in, err := s.instance(c)
	if err != nil {
		return err
	}
	if err := in.DistributePrize(); err != nil {
		return s.writeEngineError(c, err)
	}
	return c.JSON(in.GameData())
}

func (s *Server) handleCancel(c *fiber.Ctx) error {
	caller, err := s.identity(c)
	if err != nil {
		return err
	}
	in, err := s.instance(c)
	if err != nil {
		return err
	}
	if err := in.Cancel(caller); err != nil {
		return s.writeEngineError(c, err)
	}
	return c.JSON(in.GameData())
}

func (s *Server) handleClaimPrize(c *fiber.Ctx) error {
	return s.handleClaim(c, true)
}

func (s *Server) handleClaimRefund(c *fiber.Ctx) error {
	return s.handleClaim(c, false)
}

func (s *Server) handleClaim(c *fiber.Ctx, prizeClaim bool) error {
	identity, err := s.identity(c)
	if err != nil {
		return err
	}
	in, err := s.instance(c)
	if err != nil {
		return err
	}

	var amount int64
	if prizeClaim {
		amount, err = in.ClaimPrize(c.Context(), identity)
	} else {
		amount, err = in.ClaimRefund(c.Context(), identity)
	}
	if err != nil {
		return s.writeEngineError(c, err)
	}
	return c.JSON(claimResponse{Amount: amount})
}

// ==========================================================================
// Audit handlers
// ==========================================================================

func (s *Server) handleEvents(c *fiber.Ctx) error {
	in, err := s.instance(c)
	if err != nil {
		return err
	}
	if s.querySvc == nil {
		return s.writeError(c, fiber.StatusServiceUnavailable, "event log not configured", engine.KindUnknown)
	}

	afterSeq := int64(c.QueryInt("after", 0))
	limit := c.QueryInt("limit", 100)
	records, err := s.querySvc.EventHistory(c.Context(), in.ID(), afterSeq, limit)
	if err != nil {
		return s.writeError(c, fiber.StatusInternalServerError, err.Error(), engine.KindUnknown)
	}
	return c.JSON(fiber.Map{"events": records})
}

func (s *Server) handleJournal(c *fiber.Ctx) error {
	in, err := s.instance(c)
	if err != nil {
		return err
	}
	if s.querySvc == nil {
		return s.writeError(c, fiber.StatusServiceUnavailable, "event log not configured", engine.KindUnknown)
	}

	entries, err := s.querySvc.JournalHistory(c.Context(), in.ID(), c.QueryInt("limit", 100))
	if err != nil {
		return s.writeError(c, fiber.StatusInternalServerError, err.Error(), engine.KindUnknown)
	}
	return c.JSON(fiber.Map{"journal": entries})
}

func (s *Server) handleCashFlow(c *fiber.Ctx) error {
	in, err := s.instance(c)
	if err != nil {
		return err
	}
	if s.querySvc == nil {
		return s.writeError(c, fiber.StatusServiceUnavailable, "event log not configured", engine.KindUnknown)
	}

	summary, err := s.querySvc.CashFlow(c.Context(), in.ID())
	if err != nil {
		return s.writeError(c, fiber.StatusInternalServerError, err.Error(), engine.KindUnknown)
	}
	return c.JSON(summary)
}

func (s *Server) handleAccountActivity(c *fiber.Ctx) error {
	if s.querySvc == nil {
		return s.writeError(c, fiber.StatusServiceUnavailable, "event log not configured", engine.KindUnknown)
	}

	account := c.Params("path")
	entries, err := s.querySvc.AccountActivity(c.Context(), account, c.QueryInt("limit", 100))
	if err != nil {
		return s.writeError(c, fiber.StatusInternalServerError, err.Error(), engine.KindUnknown)
	}
	return c.JSON(fiber.Map{"activity": entries})
}

// ==========================================================================
// Helpers
// ==========================================================================

func (s *Server) identity(c *fiber.Ctx) (uuid.UUID, error) {
	raw := c.Get(identityHeader)
	if raw == "" {
		return uuid.Nil, s.writeError(c, fiber.StatusBadRequest, identityHeader+" header required", engine.KindValidation)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, s.writeError(c, fiber.StatusBadRequest, "invalid identity: "+raw, engine.KindValidation)
	}
	return id, nil
}

func (s *Server) instance(c *fiber.Ctx) (*engine.Instance, error) {
	raw := c.Params("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, s.writeError(c, fiber.StatusBadRequest, "invalid tournament id: "+raw, engine.KindValidation)
	}
	in, err := s.registry.Get(id)
	if err != nil {
		return nil, s.writeEngineError(c, err)
	}
	return in, nil
}

// writeEngineError maps the error taxonomy onto HTTP status codes.
func (s *Server) writeEngineError(c *fiber.Ctx, err error) error {
	kind := engine.KindOf(err)

	status := fiber.StatusInternalServerError
	switch kind {
	case engine.KindValidation:
		status = fiber.StatusBadRequest
	case engine.KindFunds:
		status = fiber.StatusPaymentRequired
	case engine.KindAuthorization:
		status = fiber.StatusForbidden
	case engine.KindNotFound:
		status = fiber.StatusNotFound
	case engine.KindState, engine.KindDuplicate:
		status = fiber.StatusConflict
	case engine.KindTiming:
		status = fiber.StatusUnprocessableEntity
	}

	return s.writeError(c, status, err.Error(), kind)
}

func (s *Server) writeError(c *fiber.Ctx, status int, msg string, kind engine.Kind) error {
	return c.Status(status).JSON(errorResponse{Error: msg, Kind: kind.String()})
}

// instrument records request metrics and debug logs for every route.
func (s *Server) instrument() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		route := c.Route().Path
		status := c.Response().StatusCode()
		if s.metrics != nil {
			s.metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
			s.metrics.HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
		s.log.Debug().
			Str("route", route).
			Str("method", c.Method()).
			Int("status", status).
			Dur("elapsed", time.Since(start)).
			Msg("request")
		return err
	}
}
