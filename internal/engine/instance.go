package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"TourneyLedger/internal/asset"
	"TourneyLedger/internal/event"
	"TourneyLedger/internal/ledger"
	"TourneyLedger/internal/money"
	"TourneyLedger/internal/observability"
	"TourneyLedger/internal/prize"
	"TourneyLedger/internal/state"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Status is the tournament lifecycle state.
type Status int32

const (
	StatusCreated Status = iota
	StatusOngoing
	StatusEnded
	StatusCanceled
	StatusPrizeDistributed
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusOngoing:
		return "ongoing"
	case StatusEnded:
		return "ended"
	case StatusCanceled:
		return "canceled"
	case StatusPrizeDistributed:
		return "prize_distributed"
	default:
		return "unknown"
	}
}

const (
	// PlatformFeeBasisPoints is the cut taken from the distributable pool at
	// distribution time: 5%.
	PlatformFeeBasisPoints = 500

	// ImmediateStartJoinCutoff closes admission this long before the game
	// ends for tournaments whose play begins at registration close.
	ImmediateStartJoinCutoff = 15 * time.Minute
)

// Instance is one tournament: configuration, roster, scores, and the ledger
// that accounts for every unit that ever entered it. All operations run under
// the per-instance lock, so transitions within one tournament are strictly
// serialized while distinct tournaments proceed in parallel.
//
// The provider transfer on every inbound or outbound movement happens inside
// the lock, before the ledger mutation commits. A failed transfer leaves the
// instance exactly as it was.
type Instance struct {
	mu sync.Mutex

	id        uuid.UUID
	cfg       Config
	createdAt time.Time

	status         Status
	canceledReason string
	roster         *state.Roster
	scores         *state.ScoreBoard
	winners        []uuid.UUID

	ledger    *ledger.Ledger
	validator *ledger.InvariantValidator

	clock    clockwork.Clock
	provider asset.Provider
	emitter  event.Emitter
	metrics  *observability.Metrics
	log      zerolog.Logger
}

// newInstance wires an instance; funds are escrowed by the registry before
// the instance becomes visible.
func newInstance(
	id uuid.UUID,
	cfg Config,
	clock clockwork.Clock,
	provider asset.Provider,
	emitter event.Emitter,
	metrics *observability.Metrics,
	log zerolog.Logger,
) *Instance {
	assetID, _ := ledger.GetAssetID(cfg.Asset)
	led := ledger.NewLedger(id, assetID)

	return &Instance{
		id:        id,
		cfg:       cfg,
		createdAt: clock.Now(),
		status:    StatusCreated,
		roster:    state.NewRoster(cfg.MaxPlayers),
		scores:    state.NewScoreBoard(),
		ledger:    led,
		validator: ledger.NewInvariantValidator(led),
		clock:     clock,
		provider:  provider,
		emitter:   emitter,
		metrics:   metrics,
		log:       log.With().Stringer("instance_id", id).Logger(),
	}
}

func (in *Instance) ID() uuid.UUID { return in.id }

func (in *Instance) Config() Config { return in.cfg }

func (in *Instance) Status() Status {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.status
}

// ==========================================================================
// Admission
// ==========================================================================

// Join admits an identity into the roster, collecting the entry fee first.
// Normal tournaments admit until registration closes; immediate-start
// tournaments admit until the final cutoff before the game ends.
func (in *Instance) Join(ctx context.Context, identity uuid.UUID) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	defer in.observe("join")()

	if identity == uuid.Nil {
		return in.reject("join", fmt.Errorf("%w: identity required", ErrInvalidConfig))
	}
	if in.status != StatusCreated {
		return in.reject("join", fmt.Errorf("join in status %s: %w", in.status, ErrWrongState))
	}
	if in.roster.Contains(identity) {
		return in.reject("join", fmt.Errorf("identity %s: %w", identity, ErrAlreadyJoined))
	}
	if in.roster.Full() {
		return in.reject("join", fmt.Errorf("%d/%d players: %w", in.roster.Len(), in.cfg.MaxPlayers, ErrFull))
	}

	now := in.clock.Now()
	if !in.admissionOpen(now) {
		return in.reject("join", fmt.Errorf("at %s: %w", now.Format(time.RFC3339), ErrRegistrationClosed))
	}

	var batch *ledger.Batch
	if in.cfg.EntryFee > 0 {
		if err := in.provider.Transfer(ctx, identity, in.id, in.cfg.Asset, in.cfg.EntryFee); err != nil {
			return in.reject("join", fmt.Errorf("collect entry fee: %w: %w", ErrFunds, err))
		}
		var err error
		batch, err = in.ledger.CollectFee(identity, in.cfg.EntryFee, now.UnixMicro())
		if err != nil {
			panic(fmt.Sprintf("FATAL: fee collected but not recordable for %s: %v", in.id, err))
		}
	}

	if err := in.roster.Add(identity, now); err != nil {
		panic(fmt.Sprintf("FATAL: roster rejected pre-checked join for %s: %v", in.id, err))
	}

	in.commit("join", event.TypePlayerJoined, event.PlayerJoined{
		Identity:    identity,
		EntryFee:    in.cfg.EntryFee,
		PlayerCount: in.roster.Len(),
	}, batch, now)

	if in.metrics != nil && in.cfg.EntryFee > 0 {
		in.metrics.FeesCollected.Add(float64(in.cfg.EntryFee))
	}
	return nil
}

func (in *Instance) admissionOpen(now time.Time) bool {
	if in.cfg.ImmediateStart() {
		return now.Before(in.cfg.GameEnd.Add(-ImmediateStartJoinCutoff))
	}
	return now.Before(in.cfg.RegistrationEnd)
}

// ==========================================================================
// Play
// ==========================================================================

// Start transitions the tournament into play once registration has closed.
// Below the player minimum the tournament cancels instead, crediting refunds;
// that outcome is a success from the caller's point of view.
func (in *Instance) Start(ctx context.Context) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	defer in.observe("start")()

	if in.status != StatusCreated {
		return in.reject("start", fmt.Errorf("start in status %s: %w", in.status, ErrWrongState))
	}

	now := in.clock.Now()
	if now.Before(in.cfg.RegistrationEnd) {
		return in.reject("start", fmt.Errorf("until %s: %w",
			in.cfg.RegistrationEnd.Format(time.RFC3339), ErrRegistrationOpen))
	}

	if in.roster.Len() < in.cfg.MinPlayers {
		in.cancelLocked(fmt.Sprintf("below minimum players: %d/%d", in.roster.Len(), in.cfg.MinPlayers), now)
		return nil
	}

	in.status = StatusOngoing
	in.commit("start", event.TypeGameStarted, event.GameStarted{
		PlayerCount: in.roster.Len(),
	}, nil, now)
	return nil
}

// SubmitScore records a participant's single result. Write-once: a second
// submission from the same identity is rejected, never overwritten.
func (in *Instance) SubmitScore(identity uuid.UUID, score int64) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	defer in.observe("submit_score")()

	if in.status != StatusOngoing {
		return in.reject("submit_score", fmt.Errorf("submit in status %s: %w", in.status, ErrWrongState))
	}
	if !in.roster.Contains(identity) {
		return in.reject("submit_score", fmt.Errorf("identity %s: %w", identity, ErrNotAParticipant))
	}
	if in.scores.Has(identity) {
		return in.reject("submit_score", fmt.Errorf("identity %s: %w", identity, ErrAlreadySubmitted))
	}

	now := in.clock.Now()
	if err := in.scores.Record(identity, score, now); err != nil {
		panic(fmt.Sprintf("FATAL: scoreboard rejected pre-checked submit for %s: %v", in.id, err))
	}

	in.commit("submit_score", event.TypeScoreSubmitted, event.ScoreSubmitted{
		Identity: identity,
		Score:    score,
	}, nil, now)
	return nil
}

// SetWinners ends play with the creator's final ranking, ordered 1st..Nth.
// The winner list is validated against the roster and the distribution
// policy; the caller must be the tournament creator.
func (in *Instance) SetWinners(caller uuid.UUID, winners []uuid.UUID) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	defer in.observe("set_winners")()

	if in.status != StatusOngoing {
		return in.reject("set_winners", fmt.Errorf("set winners in status %s: %w", in.status, ErrWrongState))
	}
	if caller != in.cfg.Creator {
		return in.reject("set_winners", fmt.Errorf("caller %s: %w", caller, ErrNotAuthorized))
	}
	if err := in.cfg.Policy.ValidateWinnerCount(len(winners), in.roster.Len()); err != nil {
		return in.reject("set_winners", fmt.Errorf("%w: %v", ErrInvalidWinners, err))
	}

	seen := make(map[uuid.UUID]struct{}, len(winners))
	for _, w := range winners {
		if !in.roster.Contains(w) {
			return in.reject("set_winners", fmt.Errorf("%w: %s is not a participant", ErrInvalidWinners, w))
		}
		if _, dup := seen[w]; dup {
			return in.reject("set_winners", fmt.Errorf("%w: %s listed twice", ErrInvalidWinners, w))
		}
		seen[w] = struct{}{}
	}

	now := in.clock.Now()
	in.winners = append([]uuid.UUID(nil), winners...)
	in.status = StatusEnded

	in.commit("set_winners", event.TypeWinnersSet, event.WinnersSet{
		Winners: in.winners,
	}, nil, now)
	return nil
}

// ==========================================================================
// Settlement
// ==========================================================================

// DistributePrize settles an ended tournament exactly once: the platform fee
// comes off the top of the distributable pool, the remainder is divided per
// the policy into claimable balances, and flooring residue stays in escrow.
// No funds leave the instance here; players pull via ClaimPrize.
func (in *Instance) DistributePrize() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	defer in.observe("distribute_prize")()

	if in.status != StatusEnded {
		return in.reject("distribute_prize", fmt.Errorf("distribute in status %s: %w", in.status, ErrWrongState))
	}

	now := in.clock.Now()
	distributable := in.ledger.Distributable()
	platformFee := money.ApplyBasisPoints(distributable, PlatformFeeBasisPoints)
	payoutPool := distributable - platformFee

	payouts, order, err := prize.Distribute(payoutPool, in.cfg.Policy, in.roster.Identities(), in.winners)
	if err != nil {
		return in.reject("distribute_prize", fmt.Errorf("%w: %v", ErrInvalidWinners, err))
	}

	batch, err := in.ledger.Distribute(platformFee, payouts, order, now.UnixMicro())
	if err != nil {
		panic(fmt.Sprintf("FATAL: distribution rejected by ledger for %s: %v", in.id, err))
	}

	in.status = StatusPrizeDistributed
	in.commit("distribute_prize", event.TypePrizeDistributed, event.PrizeDistributed{
		PlatformFee: platformFee,
		PayoutPool:  payoutPool,
		Recipients:  len(order),
	}, batch, now)

	if in.metrics != nil {
		in.metrics.PlatformFees.Add(float64(platformFee))
		in.metrics.UnallocatedHeld.Add(float64(in.ledger.Unallocated()))
	}
	return nil
}

// ClaimPrize pays out an identity's claimable balance. The provider transfer
// runs first; the balance is zeroed only once the transfer succeeds, so a
// failed transfer leaves the claim intact for retry. Claim-once thereafter.
func (in *Instance) ClaimPrize(ctx context.Context, identity uuid.UUID) (int64, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	defer in.observe("claim_prize")()

	if in.status != StatusPrizeDistributed {
		return 0, in.reject("claim_prize", fmt.Errorf("claim in status %s: %w", in.status, ErrWrongState))
	}
	return in.settleClaim(ctx, "claim_prize", event.TypePrizeClaimed, identity)
}

// ==========================================================================
// Cancellation
// ==========================================================================

// Cancel aborts a tournament that has not started. Creator only. Every
// rostered player is credited their entry fee back and the creator the
// escrowed prize pool, each claimed through ClaimRefund.
func (in *Instance) Cancel(caller uuid.UUID) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	defer in.observe("cancel")()

	if in.status != StatusCreated {
		return in.reject("cancel", fmt.Errorf("cancel in status %s: %w", in.status, ErrWrongState))
	}
	if caller != in.cfg.Creator {
		return in.reject("cancel", fmt.Errorf("caller %s: %w", caller, ErrNotAuthorized))
	}

	in.cancelLocked("canceled by creator", in.clock.Now())
	return nil
}

// cancelLocked commits the Canceled transition and credits refunds. Caller
// holds the lock and has verified status == Created.
func (in *Instance) cancelLocked(reason string, now time.Time) {
	batch, err := in.ledger.CreditRefunds(in.roster.Identities(), in.cfg.EntryFee, in.cfg.Creator, now.UnixMicro())
	if err != nil {
		panic(fmt.Sprintf("FATAL: refund credit rejected by ledger for %s: %v", in.id, err))
	}

	in.status = StatusCanceled
	in.canceledReason = reason

	in.commit("cancel", event.TypeGameCanceled, event.GameCanceled{
		Reason:      reason,
		PlayerCount: in.roster.Len(),
	}, batch, now)
}

// ClaimRefund pays out a refund balance after cancellation. Same transfer
// discipline and claim-once rule as ClaimPrize.
func (in *Instance) ClaimRefund(ctx context.Context, identity uuid.UUID) (int64, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	defer in.observe("claim_refund")()

	if in.status != StatusCanceled {
		return 0, in.reject("claim_refund", fmt.Errorf("refund in status %s: %w", in.status, ErrWrongState))
	}
	return in.settleClaim(ctx, "claim_refund", event.TypeRefundClaimed, identity)
}

func (in *Instance) settleClaim(ctx context.Context, op string, evType event.Type, identity uuid.UUID) (int64, error) {
	amount := in.ledger.Claimable(identity)
	if amount <= 0 {
		return 0, in.reject(op, fmt.Errorf("identity %s: %w", identity, ErrNothingToClaim))
	}

	if err := in.provider.Transfer(ctx, in.id, identity, in.cfg.Asset, amount); err != nil {
		return 0, in.reject(op, fmt.Errorf("pay out %d: %w: %w", amount, ErrFunds, err))
	}

	now := in.clock.Now()
	batch, paid, err := in.ledger.Claim(identity, now.UnixMicro())
	if err != nil || paid != amount {
		panic(fmt.Sprintf("FATAL: claim paid but not recordable for %s: paid=%d want=%d err=%v",
			in.id, paid, amount, err))
	}

	var payload interface{}
	if evType == event.TypePrizeClaimed {
		payload = event.PrizeClaimed{Identity: identity, Amount: amount}
	} else {
		payload = event.RefundClaimed{Identity: identity, Amount: amount}
	}
	in.commit(op, evType, payload, batch, now)

	if in.metrics != nil {
		kind := "prize"
		if evType == event.TypeRefundClaimed {
			kind = "refund"
		}
		in.metrics.AmountsClaimed.WithLabelValues(kind).Add(float64(amount))
	}
	return amount, nil
}

// ==========================================================================
// Reads
// ==========================================================================

// GameData is a consistent snapshot of one tournament.
type GameData struct {
	ID          uuid.UUID `json:"id"`
	Creator     uuid.UUID `json:"creator"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	GameKind    string    `json:"game_kind"`
	Status      string    `json:"status"`

	Asset     string `json:"asset"`
	EntryFee  int64  `json:"entry_fee"`
	PrizePool int64  `json:"prize_pool"`

	MinPlayers  int `json:"min_players"`
	MaxPlayers  int `json:"max_players"`
	PlayerCount int `json:"player_count"`

	RegistrationEnd time.Time `json:"registration_end"`
	GameStart       time.Time `json:"game_start"`
	GameEnd         time.Time `json:"game_end"`
	CreatedAt       time.Time `json:"created_at"`

	Policy         string      `json:"policy"`
	Winners        []uuid.UUID `json:"winners,omitempty"`
	CanceledReason string      `json:"canceled_reason,omitempty"`

	CollectedFees int64 `json:"collected_fees"`
	PlatformFee   int64 `json:"platform_fee"`
	Unallocated   int64 `json:"unallocated"`
	TotalClaimed  int64 `json:"total_claimed"`
}

func (in *Instance) GameData() GameData {
	in.mu.Lock()
	defer in.mu.Unlock()

	return GameData{
		ID:              in.id,
		Creator:         in.cfg.Creator,
		Title:           in.cfg.Title,
		Description:     in.cfg.Description,
		GameKind:        in.cfg.GameKind.String(),
		Status:          in.status.String(),
		Asset:           in.cfg.Asset,
		EntryFee:        in.cfg.EntryFee,
		PrizePool:       in.cfg.PrizePool,
		MinPlayers:      in.cfg.MinPlayers,
		MaxPlayers:      in.cfg.MaxPlayers,
		PlayerCount:     in.roster.Len(),
		RegistrationEnd: in.cfg.RegistrationEnd,
		GameStart:       in.cfg.GameStart,
		GameEnd:         in.cfg.GameEnd,
		CreatedAt:       in.createdAt,
		Policy:          in.cfg.Policy.Kind.String(),
		Winners:         append([]uuid.UUID(nil), in.winners...),
		CanceledReason:  in.canceledReason,
		CollectedFees:   in.ledger.CollectedFees(),
		PlatformFee:     in.ledger.PlatformFee(),
		Unallocated:     in.ledger.Unallocated(),
		TotalClaimed:    in.ledger.TotalClaimed(),
	}
}

// PlayerView is one roster entry with its score, if submitted.
type PlayerView struct {
	Identity    uuid.UUID  `json:"identity"`
	JoinedAt    time.Time  `json:"joined_at"`
	Score       *int64     `json:"score,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
}

// Players returns the roster in join order with submitted scores attached.
func (in *Instance) Players() []PlayerView {
	in.mu.Lock()
	defer in.mu.Unlock()

	entries := in.roster.Entries()
	out := make([]PlayerView, len(entries))
	for i, e := range entries {
		out[i] = PlayerView{Identity: e.Identity, JoinedAt: e.JoinedAt}
		if se, ok := in.scores.Get(e.Identity); ok {
			score := se.Score
			at := se.SubmittedAt
			out[i].Score = &score
			out[i].SubmittedAt = &at
		}
	}
	return out
}

// Ranking returns scores ordered best-first, equal scores breaking toward the
// earlier submission.
func (in *Instance) Ranking() []state.ScoreEntry {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.scores.Ranked()
}

// Claimable returns the outstanding balance owed to an identity.
func (in *Instance) Claimable(identity uuid.UUID) int64 {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.ledger.Claimable(identity)
}

// ==========================================================================
// Internals
// ==========================================================================

// commit finalizes a transition under the lock: invariant check, event
// emission, logging. Violations here mean corrupted accounting, which is
// never served; the process halts instead.
func (in *Instance) commit(op string, evType event.Type, payload interface{}, batch *ledger.Batch, now time.Time) {
	if err := in.validator.ValidateBatch(batch); err != nil {
		panic(fmt.Sprintf("FATAL: unbalanced batch for %s: %v", in.id, err))
	}
	if err := in.validator.ValidateConservation(); err != nil {
		panic(fmt.Sprintf("FATAL: %v", err))
	}

	if in.emitter != nil {
		in.emitter.Emit(event.Envelope{
			InstanceID: in.id,
			Type:       evType,
			Timestamp:  now,
			Payload:    payload,
			Batch:      batch,
		})
	}

	if in.metrics != nil {
		in.metrics.OpsApplied.WithLabelValues(op).Inc()
		if batch != nil {
			for _, j := range batch.Journals {
				in.metrics.Journals.WithLabelValues(j.JournalType.String()).Inc()
			}
		}
	}

	in.log.Info().
		Str("operation", op).
		Stringer("event", evType).
		Str("status", in.status.String()).
		Int("players", in.roster.Len()).
		Msg("transition committed")
}

// reject records a refused operation and passes the error through.
func (in *Instance) reject(op string, err error) error {
	if in.metrics != nil {
		in.metrics.OpsRejected.WithLabelValues(op, KindOf(err).String()).Inc()
	}
	in.log.Debug().Str("operation", op).Err(err).Msg("operation rejected")
	return err
}

func (in *Instance) observe(op string) func() {
	if in.metrics == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		in.metrics.OpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}
