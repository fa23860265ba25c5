package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"TourneyLedger/internal/asset"
	"TourneyLedger/internal/event"
	"TourneyLedger/internal/observability"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Registry is the factory and directory for tournament instances. Creation
// collects the prize pool from the creator before the instance becomes
// visible, so a listed tournament is always fully funded. Listing pages in
// creation order.
type Registry struct {
	mu        sync.RWMutex
	instances map[uuid.UUID]*Instance
	order     []uuid.UUID

	clock    clockwork.Clock
	provider asset.Provider
	emitter  event.Emitter
	metrics  *observability.Metrics
	log      zerolog.Logger
}

func NewRegistry(
	clock clockwork.Clock,
	provider asset.Provider,
	emitter event.Emitter,
	metrics *observability.Metrics,
	log zerolog.Logger,
) *Registry {
	return &Registry{
		instances: make(map[uuid.UUID]*Instance),
		clock:     clock,
		provider:  provider,
		emitter:   emitter,
		metrics:   metrics,
		log:       log,
	}
}

// CreateTournament validates the configuration, escrows the creator's prize
// pool, and registers the new instance. If the prize transfer fails nothing
// is registered and no event is emitted.
func (r *Registry) CreateTournament(ctx context.Context, cfg Config) (*Instance, error) {
	if err := cfg.Validate(); err != nil {
		if r.metrics != nil {
			r.metrics.OpsRejected.WithLabelValues("create", KindOf(err).String()).Inc()
		}
		return nil, err
	}

	id := uuid.New()
	in := newInstance(id, cfg, r.clock, r.provider, r.emitter, r.metrics, r.log)

	if cfg.PrizePool > 0 {
		if err := r.provider.Transfer(ctx, cfg.Creator, id, cfg.Asset, cfg.PrizePool); err != nil {
			if r.metrics != nil {
				r.metrics.OpsRejected.WithLabelValues("create", KindFunds.String()).Inc()
			}
			return nil, fmt.Errorf("escrow prize pool: %w: %w", ErrFunds, err)
		}
	}

	now := r.clock.Now()
	batch, err := in.ledger.EscrowPrize(cfg.PrizePool, now.UnixMicro())
	if err != nil {
		panic(fmt.Sprintf("FATAL: prize escrowed but not recordable for %s: %v", id, err))
	}

	// Committed while still invisible; once registered, other goroutines can
	// reach the instance through Get.
	in.commit("create", event.TypeInstanceCreated, event.InstanceCreated{
		Creator:  cfg.Creator,
		Title:    cfg.Title,
		GameKind: cfg.GameKind.String(),
		FeeAsset: cfg.Asset,
		EntryFee: cfg.EntryFee,
	}, batch, now)

	r.mu.Lock()
	r.instances[id] = in
	r.order = append(r.order, id)
	total := len(r.order)
	r.mu.Unlock()

	if r.metrics != nil {
		if cfg.PrizePool > 0 {
			r.metrics.PrizesEscrowed.Add(float64(cfg.PrizePool))
		}
		r.metrics.Tournaments.WithLabelValues(StatusCreated.String()).Inc()
	}

	r.log.Info().
		Stringer("instance_id", id).
		Stringer("creator", cfg.Creator).
		Str("title", cfg.Title).
		Int64("prize_pool", cfg.PrizePool).
		Int("total", total).
		Msg("tournament created")
	return in, nil
}

// Get returns the instance by id.
func (r *Registry) Get(id uuid.UUID) (*Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	in, ok := r.instances[id]
	if !ok {
		return nil, fmt.Errorf("instance %s: %w", id, ErrNotFound)
	}
	return in, nil
}

// List returns a page of instance ids in creation order. Out-of-range pages
// come back empty, never an error.
func (r *Registry) List(offset, count int) []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if offset < 0 || count <= 0 || offset >= len(r.order) {
		return nil
	}
	end := offset + count
	if end > len(r.order) {
		end = len(r.order)
	}
	out := make([]uuid.UUID, end-offset)
	copy(out, r.order[offset:end])
	return out
}

// Len returns the number of registered instances.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// SweepResult tallies one pass over due tournaments.
type SweepResult struct {
	Examined int
	Started  int
	Canceled int
}

// Sweep starts every tournament whose registration deadline has passed.
// Immediate-start tournaments instead wait until their join cutoff, since
// admission continues while other tournaments would already be in play.
// Tournaments below the player minimum cancel during Start.
func (r *Registry) Sweep(ctx context.Context) SweepResult {
	start := time.Now()
	now := r.clock.Now()

	r.mu.RLock()
	due := make([]*Instance, 0)
	for _, id := range r.order {
		in := r.instances[id]
		if in.Status() != StatusCreated {
			continue
		}
		deadline := in.cfg.RegistrationEnd
		if in.cfg.ImmediateStart() {
			deadline = in.cfg.GameEnd.Add(-ImmediateStartJoinCutoff)
		}
		if !now.Before(deadline) {
			due = append(due, in)
		}
	}
	r.mu.RUnlock()

	res := SweepResult{Examined: len(due)}
	for _, in := range due {
		if err := in.Start(ctx); err != nil {
			// Lost a race with an explicit start or cancel; nothing to do.
			continue
		}
		switch in.Status() {
		case StatusOngoing:
			res.Started++
		case StatusCanceled:
			res.Canceled++
		}
	}

	if r.metrics != nil {
		r.metrics.SweepRuns.Inc()
		r.metrics.SweepStarted.Add(float64(res.Started))
		r.metrics.SweepCanceled.Add(float64(res.Canceled))
		r.metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}
	if res.Started > 0 || res.Canceled > 0 {
		r.log.Info().
			Int("examined", res.Examined).
			Int("started", res.Started).
			Int("canceled", res.Canceled).
			Msg("deadline sweep")
	}
	return res
}
