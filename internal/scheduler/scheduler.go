package scheduler

import (
	"context"
	"fmt"
	"time"

	"TourneyLedger/internal/engine"
	"TourneyLedger/internal/observability"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Sweeper runs the registry deadline sweep on a fixed interval so that
// tournaments start (or cancel) on time even when nobody calls startGame
// explicitly.
type Sweeper struct {
	sched    gocron.Scheduler
	registry *engine.Registry
	interval time.Duration
	metrics  *observability.Metrics
	log      zerolog.Logger
}

func NewSweeper(
	registry *engine.Registry,
	interval time.Duration,
	clock clockwork.Clock,
	metrics *observability.Metrics,
	log zerolog.Logger,
) (*Sweeper, error) {
	sched, err := gocron.NewScheduler(gocron.WithClock(clock))
	if err != nil {
		return nil, fmt.Errorf("new scheduler: %w", err)
	}
	return &Sweeper{
		sched:    sched,
		registry: registry,
		interval: interval,
		metrics:  metrics,
		log:      log,
	}, nil
}

// Start registers the sweep job and begins running it.
func (s *Sweeper) Start(ctx context.Context) error {
	_, err := s.sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			res := s.registry.Sweep(ctx)
			if res.Started > 0 || res.Canceled > 0 {
				s.log.Info().
					Int("started", res.Started).
					Int("canceled", res.Canceled).
					Msg("sweep applied deadlines")
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("register sweep job: %w", err)
	}

	s.sched.Start()
	s.log.Info().Dur("interval", s.interval).Msg("deadline sweeper started")
	return nil
}

// Shutdown stops the scheduler and waits for a running sweep to finish.
func (s *Sweeper) Shutdown() error {
	return s.sched.Shutdown()
}
