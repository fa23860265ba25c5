package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"TourneyLedger/internal/asset"
	"TourneyLedger/internal/config"
	"TourneyLedger/internal/engine"
	"TourneyLedger/internal/event"
	"TourneyLedger/internal/notify"
	"TourneyLedger/internal/observability"
	"TourneyLedger/internal/persistence"
	"TourneyLedger/internal/query"
	"TourneyLedger/internal/scheduler"
	"TourneyLedger/internal/server"

	"github.com/jonboulle/clockwork"
	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	log := observability.NewLogger("main")
	log.Info().Msg("TourneyLedger starting")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics()
	health := observability.NewHealthChecker()
	clock := clockwork.NewRealClock()

	// Local asset provider. Real deployments swap in a provider backed by the
	// settlement chain; the engine only sees the Provider interface.
	provider := asset.NewSimulatedProvider()

	g, gctx := errgroup.WithContext(ctx)

	// --- Event pipeline channels ---
	// Persist blocks the engine when full; notify drops.
	var persistCh, notifyCh chan event.Envelope

	var db *sql.DB
	var querySvc *query.Service

	if cfg.Ephemeral {
		log.Warn().Msg("ephemeral mode: no event log, no notifications")
	} else {
		persistCh = make(chan event.Envelope, cfg.PersistChanSize)
		notifyCh = make(chan event.Envelope, cfg.NotifyChanSize)

		// --- Postgres ---
		db, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("postgres open")
		}
		defer db.Close()
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			log.Fatal().Err(err).Msg("postgres ping")
		}
		log.Info().Msg("postgres connected")

		migrator := persistence.NewMigrator(db, cfg.MigrationsDir, observability.NewLogger("migrator"))
		if err := migrator.Up(ctx); err != nil {
			log.Fatal().Err(err).Msg("run migrations")
		}

		querySvc = query.NewService(db)

		worker := persistence.NewWorker(
			db, persistCh, cfg.PersistBatchSize, cfg.PersistFlushTimeout,
			metrics, observability.NewLogger("persistence"),
		)
		g.Go(func() error {
			if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})

		// --- NATS ---
		nc, err := nats.Connect(cfg.NATSURL,
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
		)
		if err != nil {
			log.Fatal().Err(err).Msg("nats connect")
		}
		defer nc.Drain()

		js, err := jetstream.New(nc)
		if err != nil {
			log.Fatal().Err(err).Msg("jetstream context")
		}
		if err := notify.EnsureStream(ctx, js); err != nil {
			log.Fatal().Err(err).Msg("ensure notify stream")
		}
		log.Info().Msg("nats connected")

		publisher := notify.NewPublisher(js, notifyCh, observability.NewLogger("notify"))
		g.Go(func() error {
			if err := publisher.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})

		// Channel utilization gauges.
		g.Go(func() error {
			ticker := time.NewTicker(5 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					metrics.SetChannelMetrics("persist", len(persistCh), cap(persistCh))
					metrics.SetChannelMetrics("notify", len(notifyCh), cap(notifyCh))
				}
			}
		})
	}

	emitter := event.NewChanEmitter(persistCh, notifyCh, metrics)

	// --- Engine ---
	registry := engine.NewRegistry(clock, provider, emitter, metrics, observability.NewLogger("engine"))

	sweeper, err := scheduler.NewSweeper(
		registry, cfg.SweepInterval, clock, metrics, observability.NewLogger("sweeper"),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("build sweeper")
	}
	if err := sweeper.Start(gctx); err != nil {
		log.Fatal().Err(err).Msg("start sweeper")
	}

	// --- HTTP API ---
	api := server.NewServer(registry, querySvc, health, metrics, observability.NewLogger("http"))
	app := api.App()
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http api listening")
		return app.Listen(cfg.HTTPAddr)
	})

	// --- Metrics endpoint ---
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsMux.HandleFunc("/healthz", health.LivenessHandler)
	metricsMux.HandleFunc("/readyz", health.ReadinessHandler)
	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Go(func() error {
		log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listening")
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	health.SetReady(true)
	log.Info().Msg("TourneyLedger ready")

	// --- Shutdown ---
	<-ctx.Done()
	log.Info().Msg("shutting down")
	health.SetReady(false)

	shutCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := metricsServer.Shutdown(shutCtx); err != nil {
		log.Error().Err(err).Msg("metrics shutdown")
	}
	if err := sweeper.Shutdown(); err != nil {
		log.Error().Err(err).Msg("sweeper shutdown")
	}

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("worker exit")
	}
	log.Info().Msg("TourneyLedger stopped")
}
