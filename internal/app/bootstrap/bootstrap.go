package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	promotionengine "concord/contexts/governance/promotion-engine"
	postgresadapter "concord/contexts/governance/promotion-engine/adapters/postgres"
	workerapp "concord/contexts/governance/promotion-engine/application/workers"
	"concord/contexts/governance/promotion-engine/ports"
	"concord/internal/platform/config"
	"concord/internal/platform/db"
	"concord/internal/platform/httpserver"
	"concord/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres      *db.Postgres
	bus           *messaging.Bus
	topic         string
	outboxRelay   workerapp.OutboxRelay
	sweeper       workerapp.ResolutionSweeper
	sweepInterval time.Duration
	relayInterval time.Duration
	logger        *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := postgresadapter.AutoMigrate(pg.DB); err != nil {
			_ = pg.Close()
			return nil, err
		}
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	module := promotionengine.NewModule(promotionengine.Dependencies{
		Constitutions: repo,
		Agents:        repo,
		Promotions:    repo,
		Votes:         repo,
		Outbox:        repo,
		Clock:         postgresadapter.SystemClock{},
		IDGen:         postgresadapter.UUIDGenerator{},
		Logger:        logger,
	})

	server := httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := postgresadapter.AutoMigrate(pg.DB); err != nil {
			_ = pg.Close()
			return nil, err
		}
	}

	bus, err := messaging.NewBus(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	engine := promotionengine.NewModule(promotionengine.Dependencies{
		Constitutions: repo,
		Agents:        repo,
		Promotions:    repo,
		Votes:         repo,
		Outbox:        repo,
		Clock:         postgresadapter.SystemClock{},
		IDGen:         postgresadapter.UUIDGenerator{},
		Logger:        logger,
	})

	return &WorkerApp{
		postgres: pg,
		bus:      bus,
		topic:    cfg.OutboxTopic,
		outboxRelay: workerapp.OutboxRelay{
			Outbox:    repo,
			Publisher: bus,
			Clock:     postgresadapter.SystemClock{},
			Topic:     cfg.OutboxTopic,
			BatchSize: cfg.WorkerBatchSize,
			Logger:    logger,
		},
		sweeper: workerapp.ResolutionSweeper{
			Promotions: repo,
			Engine:     engine.Handler.Promotions,
			Clock:      postgresadapter.SystemClock{},
			BatchSize:  cfg.WorkerBatchSize,
			Logger:     logger,
		},
		sweepInterval: cfg.SweepInterval,
		relayInterval: cfg.RelayInterval,
		logger:        logger,
	}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	// Audit consumer: every relayed governance event lands in the worker log.
	if err := w.bus.Subscribe(ctx, w.topic, "governance-audit", w.recordEvent); err != nil {
		return err
	}

	relayTicker := time.NewTicker(w.relayInterval)
	defer relayTicker.Stop()
	sweepTicker := time.NewTicker(w.sweepInterval)
	defer sweepTicker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"sweep_interval", w.sweepInterval.String(),
		"relay_interval", w.relayInterval.String(),
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sweepTicker.C:
			if err := w.sweeper.RunOnce(ctx); err != nil {
				return err
			}
		case <-relayTicker.C:
			if err := w.outboxRelay.RunOnce(ctx); err != nil {
				return err
			}
		}
	}
}

func (w *WorkerApp) recordEvent(_ context.Context, event ports.EventEnvelope) error {
	w.logger.Info("governance event delivered",
		"event", "bootstrap_event_delivered",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"event_id", event.EventID,
		"event_type", event.EventType,
		"partition_key", event.PartitionKey,
	)
	return nil
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
