package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	convictionpolling "dealdesk/contexts/investment-committee/conviction-polling"
	postgresadapter "dealdesk/contexts/investment-committee/conviction-polling/adapters/postgres"
	workerapp "dealdesk/contexts/investment-committee/conviction-polling/application/workers"
	"dealdesk/contexts/investment-committee/conviction-polling/application/queries"
	"dealdesk/internal/platform/config"
	"dealdesk/internal/platform/db"
	"dealdesk/internal/platform/httpserver"
	"dealdesk/internal/platform/messaging"
	"dealdesk/internal/platform/metrics"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres     *db.Postgres
	outboxRelay  workerapp.OutboxRelay
	pollInterval time.Duration
	logger       *slog.Logger
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

	repo := postgresadapter.NewRepository(pg.DB, logger)
	module := convictionpolling.NewModule(convictionpolling.Dependencies{
		Polls:                  repo,
		Votes:                  repo,
		Deals:                  repo,
		Members:                repo,
		Outbox:                 repo,
		Clock:                  clockwork.NewRealClock(),
		IDGen:                  postgresadapter.UUIDGenerator{},
		Logger:                 logger,
		RepeatRevealNoOp:       cfg.RevealRepeatNoOp,
		ExposeIdentity:         cfg.RevealExposeIdentity,
		DefaultRevealThreshold: cfg.DefaultRevealThreshold,
		DivergencePolicy: queries.DivergencePolicy{
			ConsensusMaxDivergence:  cfg.ConsensusMaxDivergence,
			DiscussionMinDivergence: cfg.DiscussionMinDivergence,
			TopFlagLimit:            cfg.TopFlagLimit,
		},
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

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	return &WorkerApp{
		postgres: pg,
		outboxRelay: workerapp.OutboxRelay{
			Outbox:    repo,
			Publisher: kafka,
			Clock:     clockwork.NewRealClock(),
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		},
		pollInterval: 2 * time.Second,
		logger:       logger,
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
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if err := w.outboxRelay.RunOnce(ctx); err != nil {
			// Relay stops on the first failed row; count the cycle and let the
			// next tick retry from the oldest pending row.
			metrics.OutboxRelayFailures.Inc()
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
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
