package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"caseflow/internal/config"
	"caseflow/internal/core/domain"
	"caseflow/internal/core/ports"
	"caseflow/internal/core/usecase"
	"caseflow/internal/infrastructure/backend"
	"caseflow/internal/infrastructure/duedate"
	"caseflow/internal/infrastructure/ocrclient"
	"caseflow/internal/infrastructure/queue/nats"
	"caseflow/internal/infrastructure/repository/postgres"
	"caseflow/internal/infrastructure/resilience"
	"caseflow/internal/infrastructure/storage/localfs"
	"caseflow/internal/observability/logging"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue    ports.JobQueue
	Sessions ports.SessionStore

	Engine    ports.WorkflowEngine
	Checklist ports.ChecklistBuilder
	OcrIntake ports.OcrSubmitter
	Pipeline  ports.OcrProcessor

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	logger := logging.NewJSONLogger(service, cfg.LogLevel)
	slog.SetDefault(logger)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	sessions := postgres.NewSessionRepository(db)
	if err := sessions.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StagingPath)
	if err != nil {
		return nil, fmt.Errorf("init staging storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init job queue: %w", err)
	}

	caseBackend := backend.New(cfg.BackendURL, executor)
	dueDates := duedate.New(cfg.DueDateURL, executor)
	ocr := ocrclient.New(cfg.OcrURL)

	clock := domain.BusinessClock{}
	scheduler := usecase.NewScheduler(dueDates, logger)
	gate := usecase.NewGate(clock)

	engine := usecase.NewTransitionEngine(caseBackend, scheduler, gate, clock, logger)
	checklist := usecase.NewChecklistBuilder(caseBackend, logger)
	intake := usecase.NewOcrIntake(sessions, storage, queue, logger)
	pipeline := usecase.NewOcrPipeline(sessions, storage, ocr, caseBackend,
		cfg.OcrPollInterval, cfg.OcrMaxAttempts, logger)

	return &App{
		Config: cfg,
		Logger: logger,

		Queue:    queue,
		Sessions: sessions,

		Engine:    engine,
		Checklist: checklist,
		OcrIntake: intake,
		Pipeline:  pipeline,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
