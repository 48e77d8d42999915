package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nurture_backend/internal/campaigns"
	"nurture_backend/internal/email"
	"nurture_backend/internal/events"
	"nurture_backend/internal/leads"
	"nurture_backend/internal/notification"
	"nurture_backend/internal/nurturing"
	outreachrepo "nurture_backend/internal/outreach/repository"
	"nurture_backend/internal/scheduler"
	"nurture_backend/platform/config"
	"nurture_backend/platform/db"
	"nurture_backend/platform/logger"
	"nurture_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	var sender email.Sender = email.NoopSender{}
	if cfg.GetEmailEnabled() {
		sender = email.NewSMTPSender(cfg)
	}

	notifier := notification.NewNotifier(cfg, sender, log)
	notifier.Subscribe(eventBus)

	// Worker-side workflow wiring (no HTTP handlers required).
	leadsModule := leads.NewModule(pool, eventBus, val)
	campaignsModule := campaigns.NewModule(pool)

	nurturingModule, err := nurturing.NewModule(nurturing.ModuleParams{
		Pool:             pool,
		Bus:              eventBus,
		Validator:        val,
		Logger:           log,
		Workflow:         cfg,
		AI:               cfg,
		LeadsRepo:        leadsModule.Repository(),
		CampaignsRepo:    campaignsModule.Repository(),
		CampaignsService: campaignsModule.Service(),
	})
	if err != nil {
		log.Error("failed to initialize nurturing module", "error", err)
		panic("failed to initialize nurturing module: " + err.Error())
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	rescore := scheduler.NewRescoreSubscriber(cfg, client, log)
	rescore.Subscribe(eventBus)

	dispatcher := scheduler.NewWorkflowDispatcher(cfg, client, log)
	go dispatcher.Run(ctx)

	emailDispatcher := scheduler.NewEmailDispatcher(outreachrepo.New(pool), leadsModule.Repository(), sender, log)
	go emailDispatcher.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, nurturingModule.Engine(), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
