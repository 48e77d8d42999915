package scheduler

import (
	"context"
	"errors"
	"fmt"

	"nurture_backend/internal/nurturing/workflow"
	"nurture_backend/platform/apperr"
	"nurture_backend/platform/config"
	"nurture_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	engine *workflow.Engine
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, engine *workflow.Engine, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		engine: engine,
		log:    log,
	}

	mux.HandleFunc(TaskWorkflowRun, w.handleWorkflowRun)
	mux.HandleFunc(TaskLeadRescore, w.handleLeadRescore)

	return w, nil
}

// Run blocks until the context is cancelled, then drains in-flight tasks.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleWorkflowRun(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseWorkflowRunPayload(task)
	if err != nil {
		return fmt.Errorf("parse workflow run payload: %w", err)
	}

	w.log.Info("workflow run starting", "triggered_by", payload.TriggeredBy)
	if _, err := w.engine.Run(ctx); err != nil {
		w.log.Error("workflow run failed", "error", err)
		return err
	}
	return nil
}

func (w *Worker) handleLeadRescore(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseLeadRescorePayload(task)
	if err != nil {
		return fmt.Errorf("parse lead rescore payload: %w", err)
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return fmt.Errorf("parse lead id: %w", err)
	}

	err = w.engine.RescoreLead(ctx, leadID)
	if err != nil {
		// A lead that left the campaign between scheduling and execution
		// is not a retryable failure.
		var appErr *apperr.Error
		if errors.As(err, &appErr) && appErr.Kind == apperr.KindNotFound {
			w.log.Warn("rescore skipped, lead no longer enrolled", "lead_id", leadID)
			return nil
		}
		w.log.Error("lead rescore failed", "lead_id", leadID, "error", err)
		return err
	}
	return nil
}
