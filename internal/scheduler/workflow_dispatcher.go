package scheduler

import (
	"context"
	"time"

	"nurture_backend/platform/config"
	"nurture_backend/platform/logger"
)

// WorkflowDispatcher enqueues a full workflow run on a fixed interval. The
// run itself executes on the worker, so overlapping ticks at worst enqueue a
// redundant idempotent pass.
type WorkflowDispatcher struct {
	client   *Client
	interval time.Duration
	log      *logger.Logger
}

func NewWorkflowDispatcher(cfg config.SchedulerConfig, client *Client, log *logger.Logger) *WorkflowDispatcher {
	interval := cfg.GetWorkflowRunInterval()
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	return &WorkflowDispatcher{
		client:   client,
		interval: interval,
		log:      log,
	}
}

func (d *WorkflowDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil {
		return
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if err := d.client.EnqueueWorkflowRun(ctx, "dispatcher"); err != nil {
			d.log.Warn("failed to enqueue workflow run", "error", err)
		}
	}
}
