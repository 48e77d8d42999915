package scheduler

import (
	"context"

	"nurture_backend/internal/events"
	"nurture_backend/platform/config"
	"nurture_backend/platform/logger"
)

// RescoreSubscriber schedules a deferred per-lead rescore task whenever a
// lead enters the workflow, so scoring fires on its due date instead of
// waiting for the next periodic run. The periodic run still catches anything
// the queue missed.
type RescoreSubscriber struct {
	client *Client
	days   int
	log    *logger.Logger
}

func NewRescoreSubscriber(cfg config.WorkflowConfig, client *Client, log *logger.Logger) *RescoreSubscriber {
	return &RescoreSubscriber{
		client: client,
		days:   cfg.GetRescoringIntervalDays(),
		log:    log,
	}
}

// Subscribe registers the subscriber on the event bus.
func (s *RescoreSubscriber) Subscribe(bus events.Bus) {
	bus.Subscribe(events.LeadEnrolled{}.EventName(), events.HandlerFunc(s.onLeadEnrolled))
}

func (s *RescoreSubscriber) onLeadEnrolled(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadEnrolled)
	if !ok {
		return nil
	}

	runAt := e.OccurredAt().UTC().AddDate(0, 0, s.days)
	if err := s.client.ScheduleLeadRescore(ctx, e.LeadID, runAt); err != nil {
		s.log.Warn("failed to schedule lead rescore", "lead_id", e.LeadID, "error", err)
		return err
	}
	return nil
}
