// Package notification turns workflow events into operator emails.
package notification

import (
	"context"
	"fmt"

	"nurture_backend/internal/email"
	"nurture_backend/internal/events"
	"nurture_backend/platform/config"
	"nurture_backend/platform/logger"
)

// Notifier subscribes to workflow events and mails the operator inbox.
type Notifier struct {
	sender   email.Sender
	operator string
	log      *logger.Logger
}

func NewNotifier(cfg config.EmailConfig, sender email.Sender, log *logger.Logger) *Notifier {
	return &Notifier{
		sender:   sender,
		operator: cfg.GetOperatorEmail(),
		log:      log,
	}
}

// Subscribe registers the notifier on the event bus. Safe to call once at
// startup; delivery failures are logged, never retried.
func (n *Notifier) Subscribe(bus events.Bus) {
	bus.Subscribe(events.LeadGraduated{}.EventName(), events.HandlerFunc(n.onLeadGraduated))
	bus.Subscribe(events.HumanReviewRequested{}.EventName(), events.HandlerFunc(n.onHumanReviewRequested))
	bus.Subscribe(events.LeadLost{}.EventName(), events.HandlerFunc(n.onLeadLost))
	bus.Subscribe(events.WorkflowRunCompleted{}.EventName(), events.HandlerFunc(n.onWorkflowRunCompleted))
}

func (n *Notifier) onLeadGraduated(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadGraduated)
	if !ok {
		return nil
	}

	subject := "Lead graduated from nurturing"
	if e.Manual {
		subject = "Lead manually upgraded"
	}
	body := fmt.Sprintf(
		"Lead %s reached score %d in cycle %d and left the nurturing workflow.\n\nA follow-up task is due tomorrow.",
		e.LeadID, e.FinalScore, e.Cycle+1,
	)
	return n.deliver(ctx, subject, body)
}

func (n *Notifier) onHumanReviewRequested(ctx context.Context, event events.Event) error {
	e, ok := event.(events.HumanReviewRequested)
	if !ok {
		return nil
	}

	body := fmt.Sprintf(
		"Lead %s has exhausted all nurturing cycles and needs a decision by %s.",
		e.LeadID, e.DueAt.Format("2006-01-02"),
	)
	return n.deliver(ctx, "Lead needs human review", body)
}

func (n *Notifier) onLeadLost(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadLost)
	if !ok {
		return nil
	}

	body := fmt.Sprintf(
		"Lead %s finished nurturing below the threshold (final score %d) and was marked lost.",
		e.LeadID, e.FinalScore,
	)
	return n.deliver(ctx, "Lead lost after nurturing", body)
}

func (n *Notifier) onWorkflowRunCompleted(ctx context.Context, event events.Event) error {
	e, ok := event.(events.WorkflowRunCompleted)
	if !ok {
		return nil
	}

	body := fmt.Sprintf(
		"Workflow run at %s:\n\nidentified: %d\nadded: %d\nupgraded: %d\nremained: %d\ncompleted: %d",
		e.RanAt.Format("2006-01-02 15:04"), e.Identified, e.Added, e.Upgraded, e.Remained, e.Completed,
	)
	return n.deliver(ctx, "Nurturing workflow run completed", body)
}

func (n *Notifier) deliver(ctx context.Context, subject, body string) error {
	if n.operator == "" {
		return nil
	}
	if err := n.sender.Send(ctx, n.operator, subject, body); err != nil {
		n.log.Warn("operator notification failed", "subject", subject, "error", err)
	}
	return nil
}
