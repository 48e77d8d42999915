package scheduler

import (
	"context"
	"time"

	"nurture_backend/internal/email"
	leadrepo "nurture_backend/internal/leads/repository"
	outreachrepo "nurture_backend/internal/outreach/repository"
	"nurture_backend/platform/logger"
)

// EmailDispatcher delivers due scheduled outreach emails. Leads without an
// email address are marked failed so they do not clog the pending queue.
type EmailDispatcher struct {
	outreach *outreachrepo.Repository
	leads    *leadrepo.Repository
	sender   email.Sender
	log      *logger.Logger
}

func NewEmailDispatcher(outreach *outreachrepo.Repository, leads *leadrepo.Repository, sender email.Sender, log *logger.Logger) *EmailDispatcher {
	return &EmailDispatcher{
		outreach: outreach,
		leads:    leads,
		sender:   sender,
		log:      log,
	}
}

func (d *EmailDispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		d.dispatchDue(ctx)
	}
}

func (d *EmailDispatcher) dispatchDue(ctx context.Context) {
	due, err := d.outreach.ListPendingEmails(ctx, time.Now().UTC(), 50)
	if err != nil {
		d.log.Warn("failed to list pending emails", "error", err)
		return
	}

	for _, item := range due {
		lead, err := d.leads.GetByID(ctx, item.LeadID)
		if err != nil {
			d.log.Warn("pending email references unknown lead", "email_id", item.ID, "lead_id", item.LeadID)
			_ = d.outreach.MarkEmailFailed(ctx, item.ID, "lead not found")
			continue
		}
		if lead.Email == nil || *lead.Email == "" {
			_ = d.outreach.MarkEmailFailed(ctx, item.ID, "lead has no email address")
			continue
		}

		if err := d.sender.Send(ctx, *lead.Email, item.Subject, item.Body); err != nil {
			d.log.Warn("outreach email delivery failed", "email_id", item.ID, "error", err)
			_ = d.outreach.MarkEmailFailed(ctx, item.ID, err.Error())
			continue
		}
		if err := d.outreach.MarkEmailSent(ctx, item.ID); err != nil {
			d.log.Warn("failed to mark email sent", "email_id", item.ID, "error", err)
		}
	}
}
