// Package outreach adapts the outreach repository to the writer interface
// the nurturing workflow consumes.
package outreach

import (
	"context"

	"nurture_backend/internal/nurturing/ports"
	"nurture_backend/internal/outreach/repository"
)

// WorkflowTag marks outreach rows produced by the low probability workflow
// so they can be filtered in reporting.
const WorkflowTag = "low_probability"

// Store is the persistence surface the writer needs.
type Store interface {
	CreateScheduledEmail(ctx context.Context, params repository.CreateScheduledEmailParams) (repository.ScheduledEmail, error)
	CreateTask(ctx context.Context, params repository.CreateTaskParams) (repository.Task, error)
}

// Writer implements ports.OutreachWriter over the outreach repository.
type Writer struct {
	repo Store
}

func NewWriter(repo Store) *Writer {
	return &Writer{repo: repo}
}

// ScheduleEmail writes a pending outreach email. The step label is the
// template category the content was generated from.
func (w *Writer) ScheduleEmail(ctx context.Context, params ports.ScheduleEmailParams) error {
	_, err := w.repo.CreateScheduledEmail(ctx, repository.CreateScheduledEmailParams{
		LeadID:      params.LeadID,
		Subject:     params.Subject,
		Body:        params.Body,
		ScheduledAt: params.SendAt,
		Metadata: map[string]interface{}{
			"workflow":        WorkflowTag,
			"nurturing_cycle": params.Cycle,
			"step":            params.TemplateType,
			"ai_generated":    params.AIGenerated,
		},
	})
	return err
}

func (w *Writer) CreateTask(ctx context.Context, params ports.CreateTaskParams) error {
	_, err := w.repo.CreateTask(ctx, repository.CreateTaskParams{
		LeadID:      params.LeadID,
		Title:       params.Title,
		Description: params.Description,
		Type:        params.Type,
		Priority:    params.Priority,
		DueAt:       params.DueAt,
		Metadata: map[string]interface{}{
			"workflow":        WorkflowTag,
			"nurturing_cycle": params.Cycle,
		},
	})
	return err
}
