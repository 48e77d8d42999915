package outreach

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"nurture_backend/internal/nurturing/ports"
	"nurture_backend/internal/outreach/repository"
)

type fakeStore struct {
	emails []repository.CreateScheduledEmailParams
	tasks  []repository.CreateTaskParams
}

func (f *fakeStore) CreateScheduledEmail(ctx context.Context, params repository.CreateScheduledEmailParams) (repository.ScheduledEmail, error) {
	f.emails = append(f.emails, params)
	return repository.ScheduledEmail{ID: uuid.New()}, nil
}

func (f *fakeStore) CreateTask(ctx context.Context, params repository.CreateTaskParams) (repository.Task, error) {
	f.tasks = append(f.tasks, params)
	return repository.Task{ID: uuid.New()}, nil
}

func TestScheduleEmailMetadata(t *testing.T) {
	store := &fakeStore{}
	writer := NewWriter(store)

	err := writer.ScheduleEmail(context.Background(), ports.ScheduleEmailParams{
		LeadID:       uuid.New(),
		Subject:      "Quick thought",
		Body:         "Hi there",
		SendAt:       time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC),
		Cycle:        1,
		TemplateType: "pain_point",
		AIGenerated:  true,
	})
	if err != nil {
		t.Fatalf("schedule email: %v", err)
	}

	if len(store.emails) != 1 {
		t.Fatalf("expected 1 email, got %d", len(store.emails))
	}
	meta := store.emails[0].Metadata
	if meta["workflow"] != WorkflowTag {
		t.Fatalf("expected workflow tag %q, got %v", WorkflowTag, meta["workflow"])
	}
	if meta["step"] != "pain_point" {
		t.Fatalf("step must carry the template name, got %v", meta["step"])
	}
	if meta["nurturing_cycle"] != 1 {
		t.Fatalf("expected cycle 1, got %v", meta["nurturing_cycle"])
	}
	if meta["ai_generated"] != true {
		t.Fatalf("expected ai_generated true, got %v", meta["ai_generated"])
	}
}

func TestCreateTaskMetadata(t *testing.T) {
	store := &fakeStore{}
	writer := NewWriter(store)

	err := writer.CreateTask(context.Background(), ports.CreateTaskParams{
		LeadID:   uuid.New(),
		Title:    "Review nurturing progress",
		Type:     "review",
		Priority: "normal",
		DueAt:    time.Date(2026, 1, 22, 9, 0, 0, 0, time.UTC),
		Cycle:    0,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	if len(store.tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(store.tasks))
	}
	meta := store.tasks[0].Metadata
	if meta["workflow"] != WorkflowTag {
		t.Fatalf("expected workflow tag %q, got %v", WorkflowTag, meta["workflow"])
	}
	if meta["nurturing_cycle"] != 0 {
		t.Fatalf("expected cycle 0, got %v", meta["nurturing_cycle"])
	}
}
