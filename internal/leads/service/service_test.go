package service

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"nurture_backend/internal/events"
	"nurture_backend/internal/leads/repository"
	"nurture_backend/internal/leads/transport"
	"nurture_backend/platform/apperr"
)

type fakeRepo struct {
	created repository.CreateLeadParams
	leads   map[uuid.UUID]repository.Lead
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{leads: make(map[uuid.UUID]repository.Lead)}
}

func (f *fakeRepo) Create(ctx context.Context, params repository.CreateLeadParams) (repository.Lead, error) {
	f.created = params
	lead := repository.Lead{
		ID:        uuid.New(),
		FirstName: params.FirstName,
		LastName:  params.LastName,
		Email:     params.Email,
		Phone:     params.Phone,
		Status:    params.Status,
		LeadScore: params.LeadScore,
	}
	f.leads[lead.ID] = lead
	return lead, nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (f *fakeRepo) Update(ctx context.Context, id uuid.UUID, params repository.UpdateLeadParams) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	if params.Status != nil {
		lead.Status = *params.Status
	}
	f.leads[id] = lead
	return lead, nil
}

func (f *fakeRepo) List(ctx context.Context, params repository.ListParams) ([]repository.Lead, int, error) {
	return nil, 0, nil
}

func (f *fakeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.leads[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.leads, id)
	return nil
}

func (f *fakeRepo) AddNote(ctx context.Context, leadID uuid.UUID, body string, author *string) (repository.Note, error) {
	return repository.Note{ID: uuid.New(), LeadID: leadID, Body: body, Author: author}, nil
}

type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(ctx context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.published = append(b.published, event)
	return nil
}

func (b *recordingBus) Subscribe(eventName string, handler events.Handler) {}

func TestCreateNormalizesAndPublishes(t *testing.T) {
	repo := newFakeRepo()
	bus := &recordingBus{}
	svc := New(repo, bus)

	lead, err := svc.Create(context.Background(), transport.CreateLeadRequest{
		FirstName: "  Taylor ",
		LastName:  "Reed",
		Email:     "taylor@example.com",
		Phone:     "(415) 555-2671",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if repo.created.FirstName != "Taylor" {
		t.Fatalf("first name not trimmed, got %q", repo.created.FirstName)
	}
	if repo.created.Phone == nil || *repo.created.Phone != "+14155552671" {
		t.Fatalf("phone not normalized, got %v", repo.created.Phone)
	}
	if lead.Status != string(transport.LeadStatusNew) {
		t.Fatalf("expected new status, got %q", lead.Status)
	}

	if len(bus.published) != 1 {
		t.Fatalf("expected 1 event, got %d", len(bus.published))
	}
	created, ok := bus.published[0].(events.LeadCreated)
	if !ok {
		t.Fatalf("expected LeadCreated event, got %T", bus.published[0])
	}
	if created.LeadID != lead.ID {
		t.Fatalf("event lead id mismatch")
	}
}

func TestGetByIDNotFound(t *testing.T) {
	svc := New(newFakeRepo(), &recordingBus{})

	_, err := svc.GetByID(context.Background(), uuid.New())
	if err == nil {
		t.Fatal("expected error for unknown lead")
	}
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected not found kind, got %v", apperr.GetKind(err))
	}
}
