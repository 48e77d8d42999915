// Package service implements lead management use cases.
package service

import (
	"context"
	"errors"
	"strings"

	"nurture_backend/internal/events"
	"nurture_backend/internal/leads/repository"
	"nurture_backend/internal/leads/transport"
	"nurture_backend/platform/apperr"
	"nurture_backend/platform/phone"

	"github.com/google/uuid"
)

// LeadsRepository is the persistence surface the service depends on.
type LeadsRepository interface {
	Create(ctx context.Context, params repository.CreateLeadParams) (repository.Lead, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	Update(ctx context.Context, id uuid.UUID, params repository.UpdateLeadParams) (repository.Lead, error)
	List(ctx context.Context, params repository.ListParams) ([]repository.Lead, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AddNote(ctx context.Context, leadID uuid.UUID, body string, author *string) (repository.Note, error)
}

type Service struct {
	repo LeadsRepository
	bus  events.Bus
}

func New(repo LeadsRepository, bus events.Bus) *Service {
	return &Service{repo: repo, bus: bus}
}

func (s *Service) Create(ctx context.Context, req transport.CreateLeadRequest) (repository.Lead, error) {
	params := repository.CreateLeadParams{
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        optional(req.Email),
		Phone:        optionalPhone(req.Phone),
		Company:      optional(req.Company),
		Industry:     optional(req.Industry),
		JobTitle:     optional(req.JobTitle),
		Source:       optional(req.Source),
		Status:       string(transport.LeadStatusNew),
		CustomFields: req.CustomFields,
	}

	lead, err := s.repo.Create(ctx, params)
	if err != nil {
		return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "failed to create lead", err)
	}

	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		Email:     deref(lead.Email),
		Phone:     deref(lead.Phone),
		LeadScore: lead.LeadScore,
		Source:    deref(lead.Source),
	})

	return lead, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "failed to load lead", err)
	}
	return lead, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateLeadRequest) (repository.Lead, error) {
	params := repository.UpdateLeadParams{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Company:      req.Company,
		Industry:     req.Industry,
		JobTitle:     req.JobTitle,
		Source:       req.Source,
		CustomFields: req.CustomFields,
	}
	if req.Phone != nil {
		normalized := phone.NormalizeE164(*req.Phone)
		params.Phone = &normalized
	}
	if req.Status != nil {
		status := string(*req.Status)
		params.Status = &status
	}

	lead, err := s.repo.Update(ctx, id, params)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "failed to update lead", err)
	}
	return lead, nil
}

func (s *Service) List(ctx context.Context, params repository.ListParams) ([]repository.Lead, int, error) {
	leads, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "failed to list leads", err)
	}
	return leads, total, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("lead not found")
	}
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to delete lead", err)
	}
	return nil
}

func (s *Service) AddNote(ctx context.Context, leadID uuid.UUID, req transport.AddNoteRequest) (repository.Note, error) {
	if _, err := s.GetByID(ctx, leadID); err != nil {
		return repository.Note{}, err
	}

	note, err := s.repo.AddNote(ctx, leadID, strings.TrimSpace(req.Body), optional(req.Author))
	if err != nil {
		return repository.Note{}, apperr.Wrap(apperr.KindInternal, "failed to add note", err)
	}
	return note, nil
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func optionalPhone(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	normalized := phone.NormalizeE164(trimmed)
	return &normalized
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
