// Package service implements campaign read operations and the nurturing
// campaign lookup used by the workflow engine.
package service

import (
	"context"
	"errors"
	"time"

	"nurture_backend/internal/campaigns/repository"
	"nurture_backend/platform/apperr"

	"github.com/google/uuid"
)

// NurturingCampaignName and NurturingCampaignType identify the singleton
// campaign all low probability leads are enrolled in.
const (
	NurturingCampaignName = "Low Probability Lead Nurturing"
	NurturingCampaignType = "nurturing"
)

// CampaignsRepository is the persistence surface the service depends on.
type CampaignsRepository interface {
	Create(ctx context.Context, params repository.CreateCampaignParams) (repository.Campaign, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Campaign, error)
	GetActiveByNameAndType(ctx context.Context, name, campaignType string) (repository.Campaign, error)
	List(ctx context.Context, limit, offset int) ([]repository.Campaign, int, error)
	MergeMetadata(ctx context.Context, id uuid.UUID, patch map[string]interface{}) error
}

type Service struct {
	repo CampaignsRepository
	now  func() time.Time
}

func New(repo CampaignsRepository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// EnsureNurturingCampaign returns the active nurturing campaign, creating it
// on first use. Reusing the existing campaign keeps enrollment idempotent
// across workflow runs.
func (s *Service) EnsureNurturingCampaign(ctx context.Context) (repository.Campaign, error) {
	campaign, err := s.repo.GetActiveByNameAndType(ctx, NurturingCampaignName, NurturingCampaignType)
	if err == nil {
		return campaign, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return repository.Campaign{}, apperr.Wrap(apperr.KindInternal, "failed to look up nurturing campaign", err)
	}

	start := s.now().UTC()
	campaign, err = s.repo.Create(ctx, repository.CreateCampaignParams{
		Name:      NurturingCampaignName,
		Status:    "active",
		Type:      NurturingCampaignType,
		StartDate: &start,
		Metadata: map[string]interface{}{
			"workflow": "low_probability",
		},
	})
	if err != nil {
		return repository.Campaign{}, apperr.Wrap(apperr.KindInternal, "failed to create nurturing campaign", err)
	}
	return campaign, nil
}

// RecordWorkflowRun stamps the campaign metadata with the completion time of
// the latest workflow run, surfaced by the stats endpoint as last_run.
func (s *Service) RecordWorkflowRun(ctx context.Context, id uuid.UUID, at time.Time) error {
	err := s.repo.MergeMetadata(ctx, id, map[string]interface{}{
		"last_run_at": at.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to record workflow run", err)
	}
	return nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (repository.Campaign, error) {
	campaign, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Campaign{}, apperr.NotFound("campaign not found")
	}
	if err != nil {
		return repository.Campaign{}, apperr.Wrap(apperr.KindInternal, "failed to load campaign", err)
	}
	return campaign, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]repository.Campaign, int, error) {
	campaigns, total, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "failed to list campaigns", err)
	}
	return campaigns, total, nil
}
