package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CampaignLead is the campaign-lead association row. The workflow state is
// stored as jsonb but is always decoded into and validated through
// NurtureState before use.
type CampaignLead struct {
	ID         uuid.UUID
	CampaignID uuid.UUID
	LeadID     uuid.UUID
	Status     AssociationStatus
	State      NurtureState
	Version    int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type EnrollParams struct {
	CampaignID uuid.UUID
	LeadID     uuid.UUID
	Status     AssociationStatus
	State      NurtureState
}

type UpdateStateParams struct {
	ID      uuid.UUID
	Version int
	Status  AssociationStatus
	State   NurtureState
}

type ListAssociationsParams struct {
	CampaignID uuid.UUID
	Status     *AssociationStatus
	Stage      *Stage
	Cycle      *int
	Limit      int
	Offset     int
}

// WorkflowStats aggregates association counts for the stats endpoint.
type WorkflowStats struct {
	Total              int
	Active             int
	Graduated          int
	ManuallyUpgraded   int
	HumanReview        int
	Lost               int
	AvgCyclesToUpgrade *float64
}

const associationColumns = `id, campaign_id, lead_id, status, metadata, version, created_at, updated_at`

func scanAssociation(row pgx.Row) (CampaignLead, error) {
	var cl CampaignLead
	var metadata []byte
	err := row.Scan(
		&cl.ID, &cl.CampaignID, &cl.LeadID, &cl.Status,
		&metadata, &cl.Version, &cl.CreatedAt, &cl.UpdatedAt,
	)
	if err != nil {
		return CampaignLead{}, err
	}
	if err := json.Unmarshal(metadata, &cl.State); err != nil {
		return CampaignLead{}, fmt.Errorf("decode association state: %w", err)
	}
	if err := cl.State.Validate(); err != nil {
		return CampaignLead{}, fmt.Errorf("association %s has invalid state: %w", cl.ID, err)
	}
	return cl, nil
}

// Enroll inserts a new association. The unique constraint on
// (campaign_id, lead_id) makes enrollment idempotent across runs.
func (r *Repository) Enroll(ctx context.Context, params EnrollParams) (CampaignLead, error) {
	if err := params.State.Validate(); err != nil {
		return CampaignLead{}, err
	}
	state, err := json.Marshal(params.State)
	if err != nil {
		return CampaignLead{}, fmt.Errorf("encode association state: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO campaign_leads (campaign_id, lead_id, status, metadata)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (campaign_id, lead_id) DO NOTHING
		RETURNING `+associationColumns,
		params.CampaignID, params.LeadID, params.Status, state,
	)
	cl, err := scanAssociation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return CampaignLead{}, ErrAlreadyEnrolled
	}
	return cl, err
}

func (r *Repository) GetAssociation(ctx context.Context, campaignID, leadID uuid.UUID) (CampaignLead, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+associationColumns+` FROM campaign_leads WHERE campaign_id = $1 AND lead_id = $2`,
		campaignID, leadID,
	)
	cl, err := scanAssociation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return CampaignLead{}, ErrNotFound
	}
	return cl, err
}

func (r *Repository) GetAssociationByID(ctx context.Context, id uuid.UUID) (CampaignLead, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+associationColumns+` FROM campaign_leads WHERE id = $1`, id)
	cl, err := scanAssociation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return CampaignLead{}, ErrNotFound
	}
	return cl, err
}

// UpdateState performs a compare-and-swap on the association version. A stale
// version means another worker already advanced this lead; callers skip the
// lead rather than overwrite newer state.
func (r *Repository) UpdateState(ctx context.Context, params UpdateStateParams) (CampaignLead, error) {
	if err := params.State.Validate(); err != nil {
		return CampaignLead{}, err
	}
	state, err := json.Marshal(params.State)
	if err != nil {
		return CampaignLead{}, fmt.Errorf("encode association state: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE campaign_leads
		SET status = $3, metadata = $4, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2
		RETURNING `+associationColumns,
		params.ID, params.Version, params.Status, state,
	)
	cl, err := scanAssociation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if checkErr := r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM campaign_leads WHERE id = $1)`, params.ID,
		).Scan(&exists); checkErr != nil {
			return CampaignLead{}, checkErr
		}
		if !exists {
			return CampaignLead{}, ErrNotFound
		}
		return CampaignLead{}, ErrStaleVersion
	}
	return cl, err
}

// ListDueForScoring returns active associations whose next scoring date has
// passed. Terminal stages never carry a due scoring date, but the status
// filter keeps them out regardless.
func (r *Repository) ListDueForScoring(ctx context.Context, campaignID uuid.UUID, now time.Time) ([]CampaignLead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+associationColumns+`
		FROM campaign_leads
		WHERE campaign_id = $1
		  AND status IN ('added', 'contacted', 'responded')
		  AND metadata->>'workflow_stage' IN ('initial', 'nurturing')
		  AND (metadata->>'next_scoring_date')::timestamptz <= $2
		ORDER BY (metadata->>'next_scoring_date')::timestamptz ASC
	`, campaignID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAssociations(rows)
}

func (r *Repository) ListAssociations(ctx context.Context, params ListAssociationsParams) ([]CampaignLead, int, error) {
	where := []string{"campaign_id = $1"}
	args := []interface{}{params.CampaignID}
	addFilter := func(clause string, value interface{}) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if params.Status != nil {
		addFilter("status = $%d", *params.Status)
	}
	if params.Stage != nil {
		addFilter("metadata->>'workflow_stage' = $%d", string(*params.Stage))
	}
	if params.Cycle != nil {
		addFilter("(metadata->>'nurturing_cycle')::int = $%d", *params.Cycle)
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM campaign_leads WHERE `+whereClause, args...,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	args = append(args, limit, params.Offset)
	query := fmt.Sprintf(
		`SELECT `+associationColumns+` FROM campaign_leads WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		whereClause, len(args)-1, len(args),
	)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	associations, err := collectAssociations(rows)
	if err != nil {
		return nil, 0, err
	}
	return associations, total, nil
}

// Stats computes aggregate workflow counts in a single query.
func (r *Repository) Stats(ctx context.Context, campaignID uuid.UUID) (WorkflowStats, error) {
	var stats WorkflowStats
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE metadata->>'workflow_stage' IN ('initial', 'nurturing')),
			COUNT(*) FILTER (WHERE metadata->>'workflow_stage' = 'graduated'),
			COUNT(*) FILTER (WHERE metadata->>'workflow_stage' = 'manually_upgraded'),
			COUNT(*) FILTER (WHERE metadata->>'workflow_stage' = 'human_review'),
			COUNT(*) FILTER (WHERE metadata->>'workflow_stage' = 'lost'),
			AVG((metadata->>'nurturing_cycle')::int) FILTER (WHERE metadata->>'workflow_stage' = 'graduated')
		FROM campaign_leads
		WHERE campaign_id = $1
	`, campaignID).Scan(
		&stats.Total, &stats.Active, &stats.Graduated, &stats.ManuallyUpgraded,
		&stats.HumanReview, &stats.Lost, &stats.AvgCyclesToUpgrade,
	)
	return stats, err
}

func collectAssociations(rows pgx.Rows) ([]CampaignLead, error) {
	associations := make([]CampaignLead, 0)
	for rows.Next() {
		cl, err := scanAssociation(rows)
		if err != nil {
			return nil, err
		}
		associations = append(associations, cl)
	}
	return associations, rows.Err()
}
