package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound        = errors.New("campaign not found")
	ErrAlreadyEnrolled = errors.New("lead already enrolled in campaign")
	ErrStaleVersion    = errors.New("association modified concurrently")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Campaign struct {
	ID        uuid.UUID
	Name      string
	Status    string
	Type      string
	StartDate *time.Time
	EndDate   *time.Time
	Metadata  map[string]interface{}
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CreateCampaignParams struct {
	Name      string
	Status    string
	Type      string
	StartDate *time.Time
	Metadata  map[string]interface{}
}

const campaignColumns = `id, name, status, type, start_date, end_date, metadata, created_at, updated_at`

func scanCampaign(row pgx.Row) (Campaign, error) {
	var c Campaign
	var metadata []byte
	err := row.Scan(
		&c.ID, &c.Name, &c.Status, &c.Type, &c.StartDate, &c.EndDate,
		&metadata, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return Campaign{}, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &c.Metadata); err != nil {
			return Campaign{}, fmt.Errorf("decode campaign metadata: %w", err)
		}
	}
	return c, nil
}

func (r *Repository) Create(ctx context.Context, params CreateCampaignParams) (Campaign, error) {
	metadata, err := marshalMetadata(params.Metadata)
	if err != nil {
		return Campaign{}, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO campaigns (name, status, type, start_date, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+campaignColumns,
		params.Name, params.Status, params.Type, params.StartDate, metadata,
	)
	return scanCampaign(row)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Campaign, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id)
	campaign, err := scanCampaign(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Campaign{}, ErrNotFound
	}
	return campaign, err
}

// GetActiveByNameAndType looks up the singleton campaign used by the
// nurturing workflow. Oldest wins if duplicates ever appear.
func (r *Repository) GetActiveByNameAndType(ctx context.Context, name, campaignType string) (Campaign, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+campaignColumns+`
		FROM campaigns
		WHERE name = $1 AND type = $2 AND status = 'active'
		ORDER BY created_at ASC
		LIMIT 1
	`, name, campaignType)
	campaign, err := scanCampaign(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Campaign{}, ErrNotFound
	}
	return campaign, err
}

func (r *Repository) List(ctx context.Context, limit, offset int) ([]Campaign, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM campaigns`).Scan(&total); err != nil {
		return nil, 0, err
	}

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+campaignColumns+` FROM campaigns ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	campaigns := make([]Campaign, 0)
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, campaign)
	}
	return campaigns, total, rows.Err()
}

// MergeMetadata shallow-merges the given keys into the campaign metadata.
func (r *Repository) MergeMetadata(ctx context.Context, id uuid.UUID, patch map[string]interface{}) error {
	data, err := marshalMetadata(patch)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE campaigns
		SET metadata = COALESCE(metadata, '{}'::jsonb) || $2::jsonb,
			updated_at = now()
		WHERE id = $1
	`, id, data)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func marshalMetadata(metadata map[string]interface{}) ([]byte, error) {
	if metadata == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("encode campaign metadata: %w", err)
	}
	return data, nil
}
