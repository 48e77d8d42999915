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
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Lead struct {
	ID           uuid.UUID
	FirstName    string
	LastName     string
	Email        *string
	Phone        *string
	Company      *string
	Industry     *string
	JobTitle     *string
	Source       *string
	Status       string
	LeadScore    int
	CustomFields map[string]interface{}
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName joins the contact name parts for display and prompting.
func (l Lead) FullName() string {
	return strings.TrimSpace(l.FirstName + " " + l.LastName)
}

type CreateLeadParams struct {
	FirstName    string
	LastName     string
	Email        *string
	Phone        *string
	Company      *string
	Industry     *string
	JobTitle     *string
	Source       *string
	Status       string
	LeadScore    int
	CustomFields map[string]interface{}
}

type UpdateLeadParams struct {
	FirstName    *string
	LastName     *string
	Email        *string
	Phone        *string
	Company      *string
	Industry     *string
	JobTitle     *string
	Source       *string
	Status       *string
	CustomFields map[string]interface{}
}

type ListParams struct {
	Status   *string
	MaxScore *int
	Search   *string
	Limit    int
	Offset   int
}

const leadColumns = `id, first_name, last_name, email, phone, company, industry, job_title,
	source, status, lead_score, custom_fields, created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var lead Lead
	var customFields []byte
	err := row.Scan(
		&lead.ID, &lead.FirstName, &lead.LastName, &lead.Email, &lead.Phone,
		&lead.Company, &lead.Industry, &lead.JobTitle, &lead.Source, &lead.Status,
		&lead.LeadScore, &customFields, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return Lead{}, err
	}
	if len(customFields) > 0 {
		if err := json.Unmarshal(customFields, &lead.CustomFields); err != nil {
			return Lead{}, fmt.Errorf("decode custom_fields: %w", err)
		}
	}
	return lead, nil
}

func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	customFields, err := marshalCustomFields(params.CustomFields)
	if err != nil {
		return Lead{}, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (
			first_name, last_name, email, phone, company, industry, job_title,
			source, status, lead_score, custom_fields
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+leadColumns,
		params.FirstName, params.LastName, params.Email, params.Phone, params.Company,
		params.Industry, params.JobTitle, params.Source, params.Status, params.LeadScore,
		customFields,
	)
	return scanLead(row)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, params UpdateLeadParams) (Lead, error) {
	sets := make([]string, 0, 10)
	args := make([]interface{}, 0, 11)
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.FirstName != nil {
		add("first_name", *params.FirstName)
	}
	if params.LastName != nil {
		add("last_name", *params.LastName)
	}
	if params.Email != nil {
		add("email", *params.Email)
	}
	if params.Phone != nil {
		add("phone", *params.Phone)
	}
	if params.Company != nil {
		add("company", *params.Company)
	}
	if params.Industry != nil {
		add("industry", *params.Industry)
	}
	if params.JobTitle != nil {
		add("job_title", *params.JobTitle)
	}
	if params.Source != nil {
		add("source", *params.Source)
	}
	if params.Status != nil {
		add("status", *params.Status)
	}
	if params.CustomFields != nil {
		customFields, err := marshalCustomFields(params.CustomFields)
		if err != nil {
			return Lead{}, err
		}
		add("custom_fields", customFields)
	}

	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}

	sets = append(sets, "updated_at = now()")
	args = append(args, id)
	query := fmt.Sprintf(
		`UPDATE leads SET %s WHERE id = $%d RETURNING `+leadColumns,
		strings.Join(sets, ", "), len(args),
	)

	lead, err := scanLead(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]Lead, int, error) {
	where := []string{"TRUE"}
	args := []interface{}{}
	addFilter := func(clause string, value interface{}) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if params.Status != nil {
		addFilter("status = $%d", *params.Status)
	}
	if params.MaxScore != nil {
		addFilter("lead_score <= $%d", *params.MaxScore)
	}
	if params.Search != nil && strings.TrimSpace(*params.Search) != "" {
		args = append(args, strings.TrimSpace(*params.Search))
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(first_name ILIKE '%%' || $%d || '%%' OR last_name ILIKE '%%' || $%d || '%%' OR company ILIKE '%%' || $%d || '%%')",
			n, n, n,
		))
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leads WHERE `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	args = append(args, limit, params.Offset)
	query := fmt.Sprintf(
		`SELECT `+leadColumns+` FROM leads WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		whereClause, len(args)-1, len(args),
	)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, err
		}
		leads = append(leads, lead)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}

	return leads, total, nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateScore persists a freshly computed lead score. The score is written
// unconditionally; trend bookkeeping lives on the campaign association.
func (r *Repository) UpdateScore(ctx context.Context, id uuid.UUID, score int) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE leads SET lead_score = $2, updated_at = now() WHERE id = $1`, id, score)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkLost forces the lead status to lost and records the reason in
// custom_fields.lost_reason.
func (r *Repository) MarkLost(ctx context.Context, id uuid.UUID, reason string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET status = 'lost',
			custom_fields = COALESCE(custom_fields, '{}'::jsonb) || jsonb_build_object('lost_reason', $2::text),
			updated_at = now()
		WHERE id = $1
	`, id, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// LowProbabilityQuery filters candidates for the nurturing workflow.
type LowProbabilityQuery struct {
	MaxScore                int
	MinDaysSinceLastContact int
	ExcludeCampaignIDs      []uuid.UUID
}

// ListLowProbabilityIDs returns leads with a score at or below MaxScore that
// are neither won nor lost, and that either have no recorded contact or whose
// most recent contact across emails, calls, sms, and meetings is older than
// the contact window. Leads already associated (in any status) with one of the
// excluded campaigns are filtered out.
func (r *Repository) ListLowProbabilityIDs(ctx context.Context, q LowProbabilityQuery) ([]uuid.UUID, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -q.MinDaysSinceLastContact)

	rows, err := r.pool.Query(ctx, `
		SELECT l.id
		FROM leads l
		LEFT JOIN LATERAL (
			SELECT MAX(contacted_at) AS last_contact FROM (
				SELECT MAX(sent_at) AS contacted_at FROM emails WHERE lead_id = l.id
				UNION ALL
				SELECT MAX(occurred_at) FROM calls WHERE lead_id = l.id
				UNION ALL
				SELECT MAX(sent_at) FROM sms WHERE lead_id = l.id
				UNION ALL
				SELECT MAX(scheduled_at) FROM meetings WHERE lead_id = l.id
			) c
		) lc ON TRUE
		WHERE l.lead_score <= $1
		  AND l.status NOT IN ('won', 'lost')
		  AND (lc.last_contact IS NULL OR lc.last_contact <= $2)
		  AND NOT EXISTS (
			SELECT 1 FROM campaign_leads cl
			WHERE cl.lead_id = l.id AND cl.campaign_id = ANY($3)
		  )
		ORDER BY l.lead_score ASC, l.created_at ASC
	`, q.MaxScore, cutoff, q.ExcludeCampaignIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func marshalCustomFields(fields map[string]interface{}) ([]byte, error) {
	if fields == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode custom_fields: %w", err)
	}
	return data, nil
}
