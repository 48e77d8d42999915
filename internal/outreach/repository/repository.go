// Package repository persists the outreach artifacts the nurturing workflow
// produces: scheduled emails awaiting delivery and follow-up tasks for
// operators.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type ScheduledEmail struct {
	ID          uuid.UUID
	LeadID      uuid.UUID
	Subject     string
	Body        string
	ScheduledAt time.Time
	Status      string
	Metadata    map[string]interface{}
	CreatedAt   time.Time
}

type CreateScheduledEmailParams struct {
	LeadID      uuid.UUID
	Subject     string
	Body        string
	ScheduledAt time.Time
	Metadata    map[string]interface{}
}

type Task struct {
	ID          uuid.UUID
	LeadID      uuid.UUID
	Title       string
	Description string
	Type        string
	Priority    string
	Status      string
	DueAt       time.Time
	Metadata    map[string]interface{}
	CreatedAt   time.Time
}

type CreateTaskParams struct {
	LeadID      uuid.UUID
	Title       string
	Description string
	Type        string
	Priority    string
	DueAt       time.Time
	Metadata    map[string]interface{}
}

func (r *Repository) CreateScheduledEmail(ctx context.Context, params CreateScheduledEmailParams) (ScheduledEmail, error) {
	metadata, err := marshalMetadata(params.Metadata)
	if err != nil {
		return ScheduledEmail{}, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO scheduled_emails (lead_id, subject, body, scheduled_at, status, metadata)
		VALUES ($1, $2, $3, $4, 'pending', $5)
		RETURNING id, lead_id, subject, body, scheduled_at, status, metadata, created_at
	`, params.LeadID, params.Subject, params.Body, params.ScheduledAt, metadata)
	return scanScheduledEmail(row)
}

func (r *Repository) CreateTask(ctx context.Context, params CreateTaskParams) (Task, error) {
	metadata, err := marshalMetadata(params.Metadata)
	if err != nil {
		return Task{}, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO tasks (lead_id, title, description, type, priority, status, due_at, metadata)
		VALUES ($1, $2, $3, $4, $5, 'open', $6, $7)
		RETURNING id, lead_id, title, description, type, priority, status, due_at, metadata, created_at
	`, params.LeadID, params.Title, params.Description, params.Type, params.Priority, params.DueAt, metadata)
	return scanTask(row)
}

// ListPendingEmails returns emails due for delivery, oldest first.
func (r *Repository) ListPendingEmails(ctx context.Context, now time.Time, limit int) ([]ScheduledEmail, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, subject, body, scheduled_at, status, metadata, created_at
		FROM scheduled_emails
		WHERE status = 'pending' AND scheduled_at <= $1
		ORDER BY scheduled_at ASC
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	emails := make([]ScheduledEmail, 0)
	for rows.Next() {
		email, err := scanScheduledEmail(rows)
		if err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}

// MarkEmailSent records a successful delivery.
func (r *Repository) MarkEmailSent(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE scheduled_emails SET status = 'sent' WHERE id = $1`, id)
	return err
}

// MarkEmailFailed records a delivery failure with the error message.
func (r *Repository) MarkEmailFailed(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE scheduled_emails
		SET status = 'failed',
			metadata = COALESCE(metadata, '{}'::jsonb) || jsonb_build_object('failure_reason', $2::text)
		WHERE id = $1
	`, id, reason)
	return err
}

func scanScheduledEmail(row pgx.Row) (ScheduledEmail, error) {
	var email ScheduledEmail
	var metadata []byte
	err := row.Scan(
		&email.ID, &email.LeadID, &email.Subject, &email.Body,
		&email.ScheduledAt, &email.Status, &metadata, &email.CreatedAt,
	)
	if err != nil {
		return ScheduledEmail{}, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &email.Metadata); err != nil {
			return ScheduledEmail{}, fmt.Errorf("decode scheduled email metadata: %w", err)
		}
	}
	return email, nil
}

func scanTask(row pgx.Row) (Task, error) {
	var task Task
	var metadata []byte
	err := row.Scan(
		&task.ID, &task.LeadID, &task.Title, &task.Description, &task.Type,
		&task.Priority, &task.Status, &task.DueAt, &metadata, &task.CreatedAt,
	)
	if err != nil {
		return Task{}, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &task.Metadata); err != nil {
			return Task{}, fmt.Errorf("decode task metadata: %w", err)
		}
	}
	return task, nil
}

func marshalMetadata(metadata map[string]interface{}) ([]byte, error) {
	if metadata == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return data, nil
}
