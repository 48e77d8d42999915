package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EmailStats summarizes email traffic with a lead inside a window.
type EmailStats struct {
	Sent     int
	Opened   int
	Replied  int
	LastSent *time.Time
}

// CallStats summarizes calls with a lead inside a window.
type CallStats struct {
	Total            int
	Completed        int
	TotalDurationSec int
	LastCall         *time.Time
}

// SMSStats summarizes SMS traffic with a lead inside a window.
type SMSStats struct {
	Sent    int
	Replied int
}

// MeetingStats summarizes meetings with a lead inside a window.
type MeetingStats struct {
	Scheduled int
	Attended  int
}

// Note is a free-form annotation on a lead.
type Note struct {
	ID        uuid.UUID
	LeadID    uuid.UUID
	Body      string
	Author    *string
	CreatedAt time.Time
}

func (r *Repository) EmailStatsSince(ctx context.Context, leadID uuid.UUID, since time.Time) (EmailStats, error) {
	var stats EmailStats
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE opened_at IS NOT NULL),
			COUNT(*) FILTER (WHERE replied_at IS NOT NULL),
			MAX(sent_at)
		FROM emails
		WHERE lead_id = $1 AND sent_at >= $2
	`, leadID, since).Scan(&stats.Sent, &stats.Opened, &stats.Replied, &stats.LastSent)
	return stats, err
}

func (r *Repository) CallStatsSince(ctx context.Context, leadID uuid.UUID, since time.Time) (CallStats, error) {
	var stats CallStats
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COALESCE(SUM(duration_seconds), 0),
			MAX(occurred_at)
		FROM calls
		WHERE lead_id = $1 AND occurred_at >= $2
	`, leadID, since).Scan(&stats.Total, &stats.Completed, &stats.TotalDurationSec, &stats.LastCall)
	return stats, err
}

func (r *Repository) SMSStatsSince(ctx context.Context, leadID uuid.UUID, since time.Time) (SMSStats, error) {
	var stats SMSStats
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE replied_at IS NOT NULL)
		FROM sms
		WHERE lead_id = $1 AND sent_at >= $2
	`, leadID, since).Scan(&stats.Sent, &stats.Replied)
	return stats, err
}

func (r *Repository) MeetingStatsSince(ctx context.Context, leadID uuid.UUID, since time.Time) (MeetingStats, error) {
	var stats MeetingStats
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'attended')
		FROM meetings
		WHERE lead_id = $1 AND scheduled_at >= $2
	`, leadID, since).Scan(&stats.Scheduled, &stats.Attended)
	return stats, err
}

func (r *Repository) ListNotesSince(ctx context.Context, leadID uuid.UUID, since time.Time) ([]Note, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, body, author, created_at
		FROM notes
		WHERE lead_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
	`, leadID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := make([]Note, 0)
	for rows.Next() {
		var note Note
		if err := rows.Scan(&note.ID, &note.LeadID, &note.Body, &note.Author, &note.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

func (r *Repository) CountActivitiesSince(ctx context.Context, leadID uuid.UUID, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM activities WHERE lead_id = $1 AND occurred_at >= $2
	`, leadID, since).Scan(&count)
	return count, err
}

func (r *Repository) AddNote(ctx context.Context, leadID uuid.UUID, body string, author *string) (Note, error) {
	var note Note
	err := r.pool.QueryRow(ctx, `
		INSERT INTO notes (lead_id, body, author)
		VALUES ($1, $2, $3)
		RETURNING id, lead_id, body, author, created_at
	`, leadID, body, author).Scan(&note.ID, &note.LeadID, &note.Body, &note.Author, &note.CreatedAt)
	return note, err
}
