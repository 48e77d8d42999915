// Package ports defines the interfaces and value types the nurturing
// workflow engine depends on, so the AI agents and outreach writers can be
// swapped for fakes in tests.
package ports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrContentUnavailable signals that AI content generation is not available
// and the caller should use static fallback copy without treating it as a
// failure.
var ErrContentUnavailable = errors.New("ai content generation unavailable")

// LeadProfile is the lead snapshot handed to the AI agents. It carries only
// what the prompts need.
type LeadProfile struct {
	ID           uuid.UUID
	Name         string
	Email        string
	Company      string
	Industry     string
	JobTitle     string
	Source       string
	Status       string
	CurrentScore int
	CreatedAt    time.Time
}

// ScoreResult is the structured outcome of one scoring call.
type ScoreResult struct {
	Score                 int      `json:"lead_score"`
	ConversionProbability int      `json:"conversion_probability"`
	Factors               []string `json:"factors"`
	Recommendations       []string `json:"recommendations"`
	Analysis              string   `json:"analysis"`
}

// Scorer evaluates conversion probability on a 0-100 scale. The timeframe
// bounds the engagement history considered, in days.
type Scorer interface {
	ScoreLead(ctx context.Context, profile LeadProfile, timeframeDays int) (ScoreResult, error)
}

// EmailContent is one personalized outreach email. AIGenerated is false when
// the content came from a static fallback template.
type EmailContent struct {
	Subject     string
	Body        string
	AIGenerated bool
}

// Composer generates personalized email content for a sequence step.
type Composer interface {
	ComposeEmail(ctx context.Context, profile LeadProfile, templateType string, cycle int) (EmailContent, error)
}

type ScheduleEmailParams struct {
	LeadID       uuid.UUID
	Subject      string
	Body         string
	SendAt       time.Time
	Cycle        int
	TemplateType string
	AIGenerated  bool
}

type CreateTaskParams struct {
	LeadID      uuid.UUID
	Title       string
	Description string
	Type        string
	Priority    string
	DueAt       time.Time
	Cycle       int
}

// OutreachWriter persists the emails and tasks a nurturing cycle produces.
type OutreachWriter interface {
	ScheduleEmail(ctx context.Context, params ScheduleEmailParams) error
	CreateTask(ctx context.Context, params CreateTaskParams) error
}

// UpstreamFormatError reports a model response that did not match the
// required output schema. The raw payload is kept for diagnostics.
type UpstreamFormatError struct {
	Agent string
	Raw   string
	Err   error
}

func (e *UpstreamFormatError) Error() string {
	return fmt.Sprintf("%s returned malformed output: %v", e.Agent, e.Err)
}

func (e *UpstreamFormatError) Unwrap() error { return e.Err }
