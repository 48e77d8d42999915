package agent

import (
	"context"
	"fmt"
	"time"

	"nurture_backend/internal/nurturing/ports"
)

// OfflineScorer is a deterministic heuristic scorer used when no LLM API key
// is configured. It derives a score from recent engagement signals so the
// workflow stays runnable in development environments.
type OfflineScorer struct {
	reader InteractionReader
	now    func() time.Time
}

func NewOfflineScorer(reader InteractionReader) *OfflineScorer {
	return &OfflineScorer{reader: reader, now: time.Now}
}

func (s *OfflineScorer) ScoreLead(ctx context.Context, profile ports.LeadProfile, timeframeDays int) (ports.ScoreResult, error) {
	if timeframeDays <= 0 {
		timeframeDays = defaultLookbackDays
	}
	since := s.now().UTC().AddDate(0, 0, -timeframeDays)

	emails, err := s.reader.EmailStatsSince(ctx, profile.ID, since)
	if err != nil {
		return ports.ScoreResult{}, fmt.Errorf("offline scorer: email stats: %w", err)
	}
	calls, err := s.reader.CallStatsSince(ctx, profile.ID, since)
	if err != nil {
		return ports.ScoreResult{}, fmt.Errorf("offline scorer: call stats: %w", err)
	}
	meetings, err := s.reader.MeetingStatsSince(ctx, profile.ID, since)
	if err != nil {
		return ports.ScoreResult{}, fmt.Errorf("offline scorer: meeting stats: %w", err)
	}

	score := profile.CurrentScore
	factors := make([]string, 0, 4)

	if emails.Replied > 0 {
		score += 8 * emails.Replied
		factors = append(factors, fmt.Sprintf("%d email replies", emails.Replied))
	} else if emails.Opened > 0 {
		score += 2 * emails.Opened
		factors = append(factors, fmt.Sprintf("%d email opens", emails.Opened))
	}
	if calls.Completed > 0 {
		score += 10 * calls.Completed
		factors = append(factors, fmt.Sprintf("%d completed calls", calls.Completed))
	}
	if meetings.Attended > 0 {
		score += 15 * meetings.Attended
		factors = append(factors, fmt.Sprintf("%d attended meetings", meetings.Attended))
	}
	if emails.Sent == 0 && calls.Total == 0 && meetings.Scheduled == 0 {
		score -= 5
		factors = append(factors, "no engagement in window")
	}

	score = clamp(score, 0, 100)
	return ports.ScoreResult{
		Score:                 score,
		ConversionProbability: score,
		Factors:               factors,
		Recommendations:       []string{"continue nurturing sequence"},
		Analysis:              "heuristic score derived from engagement counts",
	}, nil
}

// OfflineComposer reports content as unavailable, which makes the workflow
// engine fall back to the static templates.
type OfflineComposer struct{}

func (OfflineComposer) ComposeEmail(ctx context.Context, profile ports.LeadProfile, templateType string, cycle int) (ports.EmailContent, error) {
	return ports.EmailContent{}, ports.ErrContentUnavailable
}

func clamp(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
