// Package agent implements the AI scoring and content generation agents for
// the nurturing workflow.
package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"nurture_backend/internal/leads/repository"
	"nurture_backend/internal/nurturing/ports"
	"nurture_backend/platform/ai/moonshot"
)

// defaultLookbackDays bounds the engagement history fed to the scorer when
// the caller does not supply a timeframe. Matches the rescoring interval.
const defaultLookbackDays = 14

// InteractionReader provides the engagement signals the scorer feeds to the
// model.
type InteractionReader interface {
	EmailStatsSince(ctx context.Context, leadID uuid.UUID, since time.Time) (repository.EmailStats, error)
	CallStatsSince(ctx context.Context, leadID uuid.UUID, since time.Time) (repository.CallStats, error)
	SMSStatsSince(ctx context.Context, leadID uuid.UUID, since time.Time) (repository.SMSStats, error)
	MeetingStatsSince(ctx context.Context, leadID uuid.UUID, since time.Time) (repository.MeetingStats, error)
	ListNotesSince(ctx context.Context, leadID uuid.UUID, since time.Time) ([]repository.Note, error)
}

// Scorer estimates lead conversion probability via the Kimi model.
type Scorer struct {
	runner         *runner.Runner
	sessionService session.Service
	appName        string
	reader         InteractionReader
	runMu          sync.Mutex
	now            func() time.Time
}

type ScorerConfig struct {
	APIKey            string
	Model             string
	RequestsPerMinute int
}

func NewScorer(cfg ScorerConfig, reader InteractionReader) (*Scorer, error) {
	kimi := moonshot.NewModel(moonshot.Config{
		APIKey:            cfg.APIKey,
		Model:             cfg.Model,
		RequestsPerMinute: cfg.RequestsPerMinute,
	})

	adkAgent, err := llmagent.New(llmagent.Config{
		Name:        "LeadScorer",
		Model:       kimi,
		Description: "Estimates lead conversion probability from profile and engagement data.",
		Instruction: scorerSystemPrompt(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create scorer agent: %w", err)
	}

	sessionService := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        "lead-scorer",
		Agent:          adkAgent,
		SessionService: sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create scorer runner: %w", err)
	}

	return &Scorer{
		runner:         r,
		sessionService: sessionService,
		appName:        "lead-scorer",
		reader:         reader,
		now:            time.Now,
	}, nil
}

// ScoreLead gathers engagement stats within the timeframe, prompts the
// model, and parses the structured result. A response that violates the
// output schema is reported as a ports.UpstreamFormatError.
func (s *Scorer) ScoreLead(ctx context.Context, profile ports.LeadProfile, timeframeDays int) (ports.ScoreResult, error) {
	if timeframeDays <= 0 {
		timeframeDays = defaultLookbackDays
	}

	interactions, err := s.collectInteractions(ctx, profile.ID, timeframeDays)
	if err != nil {
		return ports.ScoreResult{}, fmt.Errorf("scorer: collect interactions: %w", err)
	}

	prompt := buildScoringPrompt(profile, interactions, timeframeDays)
	raw, err := s.run(ctx, profile.ID, prompt)
	if err != nil {
		return ports.ScoreResult{}, err
	}

	var result ports.ScoreResult
	if err := decodeStrict(stripCodeFence(raw), &result); err != nil {
		return ports.ScoreResult{}, &ports.UpstreamFormatError{Agent: "LeadScorer", Raw: raw, Err: err}
	}
	if result.Score < 0 || result.Score > 100 {
		return ports.ScoreResult{}, &ports.UpstreamFormatError{
			Agent: "LeadScorer",
			Raw:   raw,
			Err:   fmt.Errorf("lead_score %d out of range", result.Score),
		}
	}
	if result.ConversionProbability < 0 || result.ConversionProbability > 100 {
		return ports.ScoreResult{}, &ports.UpstreamFormatError{
			Agent: "LeadScorer",
			Raw:   raw,
			Err:   fmt.Errorf("conversion_probability %d out of range", result.ConversionProbability),
		}
	}
	return result, nil
}

func (s *Scorer) collectInteractions(ctx context.Context, leadID uuid.UUID, timeframeDays int) (interactionSummary, error) {
	since := s.now().UTC().AddDate(0, 0, -timeframeDays)

	var summary interactionSummary
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		stats, err := s.reader.EmailStatsSince(gctx, leadID, since)
		if err != nil {
			return err
		}
		summary.EmailsSent = stats.Sent
		summary.EmailsOpened = stats.Opened
		summary.EmailsReplied = stats.Replied
		summary.LastEmailAt = stats.LastSent
		return nil
	})
	g.Go(func() error {
		stats, err := s.reader.CallStatsSince(gctx, leadID, since)
		if err != nil {
			return err
		}
		summary.Calls = stats.Total
		summary.CallsCompleted = stats.Completed
		summary.LastCallAt = stats.LastCall
		return nil
	})
	g.Go(func() error {
		stats, err := s.reader.SMSStatsSince(gctx, leadID, since)
		if err != nil {
			return err
		}
		summary.SMSSent = stats.Sent
		summary.SMSReplied = stats.Replied
		return nil
	})
	g.Go(func() error {
		stats, err := s.reader.MeetingStatsSince(gctx, leadID, since)
		if err != nil {
			return err
		}
		summary.Meetings = stats.Scheduled
		return nil
	})
	g.Go(func() error {
		notes, err := s.reader.ListNotesSince(gctx, leadID, since)
		if err != nil {
			return err
		}
		summary.NoteCount = len(notes)
		return nil
	})

	if err := g.Wait(); err != nil {
		return interactionSummary{}, err
	}
	return summary, nil
}

func (s *Scorer) run(ctx context.Context, leadID uuid.UUID, promptText string) (string, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	sessionID := uuid.New().String()
	userID := "scorer-" + leadID.String()

	_, err := s.sessionService.Create(ctx, &session.CreateRequest{
		AppName:   s.appName,
		UserID:    userID,
		SessionID: sessionID,
	})
	if err != nil {
		return "", fmt.Errorf("scorer: create session: %w", err)
	}
	defer func() {
		_ = s.sessionService.Delete(ctx, &session.DeleteRequest{
			AppName:   s.appName,
			UserID:    userID,
			SessionID: sessionID,
		})
	}()

	userMessage := &genai.Content{Role: "user", Parts: []*genai.Part{{Text: promptText}}}
	runConfig := agent.RunConfig{StreamingMode: agent.StreamingModeNone}

	var outputText strings.Builder
	for event, err := range s.runner.Run(ctx, userID, sessionID, userMessage, runConfig) {
		if err != nil {
			return "", fmt.Errorf("scorer: run failed: %w", err)
		}
		if event.Content == nil {
			continue
		}
		for _, part := range event.Content.Parts {
			outputText.WriteString(part.Text)
		}
	}

	return strings.TrimSpace(outputText.String()), nil
}
