package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"nurture_backend/internal/nurturing/ports"
	"nurture_backend/platform/ai/moonshot"
)

// Composer generates personalized nurturing email content via the Kimi
// model. Callers fall back to static templates when it fails.
type Composer struct {
	runner         *runner.Runner
	sessionService session.Service
	appName        string
	runMu          sync.Mutex
}

type ComposerConfig struct {
	APIKey            string
	Model             string
	RequestsPerMinute int
}

func NewComposer(cfg ComposerConfig) (*Composer, error) {
	kimi := moonshot.NewModel(moonshot.Config{
		APIKey:            cfg.APIKey,
		Model:             cfg.Model,
		RequestsPerMinute: cfg.RequestsPerMinute,
	})

	adkAgent, err := llmagent.New(llmagent.Config{
		Name:        "EmailComposer",
		Model:       kimi,
		Description: "Writes personalized nurturing emails for cold leads.",
		Instruction: composerSystemPrompt(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create composer agent: %w", err)
	}

	sessionService := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        "email-composer",
		Agent:          adkAgent,
		SessionService: sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create composer runner: %w", err)
	}

	return &Composer{
		runner:         r,
		sessionService: sessionService,
		appName:        "email-composer",
	}, nil
}

type composedEmail struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ComposeEmail prompts the model for one sequence step. A response that
// violates the output schema is reported as a ports.UpstreamFormatError.
func (c *Composer) ComposeEmail(ctx context.Context, profile ports.LeadProfile, templateType string, cycle int) (ports.EmailContent, error) {
	prompt := buildComposePrompt(profile, templateType, cycle)
	raw, err := c.run(ctx, profile.ID, prompt)
	if err != nil {
		return ports.EmailContent{}, err
	}

	var parsed composedEmail
	if err := decodeStrict(stripCodeFence(raw), &parsed); err != nil {
		return ports.EmailContent{}, &ports.UpstreamFormatError{Agent: "EmailComposer", Raw: raw, Err: err}
	}
	if strings.TrimSpace(parsed.Subject) == "" || strings.TrimSpace(parsed.Body) == "" {
		return ports.EmailContent{}, &ports.UpstreamFormatError{
			Agent: "EmailComposer",
			Raw:   raw,
			Err:   fmt.Errorf("empty subject or body"),
		}
	}

	return ports.EmailContent{
		Subject:     strings.TrimSpace(parsed.Subject),
		Body:        strings.TrimSpace(parsed.Body),
		AIGenerated: true,
	}, nil
}

func (c *Composer) run(ctx context.Context, leadID uuid.UUID, promptText string) (string, error) {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	sessionID := uuid.New().String()
	userID := "composer-" + leadID.String()

	_, err := c.sessionService.Create(ctx, &session.CreateRequest{
		AppName:   c.appName,
		UserID:    userID,
		SessionID: sessionID,
	})
	if err != nil {
		return "", fmt.Errorf("composer: create session: %w", err)
	}
	defer func() {
		_ = c.sessionService.Delete(ctx, &session.DeleteRequest{
			AppName:   c.appName,
			UserID:    userID,
			SessionID: sessionID,
		})
	}()

	userMessage := &genai.Content{Role: "user", Parts: []*genai.Part{{Text: promptText}}}
	runConfig := agent.RunConfig{StreamingMode: agent.StreamingModeNone}

	var outputText strings.Builder
	for event, err := range c.runner.Run(ctx, userID, sessionID, userMessage, runConfig) {
		if err != nil {
			return "", fmt.Errorf("composer: run failed: %w", err)
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
