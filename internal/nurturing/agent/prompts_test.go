package agent

import (
	"strings"
	"testing"
	"time"

	"nurture_backend/internal/nurturing/ports"
)

func TestBuildScoringPrompt(t *testing.T) {
	profile := ports.LeadProfile{
		Name:         "Taylor Reed",
		Company:      "Acme Corp",
		Industry:     "Logistics",
		CurrentScore: 25,
		CreatedAt:    time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	prompt := buildScoringPrompt(profile, interactionSummary{
		EmailsSent:    3,
		EmailsOpened:  1,
		EmailsReplied: 1,
	}, 14)

	for _, want := range []string{
		"Taylor Reed",
		"Acme Corp",
		"last 14 days",
		"3 sent, 1 opened, 1 replied",
		`"lead_score"`,
		`"conversion_probability"`,
		`"factors"`,
		`"recommendations"`,
		`"analysis"`,
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("scoring prompt missing %q:\n%s", want, prompt)
		}
	}

	empty := buildScoringPrompt(ports.LeadProfile{}, interactionSummary{}, 14)
	if !strings.Contains(empty, "unknown") {
		t.Fatal("empty profile fields must render as unknown")
	}
}

func TestBuildComposePrompt(t *testing.T) {
	prompt := buildComposePrompt(ports.LeadProfile{Name: "Taylor Reed"}, "social_proof", 1)

	if !strings.Contains(prompt, "customer story") {
		t.Fatalf("template type not expanded:\n%s", prompt)
	}
	if !strings.Contains(prompt, "cycle 2") {
		t.Fatalf("cycle must be rendered one-based:\n%s", prompt)
	}
	if !strings.Contains(prompt, `"subject"`) || !strings.Contains(prompt, `"body"`) {
		t.Fatalf("output contract missing:\n%s", prompt)
	}
}
