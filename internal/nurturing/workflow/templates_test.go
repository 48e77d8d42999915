package workflow

import (
	"strings"
	"testing"

	"nurture_backend/internal/nurturing/ports"
)

func TestLoadTemplates(t *testing.T) {
	set, err := LoadTemplates()
	if err != nil {
		t.Fatalf("load templates: %v", err)
	}
	if len(set.Sequences) != 3 {
		t.Fatalf("expected 3 cycle sequences, got %d", len(set.Sequences))
	}
	for _, seq := range set.Sequences {
		if len(seq.Emails) == 0 {
			t.Fatalf("cycle %d has no emails", seq.Cycle)
		}
		if seq.TaskDayOffset <= 0 {
			t.Fatalf("cycle %d has no task offset", seq.Cycle)
		}
	}
}

func TestForCycleClampsToLastSequence(t *testing.T) {
	set, err := LoadTemplates()
	if err != nil {
		t.Fatalf("load templates: %v", err)
	}

	last := set.Sequences[len(set.Sequences)-1]
	got := set.ForCycle(5)
	if got.Cycle != last.Cycle {
		t.Fatalf("cycle 5 expected to reuse cycle %d sequence, got %d", last.Cycle, got.Cycle)
	}
}

func TestFallbackSubstitutesPlaceholders(t *testing.T) {
	set, err := LoadTemplates()
	if err != nil {
		t.Fatalf("load templates: %v", err)
	}

	content := set.Fallback("educational", ports.LeadProfile{Name: "Taylor Reed", Company: "Acme Corp"})
	if content.AIGenerated {
		t.Fatal("fallback content must not be marked ai generated")
	}
	if strings.Contains(content.Subject+content.Body, "{{") {
		t.Fatalf("unrendered placeholder in fallback: %q / %q", content.Subject, content.Body)
	}
	if !strings.Contains(content.Body, "Taylor Reed") {
		t.Fatalf("lead name not substituted into body: %q", content.Body)
	}
}

func TestFallbackDefaultsForEmptyProfile(t *testing.T) {
	set, err := LoadTemplates()
	if err != nil {
		t.Fatalf("load templates: %v", err)
	}

	content := set.Fallback("educational", ports.LeadProfile{})
	if strings.Contains(content.Subject+content.Body, "{{") {
		t.Fatalf("unrendered placeholder for empty profile: %q", content.Body)
	}
	if content.Subject == "" || content.Body == "" {
		t.Fatal("fallback must always produce content")
	}
}

func TestFallbackForUnknownTemplateType(t *testing.T) {
	set, err := LoadTemplates()
	if err != nil {
		t.Fatalf("load templates: %v", err)
	}

	content := set.Fallback("does_not_exist", ports.LeadProfile{Name: "Taylor"})
	if content.Subject == "" || content.Body == "" {
		t.Fatal("unknown template type must still yield generic copy")
	}
}
