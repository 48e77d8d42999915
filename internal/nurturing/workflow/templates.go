package workflow

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"nurture_backend/internal/nurturing/ports"
)

//go:embed templates.yaml
var templatesYAML []byte

// SequenceStep is one email in a nurturing cycle.
type SequenceStep struct {
	Template  string `yaml:"template"`
	DayOffset int    `yaml:"day_offset"`
}

// Sequence is the outreach plan for one nurturing cycle: a series of emails
// followed by an operator follow-up task.
type Sequence struct {
	Cycle         int            `yaml:"cycle"`
	Emails        []SequenceStep `yaml:"emails"`
	TaskDayOffset int            `yaml:"task_day_offset"`
}

type fallbackCopy struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

// TemplateSet holds the parsed sequence definitions and the static fallback
// copy used when AI generation fails.
type TemplateSet struct {
	Sequences []Sequence              `yaml:"sequences"`
	Fallbacks map[string]fallbackCopy `yaml:"fallbacks"`
}

// LoadTemplates parses and validates the embedded sequence definitions.
func LoadTemplates() (*TemplateSet, error) {
	var set TemplateSet
	if err := yaml.Unmarshal(templatesYAML, &set); err != nil {
		return nil, fmt.Errorf("parse nurture templates: %w", err)
	}
	if len(set.Sequences) == 0 {
		return nil, fmt.Errorf("nurture templates define no sequences")
	}
	for _, seq := range set.Sequences {
		if len(seq.Emails) == 0 {
			return nil, fmt.Errorf("cycle %d sequence has no emails", seq.Cycle)
		}
		for _, step := range seq.Emails {
			if _, ok := set.Fallbacks[step.Template]; !ok {
				return nil, fmt.Errorf("template %q has no fallback copy", step.Template)
			}
			if step.DayOffset < 0 {
				return nil, fmt.Errorf("template %q has negative day offset", step.Template)
			}
		}
	}
	return &set, nil
}

// ForCycle returns the sequence for the given cycle. Cycles past the last
// defined entry reuse the last entry.
func (t *TemplateSet) ForCycle(cycle int) Sequence {
	for _, seq := range t.Sequences {
		if seq.Cycle == cycle {
			return seq
		}
	}
	return t.Sequences[len(t.Sequences)-1]
}

// Fallback renders the static copy for a template type with the lead's name
// and company substituted in.
func (t *TemplateSet) Fallback(template string, profile ports.LeadProfile) ports.EmailContent {
	copy, ok := t.Fallbacks[template]
	if !ok {
		copy = fallbackCopy{
			Subject: "Checking in, {{name}}",
			Body:    "Hi {{name}},\n\nJust checking in to see how things are going.",
		}
	}

	company := profile.Company
	if company == "" {
		company = "your team"
	}
	name := profile.Name
	if name == "" {
		name = "there"
	}

	replacer := strings.NewReplacer("{{name}}", name, "{{company}}", company)
	return ports.EmailContent{
		Subject:     replacer.Replace(copy.Subject),
		Body:        replacer.Replace(strings.TrimRight(copy.Body, "\n")),
		AIGenerated: false,
	}
}
