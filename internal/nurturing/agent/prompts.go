package agent

import (
	"fmt"
	"strings"
	"time"

	"nurture_backend/internal/nurturing/ports"
)

func scorerSystemPrompt() string {
	return `You are a lead scoring analyst for a B2B sales team. You estimate
the probability that a lead converts, on a scale of 0 to 100, based on the
lead profile and recent engagement signals. You respond with JSON only, no
commentary, no markdown.`
}

func composerSystemPrompt() string {
	return `You write short, personal B2B nurturing emails. Plain language,
no hype, no pushy sales tone. One clear idea per email and a soft call to
action. You respond with JSON only, no commentary, no markdown.`
}

type interactionSummary struct {
	EmailsSent     int
	EmailsOpened   int
	EmailsReplied  int
	Calls          int
	CallsCompleted int
	SMSSent        int
	SMSReplied     int
	Meetings       int
	NoteCount      int
	LastEmailAt    *time.Time
	LastCallAt     *time.Time
}

func buildScoringPrompt(profile ports.LeadProfile, interactions interactionSummary, windowDays int) string {
	var sb strings.Builder
	sb.WriteString("Score this lead's conversion probability.\n\n")

	sb.WriteString("LEAD PROFILE:\n")
	sb.WriteString("- Name: " + orUnknown(profile.Name) + "\n")
	sb.WriteString("- Company: " + orUnknown(profile.Company) + "\n")
	sb.WriteString("- Industry: " + orUnknown(profile.Industry) + "\n")
	sb.WriteString("- Job title: " + orUnknown(profile.JobTitle) + "\n")
	sb.WriteString("- Source: " + orUnknown(profile.Source) + "\n")
	sb.WriteString("- Status: " + orUnknown(profile.Status) + "\n")
	sb.WriteString(fmt.Sprintf("- Current score: %d\n", profile.CurrentScore))
	sb.WriteString(fmt.Sprintf("- In system since: %s\n\n", profile.CreatedAt.Format("2006-01-02")))

	sb.WriteString(fmt.Sprintf("ENGAGEMENT (last %d days):\n", windowDays))
	sb.WriteString(fmt.Sprintf("- Emails: %d sent, %d opened, %d replied\n",
		interactions.EmailsSent, interactions.EmailsOpened, interactions.EmailsReplied))
	sb.WriteString(fmt.Sprintf("- Calls: %d total, %d completed\n",
		interactions.Calls, interactions.CallsCompleted))
	sb.WriteString(fmt.Sprintf("- SMS: %d sent, %d replied\n", interactions.SMSSent, interactions.SMSReplied))
	sb.WriteString(fmt.Sprintf("- Meetings: %d\n", interactions.Meetings))
	sb.WriteString(fmt.Sprintf("- Notes recorded: %d\n", interactions.NoteCount))
	if interactions.LastEmailAt != nil {
		sb.WriteString("- Last email: " + interactions.LastEmailAt.Format("2006-01-02") + "\n")
	}
	if interactions.LastCallAt != nil {
		sb.WriteString("- Last call: " + interactions.LastCallAt.Format("2006-01-02") + "\n")
	}
	sb.WriteString("\n")

	sb.WriteString(`OUTPUT:
Respond with exactly this JSON shape and nothing else:
{"lead_score": <0-100 integer>, "conversion_probability": <0-100 integer>, "factors": ["<signal>", ...], "recommendations": ["<next step>", ...], "analysis": "<one or two sentences>"}
`)
	return sb.String()
}

func buildComposePrompt(profile ports.LeadProfile, templateType string, cycle int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Write a %s nurturing email. This is nurturing cycle %d for the lead.\n\n",
		templateTypeDescription(templateType), cycle+1))

	sb.WriteString("LEAD:\n")
	sb.WriteString("- Name: " + orUnknown(profile.Name) + "\n")
	sb.WriteString("- Company: " + orUnknown(profile.Company) + "\n")
	sb.WriteString("- Industry: " + orUnknown(profile.Industry) + "\n")
	sb.WriteString("- Job title: " + orUnknown(profile.JobTitle) + "\n\n")

	sb.WriteString(`RULES:
- 80 to 140 words in the body.
- Address the lead by first name if known.
- No placeholders, no bracketed fill-ins, no signature block.
- Subject under 60 characters.

OUTPUT:
Respond with exactly this JSON shape and nothing else:
{"subject": "<subject line>", "body": "<email body>"}
`)
	return sb.String()
}

func templateTypeDescription(templateType string) string {
	switch templateType {
	case "educational":
		return "educational, value-first"
	case "social_proof":
		return "social proof, customer story"
	case "pain_point":
		return "pain point focused"
	case "re_engagement":
		return "re-engagement, last touch"
	default:
		return templateType
	}
}

func orUnknown(value string) string {
	if strings.TrimSpace(value) == "" {
		return "unknown"
	}
	return value
}
