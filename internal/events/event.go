// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"nurture_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when a new lead is created.
type LeadCreated struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	LeadScore int       `json:"leadScore"`
	Source    string    `json:"source,omitempty"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// =============================================================================
// Nurturing Workflow Events
// =============================================================================

// LeadEnrolled is published when a lead enters the nurturing workflow.
type LeadEnrolled struct {
	BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	CampaignID uuid.UUID `json:"campaignId"`
	Cycle      int       `json:"cycle"`
}

func (e LeadEnrolled) EventName() string { return "nurturing.lead.enrolled" }

// LeadGraduated is published when a re-score lifts a lead above the medium
// probability threshold.
type LeadGraduated struct {
	BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	CampaignID uuid.UUID `json:"campaignId"`
	FinalScore int       `json:"finalScore"`
	Cycle      int       `json:"cycle"`
	Manual     bool      `json:"manual"`
}

func (e LeadGraduated) EventName() string { return "nurturing.lead.graduated" }

// LeadLost is published when a lead exhausts its nurturing cycles without
// clearing the threshold. The parent lead status is forced to lost.
type LeadLost struct {
	BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	CampaignID uuid.UUID `json:"campaignId"`
	FinalScore int       `json:"finalScore"`
}

func (e LeadLost) EventName() string { return "nurturing.lead.lost" }

// HumanReviewRequested is published when a lead reaches the cycle cap and
// needs operator attention before any further outreach.
type HumanReviewRequested struct {
	BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	CampaignID uuid.UUID `json:"campaignId"`
	DueAt      time.Time `json:"dueAt"`
}

func (e HumanReviewRequested) EventName() string { return "nurturing.lead.human_review_requested" }

// WorkflowRunCompleted is published after each workflow run with its summary.
type WorkflowRunCompleted struct {
	BaseEvent
	CampaignID uuid.UUID `json:"campaignId"`
	Identified int       `json:"identified"`
	Added      int       `json:"added"`
	Upgraded   int       `json:"upgraded"`
	Remained   int       `json:"remained"`
	Completed  int       `json:"completed"`
	RanAt      time.Time `json:"ranAt"`
}

func (e WorkflowRunCompleted) EventName() string { return "nurturing.workflow.run_completed" }
