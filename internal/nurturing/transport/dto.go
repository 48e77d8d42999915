package transport

import (
	"time"

	"github.com/google/uuid"
)

type ManualUpgradeRequest struct {
	UpgradedBy string `json:"upgradedBy" validate:"required,min=1,max=100"`
}

type RunSummaryResponse struct {
	CampaignID uuid.UUID   `json:"campaignId"`
	Identified int         `json:"identified"`
	Added      []uuid.UUID `json:"added"`
	Upgraded   []uuid.UUID `json:"upgraded"`
	Remained   []uuid.UUID `json:"remained"`
	Completed  []uuid.UUID `json:"completed"`
	RanAt      time.Time   `json:"ranAt"`
}

type StatsResponse struct {
	TotalLeads             int        `json:"totalLeads"`
	ActiveLeads            int        `json:"activeLeads"`
	UpgradedLeads          int        `json:"upgradedLeads"`
	LostLeads              int        `json:"lostLeads"`
	HumanReviewLeads       int        `json:"humanReviewLeads"`
	AverageCyclesToUpgrade *float64   `json:"averageCyclesToUpgrade"`
	ConversionRate         float64    `json:"conversionRate"`
	LastRun                *time.Time `json:"lastRun"`
}

type WorkflowLeadResponse struct {
	ID            uuid.UUID  `json:"id"`
	CampaignID    uuid.UUID  `json:"campaignId"`
	LeadID        uuid.UUID  `json:"leadId"`
	Status        string     `json:"status"`
	Stage         string     `json:"stage"`
	Cycle         int        `json:"cycle"`
	CurrentScore  *int       `json:"currentScore,omitempty"`
	PreviousScore *int       `json:"previousScore,omitempty"`
	FinalScore    *int       `json:"finalScore,omitempty"`
	LastScoredAt  *time.Time `json:"lastScoredAt,omitempty"`
	NextScoringAt *time.Time `json:"nextScoringAt,omitempty"`
	UpgradedBy    *string    `json:"upgradedBy,omitempty"`
	UpgradedAt    *time.Time `json:"upgradedAt,omitempty"`
	LostReason    *string    `json:"lostReason,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

type WorkflowLeadListResponse struct {
	Items  []WorkflowLeadResponse `json:"items"`
	Total  int                    `json:"total"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
}
