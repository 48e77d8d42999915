package transport

import (
	"time"

	"github.com/google/uuid"
)

type CampaignResponse struct {
	ID        uuid.UUID              `json:"id"`
	Name      string                 `json:"name"`
	Status    string                 `json:"status"`
	Type      string                 `json:"type"`
	StartDate *time.Time             `json:"startDate,omitempty"`
	EndDate   *time.Time             `json:"endDate,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
	UpdatedAt time.Time              `json:"updatedAt"`
}

type CampaignListResponse struct {
	Items  []CampaignResponse `json:"items"`
	Total  int                `json:"total"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}
