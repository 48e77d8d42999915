package transport

import (
	"time"

	"github.com/google/uuid"
)

// Enum values
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusQualified LeadStatus = "qualified"
	LeadStatusWon       LeadStatus = "won"
	LeadStatusLost      LeadStatus = "lost"
)

// Request DTOs
type CreateLeadRequest struct {
	FirstName    string                 `json:"firstName" validate:"required,min=1,max=100"`
	LastName     string                 `json:"lastName" validate:"required,min=1,max=100"`
	Email        string                 `json:"email,omitempty" validate:"omitempty,email"`
	Phone        string                 `json:"phone,omitempty" validate:"omitempty,min=5,max=20"`
	Company      string                 `json:"company,omitempty" validate:"omitempty,max=200"`
	Industry     string                 `json:"industry,omitempty" validate:"omitempty,max=100"`
	JobTitle     string                 `json:"jobTitle,omitempty" validate:"omitempty,max=100"`
	Source       string                 `json:"source,omitempty" validate:"omitempty,max=100"`
	CustomFields map[string]interface{} `json:"customFields,omitempty"`
}

type UpdateLeadRequest struct {
	FirstName    *string                `json:"firstName,omitempty" validate:"omitempty,min=1,max=100"`
	LastName     *string                `json:"lastName,omitempty" validate:"omitempty,min=1,max=100"`
	Email        *string                `json:"email,omitempty" validate:"omitempty,email"`
	Phone        *string                `json:"phone,omitempty" validate:"omitempty,min=5,max=20"`
	Company      *string                `json:"company,omitempty" validate:"omitempty,max=200"`
	Industry     *string                `json:"industry,omitempty" validate:"omitempty,max=100"`
	JobTitle     *string                `json:"jobTitle,omitempty" validate:"omitempty,max=100"`
	Source       *string                `json:"source,omitempty" validate:"omitempty,max=100"`
	Status       *LeadStatus            `json:"status,omitempty" validate:"omitempty,oneof=new contacted qualified won lost"`
	CustomFields map[string]interface{} `json:"customFields,omitempty"`
}

type UpdateStatusRequest struct {
	Status LeadStatus `json:"status" validate:"required,oneof=new contacted qualified won lost"`
}

type AddNoteRequest struct {
	Body   string `json:"body" validate:"required,min=1,max=5000"`
	Author string `json:"author,omitempty" validate:"omitempty,max=100"`
}

// Response DTOs
type LeadResponse struct {
	ID           uuid.UUID              `json:"id"`
	FirstName    string                 `json:"firstName"`
	LastName     string                 `json:"lastName"`
	Email        *string                `json:"email,omitempty"`
	Phone        *string                `json:"phone,omitempty"`
	Company      *string                `json:"company,omitempty"`
	Industry     *string                `json:"industry,omitempty"`
	JobTitle     *string                `json:"jobTitle,omitempty"`
	Source       *string                `json:"source,omitempty"`
	Status       string                 `json:"status"`
	LeadScore    int                    `json:"leadScore"`
	CustomFields map[string]interface{} `json:"customFields,omitempty"`
	CreatedAt    time.Time              `json:"createdAt"`
	UpdatedAt    time.Time              `json:"updatedAt"`
}

type LeadListResponse struct {
	Items  []LeadResponse `json:"items"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

type NoteResponse struct {
	ID        uuid.UUID `json:"id"`
	LeadID    uuid.UUID `json:"leadId"`
	Body      string    `json:"body"`
	Author    *string   `json:"author,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
