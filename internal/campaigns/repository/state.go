package repository

import (
	"fmt"
	"time"
)

// Stage is the coarse lifecycle marker of a campaign-lead association.
// It is persisted inside the association metadata and validated on every
// read and write so malformed transitions never reach the database.
type Stage string

const (
	StageInitial          Stage = "initial"
	StageNurturing        Stage = "nurturing"
	StageGraduated        Stage = "graduated"
	StageHumanReview      Stage = "human_review"
	StageLost             Stage = "lost"
	StageManuallyUpgraded Stage = "manually_upgraded"
)

// Valid reports whether the stage is a known value.
func (s Stage) Valid() bool {
	switch s {
	case StageInitial, StageNurturing, StageGraduated, StageHumanReview, StageLost, StageManuallyUpgraded:
		return true
	}
	return false
}

// Terminal reports whether the stage permits no further automated transitions.
func (s Stage) Terminal() bool {
	switch s {
	case StageGraduated, StageHumanReview, StageLost, StageManuallyUpgraded:
		return true
	}
	return false
}

// allowedTransitions encodes the nurturing state machine. Graduated, lost,
// and manually upgraded stages have no outgoing edges. Human review blocks
// all automated transitions but still accepts the operator override.
var allowedTransitions = map[Stage][]Stage{
	StageInitial:     {StageNurturing, StageManuallyUpgraded},
	StageNurturing:   {StageNurturing, StageGraduated, StageHumanReview, StageLost, StageManuallyUpgraded},
	StageHumanReview: {StageManuallyUpgraded},
}

// CanTransitionTo reports whether moving from s to target is a legal edge.
func (s Stage) CanTransitionTo(target Stage) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// AssociationStatus is the generic campaign-membership status enum, reused by
// the nurturing workflow.
type AssociationStatus string

const (
	StatusAdded     AssociationStatus = "added"
	StatusContacted AssociationStatus = "contacted"
	StatusResponded AssociationStatus = "responded"
	StatusQualified AssociationStatus = "qualified"
	StatusRejected  AssociationStatus = "rejected"
)

// Valid reports whether the status is a known value.
func (s AssociationStatus) Valid() bool {
	switch s {
	case StatusAdded, StatusContacted, StatusResponded, StatusQualified, StatusRejected:
		return true
	}
	return false
}

// NurtureState is the workflow sub-state carried on a campaign-lead
// association. It is the sole durable representation of workflow progress:
// transitions overwrite it, there is no separate event log.
type NurtureState struct {
	Stage         Stage      `json:"workflow_stage"`
	Cycle         int        `json:"nurturing_cycle"`
	LastScoredAt  *time.Time `json:"last_scored_at,omitempty"`
	NextScoringAt *time.Time `json:"next_scoring_date,omitempty"`
	CurrentScore  *int       `json:"current_score,omitempty"`
	PreviousScore *int       `json:"previous_score,omitempty"`
	FinalScore    *int       `json:"final_score,omitempty"`
	UpgradedBy    *string    `json:"upgraded_by,omitempty"`
	UpgradedAt    *time.Time `json:"upgraded_at,omitempty"`
	LostReason    *string    `json:"lost_reason,omitempty"`
}

// Validate enforces the stage-specific shape of the state. The cycle counter
// is monotonically non-decreasing per association; the upper bound is owned
// by the workflow engine, which never schedules past the cycle cap.
func (s NurtureState) Validate() error {
	if !s.Stage.Valid() {
		return fmt.Errorf("unknown workflow stage %q", s.Stage)
	}
	if s.Cycle < 0 {
		return fmt.Errorf("nurturing cycle must be non-negative, got %d", s.Cycle)
	}

	switch s.Stage {
	case StageNurturing:
		if s.NextScoringAt == nil {
			return fmt.Errorf("nurturing stage requires a next scoring date")
		}
	case StageGraduated, StageLost:
		if s.FinalScore == nil {
			return fmt.Errorf("%s stage requires a final score", s.Stage)
		}
	case StageManuallyUpgraded:
		if s.UpgradedBy == nil || s.UpgradedAt == nil {
			return fmt.Errorf("manually_upgraded stage requires operator id and timestamp")
		}
	}

	return nil
}
