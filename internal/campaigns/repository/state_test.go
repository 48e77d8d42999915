package repository

import (
	"testing"
	"time"
)

func TestStageValid(t *testing.T) {
	for _, stage := range []Stage{
		StageInitial, StageNurturing, StageGraduated,
		StageHumanReview, StageLost, StageManuallyUpgraded,
	} {
		if !stage.Valid() {
			t.Fatalf("%s must be a valid stage", stage)
		}
	}
	if Stage("archived").Valid() {
		t.Fatal("unknown stage must be invalid")
	}
	if Stage("").Valid() {
		t.Fatal("empty stage must be invalid")
	}
}

func TestStageTerminal(t *testing.T) {
	cases := map[Stage]bool{
		StageInitial:          false,
		StageNurturing:        false,
		StageGraduated:        true,
		StageHumanReview:      true,
		StageLost:             true,
		StageManuallyUpgraded: true,
	}
	for stage, want := range cases {
		if got := stage.Terminal(); got != want {
			t.Fatalf("%s terminal: expected %v, got %v", stage, want, got)
		}
	}
}

func TestStageTransitions(t *testing.T) {
	cases := []struct {
		from    Stage
		to      Stage
		allowed bool
	}{
		{StageInitial, StageNurturing, true},
		{StageInitial, StageManuallyUpgraded, true},
		{StageInitial, StageGraduated, false},
		{StageNurturing, StageNurturing, true},
		{StageNurturing, StageGraduated, true},
		{StageNurturing, StageHumanReview, true},
		{StageNurturing, StageLost, true},
		{StageNurturing, StageManuallyUpgraded, true},
		{StageHumanReview, StageManuallyUpgraded, true},
		{StageHumanReview, StageNurturing, false},
		{StageGraduated, StageNurturing, false},
		{StageGraduated, StageManuallyUpgraded, false},
		{StageLost, StageNurturing, false},
		{StageManuallyUpgraded, StageGraduated, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Fatalf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.allowed, got)
		}
	}
}

func TestAssociationStatusValid(t *testing.T) {
	for _, status := range []AssociationStatus{
		StatusAdded, StatusContacted, StatusResponded, StatusQualified, StatusRejected,
	} {
		if !status.Valid() {
			t.Fatalf("%s must be a valid status", status)
		}
	}
	if AssociationStatus("paused").Valid() {
		t.Fatal("unknown status must be invalid")
	}
}

func TestNurtureStateValidate(t *testing.T) {
	now := time.Now().UTC()
	score := 72
	operator := "operator@example.com"

	cases := []struct {
		name    string
		state   NurtureState
		wantErr bool
	}{
		{
			name:  "initial needs nothing extra",
			state: NurtureState{Stage: StageInitial},
		},
		{
			name:  "nurturing with scoring date",
			state: NurtureState{Stage: StageNurturing, Cycle: 1, NextScoringAt: &now},
		},
		{
			name:    "nurturing without scoring date",
			state:   NurtureState{Stage: StageNurturing, Cycle: 1},
			wantErr: true,
		},
		{
			name:  "graduated with final score",
			state: NurtureState{Stage: StageGraduated, Cycle: 2, FinalScore: &score},
		},
		{
			name:    "graduated without final score",
			state:   NurtureState{Stage: StageGraduated, Cycle: 2},
			wantErr: true,
		},
		{
			name:  "lost with final score",
			state: NurtureState{Stage: StageLost, Cycle: 2, FinalScore: &score},
		},
		{
			name:    "lost without final score",
			state:   NurtureState{Stage: StageLost, Cycle: 2},
			wantErr: true,
		},
		{
			name:  "manually upgraded with operator",
			state: NurtureState{Stage: StageManuallyUpgraded, Cycle: 1, UpgradedBy: &operator, UpgradedAt: &now},
		},
		{
			name:    "manually upgraded without operator",
			state:   NurtureState{Stage: StageManuallyUpgraded, Cycle: 1},
			wantErr: true,
		},
		{
			name:  "human review has no extra shape",
			state: NurtureState{Stage: StageHumanReview, Cycle: 3},
		},
		{
			name:    "unknown stage",
			state:   NurtureState{Stage: Stage("archived")},
			wantErr: true,
		},
		{
			name:    "negative cycle",
			state:   NurtureState{Stage: StageInitial, Cycle: -1},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.state.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}
