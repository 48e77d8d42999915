package scheduler

import "testing"

func TestWorkflowRunTaskRoundTrip(t *testing.T) {
	task, err := NewWorkflowRunTask(WorkflowRunPayload{TriggeredBy: "api"})
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if task.Type() != TaskWorkflowRun {
		t.Fatalf("expected type %q, got %q", TaskWorkflowRun, task.Type())
	}

	payload, err := ParseWorkflowRunPayload(task)
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	if payload.TriggeredBy != "api" {
		t.Fatalf("expected triggered_by api, got %q", payload.TriggeredBy)
	}
}

func TestLeadRescoreTaskRoundTrip(t *testing.T) {
	task, err := NewLeadRescoreTask(LeadRescorePayload{LeadID: "2fbb1f3e-9f0a-4a8f-9e58-0a1c7f6b1a11"})
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if task.Type() != TaskLeadRescore {
		t.Fatalf("expected type %q, got %q", TaskLeadRescore, task.Type())
	}

	payload, err := ParseLeadRescorePayload(task)
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	if payload.LeadID != "2fbb1f3e-9f0a-4a8f-9e58-0a1c7f6b1a11" {
		t.Fatalf("lead id lost in round trip: %q", payload.LeadID)
	}
}
