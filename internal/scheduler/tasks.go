// Package scheduler provides the asynq task definitions, client, worker,
// and periodic dispatcher for the nurturing workflow.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskWorkflowRun = "nurturing.workflow.run"

const TaskLeadRescore = "nurturing.lead.rescore"

type WorkflowRunPayload struct {
	TriggeredBy string `json:"triggeredBy"`
}

type LeadRescorePayload struct {
	LeadID string `json:"leadId"`
}

func NewWorkflowRunTask(payload WorkflowRunPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWorkflowRun, data), nil
}

func ParseWorkflowRunPayload(task *asynq.Task) (WorkflowRunPayload, error) {
	var payload WorkflowRunPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return WorkflowRunPayload{}, err
	}
	return payload, nil
}

func NewLeadRescoreTask(payload LeadRescorePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeadRescore, data), nil
}

func ParseLeadRescorePayload(task *asynq.Task) (LeadRescorePayload, error) {
	var payload LeadRescorePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return LeadRescorePayload{}, err
	}
	return payload, nil
}
