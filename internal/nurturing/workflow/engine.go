// Package workflow implements the low probability lead nurturing engine:
// identification, enrollment, scheduled outreach sequences, periodic
// re-scoring, and stage transitions.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	campaignrepo "nurture_backend/internal/campaigns/repository"
	"nurture_backend/internal/events"
	leadrepo "nurture_backend/internal/leads/repository"
	"nurture_backend/internal/nurturing/ports"
	"nurture_backend/platform/apperr"
	"nurture_backend/platform/config"
	"nurture_backend/platform/logger"
)

// LeadStore is the lead persistence surface the engine depends on.
type LeadStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (leadrepo.Lead, error)
	ListLowProbabilityIDs(ctx context.Context, q leadrepo.LowProbabilityQuery) ([]uuid.UUID, error)
	UpdateScore(ctx context.Context, id uuid.UUID, score int) error
	MarkLost(ctx context.Context, id uuid.UUID, reason string) error
}

// AssociationStore is the campaign-lead persistence surface.
type AssociationStore interface {
	Enroll(ctx context.Context, params campaignrepo.EnrollParams) (campaignrepo.CampaignLead, error)
	GetAssociation(ctx context.Context, campaignID, leadID uuid.UUID) (campaignrepo.CampaignLead, error)
	UpdateState(ctx context.Context, params campaignrepo.UpdateStateParams) (campaignrepo.CampaignLead, error)
	ListDueForScoring(ctx context.Context, campaignID uuid.UUID, now time.Time) ([]campaignrepo.CampaignLead, error)
	ListAssociations(ctx context.Context, params campaignrepo.ListAssociationsParams) ([]campaignrepo.CampaignLead, int, error)
	Stats(ctx context.Context, campaignID uuid.UUID) (campaignrepo.WorkflowStats, error)
}

// CampaignRegistry resolves the singleton nurturing campaign.
type CampaignRegistry interface {
	EnsureNurturingCampaign(ctx context.Context) (campaignrepo.Campaign, error)
	RecordWorkflowRun(ctx context.Context, id uuid.UUID, at time.Time) error
}

// RunSummary is the outcome of one full workflow run.
type RunSummary struct {
	CampaignID uuid.UUID
	Identified int
	Added      []uuid.UUID
	Upgraded   []uuid.UUID
	Remained   []uuid.UUID
	Completed  []uuid.UUID
	RanAt      time.Time
}

// RescoreOutcome partitions rescored leads by their transition.
type RescoreOutcome struct {
	Upgraded  []uuid.UUID
	Remained  []uuid.UUID
	Completed []uuid.UUID
}

const lostReasonExhausted = "nurturing cycles exhausted below threshold"

// Engine orchestrates the nurturing workflow. All per-lead failures are
// logged and skipped; a run never aborts on a single lead.
type Engine struct {
	leads        LeadStore
	associations AssociationStore
	campaigns    CampaignRegistry
	scorer       ports.Scorer
	composer     ports.Composer
	outreach     ports.OutreachWriter
	templates    *TemplateSet
	bus          events.Bus
	log          *logger.Logger
	cfg          config.WorkflowConfig
	now          func() time.Time
}

type EngineParams struct {
	Leads        LeadStore
	Associations AssociationStore
	Campaigns    CampaignRegistry
	Scorer       ports.Scorer
	Composer     ports.Composer
	Outreach     ports.OutreachWriter
	Templates    *TemplateSet
	Bus          events.Bus
	Logger       *logger.Logger
	Config       config.WorkflowConfig
}

func NewEngine(params EngineParams) *Engine {
	return &Engine{
		leads:        params.Leads,
		associations: params.Associations,
		campaigns:    params.Campaigns,
		scorer:       params.Scorer,
		composer:     params.Composer,
		outreach:     params.Outreach,
		templates:    params.Templates,
		bus:          params.Bus,
		log:          params.Logger,
		cfg:          params.Config,
		now:          time.Now,
	}
}

// Run executes one full workflow pass: ensure the campaign exists, identify
// newly eligible leads, enroll them, then rescore everyone whose scoring
// date has passed. Re-running before any scoring date elapses is a no-op.
func (e *Engine) Run(ctx context.Context) (RunSummary, error) {
	started := e.now().UTC()

	campaign, err := e.campaigns.EnsureNurturingCampaign(ctx)
	if err != nil {
		return RunSummary{}, err
	}

	identified, err := e.IdentifyLowProbabilityLeads(ctx, campaign.ID)
	if err != nil {
		return RunSummary{}, err
	}

	added := e.AddLeadsToWorkflow(ctx, campaign, identified)
	outcome := e.RescoreLeads(ctx, campaign)

	ranAt := e.now().UTC()
	if err := e.campaigns.RecordWorkflowRun(ctx, campaign.ID, ranAt); err != nil {
		e.log.Warn("failed to record workflow run timestamp", "error", err)
	}

	e.bus.Publish(ctx, events.WorkflowRunCompleted{
		BaseEvent:  events.NewBaseEvent(),
		CampaignID: campaign.ID,
		Identified: len(identified),
		Added:      len(added),
		Upgraded:   len(outcome.Upgraded),
		Remained:   len(outcome.Remained),
		Completed:  len(outcome.Completed),
		RanAt:      ranAt,
	})
	e.log.WorkflowRun(len(identified), len(added), len(outcome.Upgraded),
		len(outcome.Remained), len(outcome.Completed), ranAt.Sub(started))

	return RunSummary{
		CampaignID: campaign.ID,
		Identified: len(identified),
		Added:      added,
		Upgraded:   outcome.Upgraded,
		Remained:   outcome.Remained,
		Completed:  outcome.Completed,
		RanAt:      ranAt,
	}, nil
}

// IdentifyLowProbabilityLeads selects leads eligible for enrollment: score
// at or below the low threshold, not won or lost, cold for at least the
// contact window, and not already in the campaign.
func (e *Engine) IdentifyLowProbabilityLeads(ctx context.Context, excludeCampaignID uuid.UUID) ([]uuid.UUID, error) {
	ids, err := e.leads.ListLowProbabilityIDs(ctx, leadrepo.LowProbabilityQuery{
		MaxScore:                e.cfg.GetLowProbabilityThreshold(),
		MinDaysSinceLastContact: e.cfg.GetMinDaysSinceLastContact(),
		ExcludeCampaignIDs:      []uuid.UUID{excludeCampaignID},
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to identify low probability leads", err)
	}
	return ids, nil
}

// AddLeadsToWorkflow enrolls each lead and schedules its cycle-0 sequence.
// Individual failures are logged and skipped. Returns the successfully
// enrolled lead IDs.
func (e *Engine) AddLeadsToWorkflow(ctx context.Context, campaign campaignrepo.Campaign, leadIDs []uuid.UUID) []uuid.UUID {
	added := make([]uuid.UUID, 0, len(leadIDs))
	for _, leadID := range leadIDs {
		if err := e.enrollLead(ctx, campaign, leadID); err != nil {
			if errors.Is(err, campaignrepo.ErrAlreadyEnrolled) {
				continue
			}
			e.log.Error("failed to enroll lead", "lead_id", leadID, "error", err)
			continue
		}
		added = append(added, leadID)
	}
	return added
}

func (e *Engine) enrollLead(ctx context.Context, campaign campaignrepo.Campaign, leadID uuid.UUID) error {
	lead, err := e.leads.GetByID(ctx, leadID)
	if err != nil {
		return fmt.Errorf("load lead: %w", err)
	}

	now := e.now().UTC()
	next := now.AddDate(0, 0, e.cfg.GetRescoringIntervalDays())
	score := lead.LeadScore

	assoc, err := e.associations.Enroll(ctx, campaignrepo.EnrollParams{
		CampaignID: campaign.ID,
		LeadID:     leadID,
		Status:     campaignrepo.StatusAdded,
		State: campaignrepo.NurtureState{
			Stage:         campaignrepo.StageInitial,
			Cycle:         0,
			LastScoredAt:  &now,
			NextScoringAt: &next,
			CurrentScore:  &score,
		},
	})
	if err != nil {
		return err
	}

	if err := e.ScheduleNurturingSequence(ctx, campaign, assoc, lead, 0); err != nil {
		return fmt.Errorf("schedule cycle 0: %w", err)
	}

	e.bus.Publish(ctx, events.LeadEnrolled{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     leadID,
		CampaignID: campaign.ID,
		Cycle:      0,
	})
	return nil
}

// ScheduleNurturingSequence schedules the outreach sequence for the given
// cycle. Attempting to schedule at or past the cycle cap transitions the
// association to human review instead; no content is generated.
func (e *Engine) ScheduleNurturingSequence(ctx context.Context, campaign campaignrepo.Campaign, assoc campaignrepo.CampaignLead, lead leadrepo.Lead, cycle int) error {
	now := e.now().UTC()

	if cycle >= e.cfg.GetMaxNurturingCycles() {
		return e.transitionToHumanReview(ctx, campaign, assoc, lead, now)
	}

	seq := e.templates.ForCycle(cycle)
	profile := profileFromLead(lead)

	for i, step := range seq.Emails {
		content, err := e.composer.ComposeEmail(ctx, profile, step.Template, cycle)
		if err != nil {
			if !errors.Is(err, ports.ErrContentUnavailable) {
				e.log.AgentError("EmailComposer", lead.ID.String(), err)
			}
			content = e.templates.Fallback(step.Template, profile)
		}

		err = e.outreach.ScheduleEmail(ctx, ports.ScheduleEmailParams{
			LeadID:       lead.ID,
			Subject:      content.Subject,
			Body:         content.Body,
			SendAt:       now.AddDate(0, 0, step.DayOffset),
			Cycle:        cycle,
			TemplateType: step.Template,
			AIGenerated:  content.AIGenerated,
		})
		if err != nil {
			return fmt.Errorf("schedule email step %d: %w", i+1, err)
		}
	}

	err := e.outreach.CreateTask(ctx, ports.CreateTaskParams{
		LeadID:      lead.ID,
		Title:       "Review nurturing progress for " + lead.FullName(),
		Description: fmt.Sprintf("Cycle %d outreach has gone out. Review engagement and decide on next steps.", cycle+1),
		Type:        "review",
		Priority:    "normal",
		DueAt:       now.AddDate(0, 0, seq.TaskDayOffset),
		Cycle:       cycle,
	})
	if err != nil {
		return fmt.Errorf("create review task: %w", err)
	}

	from := assoc.State.Stage
	state := assoc.State
	state.Stage = campaignrepo.StageNurturing
	state.Cycle = cycle
	next := now.AddDate(0, 0, e.cfg.GetRescoringIntervalDays())
	state.NextScoringAt = &next

	if _, err := e.associations.UpdateState(ctx, campaignrepo.UpdateStateParams{
		ID:      assoc.ID,
		Version: assoc.Version,
		Status:  campaignrepo.StatusContacted,
		State:   state,
	}); err != nil {
		return fmt.Errorf("persist nurturing state: %w", err)
	}

	e.log.StageTransition(lead.ID.String(), string(from), string(campaignrepo.StageNurturing), cycle)
	return nil
}

func (e *Engine) transitionToHumanReview(ctx context.Context, campaign campaignrepo.Campaign, assoc campaignrepo.CampaignLead, lead leadrepo.Lead, now time.Time) error {
	dueAt := now.AddDate(0, 0, 2)

	err := e.outreach.CreateTask(ctx, ports.CreateTaskParams{
		LeadID:      lead.ID,
		Title:       "Human review needed for " + lead.FullName(),
		Description: "All nurturing cycles are exhausted. Decide whether to continue manually or close out.",
		Type:        "human_review",
		Priority:    "high",
		DueAt:       dueAt,
		Cycle:       assoc.State.Cycle,
	})
	if err != nil {
		return fmt.Errorf("create human review task: %w", err)
	}

	from := assoc.State.Stage
	state := assoc.State
	state.Stage = campaignrepo.StageHumanReview
	state.NextScoringAt = nil

	if _, err := e.associations.UpdateState(ctx, campaignrepo.UpdateStateParams{
		ID:      assoc.ID,
		Version: assoc.Version,
		Status:  assoc.Status,
		State:   state,
	}); err != nil {
		return fmt.Errorf("persist human review state: %w", err)
	}

	e.bus.Publish(ctx, events.HumanReviewRequested{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     lead.ID,
		CampaignID: campaign.ID,
		DueAt:      dueAt,
	})
	e.log.StageTransition(lead.ID.String(), string(from), string(campaignrepo.StageHumanReview), assoc.State.Cycle)
	return nil
}

// RescoreLeads re-scores every association whose scoring date has passed and
// applies the resulting transition. Failed leads keep their scoring date and
// are retried on the next run.
func (e *Engine) RescoreLeads(ctx context.Context, campaign campaignrepo.Campaign) RescoreOutcome {
	var outcome RescoreOutcome

	due, err := e.associations.ListDueForScoring(ctx, campaign.ID, e.now().UTC())
	if err != nil {
		e.log.DatabaseError("list due for scoring", err)
		return outcome
	}

	for _, assoc := range due {
		transition, err := e.rescoreAssociation(ctx, campaign, assoc)
		if err != nil {
			e.log.Error("rescore failed, lead skipped for this run",
				"lead_id", assoc.LeadID, "cycle", assoc.State.Cycle, "error", err)
			continue
		}
		switch transition {
		case campaignrepo.StageGraduated:
			outcome.Upgraded = append(outcome.Upgraded, assoc.LeadID)
		case campaignrepo.StageNurturing:
			outcome.Remained = append(outcome.Remained, assoc.LeadID)
		case campaignrepo.StageLost:
			outcome.Completed = append(outcome.Completed, assoc.LeadID)
		}
	}
	return outcome
}

// RescoreLead re-scores a single association on demand, used by deferred
// scoring jobs. Terminal associations, associations without a scoring date,
// and associations not yet due are no-op skips; the last case covers a
// deferred job firing after a batch run already rescored the lead and pushed
// its scoring date forward.
func (e *Engine) RescoreLead(ctx context.Context, leadID uuid.UUID) error {
	campaign, err := e.campaigns.EnsureNurturingCampaign(ctx)
	if err != nil {
		return err
	}

	assoc, err := e.associations.GetAssociation(ctx, campaign.ID, leadID)
	if errors.Is(err, campaignrepo.ErrNotFound) {
		return apperr.NotFound("lead is not enrolled in the nurturing campaign")
	}
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to load association", err)
	}

	if assoc.State.Stage.Terminal() {
		return nil
	}
	if assoc.State.NextScoringAt == nil || assoc.State.NextScoringAt.After(e.now().UTC()) {
		return nil
	}

	_, err = e.rescoreAssociation(ctx, campaign, assoc)
	return err
}

// rescoreAssociation applies one scoring pass and returns the stage the
// association transitioned to (StageNurturing meaning it stays in the
// workflow for another cycle). A zero-value Stage means the lead was skipped.
func (e *Engine) rescoreAssociation(ctx context.Context, campaign campaignrepo.Campaign, assoc campaignrepo.CampaignLead) (Stage, error) {
	if assoc.State.NextScoringAt == nil {
		return "", nil
	}

	lead, err := e.leads.GetByID(ctx, assoc.LeadID)
	if err != nil {
		return "", fmt.Errorf("load lead: %w", err)
	}

	result, err := e.scorer.ScoreLead(ctx, profileFromLead(lead), e.cfg.GetRescoringIntervalDays())
	if err != nil {
		var formatErr *ports.UpstreamFormatError
		if errors.As(err, &formatErr) {
			return "", apperr.Upstream("score provider returned malformed output", err)
		}
		return "", fmt.Errorf("score lead: %w", err)
	}

	if err := e.leads.UpdateScore(ctx, lead.ID, result.Score); err != nil {
		return "", fmt.Errorf("persist lead score: %w", err)
	}

	now := e.now().UTC()
	score := result.Score

	switch {
	case score > e.cfg.GetMediumProbabilityThreshold():
		return campaignrepo.StageGraduated, e.graduate(ctx, campaign, assoc, lead, score, now)

	case assoc.State.Cycle < e.cfg.GetMaxNurturingCycles()-1:
		return campaignrepo.StageNurturing, e.continueNurturing(ctx, campaign, assoc, lead, score, now)

	default:
		return campaignrepo.StageLost, e.markLost(ctx, campaign, assoc, lead, score, now)
	}
}

func (e *Engine) graduate(ctx context.Context, campaign campaignrepo.Campaign, assoc campaignrepo.CampaignLead, lead leadrepo.Lead, score int, now time.Time) error {
	from := assoc.State.Stage
	state := assoc.State
	state.Stage = campaignrepo.StageGraduated
	state.PreviousScore = state.CurrentScore
	state.CurrentScore = &score
	state.FinalScore = &score
	state.LastScoredAt = &now
	state.NextScoringAt = nil

	if _, err := e.associations.UpdateState(ctx, campaignrepo.UpdateStateParams{
		ID:      assoc.ID,
		Version: assoc.Version,
		Status:  campaignrepo.StatusQualified,
		State:   state,
	}); err != nil {
		return fmt.Errorf("persist graduated state: %w", err)
	}

	err := e.outreach.CreateTask(ctx, ports.CreateTaskParams{
		LeadID:      lead.ID,
		Title:       "Follow up with " + lead.FullName(),
		Description: fmt.Sprintf("Lead graduated from nurturing with score %d. Reach out while it is warm.", score),
		Type:        "follow_up",
		Priority:    "high",
		DueAt:       now.AddDate(0, 0, 1),
		Cycle:       assoc.State.Cycle,
	})
	if err != nil {
		e.log.Error("failed to create follow-up task", "lead_id", lead.ID, "error", err)
	}

	e.bus.Publish(ctx, events.LeadGraduated{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     lead.ID,
		CampaignID: campaign.ID,
		FinalScore: score,
		Cycle:      assoc.State.Cycle,
	})
	e.log.StageTransition(lead.ID.String(), string(from), string(campaignrepo.StageGraduated), assoc.State.Cycle)
	return nil
}

func (e *Engine) continueNurturing(ctx context.Context, campaign campaignrepo.Campaign, assoc campaignrepo.CampaignLead, lead leadrepo.Lead, score int, now time.Time) error {
	state := assoc.State
	state.PreviousScore = state.CurrentScore
	state.CurrentScore = &score
	state.LastScoredAt = &now
	next := now.AddDate(0, 0, e.cfg.GetRescoringIntervalDays())
	state.NextScoringAt = &next

	updated, err := e.associations.UpdateState(ctx, campaignrepo.UpdateStateParams{
		ID:      assoc.ID,
		Version: assoc.Version,
		Status:  assoc.Status,
		State:   state,
	})
	if err != nil {
		return fmt.Errorf("persist rescored state: %w", err)
	}

	if err := e.ScheduleNurturingSequence(ctx, campaign, updated, lead, assoc.State.Cycle+1); err != nil {
		return fmt.Errorf("schedule cycle %d: %w", assoc.State.Cycle+1, err)
	}
	return nil
}

func (e *Engine) markLost(ctx context.Context, campaign campaignrepo.Campaign, assoc campaignrepo.CampaignLead, lead leadrepo.Lead, score int, now time.Time) error {
	from := assoc.State.Stage
	reason := lostReasonExhausted
	state := assoc.State
	state.Stage = campaignrepo.StageLost
	state.PreviousScore = state.CurrentScore
	state.CurrentScore = &score
	state.FinalScore = &score
	state.LastScoredAt = &now
	state.NextScoringAt = nil
	state.LostReason = &reason

	if _, err := e.associations.UpdateState(ctx, campaignrepo.UpdateStateParams{
		ID:      assoc.ID,
		Version: assoc.Version,
		Status:  campaignrepo.StatusRejected,
		State:   state,
	}); err != nil {
		return fmt.Errorf("persist lost state: %w", err)
	}

	if err := e.leads.MarkLost(ctx, lead.ID, reason); err != nil {
		return fmt.Errorf("mark lead lost: %w", err)
	}

	e.bus.Publish(ctx, events.LeadLost{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     lead.ID,
		CampaignID: campaign.ID,
		FinalScore: score,
	})
	e.log.StageTransition(lead.ID.String(), string(from), string(campaignrepo.StageLost), assoc.State.Cycle)
	return nil
}

// ManuallyUpgradeLead is the operator override: it bypasses scoring and
// moves the association straight to manually_upgraded. Valid from any
// non-terminal stage.
func (e *Engine) ManuallyUpgradeLead(ctx context.Context, leadID uuid.UUID, upgradedBy string) (campaignrepo.CampaignLead, error) {
	campaign, err := e.campaigns.EnsureNurturingCampaign(ctx)
	if err != nil {
		return campaignrepo.CampaignLead{}, err
	}

	assoc, err := e.associations.GetAssociation(ctx, campaign.ID, leadID)
	if errors.Is(err, campaignrepo.ErrNotFound) {
		return campaignrepo.CampaignLead{}, apperr.NotFound("lead is not enrolled in the nurturing campaign")
	}
	if err != nil {
		return campaignrepo.CampaignLead{}, apperr.Wrap(apperr.KindInternal, "failed to load association", err)
	}

	if !assoc.State.Stage.CanTransitionTo(campaignrepo.StageManuallyUpgraded) {
		return campaignrepo.CampaignLead{}, apperr.Conflict(
			fmt.Sprintf("cannot upgrade lead in %s stage", assoc.State.Stage))
	}

	lead, err := e.leads.GetByID(ctx, leadID)
	if err != nil {
		return campaignrepo.CampaignLead{}, apperr.Wrap(apperr.KindInternal, "failed to load lead", err)
	}

	now := e.now().UTC()
	from := assoc.State.Stage
	state := assoc.State
	state.Stage = campaignrepo.StageManuallyUpgraded
	state.UpgradedBy = &upgradedBy
	state.UpgradedAt = &now
	state.NextScoringAt = nil

	updated, err := e.associations.UpdateState(ctx, campaignrepo.UpdateStateParams{
		ID:      assoc.ID,
		Version: assoc.Version,
		Status:  campaignrepo.StatusQualified,
		State:   state,
	})
	if errors.Is(err, campaignrepo.ErrStaleVersion) {
		return campaignrepo.CampaignLead{}, apperr.Conflict("lead state changed concurrently, retry")
	}
	if err != nil {
		return campaignrepo.CampaignLead{}, apperr.Wrap(apperr.KindInternal, "failed to persist upgrade", err)
	}

	err = e.outreach.CreateTask(ctx, ports.CreateTaskParams{
		LeadID:      lead.ID,
		Title:       "Follow up with " + lead.FullName(),
		Description: "Lead was manually upgraded by " + upgradedBy + ". Reach out directly.",
		Type:        "follow_up",
		Priority:    "high",
		DueAt:       now.AddDate(0, 0, 1),
		Cycle:       assoc.State.Cycle,
	})
	if err != nil {
		e.log.Error("failed to create follow-up task", "lead_id", lead.ID, "error", err)
	}

	e.bus.Publish(ctx, events.LeadGraduated{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     lead.ID,
		CampaignID: campaign.ID,
		FinalScore: lead.LeadScore,
		Cycle:      assoc.State.Cycle,
		Manual:     true,
	})
	e.log.StageTransition(lead.ID.String(), string(from), string(campaignrepo.StageManuallyUpgraded), assoc.State.Cycle)
	return updated, nil
}

// Stats aggregates workflow counts for the reporting endpoint.
type Stats struct {
	TotalLeads             int
	ActiveLeads            int
	UpgradedLeads          int
	LostLeads              int
	HumanReviewLeads       int
	AverageCyclesToUpgrade *float64
	ConversionRate         float64
	LastRun                *time.Time
}

func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	campaign, err := e.campaigns.EnsureNurturingCampaign(ctx)
	if err != nil {
		return Stats{}, err
	}

	raw, err := e.associations.Stats(ctx, campaign.ID)
	if err != nil {
		return Stats{}, apperr.Wrap(apperr.KindInternal, "failed to aggregate workflow stats", err)
	}

	upgraded := raw.Graduated + raw.ManuallyUpgraded
	stats := Stats{
		TotalLeads:             raw.Total,
		ActiveLeads:            raw.Active,
		UpgradedLeads:          upgraded,
		LostLeads:              raw.Lost,
		HumanReviewLeads:       raw.HumanReview,
		AverageCyclesToUpgrade: raw.AvgCyclesToUpgrade,
	}
	if raw.Total > 0 {
		stats.ConversionRate = float64(upgraded) / float64(raw.Total)
	}
	if lastRun, ok := lastRunFromMetadata(campaign.Metadata); ok {
		stats.LastRun = &lastRun
	}
	return stats, nil
}

// ListWorkflowLeads lists campaign-lead rows with optional filters.
func (e *Engine) ListWorkflowLeads(ctx context.Context, params campaignrepo.ListAssociationsParams) ([]campaignrepo.CampaignLead, int, error) {
	campaign, err := e.campaigns.EnsureNurturingCampaign(ctx)
	if err != nil {
		return nil, 0, err
	}
	params.CampaignID = campaign.ID

	rows, total, err := e.associations.ListAssociations(ctx, params)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "failed to list workflow leads", err)
	}
	return rows, total, nil
}

// Stage aliases the campaigns repository stage type for callers of the
// engine's rescore results.
type Stage = campaignrepo.Stage

func profileFromLead(lead leadrepo.Lead) ports.LeadProfile {
	return ports.LeadProfile{
		ID:           lead.ID,
		Name:         lead.FullName(),
		Email:        deref(lead.Email),
		Company:      deref(lead.Company),
		Industry:     deref(lead.Industry),
		JobTitle:     deref(lead.JobTitle),
		Source:       deref(lead.Source),
		Status:       lead.Status,
		CurrentScore: lead.LeadScore,
		CreatedAt:    lead.CreatedAt,
	}
}

func lastRunFromMetadata(metadata map[string]interface{}) (time.Time, bool) {
	raw, ok := metadata["last_run_at"].(string)
	if !ok {
		return time.Time{}, false
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
