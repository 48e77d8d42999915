package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	campaignrepo "nurture_backend/internal/campaigns/repository"
	"nurture_backend/internal/events"
	leadrepo "nurture_backend/internal/leads/repository"
	"nurture_backend/internal/nurturing/ports"
	"nurture_backend/platform/apperr"
	"nurture_backend/platform/logger"
)

var testNow = time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

// fakeStore implements LeadStore, AssociationStore, and CampaignRegistry over
// in-memory maps with the same version CAS semantics as the real repository.
type fakeStore struct {
	leads    map[uuid.UUID]leadrepo.Lead
	low      []uuid.UUID
	lost     map[uuid.UUID]string
	assocs   map[uuid.UUID]campaignrepo.CampaignLead
	byLead   map[uuid.UUID]uuid.UUID
	campaign campaignrepo.Campaign
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		leads:  make(map[uuid.UUID]leadrepo.Lead),
		lost:   make(map[uuid.UUID]string),
		assocs: make(map[uuid.UUID]campaignrepo.CampaignLead),
		byLead: make(map[uuid.UUID]uuid.UUID),
		campaign: campaignrepo.Campaign{
			ID:       uuid.New(),
			Name:     "Low Probability Lead Nurturing",
			Status:   "active",
			Type:     "nurturing",
			Metadata: map[string]interface{}{},
		},
	}
}

func (f *fakeStore) GetByID(ctx context.Context, id uuid.UUID) (leadrepo.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return leadrepo.Lead{}, leadrepo.ErrNotFound
	}
	return lead, nil
}

func (f *fakeStore) ListLowProbabilityIDs(ctx context.Context, q leadrepo.LowProbabilityQuery) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0)
	for _, id := range f.low {
		lead := f.leads[id]
		if lead.LeadScore > q.MaxScore || lead.Status == "won" || lead.Status == "lost" {
			continue
		}
		if _, enrolled := f.byLead[id]; enrolled {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeStore) UpdateScore(ctx context.Context, id uuid.UUID, score int) error {
	lead, ok := f.leads[id]
	if !ok {
		return leadrepo.ErrNotFound
	}
	lead.LeadScore = score
	f.leads[id] = lead
	return nil
}

func (f *fakeStore) MarkLost(ctx context.Context, id uuid.UUID, reason string) error {
	lead, ok := f.leads[id]
	if !ok {
		return leadrepo.ErrNotFound
	}
	lead.Status = "lost"
	f.leads[id] = lead
	f.lost[id] = reason
	return nil
}

func (f *fakeStore) Enroll(ctx context.Context, params campaignrepo.EnrollParams) (campaignrepo.CampaignLead, error) {
	if _, ok := f.byLead[params.LeadID]; ok {
		return campaignrepo.CampaignLead{}, campaignrepo.ErrAlreadyEnrolled
	}
	if err := params.State.Validate(); err != nil {
		return campaignrepo.CampaignLead{}, err
	}
	cl := campaignrepo.CampaignLead{
		ID:         uuid.New(),
		CampaignID: params.CampaignID,
		LeadID:     params.LeadID,
		Status:     params.Status,
		State:      params.State,
		Version:    1,
		CreatedAt:  testNow,
		UpdatedAt:  testNow,
	}
	f.assocs[cl.ID] = cl
	f.byLead[params.LeadID] = cl.ID
	return cl, nil
}

func (f *fakeStore) GetAssociation(ctx context.Context, campaignID, leadID uuid.UUID) (campaignrepo.CampaignLead, error) {
	id, ok := f.byLead[leadID]
	if !ok {
		return campaignrepo.CampaignLead{}, campaignrepo.ErrNotFound
	}
	return f.assocs[id], nil
}

func (f *fakeStore) UpdateState(ctx context.Context, params campaignrepo.UpdateStateParams) (campaignrepo.CampaignLead, error) {
	cl, ok := f.assocs[params.ID]
	if !ok {
		return campaignrepo.CampaignLead{}, campaignrepo.ErrNotFound
	}
	if cl.Version != params.Version {
		return campaignrepo.CampaignLead{}, campaignrepo.ErrStaleVersion
	}
	if err := params.State.Validate(); err != nil {
		return campaignrepo.CampaignLead{}, err
	}
	cl.Status = params.Status
	cl.State = params.State
	cl.Version++
	f.assocs[params.ID] = cl
	return cl, nil
}

func (f *fakeStore) ListDueForScoring(ctx context.Context, campaignID uuid.UUID, now time.Time) ([]campaignrepo.CampaignLead, error) {
	due := make([]campaignrepo.CampaignLead, 0)
	for _, cl := range f.assocs {
		if cl.CampaignID != campaignID || cl.State.Stage.Terminal() {
			continue
		}
		switch cl.Status {
		case campaignrepo.StatusAdded, campaignrepo.StatusContacted, campaignrepo.StatusResponded:
		default:
			continue
		}
		if cl.State.NextScoringAt == nil || cl.State.NextScoringAt.After(now) {
			continue
		}
		due = append(due, cl)
	}
	return due, nil
}

func (f *fakeStore) ListAssociations(ctx context.Context, params campaignrepo.ListAssociationsParams) ([]campaignrepo.CampaignLead, int, error) {
	rows := make([]campaignrepo.CampaignLead, 0)
	for _, cl := range f.assocs {
		if cl.CampaignID == params.CampaignID {
			rows = append(rows, cl)
		}
	}
	return rows, len(rows), nil
}

func (f *fakeStore) Stats(ctx context.Context, campaignID uuid.UUID) (campaignrepo.WorkflowStats, error) {
	var stats campaignrepo.WorkflowStats
	for _, cl := range f.assocs {
		if cl.CampaignID != campaignID {
			continue
		}
		stats.Total++
		switch cl.State.Stage {
		case campaignrepo.StageInitial, campaignrepo.StageNurturing:
			stats.Active++
		case campaignrepo.StageGraduated:
			stats.Graduated++
		case campaignrepo.StageManuallyUpgraded:
			stats.ManuallyUpgraded++
		case campaignrepo.StageHumanReview:
			stats.HumanReview++
		case campaignrepo.StageLost:
			stats.Lost++
		}
	}
	return stats, nil
}

func (f *fakeStore) EnsureNurturingCampaign(ctx context.Context) (campaignrepo.Campaign, error) {
	return f.campaign, nil
}

func (f *fakeStore) RecordWorkflowRun(ctx context.Context, id uuid.UUID, at time.Time) error {
	f.campaign.Metadata["last_run_at"] = at.Format(time.RFC3339)
	return nil
}

type fakeScorer struct {
	score     int
	err       error
	calls     int
	timeframe int
}

func (s *fakeScorer) ScoreLead(ctx context.Context, profile ports.LeadProfile, timeframeDays int) (ports.ScoreResult, error) {
	s.calls++
	s.timeframe = timeframeDays
	if s.err != nil {
		return ports.ScoreResult{}, s.err
	}
	return ports.ScoreResult{Score: s.score, ConversionProbability: s.score}, nil
}

type fakeComposer struct {
	err error
}

func (c *fakeComposer) ComposeEmail(ctx context.Context, profile ports.LeadProfile, templateType string, cycle int) (ports.EmailContent, error) {
	if c.err != nil {
		return ports.EmailContent{}, c.err
	}
	return ports.EmailContent{
		Subject:     "generated: " + templateType,
		Body:        "generated body for " + profile.Name,
		AIGenerated: true,
	}, nil
}

type fakeOutreach struct {
	emails []ports.ScheduleEmailParams
	tasks  []ports.CreateTaskParams
}

func (o *fakeOutreach) ScheduleEmail(ctx context.Context, params ports.ScheduleEmailParams) error {
	o.emails = append(o.emails, params)
	return nil
}

func (o *fakeOutreach) CreateTask(ctx context.Context, params ports.CreateTaskParams) error {
	o.tasks = append(o.tasks, params)
	return nil
}

type fakeBus struct {
	published []events.Event
}

func (b *fakeBus) Publish(ctx context.Context, event events.Event)          { b.published = append(b.published, event) }
func (b *fakeBus) PublishSync(ctx context.Context, event events.Event) error { b.published = append(b.published, event); return nil }
func (b *fakeBus) Subscribe(eventName string, handler events.Handler)       {}

type fixedConfig struct{}

func (fixedConfig) GetLowProbabilityThreshold() int    { return 30 }
func (fixedConfig) GetMediumProbabilityThreshold() int { return 60 }
func (fixedConfig) GetMaxNurturingCycles() int         { return 3 }
func (fixedConfig) GetRescoringIntervalDays() int      { return 14 }
func (fixedConfig) GetMinDaysSinceLastContact() int    { return 7 }

type testEnv struct {
	engine   *Engine
	store    *fakeStore
	scorer   *fakeScorer
	composer *fakeComposer
	outreach *fakeOutreach
	bus      *fakeBus
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	templates, err := LoadTemplates()
	if err != nil {
		t.Fatalf("load templates: %v", err)
	}

	store := newFakeStore()
	scorer := &fakeScorer{score: 40}
	composer := &fakeComposer{}
	outreach := &fakeOutreach{}
	bus := &fakeBus{}

	engine := NewEngine(EngineParams{
		Leads:        store,
		Associations: store,
		Campaigns:    store,
		Scorer:       scorer,
		Composer:     composer,
		Outreach:     outreach,
		Templates:    templates,
		Bus:          bus,
		Logger:       logger.New("development"),
		Config:       fixedConfig{},
	})
	engine.now = func() time.Time { return testNow }

	return &testEnv{
		engine:   engine,
		store:    store,
		scorer:   scorer,
		composer: composer,
		outreach: outreach,
		bus:      bus,
	}
}

func (env *testEnv) addLead(score int, status string) uuid.UUID {
	id := uuid.New()
	company := "Acme Corp"
	env.store.leads[id] = leadrepo.Lead{
		ID:        id,
		FirstName: "Taylor",
		LastName:  "Reed",
		Company:   &company,
		Status:    status,
		LeadScore: score,
		CreatedAt: testNow.AddDate(0, -2, 0),
	}
	env.store.low = append(env.store.low, id)
	return id
}

// enrollAt puts a lead directly into the nurturing stage at the given cycle
// with a scoring date already due.
func (env *testEnv) enrollAt(t *testing.T, leadID uuid.UUID, cycle int) campaignrepo.CampaignLead {
	t.Helper()

	due := testNow.Add(-time.Hour)
	cl, err := env.store.Enroll(context.Background(), campaignrepo.EnrollParams{
		CampaignID: env.store.campaign.ID,
		LeadID:     leadID,
		Status:     campaignrepo.StatusContacted,
		State: campaignrepo.NurtureState{
			Stage:         campaignrepo.StageNurturing,
			Cycle:         cycle,
			NextScoringAt: &due,
		},
	})
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	return cl
}

func TestRunEnrollsLowProbabilityLead(t *testing.T) {
	env := newTestEnv(t)
	leadID := env.addLead(20, "new")

	summary, err := env.engine.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if summary.Identified != 1 || len(summary.Added) != 1 {
		t.Fatalf("expected 1 identified and 1 added, got %d/%d", summary.Identified, len(summary.Added))
	}

	assoc, err := env.store.GetAssociation(context.Background(), env.store.campaign.ID, leadID)
	if err != nil {
		t.Fatalf("association missing: %v", err)
	}
	if assoc.State.Stage != campaignrepo.StageNurturing {
		t.Fatalf("expected nurturing stage after enrollment, got %s", assoc.State.Stage)
	}
	if assoc.State.Cycle != 0 {
		t.Fatalf("expected cycle 0, got %d", assoc.State.Cycle)
	}
	if assoc.Status != campaignrepo.StatusContacted {
		t.Fatalf("expected contacted status, got %s", assoc.Status)
	}

	if len(env.outreach.emails) != 2 {
		t.Fatalf("expected 2 scheduled emails, got %d", len(env.outreach.emails))
	}
	if got := env.outreach.emails[0].SendAt; !got.Equal(testNow) {
		t.Fatalf("first email expected at %v, got %v", testNow, got)
	}
	if got := env.outreach.emails[1].SendAt; !got.Equal(testNow.AddDate(0, 0, 4)) {
		t.Fatalf("second email expected at +4d, got %v", got)
	}
	if env.outreach.emails[0].TemplateType != "educational" || env.outreach.emails[1].TemplateType != "social_proof" {
		t.Fatalf("unexpected cycle 0 template order: %s, %s",
			env.outreach.emails[0].TemplateType, env.outreach.emails[1].TemplateType)
	}
	if len(env.outreach.tasks) != 1 {
		t.Fatalf("expected 1 review task, got %d", len(env.outreach.tasks))
	}
	if got := env.outreach.tasks[0].DueAt; !got.Equal(testNow.AddDate(0, 0, 7)) {
		t.Fatalf("review task expected at +7d, got %v", got)
	}

	var enrolled bool
	for _, event := range env.bus.published {
		if _, ok := event.(events.LeadEnrolled); ok {
			enrolled = true
		}
	}
	if !enrolled {
		t.Fatal("expected LeadEnrolled event")
	}
}

func TestRunIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.addLead(20, "new")

	if _, err := env.engine.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	scorerCallsAfterFirst := env.scorer.calls

	summary, err := env.engine.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(summary.Added) != 0 {
		t.Fatalf("second run enrolled %d leads, expected 0", len(summary.Added))
	}
	if env.scorer.calls != scorerCallsAfterFirst {
		t.Fatalf("second run rescored leads before their scoring date")
	}
}

func TestHighScoreNeverEnrolls(t *testing.T) {
	env := newTestEnv(t)
	env.addLead(55, "new")
	env.addLead(20, "won")
	env.addLead(20, "lost")

	summary, err := env.engine.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Identified != 0 {
		t.Fatalf("expected no candidates, got %d", summary.Identified)
	}
}

func TestScheduleAtCycleCapGoesToHumanReview(t *testing.T) {
	env := newTestEnv(t)
	leadID := env.addLead(25, "new")
	assoc := env.enrollAt(t, leadID, 2)

	err := env.engine.ScheduleNurturingSequence(
		context.Background(), env.store.campaign, assoc, env.store.leads[leadID], 3)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	updated := env.store.assocs[assoc.ID]
	if updated.State.Stage != campaignrepo.StageHumanReview {
		t.Fatalf("expected human_review, got %s", updated.State.Stage)
	}
	if len(env.outreach.emails) != 0 {
		t.Fatalf("no content should be generated at the cycle cap, got %d emails", len(env.outreach.emails))
	}
	if len(env.outreach.tasks) != 1 || env.outreach.tasks[0].Type != "human_review" {
		t.Fatalf("expected a single human_review task")
	}
	if got := env.outreach.tasks[0].DueAt; !got.Equal(testNow.AddDate(0, 0, 2)) {
		t.Fatalf("review task expected due in 2 days, got %v", got)
	}
}

func TestRescoreAboveThresholdGraduates(t *testing.T) {
	env := newTestEnv(t)
	leadID := env.addLead(25, "new")
	assoc := env.enrollAt(t, leadID, 0)
	env.scorer.score = 75

	outcome := env.engine.RescoreLeads(context.Background(), env.store.campaign)

	if len(outcome.Upgraded) != 1 || outcome.Upgraded[0] != leadID {
		t.Fatalf("expected lead in upgraded list, got %+v", outcome)
	}
	if env.scorer.timeframe != 14 {
		t.Fatalf("scorer must use the rescoring interval as lookback, got %d days", env.scorer.timeframe)
	}

	updated := env.store.assocs[assoc.ID]
	if updated.State.Stage != campaignrepo.StageGraduated {
		t.Fatalf("expected graduated, got %s", updated.State.Stage)
	}
	if updated.Status != campaignrepo.StatusQualified {
		t.Fatalf("expected qualified status, got %s", updated.Status)
	}
	if updated.State.FinalScore == nil || *updated.State.FinalScore != 75 {
		t.Fatalf("expected final score 75, got %v", updated.State.FinalScore)
	}
	if env.store.leads[leadID].LeadScore != 75 {
		t.Fatalf("lead score not persisted, got %d", env.store.leads[leadID].LeadScore)
	}

	if len(env.outreach.tasks) != 1 {
		t.Fatalf("expected follow-up task, got %d tasks", len(env.outreach.tasks))
	}
	task := env.outreach.tasks[0]
	if task.Type != "follow_up" || task.Priority != "high" {
		t.Fatalf("expected high-priority follow_up task, got %s/%s", task.Type, task.Priority)
	}
	if !task.DueAt.Equal(testNow.AddDate(0, 0, 1)) {
		t.Fatalf("follow-up task expected due next day, got %v", task.DueAt)
	}
}

func TestRescoreGraduatesOnFinalCycleToo(t *testing.T) {
	env := newTestEnv(t)
	leadID := env.addLead(25, "new")
	assoc := env.enrollAt(t, leadID, 2)
	env.scorer.score = 75

	outcome := env.engine.RescoreLeads(context.Background(), env.store.campaign)

	if len(outcome.Upgraded) != 1 {
		t.Fatalf("expected upgrade on final cycle, got %+v", outcome)
	}
	if env.store.assocs[assoc.ID].State.Stage != campaignrepo.StageGraduated {
		t.Fatalf("expected graduated regardless of cycle")
	}
}

func TestRescoreBelowThresholdOnFinalCycleMarksLost(t *testing.T) {
	env := newTestEnv(t)
	leadID := env.addLead(25, "new")
	assoc := env.enrollAt(t, leadID, 2)
	env.scorer.score = 45

	outcome := env.engine.RescoreLeads(context.Background(), env.store.campaign)

	if len(outcome.Completed) != 1 || outcome.Completed[0] != leadID {
		t.Fatalf("expected lead in completed list, got %+v", outcome)
	}

	updated := env.store.assocs[assoc.ID]
	if updated.State.Stage != campaignrepo.StageLost {
		t.Fatalf("expected lost, got %s", updated.State.Stage)
	}
	if updated.Status != campaignrepo.StatusRejected {
		t.Fatalf("expected rejected status, got %s", updated.Status)
	}
	if env.store.leads[leadID].Status != "lost" {
		t.Fatalf("parent lead status not forced to lost, got %s", env.store.leads[leadID].Status)
	}
	if _, ok := env.store.lost[leadID]; !ok {
		t.Fatal("expected lost reason annotation on lead")
	}

	var lostEvent bool
	for _, event := range env.bus.published {
		if _, ok := event.(events.LeadLost); ok {
			lostEvent = true
		}
	}
	if !lostEvent {
		t.Fatal("expected LeadLost event")
	}
}

func TestRescoreBelowThresholdContinuesNurturing(t *testing.T) {
	env := newTestEnv(t)
	leadID := env.addLead(25, "new")
	assoc := env.enrollAt(t, leadID, 0)
	score := 25
	cl := env.store.assocs[assoc.ID]
	cl.State.CurrentScore = &score
	env.store.assocs[assoc.ID] = cl
	env.scorer.score = 40

	outcome := env.engine.RescoreLeads(context.Background(), env.store.campaign)

	if len(outcome.Remained) != 1 || outcome.Remained[0] != leadID {
		t.Fatalf("expected lead in remained list, got %+v", outcome)
	}

	updated := env.store.assocs[assoc.ID]
	if updated.State.Stage != campaignrepo.StageNurturing {
		t.Fatalf("expected nurturing, got %s", updated.State.Stage)
	}
	if updated.State.Cycle != 1 {
		t.Fatalf("expected cycle 1, got %d", updated.State.Cycle)
	}
	if updated.State.PreviousScore == nil || *updated.State.PreviousScore != 25 {
		t.Fatalf("previous score not stashed, got %v", updated.State.PreviousScore)
	}
	if updated.State.CurrentScore == nil || *updated.State.CurrentScore != 40 {
		t.Fatalf("current score not recorded, got %v", updated.State.CurrentScore)
	}
	if updated.State.NextScoringAt == nil || !updated.State.NextScoringAt.Equal(testNow.AddDate(0, 0, 14)) {
		t.Fatalf("next scoring date not advanced, got %v", updated.State.NextScoringAt)
	}

	if len(env.outreach.emails) != 2 {
		t.Fatalf("expected 2 cycle-1 emails, got %d", len(env.outreach.emails))
	}
	if env.outreach.emails[0].TemplateType != "pain_point" || env.outreach.emails[1].TemplateType != "educational" {
		t.Fatalf("unexpected cycle 1 template order: %s, %s",
			env.outreach.emails[0].TemplateType, env.outreach.emails[1].TemplateType)
	}
}

func TestComposerFailureFallsBackToTemplates(t *testing.T) {
	env := newTestEnv(t)
	env.addLead(20, "new")
	env.composer.err = errors.New("model timeout")

	if _, err := env.engine.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(env.outreach.emails) != 2 {
		t.Fatalf("expected 2 emails despite composer failure, got %d", len(env.outreach.emails))
	}
	for _, email := range env.outreach.emails {
		if email.AIGenerated {
			t.Fatalf("fallback email must not be tagged ai_generated")
		}
		if email.Subject == "" || email.Body == "" {
			t.Fatalf("fallback email has empty content")
		}
	}
}

func TestRescoreSkipsLeadOnScorerFailure(t *testing.T) {
	env := newTestEnv(t)
	leadID := env.addLead(25, "new")
	assoc := env.enrollAt(t, leadID, 0)
	env.scorer.err = &ports.UpstreamFormatError{Agent: "LeadScorer", Raw: "oops", Err: errors.New("bad json")}

	outcome := env.engine.RescoreLeads(context.Background(), env.store.campaign)

	if len(outcome.Upgraded)+len(outcome.Remained)+len(outcome.Completed) != 0 {
		t.Fatalf("failed lead must not appear in any outcome list: %+v", outcome)
	}

	updated := env.store.assocs[assoc.ID]
	if updated.State.Stage != campaignrepo.StageNurturing {
		t.Fatalf("state must be unchanged on scorer failure, got %s", updated.State.Stage)
	}
	if updated.State.NextScoringAt == nil || !updated.State.NextScoringAt.Equal(testNow.Add(-time.Hour)) {
		t.Fatalf("next scoring date must be left unchanged for retry")
	}
}

func TestRescoreLeadSkipsBeforeScoringDate(t *testing.T) {
	env := newTestEnv(t)
	leadID := env.addLead(25, "new")
	assoc := env.enrollAt(t, leadID, 1)

	future := testNow.AddDate(0, 0, 10)
	cl := env.store.assocs[assoc.ID]
	cl.State.NextScoringAt = &future
	env.store.assocs[assoc.ID] = cl
	env.scorer.score = 40

	if err := env.engine.RescoreLead(context.Background(), leadID); err != nil {
		t.Fatalf("rescore: %v", err)
	}

	if env.scorer.calls != 0 {
		t.Fatalf("lead was rescored %d time(s) before its scoring date", env.scorer.calls)
	}
	updated := env.store.assocs[assoc.ID]
	if updated.State.Cycle != 1 {
		t.Fatalf("cycle must not advance early, got %d", updated.State.Cycle)
	}
	if updated.State.NextScoringAt == nil || !updated.State.NextScoringAt.Equal(future) {
		t.Fatalf("next scoring date must be unchanged, got %v", updated.State.NextScoringAt)
	}
	if len(env.outreach.emails) != 0 {
		t.Fatalf("no outreach may be scheduled ahead of cadence, got %d emails", len(env.outreach.emails))
	}
}

func TestRescoreLeadProcessesWhenDue(t *testing.T) {
	env := newTestEnv(t)
	leadID := env.addLead(25, "new")
	assoc := env.enrollAt(t, leadID, 0)
	env.scorer.score = 75

	if err := env.engine.RescoreLead(context.Background(), leadID); err != nil {
		t.Fatalf("rescore: %v", err)
	}

	if env.scorer.calls != 1 {
		t.Fatalf("expected exactly one scoring call, got %d", env.scorer.calls)
	}
	if env.store.assocs[assoc.ID].State.Stage != campaignrepo.StageGraduated {
		t.Fatalf("expected graduated, got %s", env.store.assocs[assoc.ID].State.Stage)
	}
}

func TestManualUpgrade(t *testing.T) {
	env := newTestEnv(t)
	leadID := env.addLead(25, "new")
	env.enrollAt(t, leadID, 1)

	updated, err := env.engine.ManuallyUpgradeLead(context.Background(), leadID, "operator@example.com")
	if err != nil {
		t.Fatalf("manual upgrade: %v", err)
	}

	if updated.State.Stage != campaignrepo.StageManuallyUpgraded {
		t.Fatalf("expected manually_upgraded, got %s", updated.State.Stage)
	}
	if updated.Status != campaignrepo.StatusQualified {
		t.Fatalf("expected qualified status, got %s", updated.Status)
	}
	if updated.State.UpgradedBy == nil || *updated.State.UpgradedBy != "operator@example.com" {
		t.Fatalf("operator not recorded, got %v", updated.State.UpgradedBy)
	}

	var graduated events.LeadGraduated
	for _, event := range env.bus.published {
		if e, ok := event.(events.LeadGraduated); ok {
			graduated = e
		}
	}
	if !graduated.Manual {
		t.Fatal("expected manual graduation event")
	}

	// Terminal stages reject a second upgrade.
	if _, err := env.engine.ManuallyUpgradeLead(context.Background(), leadID, "operator@example.com"); err == nil {
		t.Fatal("expected conflict on already-terminal association")
	} else if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict kind, got %v", apperr.GetKind(err))
	}
}

func TestManualUpgradeFromHumanReview(t *testing.T) {
	env := newTestEnv(t)
	leadID := env.addLead(25, "new")

	_, err := env.store.Enroll(context.Background(), campaignrepo.EnrollParams{
		CampaignID: env.store.campaign.ID,
		LeadID:     leadID,
		Status:     campaignrepo.StatusContacted,
		State: campaignrepo.NurtureState{
			Stage: campaignrepo.StageHumanReview,
			Cycle: 3,
		},
	})
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}

	updated, err := env.engine.ManuallyUpgradeLead(context.Background(), leadID, "operator@example.com")
	if err != nil {
		t.Fatalf("upgrade from human review must be allowed: %v", err)
	}
	if updated.State.Stage != campaignrepo.StageManuallyUpgraded {
		t.Fatalf("expected manually_upgraded, got %s", updated.State.Stage)
	}
}

func TestStatsAggregates(t *testing.T) {
	env := newTestEnv(t)

	graduatedLead := env.addLead(25, "new")
	env.enrollAt(t, graduatedLead, 1)
	env.scorer.score = 80
	env.engine.RescoreLeads(context.Background(), env.store.campaign)

	activeLead := env.addLead(22, "new")
	env.enrollAt(t, activeLead, 0)
	cl := env.store.assocs[env.store.byLead[activeLead]]
	future := testNow.AddDate(0, 0, 10)
	cl.State.NextScoringAt = &future
	env.store.assocs[cl.ID] = cl

	stats, err := env.engine.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}

	if stats.TotalLeads != 2 {
		t.Fatalf("expected 2 total, got %d", stats.TotalLeads)
	}
	if stats.UpgradedLeads != 1 {
		t.Fatalf("expected 1 upgraded, got %d", stats.UpgradedLeads)
	}
	if stats.ActiveLeads != 1 {
		t.Fatalf("expected 1 active, got %d", stats.ActiveLeads)
	}
	if stats.ConversionRate != 0.5 {
		t.Fatalf("expected conversion rate 0.5, got %f", stats.ConversionRate)
	}
}
