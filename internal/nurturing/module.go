// Package nurturing wires the low probability lead nurturing workflow: the
// engine, its AI agents, and the HTTP surface.
package nurturing

import (
	"context"
	"fmt"
	"time"

	campaignrepo "nurture_backend/internal/campaigns/repository"
	campaignservice "nurture_backend/internal/campaigns/service"
	"nurture_backend/internal/events"
	apphttp "nurture_backend/internal/http"
	leadrepo "nurture_backend/internal/leads/repository"
	"nurture_backend/internal/nurturing/agent"
	"nurture_backend/internal/nurturing/handler"
	"nurture_backend/internal/nurturing/ports"
	"nurture_backend/internal/nurturing/workflow"
	"nurture_backend/internal/outreach"
	outreachrepo "nurture_backend/internal/outreach/repository"
	"nurture_backend/platform/config"
	"nurture_backend/platform/logger"
	"nurture_backend/platform/validator"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the nurturing bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	engine  *workflow.Engine
}

type ModuleParams struct {
	Pool             *pgxpool.Pool
	Bus              events.Bus
	Validator        *validator.Validator
	Logger           *logger.Logger
	Workflow         config.WorkflowConfig
	AI               config.AIConfig
	LeadsRepo        *leadrepo.Repository
	CampaignsRepo    *campaignrepo.Repository
	CampaignsService *campaignservice.Service
}

// NewModule builds the workflow engine and its HTTP handler. When AI is
// disabled the heuristic scorer and static templates take over, so the
// workflow stays runnable without a model API key.
func NewModule(params ModuleParams) (*Module, error) {
	templates, err := workflow.LoadTemplates()
	if err != nil {
		return nil, fmt.Errorf("nurturing module: %w", err)
	}

	var scorer ports.Scorer
	var composer ports.Composer
	if params.AI.IsAIEnabled() {
		scorer, err = agent.NewScorer(agent.ScorerConfig{
			APIKey:            params.AI.GetMoonshotAPIKey(),
			Model:             params.AI.GetMoonshotModel(),
			RequestsPerMinute: params.AI.GetAIRequestsPerMinute(),
		}, params.LeadsRepo)
		if err != nil {
			return nil, fmt.Errorf("nurturing module: %w", err)
		}
		composer, err = agent.NewComposer(agent.ComposerConfig{
			APIKey:            params.AI.GetMoonshotAPIKey(),
			Model:             params.AI.GetMoonshotModel(),
			RequestsPerMinute: params.AI.GetAIRequestsPerMinute(),
		})
		if err != nil {
			return nil, fmt.Errorf("nurturing module: %w", err)
		}
	} else {
		scorer = agent.NewOfflineScorer(params.LeadsRepo)
		composer = agent.OfflineComposer{}
	}

	engine := workflow.NewEngine(workflow.EngineParams{
		Leads:        params.LeadsRepo,
		Associations: params.CampaignsRepo,
		Campaigns:    &campaignRegistry{svc: params.CampaignsService},
		Scorer:       scorer,
		Composer:     composer,
		Outreach:     outreach.NewWriter(outreachrepo.New(params.Pool)),
		Templates:    templates,
		Bus:          params.Bus,
		Logger:       params.Logger,
		Config:       params.Workflow,
	})

	return &Module{
		handler: handler.New(engine, params.Validator),
		engine:  engine,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string { return "nurturing" }

// RegisterRoutes mounts the nurturing routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1.Group("/nurturing"))
}

// Engine exposes the workflow engine for the scheduler worker.
func (m *Module) Engine() *workflow.Engine { return m.engine }

// campaignRegistry adapts the campaigns service to the engine interface.
type campaignRegistry struct {
	svc *campaignservice.Service
}

var _ workflow.CampaignRegistry = (*campaignRegistry)(nil)

func (r *campaignRegistry) EnsureNurturingCampaign(ctx context.Context) (campaignrepo.Campaign, error) {
	return r.svc.EnsureNurturingCampaign(ctx)
}

func (r *campaignRegistry) RecordWorkflowRun(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.svc.RecordWorkflowRun(ctx, id, at)
}
