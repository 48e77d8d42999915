package handler

import (
	"net/http"
	"strconv"

	"nurture_backend/internal/campaigns/repository"
	"nurture_backend/internal/nurturing/transport"
	"nurture_backend/internal/nurturing/workflow"
	"nurture_backend/platform/httpkit"
	"nurture_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	engine *workflow.Engine
	val    *validator.Validator
}

func New(engine *workflow.Engine, val *validator.Validator) *Handler {
	return &Handler{engine: engine, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/run", h.Run)
	rg.GET("/stats", h.Stats)
	rg.GET("/leads", h.ListLeads)
	rg.POST("/leads/:leadId/manual-upgrade", h.ManualUpgrade)
}

func (h *Handler) Run(c *gin.Context) {
	summary, err := h.engine.Run(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.RunSummaryResponse{
		CampaignID: summary.CampaignID,
		Identified: summary.Identified,
		Added:      summary.Added,
		Upgraded:   summary.Upgraded,
		Remained:   summary.Remained,
		Completed:  summary.Completed,
		RanAt:      summary.RanAt,
	})
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.engine.Stats(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.StatsResponse{
		TotalLeads:             stats.TotalLeads,
		ActiveLeads:            stats.ActiveLeads,
		UpgradedLeads:          stats.UpgradedLeads,
		LostLeads:              stats.LostLeads,
		HumanReviewLeads:       stats.HumanReviewLeads,
		AverageCyclesToUpgrade: stats.AverageCyclesToUpgrade,
		ConversionRate:         stats.ConversionRate,
		LastRun:                stats.LastRun,
	})
}

func (h *Handler) ListLeads(c *gin.Context) {
	params := repository.ListAssociationsParams{
		Limit:  parseIntQuery(c, "limit", 20),
		Offset: parseIntQuery(c, "offset", 0),
	}
	if raw := c.Query("status"); raw != "" {
		status := repository.AssociationStatus(raw)
		if !status.Valid() {
			httpkit.Error(c, http.StatusBadRequest, "unknown status filter", nil)
			return
		}
		params.Status = &status
	}
	if raw := c.Query("stage"); raw != "" {
		stage := repository.Stage(raw)
		if !stage.Valid() {
			httpkit.Error(c, http.StatusBadRequest, "unknown stage filter", nil)
			return
		}
		params.Stage = &stage
	}
	if raw := c.Query("cycle"); raw != "" {
		cycle, err := strconv.Atoi(raw)
		if err != nil || cycle < 0 {
			httpkit.Error(c, http.StatusBadRequest, "invalid cycle filter", nil)
			return
		}
		params.Cycle = &cycle
	}

	rows, total, err := h.engine.ListWorkflowLeads(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]transport.WorkflowLeadResponse, len(rows))
	for i, row := range rows {
		items[i] = toWorkflowLeadResponse(row)
	}

	httpkit.OK(c, transport.WorkflowLeadListResponse{
		Items:  items,
		Total:  total,
		Limit:  params.Limit,
		Offset: params.Offset,
	})
}

func (h *Handler) ManualUpgrade(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid lead id", nil)
		return
	}

	var req transport.ManualUpgradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	assoc, err := h.engine.ManuallyUpgradeLead(c.Request.Context(), leadID, req.UpgradedBy)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, toWorkflowLeadResponse(assoc))
}

func toWorkflowLeadResponse(row repository.CampaignLead) transport.WorkflowLeadResponse {
	return transport.WorkflowLeadResponse{
		ID:            row.ID,
		CampaignID:    row.CampaignID,
		LeadID:        row.LeadID,
		Status:        string(row.Status),
		Stage:         string(row.State.Stage),
		Cycle:         row.State.Cycle,
		CurrentScore:  row.State.CurrentScore,
		PreviousScore: row.State.PreviousScore,
		FinalScore:    row.State.FinalScore,
		LastScoredAt:  row.State.LastScoredAt,
		NextScoringAt: row.State.NextScoringAt,
		UpgradedBy:    row.State.UpgradedBy,
		UpgradedAt:    row.State.UpgradedAt,
		LostReason:    row.State.LostReason,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

func parseIntQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}
