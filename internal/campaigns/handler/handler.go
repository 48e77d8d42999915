package handler

import (
	"net/http"
	"strconv"

	"nurture_backend/internal/campaigns/repository"
	"nurture_backend/internal/campaigns/service"
	"nurture_backend/internal/campaigns/transport"
	"nurture_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.GetByID)
}

func (h *Handler) List(c *gin.Context) {
	limit := parseIntQuery(c, "limit", 20)
	offset := parseIntQuery(c, "offset", 0)

	campaigns, total, err := h.svc.List(c.Request.Context(), limit, offset)
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]transport.CampaignResponse, len(campaigns))
	for i, campaign := range campaigns {
		items[i] = toCampaignResponse(campaign)
	}

	httpkit.OK(c, transport.CampaignListResponse{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid campaign id", nil)
		return
	}

	campaign, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, toCampaignResponse(campaign))
}

func toCampaignResponse(campaign repository.Campaign) transport.CampaignResponse {
	return transport.CampaignResponse{
		ID:        campaign.ID,
		Name:      campaign.Name,
		Status:    campaign.Status,
		Type:      campaign.Type,
		StartDate: campaign.StartDate,
		EndDate:   campaign.EndDate,
		Metadata:  campaign.Metadata,
		CreatedAt: campaign.CreatedAt,
		UpdatedAt: campaign.UpdatedAt,
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
