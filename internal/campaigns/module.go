// Package campaigns provides the campaign bounded context module.
package campaigns

import (
	"nurture_backend/internal/campaigns/handler"
	"nurture_backend/internal/campaigns/repository"
	"nurture_backend/internal/campaigns/service"
	apphttp "nurture_backend/internal/http"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the campaigns bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the campaigns module.
func NewModule(pool *pgxpool.Pool) *Module {
	repo := repository.New(pool)
	svc := service.New(repo)

	return &Module{
		handler: handler.New(svc),
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "campaigns" }

// RegisterRoutes mounts the campaign routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1.Group("/campaigns"))
}

// Repository exposes the campaigns repository for cross-module wiring.
func (m *Module) Repository() *repository.Repository { return m.repo }

// Service exposes the campaigns service for cross-module wiring.
func (m *Module) Service() *service.Service { return m.service }
