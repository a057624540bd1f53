// Package checklist provides the checklist catalog bounded context module.
package checklist

import (
	"context"

	"factory_portal_backend/internal/checklist/handler"
	"factory_portal_backend/internal/checklist/repository"
	"factory_portal_backend/internal/checklist/service"
	apphttp "factory_portal_backend/internal/http"
	"factory_portal_backend/platform/logger"
	"factory_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the checklist bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the checklist module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "checklist"
}

// Service returns the service layer for catalog reads by other modules.
func (m *Module) Service() *service.Service {
	return m.service
}

// Seed loads the YAML catalog seed for stages that are still empty.
func (m *Module) Seed(ctx context.Context, path string) error {
	return m.service.SeedFromFile(ctx, path)
}

// RegisterRoutes mounts checklist routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Operators read the catalog through their station screens; the raw
	// listing is still useful for the frontend's admin preview.
	ctx.Protected.GET("/checklist/:stage", m.handler.ListItems)

	adminGroup := ctx.Admin.Group("/checklist")
	adminGroup.POST("/:stage", m.handler.CreateItem)
	adminGroup.PUT("/items/:id", m.handler.UpdateItem)
	adminGroup.DELETE("/items/:id", m.handler.DeactivateItem)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
