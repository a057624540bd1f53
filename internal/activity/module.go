// Package activity provides the audit log bounded context module. It
// subscribes to domain events and serves the admin activity search.
package activity

import (
	"factory_portal_backend/internal/activity/handler"
	"factory_portal_backend/internal/activity/repository"
	"factory_portal_backend/internal/activity/service"
	"factory_portal_backend/internal/events"
	apphttp "factory_portal_backend/internal/http"
	"factory_portal_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the activity bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the activity module.
func NewModule(pool *pgxpool.Pool, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	h := handler.New(svc)

	return &Module{handler: h, service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "activity"
}

// Service returns the service layer for the stale-reminder worker.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterHandlers subscribes the module to the event bus.
func (m *Module) RegisterHandlers(bus events.Bus) {
	m.service.RegisterHandlers(bus)
}

// RegisterRoutes mounts activity routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Admin.GET("/activity", m.handler.Search)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
