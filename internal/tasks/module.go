// Package tasks provides the task record bounded context module. It owns
// the durable stage records and implements the gateway the station
// engines persist through.
package tasks

import (
	"factory_portal_backend/internal/events"
	apphttp "factory_portal_backend/internal/http"
	"factory_portal_backend/internal/tasks/handler"
	"factory_portal_backend/internal/tasks/repository"
	"factory_portal_backend/internal/tasks/service"
	"factory_portal_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the tasks bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the tasks module. The reminder
// scheduler may be nil when Redis is not configured.
func NewModule(pool *pgxpool.Pool, catalogs service.CatalogReader, bus events.Bus, reminder service.StaleReminderScheduler, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, catalogs, bus, reminder, log)
	h := handler.New(svc)

	return &Module{handler: h, service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "tasks"
}

// Service returns the record service; the stations module uses it as its
// tracking.Gateway.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts task routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/tasks/pending", m.handler.ListPending)
	ctx.Protected.GET("/tasks/status", m.handler.Status)
	ctx.Protected.GET("/tasks/:id/snapshot", m.handler.Snapshot)
	ctx.Protected.GET("/tasks/:id/label.png", m.handler.Label)

	ctx.Admin.GET("/tasks", m.handler.List)
	ctx.Admin.GET("/tasks/:id", m.handler.Get)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
