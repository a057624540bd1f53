// Package stations provides the station screen bounded context module:
// the HTTP surface of the reconciliation engines for the four stages.
package stations

import (
	"context"

	apphttp "factory_portal_backend/internal/http"
	"factory_portal_backend/internal/stations/counter"
	"factory_portal_backend/internal/stations/handler"
	"factory_portal_backend/internal/stations/registry"
	"factory_portal_backend/internal/tracking"
	"factory_portal_backend/platform/logger"
	"factory_portal_backend/platform/validator"

	"github.com/redis/go-redis/v9"
)

// Module is the stations bounded context module implementing http.Module.
type Module struct {
	handler  *handler.Handler
	registry *registry.Registry
}

// NewModule creates and initializes the stations module. rdb may be nil;
// the completion counter then degrades to zero reads.
func NewModule(gateway tracking.Gateway, rdb *redis.Client, val *validator.Validator, log *logger.Logger) *Module {
	cnt := counter.New(rdb, log)

	// Every successful finalize, manual or automatic, bumps the operator's
	// daily counter.
	hook := func(ctx context.Context, stage tracking.Stage, session tracking.Session, result tracking.FinalizeResult) {
		cnt.Increment(ctx, session.Email, stage)
	}

	reg := registry.New(gateway, hook, log)
	h := handler.New(reg, cnt, val)

	return &Module{handler: h, registry: reg}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "stations"
}

// RegisterRoutes mounts station routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/stations/:stage")
	group.POST("/open", m.handler.Open)
	group.GET("", m.handler.View)
	group.PUT("/identifier", m.handler.SetIdentifier)
	group.POST("/toggle", m.handler.Toggle)
	group.POST("/clear-section", m.handler.ClearSection)
	group.POST("/clear-all", m.handler.ClearAll)
	group.PUT("/aux", m.handler.SetAux)
	group.POST("/finalize", m.handler.Finalize)
	group.POST("/resume", m.handler.Resume)
	group.POST("/leave", m.handler.Leave)
	group.GET("/counter", m.handler.Counter)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
