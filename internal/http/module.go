// Package http provides HTTP server infrastructure including the Module
// interface every bounded context implements for route registration.
package http

import (
	"factory_portal_backend/platform/config"
	"factory_portal_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Module is a bounded context that registers its own HTTP routes. The
// router stays decoupled from individual endpoints; it only iterates the
// module list.
type Module interface {
	// Name returns the module's identifier for logging purposes.
	Name() string
	// RegisterRoutes mounts the module's routes on the shared groups.
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext carries the shared route groups and middleware a module
// may mount on. Operator-facing surfaces (station screens, pending lists)
// go under Protected; management surfaces under Admin.
type RouterContext struct {
	// Engine is the root Gin engine for modules that need engine-level access.
	Engine *gin.Engine
	// V1 is the /api/v1 route group.
	V1 *gin.RouterGroup
	// Protected is the authenticated route group under /api/v1.
	Protected *gin.RouterGroup
	// Admin is the admin-only route group under /api/v1/admin.
	Admin *gin.RouterGroup
	// Config is the JWT configuration for auth middleware (scoped access).
	Config config.JWTConfig
	// AuthMiddleware provides the authentication middleware.
	AuthMiddleware gin.HandlerFunc
	// AuthRateLimiter is the stricter rate limiter for the sign-in routes.
	AuthRateLimiter *httpkit.AuthRateLimiter
}
