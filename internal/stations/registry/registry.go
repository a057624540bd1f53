// Package registry keeps the live reconciliation engines, one per
// (user, stage) station screen.
package registry

import (
	"context"
	"sync"

	"factory_portal_backend/internal/tracking"
	"factory_portal_backend/platform/logger"

	"github.com/google/uuid"
)

type screenKey struct {
	userID uuid.UUID
	stage  tracking.Stage
}

// Registry holds one live engine per (user, stage) screen. Entering a
// station opens the engine; leaving drops it so the next entry re-runs the
// resume flow against fresh backend state.
type Registry struct {
	mu      sync.Mutex
	engines map[screenKey]*tracking.Engine

	gateway tracking.Gateway
	hook    tracking.FinalizeHook
	log     *logger.Logger
}

func New(gateway tracking.Gateway, hook tracking.FinalizeHook, log *logger.Logger) *Registry {
	return &Registry{
		engines: make(map[screenKey]*tracking.Engine),
		gateway: gateway,
		hook:    hook,
		log:     log,
	}
}

// Open creates (or replaces) the engine for a screen and runs its open
// flow. Re-opening an existing screen starts over deliberately: a station
// tablet reloading should always see current backend state.
func (r *Registry) Open(ctx context.Context, stage tracking.Stage, session tracking.Session) (*tracking.Engine, error) {
	profile, err := tracking.ProfileFor(stage)
	if err != nil {
		return nil, err
	}

	engine := tracking.New(profile, r.gateway, session, r.log)
	if r.hook != nil {
		engine.SetFinalizeHook(r.hook)
	}
	if err := engine.Open(ctx); err != nil {
		return nil, err
	}

	key := screenKey{userID: session.UserID, stage: stage}
	r.mu.Lock()
	r.engines[key] = engine
	r.mu.Unlock()
	return engine, nil
}

// Get returns the live engine for a screen, or nil when the station has
// not been opened.
func (r *Registry) Get(userID uuid.UUID, stage tracking.Stage) *tracking.Engine {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.engines[screenKey{userID: userID, stage: stage}]
}

// Drop removes a screen's engine after the operator leaves.
func (r *Registry) Drop(userID uuid.UUID, stage tracking.Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.engines, screenKey{userID: userID, stage: stage})
}
