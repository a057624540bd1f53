// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"factory_portal_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Auth Domain Events
// =============================================================================

// UserSignedIn is published after a successful sign-in.
type UserSignedIn struct {
	BaseEvent
	UserID uuid.UUID `json:"userId"`
	Email  string    `json:"email"`
	Role   string    `json:"role"`
}

func (e UserSignedIn) EventName() string { return "auth.user.signed_in" }

// PasswordResetRequested is published when a user requests a password reset.
type PasswordResetRequested struct {
	BaseEvent
	UserID     uuid.UUID `json:"userId"`
	Email      string    `json:"email"`
	ResetToken string    `json:"resetToken"`
}

func (e PasswordResetRequested) EventName() string { return "auth.password.reset_requested" }

// =============================================================================
// Task Domain Events
// =============================================================================

// TaskStarted is published when a stage record is created.
type TaskStarted struct {
	BaseEvent
	RecordID   uuid.UUID `json:"recordId"`
	Stage      string    `json:"stage"`
	Identifier string    `json:"identifier"`
	UserID     uuid.UUID `json:"userId"`
}

func (e TaskStarted) EventName() string { return "tasks.record.started" }

// TaskUpdated is published when progress is saved on a pending record.
type TaskUpdated struct {
	BaseEvent
	RecordID   uuid.UUID `json:"recordId"`
	Stage      string    `json:"stage"`
	Identifier string    `json:"identifier"`
	UserID     uuid.UUID `json:"userId"`
}

func (e TaskUpdated) EventName() string { return "tasks.record.updated" }

// TaskFinalized is published when a stage record is irreversibly completed.
type TaskFinalized struct {
	BaseEvent
	RecordID   uuid.UUID `json:"recordId"`
	Stage      string    `json:"stage"`
	Identifier string    `json:"identifier"`
	UserID     uuid.UUID `json:"userId"`
}

func (e TaskFinalized) EventName() string { return "tasks.record.finalized" }
