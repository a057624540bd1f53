package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuthRepository defines the contract for user and token persistence.
// This allows services to depend on an abstraction rather than concrete
// implementation, improving testability and modularity.
type AuthRepository interface {
	// User operations
	CreateUser(ctx context.Context, email, fullName, passwordHash, role string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	UpdateUser(ctx context.Context, userID uuid.UUID, fullName, role string, active bool) error
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error

	// Refresh token operations
	CreateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, time.Time, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllRefreshTokens(ctx context.Context, userID uuid.UUID) error

	// Single-use token operations
	CreateUserToken(ctx context.Context, userID uuid.UUID, tokenHash, tokenType string, expiresAt time.Time) error
	GetUserToken(ctx context.Context, tokenHash, tokenType string) (uuid.UUID, time.Time, error)
	UseUserToken(ctx context.Context, tokenHash, tokenType string) error
}

// Compile-time check that Repository implements AuthRepository
var _ AuthRepository = (*Repository)(nil)
