package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"factory_portal_backend/internal/auth/repository"
	"factory_portal_backend/internal/auth/token"
	"factory_portal_backend/internal/events"
	"factory_portal_backend/platform/logger"

	"github.com/google/uuid"
)

// fakeAuthStore is a controllable in-memory AuthRepository covering the
// reset flow. Unused methods return zero values.
type fakeAuthStore struct {
	resetTokenHash   string
	resetTokenUser   uuid.UUID
	resetTokenExpiry time.Time

	useTokenErr error
	revokeErr   error

	updatedPassword string
	tokenUsed       bool
	sessionsRevoked bool
}

func (f *fakeAuthStore) CreateUser(ctx context.Context, email, fullName, passwordHash, role string) (repository.User, error) {
	return repository.User{}, nil
}

func (f *fakeAuthStore) GetUserByEmail(ctx context.Context, email string) (repository.User, error) {
	return repository.User{}, repository.ErrNotFound
}

func (f *fakeAuthStore) GetUserByID(ctx context.Context, userID uuid.UUID) (repository.User, error) {
	return repository.User{}, repository.ErrNotFound
}

func (f *fakeAuthStore) ListUsers(ctx context.Context) ([]repository.User, error) {
	return nil, nil
}

func (f *fakeAuthStore) UpdateUser(ctx context.Context, userID uuid.UUID, fullName, role string, active bool) error {
	return nil
}

func (f *fakeAuthStore) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	f.updatedPassword = passwordHash
	return nil
}

func (f *fakeAuthStore) CreateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	return nil
}

func (f *fakeAuthStore) GetRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, time.Time, error) {
	return uuid.Nil, time.Time{}, repository.ErrNotFound
}

func (f *fakeAuthStore) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	return nil
}

func (f *fakeAuthStore) RevokeAllRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	if f.revokeErr != nil {
		return f.revokeErr
	}
	f.sessionsRevoked = true
	return nil
}

func (f *fakeAuthStore) CreateUserToken(ctx context.Context, userID uuid.UUID, tokenHash, tokenType string, expiresAt time.Time) error {
	return nil
}

func (f *fakeAuthStore) GetUserToken(ctx context.Context, tokenHash, tokenType string) (uuid.UUID, time.Time, error) {
	if tokenHash != f.resetTokenHash || tokenType != repository.TokenTypePasswordReset {
		return uuid.Nil, time.Time{}, repository.ErrNotFound
	}
	return f.resetTokenUser, f.resetTokenExpiry, nil
}

func (f *fakeAuthStore) UseUserToken(ctx context.Context, tokenHash, tokenType string) error {
	if f.useTokenErr != nil {
		return f.useTokenErr
	}
	f.tokenUsed = true
	return nil
}

var _ repository.AuthRepository = (*fakeAuthStore)(nil)

type fakeAuthConfig struct{}

func (fakeAuthConfig) GetJWTAccessSecret() string        { return "test-access-secret" }
func (fakeAuthConfig) GetJWTRefreshSecret() string       { return "test-refresh-secret" }
func (fakeAuthConfig) GetAccessTokenTTL() time.Duration  { return 15 * time.Minute }
func (fakeAuthConfig) GetRefreshTokenTTL() time.Duration { return 24 * time.Hour }
func (fakeAuthConfig) GetResetTokenTTL() time.Duration   { return time.Hour }
func (fakeAuthConfig) GetAppBaseURL() string             { return "http://localhost:3000" }

type noopMailer struct{}

func (noopMailer) SendPasswordResetEmail(ctx context.Context, toEmail, resetURL string) error {
	return nil
}

func newTestAuthService(store *fakeAuthStore) *Service {
	log := logger.New("development")
	return New(store, fakeAuthConfig{}, events.NewInMemoryBus(log), noopMailer{}, log)
}

func TestResetPasswordReplacesPasswordAndRevokesSessions(t *testing.T) {
	rawToken := "reset-token-value"
	store := &fakeAuthStore{
		resetTokenHash:   token.HashSHA256(rawToken),
		resetTokenUser:   uuid.New(),
		resetTokenExpiry: time.Now().Add(time.Hour),
	}
	svc := newTestAuthService(store)

	if err := svc.ResetPassword(context.Background(), rawToken, "nueva-clave-segura"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if store.updatedPassword == "" {
		t.Error("password hash was not updated")
	}
	if !store.tokenUsed {
		t.Error("reset token was not marked used")
	}
	if !store.sessionsRevoked {
		t.Error("existing sessions were not revoked")
	}
}

func TestResetPasswordSucceedsWhenCleanupFails(t *testing.T) {
	rawToken := "reset-token-value"
	store := &fakeAuthStore{
		resetTokenHash:   token.HashSHA256(rawToken),
		resetTokenUser:   uuid.New(),
		resetTokenExpiry: time.Now().Add(time.Hour),
		useTokenErr:      errors.New("connection reset"),
	}
	svc := newTestAuthService(store)

	if err := svc.ResetPassword(context.Background(), rawToken, "nueva-clave-segura"); err != nil {
		t.Fatalf("a cleanup failure must not fail the reset, got %v", err)
	}
	if store.updatedPassword == "" {
		t.Error("password hash was not updated")
	}
	if !store.sessionsRevoked {
		t.Error("session revocation must still run when marking the token used fails")
	}
}

func TestResetPasswordRejectsExpiredToken(t *testing.T) {
	rawToken := "reset-token-value"
	store := &fakeAuthStore{
		resetTokenHash:   token.HashSHA256(rawToken),
		resetTokenUser:   uuid.New(),
		resetTokenExpiry: time.Now().Add(-time.Minute),
	}
	svc := newTestAuthService(store)

	if err := svc.ResetPassword(context.Background(), rawToken, "nueva-clave-segura"); err == nil {
		t.Fatal("an expired token must be rejected")
	}
	if store.updatedPassword != "" {
		t.Error("password must not change on an expired token")
	}
}
