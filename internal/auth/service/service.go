package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"factory_portal_backend/internal/auth/password"
	"factory_portal_backend/internal/auth/repository"
	"factory_portal_backend/internal/auth/token"
	"factory_portal_backend/internal/email"
	"factory_portal_backend/internal/events"
	"factory_portal_backend/platform/apperr"
	"factory_portal_backend/platform/config"
	"factory_portal_backend/platform/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Refresh tokens are opaque random values, only access tokens are JWTs.
const accessTokenType = "access"

type Service struct {
	repo repository.AuthRepository
	cfg  config.AuthServiceConfig
	bus  events.Bus
	mail email.Sender
	log  *logger.Logger
}

func New(repo repository.AuthRepository, cfg config.AuthServiceConfig, bus events.Bus, mailer email.Sender, log *logger.Logger) *Service {
	return &Service{repo: repo, cfg: cfg, bus: bus, mail: mailer, log: log}
}

// SignIn authenticates a user and issues an access/refresh token pair.
func (s *Service) SignIn(ctx context.Context, userEmail, plainPassword string) (string, string, error) {
	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(userEmail))
	if err != nil {
		return "", "", apperr.Unauthorized("invalid credentials")
	}
	if err := password.Compare(user.PasswordHash, plainPassword); err != nil {
		s.log.AuthEvent("sign_in", user.Email, false, "wrong password")
		return "", "", apperr.Unauthorized("invalid credentials")
	}
	if !user.Active {
		return "", "", apperr.Forbidden("account disabled")
	}

	access, refresh, err := s.issueTokens(ctx, user)
	if err != nil {
		return "", "", err
	}

	s.log.AuthEvent("sign_in", user.Email, true, "")
	s.bus.Publish(ctx, events.UserSignedIn{
		BaseEvent: events.NewBaseEvent(),
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
	})
	return access, refresh, nil
}

// Refresh rotates a refresh token and issues a new pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, string, error) {
	hash := token.HashSHA256(refreshToken)
	userID, expiresAt, err := s.repo.GetRefreshToken(ctx, hash)
	if err != nil {
		return "", "", apperr.Unauthorized("token invalid")
	}
	if time.Now().After(expiresAt) {
		_ = s.repo.RevokeRefreshToken(ctx, hash)
		return "", "", apperr.Unauthorized("token expired")
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil || !user.Active {
		_ = s.repo.RevokeRefreshToken(ctx, hash)
		return "", "", apperr.Unauthorized("token invalid")
	}

	// Rotation: the presented token is single-use.
	_ = s.repo.RevokeRefreshToken(ctx, hash)
	return s.issueTokens(ctx, user)
}

// SignOut revokes the presented refresh token.
func (s *Service) SignOut(ctx context.Context, refreshToken string) error {
	return s.repo.RevokeRefreshToken(ctx, token.HashSHA256(refreshToken))
}

// Me returns the profile for the authenticated user.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (repository.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.User{}, apperr.NotFound("user not found")
	}
	return user, err
}

// ForgotPassword creates a single-use reset token and emails the link.
// Unknown addresses are silently accepted so the endpoint cannot be used
// to probe for accounts.
func (s *Service) ForgotPassword(ctx context.Context, userEmail string) error {
	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(userEmail))
	if err != nil {
		return nil
	}

	resetToken, err := token.GenerateRandomToken(32)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "token generation failed", err)
	}

	expiresAt := time.Now().Add(s.cfg.GetResetTokenTTL())
	if err := s.repo.CreateUserToken(ctx, user.ID, token.HashSHA256(resetToken), repository.TokenTypePasswordReset, expiresAt); err != nil {
		return apperr.Wrap(apperr.KindInternal, "storing reset token failed", err)
	}

	resetURL := strings.TrimRight(s.cfg.GetAppBaseURL(), "/") + "/reset-password?token=" + resetToken
	if err := s.mail.SendPasswordResetEmail(ctx, user.Email, resetURL); err != nil {
		return apperr.Wrap(apperr.KindInternal, "sending reset email failed", err)
	}

	s.bus.Publish(ctx, events.PasswordResetRequested{
		BaseEvent:  events.NewBaseEvent(),
		UserID:     user.ID,
		Email:      user.Email,
		ResetToken: token.HashSHA256(resetToken),
	})
	return nil
}

// ResetPassword consumes a reset token and replaces the password. All
// refresh tokens are revoked so stolen sessions die with the old password.
func (s *Service) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	hash := token.HashSHA256(rawToken)
	userID, expiresAt, err := s.repo.GetUserToken(ctx, hash, repository.TokenTypePasswordReset)
	if err != nil {
		return apperr.Unauthorized("token invalid")
	}
	if time.Now().After(expiresAt) {
		return apperr.Unauthorized("token expired")
	}

	passwordHash, err := password.Hash(newPassword)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "password hashing failed", err)
	}
	if err := s.repo.UpdatePassword(ctx, userID, passwordHash); err != nil {
		return apperr.Wrap(apperr.KindInternal, "updating password failed", err)
	}

	// The password is already changed at this point; a cleanup failure is
	// logged rather than surfaced so the user does not retry a spent token.
	if err := s.repo.UseUserToken(ctx, hash, repository.TokenTypePasswordReset); err != nil {
		s.log.Warn("marking reset token used failed", "user_id", userID.String(), "error", err.Error())
	}
	if err := s.repo.RevokeAllRefreshTokens(ctx, userID); err != nil {
		s.log.Warn("revoking sessions after password reset failed", "user_id", userID.String(), "error", err.Error())
	}
	return nil
}

// CreateUser registers a new account. Admin only.
func (s *Service) CreateUser(ctx context.Context, userEmail, fullName, plainPassword, role string) (repository.User, error) {
	if role != repository.RoleOperator && role != repository.RoleAdmin {
		return repository.User{}, apperr.Validation("unknown role")
	}

	hash, err := password.Hash(plainPassword)
	if err != nil {
		return repository.User{}, apperr.Wrap(apperr.KindInternal, "password hashing failed", err)
	}

	user, err := s.repo.CreateUser(ctx, normalizeEmail(userEmail), fullName, hash, role)
	if errors.Is(err, repository.ErrEmailTaken) {
		return repository.User{}, apperr.Conflict("email already registered")
	}
	return user, err
}

// ListUsers returns every account. Admin only.
func (s *Service) ListUsers(ctx context.Context) ([]repository.User, error) {
	return s.repo.ListUsers(ctx)
}

// UpdateUser changes name, role and active flag of an account. Admin only.
func (s *Service) UpdateUser(ctx context.Context, userID uuid.UUID, fullName, role string, active bool) error {
	if role != repository.RoleOperator && role != repository.RoleAdmin {
		return apperr.Validation("unknown role")
	}
	err := s.repo.UpdateUser(ctx, userID, fullName, role, active)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("user not found")
	}
	if err == nil && !active {
		// A disabled account loses its sessions immediately.
		if revokeErr := s.repo.RevokeAllRefreshTokens(ctx, userID); revokeErr != nil {
			s.log.Warn("revoking sessions of disabled account failed", "user_id", userID.String(), "error", revokeErr.Error())
		}
	}
	return err
}

func (s *Service) issueTokens(ctx context.Context, user repository.User) (string, string, error) {
	access, err := s.signJWT(user, s.cfg.GetAccessTokenTTL(), accessTokenType, s.cfg.GetJWTAccessSecret())
	if err != nil {
		return "", "", apperr.Wrap(apperr.KindInternal, "signing access token failed", err)
	}

	refresh, err := token.GenerateRandomToken(48)
	if err != nil {
		return "", "", apperr.Wrap(apperr.KindInternal, "token generation failed", err)
	}

	expiresAt := time.Now().Add(s.cfg.GetRefreshTokenTTL())
	if err := s.repo.CreateRefreshToken(ctx, user.ID, token.HashSHA256(refresh), expiresAt); err != nil {
		return "", "", apperr.Wrap(apperr.KindInternal, "storing refresh token failed", err)
	}

	return access, refresh, nil
}

func (s *Service) signJWT(user repository.User, ttl time.Duration, tokenType, secret string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"type":  tokenType,
		"roles": []string{user.Role},
		"exp":   now.Add(ttl).Unix(),
		"iat":   now.Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func normalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
