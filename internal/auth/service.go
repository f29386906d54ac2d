// Package auth orchestrates signup, login, token refresh, email
// confirmation, and password reset over the credential hasher, token
// service, user cache, user store, and mail sender.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"contactsss/internal/mail"
	"contactsss/internal/metrics"
	"contactsss/internal/model"
	"contactsss/internal/password"
	"contactsss/internal/store"
	"contactsss/internal/token"
	"contactsss/internal/usercache"
)

// TokenPair is the credential pair returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// SignupResult reports a created account and whether the activation
// email went out. EmailSent false is a degraded success, not a failure.
type SignupResult struct {
	User      *model.User
	EmailSent bool
}

// Service is the auth flow orchestrator. Construct one instance at
// process start and share it across request handlers.
type Service struct {
	users  store.UserStore
	hasher *password.Hasher
	tokens *token.Service
	cache  *usercache.Cache
	sender mail.Sender
	logger *zap.Logger
}

// NewService wires an auth [Service] from its collaborators.
func NewService(
	users store.UserStore,
	hasher *password.Hasher,
	tokens *token.Service,
	cache *usercache.Cache,
	sender mail.Sender,
	logger *zap.Logger,
) *Service {
	return &Service{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		cache:  cache,
		sender: sender,
		logger: logger,
	}
}

// Signup registers a new account and sends the activation email
// best-effort. Duplicate emails fail with [ErrConflict].
func (s *Service) Signup(ctx context.Context, username, email, plainPassword string) (*SignupResult, error) {
	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, ErrConflict
	case !errors.Is(err, store.ErrNotFound):
		return nil, transient(err)
	}

	hash, err := s.hasher.Hash(plainPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, username, email, hash)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrConflict
		}
		return nil, transient(err)
	}
	metrics.Signups.Inc()

	return &SignupResult{User: user, EmailSent: s.sendConfirmation(ctx, user)}, nil
}

// Login verifies the credentials and issues a fresh token pair, making
// the new refresh token the single live one for the user.
func (s *Service) Login(ctx context.Context, email, plainPassword string) (*TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.LoginAttempts.WithLabelValues("wrong_user").Inc()
			return nil, ErrWrongUser
		}
		return nil, transient(err)
	}
	if !user.Confirmed {
		metrics.LoginAttempts.WithLabelValues("not_confirmed").Inc()
		return nil, ErrNotConfirmed
	}
	if !s.hasher.Verify(plainPassword, user.PasswordHash) {
		metrics.LoginAttempts.WithLabelValues("wrong_password").Inc()
		return nil, ErrWrongPassword
	}

	pair, err := s.issuePair(email)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetRefreshToken(ctx, email, &pair.RefreshToken); err != nil {
		return nil, transient(err)
	}
	s.invalidate(ctx, email)

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	return pair, nil
}

// Refresh exchanges a refresh token for a new pair, rotating the stored
// value on use. A presented token that is no longer the stored one is
// treated as reuse: the stored token is cleared, forcing re-login.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.Validate(refreshToken, token.ScopeRefresh)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRefreshToken, err)
	}
	email := claims.Subject

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrWrongUser
		}
		return nil, transient(err)
	}

	if user.RefreshToken == nil || *user.RefreshToken != refreshToken {
		s.revoke(ctx, email)
		return nil, ErrInvalidRefreshToken
	}

	pair, err := s.issuePair(email)
	if err != nil {
		return nil, err
	}

	swapped, err := s.users.RotateRefreshToken(ctx, email, refreshToken, pair.RefreshToken)
	if err != nil {
		return nil, transient(err)
	}
	if !swapped {
		// Lost the rotation race: someone else consumed this token between
		// our equality check and the swap. Same verdict as plain reuse.
		s.revoke(ctx, email)
		return nil, ErrInvalidRefreshToken
	}
	s.invalidate(ctx, email)

	return pair, nil
}

// RequestEmailConfirmation re-sends the activation email. The call is
// idempotent for already-confirmed accounts and sends nothing for them.
func (s *Service) RequestEmailConfirmation(ctx context.Context, email string) (alreadyConfirmed bool, err error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, ErrWrongUser
		}
		return false, transient(err)
	}
	if user.Confirmed {
		return true, nil
	}

	s.sendConfirmation(ctx, user)
	return false, nil
}

// ConfirmEmail marks the account derived from emailToken as confirmed.
// Idempotent when already confirmed.
func (s *Service) ConfirmEmail(ctx context.Context, emailToken string) (alreadyConfirmed bool, err error) {
	claims, err := s.tokens.Validate(emailToken, token.ScopeEmailConfirm)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrVerification, err)
	}
	email := claims.Subject

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, ErrVerification
		}
		return false, transient(err)
	}
	if user.Confirmed {
		return true, nil
	}

	if err := s.users.ConfirmEmail(ctx, email); err != nil {
		return false, transient(err)
	}
	s.invalidate(ctx, email)
	return false, nil
}

// RequestPasswordReset generates a fresh random password, mails it to the
// account, and applies it. The mailed secret is independent of the token
// signing mechanism. If the mail cannot be delivered the reset is aborted
// so the user is never locked out of a password they were not told.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrWrongUser
		}
		return transient(err)
	}

	secret, err := newResetSecret()
	if err != nil {
		return fmt.Errorf("generate reset secret: %w", err)
	}
	resetToken, err := s.tokens.IssuePasswordReset(email)
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}

	msg, err := mail.NewResetMessage(email, user.Username, secret, resetToken)
	if err != nil {
		return fmt.Errorf("render reset mail: %w", err)
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		return transient(err)
	}

	return s.ApplyPasswordReset(ctx, email, secret)
}

// ApplyPasswordReset sets a new password and rotates a brand-new refresh
// token, invalidating any prior session.
func (s *Service) ApplyPasswordReset(ctx context.Context, email, newRawSecret string) error {
	if _, err := s.users.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrWrongUser
		}
		return transient(err)
	}

	hash, err := s.hasher.Hash(newRawSecret)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.SetPasswordHash(ctx, email, hash); err != nil {
		return transient(err)
	}

	next, err := s.tokens.IssueRefresh(email)
	if err != nil {
		return fmt.Errorf("issue refresh token: %w", err)
	}
	if err := s.users.SetRefreshToken(ctx, email, &next); err != nil {
		return transient(err)
	}
	s.invalidate(ctx, email)

	return nil
}

// Authorize is the gate every protected operation passes through: it
// validates an access token and resolves the user through the cache.
func (s *Service) Authorize(ctx context.Context, accessToken string) (*model.User, error) {
	claims, err := s.tokens.Validate(accessToken, token.ScopeAccess)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWrongCredentials, err)
	}

	user, err := s.cache.Resolve(ctx, claims.Subject, s.users.GetByEmail)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrWrongCredentials
		}
		return nil, transient(err)
	}
	return user, nil
}

func (s *Service) issuePair(email string) (*TokenPair, error) {
	access, err := s.tokens.IssueAccess(email)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.tokens.IssueRefresh(email)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

// sendConfirmation delivers the activation mail best-effort and reports
// whether it went out.
func (s *Service) sendConfirmation(ctx context.Context, user *model.User) bool {
	confirmToken, err := s.tokens.IssueEmailConfirm(user.Email)
	if err != nil {
		s.logger.Warn("issuing confirmation token failed", zap.Error(err))
		return false
	}
	msg, err := mail.NewConfirmationMessage(user.Email, user.Username, confirmToken)
	if err != nil {
		s.logger.Warn("rendering confirmation mail failed", zap.Error(err))
		return false
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		return false
	}
	return true
}

// revoke clears the stored refresh token, forcing the next refresh attempt
// to fail until a new login occurs.
func (s *Service) revoke(ctx context.Context, email string) {
	if err := s.users.SetRefreshToken(ctx, email, nil); err != nil {
		s.logger.Warn("clearing refresh token failed", zap.String("email", email), zap.Error(err))
	}
	s.invalidate(ctx, email)
}

func (s *Service) invalidate(ctx context.Context, email string) {
	if err := s.cache.Invalidate(ctx, email); err != nil {
		s.logger.Warn("cache invalidation failed", zap.String("email", email), zap.Error(err))
	}
}

func transient(err error) error {
	return fmt.Errorf("%w: %v", ErrTransient, err)
}

func newResetSecret() (string, error) {
	b := make([]byte, 18)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
