// Package token issues and validates the signed bearer tokens used by the
// auth flows. Every token is a compact HS256 JWT carrying a subject (the
// user email), iat, exp, and a scope claim restricting what the token may
// be used for.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Scope restricts the purpose a token may be used for. Email confirmation
// and password reset carry distinct scopes so a confirmation token can
// never trigger a reset and vice versa.
type Scope string

const (
	ScopeAccess        Scope = "access"
	ScopeRefresh       Scope = "refresh"
	ScopeEmailConfirm  Scope = "email_confirm"
	ScopePasswordReset Scope = "password_reset"
)

var (
	// ErrTokenInvalid covers malformed, tampered, and expired tokens
	// as well as tokens missing required claims.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrInvalidScope is returned when a structurally valid token is
	// presented for the wrong purpose.
	ErrInvalidScope = errors.New("invalid token scope")
)

// Claims is the fixed-shape claim set carried by every issued token.
// Tokens missing any required field are rejected at validation time.
type Claims struct {
	Scope Scope `json:"scope"`
	jwt.RegisteredClaims
}

// Config holds the signing key and per-scope default lifetimes.
type Config struct {
	SigningKey       []byte
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	EmailConfirmTTL  time.Duration
	PasswordResetTTL time.Duration
}

// Service creates and validates signed tokens with a single static
// HMAC key. The zero TTLs fall back to the documented defaults.
type Service struct {
	config Config
}

// NewService validates the configuration and returns a token [Service].
// An empty signing key is a startup-fatal misconfiguration.
func NewService(cfg Config) (*Service, error) {
	if len(cfg.SigningKey) == 0 {
		return nil, errors.New("token signing key must not be empty")
	}
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	if cfg.EmailConfirmTTL == 0 {
		cfg.EmailConfirmTTL = 7 * 24 * time.Hour
	}
	if cfg.PasswordResetTTL == 0 {
		cfg.PasswordResetTTL = time.Hour
	}
	if cfg.AccessTTL < 0 || cfg.RefreshTTL < 0 || cfg.EmailConfirmTTL < 0 || cfg.PasswordResetTTL < 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	return &Service{config: cfg}, nil
}

// IssueAccess issues a short-lived access token for email. An optional
// override replaces the default lifetime.
func (s *Service) IssueAccess(email string, override ...time.Duration) (string, error) {
	return s.issue(email, ScopeAccess, pick(s.config.AccessTTL, override))
}

// IssueRefresh issues a refresh token for email.
func (s *Service) IssueRefresh(email string, override ...time.Duration) (string, error) {
	return s.issue(email, ScopeRefresh, pick(s.config.RefreshTTL, override))
}

// IssueEmailConfirm issues an email-confirmation token for email.
func (s *Service) IssueEmailConfirm(email string, override ...time.Duration) (string, error) {
	return s.issue(email, ScopeEmailConfirm, pick(s.config.EmailConfirmTTL, override))
}

// IssuePasswordReset issues a password-reset token for email.
func (s *Service) IssuePasswordReset(email string, override ...time.Duration) (string, error) {
	return s.issue(email, ScopePasswordReset, pick(s.config.PasswordResetTTL, override))
}

func pick(def time.Duration, override []time.Duration) time.Duration {
	if len(override) > 0 {
		return override[0]
	}
	return def
}

func (s *Service) issue(email string, scope Scope, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.config.SigningKey)
}

// Validate decodes tokenStr, verifies the signature and expiry, checks the
// required claims are present, and matches the scope against expected.
// Scope mismatch on an otherwise valid token returns [ErrInvalidScope];
// every other failure returns [ErrTokenInvalid].
func (s *Service) Validate(tokenStr string, expected Scope) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return s.config.SigningKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" || claims.Scope == "" || claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing required claims", ErrTokenInvalid)
	}
	if claims.Scope != expected {
		return nil, ErrInvalidScope
	}
	return claims, nil
}
