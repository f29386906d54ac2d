package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	s, err := NewService(Config{SigningKey: []byte("test-signing-key")})
	require.NoError(t, err)
	return s
}

func TestNewServiceRejectsEmptyKey(t *testing.T) {
	_, err := NewService(Config{})
	assert.Error(t, err)
}

func TestIssueValidateRoundTrip(t *testing.T) {
	s := newTestService(t)

	cases := []struct {
		name  string
		issue func(string, ...time.Duration) (string, error)
		scope Scope
	}{
		{"access", s.IssueAccess, ScopeAccess},
		{"refresh", s.IssueRefresh, ScopeRefresh},
		{"email_confirm", s.IssueEmailConfirm, ScopeEmailConfirm},
		{"password_reset", s.IssuePasswordReset, ScopePasswordReset},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tok, err := tc.issue("a@x.com")
			require.NoError(t, err)
			assert.Len(t, strings.Split(tok, "."), 3)

			claims, err := s.Validate(tok, tc.scope)
			require.NoError(t, err)
			assert.Equal(t, "a@x.com", claims.Subject)
			assert.Equal(t, tc.scope, claims.Scope)
			assert.NotNil(t, claims.IssuedAt)
		})
	}
}

func TestValidateWrongScope(t *testing.T) {
	s := newTestService(t)

	tok, err := s.IssueAccess("a@x.com")
	require.NoError(t, err)

	for _, scope := range []Scope{ScopeRefresh, ScopeEmailConfirm, ScopePasswordReset} {
		_, err := s.Validate(tok, scope)
		assert.ErrorIs(t, err, ErrInvalidScope)
	}
}

func TestValidateExpired(t *testing.T) {
	s := newTestService(t)

	tok, err := s.IssueAccess("a@x.com", -time.Second)
	require.NoError(t, err)

	_, err = s.Validate(tok, ScopeAccess)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	assert.NotErrorIs(t, err, ErrInvalidScope)
}

func TestValidateLifetimeOverride(t *testing.T) {
	s := newTestService(t)

	tok, err := s.IssueAccess("a@x.com", time.Hour)
	require.NoError(t, err)

	claims, err := s.Validate(tok, ScopeAccess)
	require.NoError(t, err)

	remaining := time.Until(claims.ExpiresAt.Time)
	assert.Greater(t, remaining, 30*time.Minute)
}

func TestValidateTamperedSignature(t *testing.T) {
	s := newTestService(t)

	tok, err := s.IssueAccess("a@x.com")
	require.NoError(t, err)

	tampered := tok[:len(tok)-2] + "xx"
	_, err = s.Validate(tampered, ScopeAccess)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestValidateWrongKey(t *testing.T) {
	s := newTestService(t)
	other, err := NewService(Config{SigningKey: []byte("another-key")})
	require.NoError(t, err)

	tok, err := other.IssueAccess("a@x.com")
	require.NoError(t, err)

	_, err = s.Validate(tok, ScopeAccess)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestValidateMissingClaims(t *testing.T) {
	s := newTestService(t)
	now := time.Now()

	cases := []struct {
		name   string
		claims jwt.MapClaims
	}{
		{"no sub", jwt.MapClaims{"scope": "access", "iat": now.Unix(), "exp": now.Add(time.Hour).Unix()}},
		{"no scope", jwt.MapClaims{"sub": "a@x.com", "iat": now.Unix(), "exp": now.Add(time.Hour).Unix()}},
		{"no iat", jwt.MapClaims{"sub": "a@x.com", "scope": "access", "exp": now.Add(time.Hour).Unix()}},
		{"no exp", jwt.MapClaims{"sub": "a@x.com", "scope": "access", "iat": now.Unix()}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// Signed with the right key, so only the claim check can reject it.
			tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tc.claims).SignedString([]byte("test-signing-key"))
			require.NoError(t, err)

			_, err = s.Validate(tok, ScopeAccess)
			assert.ErrorIs(t, err, ErrTokenInvalid)
		})
	}
}

func TestValidateGarbage(t *testing.T) {
	s := newTestService(t)

	for _, tok := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		_, err := s.Validate(tok, ScopeAccess)
		assert.ErrorIs(t, err, ErrTokenInvalid, "token %q", tok)
	}
}
