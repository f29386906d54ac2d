package auth

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"contactsss/internal/mail"
	"contactsss/internal/model"
	"contactsss/internal/password"
	"contactsss/internal/store"
	"contactsss/internal/token"
	"contactsss/internal/usercache"
)

type fakeUserStore struct {
	mu     sync.Mutex
	users  map[string]*model.User
	nextID int64
	gets   int
	broken bool
}

var errStoreBroken = errors.New("store down")

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]*model.User{}}
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.broken {
		return nil, errStoreBroken
	}
	u, ok := f.users[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) Create(ctx context.Context, username, email, passwordHash string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[email]; ok {
		return nil, store.ErrDuplicate
	}
	f.nextID++
	u := &model.User{ID: f.nextID, Username: username, Email: email, PasswordHash: passwordHash}
	f.users[email] = u
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) SetRefreshToken(ctx context.Context, email string, tok *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return store.ErrNotFound
	}
	u.RefreshToken = tok
	return nil
}

func (f *fakeUserStore) RotateRefreshToken(ctx context.Context, email, old, next string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok || u.RefreshToken == nil || *u.RefreshToken != old {
		return false, nil
	}
	u.RefreshToken = &next
	return true, nil
}

func (f *fakeUserStore) ConfirmEmail(ctx context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return store.ErrNotFound
	}
	u.Confirmed = true
	return nil
}

func (f *fakeUserStore) SetPasswordHash(ctx context.Context, email, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return store.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (f *fakeUserStore) stored(email string) *model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[email]
}

type fakeSender struct {
	mu       sync.Mutex
	messages []mail.Message
	fail     bool
}

var errSendFailed = errors.New("smtp down")

func (f *fakeSender) Send(ctx context.Context, msg mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errSendFailed
	}
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeSender) last(t *testing.T) mail.Message {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.messages)
	return f.messages[len(f.messages)-1]
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

var (
	confirmTokenRe = regexp.MustCompile(`confirm/([A-Za-z0-9_.\-]+)`)
	resetSecretRe  = regexp.MustCompile(`<strong>([A-Za-z0-9_\-]+)</strong>`)
)

func newTestService(t *testing.T) (*Service, *fakeUserStore, *fakeSender) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	hasher, err := password.NewHasher(bcrypt.MinCost)
	require.NoError(t, err)

	tokens, err := token.NewService(token.Config{SigningKey: []byte("test-signing-key")})
	require.NoError(t, err)

	users := newFakeUserStore()
	sender := &fakeSender{}
	cache := usercache.New(rdb, 0, zap.NewNop())

	return NewService(users, hasher, tokens, cache, sender, zap.NewNop()), users, sender
}

func signupConfirmed(t *testing.T, svc *Service, sender *fakeSender, email, pw string) {
	t.Helper()
	ctx := context.Background()

	_, err := svc.Signup(ctx, "alice", email, pw)
	require.NoError(t, err)

	m := confirmTokenRe.FindStringSubmatch(sender.last(t).HTML)
	require.Len(t, m, 2, "confirmation mail must carry the token")
	_, err = svc.ConfirmEmail(ctx, m[1])
	require.NoError(t, err)
}

func TestSignup(t *testing.T) {
	svc, users, sender := newTestService(t)
	ctx := context.Background()

	result, err := svc.Signup(ctx, "alice", "a@x.com", "secret1")
	require.NoError(t, err)
	assert.True(t, result.EmailSent)
	assert.Equal(t, "a@x.com", result.User.Email)
	assert.False(t, result.User.Confirmed)
	assert.NotEqual(t, "secret1", result.User.PasswordHash, "password must be stored hashed")
	assert.Equal(t, 1, sender.count())

	_, err = svc.Signup(ctx, "alice2", "a@x.com", "other")
	assert.ErrorIs(t, err, ErrConflict)
	assert.NotNil(t, users.stored("a@x.com"))
}

func TestSignupMailFailureIsDegradedSuccess(t *testing.T) {
	svc, users, sender := newTestService(t)
	sender.fail = true

	result, err := svc.Signup(context.Background(), "alice", "a@x.com", "secret1")
	require.NoError(t, err)
	assert.False(t, result.EmailSent)
	assert.NotNil(t, users.stored("a@x.com"))
}

func TestLoginBeforeConfirmationFails(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, "alice", "a@x.com", "secret1")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "a@x.com", "secret1")
	assert.ErrorIs(t, err, ErrNotConfirmed)
}

func TestLoginAfterConfirmation(t *testing.T) {
	svc, users, sender := newTestService(t)
	ctx := context.Background()

	signupConfirmed(t, svc, sender, "a@x.com", "secret1")

	pair, err := svc.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	assert.Equal(t, "bearer", pair.TokenType)

	stored := users.stored("a@x.com")
	require.NotNil(t, stored.RefreshToken)
	assert.Equal(t, pair.RefreshToken, *stored.RefreshToken)
}

func TestLoginErrors(t *testing.T) {
	svc, _, sender := newTestService(t)
	ctx := context.Background()

	signupConfirmed(t, svc, sender, "a@x.com", "secret1")

	_, err := svc.Login(ctx, "nobody@x.com", "secret1")
	assert.ErrorIs(t, err, ErrWrongUser)

	_, err = svc.Login(ctx, "a@x.com", "wrong")
	assert.ErrorIs(t, err, ErrWrongPassword)
}

func TestRefreshRotation(t *testing.T) {
	svc, users, sender := newTestService(t)
	ctx := context.Background()

	signupConfirmed(t, svc, sender, "a@x.com", "secret1")
	pair, err := svc.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	// First use of the refresh token succeeds and rotates.
	next, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	stored := users.stored("a@x.com")
	require.NotNil(t, stored.RefreshToken)
	assert.Equal(t, next.RefreshToken, *stored.RefreshToken)

	// Reusing the consumed token is rejected and clears the stored value.
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	assert.Nil(t, users.stored("a@x.com").RefreshToken)

	// Even the latest token is now useless until a fresh login.
	_, err = svc.Refresh(ctx, next.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, err = svc.Login(ctx, "a@x.com", "secret1")
	assert.NoError(t, err)
}

func TestRefreshRejectsNonRefreshTokens(t *testing.T) {
	svc, _, sender := newTestService(t)
	ctx := context.Background()

	signupConfirmed(t, svc, sender, "a@x.com", "secret1")
	pair, err := svc.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, err = svc.Refresh(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRequestEmailConfirmation(t *testing.T) {
	svc, _, sender := newTestService(t)
	ctx := context.Background()

	_, err := svc.RequestEmailConfirmation(ctx, "nobody@x.com")
	assert.ErrorIs(t, err, ErrWrongUser)

	_, err = svc.Signup(ctx, "alice", "a@x.com", "secret1")
	require.NoError(t, err)

	already, err := svc.RequestEmailConfirmation(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, already)
	assert.Equal(t, 2, sender.count())

	m := confirmTokenRe.FindStringSubmatch(sender.last(t).HTML)
	require.Len(t, m, 2)
	_, err = svc.ConfirmEmail(ctx, m[1])
	require.NoError(t, err)

	// Confirmed accounts get an idempotent answer, no mail.
	already, err = svc.RequestEmailConfirmation(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, already)
	assert.Equal(t, 2, sender.count())
}

func TestConfirmEmail(t *testing.T) {
	svc, users, sender := newTestService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, "alice", "a@x.com", "secret1")
	require.NoError(t, err)
	m := confirmTokenRe.FindStringSubmatch(sender.last(t).HTML)
	require.Len(t, m, 2)
	emailToken := m[1]

	already, err := svc.ConfirmEmail(ctx, emailToken)
	require.NoError(t, err)
	assert.False(t, already)
	assert.True(t, users.stored("a@x.com").Confirmed)

	already, err = svc.ConfirmEmail(ctx, emailToken)
	require.NoError(t, err)
	assert.True(t, already)

	_, err = svc.ConfirmEmail(ctx, "garbage")
	assert.ErrorIs(t, err, ErrVerification)
}

func TestConfirmEmailRejectsOtherScopes(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, "alice", "a@x.com", "secret1")
	require.NoError(t, err)

	// Tokens minted for other scopes under the same key must not drive
	// the confirmation flow.
	tokens, err := token.NewService(token.Config{SigningKey: []byte("test-signing-key")})
	require.NoError(t, err)

	resetToken, err := tokens.IssuePasswordReset("a@x.com")
	require.NoError(t, err)
	_, err = svc.ConfirmEmail(ctx, resetToken)
	assert.ErrorIs(t, err, ErrVerification)

	accessToken, err := tokens.IssueAccess("a@x.com")
	require.NoError(t, err)
	_, err = svc.ConfirmEmail(ctx, accessToken)
	assert.ErrorIs(t, err, ErrVerification)
}

func TestPasswordReset(t *testing.T) {
	svc, _, sender := newTestService(t)
	ctx := context.Background()

	signupConfirmed(t, svc, sender, "a@x.com", "secret1")

	require.NoError(t, svc.RequestPasswordReset(ctx, "a@x.com"))

	m := resetSecretRe.FindStringSubmatch(sender.last(t).HTML)
	require.Len(t, m, 2, "reset mail must carry the new password")
	newSecret := m[1]
	assert.NotEqual(t, "secret1", newSecret)

	_, err := svc.Login(ctx, "a@x.com", "secret1")
	assert.ErrorIs(t, err, ErrWrongPassword)

	_, err = svc.Login(ctx, "a@x.com", newSecret)
	assert.NoError(t, err)
}

func TestPasswordResetUnknownUser(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.RequestPasswordReset(context.Background(), "nobody@x.com")
	assert.ErrorIs(t, err, ErrWrongUser)
}

func TestPasswordResetMailFailureAborts(t *testing.T) {
	svc, _, sender := newTestService(t)
	ctx := context.Background()

	signupConfirmed(t, svc, sender, "a@x.com", "secret1")
	sender.fail = true

	err := svc.RequestPasswordReset(ctx, "a@x.com")
	assert.ErrorIs(t, err, ErrTransient)

	// The old password must still work.
	sender.fail = false
	_, err = svc.Login(ctx, "a@x.com", "secret1")
	assert.NoError(t, err)
}

func TestPasswordResetInvalidatesRefreshToken(t *testing.T) {
	svc, _, sender := newTestService(t)
	ctx := context.Background()

	signupConfirmed(t, svc, sender, "a@x.com", "secret1")
	pair, err := svc.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, svc.ApplyPasswordReset(ctx, "a@x.com", "brand-new-secret"))

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestAuthorize(t *testing.T) {
	svc, users, sender := newTestService(t)
	ctx := context.Background()

	signupConfirmed(t, svc, sender, "a@x.com", "secret1")
	pair, err := svc.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	user, err := svc.Authorize(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", user.Email)

	// Repeat authorizations are served from the cache.
	before := users.gets
	for i := 0; i < 5; i++ {
		_, err := svc.Authorize(ctx, pair.AccessToken)
		require.NoError(t, err)
	}
	assert.Equal(t, before, users.gets)
}

func TestAuthorizeFailures(t *testing.T) {
	svc, _, sender := newTestService(t)
	ctx := context.Background()

	signupConfirmed(t, svc, sender, "a@x.com", "secret1")
	pair, err := svc.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	_, err = svc.Authorize(ctx, "garbage")
	assert.ErrorIs(t, err, ErrWrongCredentials)

	// A refresh token is not an access token.
	_, err = svc.Authorize(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrWrongCredentials)
}

func TestTransientStoreErrors(t *testing.T) {
	svc, users, _ := newTestService(t)
	ctx := context.Background()
	users.broken = true

	_, err := svc.Signup(ctx, "alice", "a@x.com", "secret1")
	assert.ErrorIs(t, err, ErrTransient)

	_, err = svc.Login(ctx, "a@x.com", "secret1")
	assert.ErrorIs(t, err, ErrTransient)
	assert.NotErrorIs(t, err, ErrWrongUser)
}
