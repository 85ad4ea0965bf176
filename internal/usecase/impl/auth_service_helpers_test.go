package impl

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"warden/config"
	"warden/internal/domain/entity"
	"warden/internal/domain/service"
	"warden/internal/infra/auth"
	"warden/internal/infra/persistence/memory"
	"warden/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConfig() *config.Config {
	return &config.Config{
		SecretKey: config.SecretKeyConfig{
			Access:  "test-access-secret",
			Refresh: "test-refresh-secret",
		},
		Auth: &config.AuthConfig{
			AccessTTLHours: 1,
			RefreshTTLDays: 7,
			BcryptCost:     bcrypt.MinCost,
		},
	}
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*service.AccountEvent
	err    error
}

func (p *recordingPublisher) PublishAccountEvent(_ context.Context, event *service.AccountEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)

	return p.err
}

func (p *recordingPublisher) Close() error {
	return nil
}

func (p *recordingPublisher) Events() []*service.AccountEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]*service.AccountEvent(nil), p.events...)
}

// fakeOAuth accepts exactly one state value and one code.
type fakeOAuth struct {
	state       string
	code        string
	exchangeErr error
	identity    *service.OAuthUser
	fetchErr    error
}

func (f *fakeOAuth) Provider() entity.ProviderType {
	return entity.ProviderTypeGitHub
}

func (f *fakeOAuth) AuthorizationURL(context.Context) (string, error) {
	return "https://github.example/authorize?state=" + f.state, nil
}

func (f *fakeOAuth) ValidateState(_ context.Context, state string) error {
	if state == "" || state != f.state {
		return service.ErrOAuthState
	}

	return nil
}

func (f *fakeOAuth) ExchangeCode(_ context.Context, code string) (string, error) {
	if f.exchangeErr != nil {
		return "", f.exchangeErr
	}
	if code != f.code {
		return "", service.ErrOAuthProvider
	}

	return "provider-token", nil
}

func (f *fakeOAuth) FetchIdentity(_ context.Context, _ string) (*service.OAuthUser, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	identity := *f.identity

	return &identity, nil
}

type testEnv struct {
	svc       usecase.AuthUsecase
	store     *memory.Store
	tokens    service.TokenService
	hasher    service.PasswordHasher
	clock     *testClock
	publisher *recordingPublisher
	oauth     *fakeOAuth
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := newTestConfig()
	tokens, err := auth.NewJWTService(cfg)
	require.NoError(t, err)

	env := &testEnv{
		store:     memory.NewStore(),
		tokens:    tokens,
		hasher:    auth.NewBcryptHasherWithCost(bcrypt.MinCost),
		clock:     &testClock{now: testStart},
		publisher: &recordingPublisher{},
		oauth: &fakeOAuth{
			state: "good-state",
			code:  "good-code",
			identity: &service.OAuthUser{
				ID:       "4242",
				Login:    "octocat",
				Email:    "octocat@github.com",
				Provider: entity.ProviderTypeGitHub,
			},
		},
	}

	env.svc = NewAuthService(AuthServiceParams{
		TxManager:        env.store,
		UserRepo:         env.store.UserRepo(),
		RefreshTokenRepo: env.store.RefreshTokenRepo(),
		Hasher:           env.hasher,
		TokenService:     tokens,
		OAuthService:     env.oauth,
		Publisher:        env.publisher,
		Clock:            env.clock,
		Config:           cfg,
		Logger:           newDiscardLogger(),
	})

	return env
}

// seedUser stores a principal directly, bypassing signup.
func (e *testEnv) seedUser(t *testing.T, name, email, password string, verified bool) *entity.User {
	t.Helper()

	hash, err := e.hasher.Hash(password)
	require.NoError(t, err)

	user := entity.User{
		ID:            uuid.New(),
		Name:          name,
		Email:         email,
		PasswordHash:  hash,
		EmailVerified: verified,
		CreatedAt:     testStart,
		UpdatedAt:     testStart,
	}
	e.store.PutUser(user)

	return &user
}

func (e *testEnv) signIn(t *testing.T, email, password, presented string) *usecase.SessionOutput {
	t.Helper()

	session, err := e.svc.SignIn(context.Background(), &usecase.SignInInput{
		Email:                 email,
		Password:              password,
		PresentedRefreshToken: presented,
	})
	require.NoError(t, err)

	return session
}

func (e *testEnv) tokensOf(userID uuid.UUID) []entity.RefreshToken {
	var out []entity.RefreshToken
	for _, record := range e.store.RefreshTokens() {
		if record.UserID == userID {
			out = append(out, record)
		}
	}

	return out
}
