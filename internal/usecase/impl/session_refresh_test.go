package impl

import (
	"context"
	"sync"
	"testing"
	"time"

	domainerrors "warden/internal/domain/errors"
	"warden/internal/domain/service"
	"warden/internal/infra/persistence/memory"
	"warden/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertUnauthorized(t *testing.T, err error) {
	t.Helper()

	require.Error(t, err)
	assert.True(t, domainerrors.IsKind(err, domainerrors.KindUnauthorized), "got %v", err)
}

func TestAuthService_RefreshIsSingleUse(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "carol", "c@x.com", "correct-horse", true)
	ctx := context.Background()

	original := env.signIn(t, "c@x.com", "correct-horse", "")

	rotated, err := env.svc.Refresh(ctx, &usecase.RefreshInput{RefreshToken: original.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, original.RefreshToken, rotated.RefreshToken)
	assert.NotEmpty(t, rotated.AccessToken)

	_, err = env.svc.Refresh(ctx, &usecase.RefreshInput{RefreshToken: original.RefreshToken})
	assertUnauthorized(t, err)

	records := env.tokensOf(user.ID)
	require.Len(t, records, 1)
	assert.Equal(t, rotated.RefreshToken, records[0].Token)

	_, err = env.svc.Refresh(ctx, &usecase.RefreshInput{RefreshToken: rotated.RefreshToken})
	require.NoError(t, err)
}

func TestAuthService_RefreshRotationKeepsExpiriesAligned(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "carol", "c@x.com", "correct-horse", true)

	original := env.signIn(t, "c@x.com", "correct-horse", "")
	env.clock.Advance(90*time.Minute + 250*time.Millisecond)

	rotated, err := env.svc.Refresh(context.Background(), &usecase.RefreshInput{RefreshToken: original.RefreshToken})
	require.NoError(t, err)

	claims, err := env.tokens.Verify(service.TokenKindRefresh, rotated.RefreshToken, env.clock.Now())
	require.NoError(t, err)

	records := env.tokensOf(user.ID)
	require.Len(t, records, 1)
	assert.True(t, records[0].ExpiresAt.Equal(claims.ExpiresAt))
}

func TestAuthService_RefreshRejections(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "carol", "c@x.com", "correct-horse", true)

	unrecorded, err := env.tokens.Mint(service.TokenKindRefresh, user.ID, testStart)
	require.NoError(t, err)
	access, err := env.tokens.Mint(service.TokenKindAccess, user.ID, testStart)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "absent", token: ""},
		{name: "malformed", token: "not-a-token"},
		{name: "access token", token: access},
		{name: "not on record", token: unrecorded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Refresh(context.Background(), &usecase.RefreshInput{RefreshToken: tt.token})
			assertUnauthorized(t, err)
		})
	}
}

func TestAuthService_RefreshExpiredClaim(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "carol", "c@x.com", "correct-horse", true)

	session := env.signIn(t, "c@x.com", "correct-horse", "")
	env.clock.Advance(8 * 24 * time.Hour)

	_, err := env.svc.Refresh(context.Background(), &usecase.RefreshInput{RefreshToken: session.RefreshToken})
	assertUnauthorized(t, err)
	assert.ErrorContains(t, err, service.ErrTokenExpired.Error())
}

func TestAuthService_RefreshAtExactExpiry(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "carol", "c@x.com", "correct-horse", true)

	session := env.signIn(t, "c@x.com", "correct-horse", "")
	records := env.tokensOf(user.ID)
	require.Len(t, records, 1)
	env.clock.Advance(records[0].ExpiresAt.Sub(env.clock.Now()))

	rotated, err := env.svc.Refresh(context.Background(), &usecase.RefreshInput{RefreshToken: session.RefreshToken})
	require.NoError(t, err)

	env.clock.Advance(7*24*time.Hour + time.Second)

	_, err = env.svc.Refresh(context.Background(), &usecase.RefreshInput{RefreshToken: rotated.RefreshToken})
	assertUnauthorized(t, err)
}

func TestAuthService_RefreshSubjectMismatchDeletesRecord(t *testing.T) {
	env := newTestEnv(t)
	carol := env.seedUser(t, "carol", "c@x.com", "correct-horse", true)
	mallory := uuid.New()

	token, err := env.tokens.Mint(service.TokenKindRefresh, carol.ID, testStart)
	require.NoError(t, err)
	_, err = env.store.RefreshTokenRepo().Create(context.Background(), token, mallory, 7, testStart)
	require.NoError(t, err)

	_, err = env.svc.Refresh(context.Background(), &usecase.RefreshInput{RefreshToken: token})
	assertUnauthorized(t, err)
	assert.Empty(t, env.store.RefreshTokens())
}

func TestAuthService_RefreshStoreExpiredDeletesRecord(t *testing.T) {
	env := newTestEnv(t)
	carol := env.seedUser(t, "carol", "c@x.com", "correct-horse", true)

	token, err := env.tokens.Mint(service.TokenKindRefresh, carol.ID, testStart)
	require.NoError(t, err)
	_, err = env.store.RefreshTokenRepo().Create(context.Background(), token, carol.ID, 1, testStart)
	require.NoError(t, err)

	env.clock.Advance(2 * 24 * time.Hour)

	_, err = env.svc.Refresh(context.Background(), &usecase.RefreshInput{RefreshToken: token})
	assertUnauthorized(t, err)
	assert.Empty(t, env.store.RefreshTokens())
}

func TestAuthService_RefreshCleanupFailureKeepsUnauthorized(t *testing.T) {
	env := newTestEnv(t)
	carol := env.seedUser(t, "carol", "c@x.com", "correct-horse", true)

	token, err := env.tokens.Mint(service.TokenKindRefresh, carol.ID, testStart)
	require.NoError(t, err)
	_, err = env.store.RefreshTokenRepo().Create(context.Background(), token, uuid.New(), 7, testStart)
	require.NoError(t, err)

	env.store.FailOn(memory.OpTokenDeleteByToken, errors.New("disk full"))

	_, err = env.svc.Refresh(context.Background(), &usecase.RefreshInput{RefreshToken: token})
	assertUnauthorized(t, err)
}

func TestAuthService_RefreshConcurrentRace(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "carol", "c@x.com", "correct-horse", true)
	session := env.signIn(t, "c@x.com", "correct-horse", "")

	const racers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []*usecase.SessionOutput
		losers  []error
	)

	start := make(chan struct{})
	for range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start

			out, err := env.svc.Refresh(context.Background(), &usecase.RefreshInput{RefreshToken: session.RefreshToken})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				losers = append(losers, err)

				return
			}
			winners = append(winners, out)
		}()
	}
	close(start)
	wg.Wait()

	require.Len(t, winners, 1)
	require.Len(t, losers, racers-1)
	for _, err := range losers {
		assertUnauthorized(t, err)
	}

	records := env.tokensOf(user.ID)
	require.Len(t, records, 1)
	assert.Equal(t, winners[0].RefreshToken, records[0].Token)
}

func TestAuthService_SignOut(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "carol", "c@x.com", "correct-horse", true)
	ctx := context.Background()

	out, err := env.svc.SignOut(ctx, &usecase.SignOutInput{})
	assertUnauthorized(t, err)
	assert.False(t, out.ClearCredentials)

	out, err = env.svc.SignOut(ctx, &usecase.SignOutInput{RefreshToken: "stale"})
	assertUnauthorized(t, err)
	assert.True(t, out.ClearCredentials, "a stale client must still be logged out")

	session := env.signIn(t, "c@x.com", "correct-horse", "")
	out, err = env.svc.SignOut(ctx, &usecase.SignOutInput{RefreshToken: session.RefreshToken})
	require.NoError(t, err)
	assert.True(t, out.ClearCredentials)
	assert.Empty(t, env.store.RefreshTokens())

	_, err = env.svc.Refresh(ctx, &usecase.RefreshInput{RefreshToken: session.RefreshToken})
	assertUnauthorized(t, err)
}

func TestAuthService_SignOutDeleteFailureStillClears(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "carol", "c@x.com", "correct-horse", true)
	session := env.signIn(t, "c@x.com", "correct-horse", "")

	env.store.FailOn(memory.OpTokenDeleteByToken, errors.New("disk full"))

	out, err := env.svc.SignOut(context.Background(), &usecase.SignOutInput{RefreshToken: session.RefreshToken})
	require.NoError(t, err)
	assert.True(t, out.ClearCredentials)
}
