package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"warden/config"
	"warden/internal/domain/entity"
	"warden/internal/domain/service"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTestGitHubConfig(apiBaseURL string) *config.GitHubOAuthConfig {
	return &config.GitHubOAuthConfig{
		ClientID:          "test_client_id",
		ClientSecret:      "test_secret",
		RedirectURL:       "http://localhost:8080/auth/github/callback",
		Scopes:            []string{"read:user"},
		APIBaseURL:        apiBaseURL,
		RequestsPerSecond: 100,
	}
}

func newTestService(server *httptest.Server) *OAuthService {
	endpoint := oauth2.Endpoint{
		AuthURL:   server.URL + "/login/oauth/authorize",
		TokenURL:  server.URL + "/login/oauth/access_token",
		AuthStyle: oauth2.AuthStyleInParams,
	}

	return newOAuthService(newTestGitHubConfig(server.URL), endpoint, server.Client(), newMemoryStateStore(time.Now))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestOAuthService_AuthorizationURL(t *testing.T) {
	cfg := &config.Config{GitHubOAuth: newTestGitHubConfig("")}
	svc := NewOAuthService(cfg, NewStateStore(cfg, nil))
	ctx := context.Background()

	raw, err := svc.AuthorizationURL(ctx)
	require.NoError(t, err)

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "github.com", parsed.Host)
	assert.Equal(t, "/login/oauth/authorize", parsed.Path)

	query := parsed.Query()
	assert.Equal(t, "test_client_id", query.Get("client_id"))
	assert.Equal(t, "read:user", query.Get("scope"))
	assert.Equal(t, "code", query.Get("response_type"))
	assert.Equal(t, "http://localhost:8080/auth/github/callback", query.Get("redirect_uri"))

	state := query.Get("state")
	require.Len(t, state, 64)
	assert.NoError(t, svc.ValidateState(ctx, state))
	assert.ErrorIs(t, svc.ValidateState(ctx, state), service.ErrOAuthState, "state must be single use")
	assert.ErrorIs(t, svc.ValidateState(ctx, "never-issued"), service.ErrOAuthState)
	assert.ErrorIs(t, svc.ValidateState(ctx, ""), service.ErrOAuthState)
	assert.Equal(t, entity.ProviderTypeGitHub, svc.Provider())
}

func TestOAuthService_StateExpires(t *testing.T) {
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	states := newMemoryStateStore(func() time.Time { return current })
	svc := newOAuthService(newTestGitHubConfig(""), oauth2.Endpoint{}, http.DefaultClient, states)
	ctx := context.Background()

	raw, err := svc.AuthorizationURL(ctx)
	require.NoError(t, err)
	parsed, err := url.Parse(raw)
	require.NoError(t, err)

	current = current.Add(stateTTL + time.Second)
	assert.ErrorIs(t, svc.ValidateState(ctx, parsed.Query().Get("state")), service.ErrOAuthState)
}

func TestOAuthService_ExchangeAndFetchIdentity(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostForm.Get("code") != "good-code" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_verification_code"})

			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "gho_test", "token_type": "bearer"})
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer gho_test" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})

			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":         4242,
			"login":      "octocat",
			"email":      "octocat@github.com",
			"name":       "The Octocat",
			"avatar_url": "https://avatars.example/octocat",
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	svc := newTestService(server)
	ctx := context.Background()

	token, err := svc.ExchangeCode(ctx, "good-code")
	require.NoError(t, err)
	assert.Equal(t, "gho_test", token)

	user, err := svc.FetchIdentity(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "4242", user.ID)
	assert.Equal(t, "octocat", user.Login)
	assert.Equal(t, "octocat@github.com", user.Email)
	assert.Equal(t, entity.ProviderTypeGitHub, user.Provider)

	_, err = svc.ExchangeCode(ctx, "bad-code")
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrOAuthProvider))

	_, err = svc.FetchIdentity(ctx, "revoked")
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrOAuthProvider))
}

func TestOAuthService_FetchIdentityInvalidResponse(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "not json",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("<html>"))
			},
		},
		{
			name: "missing login",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, map[string]any{"id": 1})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			_, err := newTestService(server).FetchIdentity(context.Background(), "gho_test")
			require.Error(t, err)
			assert.True(t, errors.Is(err, service.ErrOAuthInvalidResponse))
		})
	}
}

func TestOAuthService_FetchIdentityNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	svc := newTestService(server)
	server.Close()

	_, err := svc.FetchIdentity(context.Background(), "gho_test")
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrOAuthNetwork))
}

func TestOAuthService_NotConfigured(t *testing.T) {
	cfg := &config.Config{}
	svc := NewOAuthService(cfg, NewStateStore(cfg, nil))

	_, err := svc.AuthorizationURL(context.Background())
	assert.Error(t, err)

	assert.Error(t, svc.ValidateState(context.Background(), "state"))

	_, err = svc.ExchangeCode(context.Background(), "code")
	assert.Error(t, err)

	_, err = svc.FetchIdentity(context.Background(), "token")
	assert.Error(t, err)
}
