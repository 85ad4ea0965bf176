package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"warden/config"
	"warden/internal/domain/entity"
	domainerrors "warden/internal/domain/errors"
	"warden/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAuthUsecase answers the GitHub operations; the rest panic if reached.
type stubAuthUsecase struct {
	usecase.AuthUsecase

	authURL     string
	authURLErr  error
	session     *usecase.SessionOutput
	callback    *usecase.GitHubCallbackInput
	callbackErr error
}

func (s *stubAuthUsecase) GitHubAuthorizationURL(context.Context) (string, error) {
	return s.authURL, s.authURLErr
}

func (s *stubAuthUsecase) GitHubCallback(_ context.Context, input *usecase.GitHubCallbackInput) (*usecase.SessionOutput, error) {
	s.callback = input

	return s.session, s.callbackErr
}

func newOAuthTestConfig() *config.Config {
	return &config.Config{
		Auth: &config.AuthConfig{
			AccessTTLHours: 1,
			RefreshTTLDays: 7,
			Cookie:         config.CookieConfig{RefreshName: "refresh_token", AccessName: "access_token"},
		},
		GitHubOAuth: &config.GitHubOAuthConfig{
			SuccessRedirect: "/app",
			FailureRedirect: "/login?error=github",
		},
	}
}

func serve(h echo.HandlerFunc, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, target, nil), rec)
	_ = h(c)

	return rec
}

func TestOAuthHandler_GitHubLogin(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	uc := &stubAuthUsecase{authURL: "https://github.com/login/oauth/authorize?state=abc"}
	rec := serve(NewOAuthHandler(uc, logger, newOAuthTestConfig()).GitHubLogin, "/auth/github")
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, uc.authURL, rec.Header().Get(echo.HeaderLocation))

	uc = &stubAuthUsecase{authURLErr: domainerrors.ErrInternalServer}
	rec = serve(NewOAuthHandler(uc, logger, newOAuthTestConfig()).GitHubLogin, "/auth/github")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login?error=github", rec.Header().Get(echo.HeaderLocation))
}

func TestOAuthHandler_GitHubCallback(t *testing.T) {
	uc := &stubAuthUsecase{
		session: &usecase.SessionOutput{
			AccessToken:  "access",
			RefreshToken: "refresh",
			Principal:    &entity.User{ID: uuid.New(), Name: "octocat"},
			IssuedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
	}
	h := NewOAuthHandler(uc, slog.New(slog.NewTextHandler(io.Discard, nil)), newOAuthTestConfig())

	rec := serve(h.GitHubCallback, "/auth/github/callback?code=c0de&state=st4te")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/app", rec.Header().Get(echo.HeaderLocation))
	require.NotNil(t, uc.callback)
	assert.Equal(t, "c0de", uc.callback.Code)
	assert.Equal(t, "st4te", uc.callback.State)

	cookies := map[string]*http.Cookie{}
	for _, cookie := range rec.Result().Cookies() {
		cookies[cookie.Name] = cookie
	}
	assert.Equal(t, "refresh", cookies["refresh_token"].Value)
	assert.Equal(t, "access", cookies["access_token"].Value)
}

func TestOAuthHandler_GitHubCallbackFailureHidesCause(t *testing.T) {
	uc := &stubAuthUsecase{callbackErr: errors.Wrap(domainerrors.ErrUnauthorized, "github code exchange: bad_verification_code")}
	h := NewOAuthHandler(uc, slog.New(slog.NewTextHandler(io.Discard, nil)), newOAuthTestConfig())

	rec := serve(h.GitHubCallback, "/auth/github/callback?code=x&state=y")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login?error=github", rec.Header().Get(echo.HeaderLocation))
	assert.NotContains(t, rec.Body.String(), "bad_verification_code")
	assert.Empty(t, rec.Result().Cookies())
}

func TestOAuthHandler_DefaultRedirects(t *testing.T) {
	cfg := newOAuthTestConfig()
	cfg.GitHubOAuth = nil

	h := NewOAuthHandler(&stubAuthUsecase{callbackErr: domainerrors.ErrUnauthorized}, slog.New(slog.NewTextHandler(io.Discard, nil)), cfg)
	rec := serve(h.GitHubCallback, "/auth/github/callback")
	assert.Equal(t, "/login?error=oauth_failed", rec.Header().Get(echo.HeaderLocation))
}
