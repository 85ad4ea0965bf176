package handler

import (
	"log/slog"
	"net/http"

	"warden/config"
	deliverycontext "warden/internal/delivery/context"
	"warden/internal/usecase"

	"github.com/labstack/echo/v4"
)

const (
	defaultOAuthSuccessRedirect = "/"
	defaultOAuthFailureRedirect = "/login?error=oauth_failed"
)

// OAuthHandler drives the GitHub authorization code flow. Every failure ends
// in the same redirect so provider detail never reaches the browser.
type OAuthHandler struct {
	uc              usecase.AuthUsecase
	logger          *slog.Logger
	cookies         *sessionCookies
	successRedirect string
	failureRedirect string
}

// NewOAuthHandler is the constructor for OAuthHandler, injected by Fx.
func NewOAuthHandler(uc usecase.AuthUsecase, logger *slog.Logger, cfg *config.Config) *OAuthHandler {
	h := &OAuthHandler{
		uc:              uc,
		logger:          logger,
		cookies:         newSessionCookies(cfg),
		successRedirect: defaultOAuthSuccessRedirect,
		failureRedirect: defaultOAuthFailureRedirect,
	}
	if gh := cfg.GitHubOAuth; gh != nil {
		h.successRedirect = gh.SuccessRedirect
		h.failureRedirect = gh.FailureRedirect
	}

	return h
}

// GitHubLogin redirects to the GitHub consent page.
func (h *OAuthHandler) GitHubLogin(c echo.Context) error {
	authURL, err := h.uc.GitHubAuthorizationURL(c.Request().Context())
	if err != nil {
		return h.fail(c, "github authorization url", err)
	}

	return c.Redirect(http.StatusTemporaryRedirect, authURL)
}

// GitHubCallback signs the linked principal in and sets the session cookies.
func (h *OAuthHandler) GitHubCallback(c echo.Context) error {
	session, err := h.uc.GitHubCallback(c.Request().Context(), &usecase.GitHubCallbackInput{
		Code:  c.QueryParam("code"),
		State: c.QueryParam("state"),
	})
	if err != nil {
		return h.fail(c, "github callback", err)
	}

	h.cookies.set(c, session)

	return c.Redirect(http.StatusFound, h.successRedirect)
}

func (h *OAuthHandler) fail(c echo.Context, stage string, err error) error {
	ctx := c.Request().Context()
	deliverycontext.GetLoggerOrDefault(ctx, h.logger).WarnContext(ctx, "GitHub sign-in failed",
		slog.String("stage", stage),
		slog.Any("error", err),
	)

	return c.Redirect(http.StatusFound, h.failureRedirect)
}
