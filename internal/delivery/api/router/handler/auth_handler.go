// Package handler contains the HTTP handlers for the application.
package handler

import (
	"net/http"
	"time"

	"warden/config"
	"warden/internal/delivery/api/response"
	deliverycontext "warden/internal/delivery/context"
	"warden/internal/domain/entity"
	domainerrors "warden/internal/domain/errors"
	"warden/internal/domain/service"
	"warden/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// SignUpRequest is the body of POST /auth/signup.
type SignUpRequest struct {
	Name     string `json:"name" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// SignInRequest is the body of POST /auth/signin.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=72"`
}

// UserView is the public projection of a principal.
type UserView struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

// SignInResponse is returned by a successful signin.
type SignInResponse struct {
	User        UserView  `json:"user"`
	AccessToken string    `json:"access_token"`
	Message     string    `json:"message"`
	SignedInAt  time.Time `json:"signed_in_at"`
}

// RefreshResponse is returned by a successful rotation.
type RefreshResponse struct {
	AccessToken string    `json:"access_token"`
	Message     string    `json:"message"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// SignOutResponse is returned by signout.
type SignOutResponse struct {
	Message     string    `json:"message"`
	SignedOutAt time.Time `json:"signed_out_at"`
}

// AuthHandler serves the credential and session endpoints.
type AuthHandler struct {
	uc      usecase.AuthUsecase
	clock   service.Clock
	cookies *sessionCookies
}

// NewAuthHandler is the constructor for AuthHandler, injected by Fx.
func NewAuthHandler(uc usecase.AuthUsecase, clock service.Clock, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		uc:      uc,
		clock:   clock,
		cookies: newSessionCookies(cfg),
	}
}

// SignUp registers a principal. No session is issued.
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req SignUpRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	output, err := h.uc.SignUp(c.Request().Context(), &usecase.SignUpInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusCreated, newUserView(output.User))
}

// SignIn verifies credentials and sets a fresh session pair.
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req SignInRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	session, err := h.uc.SignIn(c.Request().Context(), &usecase.SignInInput{
		Email:                 req.Email,
		Password:              req.Password,
		PresentedRefreshToken: h.cookies.refreshToken(c),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	h.cookies.set(c, session)

	return response.Success(c, http.StatusOK, SignInResponse{
		User:        newUserView(session.Principal),
		AccessToken: session.AccessToken,
		Message:     "Successfully signed in",
		SignedInAt:  session.IssuedAt,
	})
}

// Refresh rotates the refresh cookie.
func (h *AuthHandler) Refresh(c echo.Context) error {
	session, err := h.uc.Refresh(c.Request().Context(), &usecase.RefreshInput{
		RefreshToken: h.cookies.refreshToken(c),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	h.cookies.set(c, session)

	return response.Success(c, http.StatusOK, RefreshResponse{
		AccessToken: session.AccessToken,
		Message:     "Tokens refreshed successfully",
		RefreshedAt: session.IssuedAt,
	})
}

// SignOut revokes the presented refresh token. Cookies are cleared whenever a
// token was presented, even if the store no longer knew it.
func (h *AuthHandler) SignOut(c echo.Context) error {
	output, err := h.uc.SignOut(c.Request().Context(), &usecase.SignOutInput{
		RefreshToken: h.cookies.refreshToken(c),
	})
	if output != nil && output.ClearCredentials {
		h.cookies.clear(c)
	}
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, SignOutResponse{
		Message:     "Successfully signed out",
		SignedOutAt: h.clock.Now().Truncate(time.Second),
	})
}

// Me returns the principal behind the access token.
func (h *AuthHandler) Me(c echo.Context) error {
	userID, ok := deliverycontext.GetUserID(c)
	if !ok {
		return errors.Wrap(domainerrors.ErrUnauthorized, "no principal on context")
	}

	user, err := h.uc.Me(c.Request().Context(), userID)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newUserView(user))
}

// HealthCheck reports liveness.
func HealthCheck(c echo.Context) error {
	return response.Success(c, http.StatusOK, map[string]string{"status": "ok"})
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return errors.Wrap(domainerrors.ErrValidation, err.Error())
	}

	return errors.WithStack(c.Validate(req))
}

func newUserView(user *entity.User) UserView {
	return UserView{
		ID:            user.ID.String(),
		Username:      user.Name,
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt,
	}
}
