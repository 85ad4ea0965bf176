// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"
	"time"

	"warden/internal/domain/entity"

	"github.com/google/uuid"
)

// --- Input DTOs ---

// SignUpInput defines the data required to register a new principal.
type SignUpInput struct {
	Name     string
	Email    string
	Password string
}

// SignInInput carries the credentials and, when the client still holds one,
// the refresh token from a previous session.
type SignInInput struct {
	Email                 string
	Password              string
	PresentedRefreshToken string
}

// RefreshInput carries the refresh token presented by the client.
type RefreshInput struct {
	RefreshToken string
}

// SignOutInput carries the refresh token presented by the client.
type SignOutInput struct {
	RefreshToken string
}

// GitHubCallbackInput is the query of the GitHub redirect back to us.
type GitHubCallbackInput struct {
	Code  string
	State string
}

// --- Output DTOs ---

// SignUpOutput returns the newly created principal.
type SignUpOutput struct {
	User *entity.User
}

// SessionOutput is a freshly issued access and refresh pair.
type SessionOutput struct {
	AccessToken  string
	RefreshToken string
	Principal    *entity.User
	IssuedAt     time.Time
}

// SignOutOutput tells the transport whether client-side credentials must be
// cleared. It is returned together with the error on the Unauthorized path.
type SignOutOutput struct {
	ClearCredentials bool
}

// AuthUsecase defines the session lifecycle operations.
// This is the contract that the delivery layer depends on.
type AuthUsecase interface {
	SignUp(ctx context.Context, input *SignUpInput) (*SignUpOutput, error)
	SignIn(ctx context.Context, input *SignInInput) (*SessionOutput, error)
	Refresh(ctx context.Context, input *RefreshInput) (*SessionOutput, error)
	SignOut(ctx context.Context, input *SignOutInput) (*SignOutOutput, error)

	// GitHubAuthorizationURL returns the consent URL the client is redirected to.
	GitHubAuthorizationURL(ctx context.Context) (string, error)
	GitHubCallback(ctx context.Context, input *GitHubCallbackInput) (*SessionOutput, error)

	// Me returns the live principal behind a verified access token.
	Me(ctx context.Context, userID uuid.UUID) (*entity.User, error)
}
