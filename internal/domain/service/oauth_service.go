package service

import (
	"context"
	"errors"

	"warden/internal/domain/entity"
)

// OAuth collaborator failures.
var (
	ErrOAuthNetwork         = errors.New("oauth provider unreachable")
	ErrOAuthInvalidResponse = errors.New("oauth provider returned an invalid response")
	ErrOAuthProvider        = errors.New("oauth provider rejected the request")
	ErrOAuthState           = errors.New("oauth state invalid or expired")
)

// OAuthUser represents user information from OAuth providers
type OAuthUser struct {
	ID        string              // Provider-specific stable account id
	Login     string              // Provider login name
	Email     string              // Public email, may be empty
	Name      string              // Display name, may be empty
	AvatarURL string              // URL to user's profile picture
	Provider  entity.ProviderType // The OAuth provider
}

// OAuthService performs the authorization code flow against one provider.
type OAuthService interface {
	// Provider returns the OAuth provider type
	Provider() entity.ProviderType

	// AuthorizationURL returns the provider consent URL carrying a fresh single-use state.
	AuthorizationURL(ctx context.Context) (string, error)

	// ValidateState consumes state. It returns ErrOAuthState unless the state
	// was issued by this service and is still fresh.
	ValidateState(ctx context.Context, state string) error

	// ExchangeCode trades an authorization code for a provider access token.
	ExchangeCode(ctx context.Context, code string) (string, error)

	// FetchIdentity resolves the provider access token to the external account.
	FetchIdentity(ctx context.Context, accessToken string) (*OAuthUser, error)
}
