package repository

import (
	"context"
	"errors"

	"warden/internal/domain/entity"
)

// ErrAuthNotFound is returned when no provider link exists.
var ErrAuthNotFound = errors.New("authentication method not found")

// AuthRepository stores links between users and external identity providers.
type AuthRepository interface {
	// CreateAuthentication persists a new provider link.
	CreateAuthentication(ctx context.Context, auth *entity.Authentication) error

	// FindAuthentication retrieves a link by provider and provider-specific account id.
	FindAuthentication(ctx context.Context, provider entity.ProviderType, providerUserID string) (*entity.Authentication, error)
}
