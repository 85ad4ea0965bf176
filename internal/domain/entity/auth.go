package entity

import (
	"time"

	"github.com/google/uuid"
)

// ProviderType identifies an external identity provider.
type ProviderType string

const (
	// ProviderTypeGitHub links a user to a GitHub account id.
	ProviderTypeGitHub ProviderType = "github"
)

// String returns the string representation of the ProviderType.
func (p ProviderType) String() string {
	return string(p)
}

// Authentication links a user to an identity at an external provider.
type Authentication struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	Provider       ProviderType
	ProviderUserID string // The provider's stable account id, not the login name.
	CreatedAt      time.Time
}

// RefreshToken is the stored half of a session. Token holds the raw signed value
// handed to the client and is the lookup key; it is consumed on every rotation.
type RefreshToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired reports whether the record's own expiry has passed at now.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return t.ExpiresAt.Before(now)
}
