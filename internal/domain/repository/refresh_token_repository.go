package repository

import (
	"context"
	"time"

	"warden/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrRefreshTokenNotFound is returned when no record exists for a token value.
var ErrRefreshTokenNotFound = errors.New("refresh token not found")

// RefreshTokenRepository is the durable record of issued refresh tokens, keyed by
// the raw token value.
type RefreshTokenRepository interface {
	// Create inserts a record expiring at now + ttlDays. A duplicate value is a
	// storage error, never silently ignored.
	Create(ctx context.Context, token string, userID uuid.UUID, ttlDays int, now time.Time) (*entity.RefreshToken, error)

	// FindByToken returns ErrRefreshTokenNotFound when the value is unknown.
	FindByToken(ctx context.Context, token string) (*entity.RefreshToken, error)

	// Exists reports whether a record exists for the value.
	Exists(ctx context.Context, token string) (bool, error)

	// IsExpired is true when the record is absent or its expiry is before now.
	IsExpired(ctx context.Context, token string, now time.Time) (bool, error)

	// DeleteByToken is idempotent and returns the number of rows removed.
	// Zero means another caller already consumed the value.
	DeleteByToken(ctx context.Context, token string) (int64, error)

	// DeleteByUserID revokes every session of a user.
	DeleteByUserID(ctx context.Context, userID uuid.UUID) (int64, error)

	// DeleteExpired removes records whose expiry is before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
