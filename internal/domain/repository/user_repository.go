// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"errors"

	"warden/internal/domain/entity"

	"github.com/google/uuid"
)

// ErrUserNotFound is a domain-specific error returned when a user is not found.
var ErrUserNotFound = errors.New("user not found")

// UserRepository defines the standard operations for user persistence.
// Soft-deleted users are never returned.
type UserRepository interface {
	// FindByID retrieves a single user by their unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)

	// FindByEmail retrieves a single user by their email address, compared as stored.
	FindByEmail(ctx context.Context, email string) (*entity.User, error)

	// ExistsByEmail reports whether a live user already uses email.
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// ExistsByName reports whether a live user already uses name.
	ExistsByName(ctx context.Context, name string) (bool, error)

	// Create persists a new user and fills in the generated ID and timestamps.
	// A uniqueness violation is reported as a Conflict.
	Create(ctx context.Context, user *entity.User) error
}
