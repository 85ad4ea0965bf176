// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// User is the principal a session represents.
type User struct {
	ID            uuid.UUID  // The Global Unique Identifier (GUID) for the user.
	Name          string     // Unique display name, also the GitHub login for OAuth-created accounts.
	Email         string     // Unique login identifier, compared as stored.
	PasswordHash  string     // bcrypt hash; empty for accounts that only sign in through OAuth.
	EmailVerified bool       // Credential signin is refused until this is set.
	CreatedAt     time.Time  // Timestamp of when this user account was created.
	UpdatedAt     time.Time  // Timestamp of the last modification to this user's data.
	DeletedAt     *time.Time // Tombstone; deleted users are invisible to lookups.
}

// HasPassword reports whether the user can sign in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}
