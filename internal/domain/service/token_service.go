package service

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TokenKind selects the signing secret and lifetime of a token.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// Verification failures. They stay distinct so callers can tell an expired
// session from a forged or garbled one.
var (
	ErrTokenExpired          = errors.New("token expired")
	ErrTokenSignatureInvalid = errors.New("token signature invalid")
	ErrTokenMalformed        = errors.New("token malformed")
)

// Claims is the verified payload of a token.
type Claims struct {
	Subject   uuid.UUID
	Kind      TokenKind
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenService mints and verifies signed tokens. It holds no state besides its
// secrets, so results depend only on the inputs and now.
type TokenService interface {
	// Mint signs a token of kind for subject, issued at now.
	Mint(kind TokenKind, subject uuid.UUID, now time.Time) (string, error)

	// Verify checks signature, structure and expiry at now. A token is
	// expired only once now is after its expiry.
	Verify(kind TokenKind, token string, now time.Time) (*Claims, error)

	// TTL returns the lifetime of kind.
	TTL(kind TokenKind) time.Duration

	// RefreshTTLDays is the refresh lifetime in whole days; store records and
	// cookies use it so their expiry matches the signed claim.
	RefreshTTLDays() int
}
