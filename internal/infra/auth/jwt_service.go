// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"warden/config"
	"warden/internal/domain/service"
	"warden/internal/errors"
)

// jwtService is a concrete implementation of the TokenService interface using HS256 JWTs.
type jwtService struct {
	secrets        map[service.TokenKind][]byte
	ttls           map[service.TokenKind]time.Duration
	refreshTTLDays int
}

// tokenClaims is the wire form of service.Claims. The random ID keeps two tokens
// minted for the same subject in the same second distinct, since the refresh
// value doubles as a unique store key.
type tokenClaims struct {
	Kind service.TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

// NewJWTService is the constructor for jwtService.
func NewJWTService(cfg *config.Config) (service.TokenService, error) {
	if cfg.SecretKey.Access == "" || cfg.SecretKey.Refresh == "" {
		return nil, errors.New("jwt secrets must be provided")
	}
	if cfg.Auth == nil || cfg.Auth.AccessTTLHours <= 0 || cfg.Auth.RefreshTTLDays <= 0 {
		return nil, errors.New("jwt lifetimes must be positive")
	}

	return &jwtService{
		secrets: map[service.TokenKind][]byte{
			service.TokenKindAccess:  []byte(cfg.SecretKey.Access),
			service.TokenKindRefresh: []byte(cfg.SecretKey.Refresh),
		},
		ttls: map[service.TokenKind]time.Duration{
			service.TokenKindAccess:  cfg.Auth.AccessTTL(),
			service.TokenKindRefresh: cfg.Auth.RefreshTTL(),
		},
		refreshTTLDays: cfg.Auth.RefreshTTLDays,
	}, nil
}

// Mint signs a token of the given kind for subject.
func (s *jwtService) Mint(kind service.TokenKind, subject uuid.UUID, now time.Time) (string, error) {
	secret, ttl, err := s.lookup(kind)
	if err != nil {
		return "", err
	}

	claims := tokenClaims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", errors.Wrapf(err, "failed to sign %s token", kind)
	}

	return signed, nil
}

// Verify parses tokenString with the secret of kind and evaluates expiry at now.
func (s *jwtService) Verify(kind service.TokenKind, tokenString string, now time.Time) (*service.Claims, error) {
	secret, _, err := s.lookup(kind)
	if err != nil {
		return nil, err
	}

	claims := &tokenClaims{}
	_, err = jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", token.Header["alg"])
		}

		return secret, nil
	},
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
		// A token is still valid at exactly exp, matching RefreshToken.IsExpired.
		jwt.WithLeeway(time.Nanosecond),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, classifyParseError(err)
	}

	if claims.Kind != kind {
		return nil, errors.Wrapf(service.ErrTokenMalformed, "expected %s token, got %q", kind, claims.Kind)
	}

	subject, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, errors.Wrap(service.ErrTokenMalformed, "subject is not a uuid")
	}

	out := &service.Claims{
		Subject:   subject,
		Kind:      claims.Kind,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}

	return out, nil
}

// TTL returns the configured lifetime for kind.
func (s *jwtService) TTL(kind service.TokenKind) time.Duration {
	return s.ttls[kind]
}

// RefreshTTLDays returns the refresh lifetime in days.
func (s *jwtService) RefreshTTLDays() int {
	return s.refreshTTLDays
}

func (s *jwtService) lookup(kind service.TokenKind) ([]byte, time.Duration, error) {
	secret, ok := s.secrets[kind]
	if !ok {
		return nil, 0, errors.Errorf("unknown token kind %q", kind)
	}

	return secret, s.ttls[kind], nil
}

// classifyParseError folds jwt's error tree into the three codec failures.
// Signature problems win over expiry because jwt checks the signature first.
func classifyParseError(err error) error {
	switch {
	case errors.IsAny(err, jwt.ErrTokenSignatureInvalid, jwt.ErrTokenUnverifiable, jwt.ErrSignatureInvalid):
		return errors.Wrap(service.ErrTokenSignatureInvalid, err.Error())
	case errors.Is(err, jwt.ErrTokenExpired):
		return errors.Wrap(service.ErrTokenExpired, err.Error())
	default:
		return errors.Wrap(service.ErrTokenMalformed, err.Error())
	}
}
