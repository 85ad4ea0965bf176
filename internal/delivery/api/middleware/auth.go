package middleware

import (
	"strings"

	"warden/config"
	deliverycontext "warden/internal/delivery/context"
	domainerrors "warden/internal/domain/errors"
	"warden/internal/domain/service"
	"warden/internal/errors"

	"github.com/labstack/echo/v4"
)

const bearerPrefix = "Bearer "

// AuthMiddleware admits requests that carry a valid access token.
type AuthMiddleware struct {
	tokenSvc   service.TokenService
	clock      service.Clock
	cookieName string
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(tokenSvc service.TokenService, clock service.Clock, cfg *config.Config) *AuthMiddleware {
	return &AuthMiddleware{
		tokenSvc:   tokenSvc,
		clock:      clock,
		cookieName: cfg.Auth.Cookie.AccessName,
	}
}

// Authenticate reads the access token from the Authorization header, falling
// back to the access cookie, and stores its subject on the context.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tokenString := m.accessToken(c)
		if tokenString == "" {
			return errors.Wrap(domainerrors.ErrUnauthorized, "access token missing")
		}

		claims, err := m.tokenSvc.Verify(service.TokenKindAccess, tokenString, m.clock.Now())
		if err != nil {
			return errors.Wrap(domainerrors.ErrUnauthorized, err.Error())
		}

		deliverycontext.SetUserID(c, claims.Subject)

		return next(c)
	}
}

func (m *AuthMiddleware) accessToken(c echo.Context) string {
	if header := c.Request().Header.Get(echo.HeaderAuthorization); header != "" {
		token, ok := strings.CutPrefix(header, bearerPrefix)
		if !ok {
			return ""
		}

		return strings.TrimSpace(token)
	}

	if cookie, err := c.Cookie(m.cookieName); err == nil {
		return cookie.Value
	}

	return ""
}
