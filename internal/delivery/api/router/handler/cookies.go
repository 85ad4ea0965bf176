package handler

import (
	"net/http"
	"time"

	"warden/config"
	"warden/internal/usecase"

	"github.com/labstack/echo/v4"
)

// sessionCookies writes the credential pair as http-only, strict same-site cookies.
type sessionCookies struct {
	secure      bool
	accessName  string
	refreshName string
	accessTTL   time.Duration
	refreshTTL  time.Duration
}

func newSessionCookies(cfg *config.Config) *sessionCookies {
	return &sessionCookies{
		secure:      cfg.Auth.Cookie.Secure,
		accessName:  cfg.Auth.Cookie.AccessName,
		refreshName: cfg.Auth.Cookie.RefreshName,
		accessTTL:   cfg.Auth.AccessTTL(),
		refreshTTL:  cfg.Auth.RefreshTTL(),
	}
}

func (s *sessionCookies) set(c echo.Context, session *usecase.SessionOutput) {
	c.SetCookie(s.cookie(s.accessName, session.AccessToken, int(s.accessTTL.Seconds())))
	c.SetCookie(s.cookie(s.refreshName, session.RefreshToken, int(s.refreshTTL.Seconds())))
}

func (s *sessionCookies) clear(c echo.Context) {
	c.SetCookie(s.cookie(s.accessName, "", -1))
	c.SetCookie(s.cookie(s.refreshName, "", -1))
}

// refreshToken returns "" when the cookie is absent.
func (s *sessionCookies) refreshToken(c echo.Context) string {
	cookie, err := c.Cookie(s.refreshName)
	if err != nil {
		return ""
	}

	return cookie.Value
}

func (s *sessionCookies) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   s.secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}
