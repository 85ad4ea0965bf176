// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"warden/config"
	"warden/internal/delivery/api/middleware"
	"warden/internal/delivery/api/router/handler"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"
	"golang.org/x/time/rate"
)

type RouterParams struct {
	fx.In

	AuthHandler    *handler.AuthHandler
	OAuthHandler   *handler.OAuthHandler
	AuthMiddleware *middleware.AuthMiddleware
	Config         *config.Config
}

// router holds all the handlers that need to be registered.
type router struct {
	authHandler    *handler.AuthHandler
	oauthHandler   *handler.OAuthHandler
	authMiddleware *middleware.AuthMiddleware
	config         *config.Config
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		authHandler:    params.AuthHandler,
		oauthHandler:   params.OAuthHandler,
		authMiddleware: params.AuthMiddleware,
		config:         params.Config,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", handler.HealthCheck)

	authGroup := e.Group("/auth")
	if limiter := r.rateLimiter(); limiter != nil {
		authGroup.Use(limiter)
	}
	{
		authGroup.POST("/signup", r.authHandler.SignUp)
		authGroup.POST("/signin", r.authHandler.SignIn)
		authGroup.POST("/refresh", r.authHandler.Refresh)
		authGroup.POST("/signout", r.authHandler.SignOut)
		authGroup.GET("/me", r.authHandler.Me, r.authMiddleware.Authenticate)

		authGroup.GET("/github", r.oauthHandler.GitHubLogin)
		authGroup.GET("/github/callback", r.oauthHandler.GitHubCallback)
	}
}

// rateLimiter keys on the client IP. Rejections surface as echo 429 errors.
func (r *router) rateLimiter() echo.MiddlewareFunc {
	if r.config.HTTP.AuthRateLimit <= 0 {
		return nil
	}

	store := echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
		Rate:  rate.Limit(r.config.HTTP.AuthRateLimit),
		Burst: r.config.HTTP.AuthRateBurst,
	})

	return echomiddleware.RateLimiter(store)
}
