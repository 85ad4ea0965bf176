package middleware

import (
	"log/slog"
	"net/http"

	"warden/internal/delivery/api/response"
	deliverycontext "warden/internal/delivery/context"
	domainerrors "warden/internal/domain/errors"
	"warden/internal/errors"

	"github.com/labstack/echo/v4"
)

// ErrorMiddleware handles errors in the HTTP pipeline
type ErrorMiddleware struct {
	logger *slog.Logger
}

// NewErrorMiddleware creates a new error handling middleware
func NewErrorMiddleware(logger *slog.Logger) *ErrorMiddleware {
	return &ErrorMiddleware{
		logger: logger,
	}
}

// HandleHTTPError handles errors as Echo's HTTPErrorHandler. The full cause is
// logged at the level of its kind; the client only sees the generic message.
func (m *ErrorMiddleware) HandleHTTPError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var appErr domainerrors.AppError
	if errors.As(err, &appErr) {
		m.log(c, appErr.Kind().LogLevel(), err)
		_ = response.Error(c, appErr.HTTPCode(), appErr.ErrorCode(), appErr.Message(), appErr.Details())

		return
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		m.log(c, slog.LevelInfo, err)
		_ = response.Error(c, httpErr.Code, httpErrorCode(httpErr.Code), http.StatusText(httpErr.Code), nil)

		return
	}

	m.log(c, slog.LevelError, err)
	_ = response.Error(c, http.StatusInternalServerError,
		domainerrors.ErrInternalServer.ErrorCode(), domainerrors.ErrInternalServer.Message(), nil)
}

func (m *ErrorMiddleware) log(c echo.Context, level slog.Level, err error) {
	ctx := c.Request().Context()
	deliverycontext.GetLoggerOrDefault(ctx, m.logger).LogAttrs(ctx, level, "Request failed",
		slog.String("error", err.Error()),
		slog.String("path", c.Request().URL.Path),
		slog.String("method", c.Request().Method),
	)
}

// httpErrorCode maps framework errors (routing, body limit, rate limit) to codes.
func httpErrorCode(status int) string {
	switch status {
	case http.StatusNotFound:
		return string(domainerrors.KindNotFound)
	case http.StatusBadRequest:
		return string(domainerrors.KindValidation)
	case http.StatusUnauthorized:
		return string(domainerrors.KindUnauthorized)
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusRequestEntityTooLarge:
		return "REQUEST_TOO_LARGE"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	default:
		return "HTTP_ERROR"
	}
}
