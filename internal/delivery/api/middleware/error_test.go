package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"warden/internal/delivery/api/response"
	domainerrors "warden/internal/domain/errors"
	"warden/internal/errors"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMiddleware_HandleHTTPError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
		wantDetails bool
		wantLog     string
	}{
		{
			name:        "unauthorized hides the cause",
			err:         errors.Wrap(domainerrors.ErrUnauthorized, "refresh token already rotated"),
			wantStatus:  http.StatusUnauthorized,
			wantCode:    "UNAUTHORIZED",
			wantMessage: "Unauthorized",
			wantLog:     "level=WARN",
		},
		{
			name:        "validation keeps details",
			err:         domainerrors.ErrValidation.WithDetails([]string{"email"}),
			wantStatus:  http.StatusBadRequest,
			wantCode:    "VALIDATION_ERROR",
			wantMessage: "Invalid input",
			wantDetails: true,
			wantLog:     "level=INFO",
		},
		{
			name:        "database error is generic",
			err:         domainerrors.NewDatabaseExecuteError(errors.New("connection reset"), "insert failed"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    "DATABASE_ERROR",
			wantMessage: "Database error",
			wantLog:     "level=ERROR",
		},
		{
			name:        "echo not found",
			err:         echo.ErrNotFound,
			wantStatus:  http.StatusNotFound,
			wantCode:    "NOT_FOUND",
			wantMessage: "Not Found",
			wantLog:     "level=INFO",
		},
		{
			name:        "rate limited",
			err:         echo.ErrTooManyRequests,
			wantStatus:  http.StatusTooManyRequests,
			wantCode:    "RATE_LIMITED",
			wantMessage: "Too Many Requests",
			wantLog:     "level=INFO",
		},
		{
			name:        "unknown error",
			err:         errors.New("nil pointer somewhere"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    "INTERNAL_SERVER_ERROR",
			wantMessage: "Internal server error, please try again later",
			wantLog:     "level=ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			mw := NewErrorMiddleware(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})))

			rec := httptest.NewRecorder()
			c := echo.New().NewContext(httptest.NewRequest(http.MethodPost, "/auth/refresh", nil), rec)

			mw.HandleHTTPError(tt.err, c)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var body response.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Error.Code)
			assert.Equal(t, tt.wantMessage, body.Error.Message)
			assert.Equal(t, tt.wantDetails, body.Error.Details != nil)
			assert.NotEmpty(t, body.Meta.RequestID)

			assert.Contains(t, logs.String(), tt.wantLog)
			assert.Contains(t, logs.String(), tt.err.Error())
		})
	}
}
