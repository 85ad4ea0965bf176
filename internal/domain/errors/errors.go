package errors

import (
	"log/slog"
	"net/http"

	"warden/internal/errors"
)

// Kind tags an application error. The boundary layer maps each kind to a status
// code, a generic message and a log level, so internal causes never reach clients.
type Kind string

const (
	KindNotFound       Kind = "NOT_FOUND"
	KindValidation     Kind = "VALIDATION_ERROR"
	KindUnauthorized   Kind = "UNAUTHORIZED"
	KindConflict       Kind = "CONFLICT"
	KindDatabase       Kind = "DATABASE_ERROR"
	KindInternalServer Kind = "INTERNAL_SERVER_ERROR"
)

// HTTPCode returns the status code for the kind.
func (k Kind) HTTPCode() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// LogLevel returns the severity used when an error of this kind reaches the boundary.
func (k Kind) LogLevel() slog.Level {
	switch k {
	case KindDatabase, KindInternalServer:
		return slog.LevelError
	case KindUnauthorized, KindConflict:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// AppError defines the interface for application-specific errors
type AppError interface {
	error
	Kind() Kind
	HTTPCode() int     // HTTP status code
	ErrorCode() string // Business error code
	Message() string   // User-facing message, never the internal cause
	Details() any      // Optional structured context, dropped for 401/403/5xx
}

// BaseError is a basic error structure that implements the AppError interface
type BaseError struct {
	kind    Kind
	message string
	details any
}

// NewBaseError creates a new base error
func NewBaseError(kind Kind, message string, details any) *BaseError {
	return &BaseError{
		kind:    kind,
		message: message,
		details: details,
	}
}

// Error implements the error interface
func (e *BaseError) Error() string {
	return e.message
}

// WrapMessage wraps the error with an internal context message.
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

// Kind returns the error kind
func (e *BaseError) Kind() Kind {
	return e.kind
}

// HTTPCode returns the HTTP status code
func (e *BaseError) HTTPCode() int {
	return e.kind.HTTPCode()
}

// ErrorCode returns the business error code
func (e *BaseError) ErrorCode() string {
	return string(e.kind)
}

// Message returns the user-friendly error message
func (e *BaseError) Message() string {
	return e.message
}

// Details returns detailed error information
func (e *BaseError) Details() any {
	return e.details
}

// WithDetails returns a copy carrying details.
func (e *BaseError) WithDetails(details any) *BaseError {
	return &BaseError{
		kind:    e.kind,
		message: e.message,
		details: details,
	}
}

// Is matches any BaseError of the same kind, so copies made by WithDetails still
// satisfy errors.Is against the predefined values.
func (e *BaseError) Is(target error) bool {
	t, ok := target.(*BaseError)
	if !ok {
		return false
	}

	return t.kind == e.kind
}

// Predefined error types, one per kind.
var (
	ErrNotFound = NewBaseError(KindNotFound, "Resource not found", nil)

	ErrValidation = NewBaseError(KindValidation, "Invalid input", nil)

	// ErrUnauthorized is returned for every authentication failure regardless of cause.
	ErrUnauthorized = NewBaseError(KindUnauthorized, "Unauthorized", nil)

	ErrConflict = NewBaseError(KindConflict, "Resource already exists", nil)

	ErrDatabase = NewBaseError(KindDatabase, "Database error", nil)

	ErrInternalServer = NewBaseError(KindInternalServer, "Internal server error, please try again later", nil)
)

// DatabaseExecuteError represents a database execution error, implementing the AppError interface
type DatabaseExecuteError struct {
	err     error
	details string
}

// NewDatabaseExecuteError creates a database-related error
func NewDatabaseExecuteError(err error, details string) AppError {
	return &DatabaseExecuteError{
		err:     err,
		details: details,
	}
}

// Error implements the error interface
func (e *DatabaseExecuteError) Error() string {
	return errors.Wrap(e.err, e.details).Error()
}

// Unwrap exposes the driver error.
func (e *DatabaseExecuteError) Unwrap() error {
	return e.err
}

func (e *DatabaseExecuteError) Kind() Kind {
	return KindDatabase
}

func (e *DatabaseExecuteError) HTTPCode() int {
	return KindDatabase.HTTPCode()
}

func (e *DatabaseExecuteError) ErrorCode() string {
	return string(KindDatabase)
}

func (e *DatabaseExecuteError) Message() string {
	return ErrDatabase.Message()
}

// Details is withheld from clients; the cause only goes to logs.
func (e *DatabaseExecuteError) Details() any {
	return nil
}

// KindOf returns the kind of the first AppError in err's chain,
// or KindInternalServer when there is none.
func KindOf(err error) Kind {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr.Kind()
	}

	return KindInternalServer
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
