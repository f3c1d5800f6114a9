package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
)

// ErrorType classifies failures by how a consumer should react to them.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeSession    ErrorType = "session"
	ErrorTypeDatabase   ErrorType = "database"
	ErrorTypeExternal   ErrorType = "external_api"
	ErrorTypeCache      ErrorType = "cache"
	ErrorTypeInternal   ErrorType = "internal"
)

// AppError represents an application error with additional context
type AppError struct {
	Type     ErrorType
	Message  string
	Code     string
	Internal error
	Context  map[string]interface{}
	Source   string
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the internal error
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Is matches another AppError by type and code, otherwise defers to the wrapped error.
func (e *AppError) Is(target error) bool {
	if t, ok := target.(*AppError); ok {
		return e.Type == t.Type && e.Code == t.Code
	}
	return errors.Is(e.Internal, target)
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// LogFields returns structured logging fields
func (e *AppError) LogFields() []interface{} {
	fields := []interface{}{
		"error_type", e.Type,
		"error_code", e.Code,
		"error_message", e.Message,
		"source", e.Source,
	}

	if e.Internal != nil {
		fields = append(fields, "internal_error", e.Internal.Error())
	}

	for k, v := range e.Context {
		fields = append(fields, k, v)
	}

	return fields
}

// New creates a new AppError
func New(errorType ErrorType, code, message string) *AppError {
	_, file, line, _ := runtime.Caller(1)

	return &AppError{
		Type:    errorType,
		Code:    code,
		Message: message,
		Source:  fmt.Sprintf("%s:%d", file, line),
		Context: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error into AppError
func Wrap(err error, errorType ErrorType, code, message string) *AppError {
	_, file, line, _ := runtime.Caller(1)

	return &AppError{
		Type:     errorType,
		Code:     code,
		Message:  message,
		Internal: err,
		Source:   fmt.Sprintf("%s:%d", file, line),
		Context:  make(map[string]interface{}),
	}
}

// IsSkippable reports whether a queue message that failed with err should be
// dropped rather than redelivered: malformed input and missing or expired
// sessions never heal on retry.
func IsSkippable(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Type == ErrorTypeValidation || appErr.Type == ErrorTypeSession
}

// Handler logs errors according to their type
type Handler struct {
	logger *slog.Logger
}

func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{logger: logger}
}

// Handle processes an error according to its type
func (h *Handler) Handle(ctx context.Context, err error) {
	if err == nil {
		return
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		h.handleAppError(ctx, appErr)
	} else {
		h.logger.ErrorContext(ctx, "Unhandled error", "error", err.Error())
	}
}

func (h *Handler) handleAppError(ctx context.Context, err *AppError) {
	switch err.Type {
	case ErrorTypeValidation:
		h.logger.WarnContext(ctx, "Validation error", err.LogFields()...)
	case ErrorTypeSession:
		h.logger.WarnContext(ctx, "Session unavailable", err.LogFields()...)
	case ErrorTypeCache:
		h.logger.WarnContext(ctx, "Cache error", err.LogFields()...)
	case ErrorTypeDatabase, ErrorTypeExternal, ErrorTypeInternal:
		h.logger.ErrorContext(ctx, "Critical error", err.LogFields()...)
	default:
		h.logger.ErrorContext(ctx, "Unknown error type", err.LogFields()...)
	}
}

// Predefined errors
var (
	ErrUnsupportedProvider = New(ErrorTypeValidation, "UNSUPPORTED_PROVIDER", "Unsupported provider type")
	ErrInvalidTimestamp    = New(ErrorTypeValidation, "INVALID_TIMESTAMP", "Invalid provider timestamp")
	ErrInvalidRange        = New(ErrorTypeValidation, "INVALID_RANGE", "Start must be before end")
	ErrMalformedMessage    = New(ErrorTypeValidation, "MALFORMED", "Malformed message body")
	ErrSessionNotFound     = New(ErrorTypeSession, "SESSION_NOT_FOUND", "Provider session not found")
	ErrSessionExpired      = New(ErrorTypeSession, "SESSION_EXPIRED", "Provider session expired")
	ErrUserNotFound        = New(ErrorTypeValidation, "USER_NOT_FOUND", "User not found")
)

func NewValidationError(code, message string) *AppError {
	return New(ErrorTypeValidation, code, message)
}

func NewDatabaseError(err error, operation string) *AppError {
	return Wrap(err, ErrorTypeDatabase, "DB_ERROR", "Database operation failed").
		WithContext("operation", operation)
}

func NewExternalAPIError(err error, api string) *AppError {
	return Wrap(err, ErrorTypeExternal, "EXTERNAL_API", fmt.Sprintf("%s API error", api)).
		WithContext("api", api)
}

func NewCacheError(err error, key string) *AppError {
	return Wrap(err, ErrorTypeCache, "CACHE", "Cache operation failed").
		WithContext("key", key)
}

func NewInternalError(err error) *AppError {
	return Wrap(err, ErrorTypeInternal, "INTERNAL", "Internal error")
}
