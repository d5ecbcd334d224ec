// AngelaMos | 2026
// errors.go

package core

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"
)

var (
	ErrNotFound         = errors.New("resource not found")
	ErrDuplicateKey     = errors.New("duplicate key")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidInputType = errors.New("invalid input type")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrConflict         = errors.New("conflict")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenInvalid     = errors.New("token invalid")
	ErrTokenRevoked     = errors.New("token revoked")
	ErrRateLimited      = errors.New("rate limited")
	ErrLocked           = errors.New("account locked")
	ErrInternal         = errors.New("internal error")
)

// AppError is an error that knows how it is rendered to a client.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
	Code       string
	Details    map[string]any
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(err error, message string, status int, code string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		StatusCode: status,
		Code:       code,
	}
}

func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func ValidationError(message string) *AppError {
	return NewAppError(
		ErrInvalidInput,
		message,
		http.StatusBadRequest,
		"VALIDATION_ERROR",
	)
}

func ConflictError(field string) *AppError {
	return NewAppError(
		ErrConflict,
		fmt.Sprintf("%s already exists", field),
		http.StatusConflict,
		"CONFLICT",
	).WithDetail("field", field)
}

// AuthenticationError reports bad credentials. A negative remaining value
// omits the remaining attempt count from the response.
func AuthenticationError(message string, remaining int) *AppError {
	appErr := NewAppError(
		ErrUnauthorized,
		message,
		http.StatusUnauthorized,
		"INVALID_CREDENTIALS",
	)
	if remaining >= 0 {
		appErr.WithDetail("remaining_attempts", remaining)
	}
	return appErr
}

func LockedError(retryAfter time.Duration) *AppError {
	minutes := int(math.Ceil(retryAfter.Minutes()))
	if minutes < 1 {
		minutes = 1
	}

	return NewAppError(
		ErrLocked,
		fmt.Sprintf(
			"account is locked, try again in %d minutes",
			minutes,
		),
		http.StatusLocked,
		"ACCOUNT_LOCKED",
	).WithDetail("retry_after_minutes", minutes)
}

func NotFoundError(resource string) *AppError {
	return NewAppError(
		ErrNotFound,
		fmt.Sprintf("%s not found", resource),
		http.StatusNotFound,
		"NOT_FOUND",
	)
}

func RateLimitError(message string) *AppError {
	return NewAppError(
		ErrRateLimited,
		message,
		http.StatusTooManyRequests,
		"RATE_LIMITED",
	)
}

func TokenError(err error, message string, status int) *AppError {
	return NewAppError(err, message, status, "TOKEN_ERROR")
}

func UnauthorizedError(message string) *AppError {
	if message == "" {
		message = "unauthorized"
	}
	return NewAppError(
		ErrUnauthorized,
		message,
		http.StatusUnauthorized,
		"UNAUTHORIZED",
	)
}

func ForbiddenError(message string) *AppError {
	if message == "" {
		message = "forbidden"
	}
	return NewAppError(
		ErrForbidden,
		message,
		http.StatusForbidden,
		"FORBIDDEN",
	)
}

func TokenExpiredError() *AppError {
	return NewAppError(
		ErrTokenExpired,
		"token has expired",
		http.StatusUnauthorized,
		"TOKEN_EXPIRED",
	)
}

func TokenRevokedError() *AppError {
	return NewAppError(
		ErrTokenRevoked,
		"token has been revoked",
		http.StatusUnauthorized,
		"TOKEN_REVOKED",
	)
}

func TokenInvalidError() *AppError {
	return NewAppError(
		ErrTokenInvalid,
		"token is invalid",
		http.StatusUnauthorized,
		"TOKEN_INVALID",
	)
}

// InternalError never exposes err to the client; it is kept for logging.
func InternalError(err error) *AppError {
	return NewAppError(
		err,
		"internal server error",
		http.StatusInternalServerError,
		"INTERNAL_ERROR",
	)
}
