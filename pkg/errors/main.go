package errors

import (
	"errors"
	"fmt"
	"strings"
)

const (
	StatusOK                  = 200
	StatusNoContent           = 204
	StatusBadRequest          = 400
	StatusUnauthorized        = 401
	StatusForbidden           = 403
	StatusNotFound            = 404
	StatusMethodNotAllowed    = 405
	StatusRequestTimeout      = 408
	StatusConflict            = 409
	StatusTooManyRequests     = 429
	StatusInternalServerError = 500
)

const (
	ErrorTypeDatabaseError       = "DATABASE_ERROR"
	ErrorTypeNotFound            = "NOT_FOUND"
	ErrorTypeInvalidRequest      = "INVALID_REQUEST"
	ErrorTypeInvalidConfirmation = "INVALID_CONFIRMATION"
	ErrorTypeUnauthorized        = "UNAUTHORIZED"
	ErrorTypeForbidden           = "FORBIDDEN"
	ErrorTypeConflict            = "CONFLICT"
	ErrorTypeInternalServerError = "INTERNAL_SERVER_ERROR"
	ErrorTypeUnknown             = "UNKNOWN_ERROR"
	ErrorTypeRateLimitExceeded   = "RATE_LIMIT_EXCEEDED"
)

// AppError is the only error shape whose Message reaches clients. Details
// carries optional structured payload (field errors, partial counts).
type AppError struct {
	Type    string
	Message string
	Err     error
	Details any
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

func NewAppError(errType, message string, err error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

func NewNotFoundError(message string, err error) *AppError {
	return NewAppError(ErrorTypeNotFound, message, err)
}

func NewInvalidRequestError(message string, err error) *AppError {
	return NewAppError(ErrorTypeInvalidRequest, message, err)
}

// NewValidationError reports rejected input fields. Fields are exposed to the
// caller as the error details.
func NewValidationError(fields []ValidationErrorResponse) *AppError {
	return NewAppError(ErrorTypeInvalidRequest, "Invalid request payload", nil).WithDetails(fields)
}

func NewInvalidConfirmationError(err error) *AppError {
	return NewAppError(ErrorTypeInvalidConfirmation, "Invalid confirmation code", err)
}

func NewRateLimitExceededError(err error) *AppError {
	return NewAppError(ErrorTypeRateLimitExceeded, "Too many requests, please try again later", err)
}

func NewDatabaseError(message string, err error) *AppError {
	return NewAppError(ErrorTypeDatabaseError, message, err)
}

func NewConflictError(message string, err error) *AppError {
	return NewAppError(ErrorTypeConflict, message, err)
}

func NewUnauthorizedError(message string, err error) *AppError {
	return NewAppError(ErrorTypeUnauthorized, message, err)
}

func NewForbiddenError(message string, err error) *AppError {
	return NewAppError(ErrorTypeForbidden, message, err)
}

func NewInternalServerError(message string, err error) *AppError {
	return NewAppError(ErrorTypeInternalServerError, message, err)
}

func GetErrorType(err error) string {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}

	return ErrorTypeUnknown
}

// GetDetails returns the structured details attached to an AppError, or nil.
func GetDetails(err error) any {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Details
	}
	return nil
}

func IsType(err error, errType string) bool {
	return GetErrorType(err) == errType
}

// IsDuplicateKeyError recognizes unique-constraint violations across the
// postgres and sqlite drivers, which gorm does not always translate.
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if IsType(err, ErrorTypeConflict) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{"duplicate", "unique constraint", "sqlstate 23505"} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
