// Package errors provides application-level error types and utilities.
// It defines the validation, authorization, storage and billing denial
// errors surfaced by the HTTP layer.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrorTypeValidation      ErrorType = "validation_error"
	ErrorTypeNotFound        ErrorType = "not_found"
	ErrorTypeConflict        ErrorType = "conflict"
	ErrorTypeUnauthorized    ErrorType = "unauthorized"
	ErrorTypeForbidden       ErrorType = "forbidden"
	ErrorTypePaymentRequired ErrorType = "payment_required"
	ErrorTypeStorage         ErrorType = "storage_error"
	ErrorTypeInternal        ErrorType = "internal_error"
	ErrorTypeBadRequest      ErrorType = "bad_request"
	ErrorTypeRateLimited     ErrorType = "rate_limited"
)

// Reason codes callers branch on.
const (
	ReasonInvalidField         = "invalid_field"
	ReasonNotFound             = "not_found"
	ReasonConflict             = "conflict"
	ReasonUnauthenticated      = "unauthenticated"
	ReasonInsufficientRole     = "insufficient_role"
	ReasonQuotaExceeded        = "quota_exceeded"
	ReasonEntitlementForbidden = "entitlement_forbidden"
	ReasonStorageUnavailable   = "storage_unavailable"
	ReasonInternal             = "internal"
	ReasonRateLimited          = "rate_limited"
)

// QuotaDetail carries the numbers behind a quota_exceeded rejection.
type QuotaDetail struct {
	Key       string
	Used      int64
	Limit     int64
	Requested int64
}

// AppError represents an application error with additional context
type AppError struct {
	Type        ErrorType
	Message     string
	Code        int
	Details     string
	Reason      string
	Field       string
	Operation   string
	Entitlement string
	Quota       *QuotaDetail

	cause error
}

// Error implements the error interface
func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Type))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Operation != "" {
		b.WriteString(" [op=" + e.Operation + "]")
	}
	if e.Details != "" {
		b.WriteString(" (" + e.Details + ")")
	}
	if e.cause != nil {
		b.WriteString(": " + e.cause.Error())
	}
	return b.String()
}

func (e *AppError) Unwrap() error {
	return e.cause
}

// WithField names the offending input field.
func (e *AppError) WithField(field string) *AppError {
	e.Field = field
	return e
}

// WithReason overrides the default reason code for the error type.
func (e *AppError) WithReason(reason string) *AppError {
	e.Reason = reason
	return e
}

func newAppError(t ErrorType, code int, reason, message string, details []string) *AppError {
	detail := ""
	if len(details) > 0 {
		detail = details[0]
	}
	return &AppError{
		Type:    t,
		Message: message,
		Code:    code,
		Details: detail,
		Reason:  reason,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeValidation, http.StatusBadRequest, ReasonInvalidField, message, details)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeNotFound, http.StatusNotFound, ReasonNotFound, message, details)
}

// NewConflictError creates a new conflict error
func NewConflictError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeConflict, http.StatusConflict, ReasonConflict, message, details)
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeUnauthorized, http.StatusUnauthorized, ReasonUnauthenticated, message, details)
}

// NewForbiddenError creates a new forbidden error
func NewForbiddenError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeForbidden, http.StatusForbidden, ReasonInsufficientRole, message, details)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeInternal, http.StatusInternalServerError, ReasonInternal, message, details)
}

// NewBadRequestError creates a new bad request error
func NewBadRequestError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeBadRequest, http.StatusBadRequest, ReasonInvalidField, message, details)
}

// NewRateLimitedError rejects a caller that exceeded its request budget.
func NewRateLimitedError(message string) *AppError {
	return newAppError(ErrorTypeRateLimited, http.StatusTooManyRequests, ReasonRateLimited, message, nil)
}

// NewStorageError wraps a durable-store failure and tags it with the operation
// that was running.
func NewStorageError(operation string, cause error) *AppError {
	return &AppError{
		Type:      ErrorTypeStorage,
		Message:   "storage operation failed",
		Code:      http.StatusInternalServerError,
		Reason:    ReasonStorageUnavailable,
		Operation: operation,
		cause:     cause,
	}
}

// NewQuotaExceededError reports a quota rejection.
func NewQuotaExceededError(key string, used, limit, requested int64) *AppError {
	return &AppError{
		Type:    ErrorTypePaymentRequired,
		Message: fmt.Sprintf("quota %q exceeded", key),
		Code:    http.StatusPaymentRequired,
		Reason:  ReasonQuotaExceeded,
		Quota: &QuotaDetail{
			Key:       key,
			Used:      used,
			Limit:     limit,
			Requested: requested,
		},
	}
}

// NewEntitlementForbiddenError reports a missing entitlement.
func NewEntitlementForbiddenError(key string) *AppError {
	return &AppError{
		Type:        ErrorTypeForbidden,
		Message:     fmt.Sprintf("entitlement %q not granted by current plan", key),
		Code:        http.StatusForbidden,
		Reason:      ReasonEntitlementForbidden,
		Entitlement: key,
	}
}

// IsAppError checks if the error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from error
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsConflictError checks if the error is a conflict error
func IsConflictError(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == ErrorTypeConflict
}

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == ErrorTypeNotFound
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == ErrorTypeValidation
}

// IsStorageError checks if the error is a storage error
func IsStorageError(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == ErrorTypeStorage
}

// IsDuplicateError checks if the error is a database duplicate key error
func IsDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// MySQL
	if strings.Contains(errStr, "Duplicate entry") || strings.Contains(errStr, "duplicate key") {
		return true
	}
	// PostgreSQL
	if strings.Contains(errStr, "violates unique constraint") || strings.Contains(errStr, "SQLSTATE 23505") {
		return true
	}
	// SQLite
	if strings.Contains(errStr, "UNIQUE constraint failed") {
		return true
	}
	return strings.Contains(errStr, "unique constraint")
}
