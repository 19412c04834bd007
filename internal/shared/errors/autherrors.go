package errors

import (
	"net/http"
)

// Token-specific error types
const (
	ErrorTypeTokenExpired ErrorType = "token_expired"
	ErrorTypeTokenInvalid ErrorType = "token_invalid"
)

// NewTokenExpiredError creates an error for expired bearer tokens
func NewTokenExpiredError() *AppError {
	return &AppError{
		Type:    ErrorTypeTokenExpired,
		Message: "Token has expired",
		Code:    http.StatusUnauthorized,
		Reason:  ReasonUnauthenticated,
	}
}

// NewTokenInvalidError creates an error for malformed or unverifiable tokens
func NewTokenInvalidError(details ...string) *AppError {
	return newAppError(ErrorTypeTokenInvalid, http.StatusUnauthorized, ReasonUnauthenticated, "Invalid token", details)
}

// IsAuthError reports whether err should be surfaced as a 401.
func IsAuthError(err error) bool {
	appErr := GetAppError(err)
	if appErr == nil {
		return false
	}
	switch appErr.Type {
	case ErrorTypeUnauthorized, ErrorTypeTokenExpired, ErrorTypeTokenInvalid:
		return true
	}
	return false
}
