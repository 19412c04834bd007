package utils

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/corates/billing/internal/shared/errors"
)

// APIResponse represents a standard API response structure
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// ErrorBody is the structured rejection body. Callers branch on Details.Reason.
type ErrorBody struct {
	Code       string       `json:"code"`
	Message    string       `json:"message"`
	StatusCode int          `json:"statusCode"`
	Details    ErrorDetails `json:"details"`
}

// ErrorDetails holds the per-reason payload of an ErrorBody.
type ErrorDetails struct {
	Reason      string `json:"reason"`
	QuotaKey    string `json:"quotaKey,omitempty"`
	Entitlement string `json:"entitlement,omitempty"`
	Used        *int64 `json:"used,omitempty"`
	Limit       *int64 `json:"limit,omitempty"`
	Requested   *int64 `json:"requested,omitempty"`
	Field       string `json:"field,omitempty"`
	Operation   string `json:"operation,omitempty"`
	Info        string `json:"info,omitempty"`
}

// SuccessResponse sends a successful response with custom status code
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, APIResponse{
		Success: true,
		Data:    data,
		Message: message,
	})
}

// CreatedResponse sends a created response
func CreatedResponse(c *gin.Context, data interface{}, message ...string) {
	response := APIResponse{
		Success: true,
		Data:    data,
	}

	if len(message) > 0 {
		response.Message = message[0]
	} else {
		response.Message = "Resource created successfully"
	}

	c.JSON(http.StatusCreated, response)
}

// ErrorResponse sends an error response with custom status code and message
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, ErrorBody{
		Code:       codeForStatus(statusCode),
		Message:    message,
		StatusCode: statusCode,
		Details:    ErrorDetails{Reason: errors.ReasonInternal},
	})
}

// ErrorResponseWithError sends an error response based on error type
// and records err on the context for the error reporting middleware.
func ErrorResponseWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	body := BuildErrorBody(err)
	c.JSON(body.StatusCode, body)
}

// BuildErrorBody converts err into the wire body without writing it.
func BuildErrorBody(err error) ErrorBody {
	appErr := errors.GetAppError(err)
	if appErr == nil {
		// Non-AppError details stay server side.
		return ErrorBody{
			Code:       strings.ToUpper(string(errors.ErrorTypeInternal)),
			Message:    "Internal server error occurred",
			StatusCode: http.StatusInternalServerError,
			Details:    ErrorDetails{Reason: errors.ReasonInternal},
		}
	}

	details := ErrorDetails{
		Reason:      appErr.Reason,
		Entitlement: appErr.Entitlement,
		Field:       appErr.Field,
		Operation:   appErr.Operation,
		Info:        appErr.Details,
	}
	if q := appErr.Quota; q != nil {
		used, limit, requested := q.Used, q.Limit, q.Requested
		details.QuotaKey = q.Key
		details.Used = &used
		details.Limit = &limit
		details.Requested = &requested
	}

	code := strings.ToUpper(string(appErr.Type))
	if appErr.Reason == errors.ReasonQuotaExceeded || appErr.Reason == errors.ReasonEntitlementForbidden {
		code = strings.ToUpper(appErr.Reason)
	}

	message := appErr.Message
	if appErr.Type == errors.ErrorTypeStorage {
		message = "Storage temporarily unavailable"
	}

	return ErrorBody{
		Code:       code,
		Message:    message,
		StatusCode: appErr.Code,
		Details:    details,
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return strings.ToUpper(string(errors.ErrorTypeBadRequest))
	case http.StatusUnauthorized:
		return strings.ToUpper(string(errors.ErrorTypeUnauthorized))
	case http.StatusForbidden:
		return strings.ToUpper(string(errors.ErrorTypeForbidden))
	case http.StatusNotFound:
		return strings.ToUpper(string(errors.ErrorTypeNotFound))
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	default:
		return strings.ToUpper(string(errors.ErrorTypeInternal))
	}
}

// NoContentResponse sends a no content response
func NoContentResponse(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
