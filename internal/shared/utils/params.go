package utils

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/corates/billing/internal/shared/errors"
	"github.com/corates/billing/internal/shared/id"
)

// ParseSIDParam parses and validates a Stripe-style prefixed ID from a URL path parameter.
func ParseSIDParam(c *gin.Context, paramName, prefix, entityName string) (string, error) {
	sid := c.Param(paramName)
	if sid == "" {
		return "", errors.NewValidationError(entityName + " ID is required").WithField(paramName)
	}

	if err := id.ValidatePrefix(sid, prefix); err != nil {
		return "", errors.NewValidationError(
			fmt.Sprintf("invalid %s ID format, expected %s_xxxxx", entityName, prefix),
		).WithField(paramName)
	}

	return sid, nil
}

// ParseOrgIDParam reads the organization id path parameter.
func ParseOrgIDParam(c *gin.Context) (string, error) {
	orgID := strings.TrimSpace(c.Param("orgId"))
	if orgID == "" {
		return "", errors.NewValidationError("organization ID is required").WithField("orgId")
	}
	if err := validate.Var(orgID, "orgid"); err != nil {
		return "", errors.NewValidationError("invalid organization ID").WithField("orgId")
	}
	return orgID, nil
}

// ParseLimit reads the "limit" query parameter, applying a default and a cap.
func ParseLimit(c *gin.Context, defaultLimit, maxLimit int) (int, error) {
	raw := strings.TrimSpace(c.Query("limit"))
	if raw == "" {
		return defaultLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, errors.NewValidationError("limit must be a positive integer").WithField("limit")
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit, nil
}

// ParseOptionalMinutes reads a non-negative minutes query parameter. ok is false
// when the parameter is absent.
func ParseOptionalMinutes(c *gin.Context, name string) (minutes int, ok bool, err error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, false, nil
	}
	minutes, err = strconv.Atoi(raw)
	if err != nil || minutes < 0 {
		return 0, false, errors.NewValidationError(name + " must be a non-negative number of minutes").WithField(name)
	}
	return minutes, true, nil
}

// ParseBoolQuery reads a boolean query flag, treating absent as false.
func ParseBoolQuery(c *gin.Context, name string) (bool, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errors.NewValidationError(name + " must be true or false").WithField(name)
	}
	return v, nil
}
