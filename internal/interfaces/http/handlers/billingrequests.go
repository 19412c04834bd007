package handlers

import (
	stderrors "errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/corates/billing/internal/shared/utils"
)

type CreateSubscriptionRequest struct {
	PlanID                  string     `json:"planId" binding:"required"`
	Status                  string     `json:"status"`
	PeriodStart             *time.Time `json:"periodStart"`
	PeriodEnd               *time.Time `json:"periodEnd"`
	CancelAtPeriodEnd       bool       `json:"cancelAtPeriodEnd"`
	ExternalCustomerRef     string     `json:"externalCustomerRef" binding:"max=255"`
	ExternalSubscriptionRef string     `json:"externalSubscriptionRef" binding:"max=255"`
}

// UpdateSubscriptionRequest is a partial edit; omitted fields are unchanged.
type UpdateSubscriptionRequest struct {
	PlanID            *string    `json:"planId"`
	Status            *string    `json:"status"`
	PeriodStart       *time.Time `json:"periodStart"`
	PeriodEnd         *time.Time `json:"periodEnd"`
	CancelAtPeriodEnd *bool      `json:"cancelAtPeriodEnd"`
}

type CreateGrantRequest struct {
	Type      string                 `json:"type" binding:"required,oneof=trial single_project"`
	StartsAt  *time.Time             `json:"startsAt"`
	ExpiresAt *time.Time             `json:"expiresAt"`
	Metadata  map[string]interface{} `json:"metadata"`
}

type UpdateGrantRequest struct {
	StartsAt  *time.Time             `json:"startsAt"`
	ExpiresAt *time.Time             `json:"expiresAt"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// GrantShortcutRequest is the optional body of grant-trial and
// grant-single-project.
type GrantShortcutRequest struct {
	Metadata map[string]interface{} `json:"metadata"`
}

type LedgerQueryRequest struct {
	OrgID  string `form:"orgId" json:"orgId" binding:"omitempty,orgid"`
	Status string `form:"status" json:"status"`
	Type   string `form:"type" json:"type" binding:"max=128"`
}

// bindJSON decodes the body and converts binding failures into validation
// errors naming the field.
func bindJSON(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return utils.TranslateBindingError(err)
	}
	return nil
}

// bindOptionalJSON is bindJSON for endpoints whose body may be empty.
func bindOptionalJSON(c *gin.Context, req interface{}) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(req); err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil
		}
		return utils.TranslateBindingError(err)
	}
	return nil
}
