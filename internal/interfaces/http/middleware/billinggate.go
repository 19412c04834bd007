package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/corates/billing/internal/application/billing/usecases"
	"github.com/corates/billing/internal/shared/constants"
	"github.com/corates/billing/internal/shared/logger"
	"github.com/corates/billing/internal/shared/utils"
)

// AccessChecker is satisfied by *usecases.AccessEnforcer.
type AccessChecker interface {
	CheckQuota(ctx context.Context, orgID, quotaKey string, used, requested int64) (usecases.QuotaDecision, error)
	CheckEntitlement(ctx context.Context, orgID, key string) (usecases.EntitlementDecision, error)
}

// UsageFunc reports how much of a quota the org already consumes.
type UsageFunc func(c *gin.Context, orgID string) (int64, error)

// BillingGate rejects requests the org's effective plan does not cover. The
// org is read from the :orgId route parameter.
type BillingGate struct {
	checker AccessChecker
	logger  logger.Interface
}

func NewBillingGate(checker AccessChecker, logger logger.Interface) *BillingGate {
	return &BillingGate{checker: checker, logger: logger}
}

// RequireEntitlement answers 403 ENTITLEMENT_FORBIDDEN when the plan lacks key.
func (g *BillingGate) RequireEntitlement(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, err := utils.ParseOrgIDParam(c)
		if err != nil {
			utils.ErrorResponseWithError(c, err)
			c.Abort()
			return
		}

		decision, err := g.checker.CheckEntitlement(c.Request.Context(), orgID, key)
		if err != nil {
			g.logger.Errorw("entitlement check failed", "org_id", orgID, "entitlement", key, "error", err)
			utils.ErrorResponseWithError(c, err)
			c.Abort()
			return
		}
		if !decision.Allowed {
			utils.ErrorResponseWithError(c, decision.Err())
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyPlanID, decision.PlanID)
		c.Next()
	}
}

// RequireQuota answers 402 QUOTA_EXCEEDED when used+requested passes the
// plan limit for key.
func (g *BillingGate) RequireQuota(key string, usage UsageFunc, requested int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, err := utils.ParseOrgIDParam(c)
		if err != nil {
			utils.ErrorResponseWithError(c, err)
			c.Abort()
			return
		}

		used, err := usage(c, orgID)
		if err != nil {
			g.logger.Errorw("failed to read quota usage", "org_id", orgID, "quota_key", key, "error", err)
			utils.ErrorResponseWithError(c, err)
			c.Abort()
			return
		}

		decision, err := g.checker.CheckQuota(c.Request.Context(), orgID, key, used, requested)
		if err != nil {
			g.logger.Errorw("quota check failed", "org_id", orgID, "quota_key", key, "error", err)
			utils.ErrorResponseWithError(c, err)
			c.Abort()
			return
		}
		if !decision.Allowed {
			utils.ErrorResponseWithError(c, decision.Err())
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyPlanID, decision.PlanID)
		c.Next()
	}
}
