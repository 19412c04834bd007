package authorization

import (
	"github.com/gin-gonic/gin"

	"github.com/corates/billing/internal/shared/constants"
	"github.com/corates/billing/internal/shared/errors"
	"github.com/corates/billing/internal/shared/utils"
)

// PermissionChecker decides whether a role may perform action on resource.
type PermissionChecker interface {
	Enforce(subject, resource, action string) (bool, error)
}

// RequirePermission rejects requests whose authenticated role is not allowed
// to perform action on resource. It must run after the auth middleware.
func RequirePermission(checker PermissionChecker, resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(constants.ContextKeyUserRole)
		if role == "" {
			utils.ErrorResponseWithError(c, errors.NewUnauthorizedError("authentication required"))
			c.Abort()
			return
		}

		allowed, err := checker.Enforce(role, resource, action)
		if err != nil {
			utils.ErrorResponseWithError(c, errors.NewInternalError("permission check failed"))
			c.Abort()
			return
		}
		if !allowed {
			utils.ErrorResponseWithError(c, errors.NewForbiddenError("insufficient role for "+resource+":"+action))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAdmin is the coarse gate for routes without a finer policy.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ParseUserRole(c.GetString(constants.ContextKeyUserRole)).IsAdmin() {
			utils.ErrorResponseWithError(c, errors.NewForbiddenError("admin access required"))
			c.Abort()
			return
		}
		c.Next()
	}
}
