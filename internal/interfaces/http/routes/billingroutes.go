package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/corates/billing/internal/infrastructure/permission"
	"github.com/corates/billing/internal/interfaces/http/handlers"
	"github.com/corates/billing/internal/interfaces/http/middleware"
	"github.com/corates/billing/internal/shared/authorization"
)

// BillingRouteConfig holds dependencies for the admin billing routes.
type BillingRouteConfig struct {
	BillingHandler      *handlers.BillingHandler
	SubscriptionHandler *handlers.SubscriptionHandler
	GrantHandler        *handlers.GrantHandler
	ReconcileHandler    *handlers.ReconcileHandler
	AuthMiddleware      *middleware.AuthMiddleware
	Permissions         authorization.PermissionChecker
}

// SetupBillingRoutes configures the authenticated admin surface under /api.
func SetupBillingRoutes(engine *gin.Engine, cfg *BillingRouteConfig) {
	allow := func(resource, action string) gin.HandlerFunc {
		return authorization.RequirePermission(cfg.Permissions, resource, action)
	}

	api := engine.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())

	orgs := api.Group("/orgs/:orgId")
	{
		orgs.GET("/billing", allow(permission.ResourceBilling, permission.ActionRead), cfg.BillingHandler.GetOrgBilling)
		orgs.GET("/billing/reconcile", allow(permission.ResourceReconcile, permission.ActionRead), cfg.ReconcileHandler.ReconcileOrg)

		subscriptions := orgs.Group("/subscriptions")
		subscriptions.Use(allow(permission.ResourceSubscriptions, permission.ActionWrite))
		{
			subscriptions.POST("", cfg.SubscriptionHandler.CreateSubscription)
			subscriptions.PUT("/:id", cfg.SubscriptionHandler.UpdateSubscription)
			subscriptions.DELETE("/:id", cfg.SubscriptionHandler.CancelSubscription)
		}

		grants := orgs.Group("")
		grants.Use(allow(permission.ResourceGrants, permission.ActionWrite))
		{
			grants.POST("/grants", cfg.GrantHandler.CreateGrant)
			grants.PUT("/grants/:id", cfg.GrantHandler.UpdateGrant)
			grants.DELETE("/grants/:id", cfg.GrantHandler.RevokeGrant)
			grants.POST("/grant-trial", cfg.GrantHandler.GrantTrial)
			grants.POST("/grant-single-project", cfg.GrantHandler.GrantSingleProject)
		}
	}

	billing := api.Group("/billing")
	{
		billing.GET("/plans", allow(permission.ResourcePlans, permission.ActionRead), cfg.BillingHandler.ListPlans)
		billing.GET("/stuck-states", allow(permission.ResourceReconcile, permission.ActionRead), cfg.ReconcileHandler.StuckStates)
		billing.GET("/ledger", allow(permission.ResourceLedger, permission.ActionRead), cfg.ReconcileHandler.ListLedger)
	}
}
