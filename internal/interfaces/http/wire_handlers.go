package http

import (
	reconcileUsecases "github.com/corates/billing/internal/application/reconciliation/usecases"
	"github.com/corates/billing/internal/interfaces/http/handlers"
	"github.com/corates/billing/internal/interfaces/http/middleware"
)

// allHandlers holds every HTTP handler instance.
type allHandlers struct {
	billingHandler      *handlers.BillingHandler
	subscriptionHandler *handlers.SubscriptionHandler
	grantHandler        *handlers.GrantHandler
	reconcileHandler    *handlers.ReconcileHandler
	webhookHandler      *handlers.WebhookHandler
	healthHandler       *handlers.HealthHandler
}

// ============================================================
// Section 4: Handlers and request-time gates
// ============================================================

func (c *Container) initHandlers() {
	log := c.log
	ucs := c.ucs

	hdlrs := &allHandlers{}
	hdlrs.billingHandler = handlers.NewBillingHandler(ucs.getOrgBillingUC, ucs.listPlansUC, log)
	hdlrs.subscriptionHandler = handlers.NewSubscriptionHandler(
		ucs.createSubscriptionUC,
		ucs.updateSubscriptionUC,
		ucs.cancelSubscriptionUC,
		log,
	)
	hdlrs.grantHandler = handlers.NewGrantHandler(
		ucs.createGrantUC,
		ucs.updateGrantUC,
		ucs.revokeGrantUC,
		ucs.grantTrialUC,
		ucs.grantSingleProjectUC,
		log,
	)
	hdlrs.reconcileHandler = handlers.NewReconcileHandler(
		ucs.scanner,
		ucs.listLedgerUC,
		reconcileUsecases.ThresholdsFromConfig(c.cfg.Billing),
		c.cfg.Billing.ScanLimit,
		log,
	)
	hdlrs.webhookHandler = handlers.NewWebhookHandler(ucs.handleWebhookUC, log.Named("webhook"))
	hdlrs.healthHandler = handlers.NewHealthHandler(c.db, log)
	c.hdlrs = hdlrs

	c.billingGate = middleware.NewBillingGate(ucs.accessEnforcer, log.Named("billing-gate"))
}
