package http

import (
	billingUsecases "github.com/corates/billing/internal/application/billing/usecases"
	reconcileUsecases "github.com/corates/billing/internal/application/reconciliation/usecases"
	webhookUsecases "github.com/corates/billing/internal/application/webhook/usecases"
	"github.com/corates/billing/internal/domain/billing"
)

// allUseCases holds every use case instance used by the handlers.
type allUseCases struct {
	// Access resolution
	resolveAccessUC *billingUsecases.ResolveAccessUseCase
	getOrgBillingUC *billingUsecases.GetOrgBillingUseCase
	listPlansUC     *billingUsecases.ListPlansUseCase
	accessEnforcer  *billingUsecases.AccessEnforcer

	// Subscription
	createSubscriptionUC *billingUsecases.CreateSubscriptionUseCase
	updateSubscriptionUC *billingUsecases.UpdateSubscriptionUseCase
	cancelSubscriptionUC *billingUsecases.CancelSubscriptionUseCase

	// Grant
	createGrantUC        *billingUsecases.CreateGrantUseCase
	updateGrantUC        *billingUsecases.UpdateGrantUseCase
	revokeGrantUC        *billingUsecases.RevokeGrantUseCase
	grantTrialUC         *billingUsecases.GrantTrialUseCase
	grantSingleProjectUC *billingUsecases.GrantSingleProjectUseCase

	// Webhook ledger
	ledgerService   *webhookUsecases.LedgerService
	handleWebhookUC *webhookUsecases.HandleStripeWebhookUseCase
	listLedgerUC    *webhookUsecases.ListLedgerUseCase

	// Reconciliation
	scanner *reconcileUsecases.ReconciliationScanner
}

// ============================================================
// Section 3: Use cases
// ============================================================

func (c *Container) initUseCases() {
	log := c.log
	repos := c.repos
	clock := c.clock
	notifier := c.notifier

	ucs := &allUseCases{}

	resolver := billing.NewResolver(c.catalog, billing.Policy{PastDueGrace: c.cfg.Billing.PastDueGrace()})
	ucs.resolveAccessUC = billingUsecases.NewResolveAccessUseCase(repos.subscriptionRepo, repos.grantRepo, resolver, clock, log)
	ucs.getOrgBillingUC = billingUsecases.NewGetOrgBillingUseCase(ucs.resolveAccessUC)
	ucs.listPlansUC = billingUsecases.NewListPlansUseCase(c.catalog)
	ucs.accessEnforcer = billingUsecases.NewAccessEnforcer(ucs.resolveAccessUC, log)

	ucs.createSubscriptionUC = billingUsecases.NewCreateSubscriptionUseCase(repos.subscriptionRepo, c.catalog, notifier, clock, log)
	ucs.updateSubscriptionUC = billingUsecases.NewUpdateSubscriptionUseCase(repos.subscriptionRepo, c.catalog, notifier, clock, log)
	ucs.cancelSubscriptionUC = billingUsecases.NewCancelSubscriptionUseCase(repos.subscriptionRepo, notifier, clock, log)

	ucs.createGrantUC = billingUsecases.NewCreateGrantUseCase(repos.grantRepo, repos.txRunner, notifier, clock, log)
	ucs.updateGrantUC = billingUsecases.NewUpdateGrantUseCase(repos.grantRepo, notifier, clock, log)
	ucs.revokeGrantUC = billingUsecases.NewRevokeGrantUseCase(repos.grantRepo, notifier, clock, log)
	ucs.grantTrialUC = billingUsecases.NewGrantTrialUseCase(repos.grantRepo, notifier, clock, log)
	ucs.grantSingleProjectUC = billingUsecases.NewGrantSingleProjectUseCase(repos.grantRepo, repos.txRunner, notifier, clock, log)

	ucs.ledgerService = webhookUsecases.NewLedgerService(repos.ledgerRepo, clock, log)
	ucs.handleWebhookUC = webhookUsecases.NewHandleStripeWebhookUseCase(
		ucs.ledgerService,
		repos.subscriptionRepo,
		c.gateway,
		c.catalog,
		c.cfg.Stripe.PricePlans,
		notifier,
		clock,
		log.Named("webhook"),
	)
	ucs.listLedgerUC = webhookUsecases.NewListLedgerUseCase(ucs.ledgerService, log)

	var fetcher reconcileUsecases.SubscriptionFetcher
	if c.cfg.Stripe.SecretKey != "" {
		fetcher = c.gateway
	}
	ucs.scanner = reconcileUsecases.NewReconciliationScanner(
		repos.subscriptionRepo,
		repos.ledgerRepo,
		fetcher,
		reconcileUsecases.OptionsFromConfig(c.cfg.Billing),
		clock,
		log.Named("reconcile"),
	)

	c.ucs = ucs
}
