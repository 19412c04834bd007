package handlers

import (
	"context"

	"github.com/corates/billing/internal/application/billing/dto"
	billingUsecases "github.com/corates/billing/internal/application/billing/usecases"
	reconcileUsecases "github.com/corates/billing/internal/application/reconciliation/usecases"
	webhookUsecases "github.com/corates/billing/internal/application/webhook/usecases"
)

// Use case interfaces for the billing handlers

type getOrgBillingUseCase interface {
	Execute(ctx context.Context, orgID string) (*dto.OrgBillingDTO, error)
}

type listPlansUseCase interface {
	Execute() *dto.CatalogDTO
}

type createSubscriptionUseCase interface {
	Execute(ctx context.Context, cmd billingUsecases.CreateSubscriptionCommand) (*dto.SubscriptionDTO, error)
}

type updateSubscriptionUseCase interface {
	Execute(ctx context.Context, cmd billingUsecases.UpdateSubscriptionCommand) (*dto.SubscriptionDTO, error)
}

type cancelSubscriptionUseCase interface {
	Execute(ctx context.Context, cmd billingUsecases.CancelSubscriptionCommand) (*dto.SubscriptionDTO, error)
}

type createGrantUseCase interface {
	Execute(ctx context.Context, cmd billingUsecases.CreateGrantCommand) (*dto.GrantDTO, error)
}

type updateGrantUseCase interface {
	Execute(ctx context.Context, cmd billingUsecases.UpdateGrantCommand) (*dto.GrantDTO, error)
}

type revokeGrantUseCase interface {
	Execute(ctx context.Context, cmd billingUsecases.RevokeGrantCommand) (*dto.GrantDTO, error)
}

type grantTrialUseCase interface {
	Execute(ctx context.Context, cmd billingUsecases.GrantTrialCommand) (*dto.GrantDTO, error)
}

type grantSingleProjectUseCase interface {
	Execute(ctx context.Context, cmd billingUsecases.GrantSingleProjectCommand) (*billingUsecases.GrantSingleProjectResult, error)
}

type reconciliationScanner interface {
	Scan(ctx context.Context, orgID string, th reconcileUsecases.Thresholds, checkExternal bool) (*reconcileUsecases.Report, error)
	ScanGlobal(ctx context.Context, th reconcileUsecases.Thresholds, limit int, checkExternal bool) (*reconcileUsecases.GlobalReport, error)
}

type listLedgerUseCase interface {
	Execute(ctx context.Context, query webhookUsecases.ListLedgerQuery) ([]*dto.LedgerEntryDTO, error)
}

type handleStripeWebhookUseCase interface {
	Execute(ctx context.Context, cmd webhookUsecases.HandleStripeWebhookCommand) (*webhookUsecases.WebhookResult, error)
}
