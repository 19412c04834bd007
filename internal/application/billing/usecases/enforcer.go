package usecases

import (
	"context"

	"github.com/corates/billing/internal/domain/billing"
	"github.com/corates/billing/internal/infrastructure/metrics"
	"github.com/corates/billing/internal/shared/errors"
	"github.com/corates/billing/internal/shared/logger"
)

// Decision is the outcome of one quota or entitlement check. A denied
// decision carries its Denial; it is a value, not an error.
type Decision struct {
	Allowed bool
	Denial  billing.Denial
	PlanID  string
	Source  billing.Source
}

type (
	QuotaDecision       = Decision
	EntitlementDecision = Decision
)

// Err converts a denial into an *billing.AccessDeniedError, nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &billing.AccessDeniedError{Denial: d.Denial, PlanID: d.PlanID, Source: d.Source}
}

// AccessEnforcer gates business actions on the resolved plan.
type AccessEnforcer struct {
	resolve *ResolveAccessUseCase
	logger  logger.Interface
}

func NewAccessEnforcer(resolve *ResolveAccessUseCase, logger logger.Interface) *AccessEnforcer {
	return &AccessEnforcer{resolve: resolve, logger: logger}
}

// CheckQuota allows the action when used+requested fits the plan limit. The
// returned error is set when a count is negative or the org could not be
// resolved.
func (e *AccessEnforcer) CheckQuota(ctx context.Context, orgID, quotaKey string, used, requested int64) (QuotaDecision, error) {
	if used < 0 {
		return Decision{}, errors.NewValidationError("used must not be negative").WithField("used")
	}
	if requested < 0 {
		return Decision{}, errors.NewValidationError("requested must not be negative").WithField("requested")
	}
	res, err := e.resolve.Execute(ctx, orgID)
	if err != nil {
		return Decision{}, err
	}
	d := decide(res, res.CheckQuota(quotaKey, used, requested))
	if !d.Allowed {
		metrics.QuotaDenialsTotal.WithLabelValues(quotaKey).Inc()
		e.logger.Infow("quota check denied",
			"org_id", orgID,
			"quota_key", quotaKey,
			"used", used,
			"requested", requested,
			"plan_id", res.EffectivePlanID,
		)
	}
	return d, nil
}

// CheckEntitlement allows the action when the plan grants key.
func (e *AccessEnforcer) CheckEntitlement(ctx context.Context, orgID, key string) (EntitlementDecision, error) {
	res, err := e.resolve.Execute(ctx, orgID)
	if err != nil {
		return Decision{}, err
	}
	d := decide(res, res.CheckEntitlement(key))
	if !d.Allowed {
		metrics.EntitlementDenialsTotal.WithLabelValues(key).Inc()
		e.logger.Infow("entitlement check denied",
			"org_id", orgID,
			"entitlement", key,
			"plan_id", res.EffectivePlanID,
		)
	}
	return d, nil
}

func decide(res billing.Resolved, denial billing.Denial) Decision {
	return Decision{
		Allowed: denial == nil,
		Denial:  denial,
		PlanID:  res.EffectivePlanID,
		Source:  res.Source,
	}
}
