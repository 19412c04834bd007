package dto

import (
	"time"

	"github.com/corates/billing/internal/domain/billing"
	"github.com/corates/billing/internal/domain/grant"
	"github.com/corates/billing/internal/domain/ledger"
	"github.com/corates/billing/internal/domain/subscription"
	"github.com/corates/billing/internal/shared/mapper"
)

func ToSubscriptionDTO(s *subscription.Subscription) *SubscriptionDTO {
	if s == nil {
		return nil
	}
	return &SubscriptionDTO{
		ID:                      s.ID(),
		OrgID:                   s.OrgID(),
		PlanID:                  s.PlanID(),
		Status:                  s.Status().String(),
		PeriodStart:             s.PeriodStart(),
		PeriodEnd:               s.PeriodEnd(),
		CancelAtPeriodEnd:       s.CancelAtPeriodEnd(),
		ExternalCustomerRef:     s.ExternalCustomerRef(),
		ExternalSubscriptionRef: s.ExternalSubscriptionRef(),
		CreatedAt:               s.CreatedAt(),
		UpdatedAt:               s.UpdatedAt(),
		CanceledAt:              s.CanceledAt(),
		EndedAt:                 s.EndedAt(),
	}
}

// ToSubscriptionDTOList returns an empty slice for empty input so the field
// encodes as [] rather than null.
func ToSubscriptionDTOList(subs []*subscription.Subscription) []*SubscriptionDTO {
	return mapper.MapNonNil(subs, ToSubscriptionDTO)
}

func ToGrantDTO(g *grant.Grant) *GrantDTO {
	if g == nil {
		return nil
	}
	return &GrantDTO{
		ID:        g.ID(),
		OrgID:     g.OrgID(),
		Type:      string(g.Type()),
		State:     string(g.State()),
		StartsAt:  g.StartsAt(),
		ExpiresAt: g.ExpiresAt(),
		CreatedAt: g.CreatedAt(),
		RevokedAt: g.RevokedAt(),
		Metadata:  g.Metadata(),
	}
}

func ToGrantDTOList(grants []*grant.Grant) []*GrantDTO {
	return mapper.MapNonNil(grants, ToGrantDTO)
}

// ToResolvedBillingDTO renders res; catalog supplies the plan name when known.
func ToResolvedBillingDTO(orgID string, res billing.Resolved, catalog *billing.Catalog, at time.Time) *ResolvedBillingDTO {
	out := &ResolvedBillingDTO{
		OrgID:           orgID,
		EffectivePlanID: res.EffectivePlanID,
		Source:          string(res.Source),
		AccessMode:      string(res.AccessMode),
		Quotas:          res.Quotas,
		Entitlements:    res.Entitlements,
		Subscription:    ToSubscriptionDTO(res.Subscription),
		Grant:           ToGrantDTO(res.Grant),
		CatalogVersion:  res.CatalogVersion,
		UnknownPlan:     res.UnknownPlan,
		GeneratedAt:     at,
	}
	if catalog != nil {
		if plan, ok := catalog.Plan(res.EffectivePlanID); ok {
			out.PlanName = plan.Name
		}
	}
	return out
}

func ToLedgerEntryDTO(e *ledger.Entry) *LedgerEntryDTO {
	if e == nil {
		return nil
	}
	links := e.Links()
	return &LedgerEntryDTO{
		ID:                      e.ID(),
		ExternalEventID:         e.ExternalEventID(),
		Type:                    e.Type(),
		Status:                  string(e.Status()),
		HTTPStatus:              e.HTTPStatus(),
		Error:                   e.Error(),
		OrgID:                   links.OrgID,
		ExternalCustomerRef:     links.ExternalCustomerRef,
		ExternalSubscriptionRef: links.ExternalSubscriptionRef,
		ExternalCheckoutRef:     links.ExternalCheckoutRef,
		PayloadHash:             e.PayloadHash(),
		SignaturePresent:        e.SignaturePresent(),
		Livemode:                e.Livemode(),
		ReceivedAt:              e.ReceivedAt(),
		ProcessedAt:             e.ProcessedAt(),
		RequestID:               e.RequestID(),
		Route:                   e.Route(),
	}
}

func ToLedgerEntryDTOList(entries []*ledger.Entry) []*LedgerEntryDTO {
	return mapper.MapNonNil(entries, ToLedgerEntryDTO)
}

func ToCatalogDTO(c *billing.Catalog) *CatalogDTO {
	plans := c.Plans()
	out := &CatalogDTO{
		Version:     c.Version(),
		DefaultPlan: c.DefaultPlan().ID,
		Plans:       make([]*PlanDTO, 0, len(plans)),
	}
	for _, p := range plans {
		out.Plans = append(out.Plans, &PlanDTO{
			ID:           p.ID,
			Name:         p.Name,
			Quotas:       p.Quotas,
			Entitlements: p.Entitlements,
		})
	}
	return out
}
