package billing

import (
	"sort"
	"time"

	"github.com/corates/billing/internal/domain/grant"
	"github.com/corates/billing/internal/domain/subscription"
	vo "github.com/corates/billing/internal/domain/subscription/valueobjects"
)

// Source says which record decided the effective plan.
type Source string

const (
	SourceSubscription Source = "subscription"
	SourceGrant        Source = "grant"
	SourceDefault      Source = "default"
)

// AccessMode is the coarse access level derived from the source.
type AccessMode string

const (
	AccessFull     AccessMode = "full"
	AccessGrace    AccessMode = "grace"
	AccessReadOnly AccessMode = "read_only"
)

// Policy tunes resolution.
type Policy struct {
	// PastDueGrace caps how long past periodEnd a past_due subscription keeps
	// access. Zero means no cap.
	PastDueGrace time.Duration
}

// Resolved is the effective billing state of an org at one instant. It is
// derived on every call and never stored.
type Resolved struct {
	EffectivePlanID string
	Source          Source
	AccessMode      AccessMode
	Quotas          map[string]int64
	Entitlements    map[string]bool
	Subscription    *subscription.Subscription
	Grant           *grant.Grant
	CatalogVersion  string
	// UnknownPlan is set when the winning subscription names a plan the
	// catalog does not define; default limits apply.
	UnknownPlan bool
}

// Resolver maps subscription and grant records to a Resolved value.
type Resolver struct {
	catalog *Catalog
	policy  Policy
}

func NewResolver(catalog *Catalog, policy Policy) *Resolver {
	return &Resolver{catalog: catalog, policy: policy}
}

func (r *Resolver) Catalog() *Catalog { return r.catalog }

// Resolve picks the effective plan: a valid subscription beats a valid grant,
// which beats the default plan.
func (r *Resolver) Resolve(subs []*subscription.Subscription, grants []*grant.Grant, now time.Time) Resolved {
	if sub := r.subscriptionCandidate(subs, now); sub != nil {
		plan, ok := r.catalog.Plan(sub.PlanID())
		res := Resolved{
			EffectivePlanID: sub.PlanID(),
			Source:          SourceSubscription,
			AccessMode:      AccessFull,
			Subscription:    sub,
		}
		if sub.Status() == vo.StatusPastDue {
			res.AccessMode = AccessGrace
		}
		if !ok {
			plan = r.catalog.DefaultPlan()
			res.UnknownPlan = true
		}
		return r.fill(res, plan)
	}

	if g := grantCandidate(grants, now); g != nil {
		if plan, ok := r.catalog.PlanForGrant(g.Type()); ok {
			return r.fill(Resolved{
				EffectivePlanID: plan.ID,
				Source:          SourceGrant,
				AccessMode:      AccessFull,
				Grant:           g,
			}, plan)
		}
	}

	plan := r.catalog.DefaultPlan()
	return r.fill(Resolved{
		EffectivePlanID: plan.ID,
		Source:          SourceDefault,
		AccessMode:      AccessReadOnly,
	}, plan)
}

func (r *Resolver) fill(res Resolved, plan Plan) Resolved {
	res.Quotas = plan.Quotas
	res.Entitlements = plan.Entitlements
	res.CatalogVersion = r.catalog.Version()
	return res
}

// subscriptionCandidate returns the newest access-granting row, skipping
// past_due rows whose grace has run out.
func (r *Resolver) subscriptionCandidate(subs []*subscription.Subscription, now time.Time) *subscription.Subscription {
	candidates := make([]*subscription.Subscription, 0, len(subs))
	for _, s := range subs {
		if s == nil || !s.Status().GrantsAccess() {
			continue
		}
		if s.Status() == vo.StatusPastDue && r.pastDueGraceExpired(s, now) {
			continue
		}
		candidates = append(candidates, s)
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if !a.CreatedAt().Equal(b.CreatedAt()) {
			return a.CreatedAt().After(b.CreatedAt())
		}
		return a.ID() > b.ID()
	})
	return candidates[0]
}

func (r *Resolver) pastDueGraceExpired(s *subscription.Subscription, now time.Time) bool {
	if r.policy.PastDueGrace <= 0 || s.PeriodEnd() == nil {
		return false
	}
	return !now.Before(s.PeriodEnd().Add(r.policy.PastDueGrace))
}

// grantCandidate returns the covering grant with the latest expiry.
func grantCandidate(grants []*grant.Grant, now time.Time) *grant.Grant {
	var best *grant.Grant
	for _, g := range grants {
		if g == nil || !g.CoversAt(now) {
			continue
		}
		if best == nil || g.ExpiresAt().After(best.ExpiresAt()) {
			best = g
		}
	}
	return best
}

// CheckQuota returns nil when used+requested fits the resolved limit.
// Negative counts are denied, and the sum is never formed so it cannot wrap.
func (res Resolved) CheckQuota(key string, used, requested int64) Denial {
	limit := res.Quotas[key]
	if used < 0 || requested < 0 {
		return QuotaExceeded{QuotaKey: key, Used: used, Limit: limit, Requested: requested}
	}
	if limit == Unlimited {
		return nil
	}
	if used <= limit && requested <= limit-used {
		return nil
	}
	return QuotaExceeded{QuotaKey: key, Used: used, Limit: limit, Requested: requested}
}

// CheckEntitlement returns nil when the resolved plan grants key.
func (res Resolved) CheckEntitlement(key string) Denial {
	if res.Entitlements[key] {
		return nil
	}
	return EntitlementMissing{Entitlement: key}
}
