package billing

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corates/billing/internal/domain/grant"
	"github.com/corates/billing/internal/domain/subscription"
	vo "github.com/corates/billing/internal/domain/subscription/valueobjects"
	"github.com/corates/billing/internal/shared/errors"
)

var testNow = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

func newTestResolver(t *testing.T, policy Policy) *Resolver {
	t.Helper()
	c, err := DefaultCatalog()
	require.NoError(t, err)
	return NewResolver(c, policy)
}

func sub(t *testing.T, id, plan string, status vo.SubscriptionStatus, createdAt time.Time, periodEnd *time.Time) *subscription.Subscription {
	t.Helper()
	s, err := subscription.ReconstructSubscription(subscription.Snapshot{
		ID: id, OrgID: "org_1", PlanID: plan, Status: status,
		PeriodEnd: periodEnd, CreatedAt: createdAt, UpdatedAt: createdAt,
	})
	require.NoError(t, err)
	return s
}

func grnt(t *testing.T, id string, typ grant.Type, starts, expires time.Time, revoked bool) *grant.Grant {
	t.Helper()
	snap := grant.Snapshot{
		ID: id, OrgID: "org_1", Type: typ, State: grant.StateActive,
		StartsAt: starts, ExpiresAt: expires, CreatedAt: starts,
	}
	if revoked {
		at := starts
		snap.RevokedAt = &at
	}
	g, err := grant.ReconstructGrant(snap)
	require.NoError(t, err)
	return g
}

func TestResolve_SubscriptionBeatsGrant(t *testing.T) {
	r := newTestResolver(t, Policy{})
	subs := []*subscription.Subscription{sub(t, "sub_a", "team", vo.StatusActive, testNow.Add(-24*time.Hour), nil)}
	grants := []*grant.Grant{grnt(t, "grt_a", grant.TypeTrial, testNow.Add(-time.Hour), testNow.Add(time.Hour), false)}

	res := r.Resolve(subs, grants, testNow)

	assert.Equal(t, SourceSubscription, res.Source)
	assert.Equal(t, "team", res.EffectivePlanID)
	assert.Equal(t, AccessFull, res.AccessMode)
	assert.Nil(t, res.Grant)
	require.NotNil(t, res.Subscription)
	assert.Equal(t, "sub_a", res.Subscription.ID())
}

func TestResolve_FallbackChain(t *testing.T) {
	r := newTestResolver(t, Policy{})

	tests := []struct {
		name       string
		subs       []*subscription.Subscription
		grants     []*grant.Grant
		wantSource Source
		wantPlan   string
		wantMode   AccessMode
	}{
		{
			name:       "nothing",
			wantSource: SourceDefault,
			wantPlan:   "free",
			wantMode:   AccessReadOnly,
		},
		{
			name:       "expired grant",
			grants:     []*grant.Grant{grnt(t, "grt_1", grant.TypeTrial, testNow.Add(-30*24*time.Hour), testNow.Add(-16*24*time.Hour), false)},
			wantSource: SourceDefault,
			wantPlan:   "free",
			wantMode:   AccessReadOnly,
		},
		{
			name:       "grant expiring exactly now",
			grants:     []*grant.Grant{grnt(t, "grt_1", grant.TypeTrial, testNow.Add(-time.Hour), testNow, false)},
			wantSource: SourceDefault,
			wantPlan:   "free",
			wantMode:   AccessReadOnly,
		},
		{
			name:       "revoked grant",
			grants:     []*grant.Grant{grnt(t, "grt_1", grant.TypeTrial, testNow.Add(-time.Hour), testNow.Add(time.Hour), true)},
			wantSource: SourceDefault,
			wantPlan:   "free",
			wantMode:   AccessReadOnly,
		},
		{
			name:       "active grant",
			grants:     []*grant.Grant{grnt(t, "grt_1", grant.TypeSingleProject, testNow.Add(-time.Hour), testNow.Add(time.Hour), false)},
			wantSource: SourceGrant,
			wantPlan:   "single_project",
			wantMode:   AccessFull,
		},
		{
			name:       "canceled subscription falls to grant",
			subs:       []*subscription.Subscription{sub(t, "sub_1", "team", vo.StatusCanceled, testNow.Add(-time.Hour), nil)},
			grants:     []*grant.Grant{grnt(t, "grt_1", grant.TypeTrial, testNow.Add(-time.Hour), testNow.Add(time.Hour), false)},
			wantSource: SourceGrant,
			wantPlan:   "trial",
			wantMode:   AccessFull,
		},
		{
			name:       "incomplete subscription falls to default",
			subs:       []*subscription.Subscription{sub(t, "sub_1", "team", vo.StatusIncomplete, testNow.Add(-time.Hour), nil)},
			wantSource: SourceDefault,
			wantPlan:   "free",
			wantMode:   AccessReadOnly,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Resolve(tt.subs, tt.grants, testNow)
			assert.Equal(t, tt.wantSource, res.Source)
			assert.Equal(t, tt.wantPlan, res.EffectivePlanID)
			assert.Equal(t, tt.wantMode, res.AccessMode)
			assert.Equal(t, "2026-01", res.CatalogVersion)
		})
	}
}

func TestResolve_NewestSubscriptionWins(t *testing.T) {
	r := newTestResolver(t, Policy{})
	subs := []*subscription.Subscription{
		sub(t, "sub_old", "starter_team", vo.StatusActive, testNow.Add(-48*time.Hour), nil),
		sub(t, "sub_new", "team", vo.StatusTrialing, testNow.Add(-time.Hour), nil),
		sub(t, "sub_canceled", "unlimited_team", vo.StatusCanceled, testNow, nil),
	}
	res := r.Resolve(subs, nil, testNow)
	assert.Equal(t, "sub_new", res.Subscription.ID())
	assert.Equal(t, "team", res.EffectivePlanID)
}

func TestResolve_PastDueGrace(t *testing.T) {
	periodEnd := testNow.Add(-48 * time.Hour)
	subs := []*subscription.Subscription{sub(t, "sub_1", "team", vo.StatusPastDue, testNow.Add(-60*24*time.Hour), &periodEnd)}

	uncapped := newTestResolver(t, Policy{}).Resolve(subs, nil, testNow)
	assert.Equal(t, SourceSubscription, uncapped.Source)
	assert.Equal(t, AccessGrace, uncapped.AccessMode)

	inside := newTestResolver(t, Policy{PastDueGrace: 72 * time.Hour}).Resolve(subs, nil, testNow)
	assert.Equal(t, SourceSubscription, inside.Source)

	expired := newTestResolver(t, Policy{PastDueGrace: 24 * time.Hour}).Resolve(subs, nil, testNow)
	assert.Equal(t, SourceDefault, expired.Source)
}

func TestResolve_UnknownPlanKeepsSource(t *testing.T) {
	r := newTestResolver(t, Policy{})
	subs := []*subscription.Subscription{sub(t, "sub_1", "legacy_gold", vo.StatusActive, testNow, nil)}

	res := r.Resolve(subs, nil, testNow)
	assert.Equal(t, SourceSubscription, res.Source)
	assert.Equal(t, "legacy_gold", res.EffectivePlanID)
	assert.True(t, res.UnknownPlan)
	assert.Equal(t, int64(0), res.Quotas[QuotaProjectsMax])
}

func TestCheckQuota_Boundary(t *testing.T) {
	res := Resolved{Quotas: map[string]int64{QuotaProjectsMax: 5, QuotaCollaboratorsOrgMax: Unlimited}}

	assert.Nil(t, res.CheckQuota(QuotaProjectsMax, 4, 1))

	d := res.CheckQuota(QuotaProjectsMax, 5, 1)
	require.NotNil(t, d)
	q, ok := d.(QuotaExceeded)
	require.True(t, ok)
	assert.Equal(t, QuotaExceeded{QuotaKey: QuotaProjectsMax, Used: 5, Limit: 5, Requested: 1}, q)
	assert.Equal(t, errors.ReasonQuotaExceeded, d.Reason())

	assert.Nil(t, res.CheckQuota(QuotaCollaboratorsOrgMax, 1_000_000, 1_000))
	assert.NotNil(t, res.CheckQuota("storage.max", 0, 1), "unknown quota has limit 0")
}

func TestCheckQuota_RejectsOverflowAndNegatives(t *testing.T) {
	res := Resolved{Quotas: map[string]int64{QuotaProjectsMax: 5, QuotaCollaboratorsOrgMax: Unlimited}}

	tests := []struct {
		name      string
		key       string
		used      int64
		requested int64
		allowed   bool
	}{
		{name: "sum would wrap", key: QuotaProjectsMax, used: 1, requested: math.MaxInt64, allowed: false},
		{name: "used at max", key: QuotaProjectsMax, used: math.MaxInt64, requested: 1, allowed: false},
		{name: "negative requested", key: QuotaProjectsMax, used: 5, requested: -10, allowed: false},
		{name: "negative used", key: QuotaProjectsMax, used: -10, requested: 1, allowed: false},
		{name: "negative on unlimited", key: QuotaCollaboratorsOrgMax, used: 0, requested: -1, allowed: false},
		{name: "used above limit with zero requested", key: QuotaProjectsMax, used: 6, requested: 0, allowed: false},
		{name: "exactly at limit", key: QuotaProjectsMax, used: 0, requested: 5, allowed: true},
		{name: "huge on unlimited", key: QuotaCollaboratorsOrgMax, used: math.MaxInt64, requested: math.MaxInt64, allowed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := res.CheckQuota(tt.key, tt.used, tt.requested)
			if tt.allowed {
				assert.Nil(t, d)
				return
			}
			require.NotNil(t, d)
			assert.Equal(t, errors.ReasonQuotaExceeded, d.Reason())
		})
	}
}

func TestCheckEntitlement(t *testing.T) {
	res := Resolved{Entitlements: map[string]bool{EntitlementProjectCreate: true, EntitlementOrgInvite: false}}

	assert.Nil(t, res.CheckEntitlement(EntitlementProjectCreate))
	d := res.CheckEntitlement(EntitlementOrgInvite)
	require.NotNil(t, d)
	assert.Equal(t, EntitlementMissing{Entitlement: EntitlementOrgInvite}, d)
	assert.Equal(t, errors.ReasonEntitlementForbidden, d.Reason())
}

func TestAccessDeniedError_AppError(t *testing.T) {
	err := &AccessDeniedError{Denial: QuotaExceeded{QuotaKey: QuotaProjectsMax, Used: 3, Limit: 3, Requested: 1}}
	appErr := err.AppError()
	assert.Equal(t, 402, appErr.Code)
	require.NotNil(t, appErr.Quota)
	assert.Equal(t, int64(3), appErr.Quota.Limit)

	err = &AccessDeniedError{Denial: EntitlementMissing{Entitlement: EntitlementProjectExport}}
	appErr = err.AppError()
	assert.Equal(t, 403, appErr.Code)
	assert.Equal(t, EntitlementProjectExport, appErr.Entitlement)
}

func TestAccessDeniedError_AsAppError(t *testing.T) {
	var err error = fmt.Errorf("gate: %w", &AccessDeniedError{Denial: EntitlementMissing{Entitlement: EntitlementOrgInvite}})

	appErr := errors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ReasonEntitlementForbidden, appErr.Reason)
	assert.Equal(t, 403, appErr.Code)
}
