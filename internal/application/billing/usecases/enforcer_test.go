package usecases

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corates/billing/internal/domain/billing"
	vo "github.com/corates/billing/internal/domain/subscription/valueobjects"
	"github.com/corates/billing/internal/shared/errors"
)

func TestAccessEnforcer_CheckQuota(t *testing.T) {
	// starter_team allows 5 projects; unlimited_team has no cap.
	tests := []struct {
		name      string
		plan      string
		used      int64
		requested int64
		allowed   bool
	}{
		{name: "one below limit plus one", plan: "starter_team", used: 4, requested: 1, allowed: true},
		{name: "at limit plus one", plan: "starter_team", used: 5, requested: 1, allowed: false},
		{name: "zero requested at limit", plan: "starter_team", used: 5, requested: 0, allowed: true},
		{name: "unlimited always passes", plan: "unlimited_team", used: 1_000_000, requested: 50, allowed: true},
		{name: "request that would wrap", plan: "starter_team", used: 1, requested: math.MaxInt64, allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			seedSubscription(t, f, "org_1", tt.plan, vo.StatusActive, testNow.Add(-time.Hour))
			enforcer := NewAccessEnforcer(f.resolver(), f.logger)

			d, err := enforcer.CheckQuota(context.Background(), "org_1", billing.QuotaProjectsMax, tt.used, tt.requested)
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, d.Allowed)
			assert.Equal(t, tt.plan, d.PlanID)
			if tt.allowed {
				assert.Nil(t, d.Denial)
				assert.NoError(t, d.Err())
				return
			}
			assert.Equal(t, billing.QuotaExceeded{QuotaKey: billing.QuotaProjectsMax, Used: tt.used, Limit: 5, Requested: tt.requested}, d.Denial)
			appErr := errors.GetAppError(d.Err())
			require.NotNil(t, appErr)
			assert.Equal(t, 402, appErr.Code)
			assert.Equal(t, errors.ReasonQuotaExceeded, appErr.Reason)
		})
	}
}

func TestAccessEnforcer_CheckQuotaRejectsNegativeCounts(t *testing.T) {
	tests := []struct {
		name      string
		used      int64
		requested int64
		field     string
	}{
		{name: "negative used", used: -1, requested: 1, field: "used"},
		{name: "negative requested", used: 5, requested: -100, field: "requested"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			seedSubscription(t, f, "org_1", "starter_team", vo.StatusActive, testNow.Add(-time.Hour))
			enforcer := NewAccessEnforcer(f.resolver(), f.logger)

			d, err := enforcer.CheckQuota(context.Background(), "org_1", billing.QuotaProjectsMax, tt.used, tt.requested)
			require.Error(t, err)
			assert.False(t, d.Allowed)
			assert.True(t, errors.IsValidationError(err))
			assert.Equal(t, tt.field, errors.GetAppError(err).Field)
		})
	}
}

func TestAccessEnforcer_CheckEntitlement(t *testing.T) {
	f := newFixture(t)
	enforcer := NewAccessEnforcer(f.resolver(), f.logger)

	d, err := enforcer.CheckEntitlement(context.Background(), "org_1", billing.EntitlementProjectCreate)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, billing.SourceDefault, d.Source)
	assert.Equal(t, billing.EntitlementMissing{Entitlement: billing.EntitlementProjectCreate}, d.Denial)
	assert.Equal(t, 403, errors.GetAppError(d.Err()).Code)

	seedSubscription(t, f, "org_1", "team", vo.StatusTrialing, testNow.Add(-time.Hour))
	d, err = enforcer.CheckEntitlement(context.Background(), "org_1", billing.EntitlementProjectCreate)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestAccessEnforcer_StorageErrorIsNotADenial(t *testing.T) {
	f := newFixture(t)
	f.grants.ListErr = assert.AnError
	enforcer := NewAccessEnforcer(f.resolver(), f.logger)

	_, err := enforcer.CheckEntitlement(context.Background(), "org_1", billing.EntitlementOrgInvite)
	require.Error(t, err)
	assert.True(t, errors.IsStorageError(err))
}
