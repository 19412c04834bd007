package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corates/billing/internal/domain/grant"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)

	assert.Equal(t, "2026-01", c.Version())
	assert.Equal(t, "free", c.DefaultPlan().ID)

	trial, ok := c.PlanForGrant(grant.TypeTrial)
	require.True(t, ok)
	assert.Equal(t, "trial", trial.ID)

	unlimited, ok := c.Plan("unlimited_team")
	require.True(t, ok)
	assert.True(t, unlimited.IsUnlimited(QuotaProjectsMax))
	assert.Len(t, c.Plans(), 6)
}

func TestCatalog_ReturnsCopies(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)

	p, _ := c.Plan("team")
	p.Quotas[QuotaProjectsMax] = 9999
	p.Entitlements[EntitlementProjectCreate] = false

	again, _ := c.Plan("team")
	assert.Equal(t, int64(20), again.QuotaLimit(QuotaProjectsMax))
	assert.True(t, again.HasEntitlement(EntitlementProjectCreate))
}

func TestParseCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "missing version", yaml: "default_plan: free\nplans:\n  - id: free\n"},
		{name: "default not defined", yaml: "version: v1\ndefault_plan: gold\nplans:\n  - id: free\n"},
		{name: "duplicate plan", yaml: "version: v1\ndefault_plan: free\nplans:\n  - id: free\n  - id: free\n"},
		{name: "bad quota", yaml: "version: v1\ndefault_plan: free\nplans:\n  - id: free\n    quotas:\n      projects.max: -5\n"},
		{name: "unknown grant type", yaml: "version: v1\ndefault_plan: free\ngrant_plans:\n  lifetime: free\nplans:\n  - id: free\n"},
		{name: "not yaml", yaml: "version: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalidCatalog)
		})
	}
}

func TestLoadCatalog_EmptyPathUsesDefault(t *testing.T) {
	c, err := LoadCatalog("")
	require.NoError(t, err)
	assert.True(t, c.HasPlan("starter_team"))
}
