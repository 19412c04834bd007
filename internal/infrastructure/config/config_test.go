package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
database:
  driver: sqlite
  database: ":memory:"
billing:
  past_due_grace_hours: 72
stripe:
  price_plans:
    price_team_monthly: team
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	t.Setenv("BILLING_BILLING_SCAN_LIMIT", "250")

	cfg, err := Load("test", path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, ":memory:", cfg.Database.GetDSN())
	assert.Equal(t, 72*time.Hour, cfg.Billing.PastDueGrace())
	assert.Equal(t, 250, cfg.Billing.ScanLimit)
	assert.Equal(t, 30, cfg.Billing.IncompleteThresholdMinutes)
	assert.Equal(t, "team", cfg.Stripe.PricePlans["price_team_monthly"])
	assert.Equal(t, "test", cfg.Server.Mode)
	assert.Same(t, cfg, Get())
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  driver: oracle\n"), 0o600))

	_, err := Load("test", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}
