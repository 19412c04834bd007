package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/corates/billing/internal/infrastructure/config"
	"github.com/corates/billing/internal/infrastructure/migration"
	"github.com/corates/billing/internal/shared/authorization"
	sharedConfig "github.com/corates/billing/internal/shared/config"
	"github.com/corates/billing/internal/shared/logger"
)

const testJWTSecret = "router-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) *Router {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(migration.AutoMigrateModels()...))

	cfg := &config.Config{
		Database: sharedConfig.DatabaseConfig{Driver: "sqlite", Database: ":memory:"},
		Auth:     sharedConfig.AuthConfig{JWT: sharedConfig.JWTConfig{Secret: testJWTSecret}},
		Billing:  sharedConfig.BillingConfig{ScanLimit: 100},
		Metrics:  sharedConfig.MetricsConfig{Enabled: true},
	}

	container, err := NewContainer(db, cfg, logger.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(container.Shutdown)

	router := NewRouter(container)
	router.SetupRoutes()
	return router
}

func (r *Router) token(t *testing.T, role authorization.UserRole) string {
	t.Helper()
	token, err := r.jwtSvc.Generate("user_1", role, time.Hour)
	require.NoError(t, err)
	return token
}

func serve(r *Router, method, path, token string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.GetEngine().ServeHTTP(w, req)
	return w
}

func TestRouter_AdminRoutesRequireAdmin(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name       string
		token      string
		wantStatus int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"support role", router.token(t, authorization.RoleSupport), http.StatusForbidden},
		{"admin", router.token(t, authorization.RoleAdmin), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, http.MethodGet, "/api/orgs/org_1/billing", tt.token, nil)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}
}

func TestRouter_TrialGrantChangesResolvedPlan(t *testing.T) {
	router := newTestRouter(t)
	admin := router.token(t, authorization.RoleAdmin)

	w := serve(router, http.MethodGet, "/api/orgs/org_1/billing", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"source":"default"`)

	w = serve(router, http.MethodPost, "/api/orgs/org_1/grant-trial", admin, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = serve(router, http.MethodPost, "/api/orgs/org_1/grant-trial", admin, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = serve(router, http.MethodGet, "/api/orgs/org_1/billing", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Billing struct {
				EffectivePlanID string `json:"effectivePlanId"`
				Source          string `json:"source"`
			} `json:"billing"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "trial", resp.Data.Billing.EffectivePlanID)
	assert.Equal(t, "grant", resp.Data.Billing.Source)
}

func TestRouter_UnsignedWebhookIsRecordedNotApplied(t *testing.T) {
	router := newTestRouter(t)

	payload := []byte(`{"id":"evt_1","type":"customer.subscription.updated","data":{"object":{"id":"sub_ext"}}}`)
	w := serve(router, http.MethodPost, "/api/billing/stripe/webhook", "", payload)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"IGNORED_UNVERIFIED"`)

	admin := router.token(t, authorization.RoleAdmin)
	w = serve(router, http.MethodGet, "/api/billing/ledger?status=IGNORED_UNVERIFIED", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"type":"customer.subscription.updated"`)
}

func TestRouter_ServiceEndpoints(t *testing.T) {
	router := newTestRouter(t)

	w := serve(router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(router, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(router, http.MethodGet, "/api/billing/plans", router.token(t, authorization.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"unlimited_team"`)
}
