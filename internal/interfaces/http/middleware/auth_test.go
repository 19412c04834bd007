package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corates/billing/internal/application/billing/testutil"
	"github.com/corates/billing/internal/infrastructure/auth"
	"github.com/corates/billing/internal/infrastructure/permission"
	"github.com/corates/billing/internal/shared/authorization"
	"github.com/corates/billing/internal/shared/biztime"
	"github.com/corates/billing/internal/shared/constants"
	"github.com/corates/billing/internal/shared/utils"
)

var tokenTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func decodeBody(w *httptest.ResponseRecorder, target interface{}) error {
	return json.Unmarshal(w.Body.Bytes(), target)
}

func adminEngine(t *testing.T, jwtSvc *auth.JWTService) *gin.Engine {
	t.Helper()
	enforcer, err := permission.NewEnforcer(testutil.NewMockLogger())
	require.NoError(t, err)

	engine := gin.New()
	engine.Use(RequestID())
	authMW := NewAuthMiddleware(jwtSvc, testutil.NewMockLogger())
	engine.POST("/api/orgs/:orgId/grants",
		authMW.RequireAuth(),
		authorization.RequirePermission(enforcer, permission.ResourceGrants, permission.ActionWrite),
		func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"user": c.GetString(constants.ContextKeyUserID)})
		},
	)
	return engine
}

func TestAuthMiddleware_RequireAuth(t *testing.T) {
	jwtSvc := auth.NewJWTService("secret", "", biztime.FixedClock{T: tokenTime})
	adminToken, err := jwtSvc.Generate("usr_admin", authorization.RoleAdmin, time.Hour)
	require.NoError(t, err)
	userToken, err := jwtSvc.Generate("usr_member", authorization.RoleUser, time.Hour)
	require.NoError(t, err)
	expiredToken, err := auth.NewJWTService("secret", "", biztime.FixedClock{T: tokenTime.Add(-2 * time.Hour)}).
		Generate("usr_admin", authorization.RoleAdmin, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCode   string
	}{
		{"admin", "Bearer " + adminToken, http.StatusOK, ""},
		{"missing header", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"expired", "Bearer " + expiredToken, http.StatusUnauthorized, "TOKEN_EXPIRED"},
		{"tampered", "Bearer " + adminToken + "x", http.StatusUnauthorized, "TOKEN_INVALID"},
		{"non admin role", "Bearer " + userToken, http.StatusForbidden, "FORBIDDEN"},
	}

	engine := adminEngine(t, jwtSvc)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/orgs/org_1/grants", nil)
			if tt.header != "" {
				req.Header.Set(constants.HeaderAuthorization, tt.header)
			}
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.NotEmpty(t, w.Header().Get(constants.HeaderXRequestID))
			if tt.wantCode == "" {
				assert.Contains(t, w.Body.String(), "usr_admin")
				return
			}
			var body utils.ErrorBody
			require.NoError(t, decodeBody(w, &body))
			assert.Equal(t, tt.wantCode, body.Code)
		})
	}
}

func TestRequestID_PropagatesCallerValue(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestID())
	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(constants.ContextKeyRequestID))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(constants.HeaderXRequestID, "req-123")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Body.String())
	assert.Equal(t, "req-123", w.Header().Get(constants.HeaderXRequestID))
}
