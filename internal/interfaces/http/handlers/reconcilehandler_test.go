package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corates/billing/internal/application/billing/dto"
	reconcileUsecases "github.com/corates/billing/internal/application/reconciliation/usecases"
	webhookUsecases "github.com/corates/billing/internal/application/webhook/usecases"
	"github.com/corates/billing/internal/interfaces/http/handlers/testutil"
	"github.com/corates/billing/internal/shared/errors"
)

// =====================================================================
// Mocks
// =====================================================================

type scanCall struct {
	orgID         string
	thresholds    reconcileUsecases.Thresholds
	limit         int
	checkExternal bool
}

type mockScanner struct {
	report       *reconcileUsecases.Report
	globalReport *reconcileUsecases.GlobalReport
	err          error
	calls        []scanCall
}

func (m *mockScanner) Scan(_ context.Context, orgID string, th reconcileUsecases.Thresholds, checkExternal bool) (*reconcileUsecases.Report, error) {
	m.calls = append(m.calls, scanCall{orgID: orgID, thresholds: th, checkExternal: checkExternal})
	return m.report, m.err
}

func (m *mockScanner) ScanGlobal(_ context.Context, th reconcileUsecases.Thresholds, limit int, checkExternal bool) (*reconcileUsecases.GlobalReport, error) {
	m.calls = append(m.calls, scanCall{thresholds: th, limit: limit, checkExternal: checkExternal})
	return m.globalReport, m.err
}

type mockListLedgerUC struct {
	result []*dto.LedgerEntryDTO
	err    error
	query  *webhookUsecases.ListLedgerQuery
}

func (m *mockListLedgerUC) Execute(_ context.Context, query webhookUsecases.ListLedgerQuery) ([]*dto.LedgerEntryDTO, error) {
	m.query = &query
	return m.result, m.err
}

func newTestReconcileHandler(scanner *mockScanner, ledger *mockListLedgerUC) *ReconcileHandler {
	return NewReconcileHandler(scanner, ledger, reconcileUsecases.DefaultThresholds(), 100, testutil.NewMockLogger())
}

// =====================================================================
// TestReconcileHandler_ReconcileOrg
// =====================================================================

func TestReconcileHandler_ReconcileOrg_Thresholds(t *testing.T) {
	defaults := reconcileUsecases.DefaultThresholds()

	tests := []struct {
		name        string
		query       map[string]string
		wantStatus  int
		wantCalled  bool
		wantTh      reconcileUsecases.Thresholds
		wantCheck   bool
		wantErrName string
	}{
		{
			name:       "defaults",
			query:      map[string]string{},
			wantStatus: http.StatusOK,
			wantCalled: true,
			wantTh:     defaults,
		},
		{
			name: "overrides and stripe check",
			query: map[string]string{
				"incompleteThreshold":    "60",
				"checkoutNoSubThreshold": "20",
				"processingLagThreshold": "10",
				"checkStripe":            "true",
			},
			wantStatus: http.StatusOK,
			wantCalled: true,
			wantTh: reconcileUsecases.Thresholds{
				IncompleteMinutes:    60,
				CheckoutNoSubMinutes: 20,
				ProcessingLagMinutes: 10,
				FailureCount:         defaults.FailureCount,
			},
			wantCheck: true,
		},
		{
			name:        "negative threshold",
			query:       map[string]string{"incompleteThreshold": "-5"},
			wantStatus:  http.StatusBadRequest,
			wantErrName: "incompleteThreshold",
		},
		{
			name:        "bad stripe flag",
			query:       map[string]string{"checkStripe": "maybe"},
			wantStatus:  http.StatusBadRequest,
			wantErrName: "checkStripe",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scanner := &mockScanner{report: &reconcileUsecases.Report{OrgID: "org_1", Findings: []reconcileUsecases.Finding{}}}
			handler := newTestReconcileHandler(scanner, nil)

			c, w := testutil.NewTestContext(http.MethodGet, "/api/orgs/org_1/billing/reconcile", nil)
			testutil.SetURLParam(c, "orgId", "org_1")
			testutil.SetQueryParams(c, tt.query)

			handler.ReconcileOrg(c)

			assert.Equal(t, tt.wantStatus, w.Code)
			if !tt.wantCalled {
				assert.Empty(t, scanner.calls)
				body, err := testutil.ParseError(w)
				require.NoError(t, err)
				assert.Equal(t, tt.wantErrName, body.Details.Field)
				return
			}
			require.Len(t, scanner.calls, 1)
			assert.Equal(t, "org_1", scanner.calls[0].orgID)
			assert.Equal(t, tt.wantTh, scanner.calls[0].thresholds)
			assert.Equal(t, tt.wantCheck, scanner.calls[0].checkExternal)
		})
	}
}

func TestReconcileHandler_ReconcileOrg_StorageError(t *testing.T) {
	scanner := &mockScanner{err: errors.NewStorageError("subscription.list_by_org", assert.AnError)}
	handler := newTestReconcileHandler(scanner, nil)

	c, w := testutil.NewTestContext(http.MethodGet, "/api/orgs/org_1/billing/reconcile", nil)
	testutil.SetURLParam(c, "orgId", "org_1")

	handler.ReconcileOrg(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body, err := testutil.ParseError(w)
	require.NoError(t, err)
	assert.Equal(t, errors.ReasonStorageUnavailable, body.Details.Reason)
}

// =====================================================================
// TestReconcileHandler_StuckStates
// =====================================================================

func TestReconcileHandler_StuckStates_Limit(t *testing.T) {
	tests := []struct {
		name       string
		limit      string
		wantStatus int
		wantLimit  int
	}{
		{"default", "", http.StatusOK, 100},
		{"explicit", "25", http.StatusOK, 25},
		{"clamped", "9000", http.StatusOK, 500},
		{"zero", "0", http.StatusBadRequest, 0},
		{"garbage", "ten", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scanner := &mockScanner{globalReport: &reconcileUsecases.GlobalReport{Orgs: []reconcileUsecases.OrgFindings{}}}
			handler := newTestReconcileHandler(scanner, nil)

			c, w := testutil.NewTestContext(http.MethodGet, "/api/billing/stuck-states", nil)
			if tt.limit != "" {
				testutil.SetQueryParams(c, map[string]string{"limit": tt.limit})
			}

			handler.StuckStates(c)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus != http.StatusOK {
				assert.Empty(t, scanner.calls)
				return
			}
			require.Len(t, scanner.calls, 1)
			assert.Equal(t, tt.wantLimit, scanner.calls[0].limit)
		})
	}
}

// =====================================================================
// TestReconcileHandler_ListLedger
// =====================================================================

func TestReconcileHandler_ListLedger(t *testing.T) {
	ledger := &mockListLedgerUC{result: []*dto.LedgerEntryDTO{
		{ID: "whl_1", Type: "checkout.session.completed", Status: "PROCESSED", OrgID: "org_1", ReceivedAt: handlerNow},
	}}
	handler := newTestReconcileHandler(&mockScanner{}, ledger)

	c, w := testutil.NewTestContext(http.MethodGet, "/api/billing/ledger", nil)
	testutil.SetQueryParams(c, map[string]string{"orgId": "org_1", "status": "FAILED", "limit": "10"})

	handler.ListLedger(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, ledger.query)
	assert.Equal(t, webhookUsecases.ListLedgerQuery{OrgID: "org_1", Status: "FAILED", Limit: 10}, *ledger.query)

	var resp testutil.APIResponse
	require.NoError(t, testutil.ParseResponse(w, &resp))
	var entries []dto.LedgerEntryDTO
	require.NoError(t, json.Unmarshal(resp.Data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "whl_1", entries[0].ID)
}

func TestReconcileHandler_ListLedger_DefaultLimit(t *testing.T) {
	ledger := &mockListLedgerUC{result: []*dto.LedgerEntryDTO{}}
	handler := newTestReconcileHandler(&mockScanner{}, ledger)

	c, w := testutil.NewTestContext(http.MethodGet, "/api/billing/ledger", nil)

	handler.ListLedger(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, ledger.query)
	assert.Equal(t, 50, ledger.query.Limit)
	assert.Empty(t, ledger.query.OrgID)
}

func TestReconcileHandler_ListLedger_InvalidOrg(t *testing.T) {
	ledger := &mockListLedgerUC{}
	handler := newTestReconcileHandler(&mockScanner{}, ledger)

	c, w := testutil.NewTestContext(http.MethodGet, "/api/billing/ledger", nil)
	testutil.SetQueryParams(c, map[string]string{"orgId": "org 1;drop"})

	handler.ListLedger(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, ledger.query)
	body, err := testutil.ParseError(w)
	require.NoError(t, err)
	assert.Equal(t, "orgId", body.Details.Field)
}
