package usecases

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corates/billing/internal/application/billing/testutil"
	"github.com/corates/billing/internal/domain/ledger"
	"github.com/corates/billing/internal/shared/biztime"
	"github.com/corates/billing/internal/shared/errors"
)

func seedEntry(t *testing.T, repo *testutil.MockLedgerRepository, body, eventType, orgID string, receivedAt time.Time, outcome *ledger.Outcome) *ledger.Entry {
	t.Helper()
	e, err := ledger.NewEntry(ledger.Receipt{
		Payload:         []byte(body),
		ExternalEventID: "evt_" + body,
		Type:            eventType,
		Verified:        true,
		Links:           ledger.Links{OrgID: orgID},
		ReceivedAt:      receivedAt,
	})
	require.NoError(t, err)
	if outcome != nil {
		require.NoError(t, e.Apply(*outcome, receivedAt))
	}
	repo.Seed(e)
	return e
}

func TestListLedger(t *testing.T) {
	repo := testutil.NewMockLedgerRepository()
	failed := ledger.Failed(http.StatusOK, assert.AnError, ledger.Links{})
	processed := ledger.Processed(http.StatusOK, ledger.Links{})
	seedEntry(t, repo, "a", ledger.EventSubscriptionUpdated, "org_1", testNow.Add(-3*time.Minute), &failed)
	seedEntry(t, repo, "b", ledger.EventCheckoutSessionCompleted, "org_1", testNow.Add(-2*time.Minute), &processed)
	seedEntry(t, repo, "c", ledger.EventSubscriptionUpdated, "org_2", testNow.Add(-time.Minute), &failed)

	uc := NewListLedgerUseCase(NewLedgerService(repo, biztime.FixedClock{T: testNow}, testutil.NewMockLogger()), testutil.NewMockLogger())

	tests := []struct {
		name    string
		query   ListLedgerQuery
		wantIDs []string
	}{
		{"all newest first", ListLedgerQuery{}, []string{"evt_c", "evt_b", "evt_a"}},
		{"by status lower case", ListLedgerQuery{Status: "failed"}, []string{"evt_c", "evt_a"}},
		{"by status and type", ListLedgerQuery{Status: "PROCESSED", Type: ledger.EventCheckoutSessionCompleted}, []string{"evt_b"}},
		{"by org", ListLedgerQuery{OrgID: "org_1"}, []string{"evt_b", "evt_a"}},
		{"limit", ListLedgerQuery{Limit: 1}, []string{"evt_c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := uc.Execute(context.Background(), tt.query)
			require.NoError(t, err)
			ids := make([]string, 0, len(got))
			for _, e := range got {
				ids = append(ids, e.ExternalEventID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestListLedger_InvalidStatus(t *testing.T) {
	uc := NewListLedgerUseCase(NewLedgerService(testutil.NewMockLedgerRepository(), biztime.FixedClock{T: testNow}, testutil.NewMockLogger()), testutil.NewMockLogger())

	_, err := uc.Execute(context.Background(), ListLedgerQuery{Status: "DONE"})

	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
	assert.Equal(t, "status", errors.GetAppError(err).Field)
}

func TestLedgerService_TransitionOnlyOnce(t *testing.T) {
	repo := testutil.NewMockLedgerRepository()
	svc := NewLedgerService(repo, biztime.FixedClock{T: testNow}, testutil.NewMockLogger())
	entry, duplicate, err := svc.Record(context.Background(), ledger.Receipt{
		Payload:         []byte(`{"id":"evt_1"}`),
		ExternalEventID: "evt_1",
		Type:            "invoice.paid",
		Verified:        true,
	})
	require.NoError(t, err)
	require.False(t, duplicate)
	assert.Equal(t, testNow, entry.ReceivedAt())

	_, err = svc.Transition(context.Background(), entry.ID(), ledger.Processed(http.StatusOK, ledger.Links{}))
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), entry.ID(), ledger.Failed(http.StatusOK, assert.AnError, ledger.Links{}))
	require.Error(t, err)
	assert.True(t, errors.IsConflictError(err))

	_, err = svc.Transition(context.Background(), "missing", ledger.Processed(http.StatusOK, ledger.Links{}))
	assert.True(t, errors.IsNotFoundError(err))
}
