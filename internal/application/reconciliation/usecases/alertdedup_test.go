package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corates/billing/internal/application/billing/testutil"
)

type stubNotifier struct {
	calls [][]Finding
	err   error
}

func (n *stubNotifier) NotifyCritical(_ context.Context, findings []Finding) (bool, error) {
	n.calls = append(n.calls, findings)
	return len(findings) > 0, n.err
}

type memoryGate struct {
	held     map[string]bool
	released []string
	err      error
}

func newMemoryGate() *memoryGate { return &memoryGate{held: make(map[string]bool)} }

func (g *memoryGate) TryAcquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	if g.err != nil {
		return false, g.err
	}
	if g.held[key] {
		return false, nil
	}
	g.held[key] = true
	return true, nil
}

func (g *memoryGate) Release(_ context.Context, key string) error {
	delete(g.held, key)
	g.released = append(g.released, key)
	return nil
}

var (
	stuckCheckout = Finding{Type: FindingCheckoutNoSubscription, Severity: SeverityCritical, OrgID: "org_1", LedgerEntryID: "whl_1"}
	laggingEntry  = Finding{Type: FindingProcessingLag, Severity: SeverityMedium, LedgerEntryID: "whl_2"}
)

func TestDedupNotifier_MailsOncePerCooldown(t *testing.T) {
	next := &stubNotifier{}
	n := NewDedupNotifier(next, newMemoryGate(), time.Hour, testutil.NewMockLogger())

	sent, err := n.NotifyCritical(context.Background(), []Finding{stuckCheckout, laggingEntry})
	require.NoError(t, err)
	assert.True(t, sent)
	require.Len(t, next.calls, 1)
	assert.Equal(t, []Finding{stuckCheckout}, next.calls[0])

	sent, err = n.NotifyCritical(context.Background(), []Finding{stuckCheckout, laggingEntry})
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Len(t, next.calls, 1)
}

func TestDedupNotifier_MailFailureReleasesClaims(t *testing.T) {
	gate := newMemoryGate()
	n := NewDedupNotifier(&stubNotifier{err: assert.AnError}, gate, time.Hour, testutil.NewMockLogger())

	_, err := n.NotifyCritical(context.Background(), []Finding{stuckCheckout})

	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, []string{AlertKey(stuckCheckout)}, gate.released)
	assert.Empty(t, gate.held)
}

func TestDedupNotifier_Variants(t *testing.T) {
	tests := []struct {
		name      string
		findings  []Finding
		gate      *memoryGate
		wantSent  bool
		wantCalls int
	}{
		{"nothing critical", []Finding{laggingEntry}, newMemoryGate(), false, 0},
		{"gate down fails open", []Finding{stuckCheckout}, &memoryGate{held: map[string]bool{}, err: assert.AnError}, true, 1},
		{"already held", []Finding{stuckCheckout}, &memoryGate{held: map[string]bool{AlertKey(stuckCheckout): true}}, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := &stubNotifier{}
			n := NewDedupNotifier(next, tt.gate, 0, testutil.NewMockLogger())

			sent, err := n.NotifyCritical(context.Background(), tt.findings)

			require.NoError(t, err)
			assert.Equal(t, tt.wantSent, sent)
			assert.Len(t, next.calls, tt.wantCalls)
		})
	}
}

func TestAlertKey(t *testing.T) {
	assert.Equal(t, "checkout_no_subscription:org_1:whl_1", AlertKey(stuckCheckout))
	assert.Equal(t, "processing_lag::whl_2", AlertKey(laggingEntry))
	assert.Equal(t, "past_due_expired:org_9:sub_1", AlertKey(Finding{Type: FindingPastDueExpired, OrgID: "org_9", SubscriptionID: "sub_1"}))
}
