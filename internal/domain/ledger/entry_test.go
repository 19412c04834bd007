package ledger

import (
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

func receipt(verified bool) Receipt {
	return Receipt{
		Payload:          []byte(`{"id":"evt_1","type":"customer.subscription.updated"}`),
		ExternalEventID:  "evt_1",
		Type:             EventSubscriptionUpdated,
		Verified:         verified,
		SignaturePresent: true,
		Links:            Links{OrgID: "org_1"},
		ReceivedAt:       testNow,
	}
}

func TestNewEntry_InitialStatus(t *testing.T) {
	e, err := NewEntry(receipt(true))
	require.NoError(t, err)
	assert.Equal(t, StatusReceived, e.Status())
	assert.Nil(t, e.ProcessedAt())
	assert.True(t, strings.HasPrefix(e.ID(), "whl_"))

	u, err := NewEntry(receipt(false))
	require.NoError(t, err)
	assert.Equal(t, StatusIgnoredUnverified, u.Status())
	assert.True(t, u.Status().IsTerminal())
	assert.Empty(t, u.ExternalEventID())
	assert.Equal(t, "evt_1", e.ExternalEventID())
}

func TestNewEntry_HashIsStable(t *testing.T) {
	a, err := NewEntry(receipt(true))
	require.NoError(t, err)
	b, err := NewEntry(receipt(true))
	require.NoError(t, err)

	assert.Equal(t, a.PayloadHash(), b.PayloadHash())
	assert.Len(t, a.PayloadHash(), 64)
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestNewEntry_UnverifiedHashIsSeparate(t *testing.T) {
	signed, err := NewEntry(receipt(true))
	require.NoError(t, err)
	unsigned, err := NewEntry(receipt(false))
	require.NoError(t, err)
	again, err := NewEntry(receipt(false))
	require.NoError(t, err)

	assert.NotEqual(t, signed.PayloadHash(), unsigned.PayloadHash())
	assert.Equal(t, unsigned.PayloadHash(), again.PayloadHash())
	assert.Len(t, unsigned.PayloadHash(), 64)
}

func TestNewEntry_EmptyPayload(t *testing.T) {
	r := receipt(true)
	r.Payload = nil
	_, err := NewEntry(r)
	assert.ErrorIs(t, err, ErrEmptyPayload)
}

func TestApply(t *testing.T) {
	tests := []struct {
		name       string
		outcome    Outcome
		wantStatus Status
		wantErr    string
	}{
		{
			name:       "processed",
			outcome:    Processed(http.StatusOK, Links{ExternalSubscriptionRef: "sub_ext"}),
			wantStatus: StatusProcessed,
		},
		{
			name:       "failed",
			outcome:    Failed(http.StatusOK, errors.New("org not linked"), Links{}),
			wantStatus: StatusFailed,
			wantErr:    "org not linked",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewEntry(receipt(true))
			require.NoError(t, err)

			require.NoError(t, e.Apply(tt.outcome, testNow.Add(time.Second)))
			assert.Equal(t, tt.wantStatus, e.Status())
			require.NotNil(t, e.ProcessedAt())
			require.NotNil(t, e.HTTPStatus())
			assert.Equal(t, http.StatusOK, *e.HTTPStatus())
			assert.Equal(t, tt.wantErr, e.Error())
			assert.Equal(t, "org_1", e.OrgID(), "existing links are kept")
		})
	}
}

func TestApply_OnlyFromReceived(t *testing.T) {
	e, err := NewEntry(receipt(true))
	require.NoError(t, err)
	require.NoError(t, e.Apply(Processed(http.StatusOK, Links{}), testNow))

	err = e.Apply(Failed(http.StatusOK, errors.New("late"), Links{}), testNow)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StatusProcessed, e.Status())

	u, err := NewEntry(receipt(false))
	require.NoError(t, err)
	assert.ErrorIs(t, u.Apply(Processed(http.StatusOK, Links{}), testNow), ErrInvalidTransition)

	r, err := NewEntry(receipt(true))
	require.NoError(t, err)
	assert.ErrorIs(t, r.Apply(Outcome{Status: StatusIgnoredUnverified}, testNow), ErrInvalidTransition)
}

func TestApply_MergesDiscoveredLinks(t *testing.T) {
	r := receipt(true)
	r.Links = Links{}
	e, err := NewEntry(r)
	require.NoError(t, err)

	require.NoError(t, e.Apply(Processed(http.StatusOK, Links{OrgID: "org_9", ExternalCustomerRef: "cus_1"}), testNow))
	assert.Equal(t, "org_9", e.OrgID())
	assert.Equal(t, "cus_1", e.Links().ExternalCustomerRef)
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("failed")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, s)

	_, err = ParseStatus("DONE")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestAgeMinutes(t *testing.T) {
	e, err := NewEntry(receipt(true))
	require.NoError(t, err)
	assert.Equal(t, 0, e.AgeMinutes(testNow.Add(-time.Hour)))
	assert.Equal(t, 6, e.AgeMinutes(testNow.Add(6*time.Minute+30*time.Second)))
}
