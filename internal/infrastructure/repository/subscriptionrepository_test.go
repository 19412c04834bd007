package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corates/billing/internal/domain/subscription"
	vo "github.com/corates/billing/internal/domain/subscription/valueobjects"
	"github.com/corates/billing/internal/shared/logger"
)

func newTestSubscription(t *testing.T, orgID string, status vo.SubscriptionStatus, customerRef, subRef string, now time.Time) *subscription.Subscription {
	t.Helper()
	end := now.Add(30 * 24 * time.Hour)
	s, err := subscription.NewSubscription(subscription.NewParams{
		OrgID:                   orgID,
		PlanID:                  "team",
		Status:                  status,
		PeriodStart:             &now,
		PeriodEnd:               &end,
		ExternalCustomerRef:     customerRef,
		ExternalSubscriptionRef: subRef,
	}, now)
	require.NoError(t, err)
	return s
}

func TestSubscriptionRepository_CreateAndGet(t *testing.T) {
	repo := NewSubscriptionRepository(setupTestDB(t), logger.NewNopLogger())
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s := newTestSubscription(t, "org-1", vo.StatusActive, "cus_1", "sub_ext_1", now)
	require.NoError(t, repo.Create(ctx, s))

	found, err := repo.GetByID(ctx, s.ID())
	require.NoError(t, err)
	assert.Equal(t, "org-1", found.OrgID())
	assert.Equal(t, "team", found.PlanID())
	assert.Equal(t, vo.StatusActive, found.Status())
	assert.Equal(t, "cus_1", found.ExternalCustomerRef())
	assert.Equal(t, "sub_ext_1", found.ExternalSubscriptionRef())
	require.NotNil(t, found.PeriodEnd())
	assert.True(t, found.PeriodEnd().Equal(*s.PeriodEnd()))

	_, err = repo.GetByID(ctx, "sub_missing")
	assert.ErrorIs(t, err, subscription.ErrSubscriptionNotFound)
}

func TestSubscriptionRepository_UpdateAndCancel(t *testing.T) {
	repo := NewSubscriptionRepository(setupTestDB(t), logger.NewNopLogger())
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s := newTestSubscription(t, "org-1", vo.StatusActive, "", "", now)
	require.NoError(t, repo.Create(ctx, s))

	require.True(t, s.Cancel(now.Add(time.Hour)))
	require.NoError(t, repo.Update(ctx, s))

	found, err := repo.GetByID(ctx, s.ID())
	require.NoError(t, err)
	assert.Equal(t, vo.StatusCanceled, found.Status())
	require.NotNil(t, found.CanceledAt())

	rows, err := repo.ListByOrg(ctx, "org-1")
	require.NoError(t, err)
	assert.Len(t, rows, 1, "cancel keeps the row")
}

func TestSubscriptionRepository_ListByOrgNewestFirst(t *testing.T) {
	repo := NewSubscriptionRepository(setupTestDB(t), logger.NewNopLogger())
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	older := newTestSubscription(t, "org-1", vo.StatusCanceled, "", "", base)
	newer := newTestSubscription(t, "org-1", vo.StatusActive, "", "", base.Add(time.Hour))
	other := newTestSubscription(t, "org-2", vo.StatusActive, "", "", base)
	for _, s := range []*subscription.Subscription{older, newer, other} {
		require.NoError(t, repo.Create(ctx, s))
	}

	rows, err := repo.ListByOrg(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, newer.ID(), rows[0].ID())
	assert.Equal(t, older.ID(), rows[1].ID())
}

func TestSubscriptionRepository_FindByExternalRefs(t *testing.T) {
	repo := NewSubscriptionRepository(setupTestDB(t), logger.NewNopLogger())
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	bySub := newTestSubscription(t, "org-1", vo.StatusActive, "cus_shared", "sub_ext_1", now)
	placeholder := newTestSubscription(t, "org-2", vo.StatusIncomplete, "cus_only", "", now)
	ended := newTestSubscription(t, "org-3", vo.StatusCanceled, "cus_returning", "sub_ext_old", now)
	unlinked := newTestSubscription(t, "org-4", vo.StatusActive, "cus_manual", "", now)
	for _, s := range []*subscription.Subscription{bySub, placeholder, ended, unlinked} {
		require.NoError(t, repo.Create(ctx, s))
	}

	tests := []struct {
		name        string
		customerRef string
		subRef      string
		wantID      string
		wantErr     error
	}{
		{name: "subscription ref wins", customerRef: "cus_only", subRef: "sub_ext_1", wantID: bySub.ID()},
		{name: "checkout placeholder by customer", customerRef: "cus_only", subRef: "sub_unknown", wantID: placeholder.ID()},
		{name: "ended subscription of same customer", customerRef: "cus_returning", subRef: "sub_ext_new", wantErr: subscription.ErrSubscriptionNotFound},
		{name: "active row without subscription ref", customerRef: "cus_manual", subRef: "sub_ext_9", wantErr: subscription.ErrSubscriptionNotFound},
		{name: "customer with a subscription ref", customerRef: "cus_shared", wantErr: subscription.ErrSubscriptionNotFound},
		{name: "no refs", wantErr: subscription.ErrSubscriptionNotFound},
		{name: "nothing matches", customerRef: "cus_x", subRef: "sub_x", wantErr: subscription.ErrSubscriptionNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := repo.FindByExternalRefs(ctx, tt.customerRef, tt.subRef)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, found.ID())
		})
	}

	exists, err := repo.ExistsByExternalRefs(ctx, "cus_shared", "")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByExternalRefs(ctx, "cus_x", "sub_x")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSubscriptionRepository_ListByStatuses(t *testing.T) {
	repo := NewSubscriptionRepository(setupTestDB(t), logger.NewNopLogger())
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := newTestSubscription(t, "org-1", vo.StatusIncomplete, "", "", base)
	second := newTestSubscription(t, "org-2", vo.StatusPastDue, "", "", base.Add(time.Minute))
	third := newTestSubscription(t, "org-3", vo.StatusIncompleteExpired, "", "", base.Add(2*time.Minute))
	active := newTestSubscription(t, "org-4", vo.StatusActive, "", "", base)
	for _, s := range []*subscription.Subscription{first, second, third, active} {
		require.NoError(t, repo.Create(ctx, s))
	}

	statuses := []vo.SubscriptionStatus{vo.StatusIncomplete, vo.StatusIncompleteExpired, vo.StatusPastDue}

	rows, err := repo.ListByStatuses(ctx, statuses, 10)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, first.ID(), rows[0].ID())
	assert.Equal(t, third.ID(), rows[2].ID())

	rows, err = repo.ListByStatuses(ctx, statuses, 2)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
