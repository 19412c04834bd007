package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vo "github.com/corates/billing/internal/domain/subscription/valueobjects"
	"github.com/corates/billing/internal/shared/errors"
)

func strPtr(s string) *string { return &s }

func TestCreateSubscription(t *testing.T) {
	end := testNow.AddDate(0, 1, 0)
	tests := []struct {
		name      string
		cmd       CreateSubscriptionCommand
		wantField string
	}{
		{name: "valid defaults to active", cmd: CreateSubscriptionCommand{OrgID: "org_1", PlanID: "team"}},
		{name: "missing org", cmd: CreateSubscriptionCommand{PlanID: "team"}, wantField: "orgId"},
		{name: "unknown plan", cmd: CreateSubscriptionCommand{OrgID: "org_1", PlanID: "gold"}, wantField: "planId"},
		{name: "bad status", cmd: CreateSubscriptionCommand{OrgID: "org_1", PlanID: "team", Status: "frozen"}, wantField: "status"},
		{
			name:      "period end before start",
			cmd:       CreateSubscriptionCommand{OrgID: "org_1", PlanID: "team", PeriodStart: &end, PeriodEnd: &testNow},
			wantField: "periodEnd",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			uc := NewCreateSubscriptionUseCase(f.subs, f.catalog, f.notifier, f.clock, f.logger)

			out, err := uc.Execute(context.Background(), tt.cmd)
			if tt.wantField != "" {
				require.Error(t, err)
				appErr := errors.GetAppError(err)
				require.NotNil(t, appErr)
				assert.Equal(t, 400, appErr.Code)
				assert.Equal(t, tt.wantField, appErr.Field)
				assert.Equal(t, 0, f.subs.Creates)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "active", out.Status)
			assert.Equal(t, testNow, out.CreatedAt)
			assert.Equal(t, 1, f.subs.Creates)

			event, ok := f.sink.Await(time.Second)
			require.True(t, ok)
			assert.Equal(t, out.ID, event.SubscriptionID)
			assert.Equal(t, "admin", string(event.Source))
		})
	}
}

func TestUpdateSubscription(t *testing.T) {
	f := newFixture(t)
	existing := seedSubscription(t, f, "org_1", "starter_team", vo.StatusActive, testNow.Add(-time.Hour))
	uc := NewUpdateSubscriptionUseCase(f.subs, f.catalog, f.notifier, f.clock, f.logger)

	out, err := uc.Execute(context.Background(), UpdateSubscriptionCommand{
		OrgID:          "org_1",
		SubscriptionID: existing.ID(),
		PlanID:         strPtr("team"),
		Status:         strPtr("past_due"),
	})
	require.NoError(t, err)
	assert.Equal(t, "team", out.PlanID)
	assert.Equal(t, "past_due", out.Status)

	stored, err := f.subs.GetByID(context.Background(), existing.ID())
	require.NoError(t, err)
	assert.Equal(t, vo.StatusPastDue, stored.Status())

	_, err = uc.Execute(context.Background(), UpdateSubscriptionCommand{OrgID: "org_2", SubscriptionID: existing.ID()})
	assert.True(t, errors.IsNotFoundError(err), "other orgs cannot see the row")

	_, err = uc.Execute(context.Background(), UpdateSubscriptionCommand{OrgID: "org_1", SubscriptionID: existing.ID(), PlanID: strPtr("gold")})
	assert.True(t, errors.IsValidationError(err))

	_, err = uc.Execute(context.Background(), UpdateSubscriptionCommand{OrgID: "org_1", SubscriptionID: "sub_missing"})
	assert.True(t, errors.IsNotFoundError(err))
}

func TestCancelSubscription_SoftCancelIsIdempotent(t *testing.T) {
	f := newFixture(t)
	existing := seedSubscription(t, f, "org_1", "team", vo.StatusActive, testNow.Add(-time.Hour))
	uc := NewCancelSubscriptionUseCase(f.subs, f.notifier, f.clock, f.logger)

	out, err := uc.Execute(context.Background(), CancelSubscriptionCommand{OrgID: "org_1", SubscriptionID: existing.ID()})
	require.NoError(t, err)
	assert.Equal(t, "canceled", out.Status)
	require.NotNil(t, out.CanceledAt)
	assert.Equal(t, testNow, *out.CanceledAt)

	event, ok := f.sink.Await(time.Second)
	require.True(t, ok)
	assert.True(t, event.IsCancellation())

	f.clock.now = testNow.Add(time.Hour)
	again, err := uc.Execute(context.Background(), CancelSubscriptionCommand{OrgID: "org_1", SubscriptionID: existing.ID()})
	require.NoError(t, err)
	assert.Equal(t, testNow, *again.CanceledAt)
	assert.Equal(t, 1, f.subs.Updates)

	// The row stays as history.
	assert.Len(t, f.subs.All(), 1)
}

func TestCancelSubscription_StorageFailure(t *testing.T) {
	f := newFixture(t)
	existing := seedSubscription(t, f, "org_1", "team", vo.StatusActive, testNow.Add(-time.Hour))
	f.subs.UpdateErr = errors.NewStorageError("subscription.update", assert.AnError)
	uc := NewCancelSubscriptionUseCase(f.subs, f.notifier, f.clock, f.logger)

	_, err := uc.Execute(context.Background(), CancelSubscriptionCommand{OrgID: "org_1", SubscriptionID: existing.ID()})
	require.Error(t, err)
	assert.True(t, errors.IsStorageError(err))
	assert.Empty(t, f.sink.Events())
}
