package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corates/billing/internal/application/billing/testutil"
	"github.com/corates/billing/internal/domain/billing"
)

func TestChangeNotifier_FailingSinkDoesNotStopOthers(t *testing.T) {
	log := testutil.NewMockLogger()
	failing := testutil.NewRecordingSink()
	failing.Err = assert.AnError
	ok := testutil.NewRecordingSink()
	n := NewChangeNotifier(log,
		NamedSink{Name: "redis", Sink: failing},
		NamedSink{Name: "email", Sink: ok},
	)

	event := billing.ChangeEvent{OrgID: "org_1", SubscriptionID: "sub_1", Status: "canceled", Source: billing.OriginWebhook}
	n.Deliver(context.Background(), event)

	assert.Len(t, failing.Events(), 1)
	assert.Equal(t, []billing.ChangeEvent{event}, ok.Events())
	assert.True(t, log.HasMessage("WARN", "billing change notification failed"))
}

func TestChangeNotifier_PublishIsAsync(t *testing.T) {
	sink := testutil.NewRecordingSink()
	n := NewChangeNotifier(testutil.NewMockLogger(), NamedSink{Name: "recording", Sink: sink})

	n.Publish(billing.ChangeEvent{OrgID: "org_1"})

	got, ok := sink.Await(time.Second)
	require.True(t, ok)
	assert.Equal(t, "org_1", got.OrgID)

	var nilNotifier *ChangeNotifier
	assert.NotPanics(t, func() { nilNotifier.Publish(billing.ChangeEvent{OrgID: "org_1"}) })
}
