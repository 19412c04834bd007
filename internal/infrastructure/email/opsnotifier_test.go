package email

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corates/billing/internal/domain/billing"
)

type fakeSender struct {
	sent []Message
}

func (f *fakeSender) Send(_ context.Context, msg Message) error {
	f.sent = append(f.sent, msg)
	return nil
}

func TestOpsNotifier_Notify(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		event      billing.ChangeEvent
		recipients []string
		wantMail   bool
	}{
		{
			name:       "cancellation",
			event:      billing.ChangeEvent{OrgID: "org_1", SubscriptionID: "sub_1", Status: "canceled", PlanID: "team", Source: billing.OriginWebhook, OccurredAt: at},
			recipients: []string{"ops@corates.local"},
			wantMail:   true,
		},
		{
			name:       "status change",
			event:      billing.ChangeEvent{OrgID: "org_1", SubscriptionID: "sub_1", Status: "past_due"},
			recipients: []string{"ops@corates.local"},
		},
		{
			name:       "grant revoked",
			event:      billing.ChangeEvent{OrgID: "org_1", GrantID: "grant_1", Status: "canceled"},
			recipients: []string{"ops@corates.local"},
		},
		{
			name:  "no recipients",
			event: billing.ChangeEvent{OrgID: "org_1", SubscriptionID: "sub_1", Status: "canceled"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSender{}
			n := NewOpsNotifier(sender, tt.recipients)

			require.NoError(t, n.Notify(context.Background(), tt.event))

			if !tt.wantMail {
				assert.Empty(t, sender.sent)
				return
			}
			require.Len(t, sender.sent, 1)
			assert.Equal(t, "[billing] subscription canceled for org_1", sender.sent[0].Subject)
			assert.Contains(t, sender.sent[0].Markdown, "`sub_1`")
			assert.Contains(t, sender.sent[0].Markdown, "2026-03-01T09:00:00Z")
		})
	}
}
