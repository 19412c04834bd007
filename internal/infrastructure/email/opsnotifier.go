package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/corates/billing/internal/domain/billing"
)

// Sender is satisfied by *SMTPMailer.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// OpsNotifier mails operators when a subscription is canceled. Every other
// change event is ignored.
type OpsNotifier struct {
	sender     Sender
	recipients []string
}

func NewOpsNotifier(sender Sender, recipients []string) *OpsNotifier {
	return &OpsNotifier{sender: sender, recipients: recipients}
}

func (n *OpsNotifier) Notify(ctx context.Context, event billing.ChangeEvent) error {
	if !event.IsCancellation() || len(n.recipients) == 0 {
		return nil
	}
	return n.sender.Send(ctx, Message{
		To:       n.recipients,
		Subject:  fmt.Sprintf("[billing] subscription canceled for %s", event.OrgID),
		Markdown: cancellationBody(event),
	})
}

func cancellationBody(e billing.ChangeEvent) string {
	var b strings.Builder
	b.WriteString("## Subscription canceled\n\n")
	fmt.Fprintf(&b, "- **Organization:** `%s`\n", e.OrgID)
	fmt.Fprintf(&b, "- **Subscription:** `%s`\n", e.SubscriptionID)
	if e.PlanID != "" {
		fmt.Fprintf(&b, "- **Plan:** `%s`\n", e.PlanID)
	}
	fmt.Fprintf(&b, "- **Source:** %s\n", e.Source)
	fmt.Fprintf(&b, "- **At:** %s\n", e.OccurredAt.Format(time.RFC3339))
	return b.String()
}
