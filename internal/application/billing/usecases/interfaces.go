package usecases

import (
	"context"

	"github.com/corates/billing/internal/domain/billing"
	"github.com/corates/billing/internal/infrastructure/metrics"
	"github.com/corates/billing/internal/shared/constants"
	"github.com/corates/billing/internal/shared/goroutine"
	"github.com/corates/billing/internal/shared/logger"
)

// NotificationSink receives billing change events. Deliveries are best effort.
type NotificationSink interface {
	Notify(ctx context.Context, event billing.ChangeEvent) error
}

// NamedSink labels a sink for logs and failure metrics.
type NamedSink struct {
	Name string
	Sink NotificationSink
}

// ChangeNotifier fans change events out to every sink off the request path.
// A nil *ChangeNotifier drops events.
type ChangeNotifier struct {
	sinks  []NamedSink
	logger logger.Interface
}

func NewChangeNotifier(logger logger.Interface, sinks ...NamedSink) *ChangeNotifier {
	return &ChangeNotifier{sinks: sinks, logger: logger}
}

// Publish returns immediately; delivery failures are logged and counted.
func (n *ChangeNotifier) Publish(event billing.ChangeEvent) {
	if n == nil || len(n.sinks) == 0 {
		return
	}
	goroutine.SafeGoWithTimeout(n.logger, "billing-change-notify", constants.NotificationTimeout, func(ctx context.Context) {
		n.Deliver(ctx, event)
	})
}

// Deliver sends event to every sink in order and waits for all of them.
func (n *ChangeNotifier) Deliver(ctx context.Context, event billing.ChangeEvent) {
	for _, s := range n.sinks {
		if err := s.Sink.Notify(ctx, event); err != nil {
			metrics.NotificationFailuresTotal.WithLabelValues(s.Name).Inc()
			n.logger.Warnw("billing change notification failed",
				"sink", s.Name,
				"org_id", event.OrgID,
				"subscription_id", event.SubscriptionID,
				"grant_id", event.GrantID,
				"error", err,
			)
		}
	}
}
