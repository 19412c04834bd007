package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/corates/billing/internal/domain/ledger"
	"github.com/corates/billing/internal/domain/subscription"
	vo "github.com/corates/billing/internal/domain/subscription/valueobjects"
)

func intPtr(v int) *int { return &v }

func incompleteFindings(subs []*subscription.Subscription, th Thresholds, now time.Time) []Finding {
	var out []Finding
	limit := minutes(th.IncompleteMinutes)
	for _, s := range subs {
		if !s.Status().IsIncomplete() || now.Sub(s.CreatedAt()) < limit {
			continue
		}
		age := s.AgeMinutes(now)
		out = append(out, Finding{
			Type:           FindingIncompleteSubscription,
			Severity:       SeverityHigh,
			Description:    fmt.Sprintf("subscription %s has been %s for %d minutes", s.ID(), s.Status(), age),
			OrgID:          s.OrgID(),
			SubscriptionID: s.ID(),
			AgeMinutes:     intPtr(age),
		})
	}
	return out
}

func pastDueFindings(subs []*subscription.Subscription, now time.Time) []Finding {
	var out []Finding
	for _, s := range subs {
		if s.Status() != vo.StatusPastDue || !s.PeriodLapsed(now) {
			continue
		}
		age := int(now.Sub(*s.PeriodEnd()) / time.Minute)
		out = append(out, Finding{
			Type:           FindingPastDueExpired,
			Severity:       SeverityHigh,
			Description:    fmt.Sprintf("subscription %s is past_due and its period ended %s", s.ID(), s.PeriodEnd().Format(time.RFC3339)),
			OrgID:          s.OrgID(),
			SubscriptionID: s.ID(),
			AgeMinutes:     intPtr(age),
		})
	}
	return out
}

// refExists reports whether a local subscription carries either reference.
type refExists func(ctx context.Context, customerRef, subscriptionRef string) (bool, error)

// checkoutFindings flags processed checkouts past the threshold with no local
// subscription behind them.
func checkoutFindings(ctx context.Context, entries []*ledger.Entry, exists refExists, th Thresholds, now time.Time) ([]Finding, error) {
	var out []Finding
	limit := minutes(th.CheckoutNoSubMinutes)
	for _, e := range entries {
		if e.Type() != ledger.EventCheckoutSessionCompleted || e.Status() != ledger.StatusProcessed {
			continue
		}
		if now.Sub(e.ReceivedAt()) < limit {
			continue
		}
		links := e.Links()
		found, err := exists(ctx, links.ExternalCustomerRef, links.ExternalSubscriptionRef)
		if err != nil {
			return nil, err
		}
		if found {
			continue
		}
		age := e.AgeMinutes(now)
		out = append(out, Finding{
			Type:     FindingCheckoutNoSubscription,
			Severity: SeverityCritical,
			Description: fmt.Sprintf("checkout %s completed %d minutes ago but no subscription references customer %q or subscription %q",
				links.ExternalCheckoutRef, age, links.ExternalCustomerRef, links.ExternalSubscriptionRef),
			OrgID:           e.OrgID(),
			LedgerEntryID:   e.ID(),
			ExternalEventID: e.ExternalEventID(),
			AgeMinutes:      intPtr(age),
		})
	}
	return out, nil
}

func failureFinding(orgID string, failed int64, th Thresholds) []Finding {
	if failed < th.FailureCount {
		return nil
	}
	return []Finding{{
		Type:        FindingRepeatedWebhookFailures,
		Severity:    SeverityHigh,
		Description: fmt.Sprintf("%d webhook events failed for organization %s", failed, orgID),
		OrgID:       orgID,
		Count:       failed,
	}}
}

func lagFindings(entries []*ledger.Entry, th Thresholds, now time.Time) []Finding {
	var out []Finding
	limit := minutes(th.ProcessingLagMinutes)
	for _, e := range entries {
		if e.Status() != ledger.StatusReceived || e.ProcessedAt() != nil || now.Sub(e.ReceivedAt()) < limit {
			continue
		}
		age := e.AgeMinutes(now)
		out = append(out, Finding{
			Type:            FindingProcessingLag,
			Severity:        SeverityMedium,
			Description:     fmt.Sprintf("%s event %s received %d minutes ago is still unprocessed", e.Type(), e.ID(), age),
			OrgID:           e.OrgID(),
			LedgerEntryID:   e.ID(),
			ExternalEventID: e.ExternalEventID(),
			AgeMinutes:      intPtr(age),
		})
	}
	return out
}

func mismatchFinding(c StripeComparison) []Finding {
	if c.Error != "" || c.Match {
		return nil
	}
	return []Finding{{
		Type:     FindingStripeStatusMismatch,
		Severity: SeverityHigh,
		Description: fmt.Sprintf("subscription %s is %s locally but %s in Stripe; pull the live state manually",
			c.SubscriptionID, c.LocalStatus, c.StripeStatus),
		OrgID:          c.OrgID,
		SubscriptionID: c.SubscriptionID,
	}}
}

// currentSubscription picks the row to compare against the processor: the
// newest access-granting one with a processor ref, else the newest with a ref.
func currentSubscription(subs []*subscription.Subscription) *subscription.Subscription {
	var fallback *subscription.Subscription
	for _, s := range subs {
		if s.ExternalSubscriptionRef() == "" {
			continue
		}
		if s.Status().GrantsAccess() {
			return s
		}
		if fallback == nil {
			fallback = s
		}
	}
	return fallback
}
