package usecases

import (
	"context"
	"strings"
	"time"

	"github.com/corates/billing/internal/shared/logger"
)

// AlertGate suppresses repeat alerts for the same finding.
type AlertGate interface {
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// CriticalNotifier is satisfied by OpsReporter.
type CriticalNotifier interface {
	NotifyCritical(ctx context.Context, findings []Finding) (bool, error)
}

// DedupNotifier forwards only the critical findings that were not alerted
// within the cooldown, so repeated reconcile runs mail each finding once.
type DedupNotifier struct {
	next     CriticalNotifier
	gate     AlertGate
	cooldown time.Duration
	logger   logger.Interface
}

func NewDedupNotifier(next CriticalNotifier, gate AlertGate, cooldown time.Duration, logger logger.Interface) *DedupNotifier {
	if cooldown <= 0 {
		cooldown = time.Hour
	}
	return &DedupNotifier{next: next, gate: gate, cooldown: cooldown, logger: logger}
}

func (n *DedupNotifier) NotifyCritical(ctx context.Context, findings []Finding) (bool, error) {
	fresh, claimed := n.claim(ctx, findings)
	if skipped := countCritical(findings) - len(fresh); skipped > 0 {
		n.logger.Infow("critical findings still in alert cooldown", "count", skipped)
	}
	if len(fresh) == 0 {
		return false, nil
	}

	sent, err := n.next.NotifyCritical(ctx, fresh)
	if err != nil {
		n.release(ctx, claimed)
		return false, err
	}
	return sent, nil
}

// claim keeps the critical findings whose cooldown could be acquired. A gate
// error lets the finding through.
func (n *DedupNotifier) claim(ctx context.Context, findings []Finding) ([]Finding, []string) {
	var (
		fresh   []Finding
		claimed []string
	)
	for _, f := range findings {
		if f.Severity != SeverityCritical {
			continue
		}
		key := AlertKey(f)
		ok, err := n.gate.TryAcquire(ctx, key, n.cooldown)
		if err != nil {
			n.logger.Warnw("alert gate unavailable", "key", key, "error", err)
			fresh = append(fresh, f)
			continue
		}
		if ok {
			fresh = append(fresh, f)
			claimed = append(claimed, key)
		}
	}
	return fresh, claimed
}

func (n *DedupNotifier) release(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := n.gate.Release(ctx, key); err != nil {
			n.logger.Warnw("failed to release alert lock", "key", key, "error", err)
		}
	}
}

func countCritical(findings []Finding) int {
	n := 0
	for _, f := range findings {
		if f.Severity == SeverityCritical {
			n++
		}
	}
	return n
}

// AlertKey identifies a finding across scans.
func AlertKey(f Finding) string {
	parts := []string{string(f.Type), f.OrgID}
	for _, id := range []string{f.SubscriptionID, f.LedgerEntryID, f.ExternalEventID} {
		if id != "" {
			parts = append(parts, id)
		}
	}
	return strings.Join(parts, ":")
}
