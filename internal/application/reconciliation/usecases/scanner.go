package usecases

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/corates/billing/internal/domain/ledger"
	"github.com/corates/billing/internal/domain/subscription"
	vo "github.com/corates/billing/internal/domain/subscription/valueobjects"
	"github.com/corates/billing/internal/infrastructure/metrics"
	"github.com/corates/billing/internal/infrastructure/stripe"
	"github.com/corates/billing/internal/shared/biztime"
	"github.com/corates/billing/internal/shared/constants"
	"github.com/corates/billing/internal/shared/errors"
	"github.com/corates/billing/internal/shared/logger"
)

// SubscriptionFetcher reads the processor's live subscription.
type SubscriptionFetcher interface {
	FetchSubscription(ctx context.Context, subscriptionRef string) (*stripe.LiveSubscription, error)
}

type ScannerOptions struct {
	ScanLimit int
	// ExternalConcurrency bounds concurrent processor calls in a global scan.
	ExternalConcurrency int
	ExternalTimeout     time.Duration
}

func (o ScannerOptions) withDefaults() ScannerOptions {
	if o.ScanLimit <= 0 {
		o.ScanLimit = constants.DefaultScanLimit
	}
	if o.ExternalConcurrency <= 0 {
		o.ExternalConcurrency = 4
	}
	if o.ExternalTimeout <= 0 {
		o.ExternalTimeout = 10 * time.Second
	}
	return o
}

// ReconciliationScanner diagnoses billing state. It only reads.
type ReconciliationScanner struct {
	subscriptionRepo subscription.Repository
	ledgerRepo       ledger.Repository
	fetcher          SubscriptionFetcher
	opts             ScannerOptions
	clock            biztime.Clock
	logger           logger.Interface
}

func NewReconciliationScanner(
	subscriptionRepo subscription.Repository,
	ledgerRepo ledger.Repository,
	fetcher SubscriptionFetcher,
	opts ScannerOptions,
	clock biztime.Clock,
	logger logger.Interface,
) *ReconciliationScanner {
	return &ReconciliationScanner{
		subscriptionRepo: subscriptionRepo,
		ledgerRepo:       ledgerRepo,
		fetcher:          fetcher,
		opts:             opts.withDefaults(),
		clock:            clock,
		logger:           logger,
	}
}

// Scan runs every rule for one org.
func (s *ReconciliationScanner) Scan(ctx context.Context, orgID string, th Thresholds, checkExternal bool) (*Report, error) {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return nil, errors.NewValidationError("organization ID is required").WithField("orgId")
	}
	start := time.Now()
	defer func() {
		metrics.ReconcileDuration.WithLabelValues("org").Observe(time.Since(start).Seconds())
	}()

	th = th.WithDefaults()
	now := s.clock.Now()

	subs, err := s.subscriptionRepo.ListByOrg(ctx, orgID)
	if err != nil {
		s.logger.Errorw("reconcile: failed to list subscriptions", "org_id", orgID, "error", err)
		return nil, storageError(err, "subscription.list_by_org")
	}
	entries, err := s.ledgerRepo.ListByOrg(ctx, orgID, s.opts.ScanLimit)
	if err != nil {
		s.logger.Errorw("reconcile: failed to list ledger entries", "org_id", orgID, "error", err)
		return nil, storageError(err, "ledger.list_by_org")
	}
	failed, err := s.ledgerRepo.CountByOrgAndStatus(ctx, orgID, ledger.StatusFailed)
	if err != nil {
		return nil, storageError(err, "ledger.count_by_org_and_status")
	}

	var findings []Finding
	findings = append(findings, incompleteFindings(subs, th, now)...)
	findings = append(findings, pastDueFindings(subs, now)...)
	checkouts, err := checkoutFindings(ctx, entries, s.refExists, th, now)
	if err != nil {
		return nil, err
	}
	findings = append(findings, checkouts...)
	findings = append(findings, failureFinding(orgID, failed, th)...)
	findings = append(findings, lagFindings(entries, th, now)...)

	report := &Report{OrgID: orgID, GeneratedAt: now.UTC(), Thresholds: th}
	if checkExternal {
		c := s.compare(ctx, orgID, currentSubscription(subs))
		report.StripeComparison = &c
		findings = append(findings, mismatchFinding(c)...)
	}

	sortFindings(findings)
	report.Findings = nonNil(findings)
	report.Summary = summarize(report.Findings)
	recordFindings(report.Findings)

	s.logger.Infow("reconcile scan completed",
		"org_id", orgID,
		"findings", report.Summary.Total,
		"critical", report.Summary.BySeverity[SeverityCritical],
		"check_external", checkExternal,
	)
	return report, nil
}

// ScanGlobal runs the rules over bounded reads across all orgs.
func (s *ReconciliationScanner) ScanGlobal(ctx context.Context, th Thresholds, limit int, checkExternal bool) (*GlobalReport, error) {
	start := time.Now()
	defer func() {
		metrics.ReconcileDuration.WithLabelValues("global").Observe(time.Since(start).Seconds())
	}()

	th = th.WithDefaults()
	limit = clampLimit(limit, s.opts.ScanLimit)
	now := s.clock.Now()

	// Each goroutine writes to its own variable; Wait orders the reads below.
	var (
		stuck     []*subscription.Subscription
		received  []*ledger.Entry
		checkouts []*ledger.Entry
		failures  map[string]int64
		granting  []*subscription.Subscription
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.subscriptionRepo.ListByStatuses(gctx,
			[]vo.SubscriptionStatus{vo.StatusIncomplete, vo.StatusIncompleteExpired, vo.StatusPastDue}, limit)
		if err != nil {
			return storageError(err, "subscription.list_by_statuses")
		}
		stuck = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.ledgerRepo.ListReceivedBefore(gctx, now.Add(-minutes(th.ProcessingLagMinutes)), limit)
		if err != nil {
			return storageError(err, "ledger.list_received_before")
		}
		received = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.ledgerRepo.ListProcessedByTypeBefore(gctx, ledger.EventCheckoutSessionCompleted,
			now.Add(-minutes(th.CheckoutNoSubMinutes)), limit)
		if err != nil {
			return storageError(err, "ledger.list_processed_checkouts")
		}
		checkouts = rows
		return nil
	})
	g.Go(func() error {
		counts, err := s.ledgerRepo.CountStatusByOrg(gctx, ledger.StatusFailed, th.FailureCount, limit)
		if err != nil {
			return storageError(err, "ledger.count_failed_by_org")
		}
		failures = counts
		return nil
	})
	if checkExternal {
		g.Go(func() error {
			rows, err := s.subscriptionRepo.ListByStatuses(gctx, vo.AccessGrantingStatuses, limit)
			if err != nil {
				return storageError(err, "subscription.list_by_statuses")
			}
			granting = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Errorw("global reconcile: read failed", "error", err)
		return nil, err
	}

	var findings []Finding
	findings = append(findings, incompleteFindings(stuck, th, now)...)
	findings = append(findings, pastDueFindings(stuck, now)...)
	noSub, err := checkoutFindings(ctx, checkouts, s.refExists, th, now)
	if err != nil {
		return nil, err
	}
	findings = append(findings, noSub...)
	for orgID, n := range failures {
		findings = append(findings, failureFinding(orgID, n, th)...)
	}
	findings = append(findings, lagFindings(received, th, now)...)

	report := &GlobalReport{GeneratedAt: now.UTC(), Thresholds: th, Limit: limit}
	if checkExternal {
		comparisons := s.compareAll(ctx, granting)
		for _, c := range comparisons {
			findings = append(findings, mismatchFinding(c)...)
		}
		report.StripeComparisons = comparisons
	}

	findings = nonNil(findings)
	report.Summary = summarize(findings)
	report.Orgs = groupByOrg(findings)
	recordFindings(findings)

	s.logger.Infow("global reconcile scan completed",
		"findings", report.Summary.Total,
		"critical", report.Summary.BySeverity[SeverityCritical],
		"orgs", len(report.Orgs),
	)
	return report, nil
}

// compareAll checks one subscription per org against the processor with
// bounded concurrency. Results keep the order of first appearance.
func (s *ReconciliationScanner) compareAll(ctx context.Context, subs []*subscription.Subscription) []StripeComparison {
	byOrg := make(map[string][]*subscription.Subscription)
	var orgs []string
	for _, sub := range subs {
		if _, seen := byOrg[sub.OrgID()]; !seen {
			orgs = append(orgs, sub.OrgID())
		}
		byOrg[sub.OrgID()] = append(byOrg[sub.OrgID()], sub)
	}

	results := make([]StripeComparison, len(orgs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.ExternalConcurrency)
	for i, orgID := range orgs {
		i, orgID := i, orgID
		g.Go(func() error {
			results[i] = s.compare(gctx, orgID, currentSubscription(byOrg[orgID]))
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// compare never fails; processor errors are carried in the result.
func (s *ReconciliationScanner) compare(ctx context.Context, orgID string, sub *subscription.Subscription) StripeComparison {
	c := StripeComparison{OrgID: orgID}
	if sub == nil {
		c.Error = "no subscription with a Stripe reference"
		return c
	}
	c.SubscriptionID = sub.ID()
	c.ExternalSubscriptionRef = sub.ExternalSubscriptionRef()
	c.LocalStatus = sub.Status().String()
	if s.fetcher == nil {
		c.Error = stripe.ErrAPIKeyMissing.Error()
		return c
	}

	callCtx, cancel := context.WithTimeout(ctx, s.opts.ExternalTimeout)
	defer cancel()
	live, err := s.fetcher.FetchSubscription(callCtx, sub.ExternalSubscriptionRef())
	if err != nil {
		s.logger.Warnw("reconcile: stripe lookup failed",
			"org_id", orgID,
			"subscription_id", sub.ID(),
			"error", err,
		)
		c.Error = err.Error()
		return c
	}
	c.StripeStatus = live.Status
	c.Match = live.Status == c.LocalStatus
	return c
}

func (s *ReconciliationScanner) refExists(ctx context.Context, customerRef, subscriptionRef string) (bool, error) {
	ok, err := s.subscriptionRepo.ExistsByExternalRefs(ctx, customerRef, subscriptionRef)
	if err != nil {
		return false, storageError(err, "subscription.exists_by_external_refs")
	}
	return ok, nil
}

func recordFindings(findings []Finding) {
	for _, f := range findings {
		metrics.ReconcileFindingsTotal.WithLabelValues(string(f.Type), string(f.Severity)).Inc()
	}
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > constants.MaxQueryLimit {
		return constants.MaxQueryLimit
	}
	return limit
}

func nonNil(findings []Finding) []Finding {
	if findings == nil {
		return []Finding{}
	}
	return findings
}

func storageError(err error, op string) error {
	if errors.IsAppError(err) {
		return err
	}
	return errors.NewStorageError(op, err)
}
