package usecases

import (
	"sort"
	"time"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
)

func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	default:
		return 2
	}
}

type FindingType string

const (
	FindingIncompleteSubscription  FindingType = "incomplete_subscription"
	FindingPastDueExpired          FindingType = "past_due_expired"
	FindingCheckoutNoSubscription  FindingType = "checkout_no_subscription"
	FindingRepeatedWebhookFailures FindingType = "repeated_webhook_failures"
	FindingProcessingLag           FindingType = "processing_lag"
	FindingStripeStatusMismatch    FindingType = "stripe_status_mismatch"
)

// Thresholds are in minutes so they round-trip through query params and JSON
// unchanged. Non-positive values fall back to the defaults.
type Thresholds struct {
	IncompleteMinutes    int   `json:"incompleteMinutes"`
	CheckoutNoSubMinutes int   `json:"checkoutNoSubMinutes"`
	ProcessingLagMinutes int   `json:"processingLagMinutes"`
	FailureCount         int64 `json:"failureCount"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		IncompleteMinutes:    30,
		CheckoutNoSubMinutes: 15,
		ProcessingLagMinutes: 5,
		FailureCount:         3,
	}
}

// WithDefaults replaces unset values.
func (t Thresholds) WithDefaults() Thresholds {
	d := DefaultThresholds()
	if t.IncompleteMinutes <= 0 {
		t.IncompleteMinutes = d.IncompleteMinutes
	}
	if t.CheckoutNoSubMinutes <= 0 {
		t.CheckoutNoSubMinutes = d.CheckoutNoSubMinutes
	}
	if t.ProcessingLagMinutes <= 0 {
		t.ProcessingLagMinutes = d.ProcessingLagMinutes
	}
	if t.FailureCount <= 0 {
		t.FailureCount = d.FailureCount
	}
	return t
}

func minutes(m int) time.Duration { return time.Duration(m) * time.Minute }

type Finding struct {
	Type            FindingType `json:"type"`
	Severity        Severity    `json:"severity"`
	Description     string      `json:"description"`
	OrgID           string      `json:"orgId,omitempty"`
	SubscriptionID  string      `json:"subscriptionId,omitempty"`
	LedgerEntryID   string      `json:"ledgerEntryId,omitempty"`
	ExternalEventID string      `json:"externalEventId,omitempty"`
	AgeMinutes      *int        `json:"ageMinutes,omitempty"`
	Count           int64       `json:"count,omitempty"`
}

type Summary struct {
	Total      int                 `json:"total"`
	BySeverity map[Severity]int    `json:"bySeverity"`
	ByType     map[FindingType]int `json:"byType"`
}

func summarize(findings []Finding) Summary {
	s := Summary{
		Total:      len(findings),
		BySeverity: make(map[Severity]int),
		ByType:     make(map[FindingType]int),
	}
	for _, f := range findings {
		s.BySeverity[f.Severity]++
		s.ByType[f.Type]++
	}
	return s
}

// sortFindings orders by severity, then oldest first.
func sortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		ri, rj := findings[i].Severity.rank(), findings[j].Severity.rank()
		if ri != rj {
			return ri < rj
		}
		return ageOf(findings[i]) > ageOf(findings[j])
	})
}

func ageOf(f Finding) int {
	if f.AgeMinutes == nil {
		return 0
	}
	return *f.AgeMinutes
}

// StripeComparison is the live check of one org's current subscription.
// Error carries processor failures; they never abort the scan.
type StripeComparison struct {
	OrgID                   string `json:"orgId"`
	SubscriptionID          string `json:"subscriptionId,omitempty"`
	ExternalSubscriptionRef string `json:"externalSubscriptionRef,omitempty"`
	LocalStatus             string `json:"localStatus,omitempty"`
	StripeStatus            string `json:"stripeStatus,omitempty"`
	Match                   bool   `json:"match"`
	Error                   string `json:"error,omitempty"`
}

type Report struct {
	OrgID            string            `json:"orgId"`
	GeneratedAt      time.Time         `json:"generatedAt"`
	Thresholds       Thresholds        `json:"thresholds"`
	Summary          Summary           `json:"summary"`
	Findings         []Finding         `json:"findings"`
	StripeComparison *StripeComparison `json:"stripeComparison,omitempty"`
}

// HasCritical reports whether any finding needs immediate attention.
func (r *Report) HasCritical() bool {
	return r.Summary.BySeverity[SeverityCritical] > 0
}

type OrgFindings struct {
	OrgID    string    `json:"orgId"`
	Findings []Finding `json:"findings"`
}

// GlobalReport groups findings by org. Findings that cannot be tied to an org
// are listed under an empty orgId.
type GlobalReport struct {
	GeneratedAt       time.Time          `json:"generatedAt"`
	Thresholds        Thresholds         `json:"thresholds"`
	Limit             int                `json:"limit"`
	Summary           Summary            `json:"summary"`
	Orgs              []OrgFindings      `json:"orgs"`
	StripeComparisons []StripeComparison `json:"stripeComparisons,omitempty"`
}

func (r *GlobalReport) HasCritical() bool {
	return r.Summary.BySeverity[SeverityCritical] > 0
}

// Findings flattens the per-org groups.
func (r *GlobalReport) Findings() []Finding {
	var out []Finding
	for _, o := range r.Orgs {
		out = append(out, o.Findings...)
	}
	return out
}

func groupByOrg(findings []Finding) []OrgFindings {
	byOrg := make(map[string][]Finding)
	for _, f := range findings {
		byOrg[f.OrgID] = append(byOrg[f.OrgID], f)
	}
	groups := make([]OrgFindings, 0, len(byOrg))
	for orgID, fs := range byOrg {
		sortFindings(fs)
		groups = append(groups, OrgFindings{OrgID: orgID, Findings: fs})
	}
	sort.Slice(groups, func(i, j int) bool {
		ri, rj := groups[i].Findings[0].Severity.rank(), groups[j].Findings[0].Severity.rank()
		if ri != rj {
			return ri < rj
		}
		return groups[i].OrgID < groups[j].OrgID
	})
	return groups
}
