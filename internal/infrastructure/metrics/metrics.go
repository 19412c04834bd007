// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookEventsTotal counts processor events by type and ledger outcome.
	WebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "billing",
		Name:      "webhook_events_total",
		Help:      "Processor webhook events by event type and outcome.",
	}, []string{"type", "outcome"})

	// WebhookDuration tracks webhook handling latency.
	WebhookDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "billing",
		Name:      "webhook_duration_seconds",
		Help:      "Webhook handling duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"type"})

	// AccessResolutionsTotal counts resolutions by winning source.
	AccessResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "billing",
		Name:      "access_resolutions_total",
		Help:      "Access resolutions by source.",
	}, []string{"source"})

	// QuotaDenialsTotal counts quota denials by key.
	QuotaDenialsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "billing",
		Name:      "quota_denials_total",
		Help:      "Quota checks that were denied.",
	}, []string{"quota_key"})

	// EntitlementDenialsTotal counts entitlement denials by key.
	EntitlementDenialsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "billing",
		Name:      "entitlement_denials_total",
		Help:      "Entitlement checks that were denied.",
	}, []string{"entitlement"})

	// ReconcileFindingsTotal counts scanner findings.
	ReconcileFindingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "billing",
		Name:      "reconcile_findings_total",
		Help:      "Reconciliation findings by type and severity.",
	}, []string{"type", "severity"})

	// ReconcileDuration tracks scan latency by scope (org or global).
	ReconcileDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "billing",
		Name:      "reconcile_duration_seconds",
		Help:      "Reconciliation scan duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"scope"})

	// NotificationFailuresTotal counts sink deliveries that failed.
	NotificationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "billing",
		Name:      "notification_failures_total",
		Help:      "Notification sink deliveries that failed.",
	}, []string{"sink"})
)
