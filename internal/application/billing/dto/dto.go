// Package dto holds the wire shapes of the billing admin API.
package dto

import "time"

type SubscriptionDTO struct {
	ID                      string     `json:"id"`
	OrgID                   string     `json:"orgId"`
	PlanID                  string     `json:"planId"`
	Status                  string     `json:"status"`
	PeriodStart             *time.Time `json:"periodStart,omitempty"`
	PeriodEnd               *time.Time `json:"periodEnd,omitempty"`
	CancelAtPeriodEnd       bool       `json:"cancelAtPeriodEnd"`
	ExternalCustomerRef     string     `json:"externalCustomerRef,omitempty"`
	ExternalSubscriptionRef string     `json:"externalSubscriptionRef,omitempty"`
	CreatedAt               time.Time  `json:"createdAt"`
	UpdatedAt               time.Time  `json:"updatedAt"`
	CanceledAt              *time.Time `json:"canceledAt,omitempty"`
	EndedAt                 *time.Time `json:"endedAt,omitempty"`
}

type GrantDTO struct {
	ID        string                 `json:"id"`
	OrgID     string                 `json:"orgId"`
	Type      string                 `json:"type"`
	State     string                 `json:"state"`
	StartsAt  time.Time              `json:"startsAt"`
	ExpiresAt time.Time              `json:"expiresAt"`
	CreatedAt time.Time              `json:"createdAt"`
	RevokedAt *time.Time             `json:"revokedAt,omitempty"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// ResolvedBillingDTO is the effective plan of an org at GeneratedAt.
type ResolvedBillingDTO struct {
	OrgID           string           `json:"orgId"`
	EffectivePlanID string           `json:"effectivePlanId"`
	PlanName        string           `json:"planName,omitempty"`
	Source          string           `json:"source"`
	AccessMode      string           `json:"accessMode"`
	Quotas          map[string]int64 `json:"quotas"`
	Entitlements    map[string]bool  `json:"entitlements"`
	Subscription    *SubscriptionDTO `json:"subscription"`
	Grant           *GrantDTO        `json:"grant"`
	CatalogVersion  string           `json:"catalogVersion"`
	UnknownPlan     bool             `json:"unknownPlan,omitempty"`
	GeneratedAt     time.Time        `json:"generatedAt"`
}

// OrgBillingDTO is the admin billing view: the resolution plus full history.
type OrgBillingDTO struct {
	Billing       *ResolvedBillingDTO `json:"billing"`
	Subscriptions []*SubscriptionDTO  `json:"subscriptions"`
	Grants        []*GrantDTO         `json:"grants"`
}

type LedgerEntryDTO struct {
	ID                      string     `json:"id"`
	ExternalEventID         string     `json:"externalEventId,omitempty"`
	Type                    string     `json:"type"`
	Status                  string     `json:"status"`
	HTTPStatus              *int       `json:"httpStatus,omitempty"`
	Error                   string     `json:"error,omitempty"`
	OrgID                   string     `json:"orgId,omitempty"`
	ExternalCustomerRef     string     `json:"externalCustomerRef,omitempty"`
	ExternalSubscriptionRef string     `json:"externalSubscriptionRef,omitempty"`
	ExternalCheckoutRef     string     `json:"externalCheckoutRef,omitempty"`
	PayloadHash             string     `json:"payloadHash"`
	SignaturePresent        bool       `json:"signaturePresent"`
	Livemode                bool       `json:"livemode"`
	ReceivedAt              time.Time  `json:"receivedAt"`
	ProcessedAt             *time.Time `json:"processedAt,omitempty"`
	RequestID               string     `json:"requestId,omitempty"`
	Route                   string     `json:"route,omitempty"`
}

type PlanDTO struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Quotas       map[string]int64 `json:"quotas"`
	Entitlements map[string]bool  `json:"entitlements"`
}

type CatalogDTO struct {
	Version     string     `json:"version"`
	DefaultPlan string     `json:"defaultPlan"`
	Plans       []*PlanDTO `json:"plans"`
}
