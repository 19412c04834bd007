package constants

import "time"

const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"

	HeaderAuthorization   = "Authorization"
	HeaderXRequestID      = "X-Request-ID"
	HeaderStripeSignature = "Stripe-Signature"

	ContextKeyUserID    = "user_id"
	ContextKeyUserRole  = "user_role"
	ContextKeyRequestID = "request_id"
	// ContextKeyPlanID holds the effective plan after a billing gate passed.
	ContextKeyPlanID = "billing_plan_id"

	TableSubscriptions = "subscriptions"
	TableGrants        = "org_access_grants"
	TableLedger        = "stripe_event_ledger"

	DefaultLedgerLimit = 50
	DefaultScanLimit   = 100
	MaxQueryLimit      = 500

	// MaxWebhookBodyBytes bounds inbound processor payloads.
	MaxWebhookBodyBytes = 1 << 20

	NotificationTimeout = 30 * time.Second

	ErrMsgInternalServerError = "Internal server error occurred"
)
