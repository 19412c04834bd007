package valueobjects

import "fmt"

// SubscriptionStatus mirrors the processor's subscription lifecycle.
type SubscriptionStatus string

const (
	StatusTrialing          SubscriptionStatus = "trialing"
	StatusActive            SubscriptionStatus = "active"
	StatusPastDue           SubscriptionStatus = "past_due"
	StatusPaused            SubscriptionStatus = "paused"
	StatusCanceled          SubscriptionStatus = "canceled"
	StatusUnpaid            SubscriptionStatus = "unpaid"
	StatusIncomplete        SubscriptionStatus = "incomplete"
	StatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
)

var ValidStatuses = map[SubscriptionStatus]bool{
	StatusTrialing:          true,
	StatusActive:            true,
	StatusPastDue:           true,
	StatusPaused:            true,
	StatusCanceled:          true,
	StatusUnpaid:            true,
	StatusIncomplete:        true,
	StatusIncompleteExpired: true,
}

// AccessGrantingStatuses are the statuses a subscription may hold and still be
// picked as the resolution candidate.
var AccessGrantingStatuses = []SubscriptionStatus{StatusActive, StatusTrialing, StatusPastDue}

func (s SubscriptionStatus) String() string {
	return string(s)
}

func (s SubscriptionStatus) IsValid() bool {
	return ValidStatuses[s]
}

// GrantsAccess reports whether the status makes the row a resolution candidate.
// past_due counts: it is the payment grace period.
func (s SubscriptionStatus) GrantsAccess() bool {
	return s == StatusActive || s == StatusTrialing || s == StatusPastDue
}

func (s SubscriptionStatus) IsIncomplete() bool {
	return s == StatusIncomplete || s == StatusIncompleteExpired
}

func (s SubscriptionStatus) IsCanceled() bool {
	return s == StatusCanceled
}

// ParseStatus validates a raw status string.
func ParseStatus(raw string) (SubscriptionStatus, error) {
	s := SubscriptionStatus(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("invalid subscription status: %q", raw)
	}
	return s, nil
}
