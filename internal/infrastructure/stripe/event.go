package stripe

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Event is the part of a processor event the ledger and handlers need.
type Event struct {
	ID       string
	Type     string
	Livemode bool
	Created  time.Time
	// Object is the raw data.object payload.
	Object json.RawMessage
}

type rawEvent struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Livemode bool   `json:"livemode"`
	Created  int64  `json:"created"`
	Data     struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// PeekEvent decodes an unverified body for recording only. It never fails;
// an unreadable body yields an empty Event.
func PeekEvent(payload []byte) Event {
	var raw rawEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Event{}
	}
	return raw.toEvent()
}

func (r rawEvent) toEvent() Event {
	e := Event{
		ID:       strings.TrimSpace(r.ID),
		Type:     strings.TrimSpace(r.Type),
		Livemode: r.Livemode,
		Object:   r.Data.Object,
	}
	if r.Created > 0 {
		e.Created = time.Unix(r.Created, 0).UTC()
	}
	return e
}

// CheckoutSession is the subset of checkout.session used for org linkage.
type CheckoutSession struct {
	ID                string            `json:"id"`
	Mode              string            `json:"mode"`
	Customer          string            `json:"customer"`
	Subscription      string            `json:"subscription"`
	ClientReferenceID string            `json:"client_reference_id"`
	Metadata          map[string]string `json:"metadata"`
}

// OrgID returns metadata.org_id, falling back to client_reference_id.
func (c CheckoutSession) OrgID() string {
	if v := strings.TrimSpace(c.Metadata["org_id"]); v != "" {
		return v
	}
	return strings.TrimSpace(c.ClientReferenceID)
}

type subscriptionItem struct {
	CurrentPeriodStart int64 `json:"current_period_start"`
	CurrentPeriodEnd   int64 `json:"current_period_end"`
	Price              struct {
		ID       string            `json:"id"`
		Metadata map[string]string `json:"metadata"`
	} `json:"price"`
}

// Subscription is the subset of a processor subscription object that drives
// the local row. Period bounds may sit on the object or on its first item
// depending on the API version that rendered the event.
type Subscription struct {
	ID                 string `json:"id"`
	Customer           string `json:"customer"`
	Status             string `json:"status"`
	CancelAtPeriodEnd  bool   `json:"cancel_at_period_end"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
	CanceledAt         int64  `json:"canceled_at"`
	EndedAt            int64  `json:"ended_at"`
	Items              struct {
		Data []subscriptionItem `json:"data"`
	} `json:"items"`
	Metadata map[string]string `json:"metadata"`
}

func (s Subscription) OrgID() string {
	return strings.TrimSpace(s.Metadata["org_id"])
}

// FirstPriceID returns the price ID from the first subscription item.
func (s Subscription) FirstPriceID() string {
	for _, item := range s.Items.Data {
		if priceID := strings.TrimSpace(item.Price.ID); priceID != "" {
			return priceID
		}
	}
	return ""
}

// PlanHint is an explicit plan id carried in subscription or price metadata.
func (s Subscription) PlanHint() string {
	if v := strings.TrimSpace(s.Metadata["plan_id"]); v != "" {
		return v
	}
	for _, item := range s.Items.Data {
		if v := strings.TrimSpace(item.Price.Metadata["plan_id"]); v != "" {
			return v
		}
	}
	return ""
}

func (s Subscription) PeriodStart() *time.Time {
	if s.CurrentPeriodStart > 0 {
		return unixPtr(s.CurrentPeriodStart)
	}
	if len(s.Items.Data) > 0 {
		return unixPtr(s.Items.Data[0].CurrentPeriodStart)
	}
	return nil
}

func (s Subscription) PeriodEnd() *time.Time {
	if s.CurrentPeriodEnd > 0 {
		return unixPtr(s.CurrentPeriodEnd)
	}
	if len(s.Items.Data) > 0 {
		return unixPtr(s.Items.Data[0].CurrentPeriodEnd)
	}
	return nil
}

func (s Subscription) CanceledAtTime() *time.Time { return unixPtr(s.CanceledAt) }
func (s Subscription) EndedAtTime() *time.Time { return unixPtr(s.EndedAt) }

func unixPtr(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

func DecodeCheckoutSession(raw json.RawMessage) (CheckoutSession, error) {
	var session CheckoutSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return CheckoutSession{}, fmt.Errorf("decode checkout.session: %w", err)
	}
	return session, nil
}

func DecodeSubscription(raw json.RawMessage) (Subscription, error) {
	var sub Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return Subscription{}, fmt.Errorf("decode subscription: %w", err)
	}
	if strings.TrimSpace(sub.ID) == "" {
		return Subscription{}, fmt.Errorf("decode subscription: missing id")
	}
	return sub, nil
}
