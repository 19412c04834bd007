package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/corates/billing/internal/shared/id"
)

// Status is the processing state of one inbound processor event.
type Status string

const (
	StatusReceived          Status = "RECEIVED"
	StatusProcessed         Status = "PROCESSED"
	StatusFailed            Status = "FAILED"
	StatusIgnoredUnverified Status = "IGNORED_UNVERIFIED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusReceived, StatusProcessed, StatusFailed, StatusIgnoredUnverified:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s != StatusReceived
}

// ParseStatus validates a raw status string; upper and lower case are accepted.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return s, nil
}

// Well-known processor event types the service reacts to.
const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventSubscriptionCreated      = "customer.subscription.created"
	EventSubscriptionUpdated      = "customer.subscription.updated"
	EventSubscriptionDeleted      = "customer.subscription.deleted"
)

// Links are the processor and org identifiers extracted from an event.
type Links struct {
	OrgID                   string
	ExternalCustomerRef     string
	ExternalSubscriptionRef string
	ExternalCheckoutRef     string
}

// merge fills empty fields of l from other.
func (l *Links) merge(other Links) {
	if l.OrgID == "" {
		l.OrgID = other.OrgID
	}
	if l.ExternalCustomerRef == "" {
		l.ExternalCustomerRef = other.ExternalCustomerRef
	}
	if l.ExternalSubscriptionRef == "" {
		l.ExternalSubscriptionRef = other.ExternalSubscriptionRef
	}
	if l.ExternalCheckoutRef == "" {
		l.ExternalCheckoutRef = other.ExternalCheckoutRef
	}
}

// Receipt describes one delivery as it arrived.
type Receipt struct {
	Payload          []byte
	ExternalEventID  string
	Type             string
	Verified         bool
	SignaturePresent bool
	Livemode         bool
	Links            Links
	RequestID        string
	Route            string
	ReceivedAt       time.Time
}

// Entry is the deduplicated record of one inbound event and its outcome.
type Entry struct {
	id               string
	externalEventID  string
	eventType        string
	status           Status
	httpStatus       *int
	errorMessage     string
	links            Links
	payloadHash      string
	signaturePresent bool
	livemode         bool
	receivedAt       time.Time
	processedAt      *time.Time
	requestID        string
	route            string
}

// HashPayload is the dedup key of a raw payload: hex SHA-256.
func HashPayload(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

const unverifiedHashPrefix = "unverified:"

// HashUnverifiedPayload keys a delivery that failed verification. It never
// equals HashPayload of any body, so unverified rows dedup only among
// themselves.
func HashUnverifiedPayload(payload []byte) string {
	h := sha256.New()
	h.Write([]byte(unverifiedHashPrefix))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// NewEntry records a receipt. Verified receipts start RECEIVED; unverified
// ones are IGNORED_UNVERIFIED from the start, never move, keep no event id
// and carry a hash outside the verified key space.
func NewEntry(r Receipt) (*Entry, error) {
	if len(r.Payload) == 0 {
		return nil, ErrEmptyPayload
	}
	status := StatusReceived
	eventID := strings.TrimSpace(r.ExternalEventID)
	payloadHash := HashPayload(r.Payload)
	if !r.Verified {
		status = StatusIgnoredUnverified
		// An unsigned body must not claim a key a signed delivery will need.
		eventID = ""
		payloadHash = HashUnverifiedPayload(r.Payload)
	}
	eventType := strings.TrimSpace(r.Type)
	if eventType == "" {
		eventType = "unknown"
	}
	return &Entry{
		id:               id.NewLedgerEntryID(),
		externalEventID:  eventID,
		eventType:        eventType,
		status:           status,
		links:            r.Links,
		payloadHash:      payloadHash,
		signaturePresent: r.SignaturePresent,
		livemode:         r.Livemode,
		receivedAt:       r.ReceivedAt.UTC(),
		requestID:        r.RequestID,
		route:            r.Route,
	}, nil
}

// Snapshot is the full persisted state of an entry.
type Snapshot struct {
	ID               string
	ExternalEventID  string
	Type             string
	Status           Status
	HTTPStatus       *int
	Error            string
	Links            Links
	PayloadHash      string
	SignaturePresent bool
	Livemode         bool
	ReceivedAt       time.Time
	ProcessedAt      *time.Time
	RequestID        string
	Route            string
}

// ReconstructEntry rebuilds an entry from persistence.
func ReconstructEntry(s Snapshot) (*Entry, error) {
	if s.ID == "" {
		return nil, fmt.Errorf("ledger entry ID cannot be empty")
	}
	if !s.Status.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, s.Status)
	}
	return &Entry{
		id:               s.ID,
		externalEventID:  s.ExternalEventID,
		eventType:        s.Type,
		status:           s.Status,
		httpStatus:       s.HTTPStatus,
		errorMessage:     s.Error,
		links:            s.Links,
		payloadHash:      s.PayloadHash,
		signaturePresent: s.SignaturePresent,
		livemode:         s.Livemode,
		receivedAt:       s.ReceivedAt,
		processedAt:      s.ProcessedAt,
		requestID:        s.RequestID,
		route:            s.Route,
	}, nil
}

func (e *Entry) ID() string { return e.id }
func (e *Entry) ExternalEventID() string { return e.externalEventID }
func (e *Entry) Type() string { return e.eventType }
func (e *Entry) Status() Status { return e.status }
func (e *Entry) HTTPStatus() *int { return e.httpStatus }
func (e *Entry) Error() string { return e.errorMessage }
func (e *Entry) Links() Links { return e.links }
func (e *Entry) OrgID() string { return e.links.OrgID }
func (e *Entry) PayloadHash() string { return e.payloadHash }
func (e *Entry) SignaturePresent() bool { return e.signaturePresent }
func (e *Entry) Livemode() bool { return e.livemode }
func (e *Entry) ReceivedAt() time.Time { return e.receivedAt }
func (e *Entry) ProcessedAt() *time.Time { return e.processedAt }
func (e *Entry) RequestID() string { return e.requestID }
func (e *Entry) Route() string { return e.route }

// AgeMinutes is the whole minutes since receipt.
func (e *Entry) AgeMinutes(now time.Time) int {
	d := now.Sub(e.receivedAt)
	if d <= 0 {
		return 0
	}
	return int(d / time.Minute)
}

// Outcome is the result of processing a RECEIVED entry.
type Outcome struct {
	Status     Status
	HTTPStatus int
	Error      string
	// Links discovered while processing; they only fill blanks.
	Links Links
}

// Processed builds a success outcome.
func Processed(httpStatus int, links Links) Outcome {
	return Outcome{Status: StatusProcessed, HTTPStatus: httpStatus, Links: links}
}

// Failed builds a business-failure outcome.
func Failed(httpStatus int, err error, links Links) Outcome {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Outcome{Status: StatusFailed, HTTPStatus: httpStatus, Error: msg, Links: links}
}

// Apply moves the entry RECEIVED -> PROCESSED|FAILED and stamps processedAt.
// Every other move is rejected.
func (e *Entry) Apply(o Outcome, now time.Time) error {
	if e.status != StatusReceived {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, e.status, o.Status)
	}
	if o.Status != StatusProcessed && o.Status != StatusFailed {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, e.status, o.Status)
	}
	now = now.UTC()
	code := o.HTTPStatus
	e.status = o.Status
	e.httpStatus = &code
	e.processedAt = &now
	if o.Status == StatusFailed {
		e.errorMessage = truncate(o.Error, maxErrorLength)
	}
	e.links.merge(o.Links)
	return nil
}

const maxErrorLength = 1000

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
