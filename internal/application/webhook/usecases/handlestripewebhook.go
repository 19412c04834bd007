package usecases

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	billingUsecases "github.com/corates/billing/internal/application/billing/usecases"
	"github.com/corates/billing/internal/domain/billing"
	"github.com/corates/billing/internal/domain/ledger"
	"github.com/corates/billing/internal/domain/subscription"
	"github.com/corates/billing/internal/infrastructure/metrics"
	"github.com/corates/billing/internal/infrastructure/stripe"
	"github.com/corates/billing/internal/shared/biztime"
	"github.com/corates/billing/internal/shared/errors"
	"github.com/corates/billing/internal/shared/logger"
)

// EventVerifier authenticates a raw processor delivery.
type EventVerifier interface {
	VerifyEvent(payload []byte, sigHeader string) (stripe.Event, error)
}

// ErrUnlinkedEvent marks an event that cannot be tied to an organization.
var ErrUnlinkedEvent = stderrors.New("unlinked event")

type HandleStripeWebhookCommand struct {
	Payload   []byte
	Signature string
	RequestID string
	Route     string
}

// WebhookResult is what the ingress acknowledges to the processor.
type WebhookResult struct {
	HTTPStatus int           `json:"-"`
	EntryID    string        `json:"entryId,omitempty"`
	Status     ledger.Status `json:"status"`
	Duplicate  bool          `json:"duplicate"`
}

// HandleStripeWebhookUseCase records a delivery in the ledger, applies it to
// the subscription store once, and writes the outcome back to the entry.
type HandleStripeWebhookUseCase struct {
	ledger           *LedgerService
	subscriptionRepo subscription.Repository
	verifier         EventVerifier
	catalog          *billing.Catalog
	pricePlans       map[string]string
	notifier         *billingUsecases.ChangeNotifier
	clock            biztime.Clock
	logger           logger.Interface
}

func NewHandleStripeWebhookUseCase(
	ledgerService *LedgerService,
	subscriptionRepo subscription.Repository,
	verifier EventVerifier,
	catalog *billing.Catalog,
	pricePlans map[string]string,
	notifier *billingUsecases.ChangeNotifier,
	clock biztime.Clock,
	logger logger.Interface,
) *HandleStripeWebhookUseCase {
	return &HandleStripeWebhookUseCase{
		ledger:           ledgerService,
		subscriptionRepo: subscriptionRepo,
		verifier:         verifier,
		catalog:          catalog,
		pricePlans:       pricePlans,
		notifier:         notifier,
		clock:            clock,
		logger:           logger,
	}
}

// retryLease is how long a RECEIVED entry is left to the delivery that
// recorded it. A redelivery after that processes the event again.
const retryLease = time.Minute

// Execute returns an error only when the delivery should be retried: the
// ledger or the subscription store could not be written. Business failures
// are recorded on the entry and acknowledged with 200. An entry whose
// processing hit a storage error stays RECEIVED, so the processor's
// redelivery applies the event.
func (uc *HandleStripeWebhookUseCase) Execute(ctx context.Context, cmd HandleStripeWebhookCommand) (*WebhookResult, error) {
	start := time.Now()
	if len(cmd.Payload) == 0 {
		return nil, errors.NewBadRequestError("empty webhook body").WithField("body")
	}

	event, verifyErr := uc.verifier.VerifyEvent(cmd.Payload, cmd.Signature)
	if verifyErr != nil {
		return uc.recordUnverified(ctx, cmd, verifyErr)
	}
	defer func() {
		metrics.WebhookDuration.WithLabelValues(event.Type).Observe(time.Since(start).Seconds())
	}()

	entry, duplicate, err := uc.ledger.Record(ctx, ledger.Receipt{
		Payload:          cmd.Payload,
		ExternalEventID:  event.ID,
		Type:             event.Type,
		Verified:         true,
		SignaturePresent: true,
		Livemode:         event.Livemode,
		Links:            linksFor(event),
		RequestID:        cmd.RequestID,
		Route:            cmd.Route,
	})
	if err != nil {
		metrics.WebhookEventsTotal.WithLabelValues(event.Type, "error").Inc()
		uc.logger.Errorw("failed to record webhook event", "event_id", event.ID, "type", event.Type, "error", err)
		return nil, err
	}
	if duplicate {
		switch {
		case entry.Status() != ledger.StatusReceived:
			metrics.WebhookEventsTotal.WithLabelValues(event.Type, "duplicate").Inc()
			return duplicateResult(entry), nil
		case !uc.leaseExpired(entry):
			// Another delivery may still be applying it; a 2xx here would end
			// the processor's retries before that one is known to succeed.
			metrics.WebhookEventsTotal.WithLabelValues(event.Type, "in_progress").Inc()
			return nil, errors.NewConflictError("webhook event is still being processed")
		}
		uc.logger.Warnw("reprocessing webhook event left unfinished",
			"entry_id", entry.ID(),
			"event_id", event.ID,
			"received_at", entry.ReceivedAt(),
		)
	}

	links, procErr := uc.process(ctx, event)
	if procErr != nil && errors.IsStorageError(procErr) {
		metrics.WebhookEventsTotal.WithLabelValues(event.Type, "retry").Inc()
		uc.logger.Errorw("webhook event left for redelivery",
			"entry_id", entry.ID(),
			"event_id", event.ID,
			"type", event.Type,
			"error", procErr,
		)
		return nil, procErr
	}

	outcome := ledger.Processed(http.StatusOK, links)
	if procErr != nil {
		outcome = ledger.Failed(http.StatusOK, procErr, links)
	}

	saved, err := uc.ledger.Transition(ctx, entry.ID(), outcome)
	if err != nil {
		if errors.IsConflictError(err) {
			// A concurrent redelivery wrote the outcome first.
			if current, getErr := uc.ledger.Get(ctx, entry.ID()); getErr == nil {
				metrics.WebhookEventsTotal.WithLabelValues(event.Type, "duplicate").Inc()
				return duplicateResult(current), nil
			}
		}
		metrics.WebhookEventsTotal.WithLabelValues(event.Type, "error").Inc()
		uc.logger.Errorw("failed to write webhook outcome",
			"entry_id", entry.ID(),
			"event_id", event.ID,
			"outcome", outcome.Status,
			"error", err,
		)
		return nil, err
	}

	metrics.WebhookEventsTotal.WithLabelValues(event.Type, string(saved.Status())).Inc()
	if procErr != nil {
		uc.logger.Warnw("webhook event failed",
			"entry_id", saved.ID(),
			"event_id", event.ID,
			"type", event.Type,
			"org_id", saved.OrgID(),
			"error", procErr,
		)
	} else {
		uc.logger.Infow("webhook event processed",
			"entry_id", saved.ID(),
			"event_id", event.ID,
			"type", event.Type,
			"org_id", saved.OrgID(),
		)
	}
	return &WebhookResult{HTTPStatus: http.StatusOK, EntryID: saved.ID(), Status: saved.Status()}, nil
}

func (uc *HandleStripeWebhookUseCase) leaseExpired(e *ledger.Entry) bool {
	return uc.clock.Now().Sub(e.ReceivedAt()) >= retryLease
}

func duplicateResult(e *ledger.Entry) *WebhookResult {
	return &WebhookResult{HTTPStatus: http.StatusOK, EntryID: e.ID(), Status: e.Status(), Duplicate: true}
}

// recordUnverified stores the delivery as IGNORED_UNVERIFIED. Nothing in the
// body is trusted beyond its type.
func (uc *HandleStripeWebhookUseCase) recordUnverified(ctx context.Context, cmd HandleStripeWebhookCommand, verifyErr error) (*WebhookResult, error) {
	if stderrors.Is(verifyErr, stripe.ErrWebhookSecretMissing) {
		uc.logger.Errorw("webhook secret not configured, delivery recorded as unverified")
	} else {
		uc.logger.Warnw("webhook signature verification failed", "error", verifyErr, "request_id", cmd.RequestID)
	}

	peek := stripe.PeekEvent(cmd.Payload)
	entry, duplicate, err := uc.ledger.Record(ctx, ledger.Receipt{
		Payload:          cmd.Payload,
		Type:             peek.Type,
		Verified:         false,
		SignaturePresent: cmd.Signature != "",
		Livemode:         peek.Livemode,
		RequestID:        cmd.RequestID,
		Route:            cmd.Route,
	})
	if err != nil {
		metrics.WebhookEventsTotal.WithLabelValues(peek.Type, "error").Inc()
		return nil, err
	}
	metrics.WebhookEventsTotal.WithLabelValues(peek.Type, string(ledger.StatusIgnoredUnverified)).Inc()
	return &WebhookResult{HTTPStatus: http.StatusOK, EntryID: entry.ID(), Status: entry.Status(), Duplicate: duplicate}, nil
}

// process applies a verified event. Returned links fill the ledger entry even
// when processing fails.
func (uc *HandleStripeWebhookUseCase) process(ctx context.Context, event stripe.Event) (ledger.Links, error) {
	switch event.Type {
	case ledger.EventCheckoutSessionCompleted:
		return uc.handleCheckoutCompleted(ctx, event)
	case ledger.EventSubscriptionCreated, ledger.EventSubscriptionUpdated:
		return uc.handleSubscriptionUpsert(ctx, event)
	case ledger.EventSubscriptionDeleted:
		return uc.handleSubscriptionDeleted(ctx, event)
	default:
		return linksFor(event), nil
	}
}

// linksFor extracts identifiers for the ledger without failing on odd payloads.
func linksFor(event stripe.Event) ledger.Links {
	switch event.Type {
	case ledger.EventCheckoutSessionCompleted:
		if s, err := stripe.DecodeCheckoutSession(event.Object); err == nil {
			return ledger.Links{
				OrgID:                   s.OrgID(),
				ExternalCustomerRef:     s.Customer,
				ExternalSubscriptionRef: s.Subscription,
				ExternalCheckoutRef:     s.ID,
			}
		}
	case ledger.EventSubscriptionCreated, ledger.EventSubscriptionUpdated, ledger.EventSubscriptionDeleted:
		if s, err := stripe.DecodeSubscription(event.Object); err == nil {
			return ledger.Links{
				OrgID:                   s.OrgID(),
				ExternalCustomerRef:     s.Customer,
				ExternalSubscriptionRef: s.ID,
			}
		}
	}
	return ledger.Links{}
}

// findExisting looks a subscription up by processor refs. A miss is not an error.
func (uc *HandleStripeWebhookUseCase) findExisting(ctx context.Context, customerRef, subscriptionRef string) (*subscription.Subscription, error) {
	if customerRef == "" && subscriptionRef == "" {
		return nil, nil
	}
	sub, err := uc.subscriptionRepo.FindByExternalRefs(ctx, customerRef, subscriptionRef)
	if err != nil {
		if stderrors.Is(err, subscription.ErrSubscriptionNotFound) {
			return nil, nil
		}
		return nil, storageError(err, "subscription.find_by_external_refs")
	}
	return sub, nil
}

func (uc *HandleStripeWebhookUseCase) save(ctx context.Context, sub *subscription.Subscription, create bool) error {
	op := "subscription.update"
	var err error
	if create {
		op = "subscription.create"
		err = uc.subscriptionRepo.Create(ctx, sub)
	} else {
		err = uc.subscriptionRepo.Update(ctx, sub)
	}
	if err != nil {
		return storageError(err, op)
	}
	uc.notifier.Publish(billing.SubscriptionChanged(sub, billing.OriginWebhook, uc.clock.Now()))
	return nil
}
