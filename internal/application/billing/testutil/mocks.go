// Package testutil provides in-memory stores and recording doubles for testing
// the billing application layer.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/corates/billing/internal/domain/billing"
	"github.com/corates/billing/internal/domain/grant"
	"github.com/corates/billing/internal/domain/ledger"
	"github.com/corates/billing/internal/domain/subscription"
	vo "github.com/corates/billing/internal/domain/subscription/valueobjects"
	"github.com/corates/billing/internal/shared/logger"
)

// MockSubscriptionRepository is an in-memory subscription.Repository. Entities
// are copied on the way in and out so callers never share state with the store.
type MockSubscriptionRepository struct {
	mu   sync.RWMutex
	rows map[string]*subscription.Subscription

	// Error injection for testing
	CreateErr error
	UpdateErr error
	ListErr   error

	Creates int
	Updates int
}

// NewMockSubscriptionRepository creates an empty repository.
func NewMockSubscriptionRepository() *MockSubscriptionRepository {
	return &MockSubscriptionRepository{rows: make(map[string]*subscription.Subscription)}
}

var _ subscription.Repository = (*MockSubscriptionRepository)(nil)

func (m *MockSubscriptionRepository) Create(_ context.Context, s *subscription.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.rows[s.ID()] = CloneSubscription(s)
	m.Creates++
	return nil
}

func (m *MockSubscriptionRepository) Update(_ context.Context, s *subscription.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	if _, ok := m.rows[s.ID()]; !ok {
		return subscription.ErrSubscriptionNotFound
	}
	m.rows[s.ID()] = CloneSubscription(s)
	m.Updates++
	return nil
}

func (m *MockSubscriptionRepository) GetByID(_ context.Context, id string) (*subscription.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.rows[id]
	if !ok {
		return nil, subscription.ErrSubscriptionNotFound
	}
	return CloneSubscription(s), nil
}

func (m *MockSubscriptionRepository) ListByOrg(_ context.Context, orgID string) ([]*subscription.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return m.filter(func(s *subscription.Subscription) bool { return s.OrgID() == orgID }, true), nil
}

func (m *MockSubscriptionRepository) FindByExternalRefs(_ context.Context, customerRef, subscriptionRef string) (*subscription.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if subscriptionRef != "" {
		if rows := m.filter(func(s *subscription.Subscription) bool {
			return s.ExternalSubscriptionRef() == subscriptionRef
		}, true); len(rows) > 0 {
			return rows[0], nil
		}
	}
	if customerRef != "" {
		if rows := m.filter(func(s *subscription.Subscription) bool {
			return s.ExternalCustomerRef() == customerRef &&
				s.Status() == vo.StatusIncomplete &&
				s.ExternalSubscriptionRef() == ""
		}, true); len(rows) > 0 {
			return rows[0], nil
		}
	}
	return nil, subscription.ErrSubscriptionNotFound
}

func (m *MockSubscriptionRepository) ExistsByExternalRefs(_ context.Context, customerRef, subscriptionRef string) (bool, error) {
	if customerRef == "" && subscriptionRef == "" {
		return false, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := m.filter(func(s *subscription.Subscription) bool {
		return (customerRef != "" && s.ExternalCustomerRef() == customerRef) ||
			(subscriptionRef != "" && s.ExternalSubscriptionRef() == subscriptionRef)
	}, false)
	return len(rows) > 0, nil
}

func (m *MockSubscriptionRepository) ListByStatuses(_ context.Context, statuses []vo.SubscriptionStatus, limit int) ([]*subscription.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	want := make(map[vo.SubscriptionStatus]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}
	rows := m.filter(func(s *subscription.Subscription) bool { return want[s.Status()] }, false)
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// All returns every stored row, newest first.
func (m *MockSubscriptionRepository) All() []*subscription.Subscription {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.filter(func(*subscription.Subscription) bool { return true }, true)
}

func (m *MockSubscriptionRepository) filter(keep func(*subscription.Subscription) bool, newestFirst bool) []*subscription.Subscription {
	out := make([]*subscription.Subscription, 0)
	for _, s := range m.rows {
		if keep(s) {
			out = append(out, CloneSubscription(s))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.CreatedAt().Equal(b.CreatedAt()) {
			if newestFirst {
				return a.CreatedAt().After(b.CreatedAt())
			}
			return a.CreatedAt().Before(b.CreatedAt())
		}
		if newestFirst {
			return a.ID() > b.ID()
		}
		return a.ID() < b.ID()
	})
	return out
}

// CloneSubscription deep-copies s through its snapshot.
func CloneSubscription(s *subscription.Subscription) *subscription.Subscription {
	c, _ := subscription.ReconstructSubscription(subscription.Snapshot{
		ID:                      s.ID(),
		OrgID:                   s.OrgID(),
		PlanID:                  s.PlanID(),
		Status:                  s.Status(),
		PeriodStart:             copyTime(s.PeriodStart()),
		PeriodEnd:               copyTime(s.PeriodEnd()),
		CancelAtPeriodEnd:       s.CancelAtPeriodEnd(),
		ExternalCustomerRef:     s.ExternalCustomerRef(),
		ExternalSubscriptionRef: s.ExternalSubscriptionRef(),
		CreatedAt:               s.CreatedAt(),
		UpdatedAt:               s.UpdatedAt(),
		CanceledAt:              copyTime(s.CanceledAt()),
		EndedAt:                 copyTime(s.EndedAt()),
		ExternalObservedAt:      copyTime(s.ExternalObservedAt()),
	})
	return c
}

// MockGrantRepository is an in-memory grant.Repository that enforces the
// one-trial-per-org and live single_project keys like the SQL store does.
type MockGrantRepository struct {
	mu        sync.RWMutex
	rows      map[string]*grant.Grant
	trialKeys map[string]bool

	CreateErr error
	ListErr   error
}

func NewMockGrantRepository() *MockGrantRepository {
	return &MockGrantRepository{
		rows:      make(map[string]*grant.Grant),
		trialKeys: make(map[string]bool),
	}
}

var _ grant.Repository = (*MockGrantRepository)(nil)

func (m *MockGrantRepository) Create(_ context.Context, g *grant.Grant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	if key := g.TrialKey(); key != nil {
		if m.trialKeys[*key] {
			return grant.ErrTrialAlreadyIssued
		}
		m.trialKeys[*key] = true
	}
	if key := g.SingleProjectKey(); key != nil {
		for _, other := range m.rows {
			if k := other.SingleProjectKey(); k != nil && *k == *key {
				return grant.ErrSingleProjectHeld
			}
		}
	}
	m.rows[g.ID()] = CloneGrant(g)
	return nil
}

func (m *MockGrantRepository) Update(_ context.Context, g *grant.Grant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[g.ID()]; !ok {
		return grant.ErrGrantNotFound
	}
	m.rows[g.ID()] = CloneGrant(g)
	return nil
}

func (m *MockGrantRepository) GetByID(_ context.Context, id string) (*grant.Grant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.rows[id]
	if !ok {
		return nil, grant.ErrGrantNotFound
	}
	return CloneGrant(g), nil
}

func (m *MockGrantRepository) ListByOrg(_ context.Context, orgID string) ([]*grant.Grant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	out := make([]*grant.Grant, 0)
	for _, g := range m.rows {
		if g.OrgID() == orgID {
			out = append(out, CloneGrant(g))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt().Equal(out[j].CreatedAt()) {
			return out[i].CreatedAt().After(out[j].CreatedAt())
		}
		return out[i].ID() > out[j].ID()
	})
	return out, nil
}

func (m *MockGrantRepository) FindActiveByType(_ context.Context, orgID string, t grant.Type) (*grant.Grant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *grant.Grant
	for _, g := range m.rows {
		if g.OrgID() != orgID || g.Type() != t || g.IsRevoked() {
			continue
		}
		if best == nil || g.ExpiresAt().After(best.ExpiresAt()) {
			best = g
		}
	}
	if best == nil {
		return nil, grant.ErrGrantNotFound
	}
	return CloneGrant(best), nil
}

func (m *MockGrantRepository) ExistsAnyOfType(_ context.Context, orgID string, t grant.Type) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, g := range m.rows {
		if g.OrgID() == orgID && g.Type() == t {
			return true, nil
		}
	}
	return false, nil
}

// Count returns how many grants the org has, revoked ones included.
func (m *MockGrantRepository) Count(orgID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, g := range m.rows {
		if g.OrgID() == orgID {
			n++
		}
	}
	return n
}

// CloneGrant deep-copies g through its snapshot.
func CloneGrant(g *grant.Grant) *grant.Grant {
	meta := make(map[string]interface{}, len(g.Metadata()))
	for k, v := range g.Metadata() {
		meta[k] = v
	}
	c, _ := grant.ReconstructGrant(grant.Snapshot{
		ID:        g.ID(),
		OrgID:     g.OrgID(),
		Type:      g.Type(),
		State:     g.State(),
		StartsAt:  g.StartsAt(),
		ExpiresAt: g.ExpiresAt(),
		CreatedAt: g.CreatedAt(),
		UpdatedAt: g.UpdatedAt(),
		RevokedAt: copyTime(g.RevokedAt()),
		Metadata:  meta,
	})
	return c
}

// MockLedgerRepository is an in-memory ledger.Repository with the same dedup
// and conditional-outcome rules as the SQL store.
type MockLedgerRepository struct {
	mu    sync.RWMutex
	rows  map[string]*ledger.Entry
	order []string

	InsertErr  error
	OutcomeErr error
	ListErr    error
}

func NewMockLedgerRepository() *MockLedgerRepository {
	return &MockLedgerRepository{rows: make(map[string]*ledger.Entry)}
}

var _ ledger.Repository = (*MockLedgerRepository)(nil)

func (m *MockLedgerRepository) InsertIfAbsent(_ context.Context, e *ledger.Entry) (*ledger.Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertErr != nil {
		return nil, false, m.InsertErr
	}
	for _, sid := range m.order {
		existing := m.rows[sid]
		if existing.PayloadHash() == e.PayloadHash() ||
			(e.ExternalEventID() != "" && existing.ExternalEventID() == e.ExternalEventID()) {
			return CloneEntry(existing), false, nil
		}
	}
	m.rows[e.ID()] = CloneEntry(e)
	m.order = append(m.order, e.ID())
	return e, true, nil
}

func (m *MockLedgerRepository) SaveOutcome(_ context.Context, e *ledger.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.OutcomeErr != nil {
		return m.OutcomeErr
	}
	if e.Status() == ledger.StatusReceived || e.ProcessedAt() == nil {
		return ledger.ErrInvalidTransition
	}
	stored, ok := m.rows[e.ID()]
	if !ok {
		return ledger.ErrEntryNotFound
	}
	if stored.Status() != ledger.StatusReceived {
		return ledger.ErrConcurrentOutcome
	}
	m.rows[e.ID()] = CloneEntry(e)
	return nil
}

func (m *MockLedgerRepository) GetByID(_ context.Context, id string) (*ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.rows[id]
	if !ok {
		return nil, ledger.ErrEntryNotFound
	}
	return CloneEntry(e), nil
}

func (m *MockLedgerRepository) ListByOrg(_ context.Context, orgID string, limit int) ([]*ledger.Entry, error) {
	return m.list(limit, true, func(e *ledger.Entry) bool { return e.OrgID() == orgID })
}

func (m *MockLedgerRepository) ListByStatusAndType(_ context.Context, f ledger.Filter) ([]*ledger.Entry, error) {
	return m.list(f.Limit, true, func(e *ledger.Entry) bool {
		return (f.Status == "" || e.Status() == f.Status) && (f.Type == "" || e.Type() == f.Type)
	})
}

func (m *MockLedgerRepository) CountByOrgAndStatus(_ context.Context, orgID string, status ledger.Status) (int64, error) {
	rows, err := m.list(0, false, func(e *ledger.Entry) bool { return e.OrgID() == orgID && e.Status() == status })
	return int64(len(rows)), err
}

func (m *MockLedgerRepository) ListReceivedBefore(_ context.Context, cutoff time.Time, limit int) ([]*ledger.Entry, error) {
	return m.list(limit, false, func(e *ledger.Entry) bool {
		return e.Status() == ledger.StatusReceived && e.ProcessedAt() == nil && e.ReceivedAt().Before(cutoff)
	})
}

func (m *MockLedgerRepository) ListProcessedByTypeBefore(_ context.Context, eventType string, cutoff time.Time, limit int) ([]*ledger.Entry, error) {
	return m.list(limit, false, func(e *ledger.Entry) bool {
		return e.Status() == ledger.StatusProcessed && e.Type() == eventType && e.ReceivedAt().Before(cutoff)
	})
}

func (m *MockLedgerRepository) CountStatusByOrg(_ context.Context, status ledger.Status, atLeast int64, limit int) (map[string]int64, error) {
	rows, err := m.list(0, false, func(e *ledger.Entry) bool { return e.Status() == status && e.OrgID() != "" })
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64)
	for _, e := range rows {
		counts[e.OrgID()]++
	}
	out := make(map[string]int64)
	for org, n := range counts {
		if n >= atLeast && (limit <= 0 || len(out) < limit) {
			out[org] = n
		}
	}
	return out, nil
}

// Seed stores e as-is, bypassing dedup. Used to set up scanner fixtures.
func (m *MockLedgerRepository) Seed(e *ledger.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[e.ID()] = CloneEntry(e)
	m.order = append(m.order, e.ID())
}

// All returns every entry in insertion order.
func (m *MockLedgerRepository) All() []*ledger.Entry {
	rows, _ := m.list(0, false, func(*ledger.Entry) bool { return true })
	return rows
}

func (m *MockLedgerRepository) list(limit int, newestFirst bool, keep func(*ledger.Entry) bool) ([]*ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	out := make([]*ledger.Entry, 0)
	for _, sid := range m.order {
		if e := m.rows[sid]; keep(e) {
			out = append(out, CloneEntry(e))
		}
	}
	if newestFirst {
		sort.SliceStable(out, func(i, j int) bool { return out[i].ReceivedAt().After(out[j].ReceivedAt()) })
	} else {
		sort.SliceStable(out, func(i, j int) bool { return out[i].ReceivedAt().Before(out[j].ReceivedAt()) })
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CloneEntry deep-copies e through its snapshot.
func CloneEntry(e *ledger.Entry) *ledger.Entry {
	var httpStatus *int
	if e.HTTPStatus() != nil {
		v := *e.HTTPStatus()
		httpStatus = &v
	}
	c, _ := ledger.ReconstructEntry(ledger.Snapshot{
		ID:               e.ID(),
		ExternalEventID:  e.ExternalEventID(),
		Type:             e.Type(),
		Status:           e.Status(),
		HTTPStatus:       httpStatus,
		Error:            e.Error(),
		Links:            e.Links(),
		PayloadHash:      e.PayloadHash(),
		SignaturePresent: e.SignaturePresent(),
		Livemode:         e.Livemode(),
		ReceivedAt:       e.ReceivedAt(),
		ProcessedAt:      copyTime(e.ProcessedAt()),
		RequestID:        e.RequestID(),
		Route:            e.Route(),
	})
	return c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// MockTxRunner runs fn inline.
type MockTxRunner struct {
	Calls int
}

func (m *MockTxRunner) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.Calls++
	return fn(ctx)
}

// RecordingSink collects change events and signals each delivery on Delivered.
type RecordingSink struct {
	mu        sync.Mutex
	events    []billing.ChangeEvent
	Err       error
	Delivered chan billing.ChangeEvent
}

func NewRecordingSink() *RecordingSink {
	return &RecordingSink{Delivered: make(chan billing.ChangeEvent, 16)}
}

func (s *RecordingSink) Notify(_ context.Context, event billing.ChangeEvent) error {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
	select {
	case s.Delivered <- event:
	default:
	}
	return s.Err
}

// Events returns the events received so far.
func (s *RecordingSink) Events() []billing.ChangeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]billing.ChangeEvent(nil), s.events...)
}

// Await waits for the next delivery or gives up after timeout.
func (s *RecordingSink) Await(timeout time.Duration) (billing.ChangeEvent, bool) {
	select {
	case e := <-s.Delivered:
		return e, true
	case <-time.After(timeout):
		return billing.ChangeEvent{}, false
	}
}

// MockLogger is a mock implementation of logger.Interface for testing.
type MockLogger struct {
	mu      sync.RWMutex
	entries []LogEntry
}

// LogEntry records a log call.
type LogEntry struct {
	Level   string
	Message string
	Fields  map[string]interface{}
}

func NewMockLogger() *MockLogger {
	return &MockLogger{entries: make([]LogEntry, 0)}
}

func (m *MockLogger) With(args ...any) logger.Interface   { return m }
func (m *MockLogger) Named(name string) logger.Interface { return m }

func (m *MockLogger) Debugw(msg string, keysAndValues ...interface{}) {
	m.log("DEBUG", msg, keysAndValues...)
}

func (m *MockLogger) Infow(msg string, keysAndValues ...interface{}) {
	m.log("INFO", msg, keysAndValues...)
}

func (m *MockLogger) Warnw(msg string, keysAndValues ...interface{}) {
	m.log("WARN", msg, keysAndValues...)
}

func (m *MockLogger) Errorw(msg string, keysAndValues ...interface{}) {
	m.log("ERROR", msg, keysAndValues...)
}

func (m *MockLogger) log(level, msg string, fields ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := LogEntry{Level: level, Message: msg, Fields: make(map[string]interface{})}
	for i := 0; i < len(fields)-1; i += 2 {
		if key, ok := fields[i].(string); ok {
			entry.Fields[key] = fields[i+1]
		}
	}
	m.entries = append(m.entries, entry)
}

// GetEntries returns all logged entries.
func (m *MockLogger) GetEntries() []LogEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]LogEntry(nil), m.entries...)
}

// HasMessage reports whether any entry at level carries msg.
func (m *MockLogger) HasMessage(level, msg string) bool {
	for _, e := range m.GetEntries() {
		if e.Level == level && e.Message == msg {
			return true
		}
	}
	return false
}
