package subscription

import (
	"fmt"
	"strings"
	"time"

	vo "github.com/corates/billing/internal/domain/subscription/valueobjects"
	"github.com/corates/billing/internal/shared/biztime"
	"github.com/corates/billing/internal/shared/id"
)

// Subscription is a paid subscription record owned by an organization. Rows
// are never removed; cancellation marks the row.
type Subscription struct {
	id                      string
	orgID                   string
	planID                  string
	status                  vo.SubscriptionStatus
	periodStart             *time.Time
	periodEnd               *time.Time
	cancelAtPeriodEnd       bool
	externalCustomerRef     string
	externalSubscriptionRef string
	createdAt               time.Time
	updatedAt               time.Time
	canceledAt              *time.Time
	endedAt                 *time.Time
	externalObservedAt      *time.Time
}

// NewParams carries the inputs for creating a subscription.
type NewParams struct {
	OrgID                   string
	PlanID                  string
	Status                  vo.SubscriptionStatus
	PeriodStart             *time.Time
	PeriodEnd               *time.Time
	CancelAtPeriodEnd       bool
	ExternalCustomerRef     string
	ExternalSubscriptionRef string
}

// NewSubscription validates params and builds a new subscription stamped at now.
func NewSubscription(p NewParams, now time.Time) (*Subscription, error) {
	orgID := strings.TrimSpace(p.OrgID)
	if orgID == "" {
		return nil, ErrOrgRequired
	}
	if strings.TrimSpace(p.PlanID) == "" {
		return nil, ErrPlanRequired
	}
	if !p.Status.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, p.Status)
	}
	if err := validatePeriod(p.PeriodStart, p.PeriodEnd); err != nil {
		return nil, err
	}

	now = now.UTC()
	s := &Subscription{
		id:                      id.NewSubscriptionID(),
		orgID:                   orgID,
		planID:                  strings.TrimSpace(p.PlanID),
		status:                  p.Status,
		periodStart:             biztime.ToUTCPtr(p.PeriodStart),
		periodEnd:               biztime.ToUTCPtr(p.PeriodEnd),
		cancelAtPeriodEnd:       p.CancelAtPeriodEnd,
		externalCustomerRef:     strings.TrimSpace(p.ExternalCustomerRef),
		externalSubscriptionRef: strings.TrimSpace(p.ExternalSubscriptionRef),
		createdAt:               now,
		updatedAt:               now,
	}
	if p.Status.IsCanceled() {
		s.canceledAt = &now
		s.endedAt = &now
	}
	return s, nil
}

// Snapshot is the full persisted state of a subscription.
type Snapshot struct {
	ID                      string
	OrgID                   string
	PlanID                  string
	Status                  vo.SubscriptionStatus
	PeriodStart             *time.Time
	PeriodEnd               *time.Time
	CancelAtPeriodEnd       bool
	ExternalCustomerRef     string
	ExternalSubscriptionRef string
	CreatedAt               time.Time
	UpdatedAt               time.Time
	CanceledAt              *time.Time
	EndedAt                 *time.Time
	ExternalObservedAt      *time.Time
}

// ReconstructSubscription rebuilds a subscription from persistence.
func ReconstructSubscription(s Snapshot) (*Subscription, error) {
	if s.ID == "" {
		return nil, fmt.Errorf("subscription ID cannot be empty")
	}
	if s.OrgID == "" {
		return nil, ErrOrgRequired
	}
	if !s.Status.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, s.Status)
	}
	return &Subscription{
		id:                      s.ID,
		orgID:                   s.OrgID,
		planID:                  s.PlanID,
		status:                  s.Status,
		periodStart:             s.PeriodStart,
		periodEnd:               s.PeriodEnd,
		cancelAtPeriodEnd:       s.CancelAtPeriodEnd,
		externalCustomerRef:     s.ExternalCustomerRef,
		externalSubscriptionRef: s.ExternalSubscriptionRef,
		createdAt:               s.CreatedAt,
		updatedAt:               s.UpdatedAt,
		canceledAt:              s.CanceledAt,
		endedAt:                 s.EndedAt,
		externalObservedAt:      s.ExternalObservedAt,
	}, nil
}

func (s *Subscription) ID() string { return s.id }
func (s *Subscription) OrgID() string { return s.orgID }
func (s *Subscription) PlanID() string { return s.planID }
func (s *Subscription) Status() vo.SubscriptionStatus { return s.status }
func (s *Subscription) PeriodStart() *time.Time { return s.periodStart }
func (s *Subscription) PeriodEnd() *time.Time { return s.periodEnd }
func (s *Subscription) CancelAtPeriodEnd() bool { return s.cancelAtPeriodEnd }
func (s *Subscription) ExternalCustomerRef() string { return s.externalCustomerRef }
func (s *Subscription) ExternalSubscriptionRef() string { return s.externalSubscriptionRef }
func (s *Subscription) CreatedAt() time.Time { return s.createdAt }
func (s *Subscription) UpdatedAt() time.Time { return s.updatedAt }
func (s *Subscription) CanceledAt() *time.Time { return s.canceledAt }
func (s *Subscription) EndedAt() *time.Time { return s.endedAt }
func (s *Subscription) ExternalObservedAt() *time.Time { return s.externalObservedAt }

// AgeMinutes is the whole minutes since the row was created.
func (s *Subscription) AgeMinutes(now time.Time) int {
	return biztime.MinutesBetween(s.createdAt, now)
}

// PeriodLapsed reports whether the current period ended before now.
func (s *Subscription) PeriodLapsed(now time.Time) bool {
	return s.periodEnd != nil && s.periodEnd.Before(now)
}

// MatchesExternal reports whether either processor reference matches.
func (s *Subscription) MatchesExternal(customerRef, subscriptionRef string) bool {
	if subscriptionRef != "" && s.externalSubscriptionRef == subscriptionRef {
		return true
	}
	return customerRef != "" && s.externalCustomerRef == customerRef
}

// ExternalState is the processor's view of a subscription at ObservedAt. Every
// field is an absolute value and states older than the last applied one are
// skipped, so redelivery and out-of-order delivery converge.
type ExternalState struct {
	ObservedAt              time.Time
	PlanID                  string
	Status                  vo.SubscriptionStatus
	PeriodStart             *time.Time
	PeriodEnd               *time.Time
	CancelAtPeriodEnd       bool
	CanceledAt              *time.Time
	EndedAt                 *time.Time
	ExternalCustomerRef     string
	ExternalSubscriptionRef string
}

// ApplyExternalState overwrites processor-owned fields. Empty plan and
// reference values keep the current ones. Returns whether anything changed.
func (s *Subscription) ApplyExternalState(st ExternalState, now time.Time) (bool, error) {
	if !st.Status.IsValid() {
		return false, fmt.Errorf("%w: %q", ErrInvalidStatus, st.Status)
	}
	if err := validatePeriod(st.PeriodStart, st.PeriodEnd); err != nil {
		return false, err
	}
	if s.IsStale(st.ObservedAt) {
		return false, nil
	}

	before := s.snapshotComparable()

	s.status = st.Status
	if st.PlanID != "" {
		s.planID = st.PlanID
	}
	if st.PeriodStart != nil {
		s.periodStart = biztime.ToUTCPtr(st.PeriodStart)
	}
	if st.PeriodEnd != nil {
		s.periodEnd = biztime.ToUTCPtr(st.PeriodEnd)
	}
	s.cancelAtPeriodEnd = st.CancelAtPeriodEnd
	if st.ExternalCustomerRef != "" {
		s.externalCustomerRef = st.ExternalCustomerRef
	}
	if st.ExternalSubscriptionRef != "" {
		s.externalSubscriptionRef = st.ExternalSubscriptionRef
	}
	if st.CanceledAt != nil {
		s.canceledAt = biztime.ToUTCPtr(st.CanceledAt)
	}
	if st.EndedAt != nil {
		s.endedAt = biztime.ToUTCPtr(st.EndedAt)
	}
	if s.status.IsCanceled() && s.canceledAt == nil {
		t := now.UTC()
		s.canceledAt = &t
	}

	if !st.ObservedAt.IsZero() {
		observed := st.ObservedAt.UTC()
		s.externalObservedAt = &observed
	}

	changed := before != s.snapshotComparable()
	if changed {
		s.updatedAt = now.UTC()
	}
	return changed, nil
}

// IsStale reports whether a processor state observed at t predates the last
// one applied.
func (s *Subscription) IsStale(t time.Time) bool {
	return !t.IsZero() && s.externalObservedAt != nil && t.Before(*s.externalObservedAt)
}

// UpdateParams holds an admin edit. Nil fields are left unchanged.
type UpdateParams struct {
	PlanID            *string
	Status            *vo.SubscriptionStatus
	PeriodStart       *time.Time
	PeriodEnd         *time.Time
	CancelAtPeriodEnd *bool
}

// Update applies an admin edit.
func (s *Subscription) Update(p UpdateParams, now time.Time) error {
	start, end := s.periodStart, s.periodEnd
	if p.PeriodStart != nil {
		start = p.PeriodStart
	}
	if p.PeriodEnd != nil {
		end = p.PeriodEnd
	}
	if err := validatePeriod(start, end); err != nil {
		return err
	}
	if p.Status != nil && !p.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, *p.Status)
	}
	if p.PlanID != nil && strings.TrimSpace(*p.PlanID) == "" {
		return ErrPlanRequired
	}

	now = now.UTC()
	if p.PlanID != nil {
		s.planID = strings.TrimSpace(*p.PlanID)
	}
	if p.Status != nil {
		s.status = *p.Status
		if s.status.IsCanceled() && s.canceledAt == nil {
			s.canceledAt = &now
		}
	}
	s.periodStart = biztime.ToUTCPtr(start)
	s.periodEnd = biztime.ToUTCPtr(end)
	if p.CancelAtPeriodEnd != nil {
		s.cancelAtPeriodEnd = *p.CancelAtPeriodEnd
	}
	s.updatedAt = now
	return nil
}

// Cancel marks the subscription canceled and ended at now. Canceling an
// already canceled subscription is a no-op and returns false.
func (s *Subscription) Cancel(now time.Time) bool {
	if s.status.IsCanceled() {
		return false
	}
	now = now.UTC()
	s.status = vo.StatusCanceled
	s.canceledAt = &now
	if s.endedAt == nil {
		s.endedAt = &now
	}
	s.cancelAtPeriodEnd = false
	s.updatedAt = now
	return true
}

type stateKey struct {
	planID            string
	customerRef       string
	subscriptionRef   string
	status            vo.SubscriptionStatus
	periodStart       int64
	periodEnd         int64
	canceledAt        int64
	endedAt           int64
	cancelAtPeriodEnd bool
}

func (s *Subscription) snapshotComparable() stateKey {
	return stateKey{
		planID:            s.planID,
		customerRef:       s.externalCustomerRef,
		subscriptionRef:   s.externalSubscriptionRef,
		status:            s.status,
		periodStart:       unixOrZero(s.periodStart),
		periodEnd:         unixOrZero(s.periodEnd),
		canceledAt:        unixOrZero(s.canceledAt),
		endedAt:           unixOrZero(s.endedAt),
		cancelAtPeriodEnd: s.cancelAtPeriodEnd,
	}
}

func unixOrZero(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.UnixNano()
}

func validatePeriod(start, end *time.Time) error {
	if start != nil && end != nil && !end.After(*start) {
		return ErrInvalidPeriod
	}
	return nil
}
