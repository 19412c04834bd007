package billing

import (
	"fmt"

	"github.com/corates/billing/internal/shared/errors"
)

// Denial is the closed set of reasons an access check can fail. The unexported
// marker keeps the set to the variants declared here.
type Denial interface {
	Reason() string
	Message() string
	isDenial()
}

// QuotaExceeded is returned when used+requested would pass the plan limit.
type QuotaExceeded struct {
	QuotaKey  string
	Used      int64
	Limit     int64
	Requested int64
}

func (QuotaExceeded) isDenial() {}

func (QuotaExceeded) Reason() string { return errors.ReasonQuotaExceeded }

func (d QuotaExceeded) Message() string {
	return fmt.Sprintf("quota %s exceeded: %d used of %d, %d requested", d.QuotaKey, d.Used, d.Limit, d.Requested)
}

// EntitlementMissing is returned when the plan lacks an entitlement.
type EntitlementMissing struct {
	Entitlement string
}

func (EntitlementMissing) isDenial() {}

func (EntitlementMissing) Reason() string { return errors.ReasonEntitlementForbidden }

func (d EntitlementMissing) Message() string {
	return fmt.Sprintf("plan does not include %s", d.Entitlement)
}

// AccessDeniedError carries a Denial through error returns.
type AccessDeniedError struct {
	Denial Denial
	PlanID string
	Source Source
}

func (e *AccessDeniedError) Error() string {
	return e.Denial.Message()
}

// AppError converts the denial to the transport error with its structured details.
func (e *AccessDeniedError) AppError() *errors.AppError {
	switch d := e.Denial.(type) {
	case QuotaExceeded:
		return errors.NewQuotaExceededError(d.QuotaKey, d.Used, d.Limit, d.Requested)
	case EntitlementMissing:
		return errors.NewEntitlementForbiddenError(d.Entitlement)
	default:
		return errors.NewForbiddenError(e.Denial.Message())
	}
}

// As lets errors.As on a wrapped denial yield the transport error.
func (e *AccessDeniedError) As(target interface{}) bool {
	if t, ok := target.(**errors.AppError); ok {
		*t = e.AppError()
		return true
	}
	return false
}
