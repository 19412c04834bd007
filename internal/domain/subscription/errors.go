package subscription

import (
	"errors"
)

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrOrgRequired          = errors.New("organization ID is required")
	ErrPlanRequired         = errors.New("plan ID is required")
	ErrInvalidStatus        = errors.New("invalid subscription status")
	ErrInvalidPeriod        = errors.New("period end must be after period start")
)
