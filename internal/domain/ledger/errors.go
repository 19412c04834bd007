package ledger

import "errors"

var (
	ErrEntryNotFound     = errors.New("ledger entry not found")
	ErrEmptyPayload      = errors.New("event payload is empty")
	ErrInvalidStatus     = errors.New("invalid ledger status")
	ErrInvalidTransition = errors.New("invalid ledger status transition")
	ErrConcurrentOutcome = errors.New("ledger entry outcome already recorded")
)
