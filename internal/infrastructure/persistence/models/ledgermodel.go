package models

import (
	"time"

	"github.com/corates/billing/internal/shared/constants"
)

// LedgerEntryModel is one row of the processor event ledger. PayloadHash and
// ExternalEventID are the dedup keys; a NULL external id never collides.
type LedgerEntryModel struct {
	ID                      uint    `gorm:"primarykey"`
	SID                     string  `gorm:"uniqueIndex;not null;size:50;comment:Stripe-style ID: whl_xxx"`
	ExternalEventID         *string `gorm:"uniqueIndex;size:255"`
	Type                    string  `gorm:"not null;size:128;index:idx_ledger_status_type,priority:2"`
	Status                  string  `gorm:"not null;size:32;index:idx_ledger_status_type,priority:1;index:idx_ledger_org_status,priority:2"`
	HTTPStatus              *int
	Error                   *string   `gorm:"type:text"`
	OrgID                   *string   `gorm:"size:64;index:idx_ledger_org_status,priority:1"`
	ExternalCustomerRef     *string   `gorm:"size:255"`
	ExternalSubscriptionRef *string   `gorm:"size:255"`
	ExternalCheckoutRef     *string   `gorm:"size:255"`
	PayloadHash             string    `gorm:"uniqueIndex;not null;size:64"`
	SignaturePresent        bool      `gorm:"not null;default:false"`
	Livemode                bool      `gorm:"not null;default:false"`
	ReceivedAt              time.Time `gorm:"not null;index:idx_ledger_received"`
	ProcessedAt             *time.Time
	RequestID               *string `gorm:"size:64"`
	Route                   *string `gorm:"size:255"`
}

// TableName specifies the table name for GORM
func (LedgerEntryModel) TableName() string {
	return constants.TableLedger
}
