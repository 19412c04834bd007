package models

import (
	"time"

	"github.com/corates/billing/internal/shared/constants"
)

// SubscriptionModel is the persistence shape of a subscription row.
// Rows are never deleted, so there is no DeletedAt column.
type SubscriptionModel struct {
	ID                      uint   `gorm:"primarykey"`
	SID                     string `gorm:"uniqueIndex;not null;size:50;comment:Stripe-style ID: sub_xxx"`
	OrgID                   string `gorm:"not null;size:64;index:idx_subscription_org_created,priority:1"`
	Plan                    string `gorm:"not null;size:64"`
	Status                  string `gorm:"not null;size:32;index:idx_subscription_status_created,priority:1"`
	PeriodStart             *time.Time
	PeriodEnd               *time.Time
	CancelAtPeriodEnd       bool      `gorm:"not null;default:false"`
	ExternalCustomerRef     *string   `gorm:"size:255;index:idx_subscription_customer"`
	ExternalSubscriptionRef *string   `gorm:"size:255;index:idx_subscription_external"`
	CreatedAt               time.Time `gorm:"index:idx_subscription_org_created,priority:2;index:idx_subscription_status_created,priority:2"`
	UpdatedAt               time.Time
	CanceledAt              *time.Time
	EndedAt                 *time.Time
	ExternalObservedAt      *time.Time
}

// TableName specifies the table name for GORM
func (SubscriptionModel) TableName() string {
	return constants.TableSubscriptions
}
