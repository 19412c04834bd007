package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/corates/billing/internal/shared/constants"
)

// GrantModel is the persistence shape of an org access grant.
// TrialKey is unique and only set on trial rows, which makes a second trial
// for the same org fail at insert time. SingleProjectKey is unique and set on
// unrevoked single_project rows, so an org holds at most one.
type GrantModel struct {
	ID               uint      `gorm:"primarykey"`
	SID              string    `gorm:"uniqueIndex;not null;size:50;comment:Stripe-style ID: grt_xxx"`
	OrgID            string    `gorm:"not null;size:64;index:idx_grant_org_type,priority:1"`
	Type             string    `gorm:"not null;size:32;index:idx_grant_org_type,priority:2"`
	State            string    `gorm:"not null;size:16;default:active"`
	TrialKey         *string   `gorm:"uniqueIndex;size:64"`
	SingleProjectKey *string   `gorm:"uniqueIndex;size:64"`
	StartsAt         time.Time `gorm:"not null"`
	ExpiresAt        time.Time `gorm:"not null"`
	RevokedAt        *time.Time
	Metadata         datatypes.JSON
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TableName specifies the table name for GORM
func (GrantModel) TableName() string {
	return constants.TableGrants
}
