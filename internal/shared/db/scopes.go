package db

import (
	"gorm.io/gorm"
)

// NotRevoked filters grant rows whose lifecycle state is still active.
//
//	db.Model(&models.GrantModel{}).Scopes(db.NotRevoked()).Where("org_id = ?", orgID).Find(&rows)
func NotRevoked() func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("state = ? AND revoked_at IS NULL", "active")
	}
}

// Bounded caps a query at limit rows. Scanner reads always go through it.
func Bounded(limit, max int) func(db *gorm.DB) *gorm.DB {
	if limit < 1 || limit > max {
		limit = max
	}
	return func(db *gorm.DB) *gorm.DB {
		return db.Limit(limit)
	}
}

// NewestFirst orders by column descending with id as tiebreaker.
func NewestFirst(column string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Order(column + " DESC").Order("id DESC")
	}
}
