package models

import (
	"time"

	"gorm.io/gorm"
)

// Event is a planned event. Entitlements for everyone working on an event
// derive from the owner account's subscription, not from the acting user.
type Event struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	OwnerAccountID uint           `gorm:"not null;index" json:"owner_account_id"`
	Title          string         `gorm:"type:varchar(255);not null" json:"title"`
	StartsAt       *time.Time     `gorm:"type:timestamp;default:null" json:"starts_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}
