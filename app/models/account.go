package models

import (
	"time"

	"gorm.io/gorm"
)

// Account is a billing account owning events and subscriptions. Event
// creation is limited by an account-level quota (base + purchased top-ups).
type Account struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Email          string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Name           string         `gorm:"type:varchar(255)" json:"name"`
	BaseQuota      int64          `gorm:"not null;default:1" json:"base_quota"`
	TopupCredits   int64          `gorm:"not null;default:0" json:"topup_credits"`
	UsedEvents     int64          `gorm:"not null;default:0" json:"used_events"`
	IsUnlimited    bool           `gorm:"default:false" json:"is_unlimited"`
	TrialExpiresAt *time.Time     `gorm:"type:timestamp;default:null" json:"trial_expires_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// TrialActive reports whether the account-level trial still applies.
func (a *Account) TrialActive(now time.Time) bool {
	return a != nil && a.TrialExpiresAt != nil && now.Before(*a.TrialExpiresAt)
}
