package models

import (
	"encoding/json"
	"time"
)

const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// Subscription grants plan entitlements to an event. Features and limits are
// snapshotted from the plan catalog at activation time so later catalog edits
// do not silently change what a customer already paid for.
//
// The plan/status/ends_at columns are leftovers from the pre-migration
// schema. They are read-fallbacks only; all writers use plan_type,
// payment_status and expires_at.
type Subscription struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	EventID       uint       `gorm:"not null;index" json:"event_id"`
	AccountID     uint       `gorm:"not null;index" json:"account_id"`
	PlanType      string     `gorm:"column:plan_type;type:varchar(50);not null;default:''" json:"plan_type"`
	LegacyPlan    string     `gorm:"column:plan;type:varchar(50);not null;default:''" json:"-"`
	FeaturesJSON  string     `gorm:"column:features;type:text;not null;default:'{}'" json:"-"`
	LimitsJSON    string     `gorm:"column:limits;type:text;not null;default:'{}'" json:"-"`
	PaymentStatus string     `gorm:"column:payment_status;type:varchar(20);not null;default:'pending';index" json:"payment_status"`
	LegacyStatus  string     `gorm:"column:status;type:varchar(20);not null;default:''" json:"-"`
	ExpiresAt     *time.Time `gorm:"column:expires_at;type:timestamp;default:null;index" json:"expires_at,omitempty"`
	LegacyEndsAt  *time.Time `gorm:"column:ends_at;type:timestamp;default:null" json:"-"`
	CancelledAt   *time.Time `gorm:"type:timestamp;default:null" json:"cancelled_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// EffectivePlanType returns the canonical plan type, falling back to the
// legacy column for rows written before the schema migration.
func (s *Subscription) EffectivePlanType() string {
	if s.PlanType != "" {
		return s.PlanType
	}
	return s.LegacyPlan
}

// EffectivePaymentStatus returns the canonical payment status with legacy
// fallback.
func (s *Subscription) EffectivePaymentStatus() string {
	if s.PaymentStatus != "" {
		return s.PaymentStatus
	}
	return s.LegacyStatus
}

// EffectiveExpiresAt returns the canonical expiry with legacy fallback.
func (s *Subscription) EffectiveExpiresAt() *time.Time {
	if s.ExpiresAt != nil {
		return s.ExpiresAt
	}
	return s.LegacyEndsAt
}

// IsAuthoritative reports whether the subscription's features and limits
// currently apply: paid, not cancelled, and not yet expired.
func (s *Subscription) IsAuthoritative(now time.Time) bool {
	if s == nil || s.CancelledAt != nil {
		return false
	}
	if s.EffectivePaymentStatus() != PaymentStatusPaid {
		return false
	}
	exp := s.EffectiveExpiresAt()
	return exp != nil && now.Before(*exp)
}

// Features decodes the snapshotted feature flags.
func (s *Subscription) Features() map[string]bool {
	features := map[string]bool{}
	_ = json.Unmarshal([]byte(s.FeaturesJSON), &features)
	return features
}

// Limits decodes the snapshotted numeric limits.
func (s *Subscription) Limits() map[string]int64 {
	limits := map[string]int64{}
	_ = json.Unmarshal([]byte(s.LimitsJSON), &limits)
	return limits
}

// SetEntitlements snapshots feature and limit maps onto the row.
func (s *Subscription) SetEntitlements(features map[string]bool, limits map[string]int64) error {
	fb, err := json.Marshal(features)
	if err != nil {
		return err
	}
	lb, err := json.Marshal(limits)
	if err != nil {
		return err
	}
	s.FeaturesJSON = string(fb)
	s.LimitsJSON = string(lb)
	return nil
}
