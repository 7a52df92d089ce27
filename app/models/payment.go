package models

import (
	"encoding/json"
	"time"
)

const (
	PaymentMethodMTN    = "mtn_mobile_money"
	PaymentMethodAirtel = "airtel_money"
)

const (
	MobilePaymentPending   = "pending"
	MobilePaymentCompleted = "completed"
	MobilePaymentFailed    = "failed"
	MobilePaymentRefunded  = "refunded"
)

// Payment is one mobile-money charge attempt. A payment transitions from
// pending to exactly one terminal status and never transitions again; a
// retry after failure creates a new row instead of mutating this one.
type Payment struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	SubscriptionID       *uint      `gorm:"index" json:"subscription_id,omitempty"`
	EventID              uint       `gorm:"not null;index" json:"event_id"`
	AccountID            uint       `gorm:"not null;index" json:"account_id"`
	Amount               int64      `gorm:"not null" json:"amount"`
	Currency             string     `gorm:"type:varchar(3);not null;default:'UGX'" json:"currency"`
	Method               string     `gorm:"type:varchar(32);not null" json:"method"`
	PhoneNumber          string     `gorm:"type:varchar(20);not null" json:"phone_number"`
	Status               string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	TransactionReference string     `gorm:"type:varchar(191);default:'';index" json:"transaction_reference,omitempty"`
	MetadataJSON         string     `gorm:"column:metadata;type:text;not null;default:'{}'" json:"-"`
	AppliedAt            *time.Time `gorm:"type:timestamp;default:null" json:"applied_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// IsTerminal reports whether the payment reached a final provider outcome.
func (p *Payment) IsTerminal() bool {
	switch p.Status {
	case MobilePaymentCompleted, MobilePaymentFailed, MobilePaymentRefunded:
		return true
	default:
		return false
	}
}

// Metadata decodes the free-form metadata payload.
func (p *Payment) Metadata() map[string]string {
	meta := map[string]string{}
	_ = json.Unmarshal([]byte(p.MetadataJSON), &meta)
	return meta
}

// SetMetadata encodes the free-form metadata payload.
func (p *Payment) SetMetadata(meta map[string]string) error {
	b, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	p.MetadataJSON = string(b)
	return nil
}
