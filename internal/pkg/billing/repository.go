package billing

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mikolohq/mikolo/app/models"
)

// Repository provides the DB operations used by the activation service.
type Repository interface {
	// Transaction runs fn against a repository bound to one DB transaction.
	Transaction(ctx context.Context, fn func(Repository) error) error
	GetPayment(id uint) (*models.Payment, error)
	// ClaimPayment stamps applied_at on a payment that has not been applied
	// yet. The guarded update makes application single-shot: of two
	// concurrent duplicate callbacks exactly one claim succeeds.
	ClaimPayment(id uint, appliedAt time.Time) (bool, error)
	SavePayment(p *models.Payment) error
	GetSubscription(id uint) (*models.Subscription, error)
	// CurrentSubscriptionForEvent returns the newest subscription row for an
	// event, or nil when the event never had one.
	CurrentSubscriptionForEvent(eventID uint) (*models.Subscription, error)
	CreateSubscription(sub *models.Subscription) error
	SaveSubscription(sub *models.Subscription) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates an activation repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Transaction(ctx context.Context, fn func(Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}

func (r *gormRepository) GetPayment(id uint) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) ClaimPayment(id uint, appliedAt time.Time) (bool, error) {
	// The conditional UPDATE takes the row lock, so a concurrent claim in
	// another transaction blocks here and then sees zero affected rows.
	res := r.db.Model(&models.Payment{}).
		Where("id = ? AND applied_at IS NULL", id).
		Update("applied_at", appliedAt)
	return res.RowsAffected > 0, res.Error
}

func (r *gormRepository) SavePayment(p *models.Payment) error {
	return r.db.Save(p).Error
}

func (r *gormRepository) GetSubscription(id uint) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.First(&sub, id).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) CurrentSubscriptionForEvent(eventID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Where("event_id = ?", eventID).Order("created_at DESC").First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) CreateSubscription(sub *models.Subscription) error {
	return r.db.Create(sub).Error
}

func (r *gormRepository) SaveSubscription(sub *models.Subscription) error {
	return r.db.Save(sub).Error
}
