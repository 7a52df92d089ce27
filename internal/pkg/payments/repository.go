package payments

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mikolohq/mikolo/app/models"
)

// Repository provides the payment persistence used by the orchestrator.
type Repository interface {
	CreatePayment(ctx context.Context, p *models.Payment) error
	SavePayment(ctx context.Context, p *models.Payment) error
	GetPayment(ctx context.Context, id uint) (*models.Payment, error)
	// MarkTerminal transitions a pending payment to a terminal status once.
	// A duplicate terminal notification is a no-op.
	MarkTerminal(ctx context.Context, id uint, status string) error
	// ListForEvent returns an event's payment attempts, newest first.
	ListForEvent(ctx context.Context, eventID uint) ([]models.Payment, error)
	// PendingForEvent returns the event's in-flight payment, nil when none.
	PendingForEvent(ctx context.Context, eventID uint) (*models.Payment, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a payment repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreatePayment(ctx context.Context, p *models.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *gormRepository) SavePayment(ctx context.Context, p *models.Payment) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *gormRepository) GetPayment(ctx context.Context, id uint) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) MarkTerminal(ctx context.Context, id uint, status string) error {
	switch status {
	case models.MobilePaymentCompleted, models.MobilePaymentFailed:
	default:
		return fmt.Errorf("status %q is not terminal", status)
	}
	// Guarding on the pending status makes the transition single-shot.
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, models.MobilePaymentPending).
		Update("status", status).Error
}

func (r *gormRepository) PendingForEvent(ctx context.Context, eventID uint) (*models.Payment, error) {
	var p models.Payment
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND status = ?", eventID, models.MobilePaymentPending).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) ListForEvent(ctx context.Context, eventID uint) ([]models.Payment, error) {
	var list []models.Payment
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}
