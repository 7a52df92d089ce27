package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mikolohq/mikolo/app/models"
	"github.com/mikolohq/mikolo/internal/pkg/entitlements"
)

// Intent is what a confirmed payment should do to the event's subscription.
type Intent string

const (
	IntentSubscribe Intent = "subscribe"
	IntentUpgrade   Intent = "upgrade"
	IntentRenew     Intent = "renew"
)

// ParseIntent validates an intent string, defaulting to subscribe.
func ParseIntent(raw string) (Intent, error) {
	switch Intent(strings.ToLower(strings.TrimSpace(raw))) {
	case IntentUpgrade:
		return IntentUpgrade, nil
	case IntentRenew:
		return IntentRenew, nil
	case IntentSubscribe, "":
		return IntentSubscribe, nil
	default:
		return "", fmt.Errorf("unknown activation intent %q", raw)
	}
}

var (
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrPaymentNotSuccessful = errors.New("payment did not complete successfully")
	ErrNoSubscription       = errors.New("event has no subscription to apply the payment to")
	ErrUnknownPlan          = errors.New("unknown plan type")
	ErrPaymentRequired      = errors.New("plan requires a payment")
)

// Service applies payment outcomes to subscriptions. Activation is keyed by
// payment id and idempotent: re-invoking it for an already applied payment
// returns the current subscription without re-applying any effect.
type Service struct {
	repo Repository
	ents entitlements.Source
	now  func() time.Time
}

// NewService creates the activation service.
func NewService(repo Repository, ents entitlements.Source) *Service {
	return &Service{repo: repo, ents: ents, now: time.Now}
}

// Activate applies a completed payment to the event's subscription according
// to the intent. The whole mutation runs in one DB transaction; concurrent
// readers see either all of the change or none of it.
func (s *Service) Activate(ctx context.Context, paymentID uint, intent Intent) (*models.Subscription, error) {
	var (
		result  *models.Subscription
		eventID uint
	)

	err := s.repo.Transaction(ctx, func(tx Repository) error {
		payment, err := tx.GetPayment(paymentID)
		if err != nil {
			return fmt.Errorf("%w: id %d: %v", ErrPaymentNotFound, paymentID, err)
		}
		eventID = payment.EventID

		switch payment.Status {
		case models.MobilePaymentFailed, models.MobilePaymentRefunded:
			return fmt.Errorf("%w: payment %d is %s", ErrPaymentNotSuccessful, paymentID, payment.Status)
		}

		now := s.now()
		// Guarded claim instead of a read-then-apply check: of two concurrent
		// duplicate success callbacks exactly one claim succeeds, the other
		// returns the state as applied. A renewal is therefore applied once.
		claimed, err := tx.ClaimPayment(paymentID, now)
		if err != nil {
			return fmt.Errorf("claim payment %d: %w", paymentID, err)
		}
		if !claimed {
			applied, err := tx.GetPayment(paymentID)
			if err != nil {
				return fmt.Errorf("%w: id %d: %v", ErrPaymentNotFound, paymentID, err)
			}
			if applied.SubscriptionID == nil {
				return fmt.Errorf("payment %d applied without a subscription link", paymentID)
			}
			result, err = tx.GetSubscription(*applied.SubscriptionID)
			return err
		}

		meta := payment.Metadata()
		sub, err := s.apply(tx, payment, intent, meta["plan_type"], now)
		if err != nil {
			return err
		}

		payment.Status = models.MobilePaymentCompleted
		payment.AppliedAt = &now
		payment.SubscriptionID = &sub.ID
		if err := tx.SavePayment(payment); err != nil {
			return fmt.Errorf("link payment %d: %w", paymentID, err)
		}
		result = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.ents.Invalidate(ctx, eventID); err != nil {
		// The cache expires on its own; activation already committed.
		return result, nil
	}
	return result, nil
}

func (s *Service) apply(tx Repository, payment *models.Payment, intent Intent, planType string, now time.Time) (*models.Subscription, error) {
	switch intent {
	case IntentSubscribe:
		spec, ok := entitlements.PlanByType(planType)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPlan, planType)
		}
		expires := now.AddDate(0, spec.PeriodMonths, 0)
		sub := &models.Subscription{
			EventID:       payment.EventID,
			AccountID:     payment.AccountID,
			PlanType:      string(spec.Type),
			PaymentStatus: models.PaymentStatusPaid,
			ExpiresAt:     &expires,
		}
		if err := sub.SetEntitlements(spec.Features, spec.Limits); err != nil {
			return nil, err
		}
		if err := tx.CreateSubscription(sub); err != nil {
			return nil, err
		}
		return sub, nil

	case IntentUpgrade:
		sub, err := tx.CurrentSubscriptionForEvent(payment.EventID)
		if err != nil {
			return nil, err
		}
		if sub == nil {
			return nil, ErrNoSubscription
		}
		spec, ok := entitlements.PlanByType(planType)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPlan, planType)
		}
		// Upgrades swap the plan in place; the paid period is untouched.
		sub.PlanType = string(spec.Type)
		if err := sub.SetEntitlements(spec.Features, spec.Limits); err != nil {
			return nil, err
		}
		sub.PaymentStatus = models.PaymentStatusPaid
		if err := tx.SaveSubscription(sub); err != nil {
			return nil, err
		}
		return sub, nil

	case IntentRenew:
		sub, err := tx.CurrentSubscriptionForEvent(payment.EventID)
		if err != nil {
			return nil, err
		}
		if sub == nil {
			return nil, ErrNoSubscription
		}
		spec, ok := entitlements.PlanByType(sub.EffectivePlanType())
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPlan, sub.EffectivePlanType())
		}
		// Extend from the current expiry when it is still in the future so
		// renewing early never shortens the paid window.
		base := now
		if exp := sub.EffectiveExpiresAt(); exp != nil && exp.After(now) {
			base = *exp
		}
		expires := base.AddDate(0, spec.PeriodMonths, 0)
		sub.ExpiresAt = &expires
		sub.PaymentStatus = models.PaymentStatusPaid
		sub.CancelledAt = nil
		if err := tx.SaveSubscription(sub); err != nil {
			return nil, err
		}
		return sub, nil

	default:
		return nil, fmt.Errorf("unknown activation intent %q", intent)
	}
}

// ActivateFromPayment reads the intent recorded on the payment's metadata
// and activates accordingly. This is the orchestrator's entry point.
func (s *Service) ActivateFromPayment(ctx context.Context, paymentID uint) (*models.Subscription, error) {
	payment, err := s.repo.GetPayment(paymentID)
	if err != nil {
		return nil, fmt.Errorf("%w: id %d: %v", ErrPaymentNotFound, paymentID, err)
	}
	intent, err := ParseIntent(payment.Metadata()["intent"])
	if err != nil {
		return nil, err
	}
	return s.Activate(ctx, paymentID, intent)
}

// SubscribeFree creates a paid subscription directly for zero-cost and trial
// plans. No payment is involved and the orchestrator is bypassed entirely.
func (s *Service) SubscribeFree(ctx context.Context, accountID, eventID uint, planType string) (*models.Subscription, error) {
	spec, ok := entitlements.PlanByType(planType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlan, planType)
	}
	if spec.RequiresPayment() {
		return nil, fmt.Errorf("%w: %s", ErrPaymentRequired, planType)
	}

	now := s.now()
	var expires time.Time
	if spec.TrialDays > 0 {
		expires = now.AddDate(0, 0, spec.TrialDays)
	} else {
		expires = now.AddDate(0, spec.PeriodMonths, 0)
	}

	sub := &models.Subscription{
		EventID:       eventID,
		AccountID:     accountID,
		PlanType:      string(spec.Type),
		PaymentStatus: models.PaymentStatusPaid,
		ExpiresAt:     &expires,
	}
	if err := sub.SetEntitlements(spec.Features, spec.Limits); err != nil {
		return nil, err
	}

	err := s.repo.Transaction(ctx, func(tx Repository) error {
		return tx.CreateSubscription(sub)
	})
	if err != nil {
		return nil, err
	}
	_ = s.ents.Invalidate(ctx, eventID)
	return sub, nil
}

// Cancel marks the event's subscription as cancelled. The row persists for
// audit; entitlements stop applying immediately.
func (s *Service) Cancel(ctx context.Context, eventID uint) error {
	var found bool
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		sub, err := tx.CurrentSubscriptionForEvent(eventID)
		if err != nil {
			return err
		}
		if sub == nil {
			return ErrNoSubscription
		}
		if sub.CancelledAt != nil {
			found = true
			return nil
		}
		now := s.now()
		sub.CancelledAt = &now
		found = true
		return tx.SaveSubscription(sub)
	})
	if err != nil {
		return err
	}
	if found {
		_ = s.ents.Invalidate(ctx, eventID)
	}
	return nil
}
