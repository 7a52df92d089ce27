package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/mikolohq/mikolo/app/models"
	"github.com/mikolohq/mikolo/internal/pkg/billing"
	"github.com/mikolohq/mikolo/internal/pkg/entitlements"
)

// BillingController serves the plan catalog and subscription lifecycle.
type BillingController struct {
	db  *gorm.DB
	svc *billing.Service
}

// NewBillingController wires the controller.
func NewBillingController(db *gorm.DB, svc *billing.Service) *BillingController {
	return &BillingController{db: db, svc: svc}
}

// HandleListPlans returns the static plan catalog.
func (bc *BillingController) HandleListPlans(c *fiber.Ctx) error {
	specs := entitlements.Plans()
	plans := make([]fiber.Map, 0, len(specs))
	for _, spec := range specs {
		plans = append(plans, fiber.Map{
			"plan_type":        string(spec.Type),
			"name":             spec.Name,
			"price":            spec.Price,
			"currency":         spec.Currency,
			"period_months":    spec.PeriodMonths,
			"trial_days":       spec.TrialDays,
			"requires_payment": spec.RequiresPayment(),
			"features":         spec.Features,
			"limits":           spec.Limits,
		})
	}
	return c.JSON(fiber.Map{"plans": plans})
}

type subscribeRequest struct {
	EventID uint   `json:"event_id" validate:"required"`
	PlanID  string `json:"plan_id" validate:"required"`
}

// HandleSubscribe starts a subscription. Free and trial plans activate
// immediately; paid plans answer with requires_payment=true so the client
// can run the payment flow.
func (bc *BillingController) HandleSubscribe(c *fiber.Ctx) error {
	actor, ok := requireActor(c)
	if !ok {
		return nil
	}
	var req subscribeRequest
	if err := bodyParserAndValidate(c, &req); err != nil {
		return err
	}
	if !authorizeEventOwner(c, bc.db, actor, req.EventID) {
		return nil
	}

	spec, found := entitlements.PlanByType(req.PlanID)
	if !found {
		return jsonError(c, fiber.StatusUnprocessableEntity, "unknown_plan", "unknown plan: "+req.PlanID)
	}

	if !spec.RequiresPayment() {
		sub, err := bc.svc.SubscribeFree(c.UserContext(), actor.AccountID, req.EventID, req.PlanID)
		if err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "subscribe_failed", err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"requires_payment": false,
			"subscription":     sub,
		})
	}

	return c.JSON(fiber.Map{
		"requires_payment": true,
		"plan_type":        string(spec.Type),
		"amount":           spec.Price,
		"currency":         spec.Currency,
	})
}

type activateRequest struct {
	PaymentID uint   `json:"payment_id" validate:"required"`
	PlanType  string `json:"plan_type"`
}

// HandleUpgrade applies a completed payment as a plan upgrade.
func (bc *BillingController) HandleUpgrade(c *fiber.Ctx) error {
	return bc.handleActivation(c, billing.IntentUpgrade)
}

// HandleRenew applies a completed payment as a renewal.
func (bc *BillingController) HandleRenew(c *fiber.Ctx) error {
	return bc.handleActivation(c, billing.IntentRenew)
}

func (bc *BillingController) handleActivation(c *fiber.Ctx, intent billing.Intent) error {
	actor, ok := requireActor(c)
	if !ok {
		return nil
	}
	var req activateRequest
	if err := bodyParserAndValidate(c, &req); err != nil {
		return err
	}

	var payment models.Payment
	if err := bc.db.WithContext(c.UserContext()).First(&payment, req.PaymentID).Error; err != nil {
		return jsonError(c, fiber.StatusNotFound, "payment_not_found", "payment not found")
	}
	if !authorizeEventOwner(c, bc.db, actor, payment.EventID) {
		return nil
	}

	sub, err := bc.svc.Activate(c.UserContext(), req.PaymentID, intent)
	switch {
	case errors.Is(err, billing.ErrPaymentNotFound):
		return jsonError(c, fiber.StatusNotFound, "payment_not_found", err.Error())
	case errors.Is(err, billing.ErrPaymentNotSuccessful):
		return jsonError(c, fiber.StatusConflict, "payment_not_successful", err.Error())
	case errors.Is(err, billing.ErrNoSubscription):
		return jsonError(c, fiber.StatusConflict, "no_subscription", err.Error())
	case err != nil:
		return jsonError(c, fiber.StatusInternalServerError, "activation_failed", err.Error())
	}
	return c.JSON(fiber.Map{"subscription": sub})
}

type cancelRequest struct {
	EventID uint `json:"event_id" validate:"required"`
}

// HandleCancel cancels the event's subscription. The record persists.
func (bc *BillingController) HandleCancel(c *fiber.Ctx) error {
	actor, ok := requireActor(c)
	if !ok {
		return nil
	}
	var req cancelRequest
	if err := bodyParserAndValidate(c, &req); err != nil {
		return err
	}
	if !authorizeEventOwner(c, bc.db, actor, req.EventID) {
		return nil
	}

	if err := bc.svc.Cancel(c.UserContext(), req.EventID); err != nil {
		if errors.Is(err, billing.ErrNoSubscription) {
			return jsonError(c, fiber.StatusNotFound, "no_subscription", err.Error())
		}
		return jsonError(c, fiber.StatusInternalServerError, "cancel_failed", err.Error())
	}
	return c.SendStatus(fiber.StatusNoContent)
}

