package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/mikolohq/mikolo/app/models"
	"github.com/mikolohq/mikolo/internal/pkg/billing"
	"github.com/mikolohq/mikolo/internal/pkg/entitlements"
	"github.com/mikolohq/mikolo/internal/pkg/payments"
)

// PaymentController runs mobile money charge attempts. Each initiation gets
// its own orchestrator; the registry lets later status and cancel requests
// reach the running attempt.
type PaymentController struct {
	db        *gorm.DB
	provider  payments.Provider
	repo      payments.Repository
	activator *billing.Service
	flows     *payments.FlowRegistry
	cfg       payments.Config
	sandbox   bool
}

// NewPaymentController wires the controller.
func NewPaymentController(db *gorm.DB, provider payments.Provider, repo payments.Repository, activator *billing.Service, cfg payments.Config, sandbox bool) *PaymentController {
	return &PaymentController{
		db:        db,
		provider:  provider,
		repo:      repo,
		activator: activator,
		flows:     payments.NewFlowRegistry(),
		cfg:       cfg,
		sandbox:   sandbox,
	}
}

type initiatePaymentRequest struct {
	EventID     uint   `json:"event_id" validate:"required"`
	PlanType    string `json:"plan_type" validate:"required"`
	Intent      string `json:"intent"`
	PhoneNumber string `json:"phone_number" validate:"required"`
	Method      string `json:"method"`
}

// HandleInitiatePayment validates the request, starts a charge attempt and
// returns the pending payment. Polling continues server-side.
func (pc *PaymentController) HandleInitiatePayment(c *fiber.Ctx) error {
	actor, ok := requireActor(c)
	if !ok {
		return nil
	}
	var req initiatePaymentRequest
	if err := bodyParserAndValidate(c, &req); err != nil {
		return err
	}

	spec, found := entitlements.PlanByType(req.PlanType)
	if !found {
		return jsonError(c, fiber.StatusUnprocessableEntity, "unknown_plan", "unknown plan: "+req.PlanType)
	}
	if !spec.RequiresPayment() {
		return jsonError(c, fiber.StatusUnprocessableEntity, "no_payment_needed", "plan does not require a payment")
	}
	if _, err := billing.ParseIntent(req.Intent); err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "invalid_intent", err.Error())
	}

	flow := payments.NewOrchestrator(pc.provider, pc.repo, pc.activator, pc.cfg, pc.sandbox)
	if req.Method != "" {
		if err := flow.SelectMethod(req.Method); err != nil {
			return jsonError(c, fiber.StatusUnprocessableEntity, "invalid_method", err.Error())
		}
	} else {
		flow.SuggestMethod(req.PhoneNumber)
	}
	if flow.State() != payments.StateMethodSelected {
		return jsonError(c, fiber.StatusUnprocessableEntity, "no_method", "payment method could not be determined from the phone number")
	}

	err := flow.Submit(c.UserContext(), payments.SubmitRequest{
		PhoneNumber: req.PhoneNumber,
		Amount:      spec.Price,
		Currency:    spec.Currency,
		EventID:     req.EventID,
		AccountID:   actor.AccountID,
		Intent:      req.Intent,
		PlanType:    string(spec.Type),
	})
	switch {
	case errors.Is(err, payments.ErrInvalidPhone),
		errors.Is(err, payments.ErrUnknownCarrier),
		errors.Is(err, payments.ErrCarrierMismatch):
		return jsonError(c, fiber.StatusUnprocessableEntity, "invalid_phone", err.Error())
	case errors.Is(err, payments.ErrPaymentInFlight):
		return jsonError(c, fiber.StatusConflict, "payment_in_flight", err.Error())
	case err != nil:
		// Initiation transport failure: recoverable, plan and method are
		// kept; the client may simply resubmit.
		return jsonError(c, fiber.StatusBadGateway, "initiation_failed", err.Error())
	}

	payment := flow.Payment()
	pc.flows.Put(payment.ID, flow)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"payment": payment,
		"state":   flow.State(),
	})
}

// HandleGetPayment reports the attempt state. Finished or restarted flows
// fall back to the persisted payment row.
func (pc *PaymentController) HandleGetPayment(c *fiber.Ctx) error {
	actor, ok := requireActor(c)
	if !ok {
		return nil
	}
	paymentID, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	if flow, ok := pc.flows.Get(paymentID); ok {
		payment := flow.Payment()
		if payment == nil {
			return jsonError(c, fiber.StatusNotFound, "payment_not_found", "payment not found")
		}
		if !authorizeEventOwner(c, pc.db, actor, payment.EventID) {
			return nil
		}
		state := flow.State()
		if state.Terminal() && state != payments.StateTimedOut {
			pc.flows.Remove(paymentID)
		}
		return c.JSON(fiber.Map{
			"payment":       payment,
			"state":         state,
			"message_class": state.MessageClass(),
		})
	}

	payment, err := pc.repo.GetPayment(c.UserContext(), paymentID)
	if err != nil {
		return jsonError(c, fiber.StatusNotFound, "payment_not_found", "payment not found")
	}
	if !authorizeEventOwner(c, pc.db, actor, payment.EventID) {
		return nil
	}
	state := stateFromPayment(payment)
	return c.JSON(fiber.Map{
		"payment":       payment,
		"state":         state,
		"message_class": state.MessageClass(),
	})
}

// HandleCancelPayment stops a running attempt. The provider-side charge is
// not touched; the provider stays authoritative for its outcome.
func (pc *PaymentController) HandleCancelPayment(c *fiber.Ctx) error {
	actor, ok := requireActor(c)
	if !ok {
		return nil
	}
	paymentID, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	flow, ok := pc.flows.Get(paymentID)
	if !ok {
		return jsonError(c, fiber.StatusNotFound, "flow_not_found", "no running payment flow for this id")
	}
	payment := flow.Payment()
	if payment == nil {
		return jsonError(c, fiber.StatusNotFound, "payment_not_found", "payment not found")
	}
	if !authorizeEventOwner(c, pc.db, actor, payment.EventID) {
		return nil
	}
	flow.Cancel()
	pc.flows.Remove(paymentID)
	return c.JSON(fiber.Map{"state": flow.State()})
}

// HandleListEventPayments returns an event's payment attempts, newest first.
// Terminal and pending rows alike stay listed as the audit trail.
func (pc *PaymentController) HandleListEventPayments(c *fiber.Ctx) error {
	actor, ok := requireActor(c)
	if !ok {
		return nil
	}
	eventID, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}
	if !authorizeEventOwner(c, pc.db, actor, eventID) {
		return nil
	}

	list, err := pc.repo.ListForEvent(c.UserContext(), eventID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "payments_unavailable", "could not load payments")
	}
	return c.JSON(fiber.Map{"payments": list})
}

func stateFromPayment(p *models.Payment) payments.State {
	switch p.Status {
	case models.MobilePaymentCompleted:
		return payments.StateSucceeded
	case models.MobilePaymentFailed, models.MobilePaymentRefunded:
		return payments.StateFailed
	default:
		return payments.StateAwaitingConfirmation
	}
}
