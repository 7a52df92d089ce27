package controllers

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikolohq/mikolo/app/models"
	"github.com/mikolohq/mikolo/internal/pkg/payments"
)

// pendingProvider accepts every charge and never resolves it.
type pendingProvider struct{}

func (pendingProvider) InitiateCharge(context.Context, payments.ChargeRequest) (*payments.InitiateResult, error) {
	return &payments.InitiateResult{Reference: "ref-1", Status: payments.ChargePending}, nil
}

func (pendingProvider) ChargeStatus(context.Context, string) (payments.ChargeStatus, error) {
	return payments.ChargePending, nil
}

func TestGetPaymentRequiresOwnership(t *testing.T) {
	db, mock := newMockDB(t)
	repo := newStubPaymentRepo()
	repo.put(&models.Payment{ID: 1, EventID: 7, AccountID: 3, Status: models.MobilePaymentCompleted})
	pc := NewPaymentController(db, pendingProvider{}, repo, nil, payments.Config{}, true)

	// A different account must not read the attempt.
	app := fiber.New()
	app.Get("/payments/:id", actorware(4), pc.HandleGetPayment)
	expectEventOwner(mock, 7, 3)
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/payments/1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	// The owner can.
	owner := fiber.New()
	owner.Get("/payments/:id", actorware(3), pc.HandleGetPayment)
	expectEventOwner(mock, 7, 3)
	resp, err = owner.Test(httptest.NewRequest(fiber.MethodGet, "/payments/1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelPaymentRequiresOwnership(t *testing.T) {
	db, mock := newMockDB(t)
	repo := newStubPaymentRepo()
	cfg := payments.Config{PollInterval: time.Hour, PollTimeout: time.Hour}
	pc := NewPaymentController(db, pendingProvider{}, repo, nil, cfg, true)

	flow := payments.NewOrchestrator(pendingProvider{}, repo, nil, cfg, true)
	require.NoError(t, flow.SelectMethod(models.PaymentMethodMTN))
	require.NoError(t, flow.Submit(context.Background(), payments.SubmitRequest{
		PhoneNumber: payments.SandboxTimeoutNumber,
		Amount:      30000,
		Currency:    "UGX",
		EventID:     7,
		AccountID:   3,
		Intent:      "subscribe",
		PlanType:    "starter",
	}))
	payment := flow.Payment()
	require.NotNil(t, payment)
	pc.flows.Put(payment.ID, flow)

	// A different account must not cancel the attempt.
	app := fiber.New()
	app.Post("/payments/:id/cancel", actorware(4), pc.HandleCancelPayment)
	expectEventOwner(mock, 7, 3)
	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/payments/1/cancel", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, payments.StateAwaitingConfirmation, flow.State())

	// The owner cancels it.
	owner := fiber.New()
	owner.Post("/payments/:id/cancel", actorware(3), pc.HandleCancelPayment)
	expectEventOwner(mock, 7, 3)
	resp, err = owner.Test(httptest.NewRequest(fiber.MethodPost, "/payments/1/cancel", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, payments.StateCancelled, flow.State())
	require.NoError(t, mock.ExpectationsWereMet())
}
