package payments

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/mikolohq/mikolo/app/models"
)

// State of a single payment attempt.
type State string

const (
	StateIdle                 State = "idle"
	StateMethodSelected       State = "method_selected"
	StateSubmitting           State = "submitting"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateSucceeded            State = "succeeded"
	StateFailed               State = "failed"
	StateTimedOut             State = "timed_out"
	StateCancelled            State = "cancelled"
)

// Terminal reports whether no further automatic transition can occur.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateTimedOut, StateCancelled:
		return true
	default:
		return false
	}
}

// MessageClass maps a terminal state onto exactly one user-facing message
// class. A timed-out payment is unresolved, never a confirmed failure.
func (s State) MessageClass() string {
	switch s {
	case StateSucceeded:
		return "success"
	case StateFailed:
		return "retryable_failure"
	case StateTimedOut:
		return "unresolved_timeout"
	case StateCancelled:
		return "cancelled"
	default:
		return ""
	}
}

var (
	ErrNoMethodSelected  = errors.New("no payment method selected")
	ErrInvalidTransition = errors.New("invalid payment state transition")
	ErrFlowCancelled     = errors.New("payment flow was cancelled")
	ErrPaymentInFlight   = errors.New("a payment is already awaiting confirmation for this event")
)

// Config bounds the polling loop.
type Config struct {
	PollInterval time.Duration
	PollTimeout  time.Duration
}

// DefaultConfig returns the production polling bounds.
func DefaultConfig() Config {
	return Config{PollInterval: 5 * time.Second, PollTimeout: 2 * time.Minute}
}

// Activator applies a completed payment to a subscription. Implemented by
// the billing service; invoked exactly once per successful payment.
type Activator interface {
	ActivateFromPayment(ctx context.Context, paymentID uint) (*models.Subscription, error)
}

// SubmitRequest carries everything needed to start a charge attempt.
type SubmitRequest struct {
	PhoneNumber string
	Amount      int64
	Currency    string
	EventID     uint
	AccountID   uint
	Intent      string
	PlanType    string
}

// Orchestrator drives one payment attempt from method selection through
// provider polling to a terminal state. It is safe for concurrent use; the
// polling goroutine issues at most one status request at a time.
type Orchestrator struct {
	provider  Provider
	repo      Repository
	activator Activator
	cfg       Config
	sandbox   bool

	mu             sync.Mutex
	state          State
	method         string
	methodExplicit bool
	payment        *models.Payment
	lastErr        error
	cancelPoll     context.CancelFunc
	done           chan struct{}
}

// NewOrchestrator creates an attempt in the idle state.
func NewOrchestrator(provider Provider, repo Repository, activator Activator, cfg Config, sandbox bool) *Orchestrator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultConfig().PollTimeout
	}
	return &Orchestrator{
		provider:  provider,
		repo:      repo,
		activator: activator,
		cfg:       cfg,
		sandbox:   sandbox,
		state:     StateIdle,
		done:      make(chan struct{}),
	}
}

// State returns the current machine state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Method returns the currently selected payment method.
func (o *Orchestrator) Method() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.method
}

// Payment returns the payment row of this attempt, nil before submission.
func (o *Orchestrator) Payment() *models.Payment {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.payment == nil {
		return nil
	}
	copied := *o.payment
	return &copied
}

// Err returns the last recoverable error observed by the attempt.
func (o *Orchestrator) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

// Done is closed when the attempt reaches a terminal state.
func (o *Orchestrator) Done() <-chan struct{} {
	return o.done
}

// SelectMethod records an explicit method choice. Explicit selections stick:
// later auto-detection never replaces them.
func (o *Orchestrator) SelectMethod(method string) error {
	switch method {
	case models.PaymentMethodMTN, models.PaymentMethodAirtel:
	default:
		return fmt.Errorf("unknown payment method %q", method)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateIdle && o.state != StateMethodSelected {
		return ErrInvalidTransition
	}
	o.method = method
	o.methodExplicit = true
	o.state = StateMethodSelected
	return nil
}

// SuggestMethod auto-detects a method from the phone number prefix. The
// suggestion is advisory and is ignored once the actor chose explicitly.
func (o *Orchestrator) SuggestMethod(rawPhone string) {
	msisdn, err := NormalizeMSISDN(rawPhone)
	if err != nil {
		return
	}
	method, ok := DetectMethod(msisdn)
	if !ok {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.methodExplicit {
		return
	}
	if o.state != StateIdle && o.state != StateMethodSelected {
		return
	}
	o.method = method
	o.state = StateMethodSelected
}

// Submit validates the phone number, creates the pending payment row and
// initiates the provider charge. Validation failures never leave the
// pre-submission state; transport failures during initiation roll back to
// it so the actor can retry without losing plan or method.
func (o *Orchestrator) Submit(ctx context.Context, req SubmitRequest) error {
	o.mu.Lock()
	if o.state != StateMethodSelected {
		state := o.state
		o.mu.Unlock()
		if state == StateIdle {
			return ErrNoMethodSelected
		}
		return ErrInvalidTransition
	}
	method := o.method
	o.mu.Unlock()

	msisdn, err := NormalizeMSISDN(req.PhoneNumber)
	if err != nil {
		return err
	}
	if err := ValidateNumber(msisdn, method, o.sandbox); err != nil {
		return err
	}

	// One in-flight payment per event. A second attempt has to wait for the
	// pending one to resolve or be cancelled.
	existing, err := o.repo.PendingForEvent(ctx, req.EventID)
	if err != nil {
		return fmt.Errorf("check pending payments: %w", err)
	}
	if existing != nil {
		return fmt.Errorf("%w: payment %d", ErrPaymentInFlight, existing.ID)
	}

	o.mu.Lock()
	if o.state != StateMethodSelected {
		o.mu.Unlock()
		return ErrInvalidTransition
	}
	o.state = StateSubmitting
	o.mu.Unlock()

	payment := &models.Payment{
		EventID:     req.EventID,
		AccountID:   req.AccountID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Method:      method,
		PhoneNumber: msisdn,
		Status:      models.MobilePaymentPending,
	}
	if err := payment.SetMetadata(map[string]string{
		"intent":    req.Intent,
		"plan_type": req.PlanType,
	}); err != nil {
		o.revertToMethodSelected(err)
		return err
	}
	if err := o.repo.CreatePayment(ctx, payment); err != nil {
		err = fmt.Errorf("create payment: %w", err)
		o.revertToMethodSelected(err)
		return err
	}

	result, err := o.provider.InitiateCharge(ctx, ChargeRequest{
		Amount:      req.Amount,
		Currency:    req.Currency,
		Method:      method,
		PhoneNumber: msisdn,
		ExternalID:  fmt.Sprintf("payment-%d", payment.ID),
		Narrative:   fmt.Sprintf("Mikolo %s plan", req.PlanType),
	})
	if err != nil {
		// The row for this attempt is dead; a retry submits a fresh one.
		if markErr := o.repo.MarkTerminal(ctx, payment.ID, models.MobilePaymentFailed); markErr != nil {
			log.Errorf("[Payments] mark payment %d failed: %v", payment.ID, markErr)
		}
		err = fmt.Errorf("initiate charge: %w", err)
		o.revertToMethodSelected(err)
		return err
	}

	payment.TransactionReference = result.Reference
	if err := o.repo.SavePayment(ctx, payment); err != nil {
		log.Errorf("[Payments] save reference for payment %d: %v", payment.ID, err)
	}

	o.mu.Lock()
	if o.state != StateSubmitting {
		// Cancelled while the initiation call was in flight. The row must
		// not linger as pending: it would block the next attempt.
		o.mu.Unlock()
		if markErr := o.repo.MarkTerminal(ctx, payment.ID, models.MobilePaymentFailed); markErr != nil {
			log.Errorf("[Payments] mark payment %d failed: %v", payment.ID, markErr)
		}
		return ErrFlowCancelled
	}
	o.payment = payment
	o.state = StateAwaitingConfirmation
	pollCtx, cancel := context.WithTimeout(context.Background(), o.cfg.PollTimeout)
	o.cancelPoll = cancel
	o.mu.Unlock()

	go o.poll(pollCtx, payment.ID, result.Reference)
	return nil
}

func (o *Orchestrator) revertToMethodSelected(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == StateSubmitting {
		o.state = StateMethodSelected
	}
	o.lastErr = err
}

// poll checks the provider at the configured interval until a terminal
// status, the wall-clock deadline or cancellation. The status call is made
// inline so a slow provider response delays the next tick instead of
// overlapping with it.
func (o *Orchestrator) poll(ctx context.Context, paymentID uint, reference string) {
	ticker := time.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				// Outcome unknown: the provider may still confirm
				// out-of-band. The payment row stays pending.
				o.finish(StateTimedOut, nil)
			} else {
				o.finish(StateCancelled, nil)
			}
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				continue // deadline or cancel, handled above
			}
			status, err := o.provider.ChargeStatus(ctx, reference)
			if err != nil {
				if ctx.Err() != nil {
					continue // deadline or cancel, handled above
				}
				o.setLastErr(err)
				continue // transient, retry on the next tick
			}
			if o.State().Terminal() {
				return
			}
			switch status {
			case ChargeCompleted:
				o.applySuccess(paymentID)
				return
			case ChargeFailed:
				if err := o.repo.MarkTerminal(ctx, paymentID, models.MobilePaymentFailed); err != nil {
					log.Errorf("[Payments] mark payment %d failed: %v", paymentID, err)
				}
				o.finish(StateFailed, nil)
				return
			}
		}
	}
}

func (o *Orchestrator) applySuccess(paymentID uint) {
	// Activation runs on its own context so a deadline that fires between
	// the final poll and the subscription write cannot split the two.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := o.repo.MarkTerminal(ctx, paymentID, models.MobilePaymentCompleted); err != nil {
		log.Errorf("[Payments] mark payment %d completed: %v", paymentID, err)
	}
	if o.activator != nil {
		if _, err := o.activator.ActivateFromPayment(ctx, paymentID); err != nil {
			log.Errorf("[Payments] activate payment %d: %v", paymentID, err)
			o.finish(StateSucceeded, err)
			return
		}
	}
	o.finish(StateSucceeded, nil)
}

func (o *Orchestrator) setLastErr(err error) {
	o.mu.Lock()
	o.lastErr = err
	o.mu.Unlock()
}

func (o *Orchestrator) finish(state State, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.Terminal() {
		return
	}
	o.state = state
	if err != nil {
		o.lastErr = err
	}
	if o.cancelPoll != nil {
		o.cancelPoll()
	}
	close(o.done)
}

// Cancel aborts the attempt from any non-terminal state. Polling stops
// immediately; the provider-side charge is left alone, the provider stays
// authoritative for its outcome.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.Terminal() {
		return
	}
	o.state = StateCancelled
	if o.cancelPoll != nil {
		o.cancelPoll()
	}
	close(o.done)
}
