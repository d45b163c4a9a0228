package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/example/lumina/internal/models"
)

var (
	// ErrEmptyCart is returned when checkout is attempted with no lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInvalidTotal is returned when the computed total is not positive.
	ErrInvalidTotal = errors.New("cart total must be greater than zero")
	// ErrCheckoutInProgress guards against duplicate submits while a live
	// pending order already exists for the user.
	ErrCheckoutInProgress = errors.New("a checkout attempt is already in progress")
)

// CheckoutState names the phases of a single checkout attempt. The machine
// is linear; a new attempt always starts fresh from idle.
type CheckoutState string

const (
	StateIdle           CheckoutState = "idle"
	StateTotalComputed  CheckoutState = "total_computed"
	StateOrderRequested CheckoutState = "order_requested"
	StateOrderReady     CheckoutState = "order_ready"
	StateGatewayOpen    CheckoutState = "gateway_open"
	StateVerifying      CheckoutState = "verifying"
	StateSettledSuccess CheckoutState = "settled_success"
	StateSettledFailed  CheckoutState = "settled_failed"
)

var checkoutTransitions = map[CheckoutState][]CheckoutState{
	StateIdle:           {StateTotalComputed},
	StateTotalComputed:  {StateOrderRequested, StateSettledFailed},
	StateOrderRequested: {StateOrderReady, StateSettledFailed},
	StateOrderReady:     {StateGatewayOpen, StateSettledFailed},
	StateGatewayOpen:    {StateVerifying, StateSettledFailed},
	StateVerifying:      {StateSettledSuccess, StateSettledFailed},
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s CheckoutState) CanTransitionTo(next CheckoutState) bool {
	for _, allowed := range checkoutTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsSettled reports whether the attempt reached a terminal state.
func (s CheckoutState) IsSettled() bool {
	return s == StateSettledSuccess || s == StateSettledFailed
}

type checkoutAttempt struct {
	state CheckoutState
}

func newCheckoutAttempt() *checkoutAttempt {
	return &checkoutAttempt{state: StateIdle}
}

func (a *checkoutAttempt) advance(next CheckoutState) error {
	if !a.state.CanTransitionTo(next) {
		return fmt.Errorf("illegal checkout transition %s -> %s", a.state, next)
	}
	a.state = next
	return nil
}

// CartLine is one product/quantity pair priced for totalling.
type CartLine struct {
	ProductID uuid.UUID
	Title     string
	UnitPrice float64
	Quantity  int
}

// CartStore reads and clears a user's cart.
type CartStore interface {
	Lines(ctx context.Context, userID uuid.UUID) ([]CartLine, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

// PaymentStore persists gateway payments. Find methods return (nil, nil)
// when no record matches.
type PaymentStore interface {
	CreatePending(ctx context.Context, payment *models.Payment) error
	FindPendingByUser(ctx context.Context, userID uuid.UUID) (*models.Payment, error)
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Payment, error)
	MarkVerified(ctx context.Context, id uuid.UUID, gatewayPaymentID string) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

// OrderIssuer creates a pending order on the payment gateway.
type OrderIssuer interface {
	CreateOrder(ctx context.Context, amountMajor float64, currency, receipt string) (*PaymentOrder, error)
}

// Totals breaks down one checkout amount in major units.
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Shipping float64 `json:"shipping"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// CheckoutSession is what the browser needs to open the gateway UI. Amount
// is the gateway-returned minor-unit value, never recomputed client-side.
type CheckoutSession struct {
	State       CheckoutState `json:"state"`
	OrderID     string        `json:"order_id"`
	AmountMinor int64         `json:"amount"`
	Currency    string        `json:"currency"`
	KeyID       string        `json:"key_id"`
	Totals      Totals        `json:"totals"`
}

// PaymentCallback carries the signed fields the gateway reports after the
// shopper completes payment.
type PaymentCallback struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
	Signature string `json:"signature"`
}

// CheckoutPolicy configures totals and duplicate-submit handling.
type CheckoutPolicy struct {
	FreeShippingThreshold float64
	ShippingFee           float64
	TaxRate               float64
	Currency              string
	// PendingTTL bounds how long an unfinished pending payment blocks a
	// new attempt for the same user.
	PendingTTL time.Duration
}

// CheckoutService drives a checkout attempt from cart totals through order
// creation and signature verification to a settled payment.
type CheckoutService struct {
	policy   CheckoutPolicy
	issuer   OrderIssuer
	carts    CartStore
	payments PaymentStore
	keyID    string
	secret   string
}

func NewCheckoutService(policy CheckoutPolicy, issuer OrderIssuer, carts CartStore, payments PaymentStore, keyID, secret string) *CheckoutService {
	if policy.PendingTTL <= 0 {
		policy.PendingTTL = 15 * time.Minute
	}
	return &CheckoutService{
		policy:   policy,
		issuer:   issuer,
		carts:    carts,
		payments: payments,
		keyID:    keyID,
		secret:   secret,
	}
}

// ComputeTotals sums price x quantity over the lines, then applies shipping
// (free once subtotal reaches the threshold, flat fee otherwise) and tax as
// a percentage of subtotal. Refuses empty carts and non-positive totals.
func (s *CheckoutService) ComputeTotals(lines []CartLine) (Totals, error) {
	if len(lines) == 0 {
		return Totals{}, ErrEmptyCart
	}

	var subtotal float64
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		subtotal += line.UnitPrice * float64(line.Quantity)
	}
	if subtotal <= 0 {
		return Totals{}, ErrInvalidTotal
	}

	shipping := s.policy.ShippingFee
	if subtotal >= s.policy.FreeShippingThreshold {
		shipping = 0
	}
	tax := subtotal * s.policy.TaxRate
	total := subtotal + shipping + tax

	if total <= 0 {
		return Totals{}, ErrInvalidTotal
	}

	return Totals{Subtotal: subtotal, Shipping: shipping, Tax: tax, Total: total}, nil
}

// StartCheckout runs one attempt up to order_ready: it totals the current
// cart, refuses duplicate submits, issues the gateway order and persists the
// pending payment. The cart itself is not touched.
func (s *CheckoutService) StartCheckout(ctx context.Context, userID uuid.UUID) (*CheckoutSession, error) {
	attempt := newCheckoutAttempt()

	lines, err := s.carts.Lines(ctx, userID)
	if err != nil {
		return nil, err
	}

	totals, err := s.ComputeTotals(lines)
	if err != nil {
		return nil, err
	}
	if err := attempt.advance(StateTotalComputed); err != nil {
		return nil, err
	}

	pending, err := s.payments.FindPendingByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if pending != nil && time.Since(pending.CreatedAt) < s.policy.PendingTTL {
		return nil, ErrCheckoutInProgress
	}

	if err := attempt.advance(StateOrderRequested); err != nil {
		return nil, err
	}

	order, err := s.issuer.CreateOrder(ctx, totals.Total, s.policy.Currency, "order_"+userID.String())
	if err != nil {
		_ = attempt.advance(StateSettledFailed)
		return nil, err
	}

	payment := &models.Payment{
		UserID:         &userID,
		GatewayOrderID: order.ID,
		Receipt:        order.Receipt,
		AmountMinor:    order.AmountMinor,
		Currency:       order.Currency,
		Status:         models.PaymentStatusPending,
	}
	if err := s.payments.CreatePending(ctx, payment); err != nil {
		return nil, err
	}

	if err := attempt.advance(StateOrderReady); err != nil {
		return nil, err
	}

	return &CheckoutSession{
		State:       attempt.state,
		OrderID:     order.ID,
		AmountMinor: order.AmountMinor,
		Currency:    order.Currency,
		KeyID:       s.keyID,
		Totals:      totals,
	}, nil
}

// ConfirmPayment consumes the gateway callback. On a matching signature the
// persisted payment is moved pending -> verified first, and only then is the
// cart cleared; verification failure leaves the cart untouched. The result
// reflects the signature check, never a client-reported flag.
func (s *CheckoutService) ConfirmPayment(ctx context.Context, callback PaymentCallback) (VerificationResult, error) {
	// The callback arrives while the shopper holds the gateway UI open, so
	// confirmation resumes the attempt from gateway_open.
	attempt := &checkoutAttempt{state: StateGatewayOpen}
	if err := attempt.advance(StateVerifying); err != nil {
		return VerificationResult{}, err
	}

	result, err := VerifyPaymentSignature(callback.OrderID, callback.PaymentID, callback.Signature, s.secret)
	if err != nil {
		return VerificationResult{}, err
	}

	payment, err := s.payments.FindByGatewayOrderID(ctx, callback.OrderID)
	if err != nil {
		return VerificationResult{}, err
	}

	if !result.OK {
		if payment != nil && payment.Status == models.PaymentStatusPending {
			if err := s.payments.MarkFailed(ctx, payment.ID, result.Reason); err != nil {
				return VerificationResult{}, err
			}
		}
		_ = attempt.advance(StateSettledFailed)
		return result, nil
	}

	if payment == nil {
		// A signed callback for an order we never issued; nothing durable
		// to settle, so report the mismatch-free result but do not clear
		// any cart.
		log.Printf("[checkout] verified callback for unknown order %s", callback.OrderID)
		return result, nil
	}

	if payment.Status != models.PaymentStatusPending {
		return result, nil
	}

	if err := s.payments.MarkVerified(ctx, payment.ID, callback.PaymentID); err != nil {
		return VerificationResult{}, err
	}

	if payment.UserID != nil {
		if err := s.carts.Clear(ctx, *payment.UserID); err != nil {
			// The payment is already durably verified; a cart-clear
			// failure must not flip the outcome.
			log.Printf("[checkout] failed to clear cart for user %s after verified payment %s: %v",
				payment.UserID, payment.ID, err)
		}
	}

	_ = attempt.advance(StateSettledSuccess)
	return result, nil
}
