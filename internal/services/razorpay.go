package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"
	razorpay "github.com/razorpay/razorpay-go"
)

// CheckoutSDKURL is the browser script the storefront loads to open the
// payment UI. Served to clients via the payment config endpoint so the
// frontend never hardcodes it.
const CheckoutSDKURL = "https://checkout.razorpay.com/v1/checkout.js"

// ErrInvalidAmount is returned when an order is requested for a non-positive
// amount. No gateway call is made in that case.
var ErrInvalidAmount = errors.New("invalid amount")

// GatewayError wraps a failure reported by the payment gateway. Callers
// decide whether to retry; the issuer never retries on its own.
type GatewayError struct {
	Err error
}

func (e *GatewayError) Error() string {
	return "payment gateway: " + e.Err.Error()
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Gateway abstracts the Razorpay orders API so tests can substitute a fake.
type Gateway interface {
	CreateOrder(data map[string]interface{}) (map[string]interface{}, error)
}

type razorpayGateway struct {
	client *razorpay.Client
}

func (g *razorpayGateway) CreateOrder(data map[string]interface{}) (map[string]interface{}, error) {
	return g.client.Order.Create(data, nil)
}

// PaymentOrder is the gateway's order record, parsed into an explicit shape
// at the boundary instead of passing raw maps around.
type PaymentOrder struct {
	ID          string `json:"id"`
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency"`
	Receipt     string `json:"receipt"`
	Status      string `json:"status"`
}

// RazorpayService issues pending payment orders against the gateway.
type RazorpayService struct {
	keyID           string
	keySecret       string
	defaultCurrency string

	gatewayOnce sync.Once
	gateway     Gateway
}

// NewRazorpayService constructs the service. The SDK client itself is built
// lazily on first use so processes that never take a payment do not touch
// gateway credentials.
func NewRazorpayService(keyID, keySecret, defaultCurrency string) *RazorpayService {
	return &RazorpayService{
		keyID:           keyID,
		keySecret:       keySecret,
		defaultCurrency: defaultCurrency,
	}
}

// NewRazorpayServiceWithGateway constructs the service with an explicit
// gateway implementation. Used by tests.
func NewRazorpayServiceWithGateway(gateway Gateway, defaultCurrency string) *RazorpayService {
	return &RazorpayService{
		gateway:         gateway,
		defaultCurrency: defaultCurrency,
	}
}

// KeyID returns the public gateway key the browser checkout needs. The
// secret never leaves the server.
func (s *RazorpayService) KeyID() string {
	return s.keyID
}

func (s *RazorpayService) gatewayClient() Gateway {
	s.gatewayOnce.Do(func() {
		if s.gateway == nil {
			s.gateway = &razorpayGateway{client: razorpay.NewClient(s.keyID, s.keySecret)}
		}
	})
	return s.gateway
}

// ToMinorUnits converts a major-unit amount to the smallest denomination the
// gateway charges in, e.g. 499.99 -> 49999 paise. math.Round matches the
// gateway's rounding (half away from zero).
func ToMinorUnits(amountMajor float64) int64 {
	return int64(math.Round(amountMajor * 100))
}

// CreateOrder issues one pending payment order for the given major-unit
// amount. Currency falls back to the configured default and receipt to a
// generated reference when omitted. Exactly one gateway call is made; a
// gateway failure is surfaced as *GatewayError and not retried here.
func (s *RazorpayService) CreateOrder(ctx context.Context, amountMajor float64, currency, receipt string) (*PaymentOrder, error) {
	if amountMajor <= 0 || math.IsNaN(amountMajor) || math.IsInf(amountMajor, 0) {
		return nil, ErrInvalidAmount
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if currency == "" {
		currency = s.defaultCurrency
	}
	if receipt == "" {
		receipt = "rcpt_" + uuid.NewString()
	}

	data := map[string]interface{}{
		"amount":          ToMinorUnits(amountMajor),
		"currency":        currency,
		"receipt":         receipt,
		"payment_capture": 1,
	}

	raw, err := s.gatewayClient().CreateOrder(data)
	if err != nil {
		return nil, &GatewayError{Err: err}
	}

	order, err := parsePaymentOrder(raw)
	if err != nil {
		return nil, &GatewayError{Err: err}
	}

	return order, nil
}

func parsePaymentOrder(raw map[string]interface{}) (*PaymentOrder, error) {
	id, _ := raw["id"].(string)
	if id == "" {
		return nil, errors.New("order response missing id")
	}

	amount, ok := toInt64(raw["amount"])
	if !ok {
		return nil, fmt.Errorf("order %s response missing amount", id)
	}

	currency, _ := raw["currency"].(string)
	receipt, _ := raw["receipt"].(string)
	status, _ := raw["status"].(string)

	return &PaymentOrder{
		ID:          id,
		AmountMinor: amount,
		Currency:    currency,
		Receipt:     receipt,
		Status:      status,
	}, nil
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
