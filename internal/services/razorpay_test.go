package services

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	calls    int
	lastData map[string]interface{}
	resp     map[string]interface{}
	err      error
}

func (g *fakeGateway) CreateOrder(data map[string]interface{}) (map[string]interface{}, error) {
	g.calls++
	g.lastData = data
	return g.resp, g.err
}

func orderResponse(id string, amount int64, currency string) map[string]interface{} {
	// The SDK decodes JSON into map[string]interface{}, so numbers arrive
	// as float64.
	return map[string]interface{}{
		"id":       id,
		"amount":   float64(amount),
		"currency": currency,
		"receipt":  "rcpt_test",
		"status":   "created",
	}
}

func TestToMinorUnits(t *testing.T) {
	cases := []struct {
		major float64
		minor int64
	}{
		{499.99, 49999},
		{108, 10800},
		{9.99, 999},
		{0.01, 1},
		{1, 100},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.minor, ToMinorUnits(tc.major), "amount %v", tc.major)
	}
}

func TestCreateOrder_ConvertsToMinorUnits(t *testing.T) {
	gw := &fakeGateway{resp: orderResponse("order_123", 49999, "INR")}
	svc := NewRazorpayServiceWithGateway(gw, "INR")

	order, err := svc.CreateOrder(context.Background(), 499.99, "", "")
	require.NoError(t, err)

	assert.Equal(t, 1, gw.calls)
	assert.Equal(t, int64(49999), gw.lastData["amount"])
	assert.Equal(t, "INR", gw.lastData["currency"])
	assert.Equal(t, 1, gw.lastData["payment_capture"])
	assert.NotEmpty(t, gw.lastData["receipt"])

	assert.Equal(t, "order_123", order.ID)
	assert.Equal(t, int64(49999), order.AmountMinor)
	assert.Equal(t, "INR", order.Currency)
	assert.Equal(t, "created", order.Status)
}

func TestCreateOrder_ExplicitCurrencyAndReceipt(t *testing.T) {
	gw := &fakeGateway{resp: orderResponse("order_456", 10800, "USD")}
	svc := NewRazorpayServiceWithGateway(gw, "INR")

	_, err := svc.CreateOrder(context.Background(), 108, "USD", "rcpt_42")
	require.NoError(t, err)

	assert.Equal(t, "USD", gw.lastData["currency"])
	assert.Equal(t, "rcpt_42", gw.lastData["receipt"])
}

func TestCreateOrder_InvalidAmount(t *testing.T) {
	cases := []struct {
		name   string
		amount float64
	}{
		{"zero", 0},
		{"negative", -10},
		{"nan", math.NaN()},
		{"positive infinity", math.Inf(1)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := &fakeGateway{resp: orderResponse("order_x", 1, "INR")}
			svc := NewRazorpayServiceWithGateway(gw, "INR")

			_, err := svc.CreateOrder(context.Background(), tc.amount, "", "")
			require.ErrorIs(t, err, ErrInvalidAmount)
			assert.Zero(t, gw.calls, "no gateway call may be made for an invalid amount")
		})
	}
}

func TestCreateOrder_GatewayFailure(t *testing.T) {
	gw := &fakeGateway{err: errors.New("authentication failed")}
	svc := NewRazorpayServiceWithGateway(gw, "INR")

	_, err := svc.CreateOrder(context.Background(), 50, "", "")
	require.Error(t, err)

	var gatewayErr *GatewayError
	require.ErrorAs(t, err, &gatewayErr)
	assert.Contains(t, gatewayErr.Error(), "authentication failed")
}

func TestCreateOrder_MalformedResponse(t *testing.T) {
	cases := []struct {
		name string
		resp map[string]interface{}
	}{
		{"missing id", map[string]interface{}{"amount": float64(100), "currency": "INR"}},
		{"missing amount", map[string]interface{}{"id": "order_789", "currency": "INR"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := &fakeGateway{resp: tc.resp}
			svc := NewRazorpayServiceWithGateway(gw, "INR")

			_, err := svc.CreateOrder(context.Background(), 1, "", "")
			var gatewayErr *GatewayError
			require.ErrorAs(t, err, &gatewayErr)
		})
	}
}
