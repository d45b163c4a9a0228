package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signCallback(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyPaymentSignature_RoundTrip(t *testing.T) {
	cases := []struct {
		orderID   string
		paymentID string
		secret    string
	}{
		{"order_Hh4fVZwMu2LO7O", "pay_Hh4hQZl0AL0aQX", "test_secret"},
		{"order_1", "pay_1", "s"},
		{"order-with-dash", "pay|pipe", "another secret with spaces"},
	}

	for _, tc := range cases {
		sig := signCallback(tc.orderID, tc.paymentID, tc.secret)
		result, err := VerifyPaymentSignature(tc.orderID, tc.paymentID, sig, tc.secret)
		require.NoError(t, err)
		assert.True(t, result.OK)
		assert.Empty(t, result.Reason)
	}
}

func TestVerifyPaymentSignature_FlippedCharacter(t *testing.T) {
	orderID, paymentID, secret := "order_Hh4fVZwMu2LO7O", "pay_Hh4hQZl0AL0aQX", "test_secret"
	valid := signCallback(orderID, paymentID, secret)

	for i := range valid {
		flipped := []byte(valid)
		if flipped[i] == 'a' {
			flipped[i] = 'b'
		} else {
			flipped[i] = 'a'
		}
		if string(flipped) == valid {
			continue
		}

		result, err := VerifyPaymentSignature(orderID, paymentID, string(flipped), secret)
		require.NoError(t, err)
		assert.False(t, result.OK, "flipped position %d must not verify", i)
		assert.Equal(t, ReasonSignatureMismatch, result.Reason)
	}
}

func TestVerifyPaymentSignature_WrongSecret(t *testing.T) {
	sig := signCallback("order_1", "pay_1", "right_secret")

	result, err := VerifyPaymentSignature("order_1", "pay_1", sig, "wrong_secret")
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, ReasonSignatureMismatch, result.Reason)
}

func TestVerifyPaymentSignature_MissingFields(t *testing.T) {
	secret := "test_secret"
	sig := signCallback("order_1", "pay_1", secret)

	cases := []struct {
		name      string
		orderID   string
		paymentID string
		signature string
	}{
		{"missing order id", "", "pay_1", sig},
		{"missing payment id", "order_1", "", sig},
		{"missing signature", "order_1", "pay_1", ""},
		{"all missing", "", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := VerifyPaymentSignature(tc.orderID, tc.paymentID, tc.signature, secret)
			require.ErrorIs(t, err, ErrMissingParams)
			assert.False(t, result.OK, "missing input must never verify")
		})
	}
}
