package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrMissingParams is returned when a payment callback omits a required field.
// Verification must never silently pass on missing input.
var ErrMissingParams = errors.New("missing parameters")

// ReasonSignatureMismatch is the reason attached to a failed verification.
const ReasonSignatureMismatch = "signature-mismatch"

// VerificationResult is the outcome of a signature check. A mismatch is an
// expected outcome, not an error.
type VerificationResult struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// VerifyPaymentSignature recomputes the gateway signature
// HMAC-SHA256(secret, orderID + "|" + paymentID), hex-encoded, and compares
// it to the received one in constant time. Pure: no I/O, deterministic for
// the same inputs.
func VerifyPaymentSignature(orderID, paymentID, signature, secret string) (VerificationResult, error) {
	if orderID == "" || paymentID == "" || signature == "" {
		return VerificationResult{}, ErrMissingParams
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	if hmac.Equal([]byte(expected), []byte(signature)) {
		return VerificationResult{OK: true}, nil
	}

	return VerificationResult{OK: false, Reason: ReasonSignatureMismatch}, nil
}
