package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/lumina/internal/middleware"
	"github.com/example/lumina/internal/models"
	"github.com/example/lumina/internal/services"
	"github.com/example/lumina/internal/utils"
)

// checkoutRunner is the slice of the checkout service the handler needs.
type checkoutRunner interface {
	StartCheckout(ctx context.Context, userID uuid.UUID) (*services.CheckoutSession, error)
	ConfirmPayment(ctx context.Context, callback services.PaymentCallback) (services.VerificationResult, error)
}

// PaymentHandler exposes the payment bridge endpoints.
type PaymentHandler struct {
	db       *gorm.DB
	issuer   services.OrderIssuer
	checkout checkoutRunner
	payments services.PaymentStore
	keyID    string
	currency string
}

func NewPaymentHandler(db *gorm.DB, issuer services.OrderIssuer, checkout checkoutRunner, payments services.PaymentStore, keyID, currency string) *PaymentHandler {
	return &PaymentHandler{
		db:       db,
		issuer:   issuer,
		checkout: checkout,
		payments: payments,
		keyID:    keyID,
		currency: currency,
	}
}

type createOrderRequest struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Receipt  string  `json:"receipt"`
	UserID   string  `json:"userId"`
}

// CreateOrder creates a pending gateway order for a client-supplied amount
// in major units and records the pending payment.
func (h *PaymentHandler) CreateOrder(c *fiber.Ctx) error {
	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing amount"})
	}

	order, err := h.issuer.CreateOrder(c.Context(), req.Amount, req.Currency, req.Receipt)
	if err != nil {
		if errors.Is(err, services.ErrInvalidAmount) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing amount"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	payment := &models.Payment{
		GatewayOrderID: order.ID,
		Receipt:        order.Receipt,
		AmountMinor:    order.AmountMinor,
		Currency:       order.Currency,
		Status:         models.PaymentStatusPending,
	}
	if req.UserID != "" {
		if id, err := uuid.Parse(req.UserID); err == nil {
			payment.UserID = &id
		}
	}
	if err := h.payments.CreatePending(c.Context(), payment); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(order)
}

// Verify checks the signed gateway callback server-side and settles the
// persisted payment. The cart is cleared only after the payment is durably
// verified; the response flag is derived from that transition.
func (h *PaymentHandler) Verify(c *fiber.Ctx) error {
	var callback services.PaymentCallback
	if err := c.BodyParser(&callback); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "Missing parameters"})
	}

	result, err := h.checkout.ConfirmPayment(c.Context(), callback)
	if err != nil {
		if errors.Is(err, services.ErrMissingParams) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "Missing parameters"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": err.Error()})
	}

	if !result.OK {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "Invalid signature"})
	}

	return c.JSON(fiber.Map{"ok": true})
}

// Config returns the public values the browser needs to open the gateway UI.
// The key secret is never part of this payload.
func (h *PaymentHandler) Config(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"key_id":   h.keyID,
		"currency": h.currency,
		"sdk_url":  services.CheckoutSDKURL,
	})
}

// Checkout starts a checkout attempt for the authenticated user's cart with
// server-computed totals.
func (h *PaymentHandler) Checkout(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	session, err := h.checkout.StartCheckout(c.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyCart), errors.Is(err, services.ErrInvalidTotal):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrCheckoutInProgress):
			return fiber.NewError(fiber.StatusConflict, err.Error())
		default:
			return err
		}
	}

	return c.JSON(fiber.Map{"success": true, "data": session})
}

// ListPayments returns payment history, optionally filtered. Pending rows
// older than the attempt TTL are the ones worth reconciling by hand.
func (h *PaymentHandler) ListPayments(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Payment{})

	if status := strings.TrimSpace(c.Query("status")); status != "" {
		query = query.Where("status = ?", status)
	}
	if userID := strings.TrimSpace(c.Query("user_id")); userID != "" {
		parsed, err := uuid.Parse(userID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid user_id")
		}
		query = query.Where("user_id = ?", parsed)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var payments []models.Payment
	if err := query.
		Order("created_at desc").
		Limit(pg.Limit).
		Offset(pg.Offset).
		Find(&payments).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    payments,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}
