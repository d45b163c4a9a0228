package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/lumina/internal/models"
)

// CartHandler manages per-user cart endpoints.
type CartHandler struct {
	db *gorm.DB
}

// NewCartHandler constructs CartHandler.
func NewCartHandler(db *gorm.DB) *CartHandler {
	return &CartHandler{db: db}
}

// GetCart returns the user's cart with products preloaded. A user without a
// cart gets an empty item list rather than a 404.
func (h *CartHandler) GetCart(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}

	var cart models.Cart
	if err := h.db.Preload("Items.Product").
		Where("user_id = ?", userID).
		First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(fiber.Map{"success": true, "data": fiber.Map{
				"user_id": userID,
				"items":   []models.CartItem{},
			}})
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": cart})
}

type cartLineRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type updateCartRequest struct {
	Items []cartLineRequest `json:"items"`
}

// UpdateCart replaces the cart's line set. Lines with quantity <= 0 are
// dropped, which is how item removal works.
func (h *CartHandler) UpdateCart(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}

	var req updateCartRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	items := make([]models.CartItem, 0, len(req.Items))
	for _, line := range req.Items {
		if line.Quantity <= 0 {
			continue
		}
		productID, err := uuid.Parse(line.ProductID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid product_id")
		}
		items = append(items, models.CartItem{
			ProductID: productID,
			Quantity:  line.Quantity,
		})
	}

	var cart models.Cart
	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(models.Cart{UserID: userID}).
			FirstOrCreate(&cart).Error; err != nil {
			return err
		}

		if err := tx.Where("cart_id = ?", cart.ID).
			Delete(&models.CartItem{}).Error; err != nil {
			return err
		}

		for i := range items {
			items[i].CartID = cart.ID
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
	if err != nil {
		return err
	}

	if err := h.db.Preload("Items.Product").
		First(&cart, "id = ?", cart.ID).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": cart})
}

// ClearCart removes every line from the user's cart.
func (h *CartHandler) ClearCart(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}

	var cart models.Cart
	if err := h.db.Where("user_id = ?", userID).First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(fiber.Map{"success": true})
		}
		return err
	}

	if err := h.db.Where("cart_id = ?", cart.ID).
		Delete(&models.CartItem{}).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true})
}
