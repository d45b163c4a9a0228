package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/lumina/internal/models"
)

type gormCartStore struct {
	db *gorm.DB
}

// NewCartStore returns a CartStore backed by the carts tables.
func NewCartStore(db *gorm.DB) CartStore {
	return &gormCartStore{db: db}
}

func (s *gormCartStore) Lines(ctx context.Context, userID uuid.UUID) ([]CartLine, error) {
	var cart models.Cart
	err := s.db.WithContext(ctx).
		Preload("Items.Product").
		Where("user_id = ?", userID).
		First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	lines := make([]CartLine, 0, len(cart.Items))
	for _, item := range cart.Items {
		line := CartLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
		if item.Product != nil {
			line.Title = item.Product.Title
			line.UnitPrice = item.Product.Price
		}
		lines = append(lines, line)
	}

	return lines, nil
}

func (s *gormCartStore) Clear(ctx context.Context, userID uuid.UUID) error {
	var cart models.Cart
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	return s.db.WithContext(ctx).
		Where("cart_id = ?", cart.ID).
		Delete(&models.CartItem{}).Error
}

type gormPaymentStore struct {
	db *gorm.DB
}

// NewPaymentStore returns a PaymentStore backed by the payments table.
func NewPaymentStore(db *gorm.DB) PaymentStore {
	return &gormPaymentStore{db: db}
}

func (s *gormPaymentStore) CreatePending(ctx context.Context, payment *models.Payment) error {
	if payment.Status == "" {
		payment.Status = models.PaymentStatusPending
	}
	return s.db.WithContext(ctx).Create(payment).Error
}

func (s *gormPaymentStore) FindPendingByUser(ctx context.Context, userID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.PaymentStatusPending).
		Order("created_at desc").
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (s *gormPaymentStore) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.WithContext(ctx).
		Where("gateway_order_id = ?", gatewayOrderID).
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (s *gormPaymentStore) MarkVerified(ctx context.Context, id uuid.UUID, gatewayPaymentID string) error {
	now := time.Now()
	return s.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, models.PaymentStatusPending).
		Updates(map[string]any{
			"status":             models.PaymentStatusVerified,
			"gateway_payment_id": gatewayPaymentID,
			"verified_at":        &now,
		}).Error
}

func (s *gormPaymentStore) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return s.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, models.PaymentStatusPending).
		Updates(map[string]any{
			"status":         models.PaymentStatusFailed,
			"failure_reason": reason,
		}).Error
}
