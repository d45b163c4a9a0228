package models

import "github.com/google/uuid"

// Cart holds the line items a user intends to buy. One cart per user.
type Cart struct {
	BaseModel
	UserID uuid.UUID  `gorm:"type:uuid;uniqueIndex" json:"user_id"`
	Items  []CartItem `json:"items"`
}

// CartItem is a single product/quantity line inside a cart.
type CartItem struct {
	BaseModel
	CartID    uuid.UUID `gorm:"type:uuid;index" json:"cart_id"`
	ProductID uuid.UUID `gorm:"type:uuid;index" json:"product_id"`
	Product   *Product  `json:"product,omitempty"`
	Quantity  int       `json:"quantity"`
}
