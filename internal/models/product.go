package models

import "github.com/lib/pq"

// Product is a catalog entry sold through the storefront.
type Product struct {
	BaseModel
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Category    string         `gorm:"index" json:"category"`
	Price       float64        `json:"price"`
	Images      pq.StringArray `gorm:"type:text[]" json:"images"`
	Stock       int            `json:"stock"`
}
