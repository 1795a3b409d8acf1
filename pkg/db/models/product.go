package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the catalog row the cart reads price and stock from.
type Product struct {
	ID              string           `gorm:"column:id;type:text;primaryKey"`
	Title           string           `gorm:"column:title;not null"`
	Price           decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	SalePrice       *decimal.Decimal `gorm:"column:sale_price;type:numeric(12,2)"`
	Stock           int              `gorm:"column:stock;not null;default:0"`
	FeatureImageURL *string          `gorm:"column:feature_image_url"`
	BrandID         *string          `gorm:"column:brand_id"`
	CategoryID      *string          `gorm:"column:category_id"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
