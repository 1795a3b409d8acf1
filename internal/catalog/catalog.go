package catalog

import (
	"context"

	"github.com/shopspring/decimal"
)

// ProductSnapshot is the read-only view of a product the cart needs.
type ProductSnapshot struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	Price           decimal.Decimal  `json:"price"`
	SalePrice       *decimal.Decimal `json:"salePrice,omitempty"`
	Stock           int              `json:"stock"`
	FeatureImageURL string           `json:"featureImageUrl"`
	BrandID         string           `json:"brandId"`
	CategoryID      string           `json:"categoryId"`
}

// UnitPrice is the sale price when present, otherwise the list price.
func (p ProductSnapshot) UnitPrice() decimal.Decimal {
	if p.SalePrice != nil {
		return *p.SalePrice
	}
	return p.Price
}

// Clone returns a copy that shares no pointers with p.
func (p ProductSnapshot) Clone() *ProductSnapshot {
	out := p
	if p.SalePrice != nil {
		sale := *p.SalePrice
		out.SalePrice = &sale
	}
	return &out
}

// Catalog resolves product snapshots. A missing product yields (nil, nil).
type Catalog interface {
	GetProductSnapshot(ctx context.Context, productID string) (*ProductSnapshot, error)
}
