package cart

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/ArtVersex/art-verse-v1-sub000/internal/catalog"
	pkgerrors "github.com/ArtVersex/art-verse-v1-sub000/pkg/errors"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/logger"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/types"
)

const (
	DefaultLowStockThreshold = 5
	defaultProjectionWorkers = 8
)

// DefaultTaxRate is the flat rate applied to the subtotal.
var DefaultTaxRate = decimal.RequireFromString("0.08")

// Line is a cart line joined with its product snapshot.
type Line struct {
	ProductID     string                  `json:"productId"`
	Quantity      int                     `json:"quantity"`
	Product       catalog.ProductSnapshot `json:"product"`
	UnitPrice     decimal.Decimal         `json:"unitPrice"`
	LineValue     decimal.Decimal         `json:"lineValue"`
	LowStock      bool                    `json:"lowStock"`
	StockExceeded bool                    `json:"stockExceeded"`
}

// Totals are derived from the displayed lines only.
type Totals struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	Tax          decimal.Decimal `json:"tax"`
	Shipping     decimal.Decimal `json:"shipping"`
	Total        decimal.Decimal `json:"total"`
	ItemCount    int             `json:"itemCount"`
	ItemQuantity int             `json:"itemQuantity"`
}

// View is the display model of a cart.
type View struct {
	Lines  []Line `json:"lines"`
	Totals Totals `json:"totals"`
}

// ProjectionParams configures a Projection. A zero TaxRate falls back to
// DefaultTaxRate.
type ProjectionParams struct {
	Catalog           catalog.Catalog
	TaxRate           decimal.Decimal
	LowStockThreshold int
	Workers           int
	Logger            *logger.Logger
}

// Projection turns cart lines into a priced view. It never writes back:
// lines whose product cannot be resolved are hidden, not removed.
type Projection struct {
	catalog  catalog.Catalog
	taxRate  decimal.Decimal
	lowStock int
	workers  int
	logg     *logger.Logger
}

func NewProjection(params ProjectionParams) (*Projection, error) {
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	if params.TaxRate.IsNegative() {
		return nil, fmt.Errorf("tax rate must be non-negative")
	}
	p := &Projection{
		catalog:  params.Catalog,
		taxRate:  params.TaxRate,
		lowStock: params.LowStockThreshold,
		workers:  params.Workers,
		logg:     params.Logger,
	}
	if p.taxRate.IsZero() {
		p.taxRate = DefaultTaxRate
	}
	if p.lowStock <= 0 {
		p.lowStock = DefaultLowStockThreshold
	}
	if p.workers <= 0 {
		p.workers = defaultProjectionWorkers
	}
	if p.logg == nil {
		p.logg = logger.Nop()
	}
	return p, nil
}

// Project resolves every line concurrently and keeps the cart order.
func (p *Projection) Project(ctx context.Context, items types.CartLineItems) (*View, error) {
	resolved := make([]*Line, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			product, err := p.catalog.GetProductSnapshot(gctx, item.ProductID)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				p.logg.WarnErr(p.logg.WithProductID(gctx, item.ProductID), "cart line hidden, product lookup failed", err)
				return nil
			}
			if product == nil {
				p.logg.Debug(p.logg.WithProductID(gctx, item.ProductID), "cart line hidden, product missing")
				return nil
			}
			line := p.line(item, *product)
			resolved[i] = &line
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "project cart")
	}

	lines := make([]Line, 0, len(items))
	for _, line := range resolved {
		if line != nil {
			lines = append(lines, *line)
		}
	}
	return &View{Lines: lines, Totals: ComputeTotals(lines, p.taxRate)}, nil
}

func (p *Projection) line(item types.CartLineItem, product catalog.ProductSnapshot) Line {
	unit := product.UnitPrice()
	return Line{
		ProductID:     item.ProductID,
		Quantity:      item.Quantity,
		Product:       product,
		UnitPrice:     unit,
		LineValue:     unit.Mul(decimal.NewFromInt(int64(item.Quantity))),
		LowStock:      product.Stock <= p.lowStock,
		StockExceeded: item.Quantity > product.Stock,
	}
}

// ComputeTotals applies total = subtotal + subtotal*taxRate + shipping with
// exact decimal tax. Rounding is left to Rounded. Shipping is always zero.
func ComputeTotals(lines []Line, taxRate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	quantity := 0
	for _, line := range lines {
		subtotal = subtotal.Add(line.LineValue)
		quantity += line.Quantity
	}
	tax := subtotal.Mul(taxRate)
	shipping := decimal.Zero
	return Totals{
		Subtotal:     subtotal,
		Tax:          tax,
		Shipping:     shipping,
		Total:        subtotal.Add(tax).Add(shipping),
		ItemCount:    len(lines),
		ItemQuantity: quantity,
	}
}

// Rounded returns the totals rounded half-up to cents for display.
func (t Totals) Rounded() Totals {
	t.Subtotal = t.Subtotal.Round(2)
	t.Tax = t.Tax.Round(2)
	t.Shipping = t.Shipping.Round(2)
	t.Total = t.Total.Round(2)
	return t
}
