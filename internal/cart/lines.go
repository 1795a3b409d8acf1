package cart

import "github.com/ArtVersex/art-verse-v1-sub000/pkg/types"

// addLine increments an existing line or appends a new one.
func addLine(items types.CartLineItems, productID string, qty int) types.CartLineItems {
	out := items.Clone()
	if i := out.Index(productID); i >= 0 {
		out[i].Quantity += qty
		return out
	}
	return append(out, types.CartLineItem{ProductID: productID, Quantity: qty})
}

// setLine replaces the quantity of an existing line. Absent lines are left alone.
func setLine(items types.CartLineItems, productID string, qty int) types.CartLineItems {
	out := items.Clone()
	if i := out.Index(productID); i >= 0 {
		out[i].Quantity = qty
	}
	return out
}

func removeLine(items types.CartLineItems, productID string) types.CartLineItems {
	out := make(types.CartLineItems, 0, len(items))
	for _, item := range items {
		if item.ProductID != productID {
			out = append(out, item)
		}
	}
	return out
}

func normalizeQuantity(qty int) int {
	if qty <= 0 {
		return 1
	}
	return qty
}
