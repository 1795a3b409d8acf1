package types

import "database/sql/driver"

// CartLineItem is a (product, quantity) pair in a user's cart.
type CartLineItem struct {
	ProductID string `json:"productId" bson:"productId"`
	Quantity  int    `json:"quantity" bson:"quantity"`
}

// CartLineItems keeps insertion order, which is also display order.
type CartLineItems []CartLineItem

// Value serializes the items to JSON.
func (c CartLineItems) Value() (driver.Value, error) {
	return jsonValue(c, "[]")
}

// Scan decodes JSON into the item slice.
func (c *CartLineItems) Scan(value interface{}) error {
	if value == nil {
		*c = nil
		return nil
	}
	var decoded CartLineItems
	if err := scanJSON(value, &decoded); err != nil {
		return err
	}
	*c = decoded
	return nil
}

// Clone returns an independent copy.
func (c CartLineItems) Clone() CartLineItems {
	if c == nil {
		return nil
	}
	out := make(CartLineItems, len(c))
	copy(out, c)
	return out
}

// Index returns the position of productID, or -1.
func (c CartLineItems) Index(productID string) int {
	for i, item := range c {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

// Quantity returns the quantity held for productID.
func (c CartLineItems) Quantity(productID string) int {
	if i := c.Index(productID); i >= 0 {
		return c[i].Quantity
	}
	return 0
}

// ProductIDs is an ordered list of product identifiers persisted as JSON.
type ProductIDs []string

// Value serializes the ids to JSON.
func (p ProductIDs) Value() (driver.Value, error) {
	return jsonValue(p, "[]")
}

// Scan decodes JSON into the id slice.
func (p *ProductIDs) Scan(value interface{}) error {
	if value == nil {
		*p = nil
		return nil
	}
	var decoded ProductIDs
	if err := scanJSON(value, &decoded); err != nil {
		return err
	}
	*p = decoded
	return nil
}

// Contains reports whether id is present.
func (p ProductIDs) Contains(id string) bool {
	for _, candidate := range p {
		if candidate == id {
			return true
		}
	}
	return false
}
