package types

import (
	"database/sql/driver"
	"time"
)

// Review is carried on the user document; the cart core never edits it.
type Review struct {
	ID        string    `json:"id" bson:"id"`
	ProductID string    `json:"productId" bson:"productId"`
	Rating    int       `json:"rating" bson:"rating"`
	Body      string    `json:"body" bson:"body"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Reviews persists as JSON.
type Reviews []Review

// Value serializes the reviews to JSON.
func (r Reviews) Value() (driver.Value, error) {
	return jsonValue(r, "[]")
}

// Scan decodes JSON into the review slice.
func (r *Reviews) Scan(value interface{}) error {
	if value == nil {
		*r = nil
		return nil
	}
	var decoded Reviews
	if err := scanJSON(value, &decoded); err != nil {
		return err
	}
	*r = decoded
	return nil
}
