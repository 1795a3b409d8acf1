package docstore

import (
	"time"

	"github.com/ArtVersex/art-verse-v1-sub000/pkg/types"
)

// Document is the per-user record shared by the cart, address book and
// favorites. Version grows by one on every committed write.
type Document struct {
	ID           string              `json:"id" bson:"_id"`
	Cart         types.CartLineItems `json:"cart" bson:"cart"`
	Favorites    types.ProductIDs    `json:"favorites" bson:"favorites"`
	Addresses    types.Addresses     `json:"addresses" bson:"addresses"`
	Reviews      types.Reviews       `json:"reviews" bson:"reviews"`
	Version      int64               `json:"version" bson:"version"`
	LastModified time.Time           `json:"lastModified" bson:"lastModified"`
}

// Clone returns a deep copy so mutations never leak into shared state.
func (d Document) Clone() Document {
	out := d
	out.Cart = d.Cart.Clone()
	out.Addresses = d.Addresses.Clone()
	if d.Favorites != nil {
		out.Favorites = append(types.ProductIDs{}, d.Favorites...)
	}
	if d.Reviews != nil {
		out.Reviews = append(types.Reviews{}, d.Reviews...)
	}
	return out
}

func newDocument(userID string, now time.Time) Document {
	return Document{
		ID:           userID,
		Cart:         types.CartLineItems{},
		Favorites:    types.ProductIDs{},
		Addresses:    types.Addresses{},
		Reviews:      types.Reviews{},
		Version:      1,
		LastModified: now,
	}
}
