package models

import (
	"time"

	"github.com/ArtVersex/art-verse-v1-sub000/pkg/types"
)

// UserDocument is the per-user record holding cart, favorites, addresses and reviews.
type UserDocument struct {
	ID           string              `gorm:"column:id;type:text;primaryKey"`
	Cart         types.CartLineItems `gorm:"column:cart;type:jsonb;not null"`
	Favorites    types.ProductIDs    `gorm:"column:favorites;type:jsonb;not null"`
	Addresses    types.Addresses     `gorm:"column:addresses;type:jsonb;not null"`
	Reviews      types.Reviews       `gorm:"column:reviews;type:jsonb;not null"`
	Version      int64               `gorm:"column:version;not null;default:0"`
	LastModified time.Time           `gorm:"column:last_modified;not null"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
}
