package catalog

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ArtVersex/art-verse-v1-sub000/pkg/db/models"
	pkgerrors "github.com/ArtVersex/art-verse-v1-sub000/pkg/errors"
)

// Repository reads snapshots from the products table.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetProductSnapshot(ctx context.Context, productID string) (*ProductSnapshot, error) {
	var row models.Product
	err := r.db.WithContext(ctx).Where("id = ?", productID).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product snapshot")
	}
	snapshot := snapshotFromModel(row)
	return &snapshot, nil
}

// Save upserts a product row.
func (r *Repository) Save(ctx context.Context, product models.Product) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&product).Error
}

// SetStock overwrites the stock count for productID.
func (r *Repository) SetStock(ctx context.Context, productID string, stock int) error {
	res := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", productID).Update("stock", stock)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

func snapshotFromModel(row models.Product) ProductSnapshot {
	return ProductSnapshot{
		ID:              row.ID,
		Title:           row.Title,
		Price:           row.Price,
		SalePrice:       row.SalePrice,
		Stock:           row.Stock,
		FeatureImageURL: deref(row.FeatureImageURL),
		BrandID:         deref(row.BrandID),
		CategoryID:      deref(row.CategoryID),
	}
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
