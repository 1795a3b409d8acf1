package favorites

import (
	"context"
	"fmt"
	"strings"

	"github.com/ArtVersex/art-verse-v1-sub000/internal/catalog"
	"github.com/ArtVersex/art-verse-v1-sub000/internal/docstore"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/enums"
	pkgerrors "github.com/ArtVersex/art-verse-v1-sub000/pkg/errors"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/logger"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/types"
)

// ServiceParams groups dependencies for the favorites service.
type ServiceParams struct {
	Store   docstore.Store
	Catalog catalog.Catalog
	Logger  *logger.Logger
}

// Service keeps the user's favorite products in insertion order.
type Service struct {
	store   docstore.Store
	catalog catalog.Catalog
	logg    *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("document store required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{store: params.Store, catalog: params.Catalog, logg: logg}, nil
}

// Add ensures the product exists and marks it favorite. Adding twice is a no-op.
func (s *Service) Add(ctx context.Context, userID, productID string) (types.ProductIDs, error) {
	productID = strings.TrimSpace(productID)
	if err := validate(userID, productID); err != nil {
		return nil, err
	}
	ctx = s.logg.WithProductID(s.logg.WithUserID(ctx, userID), productID)

	product, err := s.catalog.GetProductSnapshot(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	doc, err := s.store.ConditionalUpdate(ctx, userID, enums.EventFavoritesChanged, func(ctx context.Context, doc *docstore.Document) error {
		if doc.Favorites.Contains(productID) {
			return docstore.ErrNoChange
		}
		doc.Favorites = append(doc.Favorites, productID)
		return nil
	})
	if err != nil {
		s.logg.WarnErr(ctx, "favorite add failed", err)
		return nil, err
	}
	return favoritesOf(doc), nil
}

// Remove drops the favorite regardless of prior state.
func (s *Service) Remove(ctx context.Context, userID, productID string) (types.ProductIDs, error) {
	productID = strings.TrimSpace(productID)
	if err := validate(userID, productID); err != nil {
		return nil, err
	}
	ctx = s.logg.WithProductID(s.logg.WithUserID(ctx, userID), productID)

	doc, err := s.store.ConditionalUpdate(ctx, userID, enums.EventFavoritesChanged, func(ctx context.Context, doc *docstore.Document) error {
		if !doc.Favorites.Contains(productID) {
			return docstore.ErrNoChange
		}
		next := make(types.ProductIDs, 0, len(doc.Favorites)-1)
		for _, id := range doc.Favorites {
			if id != productID {
				next = append(next, id)
			}
		}
		doc.Favorites = next
		return nil
	})
	if err != nil {
		s.logg.WarnErr(ctx, "favorite remove failed", err)
		return nil, err
	}
	return favoritesOf(doc), nil
}

func (s *Service) List(ctx context.Context, userID string) (types.ProductIDs, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	doc, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return favoritesOf(doc), nil
}

func validate(userID, productID string) error {
	if strings.TrimSpace(userID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if productID == "" {
		return pkgerrors.Validation(pkgerrors.FieldErrors{"productId": "is required"})
	}
	return nil
}

func favoritesOf(doc *docstore.Document) types.ProductIDs {
	out := types.ProductIDs{}
	if doc != nil {
		out = append(out, doc.Favorites...)
	}
	return out
}
