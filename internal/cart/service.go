package cart

import (
	"context"
	"fmt"
	"strings"

	"github.com/ArtVersex/art-verse-v1-sub000/internal/catalog"
	"github.com/ArtVersex/art-verse-v1-sub000/internal/docstore"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/enums"
	pkgerrors "github.com/ArtVersex/art-verse-v1-sub000/pkg/errors"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/logger"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/metrics"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/types"
)

const (
	opAdd    = "add"
	opUpdate = "update_quantity"
	opRemove = "remove"
	opClear  = "clear"
)

// ServiceParams wires the cart store collaborators. Catalog must read stock
// from the source of truth, never from a cache.
type ServiceParams struct {
	Store   docstore.Store
	Catalog catalog.Catalog
	Logger  *logger.Logger
	Metrics *metrics.CartMetrics
}

// Service owns every mutation of a user's cart lines.
type Service struct {
	store   docstore.Store
	catalog catalog.Catalog
	logg    *logger.Logger
	metrics *metrics.CartMetrics
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
	return &Service{
		store:   params.Store,
		catalog: params.Catalog,
		logg:    logg,
		metrics: params.Metrics,
	}, nil
}

// ConflictCounter adapts CartMetrics to docstore.Options.OnConflict.
func ConflictCounter(m *metrics.CartMetrics) func(userID string) {
	return func(string) { m.IncConflict() }
}

// Add puts qty units of productID in the cart, merging with an existing line.
// A non-positive qty counts as one.
func (s *Service) Add(ctx context.Context, userID, productID string, qty int) (types.CartLineItems, error) {
	doc, err := s.add(ctx, userID, productID, qty)
	if err != nil {
		return nil, err
	}
	return itemsOf(doc), nil
}

// UpdateQuantity replaces the quantity of an existing line.
func (s *Service) UpdateQuantity(ctx context.Context, userID, productID string, qty int) (types.CartLineItems, error) {
	doc, err := s.updateQuantity(ctx, userID, productID, qty)
	if err != nil {
		return nil, err
	}
	return itemsOf(doc), nil
}

// Remove drops the line for productID. Removing an absent line is a no-op.
func (s *Service) Remove(ctx context.Context, userID, productID string) (types.CartLineItems, error) {
	doc, err := s.remove(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	return itemsOf(doc), nil
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, userID string) (types.CartLineItems, error) {
	doc, err := s.clear(ctx, userID)
	if err != nil {
		return nil, err
	}
	return itemsOf(doc), nil
}

// Items returns the authoritative line list.
func (s *Service) Items(ctx context.Context, userID string) (types.CartLineItems, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	doc, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return itemsOf(doc), nil
}

func (s *Service) add(ctx context.Context, userID, productID string, qty int) (*docstore.Document, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	productID = strings.TrimSpace(productID)
	qty = normalizeQuantity(qty)
	ctx = s.scope(ctx, userID, productID)
	if productID == "" {
		return s.finish(ctx, opAdd, nil, requireProduct())
	}

	doc, err := s.store.ConditionalUpdate(ctx, userID, enums.EventCartChanged, func(ctx context.Context, doc *docstore.Document) error {
		product, err := s.freshProduct(ctx, productID)
		if err != nil {
			return err
		}
		if resulting := doc.Cart.Quantity(productID) + qty; resulting > product.Stock {
			return pkgerrors.StockExceeded(product.Stock)
		}
		doc.Cart = addLine(doc.Cart, productID, qty)
		return nil
	})
	return s.finish(ctx, opAdd, doc, err)
}

func (s *Service) updateQuantity(ctx context.Context, userID, productID string, qty int) (*docstore.Document, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	productID = strings.TrimSpace(productID)
	ctx = s.scope(ctx, userID, productID)
	if productID == "" {
		return s.finish(ctx, opUpdate, nil, requireProduct())
	}
	if qty < 1 {
		return s.finish(ctx, opUpdate, nil, pkgerrors.Validation(pkgerrors.FieldErrors{"quantity": "must be at least 1"}))
	}

	doc, err := s.store.ConditionalUpdate(ctx, userID, enums.EventCartChanged, func(ctx context.Context, doc *docstore.Document) error {
		i := doc.Cart.Index(productID)
		if i < 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
		}
		product, err := s.freshProduct(ctx, productID)
		if err != nil {
			return err
		}
		if qty > product.Stock {
			return pkgerrors.StockExceeded(product.Stock)
		}
		if doc.Cart[i].Quantity == qty {
			return docstore.ErrNoChange
		}
		doc.Cart = setLine(doc.Cart, productID, qty)
		return nil
	})
	return s.finish(ctx, opUpdate, doc, err)
}

func (s *Service) remove(ctx context.Context, userID, productID string) (*docstore.Document, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	productID = strings.TrimSpace(productID)
	ctx = s.scope(ctx, userID, productID)

	doc, err := s.store.ConditionalUpdate(ctx, userID, enums.EventCartChanged, func(ctx context.Context, doc *docstore.Document) error {
		if doc.Cart.Index(productID) < 0 {
			return docstore.ErrNoChange
		}
		doc.Cart = removeLine(doc.Cart, productID)
		return nil
	})
	return s.finish(ctx, opRemove, doc, err)
}

func (s *Service) clear(ctx context.Context, userID string) (*docstore.Document, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	ctx = s.logg.WithUserID(ctx, userID)

	doc, err := s.store.ConditionalUpdate(ctx, userID, enums.EventCartChanged, func(ctx context.Context, doc *docstore.Document) error {
		if len(doc.Cart) == 0 {
			return docstore.ErrNoChange
		}
		doc.Cart = types.CartLineItems{}
		return nil
	})
	return s.finish(ctx, opClear, doc, err)
}

// freshProduct reads the product from the uncached catalog.
func (s *Service) freshProduct(ctx context.Context, productID string) (*catalog.ProductSnapshot, error) {
	product, err := s.catalog.GetProductSnapshot(ctx, productID)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product snapshot")
	}
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func (s *Service) scope(ctx context.Context, userID, productID string) context.Context {
	ctx = s.logg.WithUserID(ctx, userID)
	if productID != "" {
		ctx = s.logg.WithProductID(ctx, productID)
	}
	return ctx
}

func (s *Service) finish(ctx context.Context, op string, doc *docstore.Document, err error) (*docstore.Document, error) {
	ctx = s.logg.WithField(ctx, "op", op)
	if err == nil {
		s.metrics.IncMutation(op, metrics.ResultOK)
		s.logg.Debug(s.logg.WithField(ctx, "version", doc.Version), "cart updated")
		return doc, nil
	}
	if rejected(err) {
		s.metrics.IncMutation(op, metrics.ResultRejected)
		s.logg.WarnErr(ctx, "cart mutation rejected", err)
		return nil, err
	}
	s.metrics.IncMutation(op, metrics.ResultError)
	s.logg.Error(s.logg.WithField(ctx, "error_dump", pkgerrors.Dump(err)), "cart mutation failed", err)
	return nil, err
}

func rejected(err error) bool {
	switch pkgerrors.CodeOf(err) {
	case pkgerrors.CodeValidation, pkgerrors.CodeStockExceeded, pkgerrors.CodeNotFound, pkgerrors.CodeUnauthorized:
		return true
	default:
		return false
	}
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return nil
}

func requireProduct() error {
	return pkgerrors.Validation(pkgerrors.FieldErrors{"productId": "is required"})
}

func itemsOf(doc *docstore.Document) types.CartLineItems {
	if doc == nil || doc.Cart == nil {
		return types.CartLineItems{}
	}
	return doc.Cart.Clone()
}
