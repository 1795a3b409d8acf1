package address

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ArtVersex/art-verse-v1-sub000/internal/docstore"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/enums"
	pkgerrors "github.com/ArtVersex/art-verse-v1-sub000/pkg/errors"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/logger"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/types"
)

// Book manages a user's saved addresses. At most one address is default;
// any write that sets a default clears the others in the same write.
type Book struct {
	store docstore.Store
	logg  *logger.Logger
	newID func() string
}

func NewBook(store docstore.Store, logg *logger.Logger) (*Book, error) {
	if store == nil {
		return nil, fmt.Errorf("document store required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Book{store: store, logg: logg, newID: uuid.NewString}, nil
}

func (b *Book) Add(ctx context.Context, userID string, input Input) (types.Address, error) {
	if err := requireUser(userID); err != nil {
		return types.Address{}, err
	}
	addr, err := input.toAddress(b.newID())
	if err != nil {
		return types.Address{}, err
	}
	ctx = b.logg.WithAddressID(b.logg.WithUserID(ctx, userID), addr.ID)

	doc, err := b.store.ConditionalUpdate(ctx, userID, enums.EventAddressesChanged, func(ctx context.Context, doc *docstore.Document) error {
		next := addr.Clone()
		if input.DefaultIfFirst && len(doc.Addresses) == 0 {
			next.IsDefault = true
		}
		if next.IsDefault {
			clearDefaults(doc.Addresses)
		}
		doc.Addresses = append(doc.Addresses, next)
		return nil
	})
	if err != nil {
		b.logg.WarnErr(ctx, "address add failed", err)
		return types.Address{}, err
	}
	b.logg.Info(ctx, "address added")
	return savedAddress(doc, addr.ID)
}

// Update applies patch to a saved address. The result must still carry
// every required field.
func (b *Book) Update(ctx context.Context, userID, addressID string, patch Patch) (types.Address, error) {
	if err := requireUser(userID); err != nil {
		return types.Address{}, err
	}
	ctx = b.logg.WithAddressID(b.logg.WithUserID(ctx, userID), addressID)

	doc, err := b.store.ConditionalUpdate(ctx, userID, enums.EventAddressesChanged, func(ctx context.Context, doc *docstore.Document) error {
		i := doc.Addresses.Index(addressID)
		if i < 0 {
			return addressNotFound(addressID)
		}
		next, err := patch.apply(inputFrom(doc.Addresses[i])).toAddress(addressID)
		if err != nil {
			return err
		}
		if next.IsDefault {
			clearDefaults(doc.Addresses)
		}
		doc.Addresses[i] = next
		return nil
	})
	if err != nil {
		b.logg.WarnErr(ctx, "address update failed", err)
		return types.Address{}, err
	}
	return savedAddress(doc, addressID)
}

// Remove deletes a saved address. Removing an unknown id is a no-op.
func (b *Book) Remove(ctx context.Context, userID, addressID string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	ctx = b.logg.WithAddressID(b.logg.WithUserID(ctx, userID), addressID)

	_, err := b.store.ConditionalUpdate(ctx, userID, enums.EventAddressesChanged, func(ctx context.Context, doc *docstore.Document) error {
		i := doc.Addresses.Index(addressID)
		if i < 0 {
			return docstore.ErrNoChange
		}
		doc.Addresses = append(doc.Addresses[:i], doc.Addresses[i+1:]...)
		return nil
	})
	if err != nil {
		b.logg.WarnErr(ctx, "address remove failed", err)
	}
	return err
}

// SetDefault makes addressID the only default address.
func (b *Book) SetDefault(ctx context.Context, userID, addressID string) (types.Address, error) {
	if err := requireUser(userID); err != nil {
		return types.Address{}, err
	}
	ctx = b.logg.WithAddressID(b.logg.WithUserID(ctx, userID), addressID)

	doc, err := b.store.ConditionalUpdate(ctx, userID, enums.EventAddressesChanged, func(ctx context.Context, doc *docstore.Document) error {
		i := doc.Addresses.Index(addressID)
		if i < 0 {
			return addressNotFound(addressID)
		}
		if doc.Addresses[i].IsDefault && doc.Addresses.DefaultCount() == 1 {
			return docstore.ErrNoChange
		}
		clearDefaults(doc.Addresses)
		doc.Addresses[i].IsDefault = true
		return nil
	})
	if err != nil {
		b.logg.WarnErr(ctx, "set default address failed", err)
		return types.Address{}, err
	}
	return savedAddress(doc, addressID)
}

func (b *Book) List(ctx context.Context, userID string) (types.Addresses, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	doc, err := b.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if doc.Addresses == nil {
		return types.Addresses{}, nil
	}
	return doc.Addresses.Clone(), nil
}

// GetDefault returns the default address, or nil when none is set.
func (b *Book) GetDefault(ctx context.Context, userID string) (*types.Address, error) {
	addrs, err := b.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return DefaultOf(addrs), nil
}

// ByType lists addresses usable for want, including those of type both.
func (b *Book) ByType(ctx context.Context, userID string, want enums.AddressType) (types.Addresses, error) {
	if !want.IsValid() {
		return nil, pkgerrors.Validation(pkgerrors.FieldErrors{"type": "must be one of: shipping billing both"})
	}
	addrs, err := b.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return FilterByType(addrs, want), nil
}

// DefaultOf returns a copy of the first default address, or nil.
func DefaultOf(addrs types.Addresses) *types.Address {
	for _, addr := range addrs {
		if addr.IsDefault {
			out := addr.Clone()
			return &out
		}
	}
	return nil
}

func FilterByType(addrs types.Addresses, want enums.AddressType) types.Addresses {
	out := types.Addresses{}
	for _, addr := range addrs {
		if addr.Type.Serves(want) {
			out = append(out, addr.Clone())
		}
	}
	return out
}

func clearDefaults(addrs types.Addresses) {
	for i := range addrs {
		addrs[i].IsDefault = false
	}
}

func savedAddress(doc *docstore.Document, addressID string) (types.Address, error) {
	i := doc.Addresses.Index(addressID)
	if i < 0 {
		return types.Address{}, addressNotFound(addressID)
	}
	return doc.Addresses[i].Clone(), nil
}

func addressNotFound(addressID string) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "address not found").WithDetails(map[string]any{
		"address_id": addressID,
	})
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return nil
}
