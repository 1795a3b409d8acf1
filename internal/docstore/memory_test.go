package docstore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ArtVersex/art-verse-v1-sub000/pkg/enums"
	pkgerrors "github.com/ArtVersex/art-verse-v1-sub000/pkg/errors"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/types"
)

func addOne(productID string) MutateFunc {
	return func(ctx context.Context, doc *Document) error {
		if i := doc.Cart.Index(productID); i >= 0 {
			doc.Cart[i].Quantity++
			return nil
		}
		doc.Cart = append(doc.Cart, types.CartLineItem{ProductID: productID, Quantity: 1})
		return nil
	}
}

func TestMemoryStoreEnsureIsIdempotent(t *testing.T) {
	store := NewMemoryStore(DefaultOptions())
	ctx := context.Background()

	first, err := store.Ensure(ctx, "user-1")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if first.Version != 1 || first.Cart == nil {
		t.Fatalf("unexpected new document %+v", first)
	}
	if _, err := store.ConditionalUpdate(ctx, "user-1", enums.EventCartChanged, addOne("p1")); err != nil {
		t.Fatalf("update: %v", err)
	}
	again, err := store.Ensure(ctx, "user-1")
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if again.Version != 2 || len(again.Cart) != 1 {
		t.Fatalf("ensure must not reset an existing document, got %+v", again)
	}
}

func TestMemoryStoreLoadMissing(t *testing.T) {
	store := NewMemoryStore(DefaultOptions())
	_, err := store.Load(context.Background(), "ghost")
	if pkgerrors.CodeOf(err) != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if !pkgerrors.NeedsResync(err) {
		t.Fatalf("not found should require resync")
	}
}

func TestMemoryStoreRequiresUser(t *testing.T) {
	store := NewMemoryStore(DefaultOptions())
	_, err := store.ConditionalUpdate(context.Background(), " ", enums.EventCartChanged, addOne("p1"))
	if pkgerrors.CodeOf(err) != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestConditionalUpdateBumpsVersionAndStamps(t *testing.T) {
	store := NewMemoryStore(DefaultOptions())
	ctx := context.Background()
	created, _ := store.Ensure(ctx, "user-1")

	updated, err := store.ConditionalUpdate(ctx, "user-1", enums.EventCartChanged, addOne("p1"))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Version != created.Version+1 {
		t.Fatalf("expected version %d, got %d", created.Version+1, updated.Version)
	}
	if updated.LastModified.Before(created.LastModified) {
		t.Fatalf("lastModified must move forward")
	}
}

func TestConditionalUpdateNoChangeSkipsWrite(t *testing.T) {
	store := NewMemoryStore(DefaultOptions())
	ctx := context.Background()
	created, _ := store.Ensure(ctx, "user-1")

	doc, err := store.ConditionalUpdate(ctx, "user-1", enums.EventCartChanged, func(ctx context.Context, doc *Document) error {
		return ErrNoChange
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if doc.Version != created.Version {
		t.Fatalf("no-op must not bump version")
	}
}

func TestConditionalUpdatePropagatesMutationError(t *testing.T) {
	store := NewMemoryStore(DefaultOptions())
	ctx := context.Background()
	store.Ensure(ctx, "user-1")

	_, err := store.ConditionalUpdate(ctx, "user-1", enums.EventCartChanged, func(ctx context.Context, doc *Document) error {
		doc.Cart = append(doc.Cart, types.CartLineItem{ProductID: "leak", Quantity: 1})
		return pkgerrors.StockExceeded(0)
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeStockExceeded {
		t.Fatalf("expected stock error, got %v", err)
	}
	doc, _ := store.Load(ctx, "user-1")
	if len(doc.Cart) != 0 {
		t.Fatalf("rejected mutation must not be written, got %+v", doc.Cart)
	}
}

func TestConditionalUpdateConcurrentIncrementsNeverLoseUpdates(t *testing.T) {
	conflicts := 0
	var mu sync.Mutex
	store := NewMemoryStore(Options{
		MaxConflictRetries: 100,
		OnConflict: func(string) {
			mu.Lock()
			conflicts++
			mu.Unlock()
		},
	})
	ctx := context.Background()
	store.Ensure(ctx, "user-1")

	const writers = 25
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.ConditionalUpdate(ctx, "user-1", enums.EventCartChanged, addOne("p1")); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("unexpected update error: %v", err)
	}

	doc, _ := store.Load(ctx, "user-1")
	if got := doc.Cart.Quantity("p1"); got != writers {
		t.Fatalf("expected quantity %d, got %d", writers, got)
	}
	if doc.Version != int64(writers)+1 {
		t.Fatalf("expected version %d, got %d", writers+1, doc.Version)
	}
}

func TestConditionalUpdateGivesUpAfterRetries(t *testing.T) {
	store := NewMemoryStore(Options{MaxConflictRetries: 2})
	ctx := context.Background()
	store.Ensure(ctx, "user-1")

	attempts := 0
	_, err := store.ConditionalUpdate(ctx, "user-1", enums.EventCartChanged, func(ctx context.Context, doc *Document) error {
		attempts++
		competing := doc.Clone()
		competing.Favorites = append(competing.Favorites, "other-session")
		store.Put(ctx, competing)
		return nil
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict after retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestConditionalUpdateWrapsBackendFailure(t *testing.T) {
	store := NewMemoryStore(DefaultOptions())
	ctx := context.Background()
	store.Ensure(ctx, "user-1")
	store.FailNextWrite(errors.New("network partition"))

	_, err := store.ConditionalUpdate(ctx, "user-1", enums.EventCartChanged, addOne("p1"))
	if pkgerrors.CodeOf(err) != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if !pkgerrors.NeedsResync(err) {
		t.Fatalf("remote failure should require resync")
	}
}

func TestDocumentCloneIsDeep(t *testing.T) {
	doc := Document{
		ID:        "user-1",
		Cart:      types.CartLineItems{{ProductID: "p1", Quantity: 1}},
		Favorites: types.ProductIDs{"p9"},
		Addresses: types.Addresses{{ID: "a1", Name: "Ada"}},
	}
	clone := doc.Clone()
	clone.Cart[0].Quantity = 7
	clone.Favorites[0] = "changed"
	clone.Addresses[0].Name = "Grace"

	if doc.Cart[0].Quantity != 1 || doc.Favorites[0] != "p9" || doc.Addresses[0].Name != "Ada" {
		t.Fatalf("clone shares state with original: %+v", doc)
	}
}
