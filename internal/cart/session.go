package cart

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ArtVersex/art-verse-v1-sub000/internal/docstore"
	pkgerrors "github.com/ArtVersex/art-verse-v1-sub000/pkg/errors"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/logger"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/types"
)

// Session is one UI session's live view of a cart. It shows optimistic
// predictions while a mutation is in flight and rolls back on failure.
// Only one mutation may be pending at a time.
type Session struct {
	svc    *Service
	store  docstore.Store
	userID string
	sub    docstore.Subscription
	logg   *logger.Logger

	updates chan struct{}
	done    chan struct{}

	mu        sync.Mutex
	confirmed types.CartLineItems
	items     types.CartLineItems
	version   int64
	pending   bool
	stale     bool
	closed    bool
}

// OpenSession subscribes to userID's document and waits for the first snapshot.
func OpenSession(ctx context.Context, svc *Service, userID string) (*Session, error) {
	if svc == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	sub, err := svc.store.Subscribe(ctx, userID)
	if err != nil {
		return nil, err
	}

	var first docstore.Document
	select {
	case doc, ok := <-sub.Snapshots():
		if !ok {
			_ = sub.Close()
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "subscription ended before first snapshot")
		}
		first = doc
	case <-ctx.Done():
		_ = sub.Close()
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, ctx.Err(), "open cart session")
	}

	s := &Session{
		svc:       svc,
		store:     svc.store,
		userID:    userID,
		sub:       sub,
		logg:      svc.logg,
		updates:   make(chan struct{}, 1),
		done:      make(chan struct{}),
		confirmed: itemsOf(&first),
		items:     itemsOf(&first),
		version:   first.Version,
	}
	go s.run()
	return s, nil
}

// Items returns what the UI should show, including any pending prediction.
func (s *Session) Items() types.CartLineItems {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Clone()
}

// Version is the last authoritative document version seen.
func (s *Session) Version() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Pending reports whether a mutation is in flight.
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Stale reports whether local state must be resynced before mutating.
func (s *Session) Stale() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stale
}

// Updates signals whenever Items may have changed. Signals coalesce.
func (s *Session) Updates() <-chan struct{} {
	return s.updates
}

func (s *Session) Add(ctx context.Context, productID string, qty int) (types.CartLineItems, error) {
	productID = strings.TrimSpace(productID)
	qty = normalizeQuantity(qty)
	return s.apply(ctx,
		func(items types.CartLineItems) types.CartLineItems { return addLine(items, productID, qty) },
		func(ctx context.Context) (*docstore.Document, error) { return s.svc.add(ctx, s.userID, productID, qty) },
	)
}

func (s *Session) UpdateQuantity(ctx context.Context, productID string, qty int) (types.CartLineItems, error) {
	productID = strings.TrimSpace(productID)
	return s.apply(ctx,
		func(items types.CartLineItems) types.CartLineItems {
			if qty < 1 {
				return items
			}
			return setLine(items, productID, qty)
		},
		func(ctx context.Context) (*docstore.Document, error) {
			return s.svc.updateQuantity(ctx, s.userID, productID, qty)
		},
	)
}

func (s *Session) Remove(ctx context.Context, productID string) (types.CartLineItems, error) {
	productID = strings.TrimSpace(productID)
	return s.apply(ctx,
		func(items types.CartLineItems) types.CartLineItems { return removeLine(items, productID) },
		func(ctx context.Context) (*docstore.Document, error) { return s.svc.remove(ctx, s.userID, productID) },
	)
}

func (s *Session) Clear(ctx context.Context) (types.CartLineItems, error) {
	return s.apply(ctx,
		func(types.CartLineItems) types.CartLineItems { return types.CartLineItems{} },
		func(ctx context.Context) (*docstore.Document, error) { return s.svc.clear(ctx, s.userID) },
	)
}

// Resync replaces local state with a fresh read and clears the stale flag.
func (s *Session) Resync(ctx context.Context) error {
	doc, err := s.store.Load(ctx, s.userID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeConflict, "cart mutation already in flight")
	}
	s.accept(*doc, true)
	s.mu.Unlock()
	s.signal()
	return nil
}

// Close ends the subscription. Further mutations are rejected.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	err := s.sub.Close()
	<-s.done
	return err
}

func (s *Session) apply(
	ctx context.Context,
	predict func(types.CartLineItems) types.CartLineItems,
	call func(context.Context) (*docstore.Document, error),
) (types.CartLineItems, error) {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart session closed")
	case s.stale:
		s.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "resync required")
	case s.pending:
		s.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart mutation already in flight")
	}
	s.pending = true
	s.items = predict(s.items)
	s.mu.Unlock()
	s.signal()

	doc, err := call(ctx)

	s.mu.Lock()
	s.pending = false
	if err != nil {
		s.items = s.confirmed.Clone()
		if pkgerrors.NeedsResync(err) {
			s.stale = true
			s.logg.WarnErr(s.logg.WithUserID(ctx, s.userID), "cart session marked stale", err)
		}
		s.mu.Unlock()
		s.signal()
		return nil, err
	}
	s.accept(*doc, false)
	out := s.items.Clone()
	s.mu.Unlock()
	s.signal()
	return out, nil
}

// accept installs doc as authoritative when it is newer than what is held.
// Callers hold s.mu.
func (s *Session) accept(doc docstore.Document, force bool) {
	if !force && doc.Version <= s.version {
		if !s.pending {
			s.items = s.confirmed.Clone()
		}
		return
	}
	s.version = doc.Version
	s.confirmed = itemsOf(&doc)
	s.stale = false
	if !s.pending {
		s.items = s.confirmed.Clone()
	}
}

func (s *Session) run() {
	defer close(s.done)
	for doc := range s.sub.Snapshots() {
		s.mu.Lock()
		s.accept(doc, false)
		s.mu.Unlock()
		s.signal()
	}
}

func (s *Session) signal() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}
