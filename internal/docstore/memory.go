package docstore

import (
	"context"
	"sync"

	"github.com/ArtVersex/art-verse-v1-sub000/pkg/enums"
)

// MemoryStore keeps documents in process. Used by tests and local tooling.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string]Document
	hub  *Hub
	opts Options

	// failNext makes the next write fail; tests use it to simulate outages.
	failNext error
}

func NewMemoryStore(opts Options) *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]Document),
		hub:  NewHub(),
		opts: opts.withDefaults(),
	}
}

// Hub exposes the in-process notifier.
func (s *MemoryStore) Hub() *Hub {
	return s.hub
}

// FailNextWrite makes the next conditional write return err.
func (s *MemoryStore) FailNextWrite(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

// Put replaces a document wholesale, bumping its version. Tests use it to
// simulate writes from another session.
func (s *MemoryStore) Put(ctx context.Context, doc Document) Document {
	s.mu.Lock()
	current, ok := s.docs[doc.ID]
	if ok {
		doc.Version = current.Version + 1
	} else if doc.Version == 0 {
		doc.Version = 1
	}
	doc.LastModified = s.opts.Now().UTC()
	s.docs[doc.ID] = doc.Clone()
	s.mu.Unlock()
	_ = s.hub.Publish(ctx, doc)
	return doc
}

func (s *MemoryStore) Load(ctx context.Context, userID string) (*Document, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[userID]
	if !ok {
		return nil, notFound(userID)
	}
	out := doc.Clone()
	return &out, nil
}

func (s *MemoryStore) Ensure(ctx context.Context, userID string) (*Document, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	doc, ok := s.docs[userID]
	created := false
	if !ok {
		doc = newDocument(userID, s.opts.Now().UTC())
		s.docs[userID] = doc
		created = true
	}
	out := doc.Clone()
	s.mu.Unlock()
	if created {
		_ = s.hub.Publish(ctx, out)
	}
	return &out, nil
}

func (s *MemoryStore) ConditionalUpdate(ctx context.Context, userID string, event enums.OutboxEventType, mutate MutateFunc) (*Document, error) {
	return conditionalUpdate(ctx, s, s.opts, userID, event, mutate)
}

func (s *MemoryStore) Subscribe(ctx context.Context, userID string) (Subscription, error) {
	return subscribe(ctx, userID, s.Load, s.hub)
}

func (s *MemoryStore) swap(ctx context.Context, next Document, expected int64, event enums.OutboxEventType) (bool, error) {
	s.mu.Lock()
	if err := s.failNext; err != nil {
		s.failNext = nil
		s.mu.Unlock()
		return false, err
	}
	current, ok := s.docs[next.ID]
	if !ok {
		s.mu.Unlock()
		return false, notFound(next.ID)
	}
	if current.Version != expected {
		s.mu.Unlock()
		return false, nil
	}
	s.docs[next.ID] = next.Clone()
	s.mu.Unlock()
	_ = s.hub.Publish(ctx, next)
	return true, nil
}
