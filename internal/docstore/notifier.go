package docstore

import (
	"context"
	"errors"
	"sync"
)

const listenerBuffer = 16

var errNoNotifier = errors.New("live subscriptions require a notifier")

// Notifier fans committed snapshots out to listeners of the same user.
type Notifier interface {
	Publish(ctx context.Context, doc Document) error
	Listen(ctx context.Context, userID string) (Listener, error)
}

// Listener receives snapshots for one user. Close is idempotent.
type Listener interface {
	C() <-chan Document
	Close() error
}

// Hub is the in-process Notifier.
type Hub struct {
	mu        sync.RWMutex
	listeners map[string]map[*hubListener]struct{}
}

func NewHub() *Hub {
	return &Hub{listeners: make(map[string]map[*hubListener]struct{})}
}

func (h *Hub) Publish(ctx context.Context, doc Document) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for l := range h.listeners[doc.ID] {
		pushLatest(l.ch, doc.Clone())
	}
	return nil
}

func (h *Hub) Listen(ctx context.Context, userID string) (Listener, error) {
	l := &hubListener{hub: h, userID: userID, ch: make(chan Document, listenerBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.listeners[userID]
	if !ok {
		set = make(map[*hubListener]struct{})
		h.listeners[userID] = set
	}
	set[l] = struct{}{}
	return l, nil
}

// Listeners reports how many listeners are attached for userID.
func (h *Hub) Listeners(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners[userID])
}

type hubListener struct {
	hub    *Hub
	userID string
	ch     chan Document
	once   sync.Once
}

func (l *hubListener) C() <-chan Document {
	return l.ch
}

func (l *hubListener) Close() error {
	l.once.Do(func() {
		l.hub.mu.Lock()
		defer l.hub.mu.Unlock()
		if set, ok := l.hub.listeners[l.userID]; ok {
			delete(set, l)
			if len(set) == 0 {
				delete(l.hub.listeners, l.userID)
			}
		}
		close(l.ch)
	})
	return nil
}

// pushLatest never blocks; when the buffer is full the oldest snapshot is
// discarded since a newer one supersedes it.
func pushLatest(ch chan Document, doc Document) {
	for {
		select {
		case ch <- doc:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
