package docstore

import (
	"context"
	"sync"
)

// Subscription streams full document snapshots. The first delivery is the
// current document; older or repeated versions are never delivered. The
// channel closes when the subscription ends.
type Subscription interface {
	Snapshots() <-chan Document
	Close() error
}

type feed struct {
	ctx      context.Context
	cancel   context.CancelFunc
	listener Listener
	out      chan Document
	done     chan struct{}

	mu        sync.Mutex
	closed    bool
	delivered bool
	last      int64

	closeOnce sync.Once
	closeErr  error
}

func subscribe(ctx context.Context, userID string, load func(context.Context, string) (*Document, error), notifier Notifier) (Subscription, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if notifier == nil {
		return nil, unavailable(errNoNotifier)
	}
	listener, err := notifier.Listen(ctx, userID)
	if err != nil {
		return nil, unavailable(err)
	}
	current, err := load(ctx, userID)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	fctx, cancel := context.WithCancel(ctx)
	f := &feed{
		ctx:      fctx,
		cancel:   cancel,
		listener: listener,
		out:      make(chan Document, 1),
		done:     make(chan struct{}),
	}
	f.offer(*current)
	go f.pump()
	return f, nil
}

func (f *feed) Snapshots() <-chan Document {
	return f.out
}

func (f *feed) Close() error {
	f.closeOnce.Do(func() {
		f.cancel()
		f.closeErr = f.listener.Close()
		<-f.done
	})
	return f.closeErr
}

func (f *feed) pump() {
	defer close(f.done)
	defer f.finish()
	updates := f.listener.C()
	for {
		select {
		case <-f.ctx.Done():
			_ = f.listener.Close()
			return
		case doc, ok := <-updates:
			if !ok {
				return
			}
			f.offer(doc)
		}
	}
}

// offer keeps at most one undelivered snapshot, always the newest.
func (f *feed) offer(doc Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	if f.delivered && doc.Version <= f.last {
		return
	}
	f.delivered = true
	f.last = doc.Version
	for {
		select {
		case f.out <- doc:
			return
		default:
		}
		select {
		case <-f.out:
		default:
		}
	}
}

func (f *feed) finish() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	close(f.out)
}
