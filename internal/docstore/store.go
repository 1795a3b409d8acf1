package docstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ArtVersex/art-verse-v1-sub000/pkg/enums"
	pkgerrors "github.com/ArtVersex/art-verse-v1-sub000/pkg/errors"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/logger"
)

// DefaultMaxConflictRetries bounds re-evaluation after a version conflict.
const DefaultMaxConflictRetries = 5

// ErrNoChange returned from a MutateFunc skips the write.
var ErrNoChange = errors.New("docstore: no change")

// MutateFunc edits doc in place. It may run several times when concurrent
// writers race, so it must derive everything from doc.
type MutateFunc func(ctx context.Context, doc *Document) error

// Store is the remote document store: read, conditional write, subscribe.
type Store interface {
	Load(ctx context.Context, userID string) (*Document, error)
	Ensure(ctx context.Context, userID string) (*Document, error)
	ConditionalUpdate(ctx context.Context, userID string, event enums.OutboxEventType, mutate MutateFunc) (*Document, error)
	Subscribe(ctx context.Context, userID string) (Subscription, error)
}

// Options tune the conditional update loop shared by every backend.
type Options struct {
	MaxConflictRetries int
	Now                func() time.Time
	OnConflict         func(userID string)
	Logger             *logger.Logger
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{MaxConflictRetries: DefaultMaxConflictRetries}
}

func (o Options) withDefaults() Options {
	if o.MaxConflictRetries < 0 {
		o.MaxConflictRetries = 0
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = logger.Nop()
	}
	return o
}

type versionedBackend interface {
	Load(ctx context.Context, userID string) (*Document, error)
	swap(ctx context.Context, next Document, expected int64, event enums.OutboxEventType) (bool, error)
}

func conditionalUpdate(ctx context.Context, backend versionedBackend, opts Options, userID string, event enums.OutboxEventType, mutate MutateFunc) (*Document, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if mutate == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "mutate function is required")
	}
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "document update canceled")
		}
		current, err := backend.Load(ctx, userID)
		if err != nil {
			return nil, err
		}
		next := current.Clone()
		if err := mutate(ctx, &next); err != nil {
			if errors.Is(err, ErrNoChange) {
				return current, nil
			}
			return nil, err
		}
		next.ID = current.ID
		next.Version = current.Version + 1
		next.LastModified = opts.Now().UTC()

		swapped, err := backend.swap(ctx, next, current.Version, event)
		if err != nil {
			return nil, unavailable(err)
		}
		if swapped {
			return &next, nil
		}
		if opts.OnConflict != nil {
			opts.OnConflict(userID)
		}
		if attempt >= opts.MaxConflictRetries {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "document changed concurrently, retry")
		}
		opts.Logger.Debug(opts.Logger.WithFields(ctx, map[string]any{
			"user_id": userID,
			"attempt": attempt + 1,
		}), "document version conflict, re-evaluating")
	}
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return nil
}

func notFound(userID string) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "user document not found").WithDetails(map[string]any{
		"user_id": userID,
	})
}

func unavailable(err error) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "document store unavailable")
}
