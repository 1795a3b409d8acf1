package docstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ArtVersex/art-verse-v1-sub000/pkg/db/models"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/enums"
	pkgerrors "github.com/ArtVersex/art-verse-v1-sub000/pkg/errors"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/outbox"
)

type txRunner interface {
	DB() *gorm.DB
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, change outbox.DocumentChange) error
}

// GormStore keeps documents in the user_documents table. Every write queues
// a document_events row in the same transaction; the outbox relay turns
// those rows into notifier messages.
type GormStore struct {
	db       txRunner
	events   eventEmitter
	notifier Notifier
	opts     Options
}

func NewGormStore(db txRunner, events eventEmitter, notifier Notifier, opts Options) (*GormStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database client is required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox emitter is required")
	}
	return &GormStore{db: db, events: events, notifier: notifier, opts: opts.withDefaults()}, nil
}

func (s *GormStore) Load(ctx context.Context, userID string) (*Document, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	var row models.UserDocument
	err := s.db.DB().WithContext(ctx).Where("id = ?", userID).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(userID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user document")
	}
	doc := documentFromModel(row)
	return &doc, nil
}

func (s *GormStore) Ensure(ctx context.Context, userID string) (*Document, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	doc := newDocument(userID, s.opts.Now().UTC())
	row := documentToModel(doc)
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return s.events.Emit(ctx, tx, outbox.DocumentChange{
			EventType:  enums.EventDocumentCreated,
			UserID:     userID,
			Version:    doc.Version,
			Snapshot:   doc,
			OccurredAt: doc.LastModified,
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user document")
	}
	return s.Load(ctx, userID)
}

func (s *GormStore) ConditionalUpdate(ctx context.Context, userID string, event enums.OutboxEventType, mutate MutateFunc) (*Document, error) {
	return conditionalUpdate(ctx, s, s.opts, userID, event, mutate)
}

func (s *GormStore) Subscribe(ctx context.Context, userID string) (Subscription, error) {
	return subscribe(ctx, userID, s.Load, s.notifier)
}

func (s *GormStore) swap(ctx context.Context, next Document, expected int64, event enums.OutboxEventType) (bool, error) {
	swapped := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&models.UserDocument{}).
			Where("id = ? AND version = ?", next.ID, expected).
			Updates(map[string]any{
				"cart":          next.Cart,
				"favorites":     next.Favorites,
				"addresses":     next.Addresses,
				"reviews":       next.Reviews,
				"version":       next.Version,
				"last_modified": next.LastModified,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		swapped = true
		return s.events.Emit(ctx, tx, outbox.DocumentChange{
			EventType:  event,
			UserID:     next.ID,
			Version:    next.Version,
			Snapshot:   next,
			OccurredAt: next.LastModified,
		})
	})
	if err != nil {
		return false, err
	}
	return swapped, nil
}

func documentFromModel(row models.UserDocument) Document {
	return Document{
		ID:           row.ID,
		Cart:         row.Cart,
		Favorites:    row.Favorites,
		Addresses:    row.Addresses,
		Reviews:      row.Reviews,
		Version:      row.Version,
		LastModified: row.LastModified.UTC(),
	}
}

func documentToModel(doc Document) models.UserDocument {
	return models.UserDocument{
		ID:           doc.ID,
		Cart:         doc.Cart,
		Favorites:    doc.Favorites,
		Addresses:    doc.Addresses,
		Reviews:      doc.Reviews,
		Version:      doc.Version,
		LastModified: doc.LastModified,
	}
}
