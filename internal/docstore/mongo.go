package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ArtVersex/art-verse-v1-sub000/pkg/config"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/enums"
	pkgerrors "github.com/ArtVersex/art-verse-v1-sub000/pkg/errors"
)

// ConnectMongo dials the configured deployment and verifies it responds.
func ConnectMongo(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongo uri is required")
	}
	clientOpts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(5 * time.Second)
	if cfg.MaxPoolSize > 0 {
		clientOpts.SetMaxPoolSize(cfg.MaxPoolSize)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

// MongoStore keeps one BSON document per user. Writes are ReplaceOne calls
// filtered on the expected version; committed snapshots are then handed to
// the notifier.
type MongoStore struct {
	collection *mongo.Collection
	notifier   Notifier
	opts       Options
}

func NewMongoStore(collection *mongo.Collection, notifier Notifier, opts Options) (*MongoStore, error) {
	if collection == nil {
		return nil, fmt.Errorf("mongo collection is required")
	}
	return &MongoStore{collection: collection, notifier: notifier, opts: opts.withDefaults()}, nil
}

func (s *MongoStore) Load(ctx context.Context, userID string) (*Document, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	var doc Document
	err := s.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound(userID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user document")
	}
	doc.LastModified = doc.LastModified.UTC()
	return &doc, nil
}

func (s *MongoStore) Ensure(ctx context.Context, userID string) (*Document, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	doc := newDocument(userID, s.opts.Now().UTC())
	res, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$setOnInsert": bson.M{
			"cart":         doc.Cart,
			"favorites":    doc.Favorites,
			"addresses":    doc.Addresses,
			"reviews":      doc.Reviews,
			"version":      doc.Version,
			"lastModified": doc.LastModified,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user document")
	}
	if res.UpsertedCount == 1 {
		s.notify(ctx, doc)
	}
	return s.Load(ctx, userID)
}

func (s *MongoStore) ConditionalUpdate(ctx context.Context, userID string, event enums.OutboxEventType, mutate MutateFunc) (*Document, error) {
	return conditionalUpdate(ctx, s, s.opts, userID, event, mutate)
}

func (s *MongoStore) Subscribe(ctx context.Context, userID string) (Subscription, error) {
	return subscribe(ctx, userID, s.Load, s.notifier)
}

func (s *MongoStore) swap(ctx context.Context, next Document, expected int64, event enums.OutboxEventType) (bool, error) {
	res, err := s.collection.ReplaceOne(ctx, bson.M{"_id": next.ID, "version": expected}, next)
	if err != nil {
		return false, err
	}
	if res.MatchedCount == 0 {
		return false, nil
	}
	s.notify(ctx, next)
	return true, nil
}

// notify is best effort; a subscriber that misses one catches up on the
// next snapshot.
func (s *MongoStore) notify(ctx context.Context, doc Document) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, doc); err != nil {
		logCtx := s.opts.Logger.WithUserID(ctx, doc.ID)
		s.opts.Logger.WarnErr(logCtx, "snapshot notification failed", err)
	}
}
