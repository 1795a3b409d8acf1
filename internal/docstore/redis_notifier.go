package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ArtVersex/art-verse-v1-sub000/pkg/db/models"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/logger"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/outbox"
	pkgredis "github.com/ArtVersex/art-verse-v1-sub000/pkg/redis"
)

// RedisNotifier publishes snapshots on a per-user pub/sub channel so
// listeners in other processes see every committed write.
type RedisNotifier struct {
	client *pkgredis.Client
	logg   *logger.Logger
}

func NewRedisNotifier(client *pkgredis.Client, logg *logger.Logger) (*RedisNotifier, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &RedisNotifier{client: client, logg: logg}, nil
}

func (n *RedisNotifier) Publish(ctx context.Context, doc Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := n.client.Publish(ctx, n.client.DocumentChannel(doc.ID), payload); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	return nil
}

func (n *RedisNotifier) Listen(ctx context.Context, userID string) (Listener, error) {
	ps, err := n.client.Subscribe(ctx, n.client.DocumentChannel(userID))
	if err != nil {
		return nil, err
	}
	l := &redisListener{
		ps:   ps,
		ch:   make(chan Document, listenerBuffer),
		logg: n.logg,
		ctx:  n.logg.WithUserID(context.Background(), userID),
	}
	go l.run()
	return l, nil
}

type redisListener struct {
	ps   *goredis.PubSub
	ch   chan Document
	logg *logger.Logger
	ctx  context.Context
	once sync.Once
	err  error
}

func (l *redisListener) run() {
	defer close(l.ch)
	for msg := range l.ps.Channel() {
		var doc Document
		if err := json.Unmarshal([]byte(msg.Payload), &doc); err != nil {
			l.logg.WarnErr(l.ctx, "dropping undecodable snapshot", err)
			continue
		}
		pushLatest(l.ch, doc)
	}
}

func (l *redisListener) C() <-chan Document {
	return l.ch
}

func (l *redisListener) Close() error {
	l.once.Do(func() {
		l.err = l.ps.Close()
	})
	return l.err
}

// OutboxSink adapts a Notifier to the outbox relay.
type OutboxSink struct {
	notifier Notifier
}

func NewOutboxSink(notifier Notifier) *OutboxSink {
	return &OutboxSink{notifier: notifier}
}

func (s *OutboxSink) Deliver(ctx context.Context, event models.DocumentEvent, envelope outbox.PayloadEnvelope) error {
	var doc Document
	if err := json.Unmarshal(envelope.Data, &doc); err != nil {
		return outbox.NonRetryableError{Err: fmt.Errorf("decode snapshot: %w", err)}
	}
	if doc.ID != event.AggregateID {
		return outbox.NonRetryableError{Err: fmt.Errorf("snapshot id %q does not match aggregate %q", doc.ID, event.AggregateID)}
	}
	return s.notifier.Publish(ctx, doc)
}
