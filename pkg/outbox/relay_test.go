package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ArtVersex/art-verse-v1-sub000/pkg/config"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/db"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/db/models"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/enums"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.DocumentEvent{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

type fakeSink struct {
	delivered []string
	failFor   map[string]error
}

func (f *fakeSink) Deliver(ctx context.Context, event models.DocumentEvent, envelope PayloadEnvelope) error {
	if err, ok := f.failFor[event.AggregateID]; ok {
		return err
	}
	var snapshot map[string]any
	if err := json.Unmarshal(envelope.Data, &snapshot); err != nil {
		return err
	}
	f.delivered = append(f.delivered, event.AggregateID)
	return nil
}

func emit(t *testing.T, conn *gorm.DB, svc *Service, userID string, version int64) {
	t.Helper()
	err := db.NewWithConn(conn).WithTx(context.Background(), func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DocumentChange{
			EventType: enums.EventCartChanged,
			UserID:    userID,
			Version:   version,
			Snapshot:  map[string]any{"id": userID, "version": version},
		})
	})
	if err != nil {
		t.Fatalf("emit failed: %v", err)
	}
}

func newTestRelay(t *testing.T, conn *gorm.DB, sink Sink, maxAttempts int) *Relay {
	t.Helper()
	relay, err := NewRelay(RelayParams{
		Config:     config.OutboxConfig{BatchSize: 10, MaxAttempts: maxAttempts},
		Logger:     logger.Nop(),
		DB:         db.NewWithConn(conn),
		Repository: NewRepository(conn),
		Sink:       sink,
	})
	if err != nil {
		t.Fatalf("new relay: %v", err)
	}
	return relay
}

func TestEmitRejectsMissingTransaction(t *testing.T) {
	svc := NewService(NewRepository(nil), nil)
	err := svc.Emit(context.Background(), nil, DocumentChange{EventType: enums.EventCartChanged})
	if err == nil {
		t.Fatal("expected transaction required error")
	}
}

func TestRelayPublishesAndMarksRows(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	svc := NewService(repo, nil)
	emit(t, conn, svc, "user-1", 1)
	emit(t, conn, svc, "user-2", 1)

	sink := &fakeSink{}
	relay := newTestRelay(t, conn, sink, 3)

	processed, err := relay.ProcessBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if !processed {
		t.Fatal("expected batch to report processed")
	}
	if len(sink.delivered) != 2 {
		t.Fatalf("expected 2 deliveries, got %v", sink.delivered)
	}
	pending, err := repo.CountPending(3)
	if err != nil {
		t.Fatalf("count pending: %v", err)
	}
	if pending != 0 {
		t.Fatalf("expected no pending rows, got %d", pending)
	}

	processed, err = relay.ProcessBatch(context.Background())
	if err != nil {
		t.Fatalf("second batch: %v", err)
	}
	if processed {
		t.Fatal("expected empty second batch")
	}
}

func TestRelayContinuesAfterFailureAndParksExhaustedRows(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	svc := NewService(repo, nil)
	emit(t, conn, svc, "broken", 1)
	emit(t, conn, svc, "healthy", 1)

	sink := &fakeSink{failFor: map[string]error{"broken": errors.New("redis down")}}
	relay := newTestRelay(t, conn, sink, 2)

	if _, err := relay.ProcessBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if len(sink.delivered) != 1 || sink.delivered[0] != "healthy" {
		t.Fatalf("unexpected deliveries %v", sink.delivered)
	}

	var row models.DocumentEvent
	if err := conn.Where("aggregate_id = ?", "broken").First(&row).Error; err != nil {
		t.Fatalf("load failed row: %v", err)
	}
	if row.AttemptCount != 1 || row.LastError == nil {
		t.Fatalf("expected one recorded attempt, got %+v", row)
	}

	if _, err := relay.ProcessBatch(context.Background()); err != nil {
		t.Fatalf("second batch: %v", err)
	}
	pending, err := repo.CountPending(2)
	if err != nil {
		t.Fatalf("count pending: %v", err)
	}
	if pending != 0 {
		t.Fatalf("exhausted row should no longer be pending, got %d", pending)
	}
}

func TestRelayParksUndecodablePayload(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	if err := repo.Insert(conn, models.DocumentEvent{
		ID:          uuid.New(),
		EventType:   enums.EventCartChanged,
		AggregateID: "user-1",
		Version:     1,
		Payload:     "not json",
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	sink := &fakeSink{}
	relay := newTestRelay(t, conn, sink, 5)
	if _, err := relay.ProcessBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if len(sink.delivered) != 0 {
		t.Fatalf("undecodable row must not be delivered")
	}
	pending, err := repo.CountPending(5)
	if err != nil {
		t.Fatalf("count pending: %v", err)
	}
	if pending != 0 {
		t.Fatalf("expected row parked, got %d pending", pending)
	}
}

func TestNewRelayRequiresDependencies(t *testing.T) {
	if _, err := NewRelay(RelayParams{}); err == nil {
		t.Fatal("expected error without dependencies")
	}
}

func TestNextBackoffCaps(t *testing.T) {
	if got := nextBackoff(8*maxBackoff, maxBackoff, maxBackoff); got != maxBackoff {
		t.Fatalf("expected cap, got %v", got)
	}
	if got := nextBackoff(0, 100, maxBackoff); got != 200 {
		t.Fatalf("expected doubled base, got %v", got)
	}
}
