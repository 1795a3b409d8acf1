package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ArtVersex/art-verse-v1-sub000/pkg/db/models"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/enums"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/logger"
)

// DocumentChange describes a committed user document write.
type DocumentChange struct {
	EventType  enums.OutboxEventType
	UserID     string
	Version    int64
	Snapshot   interface{}
	OccurredAt time.Time
}

type Service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg}
}

// Emit queues change inside tx so it commits or rolls back with the write.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, change DocumentChange) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if !change.EventType.IsValid() {
		return errors.New("unknown document event type " + change.EventType.String())
	}
	data, err := json.Marshal(change.Snapshot)
	if err != nil {
		return err
	}
	if change.OccurredAt.IsZero() {
		change.OccurredAt = time.Now().UTC()
	}
	envelope := PayloadEnvelope{
		Version:    EnvelopeVersion,
		EventID:    uuid.NewString(),
		OccurredAt: change.OccurredAt,
		Data:       data,
	}
	payloadJSON, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	row := models.DocumentEvent{
		ID:          uuid.New(),
		EventType:   change.EventType,
		AggregateID: change.UserID,
		Version:     change.Version,
		Payload:     string(payloadJSON),
	}
	if err := s.repo.Insert(tx, row); err != nil {
		return err
	}
	if s.logg != nil {
		fields := map[string]any{
			"event_id":     envelope.EventID,
			"event_type":   change.EventType,
			"aggregate_id": change.UserID,
			"version":      change.Version,
		}
		s.logg.Debug(s.logg.WithFields(ctx, fields), "document event queued")
	}
	return nil
}
