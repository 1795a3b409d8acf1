package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ArtVersex/art-verse-v1-sub000/pkg/enums"
)

// DocumentEvent is an outbox row written in the same transaction as a
// user document change.
type DocumentEvent struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	EventType    enums.OutboxEventType `gorm:"column:event_type;type:text;not null"`
	AggregateID  string                `gorm:"column:aggregate_id;type:text;not null;index:document_events_aggregate_idx"`
	Version      int64                 `gorm:"column:version;not null"`
	Payload      string                `gorm:"column:payload;type:jsonb;not null"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime"`
	PublishedAt  *time.Time            `gorm:"column:published_at"`
	AttemptCount int                   `gorm:"column:attempt_count;not null;default:0"`
	LastError    *string               `gorm:"column:last_error"`
}
