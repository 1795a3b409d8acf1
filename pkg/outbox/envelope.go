package outbox

import (
	"encoding/json"
	"time"
)

// EnvelopeVersion is the current payload schema version.
const EnvelopeVersion = 1

// PayloadEnvelope is the stable payload structure stored in document_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data"`
}

// DecodeEnvelope parses a stored payload.
func DecodeEnvelope(payload string) (PayloadEnvelope, error) {
	var envelope PayloadEnvelope
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		return PayloadEnvelope{}, err
	}
	return envelope, nil
}
