package enums

import "fmt"

// OutboxEventType tags why a user document changed.
type OutboxEventType string

const (
	EventDocumentCreated  OutboxEventType = "document_created"
	EventCartChanged      OutboxEventType = "cart_changed"
	EventAddressesChanged OutboxEventType = "addresses_changed"
	EventFavoritesChanged OutboxEventType = "favorites_changed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventDocumentCreated,
	EventCartChanged,
	EventAddressesChanged,
	EventFavoritesChanged,
}

// String implements fmt.Stringer.
func (e OutboxEventType) String() string {
	return string(e)
}

// IsValid reports whether the value is a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}
