package event

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/santi-junco/sync-tiendanube/internal/domain/integration"
)

// SchemaVersion is the envelope version written with every event
const SchemaVersion = 1

// envelope is the wire form of a sync event
type envelope struct {
	SchemaVersion int                   `json:"schema_version"`
	Event         integration.SyncEvent `json:"event"`
}

// EventSerializer handles JSON serialization of sync events
type EventSerializer struct {
	known map[integration.SyncEventType]bool
}

// NewEventSerializer creates a serializer that accepts the built-in event types
func NewEventSerializer() *EventSerializer {
	return &EventSerializer{
		known: map[integration.SyncEventType]bool{
			integration.EventProductReconciled: true,
			integration.EventStockAdjusted:     true,
			integration.EventRunFinished:       true,
		},
	}
}

// Serialize encodes an event inside a versioned envelope
func (s *EventSerializer) Serialize(event integration.SyncEvent) ([]byte, error) {
	if !s.known[event.Type] {
		return nil, fmt.Errorf("unknown event type: %s", event.Type)
	}
	return json.Marshal(envelope{SchemaVersion: SchemaVersion, Event: event})
}

// Deserialize decodes an envelope, rejecting newer schema versions
func (s *EventSerializer) Deserialize(data []byte) (integration.SyncEvent, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return integration.SyncEvent{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if env.SchemaVersion < 1 || env.SchemaVersion > SchemaVersion {
		return integration.SyncEvent{}, fmt.Errorf("unsupported schema version: %d", env.SchemaVersion)
	}
	if !s.known[env.Event.Type] {
		return integration.SyncEvent{}, fmt.Errorf("unknown event type: %s", env.Event.Type)
	}
	return env.Event, nil
}

// VersionHeader returns the schema version as a message header value
func VersionHeader() []byte {
	return []byte(strconv.Itoa(SchemaVersion))
}
