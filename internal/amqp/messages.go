package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType distinguishes snapshot events.
type EventType string

const (
	EventSaved EventType = "saved"
	EventReset EventType = "reset"
)

// SnapshotEvent is a lightweight notification that a snapshot slot changed.
// It carries no template; consumers re-read the primary store.
type SnapshotEvent struct {
	Type      EventType `json:"type"`
	UserID    string    `json:"user_id"`
	Slot      string    `json:"slot,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSnapshotSavedEvent creates an event for one written slot
func NewSnapshotSavedEvent(userID, slot string) *SnapshotEvent {
	return &SnapshotEvent{
		Type:      EventSaved,
		UserID:    userID,
		Slot:      slot,
		Timestamp: time.Now(),
	}
}

// NewSnapshotResetEvent creates an event for a full reset of a user
func NewSnapshotResetEvent(userID string) *SnapshotEvent {
	return &SnapshotEvent{
		Type:      EventReset,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *SnapshotEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SnapshotEventFromJSON parses and validates a message
func SnapshotEventFromJSON(data []byte) (*SnapshotEvent, error) {
	var msg SnapshotEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == "" {
		return nil, fmt.Errorf("snapshot event without user_id")
	}
	switch msg.Type {
	case EventSaved:
		if msg.Slot == "" {
			return nil, fmt.Errorf("saved event without slot")
		}
	case EventReset:
	default:
		return nil, fmt.Errorf("unknown snapshot event type %q", msg.Type)
	}
	return &msg, nil
}
