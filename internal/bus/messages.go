package bus

import (
	"encoding/json"
	"time"
)

// SyncMessage asks the worker to reconcile one entity with the remote
// collaborator. It carries only identifiers: the worker reads the current
// state from the persistent tier, so a message can never deliver stale data.
type SyncMessage struct {
	Entity    string    `json:"entity"`
	UserID    string    `json:"user_id"`
	EntityID  string    `json:"entity_id"`
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Timestamp time.Time `json:"ts"`
}

// NewSyncMessage stamps a message with the current month.
func NewSyncMessage(entity, userID, entityID string) *SyncMessage {
	now := time.Now()
	return &SyncMessage{
		Entity:    entity,
		UserID:    userID,
		EntityID:  entityID,
		Year:      now.Year(),
		Month:     int(now.Month()),
		Timestamp: now,
	}
}

// ToJSON converts the message to JSON bytes
func (m *SyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SyncMessageFromJSON creates a message from JSON bytes
func SyncMessageFromJSON(data []byte) (*SyncMessage, error) {
	var msg SyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
