package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"fincycle/internal/core"
)

// SyncMessage carries one debt or income change to the sync worker. The worker
// re-reads the row, so the event only has to identify it.
type SyncMessage struct {
	Event     core.SyncEvent `json:"event"`
	Timestamp time.Time      `json:"timestamp"`
}

func NewSyncMessage(ev core.SyncEvent) *SyncMessage {
	return &SyncMessage{
		Event:     ev,
		Timestamp: time.Now(),
	}
}

func (m *SyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SyncMessageFromJSON decodes and validates a message body.
func SyncMessageFromJSON(data []byte) (*SyncMessage, error) {
	var msg SyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Event.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sync event: %w", err)
	}
	return &msg, nil
}
