package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	KindUpsert MessageKind = "upsert"
	KindDelete MessageKind = "delete"
)

type MessageKind string

// SyncMessage is the lightweight envelope published for every local
// mutation. It carries only the transaction id; the worker fetches the
// current record from the database, so a burst of updates to one id
// collapses into whatever state is durable when the message is handled.
type SyncMessage struct {
	Kind      MessageKind `json:"kind"`
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewUpsertMessage(id string) *SyncMessage {
	return &SyncMessage{Kind: KindUpsert, ID: id, Timestamp: time.Now()}
}

func NewDeleteMessage(id string) *SyncMessage {
	return &SyncMessage{Kind: KindDelete, ID: id, Timestamp: time.Now()}
}

func (m *SyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func SyncMessageFromJSON(data []byte) (*SyncMessage, error) {
	var msg SyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Kind != KindUpsert && msg.Kind != KindDelete {
		return nil, fmt.Errorf("unknown message kind %q", msg.Kind)
	}
	if msg.ID == "" {
		return nil, fmt.Errorf("message without transaction id")
	}
	return &msg, nil
}
