package amqp

import (
	"encoding/json"
	"time"
)

// ProcessRecurringMessage asks a worker to process one due recurring
// transaction. It carries only identifiers; the worker reloads the full
// transaction from the database so stale payloads cannot cause double
// processing.
type ProcessRecurringMessage struct {
	TransactionID string    `json:"transactionId"`
	UserID        string    `json:"userId"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewProcessRecurringMessage(transactionID, userID string) *ProcessRecurringMessage {
	return &ProcessRecurringMessage{
		TransactionID: transactionID,
		UserID:        userID,
		Timestamp:     time.Now(),
	}
}

func (m *ProcessRecurringMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ProcessRecurringMessageFromJSON(data []byte) (*ProcessRecurringMessage, error) {
	var msg ProcessRecurringMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.TransactionID == "" || msg.UserID == "" {
		return nil, errEmptyIdentifiers
	}
	return &msg, nil
}
