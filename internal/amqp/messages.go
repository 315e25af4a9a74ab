package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Change actions carried by TransactionChangedMessage.
const (
	ActionCreated = "created"
	ActionDeleted = "deleted"
)

// TransactionChangedMessage tells every instance that a user's
// transactions changed, so cached analytics for that user are stale.
type TransactionChangedMessage struct {
	Action        string    `json:"action"`
	TransactionID int64     `json:"transaction_id"`
	UserID        string    `json:"user_id"`
	Source        string    `json:"source"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewTransactionChangedMessage stamps a change event with the current time.
func NewTransactionChangedMessage(action string, id int64, userID, source string) *TransactionChangedMessage {
	return &TransactionChangedMessage{
		Action:        action,
		TransactionID: id,
		UserID:        userID,
		Source:        source,
		Timestamp:     time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionChangedMessageFromJSON decodes and checks a delivery body.
func TransactionChangedMessageFromJSON(data []byte) (*TransactionChangedMessage, error) {
	var msg TransactionChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == "" {
		return nil, fmt.Errorf("message without user_id")
	}
	return &msg, nil
}
