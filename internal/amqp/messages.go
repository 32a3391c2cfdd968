package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"expenses/internal/core"
)

type EventType string

const (
	EventExpenseCreated EventType = "expense.created"
	EventExpenseDeleted EventType = "expense.deleted"
)

var ErrMalformedMessage = errors.New("malformed expense event")

// ExpenseEventMessage announces a committed change to the record set. For
// deletions Record is the record as it was before removal.
type ExpenseEventMessage struct {
	Type      EventType          `json:"type"`
	Record    core.ExpenseRecord `json:"record"`
	Timestamp time.Time          `json:"timestamp"`
}

func NewExpenseEventMessage(t EventType, rec core.ExpenseRecord) *ExpenseEventMessage {
	return &ExpenseEventMessage{Type: t, Record: rec, Timestamp: time.Now().UTC()}
}

func (m *ExpenseEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventMessageFromJSON decodes and checks an event body.
func ExpenseEventMessageFromJSON(data []byte) (*ExpenseEventMessage, error) {
	var msg ExpenseEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	switch msg.Type {
	case EventExpenseCreated, EventExpenseDeleted:
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedMessage, msg.Type)
	}
	if core.IsPlaceholderID(msg.Record.ID) {
		return nil, fmt.Errorf("%w: invalid record id %d", ErrMalformedMessage, msg.Record.ID)
	}
	return &msg, nil
}
