package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Entities a ledger event can refer to.
const (
	EntityReceivable = "receivable"
	EntityPayment    = "payment"
)

// Operations a ledger event can carry.
const (
	OpUpsert = "upsert"
	OpDelete = "delete"
)

var ErrInvalidEvent = errors.New("invalid ledger event")

// LedgerEvent announces that a receivable or payment changed. It carries only
// the identity of the record; consumers read current state from the store.
type LedgerEvent struct {
	Entity    string    `json:"entity"`
	ID        string    `json:"id"`
	Op        string    `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerEvent(entity, id, op string) LedgerEvent {
	return LedgerEvent{
		Entity:    entity,
		ID:        id,
		Op:        op,
		Timestamp: time.Now().UTC(),
	}
}

func (e LedgerEvent) Validate() error {
	switch e.Entity {
	case EntityReceivable, EntityPayment:
	default:
		return fmt.Errorf("%w: entity %q", ErrInvalidEvent, e.Entity)
	}
	switch e.Op {
	case OpUpsert, OpDelete:
	default:
		return fmt.Errorf("%w: op %q", ErrInvalidEvent, e.Op)
	}
	if e.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidEvent)
	}
	return nil
}

func (e LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes and validates an event body.
func LedgerEventFromJSON(data []byte) (LedgerEvent, error) {
	var ev LedgerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return LedgerEvent{}, err
	}
	if err := ev.Validate(); err != nil {
		return LedgerEvent{}, err
	}
	return ev, nil
}
