package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"finansije/internal/core"
)

type EventKind string

const (
	TransactionCreated EventKind = "transaction.created"
	TransactionDeleted EventKind = "transaction.deleted"
)

var ErrUnknownEventKind = errors.New("unknown event kind")

// TransactionEvent announces a change to the transaction set. Month and Year
// identify the affected month; both are zero when it is unknown, as for
// deletes.
type TransactionEvent struct {
	Kind      EventKind `json:"kind"`
	ID        string    `json:"id"`
	Month     int       `json:"month,omitempty"`
	Year      int       `json:"year,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewCreatedEvent builds the event for a stored transaction, attributing it to
// its month in loc.
func NewCreatedEvent(t core.Transaction, loc *time.Location) TransactionEvent {
	m := core.MonthOf(t.Date, loc)
	return TransactionEvent{
		Kind:      TransactionCreated,
		ID:        t.ID,
		Month:     int(m.Month),
		Year:      m.Year,
		Timestamp: time.Now().UTC(),
	}
}

func NewDeletedEvent(id string) TransactionEvent {
	return TransactionEvent{
		Kind:      TransactionDeleted,
		ID:        id,
		Timestamp: time.Now().UTC(),
	}
}

// AffectedMonth returns the month the event touches, if it is known.
func (e TransactionEvent) AffectedMonth() (core.Month, bool) {
	if e.Month == 0 && e.Year == 0 {
		return core.Month{}, false
	}
	m, err := core.NewMonth(e.Month, e.Year)
	if err != nil {
		return core.Month{}, false
	}
	return m, true
}

func (e TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON decodes an event and rejects unknown kinds.
func EventFromJSON(data []byte) (TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return TransactionEvent{}, err
	}
	switch e.Kind {
	case TransactionCreated, TransactionDeleted:
		return e, nil
	default:
		return TransactionEvent{}, fmt.Errorf("%w: %q", ErrUnknownEventKind, e.Kind)
	}
}
