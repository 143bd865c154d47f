package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"budget/internal/core"
)

// EventKind names what happened to the ledger.
type EventKind string

const (
	RecordAdded   EventKind = "record.added"
	RecordDeleted EventKind = "record.deleted"
)

// LedgerEvent is published after every successful local write.
type LedgerEvent struct {
	ID        string       `json:"id"`
	Kind      EventKind    `json:"kind"`
	Record    EventPayload `json:"record"`
	Timestamp time.Time    `json:"timestamp"`
}

// EventPayload is the wire form of a record.
type EventPayload struct {
	Date        string `json:"date"`
	AmountCents int64  `json:"amount_cents"`
	Category    string `json:"category"`
	Note        string `json:"note,omitempty"`
}

func NewLedgerEvent(kind EventKind, r core.Record) *LedgerEvent {
	return &LedgerEvent{
		ID:   uuid.NewString(),
		Kind: kind,
		Record: EventPayload{
			Date:        r.Date.String(),
			AmountCents: r.Amount.Cents,
			Category:    r.Category,
			Note:        r.Note,
		},
		Timestamp: time.Now().UTC(),
	}
}

// CoreRecord converts the payload back into a domain record.
func (e *LedgerEvent) CoreRecord() (core.Record, error) {
	d, err := core.ParseDate(e.Record.Date)
	if err != nil {
		return core.Record{}, err
	}
	return core.Record{
		Date:     d,
		Amount:   core.Money{Cents: e.Record.AmountCents},
		Category: e.Record.Category,
		Note:     e.Record.Note,
	}, nil
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes and checks an event body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	switch e.Kind {
	case RecordAdded, RecordDeleted:
	default:
		return nil, fmt.Errorf("unknown event kind %q", e.Kind)
	}
	if _, err := uuid.Parse(e.ID); err != nil {
		return nil, fmt.Errorf("event id: %w", err)
	}
	return &e, nil
}
