package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType classifies a queue happening on the event stream.
type EventType string

const (
	EventTicketIssued EventType = "ticket.issued"
	EventNowServing   EventType = "ticket.now_serving"
	EventCancelled    EventType = "ticket.cancelled"
)

// TicketEvent is the wire format for queue happenings. Display boards
// and dashboards consume these; the ticketing engine never reads them
// back.
type TicketEvent struct {
	ID            uuid.UUID `json:"id"`
	Type          EventType `json:"type"`
	Office        string    `json:"office"`
	DayKey        string    `json:"day_key"`
	DisplayNumber string    `json:"display_number,omitempty"`
	Section       string    `json:"section,omitempty"`
	Priority      bool      `json:"priority,omitempty"`
	Staff         string    `json:"staff,omitempty"`
	Position      int       `json:"position,omitempty"`
	Count         int64     `json:"count,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func NewTicketEvent(eventType EventType, office, dayKey string) *TicketEvent {
	return &TicketEvent{
		ID:         uuid.New(),
		Type:       eventType,
		Office:     office,
		DayKey:     dayKey,
		OccurredAt: time.Now(),
	}
}

func (e *TicketEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// PartitionKey routes every event for one office to the same partition
// so board consumers see them in order.
func (e *TicketEvent) PartitionKey() string {
	return e.Office
}

// NowServing is the cached display-board record for one office.
type NowServing struct {
	DisplayNumber string    `json:"display_number"`
	Staff         string    `json:"staff"`
	Since         time.Time `json:"since"`
}
