package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	ReservationCreated    = "reservation.created"
	ReservationStarted    = "reservation.started"
	ReservationCancelled  = "reservation.cancelled"
	ReservationExpired    = "reservation.expired"
	ReservationEndingSoon = "reservation.ending_soon"
)

type Event struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	ReservationID uint      `json:"reservation_id"`
	TableID       uint      `json:"table_id"`
	Actor         string    `json:"actor,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
	Data          any       `json:"data,omitempty"`
}

func New(kind string, reservationID, tableID uint, actor string, data any) Event {
	return Event{
		ID:            uuid.NewString(),
		Type:          kind,
		ReservationID: reservationID,
		TableID:       tableID,
		Actor:         actor,
		OccurredAt:    time.Now().UTC(),
		Data:          data,
	}
}
