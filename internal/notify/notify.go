package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Alert tells staff that a reservation's window is about to end.
type Alert struct {
	ID               string          `json:"id"`
	ReservationID    uint            `json:"reservation_id"`
	TableID          uint            `json:"table_id"`
	TableName        string          `json:"table_name,omitempty"`
	Guest            string          `json:"guest"`
	Start            time.Time       `json:"start"`
	End              time.Time       `json:"end"`
	MinutesRemaining int             `json:"minutes_remaining"`
	TotalPrice       decimal.Decimal `json:"total_price"`
	CreatedAt        time.Time       `json:"created_at"`
}

func NewAlert(reservationID, tableID uint, guest string, start, end, now time.Time) Alert {
	return Alert{
		ID:               uuid.NewString(),
		ReservationID:    reservationID,
		TableID:          tableID,
		Guest:            guest,
		Start:            start,
		End:              end,
		MinutesRemaining: int(end.Sub(now).Round(time.Minute) / time.Minute),
		CreatedAt:        now.UTC(),
	}
}

type Channel interface {
	Name() string
	Send(ctx context.Context, a Alert) error
}

// Fanout delivers an alert to every channel concurrently.
type Fanout struct {
	channels []Channel
}

func NewFanout(channels ...Channel) *Fanout {
	return &Fanout{channels: channels}
}

func (f *Fanout) Len() int {
	if f == nil {
		return 0
	}
	return len(f.channels)
}

// Deliver returns how many channels accepted the alert and the joined
// errors of those that did not.
func (f *Fanout) Deliver(ctx context.Context, a Alert) (int, error) {
	errs := make([]error, len(f.channels))

	var g errgroup.Group
	for i, ch := range f.channels {
		g.Go(func() error {
			if err := ch.Send(ctx, a); err != nil {
				errs[i] = fmt.Errorf("%s: %w", ch.Name(), err)
			}
			return nil
		})
	}
	_ = g.Wait()

	delivered := 0
	for _, err := range errs {
		if err == nil {
			delivered++
		}
	}
	return delivered, errors.Join(errs...)
}
