package notify

import (
	"context"

	"github.com/BruksfildServices01/table-reservations/internal/events"
)

const EndingSoonRoutingKey = events.ReservationEndingSoon

type JSONPublisher interface {
	PublishJSON(ctx context.Context, routingKey string, v any) error
}

// AMQP puts alerts on the reservations exchange for any consumer bound to
// reservation.ending_soon.
type AMQP struct {
	pub JSONPublisher
}

func NewAMQP(pub JSONPublisher) *AMQP {
	return &AMQP{pub: pub}
}

func (a *AMQP) Name() string { return "amqp" }

func (a *AMQP) Send(ctx context.Context, alert Alert) error {
	return a.pub.PublishJSON(ctx, EndingSoonRoutingKey, alert)
}
