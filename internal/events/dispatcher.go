package events

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultQueueSize = 100

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Dispatcher hands events to a publisher off the request path. When the
// queue is full the event is dropped; lifecycle calls never block on it.
type Dispatcher struct {
	pub    Publisher
	logger logrus.FieldLogger
	queue  chan Event

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewDispatcher(pub Publisher, logger logrus.FieldLogger, size int) *Dispatcher {
	if size <= 0 {
		size = defaultQueueSize
	}
	d := &Dispatcher{
		pub:    pub,
		logger: logger,
		queue:  make(chan Event, size),
		done:   make(chan struct{}),
	}

	go d.worker()
	return d
}

func (d *Dispatcher) worker() {
	defer close(d.done)
	for ev := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := d.pub.Publish(ctx, ev); err != nil {
			d.logger.WithFields(logrus.Fields{
				"event":          ev.Type,
				"reservation_id": ev.ReservationID,
			}).WithError(err).Warn("event publish failed")
		}
		cancel()
	}
}

// Dispatch is safe on a nil dispatcher.
func (d *Dispatcher) Dispatch(ev Event) {
	if d == nil {
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	select {
	case d.queue <- ev:
	default:
		d.logger.WithField("event", ev.Type).Warn("event queue full, dropping event")
	}
}

// Close stops accepting events and waits for the queue to drain.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	<-d.done
}
