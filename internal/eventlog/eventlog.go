// Package eventlog defines the durable, ordered log of room events and the
// at-least-once delivery contract shared by its backends.
package eventlog

import (
	"context"

	"github.com/sharetube/jukebox/internal/domain"
)

const (
	DefaultStream = "song-events"
	DefaultGroup  = "socket-group"
)

// Delivery is one record handed to the reader group. A delivery that is never
// acknowledged is redelivered after a restart.
type Delivery struct {
	RecordId string
	Event    domain.Event
	ack      func(context.Context) error
}

func NewDelivery(recordId string, evt domain.Event, ack func(context.Context) error) Delivery {
	return Delivery{
		RecordId: recordId,
		Event:    evt,
		ack:      ack,
	}
}

func (d Delivery) Ack(ctx context.Context) error {
	if d.ack == nil {
		return nil
	}

	return d.ack(ctx)
}

type HandlerFunc func(ctx context.Context, d Delivery)

type Log interface {
	// Append returns once the event is durably stored.
	Append(ctx context.Context, evt domain.Event) (string, error)
	// Consume delivers records in log order until ctx is done or the log fails.
	// It returns nil when ctx is canceled.
	Consume(ctx context.Context, handler HandlerFunc) error
	Close() error
}
