package messaging

import (
	"context"
)

// Queue represents an abstract message queue for any payload type. The
// escalation manager publishes operator-facing events through it so that
// surfaces can subscribe instead of polling the record store.
type Queue[T any] interface {
	// Publish adds a new message with payload to the queue.
	Publish(ctx context.Context, t *T) error

	// Consume retrieves a single message from the queue, blocking until one
	// is available or the context is done.
	Consume(ctx context.Context) (Message[T], error)
}

// Message represents a message retrieved from a queue.
type Message[T any] interface {
	// T returns the payload of this message.
	T() *T

	// Ack acknowledges successful processing of this message.
	Ack() error

	// Nack indicates failure in processing this message; the implementation
	// may redeliver it.
	Nack(err error) error
}
