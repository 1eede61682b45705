package interfaces

import (
	"context"

	domaintypes "fluxpay/internal/domain/types"
)

// Waiter is a one-shot registration for the first envelope its matcher accepts.
type Waiter interface {
	Wait(ctx context.Context) (domaintypes.Envelope, error)
	Cancel()
}

// Connection is a persistent message socket to one clearing node.
type Connection interface {
	// Send queues frame for delivery; frames sent before the socket opens
	// are flushed in order once it does.
	Send(frame []byte) error
	// Register installs a waiter. Register before sending the request it awaits.
	Register(m domaintypes.Matcher) Waiter
	// Subscribe returns a stream of broadcast envelopes of the given kinds
	// and a function that ends the subscription.
	Subscribe(kinds ...domaintypes.Kind) (<-chan domaintypes.Envelope, func())
	Close() error
}
