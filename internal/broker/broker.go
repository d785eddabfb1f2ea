// Package broker provides the per-room publish/subscribe topics that fan a
// publication out to every current subscriber. Topics keep no backlog; the
// history cache covers the gap for late joiners.
package broker

import "context"

// Sink receives a topic's publications. Deliver must not block: the relay's
// outbound queue drops instead of waiting, and a slow subscriber must never
// stall the publisher or its peers.
type Sink interface {
	Deliver(payload []byte)
}

// Subscription releases one subscriber. Closing it does not affect other
// subscribers or the topic itself.
type Subscription interface {
	Close()
}

type Broker interface {
	// Publish enqueues payload for delivery to the room's current
	// subscribers and returns without waiting for them to consume it.
	Publish(ctx context.Context, room string, payload []byte) error

	// Subscribe registers sink for every publication made to room after this
	// call. The subscription ends when Close is called or ctx is canceled.
	Subscribe(ctx context.Context, room string, sink Sink) (Subscription, error)
}
