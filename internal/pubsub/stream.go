package pubsub

import "context"

// Message is the minimal shape a MessageStream delivers: channel name and
// raw payload, independent of which wire client produced it.
type Message struct {
	Channel string
	Payload string
}

// MessageStream abstracts a subscribed channel so the retry loop in
// Subscriber can be exercised without a live Redis server, the way a fake
// implementation would stand in for appleboy/graceful's Logger interface
// in that project's own tests.
type MessageStream interface {
	// Messages returns the channel new messages arrive on. It is closed
	// when the underlying connection is lost or the stream is closed.
	Messages() <-chan *Message

	// Unsubscribe detaches from the channel without closing the
	// connection, used on the graceful-exit path.
	Unsubscribe(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}

// StreamOpener opens a new MessageStream for a channel, given a redis URL.
// Subscriber depends on this function type rather than a concrete redis
// client so tests can substitute a fake opener.
type StreamOpener func(ctx context.Context, redisURL, channel string) (MessageStream, error)
