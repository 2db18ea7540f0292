package pubsub

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"

	"github.com/redis/go-redis/v9"
)

// ErrorKind classifies a pubsub error the way the original's Error enum
// distinguishes a closed stream from a dead connection from anything else,
// so the retry loop can decide whether to back off and retry or give up.
type ErrorKind int

const (
	// KindDisconnected means the message stream ended (the channel
	// closed with no error), equivalent to the original's
	// RedisDisconnected.
	KindDisconnected ErrorKind = iota
	// KindConnection means the underlying connection was refused, reset,
	// or broken.
	KindConnection
	// KindUnhandled is any other redis client error.
	KindUnhandled
)

// Error wraps a pubsub failure with its ErrorKind, letting callers branch
// on kind without string matching.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindDisconnected:
		return "redis message stream ended"
	case KindConnection:
		return fmt.Sprintf("redis connection error: %v", e.Err)
	default:
		return fmt.Sprintf("unhandled redis error: %v", e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrDisconnected is the sentinel Error value for a stream that ended
// cleanly (no underlying error, just EOF on the channel).
var ErrDisconnected = &Error{Kind: KindDisconnected}

// classifyConnErr maps a raw redis client error onto an ErrorKind, mirroring
// the original's From<RedisError> impl: connection-refused, broken-pipe, and
// connection-reset network errors, as well as use of a closed network
// connection (net.ErrClosed), are treated as retryable connection errors;
// everything else is unhandled.
func classifyConnErr(err error) *Error {
	if err == nil {
		return nil
	}

	var netErr *net.OpError
	if errors.As(err, &netErr) {
		if errors.Is(netErr.Err, syscall.ECONNREFUSED) ||
			errors.Is(netErr.Err, syscall.ECONNRESET) ||
			errors.Is(netErr.Err, syscall.EPIPE) {
			return &Error{Kind: KindConnection, Err: err}
		}
	}

	if errors.Is(err, net.ErrClosed) {
		return &Error{Kind: KindConnection, Err: err}
	}

	return &Error{Kind: KindUnhandled, Err: err}
}

// redisStream adapts a *redis.PubSub to the MessageStream interface.
type redisStream struct {
	client  *redis.Client
	pubsub  *redis.PubSub
	channel string
}

// OpenRedisStream connects to redisURL and subscribes to channel. It pings
// the connection before returning so a dead endpoint surfaces immediately
// as a connection error rather than on the first message.
func OpenRedisStream(ctx context.Context, redisURL, channel string) (MessageStream, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, &Error{Kind: KindUnhandled, Err: fmt.Errorf("parse redis url: %w", err)}
	}

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, classifyConnErr(err)
	}

	ps := client.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		_ = client.Close()
		return nil, classifyConnErr(err)
	}

	return &redisStream{client: client, pubsub: ps, channel: channel}, nil
}

func (s *redisStream) Messages() <-chan *Message {
	redisCh := s.pubsub.Channel()
	out := make(chan *Message)

	go func() {
		defer close(out)
		for m := range redisCh {
			out <- &Message{Channel: m.Channel, Payload: m.Payload}
		}
	}()

	return out
}

func (s *redisStream) Unsubscribe(ctx context.Context) error {
	return s.pubsub.Unsubscribe(ctx, s.channel)
}

func (s *redisStream) Close() error {
	_ = s.pubsub.Close()
	return s.client.Close()
}
