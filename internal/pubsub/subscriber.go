package pubsub

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/iadev09/subscriber/internal/appctx"
	"github.com/iadev09/subscriber/internal/core"
)

const (
	shortRetryCount   = 150
	shortRetryDelay   = 2 * time.Second
	longRetryDelay    = 60 * time.Second
	defaultMsgTimeout = time.Second
)

// Subscriber drives the reconnect-and-resubscribe loop around a single
// pubsub channel, the Go counterpart of the original's start_subscriber.
type Subscriber struct {
	state *appctx.State
	open  StreamOpener
	retry atomic.Uint32
}

// NewSubscriber builds a Subscriber. open is normally OpenRedisStream; tests
// substitute a fake opener.
func NewSubscriber(state *appctx.State, open StreamOpener) *Subscriber {
	return &Subscriber{state: state, open: open}
}

// Run loops, reconnecting on connection failure with a backoff that
// lengthens after shortRetryCount consecutive failures, until the process
// shuts down or an unhandled error occurs.
func (s *Subscriber) Run(ctx context.Context) error {
	for {
		if s.state.IsShuttingDown() {
			s.state.Logger.Warnf("shutdown detected, re-subscription canceled")
			return nil
		}

		err := s.session(ctx)
		if err == nil {
			s.state.Logger.Debugf("subscription ended gracefully")
			return nil
		}

		var pubErr *Error
		if !errors.As(err, &pubErr) {
			return err
		}

		switch pubErr.Kind {
		case KindDisconnected, KindConnection:
			s.state.Logger.Errorf("redis connection lost: %v", pubErr)
			count := s.retry.Add(1) - 1
			delay := shortRetryDelay
			if count >= shortRetryCount {
				delay = longRetryDelay
			}
			s.state.Logger.Warnf("restarting subscriber in %s", delay)

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil
			}
		default:
			s.state.Logger.Errorf("unhandled redis error, closing subscriber: %v", pubErr)
			return pubErr
		}
	}
}

// session opens one subscription and services it until shutdown, a
// connection failure, or an unhandled error.
func (s *Subscriber) session(ctx context.Context) error {
	stream, err := s.open(ctx, s.state.Options.RedisURL, s.state.Options.Channel)
	if err != nil {
		return err
	}

	s.retry.Store(0)
	s.state.Logger.Infof("subscribed to channel %q", s.state.Options.Channel)

	msgTimeout := defaultMsgTimeout
	if s.state.Options.GraceTimeout != nil {
		msgTimeout = *s.state.Options.GraceTimeout
	}

	runErr := s.consume(ctx, stream, msgTimeout)

	if runErr == nil {
		if err := stream.Unsubscribe(context.Background()); err != nil {
			s.state.Logger.Warnf("unsubscribe failed during graceful shutdown: %v", err)
		}
		s.state.Logger.Infof("unsubscribed from channel %q", s.state.Options.Channel)
		_ = stream.Close()
		return nil
	}

	var pubErr *Error
	if errors.As(runErr, &pubErr) && (pubErr.Kind == KindConnection || pubErr.Kind == KindDisconnected) {
		_ = stream.Close()
		return runErr
	}

	if err := stream.Unsubscribe(context.Background()); err != nil {
		s.state.Logger.Warnf("unsubscribe failed: %v", err)
	}
	_ = stream.Close()
	s.state.Logger.Errorf("subscription loop exited with error: %v", runErr)
	return runErr
}

// consume services messages from stream until shutdown fires or the stream
// closes. Every message is handled under msgTimeout; a timeout or handler
// panic (recovered) counts as Rejected and processing continues, matching
// the original's tokio::time::timeout wrapping around handle_message.
func (s *Subscriber) consume(ctx context.Context, stream MessageStream, msgTimeout time.Duration) error {
	messages := stream.Messages()

	for {
		select {
		case <-s.state.OnShutdown():
			s.state.Logger.Warnf("subscriber is shutting down")
			return nil

		case <-ctx.Done():
			return nil

		case msg, ok := <-messages:
			if !ok {
				return ErrDisconnected
			}
			s.handleWithTimeout(msg, msgTimeout)
		}
	}
}

func (s *Subscriber) handleWithTimeout(msg *Message, timeout time.Duration) {
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				s.state.Logger.Errorf("panic handling message: %v", r)
				s.state.Stats.Increment(core.Rejected)
			}
		}()
		handleMessage(s.state, msg.Payload)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		s.state.Logger.Errorf("message handling timed out after %s", timeout)
		s.state.Stats.Increment(core.Rejected)
	}
}
