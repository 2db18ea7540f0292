package core

import (
	"context"
	"sync"
)

// NotifyOnce is a sticky, idempotent, broadcast one-shot signal: once
// Notify is called, every current and future caller of Wait/Done observes
// it immediately, and IsNotified returns true forever after. Calling
// Notify more than once is equivalent to calling it once.
//
// It is built on the standard close-a-channel-once idiom (sync.Once plus
// a channel that is closed exactly once) rather than a condition variable,
// since closing a channel is itself a broadcast wakeup with no missed-
// signal window — the same trick context.Context uses for Done().
type NotifyOnce struct {
	once sync.Once
	ch   chan struct{}
}

// NewNotifyOnce returns a NotifyOnce ready to use.
func NewNotifyOnce() *NotifyOnce {
	return &NotifyOnce{ch: make(chan struct{})}
}

// Notify fires the signal. Safe to call from multiple goroutines and more
// than once; only the first call has any effect.
func (n *NotifyOnce) Notify() {
	n.once.Do(func() { close(n.ch) })
}

// IsNotified reports whether Notify has ever been called.
func (n *NotifyOnce) IsNotified() bool {
	select {
	case <-n.ch:
		return true
	default:
		return false
	}
}

// Done returns a channel that is closed once Notify has been called.
func (n *NotifyOnce) Done() <-chan struct{} {
	return n.ch
}

// Wait blocks until Notify has been called or ctx is done, whichever
// happens first.
func (n *NotifyOnce) Wait(ctx context.Context) error {
	select {
	case <-n.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
