package core

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrShuttingDown is returned by TryAcquireWatcher once graceful shutdown
// has been declared; no new Watcher is ever issued after that point.
var ErrShuttingDown = errors.New("service shutting down")

// Handle is the shared, admission-controlled reference counter that ties
// every in-flight job to the graceful/forced shutdown state machine
// described in spec.md §4.3. A Handle is safe for concurrent use by any
// number of goroutines.
//
// Its fields play the same role appleboy/graceful's Manager plays for
// that library's running jobs — a mutex-guarded scalar, a set of one-shot
// signals, and a way to wait for everything in flight to finish — but the
// acquire path here is a hard, CAS-enforced admission gate rather than an
// unconditional job registration.
type Handle struct {
	maxCount *int64
	count    atomic.Int64

	graceful *NotifyOnce
	shutdown *NotifyOnce
	allDone  *NotifyOnce
	released *broadcastSignal

	mu          sync.Mutex
	gracePeriod *time.Duration

	logger Logger
}

// NewHandle creates a Handle. maxCount of nil means unbounded concurrency.
func NewHandle(maxCount *int, logger Logger) *Handle {
	if logger == nil {
		logger = NewEmptyLogger()
	}

	h := &Handle{
		graceful: NewNotifyOnce(),
		shutdown: NewNotifyOnce(),
		allDone:  NewNotifyOnce(),
		released: newBroadcastSignal(),
		logger:   logger,
	}

	if maxCount != nil {
		v := int64(*maxCount)
		h.maxCount = &v
	}

	return h
}

// Count returns the number of currently live Watchers.
func (h *Handle) Count() int64 {
	return h.count.Load()
}

// GracePeriod returns the deadline configured by the most recent
// GracefulShutdown call, or nil if none was given (wait forever).
func (h *Handle) GracePeriod() *time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.gracePeriod
}

// IsShuttingDown reports whether the forced-shutdown signal has fired.
func (h *Handle) IsShuttingDown() bool {
	return h.shutdown.IsNotified()
}

// GracefulShutdown declares "no new jobs" and records the grace period
// WaitAllDone should honor. It is idempotent: once graceful has fired
// once, later calls are no-ops beyond updating the grace period, matching
// spec.md §8's "idempotent shutdown" law for the first caller's signal.
//
// It also wakes every goroutine blocked in TryAcquireWatcher's wait on
// released, exactly once — without that wakeup, a waiter blocked before
// graceful fires would never learn shutdown happened, which spec.md §4.3
// flags as a deadlock bug in the reference implementation.
func (h *Handle) GracefulShutdown(grace *time.Duration) {
	h.mu.Lock()
	h.gracePeriod = grace
	h.mu.Unlock()

	h.graceful.Notify()
	h.released.notify()
}

// shutdownNow fires the forced-shutdown signal; in-flight jobs watching
// WaitShutdown observe it and abandon their work.
func (h *Handle) shutdownNow() {
	h.shutdown.Notify()
}

// WaitGracefulShutdownCh exposes the graceful signal for select statements
// outside this package (used by the dispatcher's startup side task).
func (h *Handle) WaitGracefulShutdownCh() <-chan struct{} {
	return h.graceful.Done()
}

// TryAcquireWatcher attempts to admit one more job. It returns
// ErrShuttingDown once graceful shutdown has been declared, and otherwise
// blocks until a slot is available under a configured cap.
//
// The acquire is CAS-based, not optimistic: between reading count and
// incrementing it, no other caller can also succeed against the same
// slot. spec.md §4.3 and §9 call this out explicitly — the reference
// implementation's read-then-increment has a race where two callers can
// both observe room and both enter, over-filling a bounded handle. This
// implementation treats max_count as a hard ceiling.
func (h *Handle) TryAcquireWatcher() (*Watcher, error) {
	for {
		// Fetch the wakeup channel before checking graceful and count, so
		// a Release or GracefulShutdown landing between those checks and
		// the wait below still wakes this caller.
		released := h.released.wait()

		if h.graceful.IsNotified() {
			return nil, ErrShuttingDown
		}

		if h.maxCount == nil {
			h.count.Add(1)
			return newWatcher(h), nil
		}

		c := h.count.Load()
		if c < *h.maxCount {
			if h.count.CompareAndSwap(c, c+1) {
				return newWatcher(h), nil
			}
			continue
		}

		<-released
	}
}

// WaitAllDone blocks until every live Watcher has been released, or until
// the configured grace period elapses — whichever comes first. On
// deadline expiry it fires the handle's internal forced-shutdown signal
// before returning, so jobs still racing WaitShutdown observe Canceled.
// A nil grace period means wait forever.
func (h *Handle) WaitAllDone() {
	if h.count.Load() == 0 {
		return
	}

	grace := h.GracePeriod()

	if grace == nil {
		<-h.allDone.Done()
		return
	}

	timer := time.NewTimer(*grace)
	defer timer.Stop()

	select {
	case <-timer.C:
		h.shutdownNow()
	case <-h.allDone.Done():
	}
}

// Watcher is the RAII-style token handed to a job: its lifetime is the
// lifetime of the job's admission slot. Go has no destructors, so callers
// must call Release on every exit path (success, error, or recovered
// panic) — the same discipline appleboy/graceful's AddRunningJob imposes
// with its deferred panic-to-error conversion.
type Watcher struct {
	handle *Handle
	once   sync.Once
}

func newWatcher(h *Handle) *Watcher {
	return &Watcher{handle: h}
}

// WaitGracefulShutdown returns a channel closed once the owning Handle
// enters graceful shutdown.
func (w *Watcher) WaitGracefulShutdown() <-chan struct{} {
	return w.handle.graceful.Done()
}

// WaitShutdown returns a channel closed once the owning Handle is forced
// to abandon in-flight work.
func (w *Watcher) WaitShutdown() <-chan struct{} {
	return w.handle.shutdown.Done()
}

// IsShuttingDown reports the owning Handle's forced-shutdown state.
func (w *Watcher) IsShuttingDown() bool {
	return w.handle.IsShuttingDown()
}

// Release gives the slot back. Safe to call more than once; only the
// first call has any effect.
func (w *Watcher) Release() {
	w.once.Do(func() {
		h := w.handle
		newCount := h.count.Add(-1)

		if newCount == 0 && h.graceful.IsNotified() {
			h.allDone.Notify()
		}

		if h.maxCount != nil && newCount < *h.maxCount {
			h.released.notify()
		}
	})
}
