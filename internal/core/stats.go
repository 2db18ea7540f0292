package core

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Counter enumerates the atomic statistics the pipeline tracks. The
// pipeline's end-to-end invariants (spec §3) are expressed entirely in
// terms of these counters.
type Counter int

const (
	Received Counter = iota
	Waiting
	Running
	Accepted
	Rejected
	Ignored
	Lagged
	Done
	Failed
	Delayed
	Canceled

	counterCount
)

func (c Counter) String() string {
	switch c {
	case Received:
		return "Received"
	case Waiting:
		return "Waiting"
	case Running:
		return "Running"
	case Accepted:
		return "Accepted"
	case Rejected:
		return "Rejected"
	case Ignored:
		return "Ignored"
	case Lagged:
		return "Lagged"
	case Done:
		return "Done"
	case Failed:
		return "Failed"
	case Delayed:
		return "Delayed"
	case Canceled:
		return "Canceled"
	default:
		return "Unknown"
	}
}

// snapshotOrder fixes the order Snapshot/String report counters in,
// matching the field order spec.md §3 lists them in.
var snapshotOrder = [...]Counter{
	Received, Accepted, Rejected, Lagged, Ignored, Done, Failed, Delayed, Canceled, Waiting, Running,
}

// Stats is a process-wide, lock-free set of atomic counters. All
// operations are safe for concurrent use; Snapshot is not atomic across
// counters, only per-counter — readers tolerate the resulting skew.
type Stats struct {
	counters [counterCount]atomic.Int64
}

// NewStats returns a fresh, zeroed Stats. Production code uses the
// process-wide singleton returned by GlobalStats; NewStats exists for
// tests that want an isolated counter set.
func NewStats() *Stats {
	return &Stats{}
}

var globalStats = NewStats()

// GlobalStats returns the process-wide Stats singleton every component
// shares, per spec.md §4.2 ("Stats is a singleton for the process").
func GlobalStats() *Stats {
	return globalStats
}

// Increment bumps a counter by one.
func (s *Stats) Increment(c Counter) {
	s.counters[c].Add(1)
}

// IncrementBy bumps a counter by n, used for batched increments such as a
// broadcast Lagged error reporting more than one skipped message.
func (s *Stats) IncrementBy(c Counter, n int64) {
	s.counters[c].Add(n)
}

// Decrement lowers a counter by one. Only the transient gauges (Waiting,
// Running) are ever decremented.
func (s *Stats) Decrement(c Counter) {
	s.counters[c].Add(-1)
}

// Get reads the current value of a counter.
func (s *Stats) Get(c Counter) int64 {
	return s.counters[c].Load()
}

// CounterValue pairs a Counter with its value, as returned by Snapshot.
type CounterValue struct {
	Counter Counter
	Value   int64
}

// Snapshot reads every counter once, in a stable order.
func (s *Stats) Snapshot() []CounterValue {
	out := make([]CounterValue, 0, len(snapshotOrder))
	for _, c := range snapshotOrder {
		out = append(out, CounterValue{Counter: c, Value: s.Get(c)})
	}
	return out
}

// String renders the snapshot as "Name:value" pairs joined by spaces, the
// format the final log line prints per spec.md §6.
func (s *Stats) String() string {
	parts := make([]string, 0, len(snapshotOrder))
	for _, cv := range s.Snapshot() {
		parts = append(parts, fmt.Sprintf("%s:%d", cv.Counter, cv.Value))
	}
	return strings.Join(parts, " ")
}

func saturatingSub(a, b int64) int64 {
	if a < b {
		return 0
	}
	return a - b
}

// UnknownCount returns the number of accepted jobs with no terminal
// outcome recorded yet; must be 0 at clean shutdown.
func (s *Stats) UnknownCount() int64 {
	terminal := s.Get(Done) + s.Get(Failed) + s.Get(Delayed) + s.Get(Canceled)
	return saturatingSub(s.Get(Accepted), terminal)
}

// UnhandledCount returns the number of received commands that were
// neither accepted nor placed into a terminal rejection counter; must be
// 0 at clean shutdown.
func (s *Stats) UnhandledCount() int64 {
	handled := s.Get(Accepted) + s.Get(Rejected) + s.Get(Ignored) + s.Get(Lagged)
	return saturatingSub(s.Get(Received), handled)
}

// Reset zeroes every counter. Production code never calls this — Stats is
// a process-wide singleton by contract — but tests that share the global
// instance across cases need a way back to a clean slate.
func (s *Stats) Reset() {
	for i := range s.counters {
		s.counters[i].Store(0)
	}
}
