package core

import "testing"

func TestStatsIncrementAndGet(t *testing.T) {
	s := NewStats()

	s.Increment(Received)
	s.Increment(Received)
	s.IncrementBy(Lagged, 3)

	if got := s.Get(Received); got != 2 {
		t.Errorf("expected Received=2, got %d", got)
	}
	if got := s.Get(Lagged); got != 3 {
		t.Errorf("expected Lagged=3, got %d", got)
	}
}

func TestStatsDecrement(t *testing.T) {
	s := NewStats()
	s.Increment(Running)
	s.Increment(Running)
	s.Decrement(Running)

	if got := s.Get(Running); got != 1 {
		t.Errorf("expected Running=1, got %d", got)
	}
}

func TestUnknownCount(t *testing.T) {
	s := NewStats()
	s.Increment(Accepted)
	s.Increment(Accepted)
	s.Increment(Done)

	if got := s.UnknownCount(); got != 1 {
		t.Errorf("expected UnknownCount=1, got %d", got)
	}
}

func TestUnhandledCount(t *testing.T) {
	s := NewStats()
	s.Increment(Received)
	s.Increment(Received)
	s.Increment(Received)
	s.Increment(Accepted)
	s.Increment(Rejected)

	if got := s.UnhandledCount(); got != 1 {
		t.Errorf("expected UnhandledCount=1, got %d", got)
	}
}

func TestSaturatingSubNeverNegative(t *testing.T) {
	s := NewStats()
	s.Increment(Done) // Done without a matching Accepted

	if got := s.UnknownCount(); got != 0 {
		t.Errorf("expected UnknownCount clamped to 0, got %d", got)
	}
}

func TestSnapshotOrderMatchesCounters(t *testing.T) {
	s := NewStats()
	s.Increment(Received)

	snap := s.Snapshot()
	if len(snap) != int(counterCount) {
		t.Fatalf("expected %d entries, got %d", counterCount, len(snap))
	}
	if snap[0].Counter != Received {
		t.Fatalf("expected first snapshot entry to be Received, got %s", snap[0].Counter)
	}
}

func TestGlobalStatsIsSingleton(t *testing.T) {
	a := GlobalStats()
	b := GlobalStats()
	if a != b {
		t.Fatal("expected GlobalStats to return the same instance")
	}
}
