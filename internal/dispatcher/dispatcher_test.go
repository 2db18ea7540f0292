package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iadev09/subscriber/internal/appctx"
	"github.com/iadev09/subscriber/internal/core"
)

func newDispatcherTestState(t *testing.T, workers *int, idle, grace *time.Duration) *appctx.State {
	t.Helper()

	opts := &appctx.Options{
		RedisURL:     "redis://x",
		Channel:      "c",
		Workers:      workers,
		IdleTimeout:  idle,
		GraceTimeout: grace,
	}
	info := &appctx.Info{App: "svc"}
	state := appctx.NewState(context.Background(), opts, info, core.NewEmptyLogger())
	state.Stats.Reset()
	t.Cleanup(state.Stats.Reset)
	return state
}

func TestDispatcherProcessesCommandToDone(t *testing.T) {
	idle := 5 * time.Millisecond
	grace := 50 * time.Millisecond
	state := newDispatcherTestState(t, nil, &idle, &grace)

	d := New(state)

	done := make(chan error, 1)
	go func() { done <- d.Run(state.Context()) }()

	// The subscriber's handleMessage counts Received before publishing;
	// the dispatcher itself never does.
	state.Stats.Increment(core.Received)
	state.SendCommand(core.CmdRun)

	time.Sleep(50 * time.Millisecond)
	state.InitiateShutdown()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher never returned after shutdown")
	}

	require.Zero(t, state.Stats.UnknownCount())
	require.Zero(t, state.Stats.UnhandledCount())
	require.Equal(t, int64(1), state.Stats.Get(core.Received))
	require.Equal(t, int64(1), state.Stats.Get(core.Accepted))
}

func TestDispatcherDrainsFullHandleOnShutdown(t *testing.T) {
	one := 1
	grace := time.Duration(0)
	state := newDispatcherTestState(t, &one, nil, &grace)

	d := New(state)

	done := make(chan error, 1)
	go func() { done <- d.Run(state.Context()) }()

	// Fill the single worker slot with a long job so the handle is full
	// when shutdown fires, then confirm shutdown still drains cleanly.
	idle := 5 * time.Second
	state.Options.IdleTimeout = &idle
	state.SendCommand(core.CmdRun)

	time.Sleep(20 * time.Millisecond)
	state.InitiateShutdown()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher never returned after shutdown")
	}

	require.Zero(t, state.Stats.UnknownCount())
	require.Zero(t, state.Stats.UnhandledCount())
}

func TestDispatcherExitsCleanlyWhenCommandSentDuringShutdown(t *testing.T) {
	grace := time.Duration(0)
	state := newDispatcherTestState(t, nil, nil, &grace)

	d := New(state)

	done := make(chan error, 1)
	go func() { done <- d.Run(state.Context()) }()

	state.InitiateShutdown()
	state.SendCommand(core.CmdRun) // shutdown already initiated: counted as Rejected, never published

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher never returned after shutdown")
	}

	require.Zero(t, state.Stats.UnknownCount())
	require.Zero(t, state.Stats.UnhandledCount())
}
