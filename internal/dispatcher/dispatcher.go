// Package dispatcher turns broadcast commands into admission-controlled
// jobs and tracks them through to a terminal outcome, the Go counterpart of
// the original's svc::dispatcher module.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iadev09/subscriber/internal/appctx"
	"github.com/iadev09/subscriber/internal/core"
)

// UnknownTasksError reports accepted jobs with no terminal outcome recorded
// by the time the dispatcher drained, a correctness bug if it is ever
// nonzero.
type UnknownTasksError struct{ Count int64 }

func (e *UnknownTasksError) Error() string {
	return fmt.Sprintf("unknown tasks: %d", e.Count)
}

// UnhandledCommandsError reports received commands that were never
// accounted for by an Accepted, Rejected, Ignored, or Lagged increment.
type UnhandledCommandsError struct{ Count int64 }

func (e *UnhandledCommandsError) Error() string {
	return fmt.Sprintf("unhandled commands: %d", e.Count)
}

// Dispatcher owns the admission-controlled job pipeline: one broadcast
// subscription in, one Handle gating concurrency, and a routineGroup
// tracking every job's accountant goroutine so Run can join them all
// before reporting final stats.
type Dispatcher struct {
	state  *appctx.State
	handle *core.Handle
	group  *routineGroup
}

// New builds a Dispatcher and starts the background task that converts the
// state's shutdown signal into the handle's graceful shutdown, the
// counterpart of the original's create_handle.
func New(state *appctx.State) *Dispatcher {
	handle := core.NewHandle(state.Options.Workers, state.Logger)

	d := &Dispatcher{
		state:  state,
		handle: handle,
		group:  newRoutineGroup(),
	}

	go d.spawnShutdownWatcher()

	return d
}

func (d *Dispatcher) spawnShutdownWatcher() {
	<-d.state.OnShutdown()
	d.state.Logger.Debugf("handle notified for graceful shutdown")
	d.handle.GracefulShutdown(d.state.Options.GraceTimeout)
}

// Run services the broadcast bus until shutdown, draining any commands
// still pending once shutdown begins, then waits for every in-flight job to
// finish or be canceled by the grace deadline. It returns a non-nil error
// if the stats invariants (UnknownCount, UnhandledCount) are violated at
// exit — evidence of a dropped job or an unaccounted-for command.
func (d *Dispatcher) Run(ctx context.Context) error {
	stats := d.state.Stats
	receiver := d.state.Broadcast.Subscribe()

	var taskID uint32

	for {
		cmd, err := receiver.Recv(ctx)
		if err != nil {
			d.handleRecvError(err, receiver)
			break
		}

		d.dispatch(cmd, &taskID)
	}

	d.state.Logger.Warnf(
		"dispatcher waiting for %d connections to finish, grace %v",
		d.handle.Count(), d.handle.GracePeriod(),
	)

	d.handle.WaitAllDone()

	// group.Wait joins every accountant goroutine deterministically, in
	// place of the fixed delay the original used to let a last canceled
	// job's outcome land before asserting the invariants below.
	d.group.Wait()

	d.state.Logger.Infof("final stats: %s", stats.String())

	if loss := stats.UnknownCount(); loss > 0 {
		return &UnknownTasksError{Count: loss}
	}
	if unhandled := stats.UnhandledCount(); unhandled > 0 {
		return &UnhandledCommandsError{Count: unhandled}
	}

	return nil
}

// handleRecvError classifies a Recv failure: lag on the live path counts
// the skipped commands as Lagged and declares graceful shutdown without
// draining (a lag means we may have already missed commands, so further
// draining can't be trusted either); a closed bus likewise declares
// graceful shutdown and returns, since nothing is left to drain; anything
// else — the context being canceled — enters the drain loop that rejects
// any commands still queued on the bus.
func (d *Dispatcher) handleRecvError(err error, receiver *core.Receiver) {
	var lagged *core.LaggedError
	if errors.As(err, &lagged) {
		d.state.Stats.IncrementBy(core.Lagged, int64(lagged.Skipped))
		d.state.Logger.Errorf("broadcast lagged, skipping command")
		d.handle.GracefulShutdown(d.state.Options.GraceTimeout)
		return
	}

	if errors.Is(err, core.ErrClosed) {
		d.state.Logger.Warnf("channel closed, no more commands to process")
		d.handle.GracefulShutdown(d.state.Options.GraceTimeout)
		return
	}

	d.state.Logger.Warnf("dispatcher got shutdown signal")
	d.drainOnShutdown(receiver)
}

// drainOnShutdown rejects every command still queued on the bus until the
// unhandled count reaches zero or the bus is fully closed and drained.
func (d *Dispatcher) drainOnShutdown(receiver *core.Receiver) {
	stats := d.state.Stats
	d.state.Logger.Debugf("unhandled count at shutdown: %d", stats.UnhandledCount())

	for {
		if stats.UnhandledCount() == 0 {
			break
		}

		cmd, err := receiver.Recv(context.Background())
		if err == nil {
			stats.Increment(core.Rejected)
			d.state.Logger.Tracef("command %v rejected during shutdown", cmd)
			continue
		}

		var lagged *core.LaggedError
		if errors.As(err, &lagged) {
			stats.IncrementBy(core.Lagged, int64(lagged.Skipped))
			d.state.Logger.Errorf("broadcast lagged, skipping termination")
			continue
		}

		d.state.Logger.Errorf("channel closed, no more commands to process")
		break
	}

	d.state.Logger.Warnf("dispatcher is shutting down")
}

// dispatch admits cmd through the handle and, once a slot is acquired,
// spawns the job and its accountant goroutine.
func (d *Dispatcher) dispatch(cmd core.Command, taskID *uint32) {
	stats := d.state.Stats
	d.state.Logger.Debugf("received command: %v", cmd)

	stats.Increment(core.Waiting)

	watcher, err := d.handle.TryAcquireWatcher()
	if err != nil {
		stats.Decrement(core.Waiting)
		stats.Increment(core.Rejected)
		d.state.Logger.Debugf("shutdown initiated, job not permitted")
		return
	}

	stats.Decrement(core.Waiting)
	stats.Increment(core.Accepted)

	*taskID++
	id := *taskID
	d.state.Logger.Debugf("task #%d acquired permit, %d running", id, d.handle.Count())

	state := d.state
	d.group.Run(func() {
		runAndRecord(id, state, watcher)
	})
}

// runAndRecord runs one job to completion, records its terminal stat, and
// always releases the watcher slot, even if the job panics.
func runAndRecord(jobID uint32, state *appctx.State, watcher *core.Watcher) {
	defer watcher.Release()

	stats := state.Stats
	stats.Increment(core.Running)
	startedAt := time.Now()

	result := runJobRecovered(jobID, state, watcher)

	stats.Decrement(core.Running)
	elapsed := time.Since(startedAt)

	switch result.outcome {
	case outcomeSuccess:
		stats.Increment(core.Done)
		state.Logger.Infof("task #%d successfully done, elapsed: %s", jobID, elapsed)
	case outcomeDelayed:
		stats.Increment(core.Delayed)
		state.Logger.Warnf("task #%d pushed to queue runner, elapsed: %s", jobID, elapsed)
	case outcomeCanceled:
		stats.Increment(core.Canceled)
		state.Logger.Errorf("task #%d canceled due to forced shutdown, elapsed: %s", jobID, elapsed)
	case outcomeFailed:
		stats.Increment(core.Failed)
		state.Logger.Errorf("task #%d failed, elapsed: %s: %v", jobID, elapsed, result.err)
	}
}

// runJobRecovered isolates a job panic into a Failed outcome rather than
// letting it take down the dispatcher's goroutine.
func runJobRecovered(jobID uint32, state *appctx.State, watcher *core.Watcher) (result jobResult) {
	defer func() {
		if r := recover(); r != nil {
			state.Logger.Errorf("task #%d panicked: %v", jobID, r)
			result = jobResult{outcome: outcomeFailed, err: fmt.Errorf("panic: %v", r)}
		}
	}()

	return runJob(jobID, state, watcher)
}
