package dispatcher

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/iadev09/subscriber/internal/appctx"
	"github.com/iadev09/subscriber/internal/core"
)

// jobOutcome is the terminal classification of a single job run, mapping
// onto the original's TaskResult enum.
type jobOutcome int

const (
	outcomeSuccess jobOutcome = iota
	outcomeCanceled
	outcomeDelayed
	outcomeFailed
)

// jobResult is what runJob returns: an outcome plus, for outcomeFailed, the
// error describing why.
type jobResult struct {
	outcome jobOutcome
	err     error
}

// errUnimplemented is the placeholder failure every job can randomly land
// on, matching the original's TaskError::Unimplemented — there is no real
// task body here, only the admission-control and shutdown-racing state
// machine around one.
var errUnimplemented = fmt.Errorf("job failed: unimplemented")

// runJob simulates one unit of work racing against the watcher's graceful
// and forced shutdown signals. Its timing and outcome distribution mirror
// the original's run_job exactly: a job normally finishes after a random
// delay bounded by the idle timeout, fails roughly one time in five, and
// reacts to a graceful shutdown by racing a second, grace-period-bounded
// delay against a hard cancel.
func runJob(jobID uint32, state *appctx.State, watcher *core.Watcher) jobResult {
	state.Logger.Debugf("task #%d started", jobID)

	idleTimeout := 5 * time.Second
	if state.Options.IdleTimeout != nil {
		idleTimeout = *state.Options.IdleTimeout
	}
	randomMs := randRange(idleTimeout)

	select {
	case <-watcher.WaitGracefulShutdown():
		state.Logger.Debugf("task #%d notified for shutdown", jobID)

		graceTimeout := time.Second
		if state.Options.GraceTimeout != nil {
			graceTimeout = *state.Options.GraceTimeout
		}
		delayMs := randRange(2 * graceTimeout)

		select {
		case <-watcher.WaitShutdown():
			return jobResult{outcome: outcomeCanceled}
		case <-time.After(delayMs):
			return jobResult{outcome: outcomeDelayed}
		}

	case <-watcher.WaitShutdown():
		return jobResult{outcome: outcomeCanceled}

	case <-time.After(randomMs):
		if (randomMs/time.Millisecond)%5 == 0 {
			return jobResult{outcome: outcomeFailed, err: errUnimplemented}
		}
		return jobResult{outcome: outcomeSuccess}
	}
}

// randRange returns a random duration in [1ms, max], clamped to at least
// 1ms so a zero-value max still produces a usable sleep.
func randRange(max time.Duration) time.Duration {
	ms := max.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	return time.Duration(rand.Int63n(ms)+1) * time.Millisecond
}
