package appctx

import (
	"context"

	"github.com/iadev09/subscriber/internal/core"
)

// State bundles everything a running task needs: configuration, process
// identity, logging, the shared broadcast bus, the stats singleton, and the
// process-wide cancellation token. It plays the role the original's State
// struct plays — the one value threaded into every task's entry point.
type State struct {
	Options *Options
	Info    *Info
	Logger  core.Logger

	Broadcast *core.BroadcastBus
	Stats     *core.Stats

	ctx    context.Context
	cancel context.CancelFunc
}

// NewState wires a State for a fresh run, deriving its cancellation context
// from parent.
func NewState(parent context.Context, opts *Options, info *Info, logger core.Logger) *State {
	ctx, cancel := context.WithCancel(parent)

	return &State{
		Options:   opts,
		Info:      info,
		Logger:    logger,
		Broadcast: core.NewBroadcastBus(core.DefaultBroadcastCapacity),
		Stats:     core.GlobalStats(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Context returns the process-wide cancellation context; tasks select on
// Context().Done() alongside their own work.
func (s *State) Context() context.Context {
	return s.ctx
}

// IsShuttingDown reports whether InitiateShutdown has been called.
func (s *State) IsShuttingDown() bool {
	select {
	case <-s.ctx.Done():
		return true
	default:
		return false
	}
}

// InitiateShutdown cancels the process-wide context and closes the
// broadcast bus, so every subscriber and dispatcher task unwinds together.
// Safe to call more than once.
func (s *State) InitiateShutdown() {
	s.cancel()
	s.Broadcast.Close()
}

// OnShutdown returns a channel closed once InitiateShutdown has run.
func (s *State) OnShutdown() <-chan struct{} {
	return s.ctx.Done()
}

// SendCommand publishes cmd to every current and future broadcast
// subscriber. If shutdown has already been initiated it refuses to
// publish — the bus may already be closed — and counts the command as
// Rejected instead, so it is never silently lost from the stats
// invariants.
func (s *State) SendCommand(cmd core.Command) {
	if s.IsShuttingDown() {
		s.Stats.Increment(core.Rejected)
		s.Logger.Debugf("command %v rejected, shutdown in progress", cmd)
		return
	}

	s.Broadcast.Send(cmd)
}
