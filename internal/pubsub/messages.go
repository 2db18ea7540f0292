package pubsub

import (
	"encoding/json"

	"github.com/iadev09/subscriber/internal/appctx"
	"github.com/iadev09/subscriber/internal/core"
)

// envelope is the wire shape of every message on the channel: an event
// name plus an opaque data payload whose shape depends on event.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// shutdownData is env.shutdown's data payload.
type shutdownData struct {
	Services []string `json:"services"`
}

// handleMessage parses and dispatches one pubsub payload, incrementing the
// matching Stats counters exactly as the original's handle_message does.
// It never returns an error for a malformed message: invalid JSON is
// logged and counted only as Received, a recognized event with a bad
// payload is counted as Rejected, an unknown event as Ignored, and
// processing continues, the same "log and move on" policy the original's
// Ok(()) early-returns encode.
func handleMessage(state *appctx.State, raw string) {
	stats := state.Stats
	stats.Increment(core.Received)

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		state.Logger.Warnf("received invalid JSON: %s: %v", raw, err)
		return
	}

	state.Logger.Debugf("received message: %s", env.Event)

	switch env.Event {
	case "env.updated":
		handleEnvUpdated(state, env)
	case "env.shutdown":
		handleEnvShutdown(state, env)
	default:
		state.Logger.Debugf("received message with unknown event: %s", env.Event)
		stats.Increment(core.Ignored)
	}
}

// handleEnvUpdated requires only that a "data" key be present; an explicit
// "data": null still counts as present, matching serde_json's
// Some(Value::Null). Only an absent key rejects the message.
func handleEnvUpdated(state *appctx.State, env envelope) {
	if env.Data == nil {
		state.Logger.Errorf("received env.updated event without data")
		state.Stats.Increment(core.Rejected)
		return
	}

	state.SendCommand(core.CmdRun)
}

// handleEnvShutdown only initiates shutdown if "data.services" lists this
// process's name or the wildcard "*"; otherwise the message is either
// rejected (malformed) or ignored (not targeted at this process).
func handleEnvShutdown(state *appctx.State, env envelope) {
	if env.Data == nil {
		state.Logger.Errorf("received env.shutdown event without data")
		state.Stats.Increment(core.Rejected)
		return
	}

	var data shutdownData
	if err := json.Unmarshal(env.Data, &data); err != nil || data.Services == nil {
		state.Logger.Errorf("received env.shutdown event without services")
		state.Stats.Increment(core.Rejected)
		return
	}

	myName := state.Info.MyName()
	targeted := false
	for _, svc := range data.Services {
		if svc == "*" || svc == myName {
			targeted = true
			break
		}
	}

	if !targeted {
		state.Logger.Debugf("shutdown message ignored, not targeting: %s", myName)
		state.Stats.Increment(core.Ignored)
		return
	}

	// The shutdown command never travels over the broadcast bus: it is
	// acted on directly, here, by the subscriber itself. spec.md §9
	// flags this as an inconsistency worth preserving rather than
	// fixing, since the counters still need to balance at clean exit.
	state.Logger.Warnf("received shutdown message targeting: %s", myName)
	state.Stats.Increment(core.Accepted)
	state.Stats.Increment(core.Done)
	state.InitiateShutdown()
}
