package core

// CommandKind tags the operations the dispatcher understands.
type CommandKind uint8

const (
	CommandRun CommandKind = iota
	CommandShutdown
)

func (k CommandKind) String() string {
	switch k {
	case CommandRun:
		return "Run"
	case CommandShutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

// Command is the internal work item carried by the BroadcastBus. It is a
// small value type, cheap to copy, with no identity.
type Command struct {
	Kind CommandKind
}

func (c Command) String() string {
	return c.Kind.String()
}

// CmdRun and CmdShutdown are the only two commands this service currently
// produces; CmdShutdown is reserved for direct broadcast use (today,
// env.shutdown drives State.InitiateShutdown directly instead of going
// through the bus — see DESIGN.md).
var (
	CmdRun      = Command{Kind: CommandRun}
	CmdShutdown = Command{Kind: CommandShutdown}
)
