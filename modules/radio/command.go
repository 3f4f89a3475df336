package radio

import (
	"strings"
)

type Command int

const (
	CommandUnknown Command = iota
	CommandStart
	CommandStop
)

func (c Command) String() string {
	switch c {
	case CommandStart:
		return "start"
	case CommandStop:
		return "stop"
	default:
		return "unknown"
	}
}

// ParseCommand recognises free text containing "start" or "stop", ignoring
// case. When both appear, start wins.
func ParseCommand(s string) Command {
	s = strings.ToLower(s)

	switch {
	case strings.Contains(s, "start"):
		return CommandStart
	case strings.Contains(s, "stop"):
		return CommandStop
	default:
		return CommandUnknown
	}
}

// CommandResult is the acknowledgement returned for a control command.
type CommandResult struct {
	Result string `json:"result"`
}

var (
	resultOK           = CommandResult{Result: "ok"}
	resultUnrecognized = CommandResult{Result: "unrecognized command"}
)
