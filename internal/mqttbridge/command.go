package mqttbridge

import (
	"fmt"
	"strings"

	"github.com/muurk/normanctl/internal/config"
	"github.com/muurk/normanctl/internal/gateway"
)

// Action is what a command payload asks for.
type Action int

const (
	ActionPosition Action = iota
	ActionOpen
	ActionClose
	ActionPreset
)

// Command is a parsed command payload.
type Command struct {
	Action      Action
	OpenPercent int    // ActionPosition only
	Preset      string // ActionPreset only
}

// ParseCommand accepts OPEN, CLOSE, an open percentage ("40" or "40%") or
// "PRESET <name>". Keywords are case-insensitive.
func ParseCommand(payload []byte) (Command, error) {
	s := strings.TrimSpace(string(payload))
	if s == "" {
		return Command{}, gateway.NewValidationError("empty command")
	}

	fields := strings.Fields(s)
	switch strings.ToUpper(fields[0]) {
	case "OPEN":
		if len(fields) == 1 {
			return Command{Action: ActionOpen}, nil
		}
	case "CLOSE":
		if len(fields) == 1 {
			return Command{Action: ActionClose}, nil
		}
	case "PRESET":
		if len(fields) == 2 {
			return Command{Action: ActionPreset, Preset: config.PresetKey(fields[1])}, nil
		}
		return Command{}, gateway.NewValidationError("PRESET needs exactly one name")
	default:
		open, err := gateway.ParseOpenPercent(s)
		if err != nil {
			return Command{}, err
		}
		return Command{Action: ActionPosition, OpenPercent: open}, nil
	}
	return Command{}, gateway.NewValidationError(fmt.Sprintf("unexpected arguments in %q", s))
}
