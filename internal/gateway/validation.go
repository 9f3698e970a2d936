package gateway

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidateOpenPercent validates a user-supplied open percentage.
// NearestClosedPercent clamps on its own; this is for rejecting typos at the edge.
func ValidateOpenPercent(open int) error {
	if open < 0 || open > 100 {
		return NewValidationError(fmt.Sprintf("open percentage must be 0-100, got %d", open))
	}
	return nil
}

// ParseOpenPercent parses "40" or "40%" into an open percentage.
func ParseOpenPercent(s string) (int, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, NewValidationError(fmt.Sprintf("invalid open percentage %q", s))
	}
	if err := ValidateOpenPercent(v); err != nil {
		return 0, err
	}
	return v, nil
}

// ValidateCommand checks a command before it is sent.
func ValidateCommand(cmd PositionCommand) error {
	if cmd.TargetID == "" {
		return NewValidationError(fmt.Sprintf("%s command has no target id", cmd.Scope))
	}
	if !IsAllowedClosedPercent(cmd.ClosedPercent) {
		return NewValidationError(fmt.Sprintf("closed percentage %d is not a supported position", cmd.ClosedPercent))
	}
	return nil
}

// ValidateState reports inconsistencies in a fetched state. Problems that
// do not stop the state from being used are prefixed "warning:".
func ValidateState(state *CombinedState) []error {
	var errs []error
	if state == nil {
		return []error{NewValidationError("no state")}
	}

	roomIDs := make(map[ID]bool)
	for i, r := range state.Rooms {
		if r.ID == "" {
			errs = append(errs, NewValidationError(fmt.Sprintf("warning: room %d has no id", i)))
			continue
		}
		if roomIDs[r.ID] {
			errs = append(errs, NewValidationError(fmt.Sprintf("warning: duplicate room id %s", r.ID)))
		}
		roomIDs[r.ID] = true
	}

	deviceIDs := make(map[ID]bool)
	for i, e := range state.Entries {
		d := e.Device
		if d.ID == "" {
			errs = append(errs, NewValidationError(fmt.Sprintf("device %d has no id and cannot be controlled", i)))
			continue
		}
		if deviceIDs[d.ID] {
			errs = append(errs, NewValidationError(fmt.Sprintf("duplicate device id %s", d.ID)))
		}
		deviceIDs[d.ID] = true

		if d.RoomID != "" && len(state.Rooms) > 0 && !roomIDs[d.RoomID] {
			errs = append(errs, NewValidationError(fmt.Sprintf("warning: device %s references unknown room %s", d.ID, d.RoomID)))
		}
		if d.RawClosedPercent == nil {
			errs = append(errs, NewValidationError(fmt.Sprintf("warning: device %s reports no position", d.ID)))
		}
	}

	return errs
}

// FormatValidationErrors formats a slice of validation errors into a user-friendly message.
func FormatValidationErrors(errs []error) string {
	if len(errs) == 0 {
		return "No validation errors"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Validation found %d problem(s):\n", len(errs)))
	for i, err := range errs {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// IsWarning checks if a validation error is a warning (non-fatal).
func IsWarning(err error) bool {
	if gwErr, ok := asError(err); ok {
		return strings.HasPrefix(gwErr.Message, "warning:")
	}
	return strings.Contains(err.Error(), "warning:")
}

// SeparateWarningsAndErrors splits validation results into warnings and errors.
func SeparateWarningsAndErrors(errs []error) (warnings []error, criticalErrors []error) {
	for _, err := range errs {
		if IsWarning(err) {
			warnings = append(warnings, err)
		} else {
			criticalErrors = append(criticalErrors, err)
		}
	}
	return warnings, criticalErrors
}
