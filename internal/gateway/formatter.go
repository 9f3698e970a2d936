package gateway

import (
	"fmt"
	"strings"
)

// Summary returns a one-line summary of a device
func (d Device) Summary() string {
	return fmt.Sprintf("%s [%s] %s", d.displayName(), d.ID, describeOpen(d))
}

func (d Device) displayName() string {
	if d.Name != "" {
		return d.Name
	}
	return "Window " + string(d.ID)
}

func describeOpen(d Device) string {
	open, ok := d.OpenPercent()
	if !ok {
		return "position unknown"
	}
	if open == 0 {
		return "closed"
	}
	return fmt.Sprintf("%d%% open", open)
}

// FormatDeviceInfo returns a formatted block with one device's telemetry
func FormatDeviceInfo(e Entry) string {
	var b strings.Builder
	d := e.Device

	b.WriteString(fmt.Sprintf("=== %s ===\n", d.displayName()))
	b.WriteString(fmt.Sprintf("ID:          %s\n", d.ID))
	b.WriteString(fmt.Sprintf("Room:        %s\n", areaOrDash(e)))
	b.WriteString(fmt.Sprintf("Position:    %s\n", describeOpen(d)))
	b.WriteString(fmt.Sprintf("Battery:     %s\n", formatOptional(d.Battery, "%.0f%%")))
	b.WriteString(fmt.Sprintf("Signal:      %s\n", formatOptional(d.SignalStrength, "%.0f dBm")))
	b.WriteString(fmt.Sprintf("Temperature: %s\n", formatOptional(d.Temperature, "%.1f °C")))
	b.WriteString(fmt.Sprintf("Solar:       %s\n", formatOptional(d.Solar, "%.0f")))
	b.WriteString(fmt.Sprintf("USB Power:   %s\n", formatOptional(d.USBPower, "%.0f")))
	if d.Firmware != "" {
		b.WriteString(fmt.Sprintf("Firmware:    %s\n", d.Firmware))
	}

	return b.String()
}

// FormatRoomSummary returns a one-line room description
func FormatRoomSummary(r RoomSummary) string {
	name := r.Name
	if name == "" {
		name = "Room " + string(r.ID)
	}
	switch {
	case !r.Exists:
		return fmt.Sprintf("%s [%s] unknown room", name, r.ID)
	case !r.HasPosition:
		return fmt.Sprintf("%s [%s] %d window(s), position unknown", name, r.ID, r.Devices)
	case r.Closed:
		return fmt.Sprintf("%s [%s] %d window(s), closed", name, r.ID, r.Devices)
	default:
		return fmt.Sprintf("%s [%s] %d window(s), %d%% open", name, r.ID, r.Devices, r.OpenPercent)
	}
}

// FormatCompact returns a compact multi-line format suitable for terminal display
func FormatCompact(state *CombinedState) string {
	if state == nil {
		return "No state\n"
	}
	var b strings.Builder

	for _, r := range SummarizeRooms(state) {
		b.WriteString(FormatRoomSummary(r))
		b.WriteString("\n")
	}
	for _, e := range state.Entries {
		b.WriteString(fmt.Sprintf("  %-24s %s\n", e.Device.displayName(), describeOpen(e.Device)))
	}

	return b.String()
}

// FormatDetailed returns every room summary followed by every device block
func FormatDetailed(state *CombinedState) string {
	if state == nil {
		return "No state\n"
	}
	var b strings.Builder

	b.WriteString("=== Rooms ===\n")
	rooms := SummarizeRooms(state)
	if len(rooms) == 0 {
		b.WriteString("(none)\n")
	}
	for _, r := range rooms {
		b.WriteString(FormatRoomSummary(r))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	for _, e := range state.Entries {
		b.WriteString(FormatDeviceInfo(e))
		b.WriteString("\n")
	}

	return b.String()
}

func areaOrDash(e Entry) string {
	if e.DisplayArea != "" {
		return e.DisplayArea
	}
	if e.Device.RoomID != "" {
		return "room " + string(e.Device.RoomID)
	}
	return "-"
}

func formatOptional(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}
