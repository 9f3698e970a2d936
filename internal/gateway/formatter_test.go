package gateway

import (
	"strings"
	"testing"
)

func TestDeviceSummary(t *testing.T) {
	closed := 100
	half := 50

	tests := []struct {
		d    Device
		want string
	}{
		{Device{ID: "1", Name: "Left", RawClosedPercent: &closed}, "Left [1] closed"},
		{Device{ID: "2", RawClosedPercent: &half}, "Window 2 [2] 50% open"},
		{Device{ID: "3", Name: "Right"}, "Right [3] position unknown"},
	}

	for _, tt := range tests {
		if got := tt.d.Summary(); got != tt.want {
			t.Errorf("Summary() = %q, want %q", got, tt.want)
		}
	}
}

func TestFormatRoomSummary(t *testing.T) {
	tests := []struct {
		r    RoomSummary
		want string
	}{
		{RoomSummary{ID: "1", Name: "Living", Exists: true, HasPosition: true, OpenPercent: 40, Devices: 2}, "Living [1] 2 window(s), 40% open"},
		{RoomSummary{ID: "2", Exists: true, HasPosition: true, Closed: true, Devices: 1}, "Room 2 [2] 1 window(s), closed"},
		{RoomSummary{ID: "3", Exists: true}, "Room 3 [3] 0 window(s), position unknown"},
		{RoomSummary{ID: "4"}, "Room 4 [4] unknown room"},
	}

	for _, tt := range tests {
		if got := FormatRoomSummary(tt.r); got != tt.want {
			t.Errorf("FormatRoomSummary() = %q, want %q", got, tt.want)
		}
	}
}

func TestFormatDetailed(t *testing.T) {
	state := stateFrom(t, `[{"id": 1, "name": "Living"}]`,
		`[{"Id": 11, "Name": "Left", "roomId": 1, "position": 40, "battery": 90, "ver": "2.1"}]`)

	out := FormatDetailed(state)
	for _, want := range []string{"=== Rooms ===", "Living [1]", "=== Left ===", "Battery:     90%", "Firmware:    2.1", "Room:        Living"} {
		if !strings.Contains(out, want) {
			t.Errorf("FormatDetailed() missing %q:\n%s", want, out)
		}
	}
}

func TestFormatCompact(t *testing.T) {
	state := stateFrom(t, `[]`, `[{"Id": 11, "Name": "Left", "roomId": 1, "position": 100}]`)

	out := FormatCompact(state)
	if !strings.Contains(out, "Room 1 [1] 1 window(s), closed") {
		t.Errorf("FormatCompact() = %q", out)
	}
	if FormatCompact(nil) != "No state\n" {
		t.Error("FormatCompact(nil) should not panic")
	}
}
