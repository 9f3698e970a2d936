package gateway

import "testing"

func stateFrom(t *testing.T, roomsBody, windowsBody string) *CombinedState {
	t.Helper()
	rooms, err := ParseRooms([]byte(roomsBody))
	if err != nil {
		t.Fatalf("ParseRooms() error = %v", err)
	}
	devices, err := ParseDevices([]byte(windowsBody))
	if err != nil {
		t.Fatalf("ParseDevices() error = %v", err)
	}
	return Fuse(rooms, devices)
}

func TestSummarizeRoom(t *testing.T) {
	tests := []struct {
		name        string
		windows     string
		wantOpen    int
		wantClosed  bool
		wantHasPos  bool
		wantDevices int
	}{
		{
			name:        "half open and half closed",
			windows:     `[{"Id": 1, "roomId": 1, "position": 100}, {"Id": 2, "roomId": 1, "position": 0}]`,
			wantOpen:    50,
			wantHasPos:  true,
			wantDevices: 2,
		},
		{
			name:        "all closed",
			windows:     `[{"Id": 1, "roomId": 1, "position": 100}, {"Id": 2, "roomId": 1, "position": 100}]`,
			wantOpen:    0,
			wantClosed:  true,
			wantHasPos:  true,
			wantDevices: 2,
		},
		{
			name:        "mean is truncated",
			windows:     `[{"Id": 1, "roomId": 1, "position": 33}, {"Id": 2, "roomId": 1, "position": 34}]`,
			wantOpen:    66,
			wantHasPos:  true,
			wantDevices: 2,
		},
		{
			name:        "devices without position are ignored in the mean",
			windows:     `[{"Id": 1, "roomId": 1, "position": 50}, {"Id": 2, "roomId": 1}]`,
			wantOpen:    50,
			wantHasPos:  true,
			wantDevices: 2,
		},
		{
			name:        "no positions",
			windows:     `[{"Id": 1, "roomId": 1}]`,
			wantDevices: 1,
		},
		{
			name:    "no devices",
			windows: `[{"Id": 1, "roomId": 2, "position": 0}]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := stateFrom(t, `[{"id": 1, "name": "Living"}, {"id": 2}]`, tt.windows)
			got := SummarizeRoom(state, "1")

			if !got.Exists {
				t.Error("room 1 is in the room list and must exist")
			}
			if got.Name != "Living" {
				t.Errorf("Name = %q, want Living", got.Name)
			}
			if got.HasPosition != tt.wantHasPos {
				t.Errorf("HasPosition = %v, want %v", got.HasPosition, tt.wantHasPos)
			}
			if got.OpenPercent != tt.wantOpen {
				t.Errorf("OpenPercent = %d, want %d", got.OpenPercent, tt.wantOpen)
			}
			if got.Closed != tt.wantClosed {
				t.Errorf("Closed = %v, want %v", got.Closed, tt.wantClosed)
			}
			if got.Devices != tt.wantDevices {
				t.Errorf("Devices = %d, want %d", got.Devices, tt.wantDevices)
			}
		})
	}
}

func TestSummarizeRoom_ExistsOnlyThroughDevice(t *testing.T) {
	state := stateFrom(t, `[{"id": 1}]`, `[{"Id": 5, "roomId": 9, "position": 20}]`)

	got := SummarizeRoom(state, "9")
	if !got.Exists {
		t.Error("room referenced by a device must exist")
	}
	if !got.HasPosition || got.OpenPercent != 80 {
		t.Errorf("summary = %+v, want open 80", got)
	}
}

func TestSummarizeRoom_Unknown(t *testing.T) {
	state := stateFrom(t, `[{"id": 1}]`, `[]`)

	got := SummarizeRoom(state, "42")
	if got.Exists || got.HasPosition {
		t.Errorf("summary = %+v, want a room that neither exists nor has a position", got)
	}
	if SummarizeRoom(nil, "1").Exists {
		t.Error("nil state cannot contain rooms")
	}
}

func TestRoomIDs(t *testing.T) {
	withList := stateFrom(t, `[{"id": 2}, {"id": 1}]`, `[{"Id": 1, "roomId": 7}]`)
	got := RoomIDs(withList)
	if len(got) != 2 || got[0] != "2" || got[1] != "1" {
		t.Errorf("RoomIDs() = %v, want [2 1]", got)
	}

	derived := stateFrom(t, `[]`, `[{"Id": 1, "roomId": 7}, {"Id": 2, "roomId": 3}, {"Id": 3, "roomId": 7}, {"Id": 4}]`)
	got = RoomIDs(derived)
	if len(got) != 2 || got[0] != "7" || got[1] != "3" {
		t.Errorf("RoomIDs() derived = %v, want [7 3]", got)
	}
}

func TestSummarizeRooms(t *testing.T) {
	state := stateFrom(t, `[]`, `[{"Id": 1, "roomId": 7, "position": 100}, {"Id": 2, "roomId": 3, "position": 0}]`)

	summaries := SummarizeRooms(state)
	if len(summaries) != 2 {
		t.Fatalf("len(SummarizeRooms()) = %d, want 2", len(summaries))
	}
	if !summaries[0].Closed {
		t.Errorf("room 7 = %+v, want closed", summaries[0])
	}
	if summaries[1].OpenPercent != 100 {
		t.Errorf("room 3 OpenPercent = %d, want 100", summaries[1].OpenPercent)
	}
}
