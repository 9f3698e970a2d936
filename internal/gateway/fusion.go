package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// List keys used when the gateway wraps a list in an object.
const (
	roomsListKey   = "rooms"
	windowsListKey = "windows"
)

// ParseRooms decodes a getRoomInfo response body.
func ParseRooms(body []byte) ([]Room, error) {
	records, err := extractList(body, roomsListKey)
	if err != nil {
		return nil, err
	}

	rooms := make([]Room, 0, len(records))
	for _, rec := range records {
		room := Room{Raw: rec}
		room.ID, _ = rec.ID(RoomIDKeys)
		room.Name, _ = rec.String(AreaNameKeys)
		rooms = append(rooms, room)
	}
	return rooms, nil
}

// ParseDevices decodes a getWindowInfo response body.
func ParseDevices(body []byte) ([]Device, error) {
	records, err := extractList(body, windowsListKey)
	if err != nil {
		return nil, err
	}

	devices := make([]Device, 0, len(records))
	for _, rec := range records {
		devices = append(devices, deviceFromRecord(rec))
	}
	return devices, nil
}

func deviceFromRecord(rec Record) Device {
	d := Device{Raw: rec}
	d.ID, _ = rec.ID(DeviceIDKeys)
	d.Name, _ = rec.String(DeviceNameKeys)
	d.RoomID, _ = rec.ID(DeviceRoomIDKeys)
	d.Firmware, _ = rec.String(FirmwareKeys)

	if v, ok := rec.Number(PositionKeys); ok {
		p := percentFromNumber(v)
		d.RawClosedPercent = &p
	}
	d.Battery = optionalNumber(rec, BatteryKeys)
	d.SignalStrength = optionalNumber(rec, SignalStrengthKeys)
	d.Temperature = optionalNumber(rec, TemperatureKeys)
	d.Solar = optionalNumber(rec, SolarKeys)
	d.USBPower = optionalNumber(rec, USBPowerKeys)
	return d
}

func optionalNumber(rec Record, keys []string) *float64 {
	v, ok := rec.Number(keys)
	if !ok {
		return nil
	}
	return &v
}

// extractList accepts either a bare JSON array of objects or an object
// holding that array under key.
func extractList(body []byte, key string) ([]Record, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, NewMalformedError("response is not valid JSON", err)
	}

	var items []any
	switch v := payload.(type) {
	case []any:
		items = v
	case map[string]any:
		list, ok := v[key].([]any)
		if !ok {
			return nil, NewMalformedError(fmt.Sprintf("response object has no %q list", key), nil)
		}
		items = list
	default:
		return nil, NewMalformedError(fmt.Sprintf("expected a list or an object with %q, got %T", key, payload), nil)
	}

	records := make([]Record, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, NewMalformedError(fmt.Sprintf("%s[%d] is not an object", key, i), nil)
		}
		records = append(records, Record(obj))
	}
	return records, nil
}

// Fuse joins devices to rooms. Entries keep device order; a device whose
// room cannot be resolved keeps a nil Room and an empty DisplayArea.
func Fuse(rooms []Room, devices []Device) *CombinedState {
	byID := make(map[ID]int, len(rooms))
	for i, r := range rooms {
		if r.ID == "" {
			continue
		}
		if _, dup := byID[r.ID]; !dup {
			byID[r.ID] = i
		}
	}

	state := &CombinedState{
		Rooms:   rooms,
		Entries: make([]Entry, 0, len(devices)),
	}
	for _, d := range devices {
		entry := Entry{Device: d}
		if d.RoomID != "" {
			if idx, ok := byID[d.RoomID]; ok {
				room := rooms[idx]
				entry.Room = &room
				entry.DisplayArea = room.Name
			}
		}
		state.Entries = append(state.Entries, entry)
	}
	return state
}
