package gateway

import "math"

// Room is one entry of the gateway's room list.
type Room struct {
	ID   ID     `json:"id"`
	Name string `json:"name,omitempty"`
	Raw  Record `json:"-"`
}

// Device is one motorized window covering as reported by the window list.
type Device struct {
	ID     ID     `json:"id"`
	Name   string `json:"name,omitempty"`
	RoomID ID     `json:"room_id,omitempty"`

	// RawClosedPercent is the gateway's position value: 0 is fully open, 100 fully closed.
	RawClosedPercent *int `json:"closed_percent,omitempty"`

	Battery        *float64 `json:"battery,omitempty"`
	SignalStrength *float64 `json:"rssi,omitempty"`
	Temperature    *float64 `json:"temperature,omitempty"`
	Solar          *float64 `json:"solar,omitempty"`
	USBPower       *float64 `json:"usb,omitempty"`
	Firmware       string   `json:"firmware,omitempty"`

	Raw Record `json:"-"`
}

// OpenPercent returns 100 - RawClosedPercent clamped to [0,100].
// ok is false when the device reported no position.
func (d Device) OpenPercent() (open int, ok bool) {
	if d.RawClosedPercent == nil {
		return 0, false
	}
	return OpenFromClosed(*d.RawClosedPercent), true
}

// IsClosed reports whether the device is fully closed. ok is false without a position.
func (d Device) IsClosed() (closed bool, ok bool) {
	open, ok := d.OpenPercent()
	if !ok {
		return false, false
	}
	return open == 0, true
}

// Entry is a device together with its resolved room.
type Entry struct {
	Device      Device `json:"device"`
	Room        *Room  `json:"room,omitempty"`
	DisplayArea string `json:"display_area,omitempty"`
}

// CombinedState is the fused view built from one rooms fetch and one devices fetch.
type CombinedState struct {
	Rooms   []Room  `json:"rooms"`
	Entries []Entry `json:"entries"`
}

// Entry returns the entry of the device with the given id.
func (s *CombinedState) Entry(id ID) (Entry, bool) {
	if s == nil {
		return Entry{}, false
	}
	for _, e := range s.Entries {
		if e.Device.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Room returns the room with the given id from the room list.
func (s *CombinedState) Room(id ID) (Room, bool) {
	if s == nil {
		return Room{}, false
	}
	for _, r := range s.Rooms {
		if r.ID == id {
			return r, true
		}
	}
	return Room{}, false
}

// Devices returns the devices in fetch order.
func (s *CombinedState) Devices() []Device {
	if s == nil {
		return nil
	}
	devices := make([]Device, 0, len(s.Entries))
	for _, e := range s.Entries {
		devices = append(devices, e.Device)
	}
	return devices
}

// CommandScope tells the gateway whether a command targets one device or a whole room.
type CommandScope int

const (
	ScopeDevice CommandScope = iota
	ScopeRoom
)

func (s CommandScope) String() string {
	if s == ScopeRoom {
		return "room"
	}
	return "device"
}

// PositionCommand is a quantized position request ready to be sent.
type PositionCommand struct {
	TargetID      ID           `json:"target_id"`
	Scope         CommandScope `json:"-"`
	ClosedPercent int          `json:"closed_percent"`
}

// OpenPercent returns the open percentage the command will produce.
func (c PositionCommand) OpenPercent() int {
	return OpenFromClosed(c.ClosedPercent)
}

// payload returns the RemoteControl request body for the command.
func (c PositionCommand) payload() map[string]any {
	logicalID := DeviceLogicalID
	if c.Scope == ScopeRoom {
		logicalID = RoomLogicalID
	}
	return map[string]any{
		"model":    RemoteControlModel,
		"Id":       c.TargetID.WireValue(),
		"LId":      logicalID,
		"position": c.ClosedPercent,
	}
}

// percentFromNumber clamps before converting; out of range float to int
// conversions are implementation-defined. NaN counts as 0.
func percentFromNumber(f float64) int {
	if math.IsNaN(f) {
		return 0
	}
	return int(math.Trunc(math.Min(math.Max(f, 0), 100)))
}
