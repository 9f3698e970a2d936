package mqttbridge

import (
	"time"

	"github.com/muurk/normanctl/internal/coordinator"
	"github.com/muurk/normanctl/internal/gateway"
)

// WindowState is the JSON document published for one window.
type WindowState struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Room        string   `json:"room,omitempty"`
	Available   bool     `json:"available"`
	State       string   `json:"state"` // open, closed or unknown
	OpenPercent *int     `json:"open_percent"`
	Battery     *float64 `json:"battery,omitempty"`
	RSSI        *float64 `json:"rssi,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Solar       *float64 `json:"solar,omitempty"`
	USB         *float64 `json:"usb,omitempty"`
	Firmware    string   `json:"firmware,omitempty"`
}

// RoomState is the JSON document published for one room.
type RoomState struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Available   bool   `json:"available"`
	State       string `json:"state"`
	OpenPercent *int   `json:"open_percent"`
	Windows     int    `json:"windows"`
}

// GatewayState is the JSON document describing gateway health.
type GatewayState struct {
	Available   bool       `json:"available"`
	AuthFailed  bool       `json:"auth_failed"`
	LastSuccess *time.Time `json:"last_success,omitempty"`
	Error       string     `json:"error,omitempty"`
}

func positionState(has bool, closed bool) string {
	switch {
	case !has:
		return "unknown"
	case closed:
		return "closed"
	default:
		return "open"
	}
}

// NewWindowState converts a cover into its published form.
func NewWindowState(c coordinator.DeviceCover) WindowState {
	s := WindowState{
		ID:          c.ID.String(),
		Name:        c.Name,
		Room:        c.Area,
		Available:   c.Available,
		State:       positionState(c.HasPosition, c.Closed),
		Battery:     c.Device.Battery,
		RSSI:        c.Device.SignalStrength,
		Temperature: c.Device.Temperature,
		Solar:       c.Device.Solar,
		USB:         c.Device.USBPower,
		Firmware:    c.Device.Firmware,
	}
	if c.HasPosition {
		open := c.OpenPercent
		s.OpenPercent = &open
	}
	return s
}

// NewRoomState converts a room cover into its published form.
func NewRoomState(c coordinator.RoomCover) RoomState {
	s := RoomState{
		ID:        c.ID.String(),
		Name:      c.Name,
		Available: c.Available,
		State:     positionState(c.HasPosition, c.Closed),
		Windows:   c.Devices,
	}
	if c.HasPosition {
		open := c.OpenPercent
		s.OpenPercent = &open
	}
	return s
}

// NewGatewayState summarizes a snapshot.
func NewGatewayState(snap coordinator.Snapshot) GatewayState {
	s := GatewayState{
		Available:  snap.LastUpdateSuccess,
		AuthFailed: snap.AuthFailed,
	}
	if !snap.LastSuccess.IsZero() {
		t := snap.LastSuccess.UTC()
		s.LastSuccess = &t
	}
	if snap.Err != nil {
		s.Error = gateway.ShortMessage(snap.Err)
	}
	return s
}
