package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/normanctl/internal/logging"
)

// Requester performs an authenticated gateway request. *Client implements it.
type Requester interface {
	Request(ctx context.Context, endpoint string, payload any) (json.RawMessage, error)
}

// Gateway is the high-level API over a session: state queries and position commands.
type Gateway struct {
	requester Requester
}

// New creates a Gateway that sends its requests through r.
func New(r Requester) *Gateway {
	return &Gateway{requester: r}
}

// FetchRooms returns the gateway's room list.
func (g *Gateway) FetchRooms(ctx context.Context) ([]Room, error) {
	body, err := g.requester.Request(ctx, EndpointRooms, struct{}{})
	if err != nil {
		return nil, err
	}
	rooms, err := ParseRooms(body)
	if err != nil {
		return nil, withEndpoint(err, EndpointRooms)
	}
	return rooms, nil
}

// FetchDevices returns the gateway's window list.
func (g *Gateway) FetchDevices(ctx context.Context) ([]Device, error) {
	body, err := g.requester.Request(ctx, EndpointWindows, struct{}{})
	if err != nil {
		return nil, err
	}
	devices, err := ParseDevices(body)
	if err != nil {
		return nil, withEndpoint(err, EndpointWindows)
	}
	return devices, nil
}

// FetchCombinedState fetches rooms and devices concurrently and fuses them.
// Either failure fails the whole fetch.
func (g *Gateway) FetchCombinedState(ctx context.Context) (*CombinedState, error) {
	var (
		rooms   []Room
		devices []Device
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		rooms, err = g.FetchRooms(egCtx)
		return err
	})
	eg.Go(func() error {
		var err error
		devices, err = g.FetchDevices(egCtx)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	state := Fuse(rooms, devices)
	logging.Debug("Fetched combined state",
		zap.Int("rooms", len(state.Rooms)),
		zap.Int("devices", len(state.Entries)),
	)
	return state, nil
}

// SendDevicePosition moves one device to the allowed position nearest open.
// It returns once the gateway accepted the command, not when the motor arrives.
func (g *Gateway) SendDevicePosition(ctx context.Context, id ID, open int) (PositionCommand, error) {
	cmd := PositionCommand{TargetID: id, Scope: ScopeDevice, ClosedPercent: NearestClosedPercent(open)}
	return cmd, g.Send(ctx, cmd)
}

// SendRoomPosition moves every device of a room to the allowed position nearest open.
func (g *Gateway) SendRoomPosition(ctx context.Context, id ID, open int) (PositionCommand, error) {
	cmd := PositionCommand{TargetID: id, Scope: ScopeRoom, ClosedPercent: NearestClosedPercent(open)}
	return cmd, g.Send(ctx, cmd)
}

// OpenDevice sends the open shortcut to a device.
func (g *Gateway) OpenDevice(ctx context.Context, id ID) (PositionCommand, error) {
	return g.SendDevicePosition(ctx, id, OpenPreferencePercent)
}

// CloseDevice fully closes a device.
func (g *Gateway) CloseDevice(ctx context.Context, id ID) (PositionCommand, error) {
	return g.SendDevicePosition(ctx, id, OpenFromClosed(CloseClosedPercent))
}

// OpenRoom sends the open shortcut to a room.
func (g *Gateway) OpenRoom(ctx context.Context, id ID) (PositionCommand, error) {
	return g.SendRoomPosition(ctx, id, OpenPreferencePercent)
}

// CloseRoom fully closes a room.
func (g *Gateway) CloseRoom(ctx context.Context, id ID) (PositionCommand, error) {
	return g.SendRoomPosition(ctx, id, OpenFromClosed(CloseClosedPercent))
}

// Send dispatches an already quantized command.
func (g *Gateway) Send(ctx context.Context, cmd PositionCommand) error {
	if err := ValidateCommand(cmd); err != nil {
		return err
	}

	logging.Info("Sending position command",
		zap.String("scope", cmd.Scope.String()),
		zap.String("target", cmd.TargetID.String()),
		zap.Int("closed_percent", cmd.ClosedPercent),
	)

	if _, err := g.requester.Request(ctx, EndpointRemoteControl, cmd.payload()); err != nil {
		return fmt.Errorf("%s %s: %w", cmd.Scope, cmd.TargetID, err)
	}
	return nil
}

func withEndpoint(err error, endpoint string) error {
	if gwErr, ok := asError(err); ok && gwErr.Endpoint == "" {
		gwErr.Endpoint = endpoint
	}
	return err
}
