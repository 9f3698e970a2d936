package coordinator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/normanctl/internal/gateway"
	"github.com/muurk/normanctl/internal/logging"
)

// SetDevicePosition moves a device and schedules a refresh once the gateway accepts it.
func (c *Coordinator) SetDevicePosition(ctx context.Context, id gateway.ID, open int) (gateway.PositionCommand, error) {
	cmd, err := c.gw.SendDevicePosition(ctx, id, open)
	c.afterCommand(cmd, err)
	return cmd, err
}

// SetRoomPosition moves every device in a room and schedules a refresh.
func (c *Coordinator) SetRoomPosition(ctx context.Context, id gateway.ID, open int) (gateway.PositionCommand, error) {
	cmd, err := c.gw.SendRoomPosition(ctx, id, open)
	c.afterCommand(cmd, err)
	return cmd, err
}

// OpenDevice sends the open shortcut to a device.
func (c *Coordinator) OpenDevice(ctx context.Context, id gateway.ID) (gateway.PositionCommand, error) {
	return c.SetDevicePosition(ctx, id, gateway.OpenPreferencePercent)
}

// CloseDevice fully closes a device.
func (c *Coordinator) CloseDevice(ctx context.Context, id gateway.ID) (gateway.PositionCommand, error) {
	return c.SetDevicePosition(ctx, id, gateway.OpenFromClosed(gateway.CloseClosedPercent))
}

// OpenRoom sends the open shortcut to a room.
func (c *Coordinator) OpenRoom(ctx context.Context, id gateway.ID) (gateway.PositionCommand, error) {
	return c.SetRoomPosition(ctx, id, gateway.OpenPreferencePercent)
}

// CloseRoom fully closes a room.
func (c *Coordinator) CloseRoom(ctx context.Context, id gateway.ID) (gateway.PositionCommand, error) {
	return c.SetRoomPosition(ctx, id, gateway.OpenFromClosed(gateway.CloseClosedPercent))
}

// ApplyRoomPreset moves a room to a named preset.
func (c *Coordinator) ApplyRoomPreset(ctx context.Context, id gateway.ID, name string) (gateway.PositionCommand, error) {
	open, ok := c.opts.Presets[presetKey(name)]
	if !ok {
		return gateway.PositionCommand{}, gateway.NewValidationError(fmt.Sprintf("unknown preset %q", name))
	}
	return c.SetRoomPosition(ctx, id, open)
}

func (c *Coordinator) afterCommand(cmd gateway.PositionCommand, err error) {
	if c.opts.OnCommand != nil {
		c.opts.OnCommand(cmd, err)
	}
	if err != nil {
		logging.Warn("Command failed",
			zap.String("scope", cmd.Scope.String()),
			zap.String("target", cmd.TargetID.String()),
			zap.Error(err),
		)
		return
	}
	c.RequestRefresh(c.opts.RefreshDelay)
}
