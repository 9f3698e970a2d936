package coordinator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/normanctl/internal/gateway"
)

type fakeGateway struct {
	mu       sync.Mutex
	state    *gateway.CombinedState
	fetchErr error
	sendErr  error
	fetches  atomic.Int32
	sent     []gateway.PositionCommand
}

func (f *fakeGateway) FetchCombinedState(context.Context) (*gateway.CombinedState, error) {
	f.fetches.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.state, nil
}

func (f *fakeGateway) send(scope gateway.CommandScope, id gateway.ID, open int) (gateway.PositionCommand, error) {
	cmd := gateway.PositionCommand{
		TargetID:      id,
		Scope:         scope,
		ClosedPercent: gateway.NearestClosedPercent(open),
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return cmd, f.sendErr
	}
	f.sent = append(f.sent, cmd)
	return cmd, nil
}

func (f *fakeGateway) SendDevicePosition(_ context.Context, id gateway.ID, open int) (gateway.PositionCommand, error) {
	return f.send(gateway.ScopeDevice, id, open)
}

func (f *fakeGateway) SendRoomPosition(_ context.Context, id gateway.ID, open int) (gateway.PositionCommand, error) {
	return f.send(gateway.ScopeRoom, id, open)
}

func (f *fakeGateway) lastSent(t *testing.T) gateway.PositionCommand {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

func intPtr(v int) *int { return &v }

func sampleState() *gateway.CombinedState {
	rooms := []gateway.Room{{ID: "1", Name: "Lounge"}, {ID: "2", Name: "Study"}}
	devices := []gateway.Device{
		{ID: "10", Name: "Left", RoomID: "1", RawClosedPercent: intPtr(100)},
		{ID: "11", Name: "Right", RoomID: "1", RawClosedPercent: intPtr(50)},
		{ID: "12", RoomID: "2"},
	}
	return gateway.Fuse(rooms, devices)
}

func TestRefresh_Success(t *testing.T) {
	gw := &fakeGateway{state: sampleState()}
	c := New(gw, Options{})

	require.NoError(t, c.Refresh(context.Background()))

	snap := c.Snapshot()
	assert.True(t, snap.LastUpdateSuccess)
	assert.NoError(t, snap.Err)
	assert.False(t, snap.LastSuccess.IsZero())
	assert.Len(t, snap.State.Entries, 3)
}

func TestRefresh_FailureKeepsLastState(t *testing.T) {
	gw := &fakeGateway{state: sampleState()}
	c := New(gw, Options{})
	require.NoError(t, c.Refresh(context.Background()))

	gw.mu.Lock()
	gw.fetchErr = gateway.NewNetworkError("unreachable", errors.New("boom"))
	gw.mu.Unlock()

	require.Error(t, c.Refresh(context.Background()))

	snap := c.Snapshot()
	assert.False(t, snap.LastUpdateSuccess)
	assert.False(t, snap.AuthFailed)
	require.NotNil(t, snap.State)
	assert.Len(t, snap.State.Entries, 3)

	cover, ok := c.DeviceCover("10")
	require.True(t, ok)
	assert.False(t, cover.Available)
	assert.False(t, c.RoomCover("1").Available)
}

func TestRefresh_AuthFailure(t *testing.T) {
	gw := &fakeGateway{fetchErr: gateway.NewAuthError("login rejected")}
	c := New(gw, Options{})

	err := c.Refresh(context.Background())
	require.Error(t, err)
	assert.True(t, c.Snapshot().AuthFailed)
}

func TestSubscribe(t *testing.T) {
	gw := &fakeGateway{state: sampleState()}
	c := New(gw, Options{})

	var calls atomic.Int32
	cancel := c.Subscribe(func(s Snapshot) {
		calls.Add(1)
		assert.True(t, s.LastUpdateSuccess)
	})

	require.NoError(t, c.Refresh(context.Background()))
	assert.EqualValues(t, 1, calls.Load())

	cancel()
	require.NoError(t, c.Refresh(context.Background()))
	assert.EqualValues(t, 1, calls.Load())
}

func TestDeviceCovers(t *testing.T) {
	c := New(&fakeGateway{state: sampleState()}, Options{})
	assert.Nil(t, c.DeviceCovers())

	require.NoError(t, c.Refresh(context.Background()))
	covers := c.DeviceCovers()
	require.Len(t, covers, 3)

	assert.Equal(t, "Left", covers[0].Name)
	assert.Equal(t, "Lounge", covers[0].Area)
	assert.True(t, covers[0].HasPosition)
	assert.Equal(t, 0, covers[0].OpenPercent)
	assert.True(t, covers[0].Closed)

	assert.Equal(t, 50, covers[1].OpenPercent)
	assert.False(t, covers[1].Closed)

	assert.Equal(t, "Window 12", covers[2].Name)
	assert.False(t, covers[2].HasPosition)
	assert.False(t, covers[2].Closed)

	_, ok := c.DeviceCover("99")
	assert.False(t, ok)
}

func TestRoomCovers(t *testing.T) {
	c := New(&fakeGateway{state: sampleState()}, Options{})
	require.NoError(t, c.Refresh(context.Background()))

	lounge := c.RoomCover("1")
	assert.True(t, lounge.Exists)
	assert.True(t, lounge.Available)
	assert.True(t, lounge.HasPosition)
	assert.Equal(t, 25, lounge.OpenPercent)

	study := c.RoomCover("2")
	assert.True(t, study.Exists)
	assert.False(t, study.HasPosition)

	assert.False(t, c.RoomCover("3").Available)
	assert.Len(t, c.RoomCovers(), 2)
}

func TestCommands(t *testing.T) {
	gw := &fakeGateway{state: sampleState()}

	var observed []gateway.PositionCommand
	c := New(gw, Options{
		RefreshDelay: time.Hour,
		Presets:      map[string]int{"privacy": 19},
		OnCommand: func(cmd gateway.PositionCommand, err error) {
			assert.NoError(t, err)
			observed = append(observed, cmd)
		},
	})
	t.Cleanup(c.stopTimer)
	ctx := context.Background()

	_, err := c.OpenDevice(ctx, "10")
	require.NoError(t, err)
	assert.Equal(t, 37, gw.lastSent(t).ClosedPercent)

	_, err = c.CloseDevice(ctx, "10")
	require.NoError(t, err)
	assert.Equal(t, 100, gw.lastSent(t).ClosedPercent)

	_, err = c.SetDevicePosition(ctx, "11", 40)
	require.NoError(t, err)
	assert.Equal(t, 65, gw.lastSent(t).ClosedPercent)

	_, err = c.OpenRoom(ctx, "1")
	require.NoError(t, err)
	last := gw.lastSent(t)
	assert.Equal(t, gateway.ScopeRoom, last.Scope)
	assert.Equal(t, 37, last.ClosedPercent)

	_, err = c.CloseRoom(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 100, gw.lastSent(t).ClosedPercent)

	_, err = c.ApplyRoomPreset(ctx, "1", "privacy")
	require.NoError(t, err)
	assert.Equal(t, 81, gw.lastSent(t).ClosedPercent)

	assert.Len(t, observed, 6)
}

func TestApplyRoomPreset_Unknown(t *testing.T) {
	gw := &fakeGateway{}
	c := New(gw, Options{})

	_, err := c.ApplyRoomPreset(context.Background(), "1", "disco")
	require.Error(t, err)
	assert.True(t, gateway.IsValidationError(err))
	assert.Empty(t, gw.sent)
}

func TestApplyRoomPreset_IgnoresCase(t *testing.T) {
	gw := &fakeGateway{}
	c := New(gw, Options{Presets: map[string]int{"Evening": 25}})

	_, err := c.ApplyRoomPreset(context.Background(), "1", "evening")
	require.NoError(t, err)
	_, err = c.ApplyRoomPreset(context.Background(), "1", " EVENING ")
	require.NoError(t, err)
	assert.Len(t, gw.sent, 2)
	assert.Equal(t, "evening", c.Presets()[0].Name)
}

func TestCommandFailureSkipsRefresh(t *testing.T) {
	gw := &fakeGateway{state: sampleState(), sendErr: gateway.NewHTTPError(500, "oops")}
	c := New(gw, Options{RefreshDelay: 0})

	_, err := c.OpenDevice(context.Background(), "10")
	require.Error(t, err)

	select {
	case <-c.refreshCh:
		t.Fatal("failed command must not schedule a refresh")
	default:
	}
}

func TestRequestRefresh_Coalesces(t *testing.T) {
	c := New(&fakeGateway{state: sampleState()}, Options{})

	c.RequestRefresh(time.Hour)
	c.RequestRefresh(time.Hour)
	c.RequestRefresh(0)
	c.RequestRefresh(0)

	assert.Len(t, c.refreshCh, 1)
	c.stopTimer()
}

func TestRun_RefreshesAfterCommand(t *testing.T) {
	gw := &fakeGateway{state: sampleState()}
	c := New(gw, Options{Interval: time.Hour, RefreshDelay: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return gw.fetches.Load() == 1 }, time.Second, 5*time.Millisecond)

	_, err := c.OpenDevice(ctx, "10")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return gw.fetches.Load() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestPresetsSorted(t *testing.T) {
	c := New(&fakeGateway{}, Options{Presets: map[string]int{"view": 63, "favorite": 50, "privacy": 19}})
	presets := c.Presets()
	require.Len(t, presets, 3)
	assert.Equal(t, []string{"favorite", "privacy", "view"},
		[]string{presets[0].Name, presets[1].Name, presets[2].Name})
}
