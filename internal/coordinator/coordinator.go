package coordinator

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/normanctl/internal/gateway"
	"github.com/muurk/normanctl/internal/logging"
)

const (
	// DefaultInterval is the periodic refresh interval
	DefaultInterval = 30 * time.Second

	// DefaultRefreshDelay is the wait after a command before state is read back
	DefaultRefreshDelay = 5 * time.Second
)

// Gateway is the part of *gateway.Gateway the coordinator drives.
type Gateway interface {
	FetchCombinedState(ctx context.Context) (*gateway.CombinedState, error)
	SendDevicePosition(ctx context.Context, id gateway.ID, open int) (gateway.PositionCommand, error)
	SendRoomPosition(ctx context.Context, id gateway.ID, open int) (gateway.PositionCommand, error)
}

// Options configures a Coordinator. Zero values take the defaults.
type Options struct {
	Interval     time.Duration
	RefreshDelay time.Duration
	Presets      map[string]int // name -> open percentage

	// OnCommand is called after every command attempt.
	OnCommand func(cmd gateway.PositionCommand, err error)
}

// Snapshot is the coordinator's view after the latest refresh attempt.
// State is the last successfully fetched state and survives failed refreshes.
type Snapshot struct {
	State             *gateway.CombinedState
	UpdatedAt         time.Time // last attempt
	LastSuccess       time.Time
	LastUpdateSuccess bool
	Err               error
	AuthFailed        bool // the gateway rejected the password; user action needed
}

// Coordinator polls the gateway, holds the latest snapshot and schedules a
// refresh after every command.
type Coordinator struct {
	gw   Gateway
	opts Options

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners map[int]func(Snapshot)
	nextID    int

	refreshMu sync.Mutex
	refreshCh chan struct{}

	timerMu sync.Mutex
	timer   *time.Timer
}

// New creates a coordinator for gw.
func New(gw Gateway, opts Options) *Coordinator {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.RefreshDelay < 0 {
		opts.RefreshDelay = 0
	}
	presets := make(map[string]int, len(opts.Presets))
	for name, open := range opts.Presets {
		presets[presetKey(name)] = open
	}
	opts.Presets = presets
	return &Coordinator{
		gw:        gw,
		opts:      opts,
		listeners: make(map[int]func(Snapshot)),
		refreshCh: make(chan struct{}, 1),
	}
}

// Run refreshes immediately, then on every interval tick and every requested
// refresh, until ctx is done.
func (c *Coordinator) Run(ctx context.Context) error {
	_ = c.Refresh(ctx)

	ticker := time.NewTicker(c.opts.Interval)
	defer ticker.Stop()
	defer c.stopTimer()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_ = c.Refresh(ctx)
		case <-c.refreshCh:
			_ = c.Refresh(ctx)
		}
	}
}

// Refresh fetches the combined state now and notifies listeners.
// Concurrent calls are serialized.
func (c *Coordinator) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	state, err := c.gw.FetchCombinedState(ctx)
	now := time.Now()

	c.mu.Lock()
	c.snapshot.UpdatedAt = now
	if err != nil {
		c.snapshot.LastUpdateSuccess = false
		c.snapshot.Err = err
		c.snapshot.AuthFailed = gateway.IsAuthError(err)
	} else {
		c.snapshot.State = state
		c.snapshot.LastSuccess = now
		c.snapshot.LastUpdateSuccess = true
		c.snapshot.Err = nil
		c.snapshot.AuthFailed = false
	}
	snap := c.snapshot
	listeners := make([]func(Snapshot), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	if err != nil {
		if snap.AuthFailed {
			logging.Error("Gateway rejected credentials; reconfigure the password", zap.Error(err))
		} else {
			logging.Warn("Refresh failed", zap.Error(err))
		}
	} else {
		logging.Debug("Refresh complete", zap.Int("devices", len(state.Entries)))
	}

	for _, fn := range listeners {
		fn(snap)
	}
	return err
}

// RequestRefresh schedules a refresh after delay without blocking. A new
// request replaces a pending one, so bursts of commands produce one refresh.
func (c *Coordinator) RequestRefresh(delay time.Duration) {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()

	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if delay <= 0 {
		c.signalRefresh()
		return
	}
	c.timer = time.AfterFunc(delay, c.signalRefresh)
}

func (c *Coordinator) signalRefresh() {
	select {
	case c.refreshCh <- struct{}{}:
	default:
	}
}

func (c *Coordinator) stopTimer() {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// Snapshot returns the current snapshot.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// Subscribe registers fn to be called after every refresh attempt.
// The returned function removes the subscription.
func (c *Coordinator) Subscribe(fn func(Snapshot)) (cancel func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// RefreshDelay returns the configured post-command refresh delay.
func (c *Coordinator) RefreshDelay() time.Duration {
	return c.opts.RefreshDelay
}

// Preset is a named room position.
type Preset struct {
	Name        string `json:"name"`
	OpenPercent int    `json:"open_percent"`
}

// presetKey is the canonical form of a preset name; names are case-insensitive.
func presetKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Presets returns the configured presets sorted by name.
func (c *Coordinator) Presets() []Preset {
	presets := make([]Preset, 0, len(c.opts.Presets))
	for name, open := range c.opts.Presets {
		presets = append(presets, Preset{Name: name, OpenPercent: open})
	}
	sort.Slice(presets, func(i, j int) bool { return presets[i].Name < presets[j].Name })
	return presets
}
