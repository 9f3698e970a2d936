package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/normanctl/internal/coordinator"
	"github.com/muurk/normanctl/internal/gateway"
	"github.com/muurk/normanctl/internal/metrics"
)

type fakeGateway struct {
	mu       sync.Mutex
	state    *gateway.CombinedState
	fetchErr error
	sendErr  error
	sent     []gateway.PositionCommand
}

func (f *fakeGateway) FetchCombinedState(context.Context) (*gateway.CombinedState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, f.fetchErr
}

func (f *fakeGateway) send(scope gateway.CommandScope, id gateway.ID, open int) (gateway.PositionCommand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := gateway.PositionCommand{TargetID: id, Scope: scope, ClosedPercent: gateway.NearestClosedPercent(open)}
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

func (f *fakeGateway) lastSent() (gateway.PositionCommand, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return gateway.PositionCommand{}, false
	}
	return f.sent[len(f.sent)-1], true
}

func intPtr(v int) *int { return &v }

type fixture struct {
	gw    *fakeGateway
	coord *coordinator.Coordinator
	srv   *Server
	http  *httptest.Server
}

func newFixture(t *testing.T, refresh bool) *fixture {
	t.Helper()
	gw := &fakeGateway{state: gateway.Fuse(
		[]gateway.Room{{ID: "1", Name: "Lounge"}},
		[]gateway.Device{
			{ID: "10", Name: "Left", RoomID: "1", RawClosedPercent: intPtr(100)},
			{ID: "11", Name: "Right", RoomID: "1", RawClosedPercent: intPtr(0)},
		},
	)}
	coord := coordinator.New(gw, coordinator.Options{
		RefreshDelay: time.Hour,
		Presets:      map[string]int{"privacy": 19},
	})
	if refresh {
		require.NoError(t, coord.Refresh(context.Background()))
	}

	registry := metrics.NewRegistry(metrics.NewCollector(coord))
	srv, err := New(&Config{Addr: "127.0.0.1:0"}, coord, registry)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler(registry))
	t.Cleanup(ts.Close)
	t.Cleanup(srv.hub.CloseAll)
	return &fixture{gw: gw, coord: coord, srv: srv, http: ts}
}

func (f *fixture) post(t *testing.T, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(f.http.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestHealth(t *testing.T) {
	f := newFixture(t, false)

	resp, err := http.Get(f.http.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	f.gw.mu.Lock()
	f.gw.fetchErr = gateway.NewNetworkError("unreachable", nil)
	f.gw.mu.Unlock()
	_ = f.coord.Refresh(context.Background())

	resp, err = http.Get(f.http.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "degraded", body["status"])
}

func TestState(t *testing.T) {
	f := newFixture(t, true)

	resp, err := http.Get(f.http.URL + "/api/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var state StateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	assert.True(t, state.Gateway.Available)
	require.Len(t, state.Windows, 2)
	assert.True(t, state.Windows[0].Closed)
	assert.Equal(t, 100, state.Windows[1].OpenPercent)
	require.Len(t, state.Rooms, 1)
	assert.Equal(t, 50, state.Rooms[0].OpenPercent)
	assert.Equal(t, []coordinator.Preset{{Name: "privacy", OpenPercent: 19}}, state.Presets)
}

func TestStateBeforeFirstRefresh(t *testing.T) {
	f := newFixture(t, false)

	resp, err := http.Get(f.http.URL + "/api/state")
	require.NoError(t, err)
	defer resp.Body.Close()

	var raw map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.Equal(t, []any{}, raw["windows"])
}

func TestGetWindowAndRoom(t *testing.T) {
	f := newFixture(t, true)

	for path, want := range map[string]int{
		"/api/windows/10": http.StatusOK,
		"/api/windows/99": http.StatusNotFound,
		"/api/rooms/1":    http.StatusOK,
		"/api/rooms/7":    http.StatusNotFound,
	} {
		resp, err := http.Get(f.http.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, want, resp.StatusCode, path)
	}
}

func TestWindowPosition(t *testing.T) {
	f := newFixture(t, true)

	resp, body := f.post(t, "/api/windows/10/position", `{"open": 40}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "device", body["scope"])
	assert.EqualValues(t, 65, body["closed_percent"])
	assert.EqualValues(t, 35, body["open_percent"])

	resp, _ = f.post(t, "/api/windows/10/position", `{"action": "OPEN"}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	last, ok := f.gw.lastSent()
	require.True(t, ok)
	assert.Equal(t, 37, last.ClosedPercent)

	resp, _ = f.post(t, "/api/windows/10/position", `{"action": "close"}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	last, _ = f.gw.lastSent()
	assert.Equal(t, 100, last.ClosedPercent)
}

func TestWindowPosition_BadRequests(t *testing.T) {
	f := newFixture(t, true)

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"not json", "/api/windows/10/position", `open`, http.StatusBadRequest},
		{"unknown field", "/api/windows/10/position", `{"tilt": 3}`, http.StatusBadRequest},
		{"empty", "/api/windows/10/position", `{}`, http.StatusBadRequest},
		{"two fields", "/api/windows/10/position", `{"open": 3, "action": "open"}`, http.StatusBadRequest},
		{"out of range", "/api/windows/10/position", `{"open": 101}`, http.StatusBadRequest},
		{"bad action", "/api/windows/10/position", `{"action": "stop"}`, http.StatusBadRequest},
		{"preset on window", "/api/windows/10/position", `{"preset": "privacy"}`, http.StatusBadRequest},
		{"unknown window", "/api/windows/99/position", `{"open": 10}`, http.StatusNotFound},
		{"unknown room", "/api/rooms/9/position", `{"open": 10}`, http.StatusNotFound},
		{"unknown preset", "/api/rooms/1/position", `{"preset": "disco"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := f.post(t, tt.path, tt.body)
			assert.Equal(t, tt.want, resp.StatusCode)
			assert.NotEmpty(t, body["error"])
		})
	}

	_, ok := f.gw.lastSent()
	assert.False(t, ok, "no command should reach the gateway")
}

func TestRoomPosition(t *testing.T) {
	f := newFixture(t, true)

	resp, body := f.post(t, "/api/rooms/1/position", `{"preset": "privacy"}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "room", body["scope"])
	assert.EqualValues(t, 81, body["closed_percent"])

	resp, _ = f.post(t, "/api/rooms/1/position", `{"open": 0}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	last, _ := f.gw.lastSent()
	assert.Equal(t, gateway.ScopeRoom, last.Scope)
	assert.Equal(t, 100, last.ClosedPercent)
}

func TestPosition_GatewayFailure(t *testing.T) {
	f := newFixture(t, true)
	f.gw.sendErr = gateway.NewAuthError("login rejected")

	resp, body := f.post(t, "/api/rooms/1/position", `{"action": "open"}`)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, body["hint"], gateway.DefaultPassword)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, true)

	resp, err := http.Get(f.http.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `norman_window_open_percent{room="Lounge",window_id="11",window_name="Right"} 100`)
	assert.Contains(t, string(body), "norman_gateway_up 1")
}

func TestWebSocket(t *testing.T) {
	f := newFixture(t, true)

	url := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var initial StateResponse
	require.NoError(t, conn.ReadJSON(&initial))
	assert.Len(t, initial.Windows, 2)

	require.Eventually(t, func() bool { return f.srv.GetActiveConnections() == 1 }, time.Second, 5*time.Millisecond)

	cancel := f.coord.Subscribe(f.srv.hub.BroadcastSnapshot(f.coord))
	defer cancel()

	f.gw.mu.Lock()
	f.gw.state = gateway.Fuse(nil, []gateway.Device{{ID: "10", RawClosedPercent: intPtr(50)}})
	f.gw.mu.Unlock()
	require.NoError(t, f.coord.Refresh(context.Background()))

	var update StateResponse
	require.NoError(t, conn.ReadJSON(&update))
	require.Len(t, update.Windows, 1)
	assert.Equal(t, 50, update.Windows[0].OpenPercent)
}

func TestStatusForError(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusForError(gateway.NewValidationError("x")))
	assert.Equal(t, http.StatusBadGateway, statusForError(gateway.NewHTTPError(500, "")))
	assert.Equal(t, http.StatusBadGateway, statusForError(gateway.NewMalformedError("x", nil)))
	assert.Equal(t, http.StatusInternalServerError, statusForError(io.EOF))
}
