package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const sessionCookie = "NORMANSESSION"

// fakeGateway emulates the gateway's login and cookie session.
type fakeGateway struct {
	password string

	logins      atomic.Int32
	dataHits    atomic.Int32
	loginDelay  time.Duration
	loginStatus int // non-zero forces the login response status
	loginBody   string

	mu         sync.Mutex
	token      string
	tokenSeq   int
	rejectData bool // answer every data request with 401
	dataStatus int  // non-zero forces the status of data requests
	rooms      string
	windows    string
	commands   []map[string]any
	lastLogin  map[string]any
}

func newFakeGateway(t *testing.T) (*fakeGateway, *httptest.Server) {
	t.Helper()
	fg := &fakeGateway{
		password: DefaultPassword,
		rooms:    `[{"id": 1, "name": "Living"}, {"id": 2, "name": "Bedroom"}]`,
		windows:  `[{"Id": 11, "Name": "Left", "roomId": 1, "position": 100}, {"Id": 12, "Name": "Right", "roomId": 1, "position": 0}]`,
	}
	server := httptest.NewServer(fg)
	t.Cleanup(server.Close)
	return fg, server
}

func (fg *fakeGateway) expire() {
	fg.mu.Lock()
	fg.token = ""
	fg.mu.Unlock()
}

func (fg *fakeGateway) set(fn func(fg *fakeGateway)) {
	fg.mu.Lock()
	fn(fg)
	fg.mu.Unlock()
}

func (fg *fakeGateway) sentCommands() []map[string]any {
	fg.mu.Lock()
	defer fg.mu.Unlock()
	return append([]map[string]any(nil), fg.commands...)
}

func (fg *fakeGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, _ := io.ReadAll(r.Body)
	var payload map[string]any
	_ = json.Unmarshal(body, &payload)

	if r.URL.Path == EndpointLogin {
		fg.handleLogin(w, payload)
		return
	}

	fg.dataHits.Add(1)

	fg.mu.Lock()
	defer fg.mu.Unlock()

	cookie, err := r.Cookie(sessionCookie)
	if fg.rejectData || err != nil || fg.token == "" || cookie.Value != fg.token {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if fg.dataStatus != 0 {
		w.WriteHeader(fg.dataStatus)
		_, _ = w.Write([]byte("gateway exploded"))
		return
	}

	switch r.URL.Path {
	case EndpointRooms:
		_, _ = w.Write([]byte(fg.rooms))
	case EndpointWindows:
		_, _ = w.Write([]byte(fg.windows))
	case EndpointRemoteControl:
		fg.commands = append(fg.commands, payload)
		_, _ = w.Write([]byte(`{"errorCode": 0}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (fg *fakeGateway) handleLogin(w http.ResponseWriter, payload map[string]any) {
	fg.logins.Add(1)
	if fg.loginDelay > 0 {
		time.Sleep(fg.loginDelay)
	}

	fg.mu.Lock()
	defer fg.mu.Unlock()
	fg.lastLogin = payload

	if fg.loginStatus != 0 {
		w.WriteHeader(fg.loginStatus)
		return
	}
	if payload["password"] != fg.password {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	body := fg.loginBody
	if body == "" {
		body = `{"errorCode": 0}`
	}
	if _, rejected := loginErrorCode([]byte(body)); !rejected {
		fg.tokenSeq++
		fg.token = fmt.Sprintf("tok-%d", fg.tokenSeq)
		http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: fg.token, Path: "/"})
	}
	_, _ = w.Write([]byte(body))
}
