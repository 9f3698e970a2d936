package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestNewClient(t *testing.T) {
	client := NewClient("192.168.1.50", "")

	if client.BaseURL != "http://192.168.1.50" {
		t.Errorf("BaseURL = %s, want http://192.168.1.50", client.BaseURL)
	}
	if client.Password != DefaultPassword {
		t.Errorf("Password = %s, want %s", client.Password, DefaultPassword)
	}
	if client.AppVersion != DefaultAppVersion {
		t.Errorf("AppVersion = %s, want %s", client.AppVersion, DefaultAppVersion)
	}
	if client.HTTPClient.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", client.HTTPClient.Timeout, DefaultTimeout)
	}
	if client.HTTPClient.Jar == nil {
		t.Error("HTTPClient should carry a cookie jar")
	}
	if client.Session().State != LoggedOut {
		t.Errorf("initial state = %v, want %v", client.Session().State, LoggedOut)
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"192.168.1.50", "http://192.168.1.50"},
		{"192.168.1.50:8080", "http://192.168.1.50:8080"},
		{"http://gateway.local/", "http://gateway.local"},
		{"https://gateway.local", "https://gateway.local"},
		{"  norman.lan  ", "http://norman.lan"},
	}

	for _, tt := range tests {
		if got := NormalizeBaseURL(tt.in); got != tt.want {
			t.Errorf("NormalizeBaseURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLogin_SendsPasswordAndAppVersion(t *testing.T) {
	fg, server := newFakeGateway(t)
	client := NewClient(server.URL, "")

	if err := client.Login(context.Background(), false); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if fg.lastLogin["password"] != DefaultPassword {
		t.Errorf("password = %v, want %s", fg.lastLogin["password"], DefaultPassword)
	}
	if fg.lastLogin["app_version"] != DefaultAppVersion {
		t.Errorf("app_version = %v, want %s", fg.lastLogin["app_version"], DefaultAppVersion)
	}

	s := client.Session()
	if s.State != Authenticated {
		t.Errorf("state = %v, want %v", s.State, Authenticated)
	}
	if s.Generation != 1 {
		t.Errorf("generation = %d, want 1", s.Generation)
	}
}

func TestLogin_NoOpWhenAuthenticated(t *testing.T) {
	fg, server := newFakeGateway(t)
	client := NewClient(server.URL, "")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := client.Login(ctx, false); err != nil {
			t.Fatalf("Login() error = %v", err)
		}
	}
	if got := fg.logins.Load(); got != 1 {
		t.Errorf("logins = %d, want 1", got)
	}

	if err := client.Login(ctx, true); err != nil {
		t.Fatalf("Login(force) error = %v", err)
	}
	if got := fg.logins.Load(); got != 2 {
		t.Errorf("logins after force = %d, want 2", got)
	}
}

func TestLogin_Rejected(t *testing.T) {
	tests := []struct {
		name      string
		password  string
		status    int
		body      string
		wantAuth  bool
		wantState SessionState
	}{
		{name: "wrong password", password: "nope", wantAuth: true, wantState: LoggedOut},
		{name: "forbidden", password: DefaultPassword, status: http.StatusForbidden, wantAuth: true, wantState: LoggedOut},
		{name: "error code 1", password: DefaultPassword, body: `{"errorCode": 1}`, wantAuth: true, wantState: LoggedOut},
		{name: "error code string", password: DefaultPassword, body: `{"errorCode": "E_PASS"}`, wantAuth: true, wantState: LoggedOut},
		{name: "error code 0", password: DefaultPassword, body: `{"errorCode": 0}`, wantState: Authenticated},
		{name: "error code string 0", password: DefaultPassword, body: `{"errorCode": "0"}`, wantState: Authenticated},
		{name: "error code null", password: DefaultPassword, body: `{"errorCode": null}`, wantState: Authenticated},
		{name: "no error code", password: DefaultPassword, body: `{"result": "ok"}`, wantState: Authenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fg, server := newFakeGateway(t)
			fg.loginStatus = tt.status
			fg.loginBody = tt.body
			client := NewClient(server.URL, tt.password)

			err := client.Login(context.Background(), false)
			if tt.wantAuth {
				if !IsAuthError(err) {
					t.Errorf("Login() error = %v, want auth error", err)
				}
			} else if err != nil {
				t.Errorf("Login() error = %v, want nil", err)
			}

			if got := client.Session().State; got != tt.wantState {
				t.Errorf("state = %v, want %v", got, tt.wantState)
			}
		})
	}
}

func TestRequest_LogsInOnFirstUseOnly(t *testing.T) {
	fg, server := newFakeGateway(t)
	client := NewClient(server.URL, "")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := client.Request(ctx, EndpointRooms, nil); err != nil {
			t.Fatalf("Request() error = %v", err)
		}
	}

	if got := fg.logins.Load(); got != 1 {
		t.Errorf("logins = %d, want 1", got)
	}
}

func TestRequest_ReloginOnExpiredSession(t *testing.T) {
	fg, server := newFakeGateway(t)
	client := NewClient(server.URL, "")
	ctx := context.Background()

	if _, err := client.Request(ctx, EndpointRooms, nil); err != nil {
		t.Fatalf("Request() error = %v", err)
	}

	fg.expire()

	body, err := client.Request(ctx, EndpointWindows, nil)
	if err != nil {
		t.Fatalf("Request() after expiry error = %v", err)
	}
	if len(body) == 0 {
		t.Error("Request() returned empty body after re-login")
	}
	if got := fg.logins.Load(); got != 2 {
		t.Errorf("logins = %d, want 2", got)
	}
	if got := client.Session().Generation; got != 2 {
		t.Errorf("generation = %d, want 2", got)
	}
}

func TestRequest_SecondUnauthorizedIsAuthError(t *testing.T) {
	fg, server := newFakeGateway(t)
	fg.rejectData = true
	client := NewClient(server.URL, "")

	_, err := client.Request(context.Background(), EndpointRooms, nil)
	if !IsAuthError(err) {
		t.Fatalf("Request() error = %v, want auth error", err)
	}

	// first login, one re-login, never a third
	if got := fg.logins.Load(); got != 2 {
		t.Errorf("logins = %d, want 2", got)
	}
	if got := fg.dataHits.Load(); got != 2 {
		t.Errorf("data requests = %d, want 2", got)
	}
}

func TestRequest_ConcurrentCallersShareOneLogin(t *testing.T) {
	fg, server := newFakeGateway(t)
	fg.loginDelay = 50 * time.Millisecond
	client := NewClient(server.URL, "")

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Request(context.Background(), EndpointWindows, nil)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Request() error = %v", err)
		}
	}
	if got := fg.logins.Load(); got != 1 {
		t.Errorf("logins = %d, want 1", got)
	}
}

func TestRequest_ConcurrentExpiredCallersShareOneRelogin(t *testing.T) {
	fg, server := newFakeGateway(t)
	fg.loginDelay = 20 * time.Millisecond
	client := NewClient(server.URL, "")
	ctx := context.Background()

	if err := client.Login(ctx, false); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	fg.expire()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Request(ctx, EndpointRooms, nil)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Request() error = %v", err)
		}
	}
	if got := fg.logins.Load(); got != 2 {
		t.Errorf("logins = %d, want 2", got)
	}
}

func TestLogin_CompletesAfterCallerCancels(t *testing.T) {
	fg, server := newFakeGateway(t)
	fg.loginDelay = 100 * time.Millisecond
	client := NewClient(server.URL, "")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := client.Login(ctx, false); err == nil {
		t.Fatal("Login() should report the abandoned wait")
	}

	deadline := time.Now().Add(2 * time.Second)
	for client.Session().State != Authenticated {
		if time.Now().After(deadline) {
			t.Fatalf("session state = %v, want %v", client.Session().State, Authenticated)
		}
		time.Sleep(10 * time.Millisecond)
	}

	// the lock must be free again
	if err := client.Login(context.Background(), true); err != nil {
		t.Fatalf("Login(force) after cancel error = %v", err)
	}
	if got := fg.logins.Load(); got != 2 {
		t.Errorf("logins = %d, want 2", got)
	}
}

func TestRequest_HTTPErrorCarriesStatusAndBody(t *testing.T) {
	fg, server := newFakeGateway(t)
	fg.dataStatus = http.StatusInternalServerError
	client := NewClient(server.URL, "")

	_, err := client.Request(context.Background(), EndpointRooms, nil)
	if !IsTransportError(err) {
		t.Fatalf("Request() error = %v, want transport error", err)
	}
	if IsAuthError(err) {
		t.Error("a 500 must not be reported as an auth error")
	}

	gwErr, ok := asError(err)
	if !ok {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if gwErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", gwErr.StatusCode)
	}
	if gwErr.Body != "gateway exploded" {
		t.Errorf("Body = %q, want %q", gwErr.Body, "gateway exploded")
	}
	if gwErr.Endpoint != EndpointRooms {
		t.Errorf("Endpoint = %q, want %q", gwErr.Endpoint, EndpointRooms)
	}
}

func TestRequest_MalformedBody(t *testing.T) {
	fg, server := newFakeGateway(t)
	fg.windows = `<html>not json</html>`
	client := NewClient(server.URL, "")

	_, err := client.Request(context.Background(), EndpointWindows, nil)
	if !IsMalformedError(err) {
		t.Errorf("Request() error = %v, want malformed error", err)
	}
}

func TestRequest_EmptyBodyAccepted(t *testing.T) {
	fg, server := newFakeGateway(t)
	fg.rooms = ""
	client := NewClient(server.URL, "")

	body, err := client.Request(context.Background(), EndpointRooms, nil)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if body != nil {
		t.Errorf("body = %q, want nil", body)
	}
}

func TestRequest_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewClient(url, "")
	client.SetTimeout(time.Second)

	_, err := client.Request(context.Background(), EndpointRooms, nil)
	if !IsTransportError(err) {
		t.Errorf("Request() error = %v, want transport error", err)
	}
	if client.Session().State != LoggedOut {
		t.Errorf("state = %v, want %v", client.Session().State, LoggedOut)
	}
}

func TestLogout(t *testing.T) {
	fg, server := newFakeGateway(t)
	client := NewClient(server.URL, "")
	ctx := context.Background()

	if err := client.Login(ctx, false); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	client.Logout()
	if client.Authenticated() {
		t.Error("Authenticated() = true after Logout")
	}

	if _, err := client.Request(ctx, EndpointRooms, nil); err != nil {
		t.Fatalf("Request() after Logout error = %v", err)
	}
	if got := fg.logins.Load(); got != 2 {
		t.Errorf("logins = %d, want 2", got)
	}
}

func TestLogout_WhileRequestsInFlight(t *testing.T) {
	_, server := newFakeGateway(t)
	client := NewClient(server.URL, "")
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			// A logout racing a request may cost it its retry; only the
			// final request below must succeed.
			_, _ = client.Request(ctx, EndpointWindows, nil)
		}()
		go func() {
			defer wg.Done()
			client.Logout()
		}()
	}
	wg.Wait()

	if _, err := client.Request(ctx, EndpointWindows, nil); err != nil {
		t.Fatalf("Request() after concurrent Logout error = %v", err)
	}
	if !client.Authenticated() {
		t.Error("Authenticated() = false after a successful request")
	}
}

func TestLoginErrorCode(t *testing.T) {
	tests := []struct {
		body     string
		rejected bool
	}{
		{`{"errorCode": 0}`, false},
		{`{"errorCode": "0"}`, false},
		{`{"errorCode": null}`, false},
		{`{}`, false},
		{`OK`, false},
		{`[]`, false},
		{`{"errorCode": 3}`, true},
		{`{"errorCode": "bad"}`, true},
		{`{"errorCode": false}`, false},
		{`{"errorCode": true}`, true},
	}

	for _, tt := range tests {
		if _, got := loginErrorCode([]byte(tt.body)); got != tt.rejected {
			t.Errorf("loginErrorCode(%s) rejected = %v, want %v", tt.body, got, tt.rejected)
		}
	}
}
