package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/normanctl/internal/logging"
	"github.com/muurk/normanctl/internal/version"
)

const (
	// DefaultPassword is the factory login password of Norman gateways
	DefaultPassword = "123456789"

	// DefaultAppVersion is the app version string sent with every login
	DefaultAppVersion = "2.11.21"

	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second

	// maxRequestAttempts bounds Request to the first try plus one retry after re-login
	maxRequestAttempts = 2
)

// Gateway endpoints.
const (
	EndpointLogin         = "/cgi-bin/cgi/GatewayLogin"
	EndpointRooms         = "/cgi-bin/cgi/getRoomInfo"
	EndpointWindows       = "/cgi-bin/cgi/getWindowInfo"
	EndpointRemoteControl = "/cgi-bin/cgi/RemoteControl"
)

// RemoteControl constants.
const (
	RemoteControlModel = 1
	DeviceLogicalID    = 0
	RoomLogicalID      = 255
)

// SessionState is the login state of a Client.
type SessionState int

const (
	LoggedOut SessionState = iota
	Authenticating
	Authenticated
)

func (s SessionState) String() string {
	switch s {
	case LoggedOut:
		return "logged out"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

// Session is a snapshot of the client's login state. Generation increases
// with every successful login.
type Session struct {
	State      SessionState
	AppVersion string
	Generation uint64
	LoggedInAt time.Time
}

// Client talks to one gateway over a cookie-based session.
// It is safe for concurrent use; logins are serialized.
type Client struct {
	// BaseURL is the gateway base URL (e.g., "http://192.168.1.50")
	BaseURL string

	// Password sent with every login (default: "123456789")
	Password string

	// AppVersion sent with every login (default: "2.11.21")
	AppVersion string

	// HTTPClient is the underlying HTTP client. Its cookie jar carries the session.
	HTTPClient *http.Client

	loginSem chan struct{}
	jar      *sessionJar

	mu      sync.Mutex
	session Session
}

// NewClient creates a client for host, which may be a bare host, host:port or a URL.
func NewClient(host, password string) *Client {
	if password == "" {
		password = DefaultPassword
	}
	jar := newSessionJar()
	return &Client{
		BaseURL:    NormalizeBaseURL(host),
		Password:   password,
		AppVersion: DefaultAppVersion,
		HTTPClient: &http.Client{Timeout: DefaultTimeout, Jar: jar},
		loginSem:   make(chan struct{}, 1),
		jar:        jar,
	}
}

// NormalizeBaseURL prefixes http:// when host has no scheme and drops a trailing slash.
func NormalizeBaseURL(host string) string {
	host = strings.TrimSpace(host)
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	return strings.TrimRight(host, "/")
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// Session returns the current session state.
func (c *Client) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Authenticated reports whether the client currently holds a session.
func (c *Client) Authenticated() bool {
	return c.Session().State == Authenticated
}

// Login establishes a session. Without force it returns immediately when a
// session already exists. The login request keeps running to completion even
// if ctx is canceled; only the wait is abandoned.
func (c *Client) Login(ctx context.Context, force bool) error {
	if !force && c.Authenticated() {
		return nil
	}

	select {
	case c.loginSem <- struct{}{}:
	case <-ctx.Done():
		return NewNetworkError("login abandoned while waiting for another login", ctx.Err())
	}

	// Another caller may have logged in while we waited.
	if !force && c.Authenticated() {
		<-c.loginSem
		return nil
	}

	c.setState(Authenticating)

	done := make(chan error, 1)
	go func() {
		defer func() { <-c.loginSem }()
		done <- c.doLogin(context.WithoutCancel(ctx))
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return NewNetworkError("login abandoned by caller", ctx.Err())
	}
}

func (c *Client) doLogin(ctx context.Context) error {
	payload := map[string]any{
		"password":    c.Password,
		"app_version": c.AppVersion,
	}
	logging.LogGatewayRequest(EndpointLogin, logging.MaskPayload(payload))

	status, body, err := c.post(ctx, EndpointLogin, payload)
	if err != nil {
		c.setState(LoggedOut)
		return err
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		c.setState(LoggedOut)
		authErr := NewAuthError(fmt.Sprintf("gateway rejected login (HTTP %d)", status))
		authErr.StatusCode = status
		authErr.Endpoint = EndpointLogin
		return authErr
	}

	if status < 200 || status >= 300 {
		c.setState(LoggedOut)
		httpErr := NewHTTPError(status, string(body))
		httpErr.Endpoint = EndpointLogin
		return httpErr
	}

	if code, rejected := loginErrorCode(body); rejected {
		c.setState(LoggedOut)
		authErr := NewAuthError(fmt.Sprintf("gateway rejected login (errorCode %v)", code))
		authErr.StatusCode = status
		authErr.Endpoint = EndpointLogin
		return authErr
	}

	c.mu.Lock()
	c.session = Session{
		State:      Authenticated,
		AppVersion: c.AppVersion,
		Generation: c.session.Generation + 1,
		LoggedInAt: time.Now(),
	}
	gen := c.session.Generation
	c.mu.Unlock()

	logging.Info("Logged in to gateway",
		zap.String("gateway", c.BaseURL),
		zap.Uint64("generation", gen),
	)
	return nil
}

// loginErrorCode reports a rejected login. Anything other than a missing,
// null, 0, false or "0" errorCode is a rejection; a non-JSON body is accepted.
func loginErrorCode(body []byte) (any, bool) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, false
	}

	code, ok := payload["errorCode"]
	if !ok || code == nil {
		return nil, false
	}
	switch v := code.(type) {
	case json.Number:
		if f, err := v.Float64(); err == nil && f == 0 {
			return nil, false
		}
	case string:
		if v == "0" {
			return nil, false
		}
	case bool:
		if !v {
			return nil, false
		}
	}
	return code, true
}

// Request POSTs payload as JSON to endpoint within the session and returns
// the raw response body (nil when the body is empty). A 401 invalidates the
// session and is retried exactly once after re-login.
func (c *Client) Request(ctx context.Context, endpoint string, payload any) (json.RawMessage, error) {
	if payload == nil {
		payload = struct{}{}
	}

	for attempt := 1; attempt <= maxRequestAttempts; attempt++ {
		if err := c.Login(ctx, false); err != nil {
			return nil, err
		}
		gen := c.Session().Generation

		logging.LogGatewayRequest(endpoint, payload)
		status, body, err := c.post(ctx, endpoint, payload)
		if err != nil {
			return nil, err
		}

		if status == http.StatusUnauthorized {
			c.invalidate(gen)
			logging.Info("Gateway session expired",
				zap.String("endpoint", endpoint),
				zap.Int("attempt", attempt),
			)
			continue
		}

		if status < 200 || status >= 300 {
			httpErr := NewHTTPError(status, string(body))
			httpErr.Endpoint = endpoint
			return nil, httpErr
		}

		return decodeBody(endpoint, body)
	}

	authErr := NewAuthError("session rejected again after re-login")
	authErr.Endpoint = endpoint
	return nil, authErr
}

// invalidate drops the session if it is still the one that saw the 401.
func (c *Client) invalidate(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.Generation == gen && c.session.State == Authenticated {
		c.session.State = LoggedOut
	}
}

func (c *Client) setState(state SessionState) {
	c.mu.Lock()
	c.session.State = state
	c.mu.Unlock()
}

// Logout forgets the session locally; the gateway has no logout endpoint.
// It is safe to call while requests are in flight.
func (c *Client) Logout() {
	c.setState(LoggedOut)
	c.jar.reset()
}

// Close releases idle connections.
func (c *Client) Close() {
	c.HTTPClient.CloseIdleConnections()
}

// sessionJar holds the session cookie and can be emptied while requests
// are using it.
type sessionJar struct {
	mu  sync.Mutex
	jar *cookiejar.Jar
}

func newSessionJar() *sessionJar {
	j := &sessionJar{}
	j.reset()
	return j
}

func (j *sessionJar) current() *cookiejar.Jar {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.jar
}

// reset swaps in an empty jar. cookiejar.New only fails on a bad public
// suffix list, and none is given.
func (j *sessionJar) reset() {
	jar, _ := cookiejar.New(nil)
	j.mu.Lock()
	j.jar = jar
	j.mu.Unlock()
}

func (j *sessionJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.current().SetCookies(u, cookies)
}

func (j *sessionJar) Cookies(u *url.URL) []*http.Cookie {
	return j.current().Cookies(u)
}

func (c *Client) post(ctx context.Context, endpoint string, payload any) (int, []byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, NewValidationError(fmt.Sprintf("cannot encode request: %v", err))
	}

	reqURL, err := url.JoinPath(c.BaseURL, endpoint)
	if err != nil {
		return 0, nil, NewValidationError(fmt.Sprintf("invalid gateway URL %q: %v", c.BaseURL, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(data))
	if err != nil {
		netErr := NewNetworkError("failed to create request", err)
		netErr.Endpoint = endpoint
		return 0, nil, netErr
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		netErr := NewNetworkError("request to gateway failed", err)
		netErr.Endpoint = endpoint
		return 0, nil, netErr
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		netErr := NewNetworkError("failed to read response body", err)
		netErr.Endpoint = endpoint
		return 0, nil, netErr
	}

	logging.LogGatewayResponse(endpoint, resp.StatusCode, body)
	return resp.StatusCode, body, nil
}

func decodeBody(endpoint string, body []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if !json.Valid(trimmed) {
		malformed := NewMalformedError("response is not valid JSON", nil)
		malformed.Endpoint = endpoint
		return nil, malformed
	}
	return json.RawMessage(trimmed), nil
}
