package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
)

// ErrorType is the category of a gateway failure.
type ErrorType int

const (
	ErrTypeNetwork    ErrorType = iota // connection reset, unreachable, canceled
	ErrTypeAuth                        // login rejected or session not re-established
	ErrTypeHTTP                        // non-2xx other than an expired session
	ErrTypeMalformed                   // body does not have the expected shape
	ErrTypeValidation                  // bad caller input, nothing was sent
	ErrTypeTimeout
	ErrTypeConnectionRefused
	ErrTypeDNS
)

var errorTypeNames = map[ErrorType]string{
	ErrTypeNetwork:           "Network Error",
	ErrTypeAuth:              "Authentication Error",
	ErrTypeHTTP:              "HTTP Error",
	ErrTypeMalformed:         "Malformed Response",
	ErrTypeValidation:        "Validation Error",
	ErrTypeTimeout:           "Timeout",
	ErrTypeConnectionRefused: "Connection Refused",
	ErrTypeDNS:               "DNS Error",
}

func (et ErrorType) String() string {
	if name, ok := errorTypeNames[et]; ok {
		return name
	}
	return fmt.Sprintf("ErrorType(%d)", et)
}

// NetworkErrorSubtype narrows down transport failures for hints.
type NetworkErrorSubtype int

const (
	NetworkErrorGeneral NetworkErrorSubtype = iota
	NetworkErrorTimeout
	NetworkErrorConnectionRefused
	NetworkErrorDNS
	NetworkErrorHostUnreachable
	NetworkErrorNetworkUnreachable
	NetworkErrorCanceled
)

// Error is returned by every gateway operation that fails.
type Error struct {
	Type           ErrorType
	Message        string
	Endpoint       string // gateway endpoint path, when the error came from a request
	StatusCode     int    // HTTP status code (if applicable)
	Body           string // response body for HTTP errors, truncated
	Err            error
	NetworkSubtype NetworkErrorSubtype
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Endpoint != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Endpoint)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s (caused by: %v)", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// dialFailures classifies the errno behind a failed dial.
var dialFailures = []struct {
	errno   syscall.Errno
	typ     ErrorType
	subtype NetworkErrorSubtype
	message string
}{
	{syscall.ECONNREFUSED, ErrTypeConnectionRefused, NetworkErrorConnectionRefused, "Gateway refused connection"},
	{syscall.EHOSTUNREACH, ErrTypeNetwork, NetworkErrorHostUnreachable, "Host unreachable"},
	{syscall.ENETUNREACH, ErrTypeNetwork, NetworkErrorNetworkUnreachable, "Network unreachable"},
}

func transportError(typ ErrorType, subtype NetworkErrorSubtype, message string, cause error) *Error {
	return &Error{Type: typ, Message: message, Err: cause, NetworkSubtype: subtype}
}

// ClassifyNetworkError maps a transport failure onto an *Error. It returns
// nil for a nil err.
func ClassifyNetworkError(err error) *Error {
	if err == nil {
		return nil
	}

	var (
		dnsErr *net.DNSError
		opErr  *net.OpError
		urlErr *url.Error
	)
	switch {
	case errors.Is(err, context.Canceled):
		return transportError(ErrTypeNetwork, NetworkErrorCanceled, "Request canceled", err)
	case os.IsTimeout(err), errors.Is(err, context.DeadlineExceeded):
		return transportError(ErrTypeTimeout, NetworkErrorTimeout, "Request timed out", err)
	case errors.As(err, &dnsErr):
		return transportError(ErrTypeDNS, NetworkErrorDNS, "cannot resolve "+dnsErr.Name, err)
	case errors.As(err, &opErr):
		for _, f := range dialFailures {
			if errors.Is(opErr.Err, f.errno) {
				return transportError(f.typ, f.subtype, f.message, err)
			}
		}
	case errors.As(err, &urlErr) && urlErr.Err != err:
		return ClassifyNetworkError(urlErr.Err)
	}
	return transportError(ErrTypeNetwork, NetworkErrorGeneral, "Network error occurred", err)
}

// NewNetworkError creates a network-level error with automatic classification
func NewNetworkError(message string, err error) *Error {
	if classified := ClassifyNetworkError(err); classified != nil {
		classified.Message = message
		return classified
	}
	return &Error{Type: ErrTypeNetwork, Message: message}
}

// NewAuthError creates an authentication error
func NewAuthError(message string) *Error {
	return &Error{
		Type:       ErrTypeAuth,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// NewHTTPError creates an HTTP-level error carrying the status and response body
func NewHTTPError(statusCode int, body string) *Error {
	return &Error{
		Type:       ErrTypeHTTP,
		Message:    fmt.Sprintf("unexpected status code: %d", statusCode),
		StatusCode: statusCode,
		Body:       truncate(body, 512),
	}
}

// NewMalformedError creates an error for a response that could not be interpreted
func NewMalformedError(message string, err error) *Error {
	return &Error{
		Type:    ErrTypeMalformed,
		Message: message,
		Err:     err,
	}
}

// NewValidationError creates a validation error
func NewValidationError(message string) *Error {
	return &Error{
		Type:    ErrTypeValidation,
		Message: message,
	}
}

func asError(err error) (*Error, bool) {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr, true
	}
	return nil, false
}

// IsAuthError checks if an error is an authentication error
func IsAuthError(err error) bool {
	gwErr, ok := asError(err)
	return ok && gwErr.Type == ErrTypeAuth
}

// IsNetworkError checks if an error is a network error (including timeout, connection refused, DNS)
func IsNetworkError(err error) bool {
	gwErr, ok := asError(err)
	if !ok {
		return false
	}
	switch gwErr.Type {
	case ErrTypeNetwork, ErrTypeTimeout, ErrTypeConnectionRefused, ErrTypeDNS:
		return true
	}
	return false
}

// IsTransportError reports network failures and unexpected HTTP statuses.
func IsTransportError(err error) bool {
	if IsNetworkError(err) {
		return true
	}
	gwErr, ok := asError(err)
	return ok && gwErr.Type == ErrTypeHTTP
}

// IsMalformedError checks if an error is a malformed-response error
func IsMalformedError(err error) bool {
	gwErr, ok := asError(err)
	return ok && gwErr.Type == ErrTypeMalformed
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	gwErr, ok := asError(err)
	return ok && gwErr.Type == ErrTypeValidation
}

// hint is a one-line diagnosis with optional troubleshooting steps.
type hint struct {
	summary string
	tips    []string
}

func (h hint) String() string {
	lines := []string{h.summary}
	if len(h.tips) > 0 {
		lines = append(lines, "Troubleshooting:")
		for _, tip := range h.tips {
			lines = append(lines, "  • "+tip)
		}
	}
	return strings.Join(lines, "\n")
}

var typeHints = map[ErrorType]hint{
	ErrTypeTimeout: {"The gateway did not respond in time.", []string{
		"Check that the gateway is powered on and its LED is steady",
		"Verify this machine is on the same network as the gateway",
		"Try increasing gateway.request_timeout",
	}},
	ErrTypeConnectionRefused: {"The gateway refused the connection.", []string{
		"Check the host and port (the gateway listens on port 80)",
		"The gateway may be rebooting; wait a minute and retry",
	}},
	ErrTypeDNS: {"Could not resolve the gateway hostname.", []string{
		"Use the gateway's IP address",
		"Check the DNS settings of this machine",
	}},
	ErrTypeAuth: {"The gateway rejected the login.", []string{
		"The factory password is " + DefaultPassword,
		"Check the password configured in the Norman app",
		"Another app version string may be required (--app-version)",
	}},
	ErrTypeMalformed: {"Failed to interpret the gateway's response. This may be a firmware version this tool has not seen.", []string{
		"Run with NORMAN_LOG_LEVEL=debug to capture the raw response",
	}},
	ErrTypeValidation: {summary: "The request is invalid. Check the error message for details."},
}

var networkHints = map[NetworkErrorSubtype]hint{
	NetworkErrorHostUnreachable: {"The gateway is not reachable on the network.", []string{
		"Verify the gateway IP address",
		"Ensure the gateway is powered on and connected",
	}},
	NetworkErrorNetworkUnreachable: {"This machine cannot reach the gateway's network.", []string{
		"Check the network adapter settings",
	}},
	NetworkErrorCanceled: {summary: "The operation was canceled before it completed."},
}

var genericNetworkHint = hint{"Network communication with the gateway failed.", []string{
	"Check the network connection",
	"Verify the gateway is powered on",
}}

// TroubleshootingHint returns advice for a failed operation. Steps are
// listed one per line, prefixed "  • ".
func TroubleshootingHint(err error) string {
	gwErr, ok := asError(err)
	if !ok {
		return "An unexpected error occurred. Please try again."
	}

	switch gwErr.Type {
	case ErrTypeNetwork:
		if h, ok := networkHints[gwErr.NetworkSubtype]; ok {
			return h.String()
		}
		return genericNetworkHint.String()
	case ErrTypeHTTP:
		if gwErr.StatusCode >= 500 {
			return hint{fmt.Sprintf("The gateway returned an error (HTTP %d).", gwErr.StatusCode), []string{
				"Power-cycle the gateway",
				"Check for a firmware update in the Norman app",
			}}.String()
		}
		return fmt.Sprintf("The gateway returned HTTP error %d. Check the request parameters.", gwErr.StatusCode)
	}
	if h, ok := typeHints[gwErr.Type]; ok {
		return h.String()
	}
	return "An error occurred. Please check the error message for details."
}

var shortMessages = map[ErrorType]string{
	ErrTypeTimeout:           "Gateway not responding (timeout)",
	ErrTypeConnectionRefused: "Gateway refused connection",
	ErrTypeDNS:               "Cannot resolve gateway hostname",
	ErrTypeAuth:              "Login failed - check password",
	ErrTypeMalformed:         "Unexpected gateway response",
}

var shortNetworkMessages = map[NetworkErrorSubtype]string{
	NetworkErrorHostUnreachable:    "Gateway unreachable - check network connection",
	NetworkErrorNetworkUnreachable: "Network unreachable",
	NetworkErrorCanceled:           "Canceled",
}

// ShortMessage returns a one-line summary for status bars.
func ShortMessage(err error) string {
	gwErr, ok := asError(err)
	if !ok {
		return err.Error()
	}
	switch gwErr.Type {
	case ErrTypeNetwork:
		if msg, ok := shortNetworkMessages[gwErr.NetworkSubtype]; ok {
			return msg
		}
		return "Network error - check connection"
	case ErrTypeHTTP:
		return fmt.Sprintf("Gateway error (HTTP %d)", gwErr.StatusCode)
	}
	if msg, ok := shortMessages[gwErr.Type]; ok {
		return msg
	}
	return gwErr.Message
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
