// Package logging provides structured logging for normanctl and norman-bridge.
//
// This package wraps a global zap logger. Logging is silent unless a level is
// passed to Initialize or NORMAN_LOG_LEVEL is set, so CLI output stays clean.
//
// # Log Levels
//
//   - Debug: gateway request/response bodies (credentials masked)
//   - Info: logins, session expiry, commands, connections
//   - Warn: failed refreshes, dropped MQTT messages
//   - Error: startup failures
//
// # Gateway Traffic
//
//	logging.LogGatewayRequest(endpoint, logging.MaskPayload(payload))
//	logging.LogGatewayResponse(endpoint, resp.StatusCode, body)
//
// Passwords are never logged; MaskPayload replaces them with "***".
//
// # Configuration
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
package logging
