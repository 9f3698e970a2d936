// Package server implements norman-bridge's HTTP API.
//
// Routes:
//
//	GET  /health                       ok, starting or degraded (503)
//	GET  /metrics                      Prometheus exposition
//	GET  /api/state                    gateway health, windows, rooms and presets
//	GET  /api/windows/{id}             one window
//	GET  /api/rooms/{id}               one room
//	POST /api/windows/{id}/position    {"open": 40} or {"action": "open"|"close"}
//	POST /api/rooms/{id}/position      as above, or {"preset": "privacy"}
//	GET  /ws                           WebSocket; the state document after every refresh
//
// Position requests return 202 Accepted once the gateway has taken the
// command; the new position shows up in state after the next refresh.
// Gateway failures map to 502 with a troubleshooting hint, bad requests to 400.
//
// The server handles SIGINT and SIGTERM for graceful shutdown: WebSocket
// clients are disconnected and in-flight requests get up to 10 seconds.
package server
