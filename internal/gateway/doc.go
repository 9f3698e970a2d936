// Package gateway is a client for the local HTTP API of Norman window-covering gateways.
//
// The gateway keeps a cookie session that is opened with a password login and
// silently expires. Client owns that session: it logs in on first use,
// serializes concurrent logins, and when a request is answered with 401 it
// logs in again and retries that request exactly once.
//
// # Reading state
//
// Rooms and windows are separate endpoints. FetchCombinedState queries both
// and fuses them into a CombinedState, resolving room references through
// ordered lists of candidate keys because firmware versions name the same
// field differently:
//
//	client := gateway.NewClient("192.168.1.50", "")
//	gw := gateway.New(client)
//	state, err := gw.FetchCombinedState(ctx)
//
// Positions on the wire are closed percentages (0 open, 100 closed). The rest
// of this package speaks open percentages; OpenFromClosed converts.
//
// # Moving covers
//
// Motors only accept the positions in AllowedClosedPercents. SendDevicePosition
// and SendRoomPosition map a requested open percentage onto the nearest one:
//
//	cmd, err := gw.SendDevicePosition(ctx, "12", 40) // closed 65
//
// A command returns as soon as the gateway accepts it. Reading the new
// position back is the caller's job (see VerifyDevicePosition).
//
// # Errors
//
// Every failure is an *Error; use IsAuthError, IsTransportError and
// IsMalformedError to branch on its category.
package gateway
