// Package coordinator keeps a live view of a gateway for long-running consumers.
//
// A Coordinator refreshes the combined state every Interval and shortly after
// every successful command. Consumers read Snapshot, the DeviceCover and
// RoomCover views, or Subscribe to be called after each refresh attempt.
//
// A failed refresh keeps the last good state but marks every cover
// unavailable; an authentication failure additionally sets AuthFailed so a
// front end can ask for a new password instead of retrying forever.
package coordinator
