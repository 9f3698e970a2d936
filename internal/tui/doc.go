// Package tui implements the interactive "normanctl watch" dashboard.
//
// The dashboard is a Bubble Tea program over a running coordinator. It
// subscribes to refreshes and redraws the windows and rooms tabs after every
// attempt; commands go through the coordinator so the usual post-command
// refresh applies.
//
// Keys:
//
//	↑/↓ or k/j   select
//	tab          switch between windows and rooms
//	o / c        open / close the selection
//	→/+ and ←/-  step one allowed position towards open or closed
//	p            apply the next preset (rooms)
//	r            refresh now
//	?            toggle full help
//	q            quit
package tui
