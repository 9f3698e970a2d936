package gateway

// AllowedClosedPercents are the only positions the motors accept, in the
// order the gateway documents them. Ties in NearestClosedPercent resolve to
// the earlier element.
var AllowedClosedPercents = [...]int{100, 81, 65, 50, 37, 25, 12, 0}

const (
	// OpenPreferencePercent is the open percentage requested by the open
	// shortcut. It maps to closed 37, the tilt the gateway uses for "open".
	OpenPreferencePercent = 63

	// CloseClosedPercent is the closed percentage requested by the close shortcut.
	CloseClosedPercent = 100
)

// OpenFromClosed converts the gateway's closed percentage to an open percentage.
func OpenFromClosed(closed int) int {
	return 100 - clampPercent(closed)
}

// NearestClosedPercent maps an open percentage onto the nearest allowed
// closed percentage. Inputs outside [0,100] are clamped.
func NearestClosedPercent(open int) int {
	target := 100 - clampPercent(open)

	best := AllowedClosedPercents[0]
	bestDist := abs(best - target)
	for _, v := range AllowedClosedPercents[1:] {
		if d := abs(v - target); d < bestDist {
			best, bestDist = v, d
		}
	}
	return best
}

// IsAllowedClosedPercent reports whether v is one of AllowedClosedPercents.
func IsAllowedClosedPercent(v int) bool {
	for _, a := range AllowedClosedPercents {
		if a == v {
			return true
		}
	}
	return false
}

// StepClosedPercent moves from the allowed position nearest current by steps
// positions towards open (positive) or closed (negative), stopping at the ends.
func StepClosedPercent(currentClosed, steps int) int {
	cur := NearestClosedPercent(100 - currentClosed)
	idx := 0
	for i, v := range AllowedClosedPercents {
		if v == cur {
			idx = i
			break
		}
	}
	idx += steps
	if idx < 0 {
		idx = 0
	}
	if idx >= len(AllowedClosedPercents) {
		idx = len(AllowedClosedPercents) - 1
	}
	return AllowedClosedPercents[idx]
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
