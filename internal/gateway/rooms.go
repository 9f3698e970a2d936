package gateway

// RoomSummary describes a room as one logical cover.
// Exists and HasPosition are independent: a room can exist with no device
// reporting a position.
type RoomSummary struct {
	ID          ID     `json:"id"`
	Name        string `json:"name,omitempty"`
	Exists      bool   `json:"exists"`
	HasPosition bool   `json:"has_position"`
	OpenPercent int    `json:"open_percent"`
	Closed      bool   `json:"closed"`
	Devices     int    `json:"devices"`
}

// SummarizeRoom aggregates the devices of one room. The open percentage is
// the truncated mean of the member devices that report a position; the room
// is closed only when that mean is 0.
func SummarizeRoom(state *CombinedState, id ID) RoomSummary {
	summary := RoomSummary{ID: id}
	if state == nil || id == "" {
		return summary
	}

	if room, ok := state.Room(id); ok {
		summary.Exists = true
		summary.Name = room.Name
	}

	sum, n := 0, 0
	for _, e := range state.Entries {
		if e.Device.RoomID != id {
			continue
		}
		summary.Exists = true
		summary.Devices++
		if summary.Name == "" && e.DisplayArea != "" {
			summary.Name = e.DisplayArea
		}
		if open, ok := e.Device.OpenPercent(); ok {
			sum += open
			n++
		}
	}

	if n > 0 {
		summary.HasPosition = true
		summary.OpenPercent = sum / n
		summary.Closed = summary.OpenPercent == 0
	}
	return summary
}

// RoomIDs lists the rooms to present: the room list when it is non-empty,
// otherwise every distinct room referenced by a device, in first-seen order.
func RoomIDs(state *CombinedState) []ID {
	if state == nil {
		return nil
	}

	seen := make(map[ID]bool)
	var ids []ID
	add := func(id ID) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	for _, r := range state.Rooms {
		add(r.ID)
	}
	if len(ids) > 0 {
		return ids
	}
	for _, e := range state.Entries {
		add(e.Device.RoomID)
	}
	return ids
}

// SummarizeRooms returns a summary for every room from RoomIDs.
func SummarizeRooms(state *CombinedState) []RoomSummary {
	ids := RoomIDs(state)
	summaries := make([]RoomSummary, 0, len(ids))
	for _, id := range ids {
		summaries = append(summaries, SummarizeRoom(state, id))
	}
	return summaries
}
