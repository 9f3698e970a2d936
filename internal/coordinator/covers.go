package coordinator

import "github.com/muurk/normanctl/internal/gateway"

// DeviceCover is one window covering as presented to users.
type DeviceCover struct {
	ID          gateway.ID     `json:"id"`
	Name        string         `json:"name"`
	Area        string         `json:"area,omitempty"`
	RoomID      gateway.ID     `json:"room_id,omitempty"`
	Available   bool           `json:"available"`
	HasPosition bool           `json:"has_position"`
	OpenPercent int            `json:"open_percent"`
	Closed      bool           `json:"closed"`
	Device      gateway.Device `json:"device"`
}

// RoomCover is a room presented as one logical cover.
type RoomCover struct {
	gateway.RoomSummary
	Available bool `json:"available"`
}

func deviceCover(e gateway.Entry, healthy bool) DeviceCover {
	d := e.Device
	cover := DeviceCover{
		ID:        d.ID,
		Name:      d.Name,
		Area:      e.DisplayArea,
		RoomID:    d.RoomID,
		Available: healthy,
		Device:    d,
	}
	if cover.Name == "" {
		cover.Name = "Window " + string(d.ID)
	}
	if open, ok := d.OpenPercent(); ok {
		cover.HasPosition = true
		cover.OpenPercent = open
		cover.Closed = open == 0
	}
	return cover
}

// DeviceCover returns the cover for a device id. ok is false when the device
// is not in the latest state.
func (c *Coordinator) DeviceCover(id gateway.ID) (DeviceCover, bool) {
	snap := c.Snapshot()
	e, ok := snap.State.Entry(id)
	if !ok {
		return DeviceCover{ID: id}, false
	}
	return deviceCover(e, snap.LastUpdateSuccess), true
}

// DeviceCovers returns every device cover in gateway order.
func (c *Coordinator) DeviceCovers() []DeviceCover {
	snap := c.Snapshot()
	if snap.State == nil {
		return nil
	}
	covers := make([]DeviceCover, 0, len(snap.State.Entries))
	for _, e := range snap.State.Entries {
		if e.Device.ID == "" {
			continue
		}
		covers = append(covers, deviceCover(e, snap.LastUpdateSuccess))
	}
	return covers
}

// RoomCover returns the aggregated cover for a room id.
func (c *Coordinator) RoomCover(id gateway.ID) RoomCover {
	snap := c.Snapshot()
	summary := gateway.SummarizeRoom(snap.State, id)
	return RoomCover{
		RoomSummary: summary,
		Available:   summary.Exists && snap.LastUpdateSuccess,
	}
}

// RoomCovers returns every room cover: the gateway's room list, or rooms
// derived from device references when that list is empty.
func (c *Coordinator) RoomCovers() []RoomCover {
	snap := c.Snapshot()
	summaries := gateway.SummarizeRooms(snap.State)
	covers := make([]RoomCover, 0, len(summaries))
	for _, s := range summaries {
		covers = append(covers, RoomCover{
			RoomSummary: s,
			Available:   s.Exists && snap.LastUpdateSuccess,
		})
	}
	return covers
}
