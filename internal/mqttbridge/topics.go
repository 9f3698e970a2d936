package mqttbridge

import (
	"strings"

	"github.com/muurk/normanctl/internal/gateway"
)

// Kind is the entity class a topic refers to.
type Kind string

const (
	KindWindow Kind = "window"
	KindRoom   Kind = "room"
)

const (
	suffixSet   = "set"
	suffixState = "state"

	// Availability payloads on the status topic
	PayloadOnline  = "online"
	PayloadOffline = "offline"
)

// Topics builds topic names under one prefix.
type Topics struct {
	Prefix string
}

// Status is the bridge availability topic, also used as the last will.
func (t Topics) Status() string { return t.Prefix + "/status" }

// Gateway carries the gateway health document.
func (t Topics) Gateway() string { return t.Prefix + "/gateway/state" }

// State is the retained state topic of one entity.
func (t Topics) State(kind Kind, id gateway.ID) string {
	return t.Prefix + "/" + string(kind) + "/" + id.String() + "/" + suffixState
}

// Set is the command topic of one entity.
func (t Topics) Set(kind Kind, id gateway.ID) string {
	return t.Prefix + "/" + string(kind) + "/" + id.String() + "/" + suffixSet
}

// CommandFilters are the subscriptions covering every command topic.
func (t Topics) CommandFilters() []string {
	return []string{
		t.Prefix + "/" + string(KindWindow) + "/+/" + suffixSet,
		t.Prefix + "/" + string(KindRoom) + "/+/" + suffixSet,
	}
}

// ParseCommandTopic splits "<prefix>/<kind>/<id>/set". ok is false for any
// other topic.
func (t Topics) ParseCommandTopic(topic string) (kind Kind, id gateway.ID, ok bool) {
	rest, found := strings.CutPrefix(topic, t.Prefix+"/")
	if !found {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[2] != suffixSet || parts[1] == "" {
		return "", "", false
	}
	switch Kind(parts[0]) {
	case KindWindow, KindRoom:
		return Kind(parts[0]), gateway.ID(parts[1]), true
	default:
		return "", "", false
	}
}
