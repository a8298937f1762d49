package nip28

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/paul/notecache/pkg/event"
)

const (
	KindChannelCreate   = 40
	KindChannelMetadata = 41
	KindChannelMessage  = 42
	KindChannelHide     = 43
	KindChannelMute     = 44

	// KindEphemeralChat is a relay-scoped chat message in a named room
	KindEphemeralChat = 23333
)

// Metadata is the JSON content of channel create and metadata events
type Metadata struct {
	Name    string   `json:"name"`
	About   string   `json:"about"`
	Picture string   `json:"picture"`
	Relays  []string `json:"relays,omitempty"`
}

// ParseMetadata decodes the channel metadata carried in the content
func ParseMetadata(evt *event.Event) (Metadata, error) {
	if evt.Kind != KindChannelCreate && evt.Kind != KindChannelMetadata {
		return Metadata{}, fmt.Errorf("not a channel metadata or create event: kind %d", evt.Kind)
	}

	var md Metadata
	if err := json.Unmarshal([]byte(evt.Content), &md); err != nil {
		return Metadata{}, fmt.Errorf("invalid channel metadata: %w", err)
	}
	return md, nil
}

// ChannelID returns the id of the kind 40 event a metadata update, message,
// or moderation event belongs to. Messages mark it as root; older clients
// put it first.
func ChannelID(evt *event.Event) (string, bool) {
	switch evt.Kind {
	case KindChannelMetadata, KindChannelMessage:
	default:
		return "", false
	}

	first := ""
	for _, tag := range evt.Tags {
		if len(tag) < 2 || tag[0] != "e" {
			continue
		}
		if len(tag) >= 4 && tag[3] == "root" {
			return tag[1], true
		}
		if first == "" {
			first = tag[1]
		}
	}
	return first, first != ""
}

// HiddenMessageID returns the message a kind 43 event hides
func HiddenMessageID(evt *event.Event) (string, bool) {
	if evt.Kind != KindChannelHide {
		return "", false
	}
	id := evt.FirstTagValue("e")
	return id, id != ""
}

// MutedPubKey returns the user a kind 44 event mutes
func MutedPubKey(evt *event.Event) (string, bool) {
	if evt.Kind != KindChannelMute {
		return "", false
	}
	pk := evt.FirstTagValue("p")
	return pk, pk != ""
}

// RoomID identifies an ephemeral chat room on a given relay
type RoomID struct {
	ID    string
	Relay string
}

// String returns the room in "name@relay" form
func (r RoomID) String() string {
	return r.ID + "@" + r.Relay
}

// Room returns the room of an ephemeral chat message from its d and relay tags
func Room(evt *event.Event) (RoomID, bool) {
	if evt.Kind != KindEphemeralChat {
		return RoomID{}, false
	}
	room := RoomID{ID: evt.DTag(), Relay: strings.TrimSpace(evt.FirstTagValue("relay"))}
	if room.ID == "" || room.Relay == "" {
		return RoomID{}, false
	}
	return room, true
}
