package nip18

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/paul/notecache/pkg/event"
)

const (
	// KindRepost reposts a kind 1 note
	KindRepost = 6
	// KindGenericRepost reposts any other kind
	KindGenericRepost = 16
)

// IsRepost checks if the kind is one of the repost kinds
func IsRepost(kind int) bool {
	return kind == KindRepost || kind == KindGenericRepost
}

// BoostedID returns the id of the reposted event
func BoostedID(evt *event.Event) (string, bool) {
	if !IsRepost(evt.Kind) {
		return "", false
	}
	id := evt.FirstTagValue("e")
	return id, id != ""
}

// BoostedAddress returns the address of a reposted addressable event
func BoostedAddress(evt *event.Event) (event.Address, bool) {
	if !IsRepost(evt.Kind) {
		return event.Address{}, false
	}
	value := evt.FirstTagValue("a")
	if value == "" {
		return event.Address{}, false
	}
	addr, err := event.ParseAddress(value)
	if err != nil {
		return event.Address{}, false
	}
	return addr, true
}

// ContainedPost decodes the stringified event carried in the content.
// Reposts without an embedded event return nil and no error.
func ContainedPost(evt *event.Event) (*event.Event, error) {
	if !IsRepost(evt.Kind) || strings.TrimSpace(evt.Content) == "" {
		return nil, nil
	}

	var inner event.Event
	if err := json.Unmarshal([]byte(evt.Content), &inner); err != nil {
		return nil, fmt.Errorf("invalid embedded event: %w", err)
	}
	if inner.ID == "" || inner.PubKey == "" {
		return nil, fmt.Errorf("invalid embedded event: missing id or pubkey")
	}
	return &inner, nil
}
