package nip62

import (
	"strings"

	"github.com/nbd-wtf/go-nostr"
	"github.com/paul/notecache/pkg/event"
)

const (
	// KindRequestToVanish represents the kind number for Request to Vanish events
	KindRequestToVanish = 62

	// AllRelays is the relay tag value of a global request
	AllRelays = "ALL_RELAYS"
)

// RelayTags extracts all relay URLs from a Request to Vanish event
func RelayTags(evt *event.Event) []string {
	if evt.Kind != KindRequestToVanish {
		return nil
	}

	var relays []string
	for _, value := range evt.TagValues("relay") {
		if value = strings.TrimSpace(value); value != "" {
			relays = append(relays, value)
		}
	}
	return relays
}

// IsGlobal checks if the Request to Vanish event is for all relays
func IsGlobal(evt *event.Event) bool {
	for _, relay := range RelayTags(evt) {
		if relay == AllRelays {
			return true
		}
	}
	return false
}

// AppliesTo reports whether the request targets the given relay. Global
// requests apply everywhere, including to events without a known source.
func AppliesTo(evt *event.Event, relay string) bool {
	if IsGlobal(evt) {
		return true
	}
	if relay == "" {
		return false
	}

	relay = nostr.NormalizeURL(relay)
	for _, r := range RelayTags(evt) {
		if nostr.NormalizeURL(r) == relay {
			return true
		}
	}
	return false
}
