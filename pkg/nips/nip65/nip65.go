package nip65

import (
	"strings"

	"github.com/nbd-wtf/go-nostr"
	"github.com/paul/notecache/pkg/event"
)

// KindRelayList represents the kind number for relay list metadata events
const KindRelayList = 10002

// Relay is one entry of a relay list
type Relay struct {
	URL   string
	Read  bool
	Write bool
}

// Relays extracts the relays of a relay list event. URLs are normalized and
// invalid ones are skipped. An entry without marker is used for both read
// and write.
func Relays(evt *event.Event) []Relay {
	if evt.Kind != KindRelayList {
		return nil
	}

	var relays []Relay
	for _, tag := range evt.Tags {
		if len(tag) < 2 || tag[0] != "r" {
			continue
		}
		url := nostr.NormalizeURL(strings.TrimSpace(tag[1]))
		if !nostr.IsValidRelayURL(url) {
			continue
		}

		relay := Relay{URL: url, Read: true, Write: true}
		if len(tag) >= 3 {
			switch strings.ToLower(tag[2]) {
			case "read":
				relay.Write = false
			case "write":
				relay.Read = false
			}
		}
		relays = append(relays, relay)
	}
	return relays
}

// WriteRelays extracts the relays the author publishes to
func WriteRelays(evt *event.Event) []string {
	var urls []string
	for _, r := range Relays(evt) {
		if r.Write {
			urls = append(urls, r.URL)
		}
	}
	return urls
}

// ReadRelays extracts the relays the author reads from
func ReadRelays(evt *event.Event) []string {
	var urls []string
	for _, r := range Relays(evt) {
		if r.Read {
			urls = append(urls, r.URL)
		}
	}
	return urls
}
