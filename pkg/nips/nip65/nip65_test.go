package nip65

import (
	"testing"

	"github.com/paul/notecache/pkg/event"
	"github.com/stretchr/testify/assert"
)

func TestRelays(t *testing.T) {
	evt := &event.Event{
		Kind: KindRelayList,
		Tags: [][]string{
			{"r", "wss://relay.damus.io"},
			{"r", "wss://nos.lol/", "read"},
			{"r", "wss://relay.snort.social", "WRITE"},
			{"r", "  "},
			{"p", "someone"},
		},
	}

	expected := []Relay{
		{URL: "wss://relay.damus.io", Read: true, Write: true},
		{URL: "wss://nos.lol", Read: true},
		{URL: "wss://relay.snort.social", Write: true},
	}
	assert.Equal(t, expected, Relays(evt))
	assert.Equal(t, []string{"wss://relay.damus.io", "wss://relay.snort.social"}, WriteRelays(evt))
	assert.Equal(t, []string{"wss://relay.damus.io", "wss://nos.lol"}, ReadRelays(evt))
}

func TestRelaysWrongKind(t *testing.T) {
	assert.Nil(t, Relays(&event.Event{Kind: 3, Tags: [][]string{{"r", "wss://relay.damus.io"}}}))
}
