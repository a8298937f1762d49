package nip28

import (
	"testing"

	"github.com/paul/notecache/pkg/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMetadata(t *testing.T) {
	md, err := ParseMetadata(&event.Event{
		Kind:    KindChannelCreate,
		Content: `{"name":"Demo Channel","about":"A test channel.","picture":"https://placekitten.com/200/200","relays":["wss://nos.lol"]}`,
	})
	require.NoError(t, err)
	assert.Equal(t, "Demo Channel", md.Name)
	assert.Equal(t, "A test channel.", md.About)
	assert.Equal(t, []string{"wss://nos.lol"}, md.Relays)

	_, err = ParseMetadata(&event.Event{Kind: KindChannelMetadata, Content: "not json"})
	assert.Error(t, err)

	_, err = ParseMetadata(&event.Event{Kind: KindChannelMessage, Content: "{}"})
	assert.Error(t, err)
}

func TestChannelID(t *testing.T) {
	tests := []struct {
		name     string
		evt      *event.Event
		expected string
		found    bool
	}{
		{
			name:     "marked root",
			evt:      &event.Event{Kind: KindChannelMessage, Tags: [][]string{{"e", "reply", "", "reply"}, {"e", "channel", "", "root"}}},
			expected: "channel",
			found:    true,
		},
		{
			name:     "positional",
			evt:      &event.Event{Kind: KindChannelMetadata, Tags: [][]string{{"e", "channel"}}},
			expected: "channel",
			found:    true,
		},
		{
			name: "missing",
			evt:  &event.Event{Kind: KindChannelMessage},
		},
		{
			name: "other kind",
			evt:  &event.Event{Kind: 1, Tags: [][]string{{"e", "channel"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := ChannelID(tt.evt)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.expected, id)
		})
	}
}

func TestModeration(t *testing.T) {
	id, ok := HiddenMessageID(&event.Event{Kind: KindChannelHide, Tags: [][]string{{"e", "msg"}}})
	assert.True(t, ok)
	assert.Equal(t, "msg", id)

	pk, ok := MutedPubKey(&event.Event{Kind: KindChannelMute, Tags: [][]string{{"p", "spammer"}}})
	assert.True(t, ok)
	assert.Equal(t, "spammer", pk)

	_, ok = MutedPubKey(&event.Event{Kind: KindChannelHide, Tags: [][]string{{"p", "spammer"}}})
	assert.False(t, ok)
}

func TestRoom(t *testing.T) {
	room, ok := Room(&event.Event{Kind: KindEphemeralChat, Tags: [][]string{{"d", "general"}, {"relay", "wss://chat.relay"}}})
	require.True(t, ok)
	assert.Equal(t, RoomID{ID: "general", Relay: "wss://chat.relay"}, room)
	assert.Equal(t, "general@wss://chat.relay", room.String())

	_, ok = Room(&event.Event{Kind: KindEphemeralChat, Tags: [][]string{{"d", "general"}}})
	assert.False(t, ok)
}
