package nip25

import (
	"strings"
	"testing"

	"github.com/paul/notecache/pkg/event"
	"github.com/stretchr/testify/assert"
)

func TestReactedTargets(t *testing.T) {
	root := strings.Repeat("1", 64)
	target := strings.Repeat("2", 64)
	author := strings.Repeat("a", 64)

	evt := &event.Event{
		Kind:    KindReaction,
		Content: "+",
		Tags: [][]string{
			{"e", root},
			{"e", "nothex"},
			{"e", target, "wss://example.relay"},
			{"a", "30023:" + author + ":post"},
			{"p", author},
		},
	}

	assert.Equal(t, []string{root, target}, ReactedEventIDs(evt))
	assert.Equal(t, []event.Address{{Kind: 30023, PubKey: author, DTag: "post"}}, ReactedAddresses(evt))

	evt.Kind = 1
	assert.Nil(t, ReactedEventIDs(evt))
	assert.Nil(t, ReactedAddresses(evt))
}

func TestReactionType(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected string
		like     bool
		dislike  bool
	}{
		{name: "plus", content: "+", expected: "+", like: true},
		{name: "empty is like", content: "  ", expected: "+", like: true},
		{name: "minus", content: "-", expected: "-", dislike: true},
		{name: "emoji", content: "🤙", expected: "🤙"},
		{name: "shortcode", content: ":soapbox:", expected: ":soapbox:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt := &event.Event{Kind: KindReaction, Content: tt.content}
			assert.Equal(t, tt.expected, ReactionType(evt))
			assert.Equal(t, tt.like, IsLike(evt))
			assert.Equal(t, tt.dislike, IsDislike(evt))
		})
	}
}
