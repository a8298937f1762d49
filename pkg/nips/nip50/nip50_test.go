package nip50

import (
	"testing"

	"github.com/paul/notecache/pkg/event"
	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	q := Parse("  Nostr  -Spam language:EN relay ")
	assert.Equal(t, []string{"nostr", "relay"}, q.Terms)
	assert.Equal(t, []string{"spam"}, q.Exclusions)
	assert.Equal(t, map[string]string{"language": "en"}, q.Extensions)
	assert.False(t, q.IsEmpty())

	assert.True(t, Parse("   ").IsEmpty())
	assert.True(t, Parse("-").IsEmpty())
}

func TestQueryMatches(t *testing.T) {
	evt := &event.Event{
		Kind:    1,
		Content: "Building a Nostr cache in Go",
		Tags:    [][]string{{"t", "golang"}, {"l", "en"}},
	}

	tests := []struct {
		query    string
		expected bool
	}{
		{query: "nostr cache", expected: true},
		{query: "GOLANG", expected: true},
		{query: "nostr rust", expected: false},
		{query: "nostr -go", expected: false},
		{query: "nostr -rust", expected: true},
		{query: "language:en", expected: true},
		{query: "language:de", expected: false},
		{query: "nsfw:false", expected: true},
		{query: "nsfw:true", expected: false},
		{query: "kind:1 cache", expected: true},
		{query: "kind:7", expected: false},
		{query: "sentiment:positive", expected: true},
		{query: "", expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.expected, Parse(tt.query).Matches(evt))
		})
	}
}
