package nip22

import (
	"strings"
	"testing"

	"github.com/paul/notecache/pkg/event"
	"github.com/stretchr/testify/assert"
)

func TestParseThread(t *testing.T) {
	root := strings.Repeat("1", 64)
	parent := strings.Repeat("2", 64)
	author := strings.Repeat("a", 64)

	tests := []struct {
		name     string
		tags     [][]string
		topLevel bool
	}{
		{
			name:     "top level comment on event",
			tags:     [][]string{{"E", root}, {"K", "1"}, {"P", author}, {"e", root}, {"k", "1"}, {"p", author}},
			topLevel: true,
		},
		{
			name:     "reply to comment",
			tags:     [][]string{{"E", root}, {"K", "1"}, {"e", parent}, {"k", "1111"}},
			topLevel: false,
		},
		{
			name:     "top level comment on address",
			tags:     [][]string{{"A", "30023:" + author + ":a"}, {"a", "30023:" + author + ":a"}},
			topLevel: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			thread := ParseThread(&event.Event{Kind: KindComment, Tags: tt.tags})
			assert.Equal(t, tt.topLevel, thread.IsTopLevel())
		})
	}
}

func TestTargets(t *testing.T) {
	root := strings.Repeat("1", 64)
	parent := strings.Repeat("2", 64)
	author := strings.Repeat("a", 64)

	evt := &event.Event{
		Kind: KindComment,
		Tags: [][]string{
			{"E", root}, {"e", parent}, {"e", root},
			{"A", "30023:" + author + ":a"}, {"a", "30023:" + author + ":a"},
			{"e", "broken"},
		},
	}

	ids, addrs := Targets(evt)
	assert.Equal(t, []string{root, parent}, ids)
	assert.Equal(t, []event.Address{{Kind: 30023, PubKey: author, DTag: "a"}}, addrs)

	ids, addrs = Targets(&event.Event{Kind: 1, Tags: evt.Tags})
	assert.Nil(t, ids)
	assert.Nil(t, addrs)
}
