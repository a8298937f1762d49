package nip04

import (
	"testing"

	"github.com/paul/notecache/pkg/event"
	"github.com/stretchr/testify/assert"
)

func TestRecipient(t *testing.T) {
	dm := &event.Event{Kind: KindEncryptedDirectMessage, Tags: [][]string{{"p", "bob"}, {"e", "prev"}}}

	recipient, ok := Recipient(dm)
	assert.True(t, ok)
	assert.Equal(t, "bob", recipient)
	assert.Equal(t, []string{"prev"}, ReplyTo(dm))

	_, ok = Recipient(&event.Event{Kind: KindEncryptedDirectMessage})
	assert.False(t, ok)

	_, ok = Recipient(&event.Event{Kind: 1, Tags: [][]string{{"p", "bob"}}})
	assert.False(t, ok)
}

func TestIsWellFormed(t *testing.T) {
	tests := []struct {
		content string
		valid   bool
	}{
		{"abc?iv=def", true},
		{"abc", false},
		{"?iv=def", false},
		{"abc?iv=", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.valid, IsWellFormed(tt.content), tt.content)
	}
}
