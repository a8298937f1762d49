package nip17

import (
	"testing"

	"github.com/paul/notecache/pkg/event"
	"github.com/stretchr/testify/assert"
)

func TestChatMessageTags(t *testing.T) {
	msg := &event.Event{
		Kind: KindChatMessage,
		Tags: [][]string{{"p", "bob"}, {"p", "carol"}, {"e", "prev"}, {"subject", "plans"}},
	}

	assert.Equal(t, []string{"bob", "carol"}, Recipients(msg))
	assert.Equal(t, []string{"prev"}, ReplyTo(msg))
	subject, ok := Subject(msg)
	assert.True(t, ok)
	assert.Equal(t, "plans", subject)

	note := &event.Event{Kind: 1, Tags: msg.Tags}
	assert.Nil(t, Recipients(note))
	assert.Nil(t, ReplyTo(note))
}

func TestDMRelays(t *testing.T) {
	list := &event.Event{Kind: KindDMRelayList, Tags: [][]string{{"relay", "wss://inbox.one"}, {"relay", "wss://inbox.two"}}}
	assert.Equal(t, []string{"wss://inbox.one", "wss://inbox.two"}, DMRelays(list))
	assert.Nil(t, DMRelays(&event.Event{Kind: 10002, Tags: list.Tags}))
}
