package nip18

import (
	"strings"
	"testing"

	"github.com/paul/notecache/pkg/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoostTargets(t *testing.T) {
	author := strings.Repeat("a", 64)
	repost := &event.Event{
		Kind: KindGenericRepost,
		Tags: [][]string{{"e", "target"}, {"a", "30023:" + author + ":post"}, {"k", "30023"}},
	}

	id, ok := BoostedID(repost)
	assert.True(t, ok)
	assert.Equal(t, "target", id)

	addr, ok := BoostedAddress(repost)
	assert.True(t, ok)
	assert.Equal(t, event.Address{Kind: 30023, PubKey: author, DTag: "post"}, addr)

	_, ok = BoostedID(&event.Event{Kind: 1, Tags: repost.Tags})
	assert.False(t, ok)
}

func TestContainedPost(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantID  string
		wantErr bool
	}{
		{name: "empty", content: ""},
		{name: "embedded", content: `{"id":"abc","pubkey":"def","kind":1,"created_at":1,"tags":[],"content":"hi","sig":"00"}`, wantID: "abc"},
		{name: "garbage", content: "not json", wantErr: true},
		{name: "missing id", content: `{"pubkey":"def","kind":1}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner, err := ContainedPost(&event.Event{Kind: KindRepost, Content: tt.content})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantID == "" {
				assert.Nil(t, inner)
			} else {
				require.NotNil(t, inner)
				assert.Equal(t, tt.wantID, inner.ID)
			}
		})
	}
}
