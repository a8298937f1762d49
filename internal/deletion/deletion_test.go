package deletion

import (
	"testing"

	"github.com/paul/notecache/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndex_IDClaimsAreAuthorScoped(t *testing.T) {
	author := testutil.MustGenerateKeyPair()
	attacker := testutil.MustGenerateKeyPair()
	idx := NewIndex()

	note := author.Note(100)

	forged := attacker.Event(5, 200, "", []string{"e", note.ID})
	assert.True(t, idx.Add(forged))
	assert.False(t, idx.HasBeenDeleted(note), "only the author can delete a note")

	deletion := author.Event(5, 200, "", []string{"e", note.ID})
	assert.True(t, idx.Add(deletion))

	by, ok := idx.DeletedBy(note)
	require.True(t, ok)
	assert.Equal(t, deletion.ID, by.ID)

	assert.False(t, idx.Add(author.Event(5, 150, "", []string{"e", note.ID})), "older request does not replace newer")
}

func TestIndex_IDClaimsAreTimeScoped(t *testing.T) {
	author := testutil.MustGenerateKeyPair()
	idx := NewIndex()

	note := author.Note(40)
	idx.Add(author.Event(5, 30, "", []string{"e", note.ID}))
	assert.False(t, idx.HasBeenDeleted(note), "a note newer than the deletion survives")

	idx.Add(author.Event(5, 40, "", []string{"e", note.ID}))
	assert.True(t, idx.HasBeenDeleted(note), "same second counts as not newer")
}

func TestIndex_AddressClaimsAreTimeScoped(t *testing.T) {
	author := testutil.MustGenerateKeyPair()
	idx := NewIndex()

	v1 := author.Event(30023, 100, "v1", []string{"d", "post"})
	v3 := author.Event(30023, 300, "v3", []string{"d", "post"})
	addr, _ := v1.Address()

	idx.Add(author.Event(5, 200, "", []string{"a", addr.String()}))

	assert.True(t, idx.HasBeenDeleted(v1))
	assert.False(t, idx.HasBeenDeleted(v3), "versions newer than the deletion survive")
}

func TestIndex_ForeignAddressIgnored(t *testing.T) {
	author := testutil.MustGenerateKeyPair()
	attacker := testutil.MustGenerateKeyPair()
	idx := NewIndex()

	v1 := author.Event(30023, 100, "v1", []string{"d", "post"})
	addr, _ := v1.Address()

	assert.False(t, idx.Add(attacker.Event(5, 200, "", []string{"a", addr.String()})))
	assert.False(t, idx.HasBeenDeleted(v1))
	assert.Equal(t, 0, idx.Size())
}

func TestIndex_Vanish(t *testing.T) {
	author := testutil.MustGenerateKeyPair()
	idx := NewIndex()

	before := author.Note(100)
	after := author.Note(300)
	request := author.Event(62, 200, "", []string{"relay", "ALL_RELAYS"})

	assert.True(t, idx.AddVanish(request))
	assert.False(t, idx.AddVanish(author.Event(62, 100, "", []string{"relay", "ALL_RELAYS"})))

	assert.True(t, idx.HasBeenDeleted(before))
	assert.False(t, idx.HasBeenDeleted(after))
	assert.False(t, idx.HasBeenDeleted(request))
}

func TestVersions(t *testing.T) {
	v := NewVersions()
	v.Add("30023:pk:post", "id1")
	v.Add("30023:pk:post", "id2")
	v.Add("30023:pk:post", "id2")

	assert.ElementsMatch(t, []string{"id1", "id2"}, v.Of("30023:pk:post"))

	v.Remove("30023:pk:post", "id1")
	assert.Equal(t, []string{"id2"}, v.Of("30023:pk:post"))

	v.Remove("30023:pk:post", "id2")
	assert.Equal(t, 0, v.Size())

	assert.Nil(t, v.Of("30023:pk:post"))
}

func TestIndex_AddRelay(t *testing.T) {
	idx := NewIndex()
	id := testutil.RandomID()

	tests := []struct {
		name  string
		id    string
		relay string
		want  bool
	}{
		{"first relay", id, "wss://a.relay", true},
		{"same relay again", id, "wss://a.relay", false},
		{"second relay", id, "wss://b.relay", true},
		{"other request", testutil.RandomID(), "wss://a.relay", true},
		{"no relay", id, "", false},
		{"no id", "", "wss://a.relay", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, idx.AddRelay(tt.id, tt.relay))
		})
	}
}
