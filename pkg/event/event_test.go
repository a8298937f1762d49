package event_test

import (
	"testing"

	"github.com/paul/notecache/internal/testutil"
	"github.com/paul/notecache/pkg/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_CheckSignature(t *testing.T) {
	valid, _ := testutil.MustNewTestEvent(1, "test content", nil)

	tampered := *valid
	tampered.Content = "other content"

	wrongID := *valid
	wrongID.ID = "invalidid"

	unsigned := *valid
	unsigned.Sig = ""

	otherKey := testutil.MustGenerateKeyPair()
	foreign := *valid
	foreign.PubKey = otherKey.PubKeyHex

	tests := []struct {
		name      string
		event     *event.Event
		expectErr bool
	}{
		{name: "valid event", event: valid},
		{name: "tampered content", event: &tampered, expectErr: true},
		{name: "ID mismatch", event: &wrongID, expectErr: true},
		{name: "missing signature", event: &unsigned, expectErr: true},
		{name: "signed by another key", event: &foreign, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.CheckSignature()
			if tt.expectErr {
				assert.Error(t, err)
				assert.False(t, tt.event.Verify())
			} else {
				assert.NoError(t, err)
				assert.True(t, tt.event.Verify())
			}
		})
	}
}

func TestEvent_SerializeNilTags(t *testing.T) {
	evt := &event.Event{PubKey: "ab", CreatedAt: 10, Kind: 1, Content: "hi"}
	data, err := evt.Serialize()
	require.NoError(t, err)
	assert.Equal(t, `[0,"ab",10,1,[],"hi"]`, string(data))
}

func TestEvent_Parse(t *testing.T) {
	evt, err := event.Parse([]byte(`{"id":"aa","pubkey":"bb","created_at":5,"kind":7,"tags":[["e","cc"]],"content":"+","sig":"dd"}`))
	require.NoError(t, err)
	assert.Equal(t, 7, evt.Kind)
	assert.Equal(t, []string{"cc"}, evt.TagValues("e"))

	_, err = event.Parse([]byte(`{"kind":`))
	assert.Error(t, err)
}

func TestEvent_Tags(t *testing.T) {
	evt := &event.Event{
		Kind: 30023,
		Tags: [][]string{
			{"d", "article"},
			{"e", "id1", "wss://relay.one"},
			{"e", "id2"},
			{"p", "pk1"},
			{"x"},
		},
	}

	assert.Equal(t, []string{"id1", "id2"}, evt.TagValues("e"))
	assert.Equal(t, "article", evt.DTag())
	assert.Equal(t, "id1", evt.FirstTagValue("e"))
	assert.Empty(t, evt.FirstTagValue("x"))
	assert.True(t, evt.HasTagValue("p", "pk1"))
	assert.True(t, evt.IsTaggingAny(map[string]struct{}{"pk1": {}}))
	assert.False(t, evt.IsTaggingAny(map[string]struct{}{"pk2": {}}))
}

func TestEvent_Address(t *testing.T) {
	pk := testutil.RandomID()

	addr, ok := (&event.Event{Kind: 30023, PubKey: pk, Tags: [][]string{{"d", "a:b"}}}).Address()
	require.True(t, ok)
	assert.Equal(t, "30023:"+pk+":a:b", addr.String())

	addr, ok = (&event.Event{Kind: 10002, PubKey: pk, Tags: [][]string{{"d", "ignored"}}}).Address()
	require.True(t, ok)
	assert.Equal(t, "10002:"+pk+":", addr.String())

	_, ok = (&event.Event{Kind: 1, PubKey: pk}).Address()
	assert.False(t, ok)
}

func TestParseAddress(t *testing.T) {
	pk := testutil.RandomID()

	tests := []struct {
		name    string
		input   string
		want    event.Address
		wantErr bool
	}{
		{name: "addressable", input: "30023:" + pk + ":hello", want: event.Address{Kind: 30023, PubKey: pk, DTag: "hello"}},
		{name: "d tag with colons", input: "30023:" + pk + ":a:b:c", want: event.Address{Kind: 30023, PubKey: pk, DTag: "a:b:c"}},
		{name: "replaceable without d", input: "10002:" + pk, want: event.Address{Kind: 10002, PubKey: pk}},
		{name: "empty d", input: "10002:" + pk + ":", want: event.Address{Kind: 10002, PubKey: pk}},
		{name: "bad kind", input: "x:" + pk + ":d", wantErr: true},
		{name: "negative kind", input: "-1:" + pk + ":d", wantErr: true},
		{name: "bad pubkey", input: "1:zz:d", wantErr: true},
		{name: "no separator", input: "30023", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := event.ParseAddress(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, event.ErrInvalidAddress)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKindClasses(t *testing.T) {
	tests := []struct {
		kind                                        int
		regular, replaceable, ephemeral, addressable bool
	}{
		{kind: 0, replaceable: true},
		{kind: 1, regular: true},
		{kind: 3, replaceable: true},
		{kind: 5, regular: true},
		{kind: 10002, replaceable: true},
		{kind: 23333, ephemeral: true},
		{kind: 30023, addressable: true},
		{kind: 40000, regular: true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.regular, event.IsRegular(tt.kind), "regular %d", tt.kind)
		assert.Equal(t, tt.replaceable, event.IsReplaceable(tt.kind), "replaceable %d", tt.kind)
		assert.Equal(t, tt.ephemeral, event.IsEphemeral(tt.kind), "ephemeral %d", tt.kind)
		assert.Equal(t, tt.addressable, event.IsAddressable(tt.kind), "addressable %d", tt.kind)
	}
}

func TestIsAddressKey(t *testing.T) {
	assert.True(t, event.IsAddressKey("30023:abc:d"))
	assert.False(t, event.IsAddressKey(testutil.RandomID()))
}
