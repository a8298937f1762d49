package cache

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/paul/notecache/internal/hints"
	"github.com/paul/notecache/internal/testutil"
	"github.com/paul/notecache/pkg/event"
	"github.com/paul/notecache/pkg/nips/nip17"
	"github.com/paul/notecache/pkg/nips/nip28"
	"github.com/paul/notecache/pkg/nips/nip47"
	"github.com/paul/notecache/pkg/nips/nip53"
	"github.com/paul/notecache/pkg/nips/nip57"
	"github.com/paul/notecache/pkg/nips/nip59"
	"github.com/paul/notecache/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zapReceipt(t *testing.T, server *testutil.KeyPair, request *event.Event, createdAt int64) *event.Event {
	t.Helper()
	desc, err := json.Marshal(request)
	require.NoError(t, err)

	tags := [][]string{{"bolt11", "lnbc210n1pjexample"}, {"description", string(desc)}}
	for _, tag := range request.Tags {
		if tag[0] == "p" || tag[0] == "e" || tag[0] == "a" {
			tags = append(tags, tag)
		}
	}
	return server.Event(nip57.KindZap, createdAt, "", tags...)
}

func TestZap_ReceiptLinksRequest(t *testing.T) {
	c := newTestCache(t, Options{})
	author := testutil.MustGenerateKeyPair()
	sender := testutil.MustGenerateKeyPair()
	server := testutil.MustGenerateKeyPair()

	note := author.Note(100)
	require.True(t, c.ConsumeOwn(note))

	request := sender.Event(nip57.KindZapRequest, 110, "great post",
		[]string{"p", author.PubKeyHex},
		[]string{"e", note.ID},
		[]string{"relays", relayOne},
	)
	receipt := zapReceipt(t, server, request, 120)

	require.True(t, c.ConsumeExternal(receipt, relayOne, false))

	n, err := c.Note(note.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{request.ID: receipt.ID}, n.Zaps())

	reqNote, err := c.Note(request.ID)
	require.NoError(t, err, "the embedded request is consumed first")
	assert.Same(t, request, reqNote.Event())

	u, err := c.User(author.PubKeyHex)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{request.ID: receipt.ID}, u.Zaps())
	assert.True(t, u.IsPinned(), "zapped users survive eviction")
}

func TestZap_ReceiptRequiresValidRequest(t *testing.T) {
	c := newTestCache(t, Options{})
	author := testutil.MustGenerateKeyPair()
	sender := testutil.MustGenerateKeyPair()
	server := testutil.MustGenerateKeyPair()
	note := author.Note(100)
	require.True(t, c.ConsumeOwn(note))

	forged := sender.Event(nip57.KindZapRequest, 110, "", []string{"p", author.PubKeyHex}, []string{"e", note.ID})
	forged.Content = "changed after signing"
	assert.False(t, c.ConsumeExternal(zapReceipt(t, server, forged, 120), relayOne, false))

	noDescription := server.Event(nip57.KindZap, 120, "", []string{"p", author.PubKeyHex})
	assert.False(t, c.ConsumeExternal(noDescription, relayOne, false))

	n, err := c.Note(note.ID)
	require.NoError(t, err)
	assert.Empty(t, n.Zaps())
}

func TestZap_RemovalUnlinksUser(t *testing.T) {
	c := newTestCache(t, Options{})
	author := testutil.MustGenerateKeyPair()
	sender := testutil.MustGenerateKeyPair()

	request := sender.Event(nip57.KindZapRequest, 110, "", []string{"p", author.PubKeyHex})
	require.True(t, c.ConsumeOwn(request))

	u, err := c.User(author.PubKeyHex)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{request.ID: ""}, u.Zaps())

	require.True(t, c.ConsumeOwn(deleteIDs(sender, 200, request.ID)))
	assert.Empty(t, u.Zaps())
}

func TestChannel_PublicChat(t *testing.T) {
	c := newTestCache(t, Options{})
	owner := testutil.MustGenerateKeyPair()
	member := testutil.MustGenerateKeyPair()

	create := owner.Event(nip28.KindChannelCreate, 100, `{"name":"Gophers","about":"all things go"}`)
	require.True(t, c.ConsumeOwn(create))

	msg := member.Event(nip28.KindChannelMessage, 110, "hello", []string{"e", create.ID, relayOne, "root"})
	update := owner.Event(nip28.KindChannelMetadata, 120, `{"name":"Gophers United"}`, []string{"e", create.ID})
	require.True(t, c.ConsumeOwn(msg))
	require.True(t, c.ConsumeOwn(update))

	ch, err := c.PublicChat(create.ID)
	require.NoError(t, err)
	assert.Equal(t, "Gophers United", ch.Info().Name)
	assert.ElementsMatch(t, []string{create.ID, msg.ID, update.ID}, ch.Notes(), "channel events are gathered too")

	root, err := c.Note(create.ID)
	require.NoError(t, err)
	assert.Empty(t, root.Replies(), "messages are gathered, not replies to the channel")

	assert.Len(t, c.FindPublicChatChannelsStartingWith("gophers"), 1)
	assert.Empty(t, c.FindPublicChatChannelsStartingWith("rustaceans"))

	require.True(t, c.ConsumeOwn(deleteIDs(member, 200, msg.ID)))
	assert.ElementsMatch(t, []string{create.ID, update.ID}, ch.Notes())
	assert.Len(t, root.Gatherers(), 1)
}

func TestChannel_ModerationKindsAreIgnored(t *testing.T) {
	c := newTestCache(t, Options{})
	kp := testutil.MustGenerateKeyPair()

	assert.False(t, c.ConsumeOwn(kp.Event(nip28.KindChannelHide, 100, "", []string{"e", testutil.RandomID()})))
	assert.False(t, c.ConsumeOwn(kp.Event(nip28.KindChannelMute, 100, "", []string{"p", testutil.RandomID()})))
}

func TestChannel_EphemeralChat(t *testing.T) {
	c := newTestCache(t, Options{})
	kp := testutil.MustGenerateKeyPair()

	msg := kp.Event(nip28.KindEphemeralChat, 100, "hi", []string{"d", "lobby"}, []string{"relay", relayOne + "/"})
	require.True(t, c.ConsumeExternal(msg, relayOne, false))
	assert.False(t, c.ConsumeOwn(kp.Event(nip28.KindEphemeralChat, 101, "no room")))

	room := nip28.RoomID{ID: "lobby", Relay: hints.Normalize(relayOne)}
	ch, err := c.EphemeralChat(room)
	require.NoError(t, err)
	assert.Equal(t, []string{msg.ID}, ch.Notes())

	assert.Len(t, c.FindEphemeralChatChannelsStartingWith("lob"), 1)

	_, err = c.EphemeralChat(nip28.RoomID{ID: "lobby"})
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestChannel_LiveActivity(t *testing.T) {
	c := newTestCache(t, Options{})
	host := testutil.MustGenerateKeyPair()
	viewer := testutil.MustGenerateKeyPair()

	activity := host.Event(nip53.KindLiveActivity, 100, "", []string{"d", "stream"}, []string{"title", "Live coding"})
	require.True(t, c.ConsumeOwn(activity))

	addr := addressOf(host, nip53.KindLiveActivity, "stream")
	chat := viewer.Event(nip53.KindLiveChatMessage, 110, "nice", []string{"a", addr, relayOne, "root"})
	require.True(t, c.ConsumeOwn(chat))

	ch, err := c.LiveActivity(addr)
	require.NoError(t, err)
	assert.Equal(t, "Live coding", ch.Info().Name)
	assert.Equal(t, []string{chat.ID}, ch.Notes())
	assert.Len(t, c.FindLiveActivityChannelsStartingWith("live"), 1)

	_, err = c.LiveActivity("not an address")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestDirectMessages_FiledForBothSides(t *testing.T) {
	c := newTestCache(t, Options{})
	alice := testutil.MustGenerateKeyPair()
	bob := testutil.MustGenerateKeyPair()

	dm := alice.Event(4, 100, "c2VjcmV0?iv=aXY=", []string{"p", bob.PubKeyHex})
	require.True(t, c.ConsumeOwn(dm))

	for _, owner := range []string{alice.PubKeyHex, bob.PubKeyHex} {
		list, err := c.Chatrooms(owner)
		require.NoError(t, err)
		assert.Equal(t, 1, list.Size())
	}

	_, err := c.Chatrooms(testutil.RandomID())
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = c.Chatrooms("bad")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestGiftWrap_UnwrapsAndRemovesHosts(t *testing.T) {
	sender := testutil.MustGenerateKeyPair()
	recipient := testutil.MustGenerateKeyPair()
	wrapper := testutil.MustGenerateKeyPair()

	c := newTestCache(t, Options{Unwrapper: nip59.KeyUnwrapper{PrivateKey: recipient.PrivKeyHex()}})

	rumor := &event.Event{
		PubKey:    sender.PubKeyHex,
		CreatedAt: 100,
		Kind:      nip17.KindChatMessage,
		Tags:      [][]string{{"p", recipient.PubKeyHex}},
		Content:   "psst",
	}
	id, err := rumor.ComputeID()
	require.NoError(t, err)
	rumor.ID = id

	seal, err := nip59.CreateSeal(rumor, sender.PrivKeyHex(), recipient.PubKeyHex, 110)
	require.NoError(t, err)
	wrap, err := nip59.CreateGiftWrap(seal, wrapper.PrivKeyHex(), recipient.PubKeyHex, 120)
	require.NoError(t, err)

	require.True(t, c.ConsumeExternal(wrap, relayOne, false))

	inner, err := c.Note(rumor.ID)
	require.NoError(t, err)
	require.NotNil(t, inner.Event(), "the rumor is unwrapped")
	assert.Equal(t, seal.ID, inner.Host())

	sealNote, err := c.Note(seal.ID)
	require.NoError(t, err)
	assert.Equal(t, wrap.ID, sealNote.Host())

	list, err := c.Chatrooms(recipient.PubKeyHex)
	require.NoError(t, err)
	assert.Equal(t, 1, list.Size())

	require.True(t, c.ConsumeOwn(deleteIDs(sender, 200, rumor.ID)))
	for _, key := range []string{rumor.ID, seal.ID, wrap.ID} {
		_, err := c.Note(key)
		assert.ErrorIs(t, err, storage.ErrNotFound, "the whole wrap chain goes")
	}
}

func TestGiftWrap_WithoutUnwrapper(t *testing.T) {
	c := newTestCache(t, Options{})
	sender := testutil.MustGenerateKeyPair()
	recipient := testutil.MustGenerateKeyPair()

	rumor := &event.Event{PubKey: sender.PubKeyHex, CreatedAt: 100, Kind: nip17.KindChatMessage, Tags: [][]string{}, Content: "x"}
	seal, err := nip59.CreateSeal(rumor, sender.PrivKeyHex(), recipient.PubKeyHex, 110)
	require.NoError(t, err)

	assert.True(t, c.ConsumeExternal(seal, relayOne, false), "the seal itself is stored")
	assert.Equal(t, 1, c.Stats().Notes)
}

func TestPayments(t *testing.T) {
	c := newTestCache(t, Options{})
	account := testutil.MustGenerateKeyPair()
	wallet := testutil.MustGenerateKeyPair()
	author := testutil.MustGenerateKeyPair()

	note := author.Note(100)
	require.True(t, c.ConsumeOwn(note))

	request := account.Event(nip47.KindPaymentRequest, 110, "encrypted", []string{"p", wallet.PubKeyHex})
	assert.False(t, c.ConsumeExternal(request, relayOne, false), "requests only enter through the wallet flow")

	responses := make(chan *event.Event, 1)
	require.True(t, c.ConsumePaymentRequest(request, note.ID, func(evt *event.Event) { responses <- evt }))
	assert.False(t, c.ConsumePaymentRequest(request, note.ID, nil), "already waiting")
	assert.Equal(t, 1, c.AwaitingPayments())

	n, err := c.Note(note.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{request.ID: ""}, n.ZapPayments())

	unrelated := wallet.Event(nip47.KindPaymentResponse, 120, "encrypted", []string{"e", testutil.RandomID()})
	assert.False(t, c.ConsumeExternal(unrelated, relayOne, false))

	response := wallet.Event(nip47.KindPaymentResponse, 120, "encrypted", []string{"e", request.ID}, []string{"p", account.PubKeyHex})
	require.True(t, c.ConsumeExternal(response, relayOne, false))

	select {
	case got := <-responses:
		assert.Same(t, response, got)
	case <-time.After(2 * time.Second):
		require.FailNow(t, "response callback not called")
	}
	assert.Equal(t, map[string]string{request.ID: response.ID}, n.ZapPayments())

	c.ForgetPaymentRequest(request.ID)
	assert.Zero(t, c.AwaitingPayments())
}

func TestPayments_CallbackObservesOnSaturatedPool(t *testing.T) {
	cfg := testConfig()
	cfg.Workers.Size = 1
	c := newTestCache(t, Options{Config: cfg})
	account := testutil.MustGenerateKeyPair()
	wallet := testutil.MustGenerateKeyPair()

	request := account.Event(nip47.KindPaymentRequest, 110, "encrypted", []string{"p", wallet.PubKeyHex})
	ready := make(chan bool, 1)
	require.True(t, c.ConsumePaymentRequest(request, "", func(evt *event.Event) {
		latest, err := c.LatestByETag(nip47.KindPaymentResponse, request.ID)
		if err != nil {
			ready <- false
			return
		}
		defer latest.Release()
		select {
		case <-latest.Ready():
			ready <- true
		case <-time.After(time.Second):
			ready <- false
		}
	}))

	response := wallet.Event(nip47.KindPaymentResponse, 120, "encrypted", []string{"e", request.ID})
	require.True(t, c.ConsumeExternal(response, relayOne, false))

	select {
	case ok := <-ready:
		assert.True(t, ok, "the observer scan runs while the callback holds the only worker")
	case <-time.After(2 * time.Second):
		require.FailNow(t, "response callback not called")
	}
}
