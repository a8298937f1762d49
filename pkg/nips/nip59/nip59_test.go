package nip59

import (
	"testing"

	"github.com/paul/notecache/internal/testutil"
	"github.com/paul/notecache/pkg/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapAndUnwrap(t *testing.T) {
	sender := testutil.MustGenerateKeyPair()
	recipient := testutil.MustGenerateKeyPair()
	wrapper := testutil.MustGenerateKeyPair()

	rumor := &event.Event{
		PubKey:    sender.PubKeyHex,
		CreatedAt: testutil.DefaultCreatedAt,
		Kind:      14,
		Tags:      [][]string{{"p", recipient.PubKeyHex}},
		Content:   "hello there",
	}
	id, err := rumor.ComputeID()
	require.NoError(t, err)
	rumor.ID = id

	seal, err := CreateSeal(rumor, sender.PrivKeyHex(), recipient.PubKeyHex, testutil.DefaultCreatedAt)
	require.NoError(t, err)
	assert.Equal(t, KindSeal, seal.Kind)
	assert.Equal(t, sender.PubKeyHex, seal.PubKey)
	assert.NoError(t, seal.CheckSignature())

	gift, err := CreateGiftWrap(seal, wrapper.PrivKeyHex(), recipient.PubKeyHex, testutil.DefaultCreatedAt+5)
	require.NoError(t, err)
	assert.Equal(t, KindGiftWrap, gift.Kind)
	assert.True(t, gift.HasTagValue("p", recipient.PubKeyHex))
	assert.NoError(t, gift.CheckSignature())

	unwrapper := KeyUnwrapper{PrivateKey: recipient.PrivKeyHex()}

	openedSeal, err := unwrapper.Unwrap(gift)
	require.NoError(t, err)
	assert.Equal(t, seal.ID, openedSeal.ID)

	openedRumor, err := unwrapper.Unwrap(openedSeal)
	require.NoError(t, err)
	assert.Equal(t, rumor.ID, openedRumor.ID)
	assert.Equal(t, "hello there", openedRumor.Content)
	assert.Empty(t, openedRumor.Sig)
}

func TestUnwrapErrors(t *testing.T) {
	recipient := testutil.MustGenerateKeyPair()
	stranger := testutil.MustGenerateKeyPair()
	sender := testutil.MustGenerateKeyPair()

	note := sender.Note(testutil.DefaultCreatedAt)
	_, err := KeyUnwrapper{PrivateKey: recipient.PrivKeyHex()}.Unwrap(note)
	assert.ErrorIs(t, err, ErrNotWrapped)

	seal, err := CreateSeal(note, sender.PrivKeyHex(), recipient.PubKeyHex, testutil.DefaultCreatedAt)
	require.NoError(t, err)

	_, err = KeyUnwrapper{PrivateKey: stranger.PrivKeyHex()}.Unwrap(seal)
	assert.ErrorIs(t, err, ErrDecryption)
}

func TestIsWrap(t *testing.T) {
	assert.True(t, IsWrap(KindSeal))
	assert.True(t, IsWrap(KindGiftWrap))
	assert.False(t, IsWrap(14))
}
