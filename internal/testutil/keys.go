package testutil

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/paul/notecache/pkg/event"
	"lukechampine.com/frand"
)

// DefaultCreatedAt is the timestamp used when a test does not care about time
const DefaultCreatedAt = 1234567890

// KeyPair represents a Nostr keypair for testing
type KeyPair struct {
	PrivateKey *btcec.PrivateKey
	PubKeyHex  string
}

// GenerateKeyPair generates a new keypair for testing
func GenerateKeyPair() (*KeyPair, error) {
	privKey, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, err
	}
	// Nostr uses Schnorr x-only pubkeys (32 bytes - BIP-340)
	pubKeyBytes := schnorr.SerializePubKey(privKey.PubKey())

	return &KeyPair{
		PrivateKey: privKey,
		PubKeyHex:  hex.EncodeToString(pubKeyBytes),
	}, nil
}

// MustGenerateKeyPair generates a keypair or panics (for test convenience)
func MustGenerateKeyPair() *KeyPair {
	kp, err := GenerateKeyPair()
	if err != nil {
		panic(err)
	}
	return kp
}

// PrivKeyHex returns the hex encoded secret key
func (kp *KeyPair) PrivKeyHex() string {
	return hex.EncodeToString(kp.PrivateKey.Serialize())
}

// SignEvent sets pubkey and id on the event and signs it
func (kp *KeyPair) SignEvent(evt *event.Event) error {
	evt.PubKey = kp.PubKeyHex

	id, err := evt.ComputeID()
	if err != nil {
		return err
	}
	evt.ID = id

	idBytes, err := hex.DecodeString(id)
	if err != nil {
		return err
	}
	sig, err := schnorr.Sign(kp.PrivateKey, idBytes)
	if err != nil {
		return err
	}
	evt.Sig = hex.EncodeToString(sig.Serialize())
	return nil
}

// Event creates a signed event at the given time or panics
func (kp *KeyPair) Event(kind int, createdAt int64, content string, tags ...[]string) *event.Event {
	if tags == nil {
		tags = [][]string{}
	}
	evt := &event.Event{
		Kind:      kind,
		CreatedAt: createdAt,
		Content:   content,
		Tags:      tags,
	}
	if err := kp.SignEvent(evt); err != nil {
		panic(fmt.Sprintf("sign test event: %v", err))
	}
	return evt
}

// Note creates a signed kind 1 note with random content
func (kp *KeyPair) Note(createdAt int64, tags ...[]string) *event.Event {
	return kp.Event(event.KindTextNote, createdAt, RandomContent(16), tags...)
}

// MustNewTestEvent creates a test event with a fresh key or panics
func MustNewTestEvent(kind int, content string, tags [][]string) (*event.Event, *KeyPair) {
	kp := MustGenerateKeyPair()
	return kp.Event(kind, DefaultCreatedAt, content, tags...), kp
}

// RandomContent returns n random bytes, hex encoded
func RandomContent(n int) string {
	return hex.EncodeToString(frand.Bytes(n))
}

// RandomID returns a random 32 byte hex string usable as id or pubkey
func RandomID() string {
	return RandomContent(32)
}
