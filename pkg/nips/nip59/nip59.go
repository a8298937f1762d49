package nip59

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip04"
	"github.com/nbd-wtf/go-nostr/nip44"
	"github.com/paul/notecache/pkg/event"
)

const (
	KindSeal     = 13
	KindGiftWrap = 1059
)

var (
	ErrNotWrapped = errors.New("event is not a seal or gift wrap")
	ErrDecryption = errors.New("decryption failed")
)

// IsWrap reports whether the kind carries an encrypted inner event
func IsWrap(kind int) bool {
	return kind == KindSeal || kind == KindGiftWrap
}

// ConversationKey derives the shared secret between a private and a public key
func ConversationKey(privateKey, publicKey string) ([32]byte, error) {
	var key [32]byte
	shared, err := nip04.ComputeSharedSecret(publicKey, privateKey)
	if err != nil {
		return key, err
	}
	copy(key[:], shared)
	return key, nil
}

// KeyUnwrapper opens seals and gift wraps addressed to one private key
type KeyUnwrapper struct {
	PrivateKey string
}

// Unwrap decrypts one layer: a gift wrap yields its seal, a seal yields its
// rumor. Rumors are unsigned and come back with an empty Sig.
func (u KeyUnwrapper) Unwrap(wrap *event.Event) (*event.Event, error) {
	if !IsWrap(wrap.Kind) {
		return nil, ErrNotWrapped
	}

	key, err := ConversationKey(u.PrivateKey, wrap.PubKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}

	plaintext, err := nip44.Decrypt(wrap.Content, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}

	inner, err := event.Parse([]byte(plaintext))
	if err != nil {
		return nil, err
	}
	if wrap.Kind == KindGiftWrap && inner.Kind != KindSeal {
		return nil, fmt.Errorf("gift wrap contains kind %d, expected seal", inner.Kind)
	}
	if inner.ID == "" {
		if inner.ID, err = inner.ComputeID(); err != nil {
			return nil, err
		}
	}
	return inner, nil
}

// CreateSeal encrypts the rumor to the recipient and signs the seal with the
// sender key.
func CreateSeal(rumor *event.Event, senderPrivateKey, recipientPublicKey string, createdAt int64) (*event.Event, error) {
	unsigned := *rumor
	unsigned.Sig = ""
	return wrap(&unsigned, KindSeal, senderPrivateKey, recipientPublicKey, createdAt, nostr.Tags{})
}

// CreateGiftWrap encrypts the seal to the recipient under a one-off key
func CreateGiftWrap(seal *event.Event, wrapperPrivateKey, recipientPublicKey string, createdAt int64) (*event.Event, error) {
	return wrap(seal, KindGiftWrap, wrapperPrivateKey, recipientPublicKey, createdAt, nostr.Tags{{"p", recipientPublicKey}})
}

func wrap(inner *event.Event, kind int, privateKey, recipientPublicKey string, createdAt int64, tags nostr.Tags) (*event.Event, error) {
	payload, err := json.Marshal(inner)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal inner event: %w", err)
	}

	key, err := ConversationKey(privateKey, recipientPublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to generate conversation key: %w", err)
	}

	content, err := nip44.Encrypt(string(payload), key)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt: %w", err)
	}

	outer := &nostr.Event{
		CreatedAt: nostr.Timestamp(createdAt),
		Kind:      kind,
		Content:   content,
		Tags:      tags,
	}
	if err := outer.Sign(privateKey); err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}
	return fromNostr(outer), nil
}

func fromNostr(evt *nostr.Event) *event.Event {
	tags := make([][]string, len(evt.Tags))
	for i, tag := range evt.Tags {
		tags[i] = tag
	}
	return &event.Event{
		ID:        evt.ID,
		PubKey:    evt.PubKey,
		CreatedAt: int64(evt.CreatedAt),
		Kind:      evt.Kind,
		Tags:      tags,
		Content:   evt.Content,
		Sig:       evt.Sig,
	}
}
