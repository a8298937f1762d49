package event

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/minio/sha256-simd"
)

// ErrMissingSignature is returned by CheckSignature for unsigned events
var ErrMissingSignature = errors.New("missing signature")

// Event represents a Nostr event as defined in NIP-01
type Event struct {
	ID        string     `json:"id"`
	PubKey    string     `json:"pubkey"`
	CreatedAt int64      `json:"created_at"`
	Kind      int        `json:"kind"`
	Tags      [][]string `json:"tags"`
	Content   string     `json:"content"`
	Sig       string     `json:"sig"`
}

// Parse decodes a JSON encoded event
func Parse(data []byte) (*Event, error) {
	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}
	return &evt, nil
}

// ComputeID computes the event ID according to NIP-01
func (e *Event) ComputeID() (string, error) {
	serialized, err := e.Serialize()
	if err != nil {
		return "", err
	}

	hash := sha256.Sum256(serialized)
	return hex.EncodeToString(hash[:]), nil
}

// Serialize creates the canonical serialization for ID computation
func (e *Event) Serialize() ([]byte, error) {
	tags := e.Tags
	if tags == nil {
		tags = [][]string{}
	}
	// [0,<pubkey>,<created_at>,<kind>,<tags>,<content>]
	data := []any{0, e.PubKey, e.CreatedAt, e.Kind, tags, e.Content}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		return nil, fmt.Errorf("failed to serialize event: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// CheckSignature verifies that the ID matches the content and that the
// Schnorr signature over the ID was made by PubKey.
func (e *Event) CheckSignature() error {
	if e.Sig == "" {
		return ErrMissingSignature
	}

	computedID, err := e.ComputeID()
	if err != nil {
		return fmt.Errorf("failed to compute ID: %w", err)
	}
	if e.ID != computedID {
		return fmt.Errorf("ID does not match computed hash")
	}

	// 32 bytes x-only format used by Nostr/BIP-340
	pubKeyBytes, err := hex.DecodeString(e.PubKey)
	if err != nil {
		return fmt.Errorf("invalid pubkey hex: %w", err)
	}
	if len(pubKeyBytes) != 32 {
		return fmt.Errorf("pubkey must be 32 bytes")
	}
	pubKey, err := schnorr.ParsePubKey(pubKeyBytes)
	if err != nil {
		return fmt.Errorf("invalid pubkey: %w", err)
	}

	sigBytes, err := hex.DecodeString(e.Sig)
	if err != nil {
		return fmt.Errorf("invalid signature hex: %w", err)
	}
	if len(sigBytes) != 64 {
		return fmt.Errorf("signature must be 64 bytes")
	}
	sig, err := schnorr.ParseSignature(sigBytes)
	if err != nil {
		return fmt.Errorf("invalid signature: %w", err)
	}

	idBytes, err := hex.DecodeString(e.ID)
	if err != nil {
		return fmt.Errorf("invalid ID hex: %w", err)
	}
	if !sig.Verify(idBytes, pubKey) {
		return fmt.Errorf("signature verification failed")
	}
	return nil
}

// Verify reports whether CheckSignature succeeds
func (e *Event) Verify() bool {
	return e.CheckSignature() == nil
}

// TagValues returns all values for a given tag name
func (e *Event) TagValues(name string) []string {
	var values []string
	for _, tag := range e.Tags {
		if len(tag) >= 2 && tag[0] == name {
			values = append(values, tag[1])
		}
	}
	return values
}

// FirstTag returns the first tag with the given name
func (e *Event) FirstTag(name string) ([]string, bool) {
	for _, tag := range e.Tags {
		if len(tag) >= 2 && tag[0] == name {
			return tag, true
		}
	}
	return nil, false
}

// FirstTagValue returns the value of the first tag with the given name
func (e *Event) FirstTagValue(name string) string {
	if tag, ok := e.FirstTag(name); ok {
		return tag[1]
	}
	return ""
}

// HasTagValue checks if the event has a tag with the given name and value
func (e *Event) HasTagValue(name, value string) bool {
	for _, tag := range e.Tags {
		if len(tag) >= 2 && tag[0] == name && tag[1] == value {
			return true
		}
	}
	return false
}

// IsTaggingAny reports whether any p tag points to one of the given pubkeys
func (e *Event) IsTaggingAny(pubkeys map[string]struct{}) bool {
	for _, tag := range e.Tags {
		if len(tag) >= 2 && tag[0] == "p" {
			if _, ok := pubkeys[tag[1]]; ok {
				return true
			}
		}
	}
	return false
}

// DTag returns the d tag used by addressable events, empty when absent
func (e *Event) DTag() string {
	return e.FirstTagValue("d")
}

// Address returns the address of replaceable and addressable events
func (e *Event) Address() (Address, bool) {
	if !IsReplaceable(e.Kind) && !IsAddressable(e.Kind) {
		return Address{}, false
	}
	addr := Address{Kind: e.Kind, PubKey: e.PubKey}
	if IsAddressable(e.Kind) {
		addr.DTag = e.DTag()
	}
	return addr, true
}

// String returns the JSON encoding of the event
func (e *Event) String() string {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Sprintf("event(%s)", e.ID)
	}
	return string(data)
}
