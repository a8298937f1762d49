package cache

import (
	"fmt"
	"strings"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"
	"github.com/paul/notecache/internal/hints"
	"github.com/paul/notecache/pkg/event"
)

// entityRef is what a NIP-19 entity points at
type entityRef struct {
	pubkey  string
	noteKey string
	relays  []string
	address bool
}

func decodeEntity(text string) (entityRef, error) {
	text = strings.TrimPrefix(strings.TrimSpace(text), "nostr:")
	prefix, value, err := nip19.Decode(text)
	if err != nil {
		return entityRef{}, err
	}

	switch v := value.(type) {
	case string:
		switch prefix {
		case "npub":
			return entityRef{pubkey: v}, nil
		case "nsec":
			pubkey, err := nostr.GetPublicKey(v)
			if err != nil {
				return entityRef{}, err
			}
			return entityRef{pubkey: pubkey}, nil
		case "note":
			return entityRef{noteKey: v}, nil
		}
	case nostr.ProfilePointer:
		return profileRef(&v), nil
	case *nostr.ProfilePointer:
		return profileRef(v), nil
	case nostr.EventPointer:
		return eventRef(&v), nil
	case *nostr.EventPointer:
		return eventRef(v), nil
	case nostr.EntityPointer:
		return addressRef(&v), nil
	case *nostr.EntityPointer:
		return addressRef(v), nil
	}
	return entityRef{}, fmt.Errorf("unsupported entity %q", prefix)
}

func profileRef(p *nostr.ProfilePointer) entityRef {
	return entityRef{pubkey: p.PublicKey, relays: p.Relays}
}

func eventRef(p *nostr.EventPointer) entityRef {
	return entityRef{noteKey: p.ID, pubkey: p.Author, relays: p.Relays}
}

func addressRef(p *nostr.EntityPointer) entityRef {
	addr := event.Address{Kind: p.Kind, PubKey: p.PublicKey, DTag: p.Identifier}
	return entityRef{noteKey: addr.String(), pubkey: p.PublicKey, relays: p.Relays, address: true}
}

// ConsumeEntity creates the user or note a NIP-19 entity points at and
// records its relay hints.
func (c *Cache) ConsumeEntity(entity string) error {
	ref, err := decodeEntity(entity)
	if err != nil {
		return fmt.Errorf("consume entity: %w: %v", ErrInvalidKey, err)
	}
	if ref.pubkey != "" && !validID(ref.pubkey) {
		return fmt.Errorf("consume entity: %w: bad pubkey", ErrInvalidKey)
	}

	if ref.noteKey != "" {
		if _, ok := c.getOrCreateByKey(ref.noteKey); !ok {
			return fmt.Errorf("consume entity %q: %w", ref.noteKey, ErrInvalidKey)
		}
	}
	if ref.pubkey != "" {
		c.getOrCreateUser(ref.pubkey)
	}

	for _, relay := range ref.relays {
		relay = hints.Normalize(relay)
		if relay == "" {
			continue
		}
		switch {
		case ref.address:
			c.hints.AddAddress(ref.noteKey, relay)
		case ref.noteKey != "":
			c.hints.AddEvent(ref.noteKey, relay)
		default:
			c.hints.AddPubKey(ref.pubkey, relay)
		}
	}
	return nil
}
