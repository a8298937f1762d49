package hints

import (
	"sort"
	"strings"

	"github.com/nbd-wtf/go-nostr"
	"github.com/paul/notecache/pkg/event"
	"github.com/paul/notecache/pkg/nips/nip17"
	"github.com/paul/notecache/pkg/nips/nip65"
	"github.com/puzpuzpuz/xsync/v3"
)

// Target is what a hint points at
type Target int

const (
	TargetEvent Target = iota
	TargetAddress
	TargetPubKey
)

// Hint says that Relay is likely to carry Key
type Hint struct {
	Target Target
	Key    string
	Relay  string
}

type relaySet = *xsync.MapOf[string, struct{}]

// Indexer remembers which relays are likely to carry an event, an address
// or the events of a pubkey.
type Indexer struct {
	events    *xsync.MapOf[string, relaySet]
	addresses *xsync.MapOf[string, relaySet]
	pubkeys   *xsync.MapOf[string, relaySet]
}

func NewIndexer() *Indexer {
	return &Indexer{
		events:    xsync.NewMapOf[string, relaySet](),
		addresses: xsync.NewMapOf[string, relaySet](),
		pubkeys:   xsync.NewMapOf[string, relaySet](),
	}
}

// Normalize returns the canonical form of a relay URL, or "" when the URL is
// not a usable relay.
func Normalize(relay string) string {
	relay = strings.TrimSpace(relay)
	if relay == "" {
		return ""
	}
	relay = nostr.NormalizeURL(relay)
	if !nostr.IsValidRelayURL(relay) {
		return ""
	}
	return relay
}

func add(m *xsync.MapOf[string, relaySet], key, relay string) bool {
	relay = Normalize(relay)
	if key == "" || relay == "" {
		return false
	}
	set, _ := m.LoadOrCompute(key, func() relaySet {
		return xsync.NewMapOf[string, struct{}]()
	})
	_, loaded := set.LoadOrStore(relay, struct{}{})
	return !loaded
}

func list(m *xsync.MapOf[string, relaySet], key string) []string {
	set, ok := m.Load(key)
	if !ok {
		return nil
	}
	var relays []string
	set.Range(func(relay string, _ struct{}) bool {
		relays = append(relays, relay)
		return true
	})
	sort.Strings(relays)
	return relays
}

func (idx *Indexer) AddEvent(id, relay string) bool {
	return add(idx.events, id, relay)
}

func (idx *Indexer) AddAddress(addr, relay string) bool {
	return add(idx.addresses, addr, relay)
}

func (idx *Indexer) AddPubKey(pubkey, relay string) bool {
	return add(idx.pubkeys, pubkey, relay)
}

// Add records one hint and reports whether it was new
func (idx *Indexer) Add(h Hint) bool {
	switch h.Target {
	case TargetEvent:
		return idx.AddEvent(h.Key, h.Relay)
	case TargetAddress:
		return idx.AddAddress(h.Key, h.Relay)
	case TargetPubKey:
		return idx.AddPubKey(h.Key, h.Relay)
	default:
		return false
	}
}

// AddAll records hints and returns how many were new
func (idx *Indexer) AddAll(hints []Hint) int {
	added := 0
	for _, h := range hints {
		if idx.Add(h) {
			added++
		}
	}
	return added
}

func (idx *Indexer) RelaysForEvent(id string) []string {
	return list(idx.events, id)
}

func (idx *Indexer) RelaysForAddress(addr string) []string {
	return list(idx.addresses, addr)
}

func (idx *Indexer) RelaysForPubKey(pubkey string) []string {
	return list(idx.pubkeys, pubkey)
}

// Size returns the number of indexed keys per target
func (idx *Indexer) Size() (events, addresses, pubkeys int) {
	return idx.events.Size(), idx.addresses.Size(), idx.pubkeys.Size()
}

// Linked places every event, address and pubkey referenced by the e, q, a
// and p tags of evt on relay.
func Linked(evt *event.Event, relay string) []Hint {
	var hints []Hint
	for _, tag := range evt.Tags {
		if len(tag) < 2 {
			continue
		}
		switch tag[0] {
		case "e", "q":
			if nostr.IsValid32ByteHex(tag[1]) {
				hints = append(hints, Hint{Target: TargetEvent, Key: tag[1], Relay: relay})
			}
		case "a":
			if addr, err := event.ParseAddress(tag[1]); err == nil {
				hints = append(hints, Hint{Target: TargetAddress, Key: addr.String(), Relay: relay})
			}
		case "p":
			if nostr.IsValid32ByteHex(tag[1]) {
				hints = append(hints, Hint{Target: TargetPubKey, Key: tag[1], Relay: relay})
			}
		}
	}
	return hints
}

// FromEvent extracts the relay hints an event declares: the relay position
// of e, q, a and p tags, the write relays of a relay list, and the inbox
// relays of a DM relay list.
func FromEvent(evt *event.Event) []Hint {
	var hints []Hint
	for _, tag := range evt.Tags {
		if len(tag) < 3 || tag[2] == "" {
			continue
		}
		switch tag[0] {
		case "e", "E", "q":
			if nostr.IsValid32ByteHex(tag[1]) {
				hints = append(hints, Hint{Target: TargetEvent, Key: tag[1], Relay: tag[2]})
			}
		case "a", "A":
			if addr, err := event.ParseAddress(tag[1]); err == nil {
				hints = append(hints, Hint{Target: TargetAddress, Key: addr.String(), Relay: tag[2]})
			}
		case "p", "P":
			if nostr.IsValid32ByteHex(tag[1]) {
				hints = append(hints, Hint{Target: TargetPubKey, Key: tag[1], Relay: tag[2]})
			}
		}
	}

	switch evt.Kind {
	case nip65.KindRelayList:
		for _, relay := range nip65.WriteRelays(evt) {
			hints = append(hints, Hint{Target: TargetPubKey, Key: evt.PubKey, Relay: relay})
		}
	case nip17.KindDMRelayList:
		for _, relay := range nip17.DMRelays(evt) {
			hints = append(hints, Hint{Target: TargetPubKey, Key: evt.PubKey, Relay: relay})
		}
	}
	return hints
}
