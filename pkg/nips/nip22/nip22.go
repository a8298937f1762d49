package nip22

import (
	"github.com/nbd-wtf/go-nostr"
	"github.com/paul/notecache/pkg/event"
)

const (
	// KindComment represents the kind number for comment events
	KindComment = 1111
)

// Scope is either the root (uppercase tags) or the parent (lowercase tags)
// of a comment
type Scope struct {
	EventID string
	Address *event.Address
	Kind    string
	PubKey  string
}

// Thread holds both scopes of a comment
type Thread struct {
	Root   Scope
	Parent Scope
}

// IsTopLevel reports whether the comment replies directly to its root
func (t Thread) IsTopLevel() bool {
	if t.Root.EventID != "" || t.Parent.EventID != "" {
		return t.Root.EventID == t.Parent.EventID
	}
	if t.Root.Address != nil && t.Parent.Address != nil {
		return *t.Root.Address == *t.Parent.Address
	}
	return true
}

// ParseThread extracts the root (E, A, K, P) and parent (e, a, k, p) scopes
func ParseThread(evt *event.Event) Thread {
	var t Thread
	for _, tag := range evt.Tags {
		if len(tag) < 2 {
			continue
		}
		switch tag[0] {
		case "E":
			t.Root.EventID = tag[1]
		case "e":
			t.Parent.EventID = tag[1]
		case "A":
			t.Root.Address = parseAddress(tag[1])
		case "a":
			t.Parent.Address = parseAddress(tag[1])
		case "K":
			t.Root.Kind = tag[1]
		case "k":
			t.Parent.Kind = tag[1]
		case "P":
			t.Root.PubKey = tag[1]
		case "p":
			t.Parent.PubKey = tag[1]
		}
	}
	return t
}

// Targets returns every event id and address the comment is attached to,
// root scope first.
func Targets(evt *event.Event) ([]string, []event.Address) {
	if evt.Kind != KindComment {
		return nil, nil
	}

	var ids []string
	var addrs []event.Address
	seenIDs := make(map[string]struct{})
	seenAddrs := make(map[event.Address]struct{})
	for _, tag := range evt.Tags {
		if len(tag) < 2 {
			continue
		}
		switch tag[0] {
		case "E", "e":
			if _, ok := seenIDs[tag[1]]; !ok && nostr.IsValid32ByteHex(tag[1]) {
				seenIDs[tag[1]] = struct{}{}
				ids = append(ids, tag[1])
			}
		case "A", "a":
			if addr := parseAddress(tag[1]); addr != nil {
				if _, ok := seenAddrs[*addr]; !ok {
					seenAddrs[*addr] = struct{}{}
					addrs = append(addrs, *addr)
				}
			}
		}
	}
	return ids, addrs
}

func parseAddress(value string) *event.Address {
	addr, err := event.ParseAddress(value)
	if err != nil {
		return nil
	}
	return &addr
}
