package nip09

import (
	"github.com/nbd-wtf/go-nostr"
	"github.com/paul/notecache/pkg/event"
)

const (
	// KindDeletion is the kind of NIP-09 event deletion requests
	KindDeletion = 5
)

// DeletedIDs returns the event ids referenced by e tags.
// Malformed ids are ignored.
func DeletedIDs(evt *event.Event) []string {
	if evt.Kind != KindDeletion {
		return nil
	}

	var ids []string
	for _, id := range evt.TagValues("e") {
		if nostr.IsValid32ByteHex(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// DeletedAddresses returns the addresses referenced by a tags.
// A request can only delete events of its own author, so addresses of
// other authors are dropped here.
func DeletedAddresses(evt *event.Event) []event.Address {
	if evt.Kind != KindDeletion {
		return nil
	}

	var addrs []event.Address
	for _, value := range evt.TagValues("a") {
		addr, err := event.ParseAddress(value)
		if err != nil || addr.PubKey != evt.PubKey {
			continue
		}
		addrs = append(addrs, addr)
	}
	return addrs
}
