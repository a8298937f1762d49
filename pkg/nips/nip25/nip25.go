package nip25

import (
	"strings"

	"github.com/nbd-wtf/go-nostr"
	"github.com/paul/notecache/pkg/event"
)

const (
	// KindReaction represents the kind number for reaction events
	KindReaction = 7

	Like    = "+"
	Dislike = "-"
)

// ReactedEventIDs extracts the event ids this reaction is reacting to.
// Clients put the thread root first and the reacted note last; all of them
// receive the reaction.
func ReactedEventIDs(evt *event.Event) []string {
	if evt.Kind != KindReaction {
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

// ReactedAddresses extracts the addressable events this reaction points to
func ReactedAddresses(evt *event.Event) []event.Address {
	if evt.Kind != KindReaction {
		return nil
	}

	var addrs []event.Address
	for _, value := range evt.TagValues("a") {
		if addr, err := event.ParseAddress(value); err == nil {
			addrs = append(addrs, addr)
		}
	}
	return addrs
}

// ReactionType extracts the type of reaction. Empty content is a like.
func ReactionType(evt *event.Event) string {
	content := strings.TrimSpace(evt.Content)
	if content == "" {
		return Like
	}
	return content
}

// IsLike checks if the reaction is a like (+ or empty)
func IsLike(evt *event.Event) bool {
	return evt.Kind == KindReaction && ReactionType(evt) == Like
}

// IsDislike checks if the reaction is a dislike (-)
func IsDislike(evt *event.Event) bool {
	return evt.Kind == KindReaction && ReactionType(evt) == Dislike
}
