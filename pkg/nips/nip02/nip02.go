package nip02

import (
	"github.com/nbd-wtf/go-nostr"
	"github.com/paul/notecache/pkg/event"
)

const (
	// KindFollowList is the kind for follow list events (also known as contact list)
	KindFollowList = 3
)

// Follow is one p tag of a follow list
type Follow struct {
	PubKey  string
	Relay   string
	Petname string
}

// Follows extracts the followed pubkeys with their optional relay hint and petname.
// Tags with malformed pubkeys are skipped.
func Follows(evt *event.Event) []Follow {
	if evt.Kind != KindFollowList {
		return nil
	}

	var follows []Follow
	for _, tag := range evt.Tags {
		if len(tag) < 2 || tag[0] != "p" || !nostr.IsValid32ByteHex(tag[1]) {
			continue
		}
		f := Follow{PubKey: tag[1]}
		if len(tag) >= 3 {
			f.Relay = tag[2]
		}
		if len(tag) >= 4 {
			f.Petname = tag[3]
		}
		follows = append(follows, f)
	}
	return follows
}

// IsFollowing reports whether the follow list contains the pubkey
func IsFollowing(evt *event.Event, pubkey string) bool {
	for _, f := range Follows(evt) {
		if f.PubKey == pubkey {
			return true
		}
	}
	return false
}
