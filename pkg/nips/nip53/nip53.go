package nip53

import (
	"strings"

	"github.com/paul/notecache/pkg/event"
)

const (
	KindLiveActivity    = 30311
	KindLiveChatMessage = 1311
)

// Activity is the descriptive part of a live activity event
type Activity struct {
	Title   string
	Summary string
	Image   string
	Status  string
	Host    string
}

// ParseActivity reads the activity fields from its tags. The host is the
// first participant marked as host, or the author.
func ParseActivity(evt *event.Event) Activity {
	a := Activity{
		Title:   evt.FirstTagValue("title"),
		Summary: evt.FirstTagValue("summary"),
		Image:   evt.FirstTagValue("image"),
		Status:  evt.FirstTagValue("status"),
		Host:    evt.PubKey,
	}
	for _, tag := range evt.Tags {
		if len(tag) >= 4 && tag[0] == "p" && strings.EqualFold(tag[3], "host") {
			a.Host = tag[1]
			break
		}
	}
	return a
}

// ActivityAddress returns the live activity a chat message is posted to
func ActivityAddress(evt *event.Event) (event.Address, bool) {
	if evt.Kind != KindLiveChatMessage {
		return event.Address{}, false
	}
	for _, value := range evt.TagValues("a") {
		addr, err := event.ParseAddress(value)
		if err == nil && addr.Kind == KindLiveActivity {
			return addr, true
		}
	}
	return event.Address{}, false
}
