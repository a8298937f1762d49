package nip10

import (
	"regexp"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"
	"github.com/paul/notecache/pkg/event"
)

// Thread contains thread relationship information extracted from an event
type Thread struct {
	Root     string   // The root event of the thread
	Reply    string   // The direct parent event being replied to
	Mentions []string // Other events mentioned in the thread
}

// IsReply returns true if this event is a reply to another event
func (t Thread) IsReply() bool {
	return t.Reply != "" || t.Root != ""
}

// ParseThread extracts thread relationship info from e tags, preferring
// marked tags and falling back to the deprecated positional layout.
func ParseThread(evt *event.Event) Thread {
	var eTags [][]string
	marked := false
	for _, tag := range evt.Tags {
		if len(tag) >= 2 && tag[0] == "e" {
			eTags = append(eTags, tag)
			if len(tag) >= 4 && tag[3] != "" {
				marked = true
			}
		}
	}

	if len(eTags) == 0 {
		return Thread{}
	}
	if marked {
		return parseMarked(eTags)
	}
	return parsePositional(eTags)
}

func parseMarked(eTags [][]string) Thread {
	var t Thread
	for _, tag := range eTags {
		marker := ""
		if len(tag) >= 4 {
			marker = tag[3]
		}
		switch marker {
		case "root":
			t.Root = tag[1]
		case "reply":
			t.Reply = tag[1]
		default:
			t.Mentions = append(t.Mentions, tag[1])
		}
	}
	// a reply without root replies to the root itself
	if t.Reply != "" && t.Root == "" {
		t.Root = t.Reply
	}
	return t
}

func parsePositional(eTags [][]string) Thread {
	t := Thread{
		Root:  eTags[0][1],
		Reply: eTags[len(eTags)-1][1],
	}
	for i := 1; i < len(eTags)-1; i++ {
		t.Mentions = append(t.Mentions, eTags[i][1])
	}
	return t
}

// IsNewThread reports whether the note starts a thread
func IsNewThread(evt *event.Event) bool {
	return !ParseThread(evt).IsReply()
}

var citationPattern = regexp.MustCompile(`nostr:((?:note|nevent|naddr)1[02-9ac-hj-np-z]+)`)

// Citations returns the event ids and addresses referenced inline in the
// content through nostr: URIs.
func Citations(content string) (ids []string, addrs []string) {
	for _, match := range citationPattern.FindAllStringSubmatch(content, -1) {
		prefix, value, err := nip19.Decode(match[1])
		if err != nil {
			continue
		}
		switch prefix {
		case "note":
			if id, ok := value.(string); ok {
				ids = append(ids, id)
			}
		case "nevent":
			switch ptr := value.(type) {
			case nostr.EventPointer:
				ids = append(ids, ptr.ID)
			case *nostr.EventPointer:
				ids = append(ids, ptr.ID)
			}
		case "naddr":
			switch ptr := value.(type) {
			case nostr.EntityPointer:
				addrs = append(addrs, ptr.AsTagReference())
			case *nostr.EntityPointer:
				addrs = append(addrs, ptr.AsTagReference())
			}
		}
	}
	return ids, addrs
}

// ReplyTargets returns the ids of e tags and the parsed a tags that are not
// just inline citations. These are the notes a reply counts towards.
func ReplyTargets(evt *event.Event) ([]string, []event.Address) {
	citedIDs, citedAddrs := Citations(evt.Content)
	cited := make(map[string]struct{}, len(citedIDs)+len(citedAddrs))
	for _, c := range citedIDs {
		cited[c] = struct{}{}
	}
	for _, c := range citedAddrs {
		cited[c] = struct{}{}
	}

	var ids []string
	var addrs []event.Address
	for _, tag := range evt.Tags {
		if len(tag) < 2 {
			continue
		}
		if _, ok := cited[tag[1]]; ok {
			continue
		}
		switch tag[0] {
		case "e":
			if nostr.IsValid32ByteHex(tag[1]) {
				ids = append(ids, tag[1])
			}
		case "a":
			if addr, err := event.ParseAddress(tag[1]); err == nil {
				addrs = append(addrs, addr)
			}
		}
	}
	return ids, addrs
}
