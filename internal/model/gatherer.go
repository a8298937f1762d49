package model

import (
	"slices"
	"strings"
)

// GathererKind tells which collection a GathererKey points into
type GathererKind int

const (
	GatherPublicChat GathererKind = iota
	GatherEphemeralChat
	GatherLiveActivity
	GatherChatroom
)

func (k GathererKind) String() string {
	switch k {
	case GatherPublicChat:
		return "public_chat"
	case GatherEphemeralChat:
		return "ephemeral_chat"
	case GatherLiveActivity:
		return "live_activity"
	case GatherChatroom:
		return "chatroom"
	default:
		return "unknown"
	}
}

// GathererKey identifies a channel or chatroom that holds notes.
//
//	public chat:    ID = channel creation event id
//	ephemeral chat: ID = room name, Scope = relay
//	live activity:  ID = activity address
//	chatroom:       ID = owner pubkey, Scope = ChatroomKey
type GathererKey struct {
	Kind  GathererKind
	ID    string
	Scope string
}

// ChatroomKey is the sorted, comma separated member set of a conversation,
// excluding its owner.
type ChatroomKey string

// NewChatroomKey builds the key for a conversation seen from owner
func NewChatroomKey(owner string, members []string) ChatroomKey {
	set := make([]string, 0, len(members))
	for _, m := range members {
		if m != "" && m != owner && !slices.Contains(set, m) {
			set = append(set, m)
		}
	}
	if len(set) == 0 {
		// notes to self
		set = append(set, owner)
	}
	slices.Sort(set)
	return ChatroomKey(strings.Join(set, ","))
}

// Members returns the pubkeys of the conversation
func (k ChatroomKey) Members() []string {
	if k == "" {
		return nil
	}
	return strings.Split(string(k), ",")
}
