package model

import (
	"sort"
	"strings"
	"sync"

	"github.com/paul/notecache/pkg/event"
	"github.com/paul/notecache/pkg/nips/nip28"
	"github.com/paul/notecache/pkg/nips/nip53"
)

// ChannelInfo is the display data of a channel
type ChannelInfo struct {
	Name    string
	About   string
	Picture string
	Relays  []string
}

// Channel is a public chat, an ephemeral chat room or a live activity.
// Channels are never evicted.
type Channel interface {
	Key() GathererKey
	Creator() string
	Info() ChannelInfo
	UpdatedAt() int64

	AddNote(key, author string, createdAt int64) bool
	RemoveNote(key string) bool
	Notes() []string
	Size() int

	// Overflow returns the messages beyond the newest limit ones, oldest
	// first, skipping those keep reports true for.
	Overflow(limit int, keep func(key string) bool) []string

	// MessagesBy returns the messages written by any of the authors
	MessagesBy(authors map[string]struct{}) []string
}

type message struct {
	author    string
	createdAt int64
}

type channelBase struct {
	mu                sync.Mutex
	creator           string
	updatedMetadataAt int64
	info              ChannelInfo
	notes             map[string]message
}

func (c *channelBase) Creator() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creator
}

func (c *channelBase) Info() ChannelInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

func (c *channelBase) UpdatedAt() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updatedMetadataAt
}

// updateInfo applies info when it is newer than the current one and author
// is the creator. An unknown creator is claimed by the first update.
func (c *channelBase) updateInfo(author string, info ChannelInfo, createdAt int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if createdAt <= c.updatedMetadataAt {
		return false
	}
	if c.creator != "" && c.creator != author {
		return false
	}
	c.creator = author
	c.info = info
	c.updatedMetadataAt = createdAt
	return true
}

func (c *channelBase) AddNote(key, author string, createdAt int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.notes == nil {
		c.notes = make(map[string]message)
	}
	if _, ok := c.notes[key]; ok {
		return false
	}
	c.notes[key] = message{author: author, createdAt: createdAt}
	return true
}

func (c *channelBase) RemoveNote(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.notes[key]; !ok {
		return false
	}
	delete(c.notes, key)
	return true
}

func (c *channelBase) Notes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return mapKeys(c.notes)
}

func (c *channelBase) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.notes)
}

func (c *channelBase) Overflow(limit int, keep func(string) bool) []string {
	c.mu.Lock()
	type entry struct {
		key       string
		createdAt int64
	}
	entries := make([]entry, 0, len(c.notes))
	for k, m := range c.notes {
		entries = append(entries, entry{key: k, createdAt: m.createdAt})
	}
	c.mu.Unlock()

	if len(entries) <= limit {
		return nil
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].createdAt == entries[j].createdAt {
			return entries[i].key > entries[j].key
		}
		return entries[i].createdAt > entries[j].createdAt
	})

	var out []string
	for i := len(entries) - 1; i >= limit; i-- {
		if keep == nil || !keep(entries[i].key) {
			out = append(out, entries[i].key)
		}
	}
	return out
}

func (c *channelBase) MessagesBy(authors map[string]struct{}) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []string
	for k, m := range c.notes {
		if _, ok := authors[m.author]; ok {
			out = append(out, k)
		}
	}
	return out
}

// PublicChat is a NIP-28 channel keyed by its creation event id
type PublicChat struct {
	channelBase
	id string
}

func NewPublicChat(id string) *PublicChat {
	return &PublicChat{id: id}
}

func (c *PublicChat) ID() string { return c.id }

func (c *PublicChat) Key() GathererKey {
	return GathererKey{Kind: GatherPublicChat, ID: c.id}
}

// UpdateMetadata applies a kind 40 or 41 event
func (c *PublicChat) UpdateMetadata(evt *event.Event, md nip28.Metadata) bool {
	return c.updateInfo(evt.PubKey, ChannelInfo{
		Name:    md.Name,
		About:   md.About,
		Picture: md.Picture,
		Relays:  md.Relays,
	}, evt.CreatedAt)
}

// EphemeralChat is a relay scoped chat room
type EphemeralChat struct {
	channelBase
	room nip28.RoomID
}

func NewEphemeralChat(room nip28.RoomID) *EphemeralChat {
	c := &EphemeralChat{room: room}
	c.info = ChannelInfo{Name: room.ID, Relays: []string{room.Relay}}
	return c
}

func (c *EphemeralChat) Room() nip28.RoomID { return c.room }

func (c *EphemeralChat) Key() GathererKey {
	return GathererKey{Kind: GatherEphemeralChat, ID: c.room.ID, Scope: c.room.Relay}
}

// LiveActivity is a NIP-53 stream and its chat
type LiveActivity struct {
	channelBase
	address  event.Address
	activity nip53.Activity
}

func NewLiveActivity(addr event.Address) *LiveActivity {
	return &LiveActivity{address: addr}
}

func (c *LiveActivity) Address() event.Address { return c.address }

func (c *LiveActivity) Key() GathererKey {
	return GathererKey{Kind: GatherLiveActivity, ID: c.address.String()}
}

// Activity returns the latest activity description
func (c *LiveActivity) Activity() nip53.Activity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activity
}

// UpdateActivity applies a newer kind 30311 version
func (c *LiveActivity) UpdateActivity(evt *event.Event) bool {
	a := nip53.ParseActivity(evt)
	if !c.updateInfo(evt.PubKey, ChannelInfo{Name: a.Title, About: a.Summary, Picture: a.Image}, evt.CreatedAt) {
		return false
	}
	c.mu.Lock()
	c.activity = a
	c.mu.Unlock()
	return true
}

// MatchesName reports whether the channel name or about text contains prefix,
// ignoring case.
func MatchesName(c Channel, prefix string) bool {
	info := c.Info()
	prefix = strings.ToLower(prefix)
	return strings.Contains(strings.ToLower(info.Name), prefix) ||
		strings.Contains(strings.ToLower(info.About), prefix)
}
