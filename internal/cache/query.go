package cache

import (
	"fmt"
	"sort"
	"strings"

	"github.com/paul/notecache/internal/model"
	"github.com/paul/notecache/pkg/event"
	"github.com/paul/notecache/pkg/nips/nip28"
	"github.com/paul/notecache/pkg/nips/nip50"
	"github.com/paul/notecache/pkg/storage"
)

// Note returns the note of an event id
func (c *Cache) Note(id string) (*model.Note, error) {
	if !validID(id) {
		return nil, fmt.Errorf("note %q: %w", id, ErrInvalidKey)
	}
	return storage.Lookup[string, *model.Note](c.notes, id)
}

// AddressableNote returns the note tracking the latest version at an address
func (c *Cache) AddressableNote(address string) (*model.Note, error) {
	addr, err := event.ParseAddress(address)
	if err != nil {
		return nil, fmt.Errorf("addressable note: %w: %v", ErrInvalidKey, err)
	}
	return storage.Lookup[string, *model.Note](c.addressables, addr.String())
}

func (c *Cache) User(pubkey string) (*model.User, error) {
	if !validID(pubkey) {
		return nil, fmt.Errorf("user %q: %w", pubkey, ErrInvalidKey)
	}
	return storage.Lookup[string, *model.User](c.users, pubkey)
}

func (c *Cache) PublicChat(id string) (*model.PublicChat, error) {
	if !validID(id) {
		return nil, fmt.Errorf("public chat %q: %w", id, ErrInvalidKey)
	}
	return storage.Lookup[string, *model.PublicChat](c.publicChats, id)
}

func (c *Cache) LiveActivity(address string) (*model.LiveActivity, error) {
	addr, err := event.ParseAddress(address)
	if err != nil {
		return nil, fmt.Errorf("live activity: %w: %v", ErrInvalidKey, err)
	}
	return storage.Lookup[string, *model.LiveActivity](c.liveActivities, addr.String())
}

func (c *Cache) EphemeralChat(room nip28.RoomID) (*model.EphemeralChat, error) {
	if room.ID == "" || room.Relay == "" {
		return nil, fmt.Errorf("ephemeral chat %q: %w", room.String(), ErrInvalidKey)
	}
	return storage.Lookup[nip28.RoomID, *model.EphemeralChat](c.ephemeralChats, room)
}

// Chatrooms returns the private conversations of owner
func (c *Cache) Chatrooms(owner string) (*model.ChatroomList, error) {
	if !validID(owner) {
		return nil, fmt.Errorf("chatrooms %q: %w", owner, ErrInvalidKey)
	}
	return storage.Lookup[string, *model.ChatroomList](c.chatrooms, owner)
}

// Followers returns the cached users whose contact list includes pubkey
func (c *Cache) Followers(pubkey string) ([]*model.User, error) {
	if !validID(pubkey) {
		return nil, fmt.Errorf("followers %q: %w", pubkey, ErrInvalidKey)
	}
	return c.users.Filter(func(_ string, u *model.User) bool {
		return u.IsFollowing(pubkey)
	}), nil
}

// FindUsersStartingWith finds users by NIP-19 entity, pubkey prefix or name
func (c *Cache) FindUsersStartingWith(prefix string) []*model.User {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil
	}
	if ref, err := decodeEntity(prefix); err == nil && ref.pubkey != "" {
		if u, ok := c.users.Get(ref.pubkey); ok {
			return []*model.User{u}
		}
		return nil
	}

	lower := strings.ToLower(prefix)
	return c.users.Filter(func(pubkey string, u *model.User) bool {
		return strings.HasPrefix(pubkey, lower) || u.MatchesName(prefix)
	})
}

// FindNotesStartingWith finds notes by NIP-19 entity, id prefix or content
func (c *Cache) FindNotesStartingWith(text string) []*model.Note {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if ref, err := decodeEntity(text); err == nil && ref.noteKey != "" {
		if n, ok := c.lookupNote(ref.noteKey); ok {
			return []*model.Note{n}
		}
		return nil
	}

	lower := strings.ToLower(text)
	match := func(key string, n *model.Note) bool {
		if strings.HasPrefix(key, lower) {
			return true
		}
		evt := n.Event()
		return evt != nil && strings.Contains(strings.ToLower(evt.Content), lower)
	}
	return append(c.notes.Filter(match), c.addressables.Filter(match)...)
}

func (c *Cache) FindPublicChatChannelsStartingWith(prefix string) []*model.PublicChat {
	lower := strings.ToLower(strings.TrimSpace(prefix))
	return c.publicChats.Filter(func(id string, ch *model.PublicChat) bool {
		return strings.HasPrefix(id, lower) || model.MatchesName(ch, prefix)
	})
}

func (c *Cache) FindEphemeralChatChannelsStartingWith(prefix string) []*model.EphemeralChat {
	lower := strings.ToLower(strings.TrimSpace(prefix))
	return c.ephemeralChats.Filter(func(room nip28.RoomID, ch *model.EphemeralChat) bool {
		return strings.HasPrefix(strings.ToLower(room.String()), lower) || model.MatchesName(ch, prefix)
	})
}

func (c *Cache) FindLiveActivityChannelsStartingWith(prefix string) []*model.LiveActivity {
	lower := strings.ToLower(strings.TrimSpace(prefix))
	return c.liveActivities.Filter(func(addr string, ch *model.LiveActivity) bool {
		return strings.HasPrefix(addr, lower) || model.MatchesName(ch, prefix)
	})
}

// Filter returns the cached events matching f, newest first. Addressable
// events are returned in their latest version only.
func (c *Cache) Filter(f *event.Filter) []*event.Event {
	return c.collect(f.Limit, func(evt *event.Event) bool {
		return evt.Matches(f)
	})
}

// Search returns the cached events matching a NIP-50 query, newest first
func (c *Cache) Search(query string, limit int) []*event.Event {
	q := nip50.Parse(query)
	if q.IsEmpty() {
		return nil
	}
	return c.collect(&limit, q.Matches)
}

func (c *Cache) collect(limit *int, match func(*event.Event) bool) []*event.Event {
	var out []*event.Event
	seen := make(map[string]struct{})
	add := func(evt *event.Event) {
		if _, ok := seen[evt.ID]; ok {
			return
		}
		seen[evt.ID] = struct{}{}
		out = append(out, evt)
	}

	c.addressables.ForEach(func(_ string, n *model.Note) bool {
		if evt := n.Event(); evt != nil && match(evt) {
			add(evt)
		}
		return true
	})
	c.notes.ForEach(func(_ string, n *model.Note) bool {
		evt := n.Event()
		if evt == nil || !match(evt) {
			return true
		}
		if _, ok := evt.Address(); ok {
			return true
		}
		add(evt)
		return true
	})

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt == out[j].CreatedAt {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt > out[j].CreatedAt
	})
	if limit != nil && *limit > 0 && len(out) > *limit {
		out = out[:*limit]
	}
	return out
}

// Stats is a snapshot of the cache sizes
type Stats struct {
	Users            int `json:"users"`
	Notes            int `json:"notes"`
	Addressables     int `json:"addressables"`
	PublicChats      int `json:"public_chats"`
	EphemeralChats   int `json:"ephemeral_chats"`
	LiveActivities   int `json:"live_activities"`
	ChatroomLists    int `json:"chatroom_lists"`
	DeletionClaims   int `json:"deletion_claims"`
	VersionedAddrs   int `json:"versioned_addresses"`
	Observers        int `json:"observers"`
	AwaitingPayments int `json:"awaiting_payments"`
	HintedEvents     int `json:"hinted_events"`
	HintedAddresses  int `json:"hinted_addresses"`
	HintedPubKeys    int `json:"hinted_pubkeys"`
	FlaggedSpammers  int `json:"flagged_spammers"`
}

// Stats returns the current sizes and refreshes the size gauges
func (c *Cache) Stats() Stats {
	events, addresses, pubkeys := c.hints.Size()
	s := Stats{
		Users:            c.users.Size(),
		Notes:            c.notes.Size(),
		Addressables:     c.addressables.Size(),
		PublicChats:      c.publicChats.Size(),
		EphemeralChats:   c.ephemeralChats.Size(),
		LiveActivities:   c.liveActivities.Size(),
		ChatroomLists:    c.chatrooms.Size(),
		DeletionClaims:   c.deletions.Size(),
		VersionedAddrs:   c.versions.Size(),
		Observers:        c.observers.Size(),
		AwaitingPayments: c.awaiting.Size(),
		HintedEvents:     events,
		HintedAddresses:  addresses,
		HintedPubKeys:    pubkeys,
	}
	if c.antispam != nil {
		s.FlaggedSpammers = len(c.antispam.Flagged())
	}
	c.updateSizes()
	return s
}

func (c *Cache) updateSizes() {
	c.metrics.StoreSize.WithLabelValues("users").Set(float64(c.users.Size()))
	c.metrics.StoreSize.WithLabelValues("notes").Set(float64(c.notes.Size()))
	c.metrics.StoreSize.WithLabelValues("addressables").Set(float64(c.addressables.Size()))
	c.metrics.StoreSize.WithLabelValues("channels").Set(float64(c.publicChats.Size() + c.ephemeralChats.Size() + c.liveActivities.Size()))
	c.metrics.StoreSize.WithLabelValues("chatrooms").Set(float64(c.chatrooms.Size()))
}
