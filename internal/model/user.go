package model

import (
	"encoding/json"
	"fmt"
	"maps"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/paul/notecache/pkg/event"
	"github.com/paul/notecache/pkg/nips/nip02"
)

// UserInfo is the parsed content of a kind 0 event
type UserInfo struct {
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	About       string `json:"about,omitempty"`
	Picture     string `json:"picture,omitempty"`
	Banner      string `json:"banner,omitempty"`
	Website     string `json:"website,omitempty"`
	NIP05       string `json:"nip05,omitempty"`
	LUD16       string `json:"lud16,omitempty"`
}

// RelayUsage counts the events of a user seen on one relay
type RelayUsage struct {
	Count     int
	LastEvent int64
}

// User is a pubkey and what the cache knows about it
type User struct {
	pubkey string

	mu            sync.Mutex
	metadata      *event.Event
	info          UserInfo
	metadataRelay string
	contactList   *event.Event
	relays        map[string]RelayUsage
	zaps          map[string]string
	reports       map[string]map[string]struct{}

	refs      atomic.Int32
	observers atomic.Int32
}

func NewUser(pubkey string) *User {
	return &User{pubkey: pubkey}
}

func (u *User) PubKey() string { return u.pubkey }

// UpdateMetadata stores a strictly newer kind 0 event whose content is a
// JSON profile.
func (u *User) UpdateMetadata(evt *event.Event, relay string) (bool, error) {
	var info UserInfo
	if err := json.Unmarshal([]byte(evt.Content), &info); err != nil {
		return false, fmt.Errorf("invalid metadata content: %w", err)
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if u.metadata != nil && evt.CreatedAt <= u.metadata.CreatedAt {
		return false, nil
	}
	u.metadata = evt
	u.info = info
	if relay != "" {
		u.metadataRelay = relay
	}
	return true, nil
}

func (u *User) Metadata() *event.Event {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.metadata
}

func (u *User) Info() UserInfo {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.info
}

// MetadataRelay is the relay the current metadata came from
func (u *User) MetadataRelay() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.metadataRelay
}

// BestName returns the display name, the name, or nothing
func (u *User) BestName() string {
	info := u.Info()
	if info.DisplayName != "" {
		return info.DisplayName
	}
	return info.Name
}

// MatchesName reports whether any of the profile names contains s, ignoring
// case.
func (u *User) MatchesName(s string) bool {
	info := u.Info()
	s = strings.ToLower(s)
	for _, name := range []string{info.Name, info.DisplayName, info.NIP05, info.LUD16} {
		if name != "" && strings.Contains(strings.ToLower(name), s) {
			return true
		}
	}
	return false
}

// UpdateContactList stores a strictly newer kind 3 event with at least one tag
func (u *User) UpdateContactList(evt *event.Event) bool {
	if len(evt.Tags) == 0 {
		return false
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if u.contactList != nil && evt.CreatedAt <= u.contactList.CreatedAt {
		return false
	}
	u.contactList = evt
	return true
}

func (u *User) ContactList() *event.Event {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.contactList
}

// Follows returns the entries of the current contact list
func (u *User) Follows() []nip02.Follow {
	list := u.ContactList()
	if list == nil {
		return nil
	}
	return nip02.Follows(list)
}

func (u *User) IsFollowing(pubkey string) bool {
	list := u.ContactList()
	return list != nil && nip02.IsFollowing(list, pubkey)
}

// ClearContactList drops the contact list and reports whether there was one
func (u *User) ClearContactList() bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	had := u.contactList != nil
	u.contactList = nil
	return had
}

// AddRelayUsage counts an event seen from this user on relay
func (u *User) AddRelayUsage(relay string, createdAt int64) {
	if relay == "" {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.relays == nil {
		u.relays = make(map[string]RelayUsage)
	}
	usage := u.relays[relay]
	usage.Count++
	if createdAt > usage.LastEvent {
		usage.LastEvent = createdAt
	}
	u.relays[relay] = usage
}

func (u *User) RelayUsage() map[string]RelayUsage {
	u.mu.Lock()
	defer u.mu.Unlock()
	return maps.Clone(u.relays)
}

// AddZap registers a zap received by the user
func (u *User) AddZap(request, receipt string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return putPair(&u.zaps, request, receipt)
}

func (u *User) RemoveZap(key string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return dropPair(u.zaps, key)
}

func (u *User) Zaps() map[string]string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return maps.Clone(u.zaps)
}

// AddReport registers a report about the user
func (u *User) AddReport(reporter, key string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.reports == nil {
		u.reports = make(map[string]map[string]struct{})
	}
	var added bool
	u.reports[reporter], added = addTo(u.reports[reporter], key)
	return added
}

func (u *User) RemoveReport(key string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	removed := false
	for reporter, set := range u.reports {
		if _, ok := set[key]; ok {
			delete(set, key)
			removed = true
			if len(set) == 0 {
				delete(u.reports, reporter)
			}
		}
	}
	return removed
}

// Reports returns report keys grouped by reporter
func (u *User) Reports() map[string][]string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return groupKeys(u.reports)
}

// Ref and Unref count the notes authored by the user
func (u *User) Ref() { u.refs.Add(1) }
func (u *User) Unref() { u.refs.Add(-1) }

func (u *User) Refs() int { return int(u.refs.Load()) }

// Observe marks the user as in use until the returned release is called
func (u *User) Observe() (release func()) {
	u.observers.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() { u.observers.Add(-1) })
	}
}

func (u *User) IsObserved() bool {
	return u.observers.Load() > 0
}

// IsPinned reports whether eviction must keep the user
func (u *User) IsPinned() bool {
	if u.IsObserved() || u.refs.Load() > 0 {
		return true
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.zaps) > 0 || len(u.reports) > 0
}
