package model

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/paul/notecache/pkg/event"
)

// Note is a node of the reference graph. It is keyed by an event id, or by
// an address for the note that tracks the latest version of an addressable
// event. Every cross reference is held as a key and resolved through the
// cache, never as a pointer.
type Note struct {
	key     string
	address *event.Address

	mu          sync.Mutex
	event       *event.Event
	relays      []string
	replyTo     []string
	replies     map[string]struct{}
	reactions   map[string]map[string]struct{}
	boosts      map[string]struct{}
	reports     map[string]map[string]struct{}
	zaps        map[string]string
	zapPayments map[string]string
	gatherers   map[GathererKey]struct{}
	host        string
	removed     bool

	observers atomic.Int32
}

// NewNote creates an empty note for an event id
func NewNote(id string) *Note {
	return &Note{key: id}
}

// NewAddressableNote creates an empty note for an address
func NewAddressableNote(addr event.Address) *Note {
	return &Note{key: addr.String(), address: &addr}
}

func (n *Note) Key() string { return n.key }

// Address returns the address of an addressable note
func (n *Note) Address() (event.Address, bool) {
	if n.address == nil {
		return event.Address{}, false
	}
	return *n.address, true
}

func (n *Note) IsAddressable() bool { return n.address != nil }

// Event returns the bound event, nil for a stub
func (n *Note) Event() *event.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.event
}

// ID returns the id of the bound event
func (n *Note) ID() string {
	if evt := n.Event(); evt != nil {
		return evt.ID
	}
	return ""
}

func (n *Note) Author() string {
	if evt := n.Event(); evt != nil {
		return evt.PubKey
	}
	if n.address != nil {
		return n.address.PubKey
	}
	return ""
}

func (n *Note) CreatedAt() int64 {
	if evt := n.Event(); evt != nil {
		return evt.CreatedAt
	}
	return 0
}

func (n *Note) Kind() int {
	if evt := n.Event(); evt != nil {
		return evt.Kind
	}
	return -1
}

// Bind attaches the event to a stub. It returns false when an event is
// already bound.
func (n *Note) Bind(evt *event.Event, replyTo []string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.event != nil {
		return false
	}
	n.event = evt
	n.replyTo = slices.Clone(replyTo)
	return true
}

// Replace binds evt when the note is a stub or evt is strictly newer than
// the bound event. It returns the reply-to keys of the replaced version so
// the caller can unregister them.
func (n *Note) Replace(evt *event.Event, replyTo []string) (old []string, ok bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.event != nil && evt.CreatedAt <= n.event.CreatedAt {
		return nil, false
	}
	old = n.replyTo
	n.event = evt
	n.replyTo = slices.Clone(replyTo)
	return old, true
}

// ReplyTo returns the keys of the notes this note refers to
func (n *Note) ReplyTo() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.replyTo)
}

// Retarget replaces the reply-to key from with to, used when the note's
// back-reference moved to another note.
func (n *Note) Retarget(from, to string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	i := slices.Index(n.replyTo, from)
	if i < 0 {
		return false
	}
	if slices.Contains(n.replyTo, to) {
		n.replyTo = slices.Delete(n.replyTo, i, i+1)
	} else {
		n.replyTo[i] = to
	}
	return true
}

// AddRelay records a relay the note was seen on and reports whether it is new
func (n *Note) AddRelay(relay string) bool {
	if relay == "" {
		return false
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	if slices.Contains(n.relays, relay) {
		return false
	}
	n.relays = append(n.relays, relay)
	return true
}

func (n *Note) HasRelay(relay string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Contains(n.relays, relay)
}

func (n *Note) Relays() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.relays)
}

// SetHost records the wrap that carried this note
func (n *Note) SetHost(key string) {
	n.mu.Lock()
	n.host = key
	n.mu.Unlock()
}

func (n *Note) Host() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.host
}

// AddGatherer records a channel or chatroom holding this note
func (n *Note) AddGatherer(g GathererKey) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.gatherers == nil {
		n.gatherers = make(map[GathererKey]struct{})
	}
	n.gatherers[g] = struct{}{}
}

func (n *Note) RemoveGatherer(g GathererKey) {
	n.mu.Lock()
	delete(n.gatherers, g)
	n.mu.Unlock()
}

func (n *Note) Gatherers() []GathererKey {
	n.mu.Lock()
	defer n.mu.Unlock()
	return mapKeys(n.gatherers)
}

// Detached is what a removed note was linked to
type Detached struct {
	Event     *event.Event
	ReplyTo   []string
	Gatherers []GathererKey
	Host      string
}

// Detach marks the note removed and hands back its outgoing links. A second
// call reports false.
func (n *Note) Detach() (Detached, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.removed {
		return Detached{}, false
	}
	n.removed = true
	d := Detached{
		Event:     n.event,
		ReplyTo:   n.replyTo,
		Gatherers: mapKeys(n.gatherers),
		Host:      n.host,
	}
	n.replyTo = nil
	n.gatherers = nil
	return d, true
}

func (n *Note) IsRemoved() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.removed
}

// Observe marks the note as in use until the returned release is called
func (n *Note) Observe() (release func()) {
	n.observers.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() { n.observers.Add(-1) })
	}
}

func (n *Note) IsObserved() bool {
	return n.observers.Load() > 0
}

// IsPinned reports whether the note must survive eviction: it is observed,
// linked in or out of the graph, or held by a gatherer.
func (n *Note) IsPinned() bool {
	if n.IsObserved() {
		return true
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.replyTo) > 0 || len(n.gatherers) > 0 || n.host != "" || n.hasChildrenLocked()
}

func mapKeys[K comparable, V any](m map[K]V) []K {
	if len(m) == 0 {
		return nil
	}
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
