package cache

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/paul/notecache/internal/model"
	"github.com/paul/notecache/pkg/event"
)

type observerKey struct {
	byAuthor bool
	kind     int
	key      string
}

// Latest follows the newest cached event of one kind that either tags an
// event id or is written by an author.
type Latest struct {
	key         observerKey
	subscribers atomic.Int32

	mu      sync.Mutex
	current *event.Event
	changed chan struct{}

	ready     chan struct{}
	readyOnce sync.Once
}

func newLatest(key observerKey) *Latest {
	return &Latest{
		key:     key,
		changed: make(chan struct{}),
		ready:   make(chan struct{}),
	}
}

func (l *Latest) matches(evt *event.Event) bool {
	if evt.Kind != l.key.kind {
		return false
	}
	if l.key.byAuthor {
		return evt.PubKey == l.key.key
	}
	return evt.HasTagValue("e", l.key.key)
}

// Event returns the newest matching event, nil when none is cached
func (l *Latest) Event() *event.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// Changed is closed on the next change of Event
func (l *Latest) Changed() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.changed
}

// Ready is closed once the initial scan of the cache finished
func (l *Latest) Ready() <-chan struct{} {
	return l.ready
}

// Release ends one subscription. Handles without subscribers are dropped by
// PruneObservers.
func (l *Latest) Release() {
	l.subscribers.Add(-1)
}

func (l *Latest) notifyLocked() {
	close(l.changed)
	l.changed = make(chan struct{})
}

func (l *Latest) offer(evt *event.Event) bool {
	if !l.matches(evt) {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current != nil && evt.CreatedAt <= l.current.CreatedAt {
		return false
	}
	l.current = evt
	l.notifyLocked()
	return true
}

func (l *Latest) reset(evt *event.Event) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current == nil || l.current.ID != evt.ID {
		return false
	}
	l.current = nil
	l.notifyLocked()
	return true
}

// ObserveNote marks the note as in use, which keeps it from being pruned or
// evicted, until release is called.
func (c *Cache) ObserveNote(key string) (release func(), err error) {
	n, ok := c.getOrCreateByKey(key)
	if !ok {
		return nil, fmt.Errorf("observe %q: %w", key, ErrInvalidKey)
	}
	return n.Observe(), nil
}

// ObserveUser marks the user as in use until release is called
func (c *Cache) ObserveUser(pubkey string) (release func(), err error) {
	if !validID(pubkey) {
		return nil, fmt.Errorf("observe %q: %w", pubkey, ErrInvalidKey)
	}
	return c.getOrCreateUser(pubkey).Observe(), nil
}

// LatestByETag returns the handle following the newest event of kind that
// tags id. The first subscriber triggers a scan on the worker pool.
func (c *Cache) LatestByETag(kind int, id string) (*Latest, error) {
	if !validID(id) {
		return nil, fmt.Errorf("latest by e tag %q: %w", id, ErrInvalidKey)
	}
	return c.latest(observerKey{kind: kind, key: id}), nil
}

// LatestByAuthor returns the handle following the newest event of kind
// written by pubkey.
func (c *Cache) LatestByAuthor(kind int, pubkey string) (*Latest, error) {
	if !validID(pubkey) {
		return nil, fmt.Errorf("latest by author %q: %w", pubkey, ErrInvalidKey)
	}
	return c.latest(observerKey{byAuthor: true, kind: kind, key: pubkey}), nil
}

func (c *Cache) latest(key observerKey) *Latest {
	created := false
	l, _ := c.observers.Compute(key, func(current *Latest, loaded bool) (*Latest, bool) {
		if !loaded {
			current = newLatest(key)
			created = true
		}
		current.subscribers.Add(1)
		return current, false
	})
	if created {
		c.scan(l)
	}
	return l
}

// scan offers every cached event to the handle on the worker pool. Observers
// may be created from pool tasks, so a saturated pool runs the scan inline.
func (c *Cache) scan(l *Latest) {
	run := func() error {
		visit := func(_ string, n *model.Note) bool {
			if evt := n.Event(); evt != nil {
				l.offer(evt)
			}
			return true
		}
		c.notes.ForEach(visit)
		c.addressables.ForEach(visit)
		l.readyOnce.Do(func() { close(l.ready) })
		return nil
	}
	if _, err := c.pool.GoOrRun(run); err != nil {
		_ = run()
	}
}

func (c *Cache) observerKeysFor(evt *event.Event) []observerKey {
	keys := []observerKey{{byAuthor: true, kind: evt.Kind, key: evt.PubKey}}
	for _, id := range evt.TagValues("e") {
		keys = append(keys, observerKey{kind: evt.Kind, key: id})
	}
	return keys
}

func (c *Cache) offerObservers(evt *event.Event) {
	for _, key := range c.observerKeysFor(evt) {
		if l, ok := c.observers.Load(key); ok {
			l.offer(evt)
		}
	}
}

// resetObservers drops a removed event from the handles showing it and
// rescans for the next newest one.
func (c *Cache) resetObservers(evt *event.Event) {
	for _, key := range c.observerKeysFor(evt) {
		if l, ok := c.observers.Load(key); ok && l.reset(evt) {
			c.scan(l)
		}
	}
}

// PruneObservers drops the handles nobody subscribes to anymore
func (c *Cache) PruneObservers() int {
	var idle []observerKey
	c.observers.Range(func(key observerKey, l *Latest) bool {
		if l.subscribers.Load() <= 0 {
			idle = append(idle, key)
		}
		return true
	})

	dropped := 0
	for _, key := range idle {
		c.observers.Compute(key, func(current *Latest, loaded bool) (*Latest, bool) {
			if !loaded {
				return current, true
			}
			if current.subscribers.Load() > 0 {
				return current, false
			}
			dropped++
			return nil, true
		})
	}
	return dropped
}

// Observers returns the number of live observer handles
func (c *Cache) Observers() int {
	return c.observers.Size()
}
