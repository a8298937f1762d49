package deletion

import (
	"github.com/paul/notecache/pkg/event"
	"github.com/paul/notecache/pkg/nips/nip09"
	"github.com/puzpuzpuz/xsync/v3"
)

// claim scopes a deleted reference to the author allowed to delete it
type claim struct {
	ref    string
	pubkey string
}

// carrier pairs a request with a relay known to hold it
type carrier struct {
	id    string
	relay string
}

// Index remembers deletion requests so that deleted events are refused when
// they arrive again, possibly from another relay.
type Index struct {
	claims   *xsync.MapOf[claim, *event.Event]
	vanish   *xsync.MapOf[string, *event.Event]
	carriers *xsync.MapOf[carrier, struct{}]
}

func NewIndex() *Index {
	return &Index{
		claims:   xsync.NewMapOf[claim, *event.Event](),
		vanish:   xsync.NewMapOf[string, *event.Event](),
		carriers: xsync.NewMapOf[carrier, struct{}](),
	}
}

// Add records the ids and addresses a deletion event claims. Only the newest
// deletion is kept per reference. It reports whether anything changed.
func (idx *Index) Add(deletion *event.Event) bool {
	if deletion.Kind != nip09.KindDeletion {
		return false
	}

	changed := false
	for _, id := range nip09.DeletedIDs(deletion) {
		changed = idx.put(claim{ref: id, pubkey: deletion.PubKey}, deletion) || changed
	}
	for _, addr := range nip09.DeletedAddresses(deletion) {
		changed = idx.put(claim{ref: addr.String(), pubkey: deletion.PubKey}, deletion) || changed
	}
	return changed
}

func (idx *Index) put(c claim, deletion *event.Event) bool {
	stored := false
	idx.claims.Compute(c, func(current *event.Event, loaded bool) (*event.Event, bool) {
		if loaded && current.CreatedAt >= deletion.CreatedAt {
			return current, false
		}
		stored = true
		return deletion, false
	})
	return stored
}

// AddVanish records a request to vanish: every event of its author up to the
// request time counts as deleted.
func (idx *Index) AddVanish(request *event.Event) bool {
	stored := false
	idx.vanish.Compute(request.PubKey, func(current *event.Event, loaded bool) (*event.Event, bool) {
		if loaded && current.CreatedAt >= request.CreatedAt {
			return current, false
		}
		stored = true
		return request, false
	})
	return stored
}

// DeletedBy returns the request that deletes evt. Claims cover events of
// the deletion's author that are not newer than the deletion.
func (idx *Index) DeletedBy(evt *event.Event) (*event.Event, bool) {
	if deletion, ok := idx.claims.Load(claim{ref: evt.ID, pubkey: evt.PubKey}); ok && evt.CreatedAt <= deletion.CreatedAt {
		return deletion, true
	}
	if addr, ok := evt.Address(); ok {
		deletion, ok := idx.claims.Load(claim{ref: addr.String(), pubkey: evt.PubKey})
		if ok && evt.CreatedAt <= deletion.CreatedAt {
			return deletion, true
		}
	}
	if request, ok := idx.vanish.Load(evt.PubKey); ok && evt.CreatedAt <= request.CreatedAt && evt.ID != request.ID {
		return request, true
	}
	return nil, false
}

// HasBeenDeleted reports whether a known request deletes evt
func (idx *Index) HasBeenDeleted(evt *event.Event) bool {
	_, ok := idx.DeletedBy(evt)
	return ok
}

// AddRelay records that relay holds the request with the given id. It
// reports whether the pair is new.
func (idx *Index) AddRelay(id, relay string) bool {
	if id == "" || relay == "" {
		return false
	}
	_, loaded := idx.carriers.LoadOrStore(carrier{id: id, relay: relay}, struct{}{})
	return !loaded
}

// Size returns the number of recorded claims
func (idx *Index) Size() int {
	return idx.claims.Size() + idx.vanish.Size()
}
