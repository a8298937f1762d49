package memory

import (
	"sort"
	"sync/atomic"

	"github.com/paul/notecache/pkg/storage"
	"github.com/puzpuzpuz/xsync/v3"
)

type entry[V any] struct {
	value   V
	touched atomic.Uint64
}

// Bounded is a concurrent storage.Store with a soft capacity. It never drops
// entries on its own: Evict removes the least recently touched unpinned
// entries until the store is back within capacity.
type Bounded[K comparable, V any] struct {
	m        *xsync.MapOf[K, *entry[V]]
	clock    atomic.Uint64
	capacity int
	pinned   func(V) bool
	onEvict  func(K, V)
}

var _ storage.Store[string, int] = (*Bounded[string, int])(nil)

// NewBounded creates a store holding about capacity entries after each Evict.
// A capacity of zero or less disables eviction. pinned may be nil.
func NewBounded[K comparable, V any](capacity int, pinned func(V) bool) *Bounded[K, V] {
	if pinned == nil {
		pinned = func(V) bool { return false }
	}
	return &Bounded[K, V]{
		m:        xsync.NewMapOf[K, *entry[V]](),
		capacity: capacity,
		pinned:   pinned,
	}
}

// OnEvict registers fn to run for every entry dropped by Evict
func (s *Bounded[K, V]) OnEvict(fn func(K, V)) {
	s.onEvict = fn
}

func (s *Bounded[K, V]) touch(e *entry[V]) {
	e.touched.Store(s.clock.Add(1))
}

func (s *Bounded[K, V]) Get(key K) (V, bool) {
	e, ok := s.m.Load(key)
	if !ok {
		var zero V
		return zero, false
	}
	s.touch(e)
	return e.value, true
}

func (s *Bounded[K, V]) GetOrCreate(key K, factory func() V) V {
	e, _ := s.m.LoadOrCompute(key, func() *entry[V] {
		return &entry[V]{value: factory()}
	})
	s.touch(e)
	return e.value
}

func (s *Bounded[K, V]) Remove(key K) (V, bool) {
	e, ok := s.m.LoadAndDelete(key)
	if !ok {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (s *Bounded[K, V]) Filter(pred func(K, V) bool) []V {
	var out []V
	s.m.Range(func(k K, e *entry[V]) bool {
		if pred(k, e.value) {
			out = append(out, e.value)
		}
		return true
	})
	return out
}

func (s *Bounded[K, V]) ForEach(visit func(K, V) bool) {
	s.m.Range(func(k K, e *entry[V]) bool {
		return visit(k, e.value)
	})
}

func (s *Bounded[K, V]) Size() int {
	return s.m.Size()
}

// Capacity returns the configured capacity
func (s *Bounded[K, V]) Capacity() int {
	return s.capacity
}

// Evict drops least recently touched entries that are not pinned until the
// size is within capacity, and returns how many were dropped. Pinned entries
// are never dropped, so the store may stay above capacity.
func (s *Bounded[K, V]) Evict() int {
	if s.capacity <= 0 {
		return 0
	}
	excess := s.m.Size() - s.capacity
	if excess <= 0 {
		return 0
	}

	type candidate struct {
		key     K
		entry   *entry[V]
		touched uint64
	}
	var candidates []candidate
	s.m.Range(func(k K, e *entry[V]) bool {
		if !s.pinned(e.value) {
			candidates = append(candidates, candidate{key: k, entry: e, touched: e.touched.Load()})
		}
		return true
	})
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].touched < candidates[j].touched
	})

	evicted := 0
	for _, c := range candidates {
		if evicted >= excess {
			break
		}
		removed := false
		s.m.Compute(c.key, func(current *entry[V], loaded bool) (*entry[V], bool) {
			// the entry may have been replaced, touched or pinned since the snapshot
			if !loaded || current != c.entry || current.touched.Load() != c.touched || s.pinned(current.value) {
				return current, !loaded
			}
			removed = true
			return nil, true
		})
		if removed {
			evicted++
			if s.onEvict != nil {
				s.onEvict(c.key, c.entry.value)
			}
		}
	}
	return evicted
}
