package memory

import (
	"github.com/paul/notecache/pkg/storage"
	"github.com/puzpuzpuz/xsync/v3"
)

// Map is a concurrent storage.Store that never evicts. It backs entities
// that live for the lifetime of the cache: channels, chatroom lists and
// observer tables.
type Map[K comparable, V any] struct {
	m *xsync.MapOf[K, V]
}

var _ storage.Store[string, int] = (*Map[string, int])(nil)

// NewMap creates an empty never-evicting store
func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{m: xsync.NewMapOf[K, V]()}
}

func (s *Map[K, V]) Get(key K) (V, bool) {
	return s.m.Load(key)
}

func (s *Map[K, V]) GetOrCreate(key K, factory func() V) V {
	v, _ := s.m.LoadOrCompute(key, factory)
	return v
}

func (s *Map[K, V]) Remove(key K) (V, bool) {
	return s.m.LoadAndDelete(key)
}

func (s *Map[K, V]) Filter(pred func(K, V) bool) []V {
	var out []V
	s.m.Range(func(k K, v V) bool {
		if pred(k, v) {
			out = append(out, v)
		}
		return true
	})
	return out
}

func (s *Map[K, V]) ForEach(visit func(K, V) bool) {
	s.m.Range(visit)
}

func (s *Map[K, V]) Size() int {
	return s.m.Size()
}
