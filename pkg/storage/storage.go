package storage

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("entity not found")

// Store defines the keyed entity store the cache is built on.
// Implementations must be safe for concurrent use.
type Store[K comparable, V any] interface {
	// Get returns the entity for key without creating it
	Get(key K) (V, bool)

	// GetOrCreate returns the entity for key, creating it with factory when
	// absent. Concurrent callers for the same key all receive the first
	// committed instance.
	GetOrCreate(key K, factory func() V) V

	// Remove deletes the entity and returns it
	Remove(key K) (V, bool)

	// Filter returns a snapshot of the entities matching pred
	Filter(pred func(K, V) bool) []V

	// ForEach visits every entity until visit returns false
	ForEach(visit func(K, V) bool)

	// Size returns the number of stored entities
	Size() int
}

// Lookup is Get with ErrNotFound for absent keys
func Lookup[K comparable, V any](s Store[K, V], key K) (V, error) {
	v, ok := s.Get(key)
	if !ok {
		return v, fmt.Errorf("%v: %w", key, ErrNotFound)
	}
	return v, nil
}
