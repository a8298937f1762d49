package deletion

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// Versions maps an address to the ids of every version seen for it, so that
// an address deletion does not need to scan all notes.
type Versions struct {
	m *xsync.MapOf[string, map[string]struct{}]
}

func NewVersions() *Versions {
	return &Versions{m: xsync.NewMapOf[string, map[string]struct{}]()}
}

// Add records id as a version of address
func (v *Versions) Add(address, id string) {
	v.m.Compute(address, func(current map[string]struct{}, _ bool) (map[string]struct{}, bool) {
		next := make(map[string]struct{}, len(current)+1)
		for k := range current {
			next[k] = struct{}{}
		}
		next[id] = struct{}{}
		return next, false
	})
}

// Remove forgets one version
func (v *Versions) Remove(address, id string) {
	v.m.Compute(address, func(current map[string]struct{}, loaded bool) (map[string]struct{}, bool) {
		if !loaded {
			return nil, true
		}
		if _, ok := current[id]; !ok {
			return current, false
		}
		next := make(map[string]struct{}, len(current))
		for k := range current {
			if k != id {
				next[k] = struct{}{}
			}
		}
		return next, len(next) == 0
	})
}

// Of returns the known version ids of address
func (v *Versions) Of(address string) []string {
	current, ok := v.m.Load(address)
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(current))
	for id := range current {
		ids = append(ids, id)
	}
	return ids
}

// Size returns the number of tracked addresses
func (v *Versions) Size() int {
	return v.m.Size()
}
