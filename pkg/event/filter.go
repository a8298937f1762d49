package event

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Filter selects cached events the way a NIP-01 subscription filter would.
// Tags holds the #x conditions keyed by tag name without the hash.
type Filter struct {
	IDs     []string            `json:"ids,omitempty"`
	Authors []string            `json:"authors,omitempty"`
	Kinds   []int               `json:"kinds,omitempty"`
	Tags    map[string][]string `json:"-"`
	Since   *int64              `json:"since,omitempty"`
	Until   *int64              `json:"until,omitempty"`
	Limit   *int                `json:"limit,omitempty"`
}

// UnmarshalJSON collects the generic #x tag conditions next to the known fields
func (f *Filter) UnmarshalJSON(data []byte) error {
	type Alias Filter
	aux := &struct{ *Alias }{Alias: (*Alias)(f)}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	for key, value := range m {
		if len(key) < 2 || key[0] != '#' {
			continue
		}
		var values []string
		if err := json.Unmarshal(value, &values); err != nil {
			return fmt.Errorf("invalid tag value for %s: %w", key, err)
		}
		if f.Tags == nil {
			f.Tags = make(map[string][]string)
		}
		f.Tags[key[1:]] = values
	}
	return nil
}

// Matches checks if the event matches the given filter. IDs and authors
// match by prefix.
func (e *Event) Matches(f *Filter) bool {
	if len(f.IDs) > 0 && !anyPrefix(e.ID, f.IDs) {
		return false
	}
	if len(f.Authors) > 0 && !anyPrefix(e.PubKey, f.Authors) {
		return false
	}
	if len(f.Kinds) > 0 && !slices.Contains(f.Kinds, e.Kind) {
		return false
	}
	if f.Since != nil && e.CreatedAt < *f.Since {
		return false
	}
	if f.Until != nil && e.CreatedAt > *f.Until {
		return false
	}
	for name, values := range f.Tags {
		found := false
		for _, value := range values {
			if e.HasTagValue(name, value) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func anyPrefix(target string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(target, p) {
			return true
		}
	}
	return false
}
