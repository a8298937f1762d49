package nip50

import (
	"strconv"
	"strings"

	"github.com/paul/notecache/pkg/event"
)

// Query is a parsed search string: every term must appear, no exclusion may
// appear, and each key:value extension must hold.
type Query struct {
	Terms      []string
	Exclusions []string
	Extensions map[string]string
}

// Parse splits a search string into terms, -exclusions and key:value extensions
func Parse(query string) *Query {
	q := &Query{Extensions: make(map[string]string)}

	for _, word := range strings.Fields(query) {
		word = strings.ToLower(word)

		if strings.HasPrefix(word, "-") {
			if exclusion := word[1:]; exclusion != "" {
				q.Exclusions = append(q.Exclusions, exclusion)
			}
			continue
		}

		if key, value, ok := strings.Cut(word, ":"); ok && key != "" && value != "" {
			q.Extensions[key] = value
			continue
		}

		q.Terms = append(q.Terms, word)
	}
	return q
}

// IsEmpty reports whether the query places no condition at all
func (q *Query) IsEmpty() bool {
	return len(q.Terms) == 0 && len(q.Exclusions) == 0 && len(q.Extensions) == 0
}

// Matches checks an event against the query
func (q *Query) Matches(evt *event.Event) bool {
	for _, term := range q.Terms {
		if !containsTerm(evt, term) {
			return false
		}
	}
	for _, exclusion := range q.Exclusions {
		if containsTerm(evt, exclusion) {
			return false
		}
	}
	for key, value := range q.Extensions {
		if !matchesExtension(evt, key, value) {
			return false
		}
	}
	return true
}

// containsTerm looks for the term in content and tag values, case-insensitive
func containsTerm(evt *event.Event, term string) bool {
	if strings.Contains(strings.ToLower(evt.Content), term) {
		return true
	}
	for _, tag := range evt.Tags {
		if len(tag) >= 2 && strings.Contains(strings.ToLower(tag[1]), term) {
			return true
		}
	}
	return false
}

func matchesExtension(evt *event.Event, key, value string) bool {
	switch key {
	case "language":
		for _, tag := range evt.Tags {
			if len(tag) >= 2 && (tag[0] == "language" || tag[0] == "l") && strings.EqualFold(tag[1], value) {
				return true
			}
		}
		return false

	case "nsfw":
		_, warned := evt.FirstTag("content-warning")
		switch value {
		case "true":
			return warned
		case "false":
			return !warned
		}
		return true

	case "kind":
		return value == strconv.Itoa(evt.Kind)

	default:
		// unknown extensions are ignored
		return true
	}
}
