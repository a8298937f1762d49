package model

import "maps"

// The target side of the graph: children register themselves on the notes
// they refer to.

func addTo(set map[string]struct{}, key string) (map[string]struct{}, bool) {
	if set == nil {
		set = make(map[string]struct{})
	}
	if _, ok := set[key]; ok {
		return set, false
	}
	set[key] = struct{}{}
	return set, true
}

func (n *Note) AddReply(key string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	var added bool
	n.replies, added = addTo(n.replies, key)
	return added
}

func (n *Note) AddBoost(key string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	var added bool
	n.boosts, added = addTo(n.boosts, key)
	return added
}

// AddReaction groups the reaction under its content
func (n *Note) AddReaction(content, key string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.reactions == nil {
		n.reactions = make(map[string]map[string]struct{})
	}
	var added bool
	n.reactions[content], added = addTo(n.reactions[content], key)
	return added
}

// AddReport groups the report under its author
func (n *Note) AddReport(reporter, key string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.reports == nil {
		n.reports = make(map[string]map[string]struct{})
	}
	var added bool
	n.reports[reporter], added = addTo(n.reports[reporter], key)
	return added
}

// AddZap links a zap request to its receipt. An empty receipt registers the
// request alone and never overwrites a known receipt.
func (n *Note) AddZap(request, receipt string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return putPair(&n.zaps, request, receipt)
}

// AddZapPayment links a wallet payment request to its response
func (n *Note) AddZapPayment(request, response string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return putPair(&n.zapPayments, request, response)
}

func putPair(m *map[string]string, key, value string) bool {
	if *m == nil {
		*m = make(map[string]string)
	}
	current, ok := (*m)[key]
	if ok && (value == "" || current == value) {
		return false
	}
	(*m)[key] = value
	return true
}

// RemoveChild drops key from every back-reference collection
func (n *Note) RemoveChild(key string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	removed := false
	if _, ok := n.replies[key]; ok {
		delete(n.replies, key)
		removed = true
	}
	if _, ok := n.boosts[key]; ok {
		delete(n.boosts, key)
		removed = true
	}
	for content, set := range n.reactions {
		if _, ok := set[key]; ok {
			delete(set, key)
			removed = true
			if len(set) == 0 {
				delete(n.reactions, content)
			}
		}
	}
	for reporter, set := range n.reports {
		if _, ok := set[key]; ok {
			delete(set, key)
			removed = true
			if len(set) == 0 {
				delete(n.reports, reporter)
			}
		}
	}
	removed = dropPair(n.zaps, key) || removed
	removed = dropPair(n.zapPayments, key) || removed
	return removed
}

func dropPair(m map[string]string, key string) bool {
	removed := false
	if _, ok := m[key]; ok {
		delete(m, key)
		removed = true
	}
	for k, v := range m {
		if v == key {
			delete(m, k)
			removed = true
		}
	}
	return removed
}

func (n *Note) Replies() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return mapKeys(n.replies)
}

func (n *Note) Boosts() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return mapKeys(n.boosts)
}

// Reactions returns reaction keys grouped by content
func (n *Note) Reactions() map[string][]string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return groupKeys(n.reactions)
}

// Reports returns report keys grouped by reporter
func (n *Note) Reports() map[string][]string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return groupKeys(n.reports)
}

// Zaps returns zap receipts by request, empty when only the request is known
func (n *Note) Zaps() map[string]string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return maps.Clone(n.zaps)
}

func (n *Note) ZapPayments() map[string]string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return maps.Clone(n.zapPayments)
}

func groupKeys(m map[string]map[string]struct{}) map[string][]string {
	out := make(map[string][]string, len(m))
	for group, set := range m {
		out[group] = mapKeys(set)
	}
	return out
}

func (n *Note) HasChildren() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.hasChildrenLocked()
}

func (n *Note) hasChildrenLocked() bool {
	return len(n.replies) > 0 || len(n.boosts) > 0 || len(n.reactions) > 0 ||
		len(n.reports) > 0 || len(n.zaps) > 0 || len(n.zapPayments) > 0
}

// References is a detached copy of a note's back-references
type References struct {
	Replies     map[string]struct{}
	Boosts      map[string]struct{}
	Reactions   map[string]map[string]struct{}
	Reports     map[string]map[string]struct{}
	Zaps        map[string]string
	ZapPayments map[string]string
}

// Keys lists every child key in the references
func (r References) Keys() []string {
	seen := make(map[string]struct{})
	for k := range r.Replies {
		seen[k] = struct{}{}
	}
	for k := range r.Boosts {
		seen[k] = struct{}{}
	}
	for _, set := range r.Reactions {
		for k := range set {
			seen[k] = struct{}{}
		}
	}
	for _, set := range r.Reports {
		for k := range set {
			seen[k] = struct{}{}
		}
	}
	for _, m := range []map[string]string{r.Zaps, r.ZapPayments} {
		for req, resp := range m {
			seen[req] = struct{}{}
			if resp != "" {
				seen[resp] = struct{}{}
			}
		}
	}
	return mapKeys(seen)
}

// TakeReferences moves every back-reference out of the note
func (n *Note) TakeReferences() References {
	n.mu.Lock()
	defer n.mu.Unlock()

	refs := References{
		Replies:     n.replies,
		Boosts:      n.boosts,
		Reactions:   n.reactions,
		Reports:     n.reports,
		Zaps:        n.zaps,
		ZapPayments: n.zapPayments,
	}
	n.replies, n.boosts, n.reactions, n.reports = nil, nil, nil, nil
	n.zaps, n.zapPayments = nil, nil
	return refs
}

// MergeReferences adds refs to the note's own back-references
func (n *Note) MergeReferences(refs References) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for k := range refs.Replies {
		n.replies, _ = addTo(n.replies, k)
	}
	for k := range refs.Boosts {
		n.boosts, _ = addTo(n.boosts, k)
	}
	for content, set := range refs.Reactions {
		if n.reactions == nil {
			n.reactions = make(map[string]map[string]struct{})
		}
		for k := range set {
			n.reactions[content], _ = addTo(n.reactions[content], k)
		}
	}
	for reporter, set := range refs.Reports {
		if n.reports == nil {
			n.reports = make(map[string]map[string]struct{})
		}
		for k := range set {
			n.reports[reporter], _ = addTo(n.reports[reporter], k)
		}
	}
	for req, receipt := range refs.Zaps {
		putPair(&n.zaps, req, receipt)
	}
	for req, resp := range refs.ZapPayments {
		putPair(&n.zapPayments, req, resp)
	}
}

// TakeChildren empties the back-reference collections and returns the keys
// that were in them.
func (n *Note) TakeChildren() []string {
	return n.TakeReferences().Keys()
}
