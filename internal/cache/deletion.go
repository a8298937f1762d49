package cache

import (
	"github.com/paul/notecache/internal/model"
	"github.com/paul/notecache/pkg/event"
	"github.com/paul/notecache/pkg/nips/nip09"
	"github.com/paul/notecache/pkg/nips/nip62"
)

// consumeDeletion binds a kind 5 event, records its claims and tears down
// every cached event it covers.
func (c *Cache) consumeDeletion(in incoming) bool {
	n, ok := c.consumeRegular(in, false, nil)
	if !ok {
		return false
	}
	c.deletions.Add(in.evt)
	c.deletions.AddRelay(in.evt.ID, in.relay)
	removed := c.applyDeletion(in.evt, n.Key())

	c.logger.Debug("processed deletion",
		"event_id", in.evt.ID,
		"pubkey", in.evt.PubKey,
		"removed", removed,
	)
	return true
}

// covers reports whether deletion may remove evt: same author and not newer
func covers(deletion, evt *event.Event) bool {
	return evt != nil && evt.PubKey == deletion.PubKey && evt.CreatedAt <= deletion.CreatedAt
}

func (c *Cache) applyDeletion(deletion *event.Event, self string) int {
	removed := 0
	remove := func(n *model.Note) {
		if n.Key() != self && c.removeNote(n, reasonDeleted) {
			removed++
		}
	}

	for _, id := range nip09.DeletedIDs(deletion) {
		n, ok := c.notes.Get(id)
		if !ok {
			continue
		}
		target := n.Event()
		if !covers(deletion, target) {
			continue
		}
		if addr, ok := target.Address(); ok {
			if an, ok := c.addressables.Get(addr.String()); ok && covers(deletion, an.Event()) {
				remove(an)
			}
		}
		remove(n)
	}

	addrs := nip09.DeletedAddresses(deletion)
	if len(addrs) == 0 {
		return removed
	}

	deleted := make(map[string]struct{}, len(addrs))
	for _, addr := range addrs {
		key := addr.String()
		deleted[key] = struct{}{}

		if an, ok := c.addressables.Get(key); ok && covers(deletion, an.Event()) {
			remove(an)
		}
		for _, id := range c.versions.Of(key) {
			if n, ok := c.notes.Get(id); ok && covers(deletion, n.Event()) {
				remove(n)
			}
		}
	}

	// versions bound before the index saw them are still found by a scan
	stale := c.notes.Filter(func(_ string, n *model.Note) bool {
		evt := n.Event()
		if !covers(deletion, evt) {
			return false
		}
		addr, ok := evt.Address()
		if !ok {
			return false
		}
		_, hit := deleted[addr.String()]
		return hit
	})
	for _, n := range stale {
		remove(n)
	}
	return removed
}

// consumeVanish binds a request to vanish and removes everything its author
// published up to the request.
func (c *Cache) consumeVanish(in incoming) bool {
	n, ok := c.consumeRegular(in, false, nil)
	if !ok {
		return false
	}
	request := in.evt
	c.deletions.AddVanish(request)
	c.deletions.AddRelay(request.ID, in.relay)

	match := func(_ string, note *model.Note) bool {
		return note.Key() != n.Key() && covers(request, note.Event())
	}
	victims := append(c.notes.Filter(match), c.addressables.Filter(match)...)
	removed := c.sweep(victims, reasonVanished)

	c.logger.Info("processed request to vanish",
		"pubkey", request.PubKey,
		"global", nip62.IsGlobal(request),
		"relays", nip62.RelayTags(request),
		"removed", removed,
	)
	return true
}
