package cache

import (
	"github.com/paul/notecache/internal/model"
	"github.com/paul/notecache/pkg/event"
	"github.com/paul/notecache/pkg/nips/nip28"
	"github.com/paul/notecache/pkg/nips/nip56"
	"github.com/paul/notecache/pkg/nips/nip57"
)

type linkKind int

const (
	linkReply linkKind = iota
	linkBoost
	linkReaction
	linkReport
	linkZapRequest
	linkZap
	linkPayment
)

// link is an edge from a child note to the note it refers to. detail holds
// the reaction content, or the request id of a zap or payment.
type link struct {
	kind   linkKind
	target string
	detail string
}

type linker func(evt *event.Event) []link

func linkKeys(links []link) []string {
	seen := make(map[string]struct{}, len(links))
	keys := make([]string, 0, len(links))
	for _, l := range links {
		if _, ok := seen[l.target]; ok {
			continue
		}
		seen[l.target] = struct{}{}
		keys = append(keys, l.target)
	}
	return keys
}

func idLinks(kind linkKind, detail string, ids []string, addrs []event.Address) []link {
	links := make([]link, 0, len(ids)+len(addrs))
	for _, id := range ids {
		if validID(id) {
			links = append(links, link{kind: kind, target: id, detail: detail})
		}
	}
	for _, addr := range addrs {
		links = append(links, link{kind: kind, target: addr.String(), detail: detail})
	}
	return links
}

// link registers child on the target of l, creating a stub target when the
// target has not been seen yet.
func (c *Cache) link(child *model.Note, author string, l link) {
	target, ok := c.getOrCreateByKey(l.target)
	if !ok {
		return
	}
	key := child.Key()
	switch l.kind {
	case linkReply:
		target.AddReply(key)
	case linkBoost:
		target.AddBoost(key)
	case linkReaction:
		target.AddReaction(l.detail, key)
	case linkReport:
		target.AddReport(author, key)
	case linkZapRequest:
		target.AddZap(key, "")
	case linkZap:
		target.AddZap(l.detail, key)
	case linkPayment:
		target.AddZapPayment(l.detail, key)
	}
}

// moveReferences hands every back-reference of from over to to and points
// the children at their new target.
func (c *Cache) moveReferences(from, to *model.Note) {
	refs := from.TakeReferences()
	to.MergeReferences(refs)
	for _, key := range refs.Keys() {
		if child, ok := c.lookupNote(key); ok {
			child.Retarget(from.Key(), to.Key())
		}
	}
}

const (
	reasonDeleted    = "deleted"
	reasonVanished   = "vanished"
	reasonExpired    = "expired"
	reasonHidden     = "hidden"
	reasonSuperseded = "superseded"
	reasonPruned     = "pruned"
	reasonOverflow   = "overflow"
	reasonWrap       = "wrap"
)

// removeNote tears a note out of the graph: its links to targets, users and
// gatherers, the wrap that carried it, its store entry and its observers.
// Children of the note are left to the caller. It reports false when the
// note was already removed.
func (c *Cache) removeNote(n *model.Note, reason string) bool {
	d, ok := n.Detach()
	if !ok {
		return false
	}
	key := n.Key()

	for _, target := range d.ReplyTo {
		if t, ok := c.lookupNote(target); ok {
			t.RemoveChild(key)
		}
	}

	if evt := d.Event; evt != nil {
		switch evt.Kind {
		case nip56.KindReport:
			for _, pk := range nip56.ReportedPubKeys(evt) {
				if u, ok := c.users.Get(pk); ok {
					u.RemoveReport(key)
				}
			}
		case nip57.KindZap, nip57.KindZapRequest:
			for _, pk := range nip57.ZappedAuthors(evt) {
				if u, ok := c.users.Get(pk); ok {
					u.RemoveZap(key)
				}
			}
		}
		if !n.IsAddressable() {
			if u, ok := c.users.Get(evt.PubKey); ok {
				u.Unref()
			}
			if addr, ok := evt.Address(); ok {
				c.versions.Remove(addr.String(), evt.ID)
			}
		}
	}

	for _, g := range d.Gatherers {
		c.ungather(g, key)
	}

	if d.Host != "" {
		if host, ok := c.notes.Get(d.Host); ok {
			c.removeNote(host, reasonWrap)
		}
	}

	if n.IsAddressable() {
		c.addressables.Remove(key)
	} else {
		c.notes.Remove(key)
	}

	if d.Event != nil {
		c.resetObservers(d.Event)
	}
	c.bundler.NoteRemoved(n)
	c.metrics.Removed.WithLabelValues(reason).Inc()
	return true
}

// sweep removes the victims and then every child that referred to them
func (c *Cache) sweep(victims []*model.Note, reason string) int {
	removed := 0
	var children []string
	for _, v := range victims {
		if c.removeNote(v, reason) {
			removed++
		}
		children = append(children, v.TakeChildren()...)
	}
	for _, key := range children {
		if child, ok := c.lookupNote(key); ok && c.removeNote(child, reason) {
			removed++
		}
	}
	return removed
}

func (c *Cache) removeKeys(keys []string, reason string) int {
	victims := make([]*model.Note, 0, len(keys))
	for _, key := range keys {
		if n, ok := c.lookupNote(key); ok {
			victims = append(victims, n)
		}
	}
	return c.sweep(victims, reason)
}

// gatherer resolves a gatherer key to the channel holding the note
func (c *Cache) gatherer(g model.GathererKey) (model.Channel, bool) {
	switch g.Kind {
	case model.GatherPublicChat:
		if ch, ok := c.publicChats.Get(g.ID); ok {
			return ch, true
		}
	case model.GatherEphemeralChat:
		if ch, ok := c.ephemeralChats.Get(nip28.RoomID{ID: g.ID, Relay: g.Scope}); ok {
			return ch, true
		}
	case model.GatherLiveActivity:
		if ch, ok := c.liveActivities.Get(g.ID); ok {
			return ch, true
		}
	}
	return nil, false
}

func (c *Cache) ungather(g model.GathererKey, key string) {
	if g.Kind == model.GatherChatroom {
		if list, ok := c.chatrooms.Get(g.ID); ok {
			if room, ok := list.Room(model.ChatroomKey(g.Scope)); ok {
				room.RemoveMessage(key)
			}
		}
		return
	}
	if ch, ok := c.gatherer(g); ok {
		ch.RemoveNote(key)
	}
}

func (c *Cache) gather(n *model.Note, ch model.Channel) {
	evt := n.Event()
	if evt == nil {
		return
	}
	if ch.AddNote(n.Key(), evt.PubKey, evt.CreatedAt) {
		n.AddGatherer(ch.Key())
	}
}

// fileChatroom indexes a private message into the chatroom list of every
// participant.
func (c *Cache) fileChatroom(n *model.Note, participants []string) {
	evt := n.Event()
	if evt == nil {
		return
	}
	seen := make(map[string]struct{}, len(participants))
	for _, owner := range participants {
		if _, ok := seen[owner]; ok || !validID(owner) {
			continue
		}
		seen[owner] = struct{}{}

		list := c.chatrooms.GetOrCreate(owner, func() *model.ChatroomList { return model.NewChatroomList(owner) })
		g, _ := list.Add(participants, n.Key(), evt.CreatedAt)
		n.AddGatherer(g)
	}
}
