package cache

import (
	"context"
	"time"

	"github.com/paul/notecache/internal/model"
	"github.com/paul/notecache/pkg/event"
	"github.com/paul/notecache/pkg/nips/nip10"
	"github.com/paul/notecache/pkg/nips/nip18"
	"github.com/paul/notecache/pkg/nips/nip25"
	"github.com/paul/notecache/pkg/nips/nip28"
	"github.com/paul/notecache/pkg/nips/nip40"
	"github.com/paul/notecache/pkg/nips/nip56"
	"github.com/paul/notecache/pkg/nips/nip57"
)

// PruneExpiredEvents removes notes whose NIP-40 expiration passed
func (c *Cache) PruneExpiredEvents(now int64) int {
	expired := func(_ string, n *model.Note) bool {
		evt := n.Event()
		return evt != nil && nip40.IsExpired(evt, now)
	}
	victims := append(c.notes.Filter(expired), c.addressables.Filter(expired)...)
	removed := c.sweep(victims, reasonExpired)
	c.logSweep("expired events", removed)
	return removed
}

// PruneHiddenEvents removes notes by hidden users. Logged in accounts are
// never pruned.
func (c *Cache) PruneHiddenEvents(hidden []string) int {
	hiddenSet := toSet(hidden)
	for _, account := range c.policy.LoggedIn() {
		delete(hiddenSet, account)
	}
	if len(hiddenSet) == 0 {
		return 0
	}

	byHidden := func(_ string, n *model.Note) bool {
		evt := n.Event()
		if evt == nil {
			return false
		}
		_, ok := hiddenSet[evt.PubKey]
		return ok
	}
	victims := append(c.notes.Filter(byHidden), c.addressables.Filter(byHidden)...)
	removed := c.sweep(victims, reasonHidden)
	c.logSweep("hidden events", removed)
	return removed
}

// PrunePastVersionsOfReplaceables removes versions older than the one bound
// to their address, after moving their references to the address.
func (c *Cache) PrunePastVersionsOfReplaceables() int {
	type past struct {
		version *model.Note
		latest  *model.Note
	}
	var victims []past
	c.notes.ForEach(func(_ string, n *model.Note) bool {
		evt := n.Event()
		if evt == nil {
			return true
		}
		addr, ok := evt.Address()
		if !ok {
			return true
		}
		latest, ok := c.addressables.Get(addr.String())
		if !ok {
			return true
		}
		if current := latest.Event(); current != nil && evt.CreatedAt < current.CreatedAt {
			victims = append(victims, past{version: n, latest: latest})
		}
		return true
	})

	removed := 0
	for _, v := range victims {
		c.moveReferences(v.version, v.latest)
		if c.removeNote(v.version, reasonSuperseded) {
			removed++
		}
	}
	c.logSweep("past versions", removed)
	return removed
}

func isPrunableReaction(evt *event.Event) bool {
	switch evt.Kind {
	case event.KindTextNote:
		return !nip10.IsNewThread(evt)
	case nip25.KindReaction, nip57.KindZap, nip57.KindZapRequest, nip56.KindReport, nip18.KindGenericRepost:
		return true
	}
	return false
}

// PruneRepliesAndReactions removes replies and reactions nobody looks at:
// neither they nor their targets are observed, and they are not written by
// or addressed to an account.
func (c *Cache) PruneRepliesAndReactions(accounts []string) int {
	accountSet := toSet(accounts)

	victims := c.notes.Filter(func(_ string, n *model.Note) bool {
		evt := n.Event()
		if evt == nil || !isPrunableReaction(evt) || n.IsObserved() {
			return false
		}
		if _, ok := accountSet[evt.PubKey]; ok {
			return false
		}
		if evt.IsTaggingAny(accountSet) {
			return false
		}
		for _, target := range n.ReplyTo() {
			if c.isObserved(target) {
				return false
			}
		}
		return true
	})

	removed := c.sweep(victims, reasonPruned)
	c.logSweep("replies and reactions", removed)
	return removed
}

func (c *Cache) channels() []model.Channel {
	var out []model.Channel
	c.publicChats.ForEach(func(_ string, ch *model.PublicChat) bool {
		out = append(out, ch)
		return true
	})
	c.ephemeralChats.ForEach(func(_ nip28.RoomID, ch *model.EphemeralChat) bool {
		out = append(out, ch)
		return true
	})
	c.liveActivities.ForEach(func(_ string, ch *model.LiveActivity) bool {
		out = append(out, ch)
		return true
	})
	return out
}

// PruneOldMessages caps every channel to its newest messages and keeps only
// the latest message of every chatroom. Observed messages are kept.
func (c *Cache) PruneOldMessages() int {
	limit := c.cfg.Cache.ChannelMessageLimit

	var keys []string
	for _, ch := range c.channels() {
		keys = append(keys, ch.Overflow(limit, c.isObserved)...)
	}
	c.chatrooms.ForEach(func(_ string, list *model.ChatroomList) bool {
		list.Rooms(func(_ model.ChatroomKey, room *model.Chatroom) bool {
			keys = append(keys, room.AllButLatest(c.isObserved)...)
			return true
		})
		return true
	})

	removed := c.removeKeys(keys, reasonOverflow)
	c.logSweep("old messages", removed)
	return removed
}

// PruneHiddenMessages removes channel messages written by hidden users
func (c *Cache) PruneHiddenMessages(hidden []string) int {
	hiddenSet := toSet(hidden)
	if len(hiddenSet) == 0 {
		return 0
	}

	var keys []string
	for _, ch := range c.channels() {
		keys = append(keys, ch.MessagesBy(hiddenSet)...)
	}
	removed := c.removeKeys(keys, reasonHidden)
	c.logSweep("hidden messages", removed)
	return removed
}

// PruneContactLists drops the contact lists of users that are neither
// logged in nor observed.
func (c *Cache) PruneContactLists(loggedIn []string) int {
	keep := toSet(loggedIn)
	dropped := 0
	c.users.ForEach(func(pubkey string, u *model.User) bool {
		if _, ok := keep[pubkey]; ok || u.IsObserved() {
			return true
		}
		if u.ClearContactList() {
			dropped++
		}
		return true
	})
	c.logSweep("contact lists", dropped)
	return dropped
}

// Evict shrinks the user, note and addressable stores to their capacity.
// Pinned entities are kept.
func (c *Cache) Evict() int {
	users := c.users.Evict()
	notes := c.notes.Evict()
	addressables := c.addressables.Evict()

	c.metrics.Evicted.WithLabelValues("users").Add(float64(users))
	c.metrics.Evicted.WithLabelValues("notes").Add(float64(notes))
	c.metrics.Evicted.WithLabelValues("addressables").Add(float64(addressables))
	c.updateSizes()

	total := users + notes + addressables
	if total > 0 {
		c.prunerLog.Info("evicted entities",
			"users", users,
			"notes", notes,
			"addressables", addressables,
		)
	}
	return total
}

// Prune runs every sweep once with the hidden users and accounts of the
// policy, then evicts.
func (c *Cache) Prune(now time.Time) int {
	hidden := c.policy.HiddenUsers()
	accounts := c.policy.LoggedIn()

	removed := c.PruneExpiredEvents(now.Unix())
	removed += c.PruneHiddenEvents(hidden)
	removed += c.PruneHiddenMessages(hidden)
	removed += c.PrunePastVersionsOfReplaceables()
	removed += c.PruneRepliesAndReactions(accounts)
	removed += c.PruneOldMessages()
	c.PruneContactLists(accounts)
	c.PruneObservers()
	return removed + c.Evict()
}

// RunPruner prunes on every tick of interval until ctx is cancelled
func (c *Cache) RunPruner(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = c.cfg.Pruner.Interval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.prunerLog.Info("pruner started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			c.prunerLog.Info("pruner stopped")
			return ctx.Err()
		case now := <-ticker.C:
			removed := c.Prune(now)
			c.prunerLog.Debug("prune cycle finished", "removed", removed)
		}
	}
}

func (c *Cache) logSweep(name string, removed int) {
	if removed > 0 {
		c.prunerLog.Info("pruned", "sweep", name, "removed", removed)
	}
}
