package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/paul/notecache/internal/hints"
	"github.com/paul/notecache/pkg/event"
	"github.com/paul/notecache/pkg/nips/nip40"
)

// Incoming is an event and the relay it was received from
type Incoming struct {
	Event *event.Event
	Relay string
}

type incoming struct {
	evt    *event.Event
	relay  string
	verify bool
}

const (
	outcomeAccepted = "accepted"
	outcomeIgnored  = "ignored"
	outcomeDeleted  = "deleted"
	outcomeUnknown  = "unknown"
	outcomePanic    = "panic"
)

// ConsumeOwn ingests an event created by a local account. The signature is
// trusted and no relay is recorded.
func (c *Cache) ConsumeOwn(evt *event.Event) bool {
	return c.consume(incoming{evt: evt})
}

// ConsumeExternal ingests an event received from relay. It returns true when
// the event changed the graph. Untrusted input never produces an error.
func (c *Cache) ConsumeExternal(evt *event.Event, relay string, preVerified bool) bool {
	return c.consume(incoming{evt: evt, relay: hints.Normalize(relay), verify: !preVerified})
}

// ConsumeBatch verifies the signatures of events on the worker pool and then
// ingests them in order. It returns whether each event was new.
func (c *Cache) ConsumeBatch(ctx context.Context, events []Incoming) []bool {
	verified := make([]bool, len(events))
	err := c.pool.ForEach(ctx, len(events), func(_ context.Context, i int) error {
		evt := events[i].Event
		if evt == nil {
			return nil
		}
		if err := c.verifier.Verify(evt); err != nil {
			c.logger.Warn("dropping event with invalid signature",
				"event_id", evt.ID,
				"relay", events[i].Relay,
				"error", err,
			)
			return nil
		}
		verified[i] = true
		return nil
	})
	if err != nil {
		c.logger.Warn("batch verification interrupted", "error", err)
	}

	results := make([]bool, len(events))
	for i, in := range events {
		if verified[i] {
			results[i] = c.ConsumeExternal(in.Event, in.Relay, true)
		}
	}
	return results
}

func (c *Cache) consume(in incoming) (accepted bool) {
	if in.evt == nil {
		return false
	}
	evt := in.evt
	start := time.Now()
	strategy := "none"

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("panic while consuming event",
				"event_id", evt.ID,
				"kind", evt.Kind,
				"panic", fmt.Sprint(r),
			)
			c.metrics.Consumed.WithLabelValues(strategy, outcomePanic).Inc()
			accepted = false
		}
		c.metrics.IngestDuration.Observe(time.Since(start).Seconds())
	}()

	if deletion, ok := c.deletions.DeletedBy(evt); ok {
		c.pushDeletion(deletion, in.relay)
		c.metrics.Consumed.WithLabelValues(strategy, outcomeDeleted).Inc()
		return false
	}

	c.correctStaleRelay(evt, in.relay)

	h, ok := c.handlerFor(evt.Kind)
	if !ok {
		c.logger.Debug("ignoring unsupported kind", "kind", evt.Kind, "event_id", evt.ID)
		c.metrics.Consumed.WithLabelValues(strategy, outcomeUnknown).Inc()
		return false
	}
	strategy = h.strategy

	accepted = h.consume(c, in)

	if in.relay != "" {
		c.recordRelay(evt, in.relay)
	}
	if accepted {
		c.hints.AddAll(hints.FromEvent(evt))
		c.offerObservers(evt)
		c.metrics.Consumed.WithLabelValues(strategy, outcomeAccepted).Inc()
	} else {
		c.metrics.Consumed.WithLabelValues(strategy, outcomeIgnored).Inc()
	}
	return accepted
}

// pushDeletion sends the deletion to a relay that still serves the deleted
// event, once per relay. The index outlives an evicted deletion note.
func (c *Cache) pushDeletion(deletion *event.Event, relay string) {
	if relay == "" {
		return
	}
	fresh := c.deletions.AddRelay(deletion.ID, relay)
	if note, ok := c.notes.Get(deletion.ID); ok && note.Event() != nil {
		fresh = note.AddRelay(relay) && fresh
	}
	if !fresh {
		return
	}
	c.logger.Debug("pushing deletion to stale relay", "relay", relay, "deletion_id", deletion.ID)
	c.metrics.RelayPushes.Inc()
	c.outbox.Send(relay, deletion)
}

// correctStaleRelay pushes the newer version of an addressable event to a
// relay that just served an older one, once per relay.
func (c *Cache) correctStaleRelay(evt *event.Event, relay string) {
	if relay == "" {
		return
	}
	addr, ok := evt.Address()
	if !ok {
		return
	}
	note, ok := c.addressables.Get(addr.String())
	if !ok {
		return
	}
	current := note.Event()
	if current == nil || current.CreatedAt <= evt.CreatedAt {
		return
	}
	if nip40.IsExpired(current, time.Now().Unix()) {
		return
	}
	if note.AddRelay(relay) {
		c.logger.Debug("pushing newer version to stale relay",
			"relay", relay,
			"address", addr.String(),
			"stale_id", evt.ID,
			"current_id", current.ID,
		)
		c.metrics.RelayPushes.Inc()
		c.outbox.Send(relay, current)
	}
}

// recordRelay records relay as a hint for a known event, its address, its
// author and everything the bound version references.
func (c *Cache) recordRelay(evt *event.Event, relay string) {
	var bound *event.Event
	if n, ok := c.notes.Get(evt.ID); ok && n.Event() != nil {
		bound = n.Event()
		c.hints.AddEvent(evt.ID, relay)
	}
	if addr, ok := evt.Address(); ok {
		if n, ok := c.addressables.Get(addr.String()); ok && n.Event() != nil {
			bound = n.Event()
			c.hints.AddAddress(addr.String(), relay)
		}
	}
	if bound == nil {
		return
	}
	c.hints.AddPubKey(evt.PubKey, relay)
	c.hints.AddAll(hints.Linked(bound, relay))
}

// MarkAsSeen records that relay carries the event with the given id
func (c *Cache) MarkAsSeen(id, relay string) {
	relay = hints.Normalize(relay)
	if relay == "" {
		return
	}
	note, ok := c.notes.Get(id)
	if !ok {
		return
	}
	note.AddRelay(relay)
	c.hints.AddEvent(id, relay)

	evt := note.Event()
	if evt == nil {
		return
	}
	if addr, ok := evt.Address(); ok {
		if an, ok := c.addressables.Get(addr.String()); ok {
			an.AddRelay(relay)
		}
		c.hints.AddAddress(addr.String(), relay)
	}
}

// HasConsumed reports whether evt, or a newer version of it, is already in
// the graph.
func (c *Cache) HasConsumed(evt *event.Event) bool {
	switch evt.Kind {
	case event.KindMetadata:
		if u, ok := c.users.Get(evt.PubKey); ok {
			current := u.Metadata()
			return current != nil && current.CreatedAt >= evt.CreatedAt
		}
		return false
	case event.KindContactList:
		if u, ok := c.users.Get(evt.PubKey); ok {
			current := u.ContactList()
			return current != nil && current.CreatedAt >= evt.CreatedAt
		}
		return false
	}

	if addr, ok := evt.Address(); ok {
		if n, ok := c.addressables.Get(addr.String()); ok {
			current := n.Event()
			return current != nil && current.CreatedAt >= evt.CreatedAt
		}
		return false
	}

	n, ok := c.notes.Get(evt.ID)
	return ok && n.Event() != nil
}

func (c *Cache) verify(in incoming) bool {
	if !in.verify {
		return true
	}
	if err := c.verifier.Verify(in.evt); err != nil {
		c.logger.Warn("dropping event with invalid signature",
			"event_id", in.evt.ID,
			"relay", in.relay,
			"error", err,
		)
		return false
	}
	return true
}

func (c *Cache) isSpam(in incoming) bool {
	if c.antispam == nil || !c.antispam.IsSpam(in.evt, in.relay) {
		return false
	}
	c.metrics.SpamRejected.Inc()
	return true
}
