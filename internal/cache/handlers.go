package cache

import (
	"github.com/paul/notecache/internal/hints"
	"github.com/paul/notecache/internal/model"
	"github.com/paul/notecache/pkg/event"
	"github.com/paul/notecache/pkg/nips/nip04"
	"github.com/paul/notecache/pkg/nips/nip09"
	"github.com/paul/notecache/pkg/nips/nip10"
	"github.com/paul/notecache/pkg/nips/nip17"
	"github.com/paul/notecache/pkg/nips/nip18"
	"github.com/paul/notecache/pkg/nips/nip22"
	"github.com/paul/notecache/pkg/nips/nip25"
	"github.com/paul/notecache/pkg/nips/nip28"
	"github.com/paul/notecache/pkg/nips/nip47"
	"github.com/paul/notecache/pkg/nips/nip53"
	"github.com/paul/notecache/pkg/nips/nip56"
	"github.com/paul/notecache/pkg/nips/nip57"
	"github.com/paul/notecache/pkg/nips/nip59"
	"github.com/paul/notecache/pkg/nips/nip62"
	"github.com/paul/notecache/pkg/nips/nip65"
)

const (
	kindPicture   = 20
	kindPoll      = 1068
	kindHighlight = 9802
	kindLongForm  = 30023
)

const (
	strategyRegular     = "regular"
	strategyReplaceable = "replaceable"
	strategyAddressable = "addressable"
	strategyZero        = "zero"
	strategyDeletion    = "deletion"
)

type handler struct {
	strategy string
	consume  func(c *Cache, in incoming) bool
}

func (c *Cache) buildHandlers() map[int]handler {
	return map[int]handler{
		event.KindMetadata:    {strategyReplaceable, (*Cache).consumeMetadata},
		event.KindContactList: {strategyReplaceable, (*Cache).consumeContactList},

		event.KindTextNote: regular(true, replyLinks, nil),
		kindPicture:        regular(true, replyLinks, nil),
		kindPoll:           regular(true, replyLinks, nil),
		kindHighlight:      regular(true, replyLinks, nil),
		nip22.KindComment:  regular(true, commentLinks, nil),
		kindLongForm:       addressable(true, replyLinks, nil),

		nip18.KindRepost:        regular(false, boostLinks, (*Cache).consumeContainedPost),
		nip18.KindGenericRepost: regular(false, boostLinks, (*Cache).consumeContainedPost),
		nip25.KindReaction:      regular(false, reactionLinks, nil),
		nip56.KindReport:        regular(false, reportLinks, (*Cache).registerUserReports),
		nip57.KindZapRequest:    regular(false, zapRequestLinks, (*Cache).registerZapRequest),
		nip57.KindZap:           {strategyRegular, (*Cache).consumeZap},

		nip09.KindDeletion:        {strategyDeletion, (*Cache).consumeDeletion},
		nip62.KindRequestToVanish: {strategyDeletion, (*Cache).consumeVanish},

		nip28.KindChannelCreate:   {strategyRegular, (*Cache).consumeChannelCreate},
		nip28.KindChannelMetadata: {strategyRegular, (*Cache).consumeChannelMetadata},
		nip28.KindChannelMessage:  {strategyRegular, (*Cache).consumeChannelMessage},
		nip28.KindChannelHide:     {strategyZero, consumeNothing},
		nip28.KindChannelMute:     {strategyZero, consumeNothing},
		nip28.KindEphemeralChat:   {strategyRegular, (*Cache).consumeEphemeralChat},

		nip53.KindLiveActivity:    addressable(false, nil, (*Cache).updateLiveActivity),
		nip53.KindLiveChatMessage: {strategyRegular, (*Cache).consumeLiveChat},

		nip04.KindEncryptedDirectMessage: regular(false, dmLinks, (*Cache).fileDirectMessage),
		nip17.KindChatMessage:            regular(true, dmLinks, (*Cache).fileChatMessage),
		nip17.KindFileMessage:            regular(false, dmLinks, (*Cache).fileChatMessage),

		nip59.KindSeal:     regular(false, nil, (*Cache).unwrap),
		nip59.KindGiftWrap: regular(false, nil, (*Cache).unwrap),

		nip47.KindPaymentRequest:  {strategyZero, consumeNothing},
		nip47.KindPaymentResponse: {strategyRegular, (*Cache).consumePaymentResponse},

		nip65.KindRelayList:   addressable(false, nil, nil),
		nip17.KindDMRelayList: addressable(false, nil, nil),
	}
}

// handlerFor returns the table entry for kind. Unlisted replaceable and
// addressable kinds share the generic addressable handler.
func (c *Cache) handlerFor(kind int) (handler, bool) {
	if h, ok := c.handlers[kind]; ok {
		return h, true
	}
	if event.IsReplaceable(kind) || event.IsAddressable(kind) {
		return addressable(false, nil, nil), true
	}
	return handler{}, false
}

type afterFunc func(c *Cache, in incoming, n *model.Note)

func regular(spam bool, links linker, after afterFunc) handler {
	return handler{strategy: strategyRegular, consume: func(c *Cache, in incoming) bool {
		n, ok := c.consumeRegular(in, spam, links)
		if ok && after != nil {
			after(c, in, n)
		}
		return ok
	}}
}

func addressable(spam bool, links linker, after afterFunc) handler {
	return handler{strategy: strategyAddressable, consume: func(c *Cache, in incoming) bool {
		n, ok := c.consumeAddressable(in, spam, links)
		if ok && after != nil {
			after(c, in, n)
		}
		return ok
	}}
}

func consumeNothing(*Cache, incoming) bool { return false }

// consumeRegular binds an event to the note of its id and registers it on
// the notes it refers to.
func (c *Cache) consumeRegular(in incoming, spam bool, links linker) (*model.Note, bool) {
	evt := in.evt
	if !validID(evt.ID) || !validID(evt.PubKey) {
		c.logger.Warn("dropping malformed event", "event_id", evt.ID, "pubkey", evt.PubKey)
		return nil, false
	}

	note := c.getOrCreateNote(evt.ID)
	author := c.getOrCreateUser(evt.PubKey)
	if in.relay != "" {
		author.AddRelayUsage(in.relay, evt.CreatedAt)
		note.AddRelay(in.relay)
	}

	if note.Event() != nil {
		return note, false
	}
	if !c.verify(in) {
		return note, false
	}
	if spam && c.isSpam(in) {
		return note, false
	}

	var ls []link
	if links != nil {
		ls = links(evt)
	}
	if !note.Bind(evt, linkKeys(ls)) {
		return note, false
	}
	author.Ref()
	for _, l := range ls {
		c.link(note, evt.PubKey, l)
	}
	c.bundler.NoteAdded(note)
	return note, true
}

// consumeAddressable binds the immutable version note, then moves the
// addressable note to the event when it is strictly newer.
func (c *Cache) consumeAddressable(in incoming, spam bool, links linker) (*model.Note, bool) {
	evt := in.evt
	addr, ok := evt.Address()
	if !ok || !validID(evt.ID) || !validID(evt.PubKey) {
		return nil, false
	}

	version := c.getOrCreateNote(evt.ID)
	note := c.getOrCreateAddressable(addr)
	author := c.getOrCreateUser(evt.PubKey)

	verified := !in.verify
	if version.Event() == nil {
		if !c.verify(in) {
			return note, false
		}
		verified = true
		if version.Bind(evt, nil) {
			author.Ref()
			c.versions.Add(addr.String(), evt.ID)
			c.moveReferences(version, note)
		}
	}

	if in.relay != "" {
		author.AddRelayUsage(in.relay, evt.CreatedAt)
		version.AddRelay(in.relay)
		note.AddRelay(in.relay)
	}

	if current := note.Event(); current != nil && current.ID == evt.ID {
		return note, false
	}
	if !verified && !c.verify(in) {
		return note, false
	}
	if spam && c.isSpam(in) {
		return note, false
	}

	var ls []link
	if links != nil {
		ls = links(evt)
	}
	old, replaced := note.Replace(evt, linkKeys(ls))
	if !replaced {
		return note, false
	}
	for _, key := range old {
		if t, ok := c.lookupNote(key); ok {
			t.RemoveChild(note.Key())
		}
	}
	for _, l := range ls {
		c.link(note, evt.PubKey, l)
	}
	c.bundler.NoteAdded(note)
	return note, true
}

func (c *Cache) consumeMetadata(in incoming) bool {
	evt := in.evt
	if !validID(evt.PubKey) || !c.verify(in) {
		return false
	}
	user := c.getOrCreateUser(evt.PubKey)
	user.AddRelayUsage(in.relay, evt.CreatedAt)

	updated, err := user.UpdateMetadata(evt, in.relay)
	if err != nil {
		c.logger.Debug("ignoring unparsable profile", "pubkey", evt.PubKey, "error", err)
		return false
	}
	return updated
}

func (c *Cache) consumeContactList(in incoming) bool {
	evt := in.evt
	if !validID(evt.PubKey) || !c.verify(in) {
		return false
	}
	user := c.getOrCreateUser(evt.PubKey)
	user.AddRelayUsage(in.relay, evt.CreatedAt)
	return user.UpdateContactList(evt)
}

func replyLinks(evt *event.Event) []link {
	ids, addrs := nip10.ReplyTargets(evt)
	return idLinks(linkReply, "", ids, addrs)
}

func commentLinks(evt *event.Event) []link {
	ids, addrs := nip22.Targets(evt)
	return idLinks(linkReply, "", ids, addrs)
}

func boostLinks(evt *event.Event) []link {
	var ids []string
	var addrs []event.Address
	if id, ok := nip18.BoostedID(evt); ok {
		ids = append(ids, id)
	}
	if addr, ok := nip18.BoostedAddress(evt); ok {
		addrs = append(addrs, addr)
	}
	return idLinks(linkBoost, "", ids, addrs)
}

func reactionLinks(evt *event.Event) []link {
	return idLinks(linkReaction, nip25.ReactionType(evt), nip25.ReactedEventIDs(evt), nip25.ReactedAddresses(evt))
}

func reportLinks(evt *event.Event) []link {
	return idLinks(linkReport, "", nip56.ReportedEventIDs(evt), nip56.ReportedAddresses(evt))
}

func zapRequestLinks(evt *event.Event) []link {
	return idLinks(linkZapRequest, "", nip57.ZappedIDs(evt), nip57.ZappedAddresses(evt))
}

func dmLinks(evt *event.Event) []link {
	var ids []string
	if evt.Kind == nip04.KindEncryptedDirectMessage {
		ids = nip04.ReplyTo(evt)
	} else {
		ids = nip17.ReplyTo(evt)
	}
	return idLinks(linkReply, "", ids, nil)
}

// withoutTarget drops the links to a container such as the channel of a
// message.
func withoutTarget(links []link, target string) []link {
	out := links[:0]
	for _, l := range links {
		if l.target != target {
			out = append(out, l)
		}
	}
	return out
}

// consumeContainedPost ingests the event embedded in a repost unless it was
// deleted.
func (c *Cache) consumeContainedPost(in incoming, _ *model.Note) {
	inner, err := nip18.ContainedPost(in.evt)
	if err != nil {
		c.logger.Debug("ignoring repost content", "event_id", in.evt.ID, "error", err)
		return
	}
	if inner == nil || c.deletions.HasBeenDeleted(inner) {
		return
	}
	c.consume(incoming{evt: inner, relay: in.relay, verify: true})
}

// registerUserReports files a report on the reported users when it names
// no note.
func (c *Cache) registerUserReports(in incoming, n *model.Note) {
	if len(n.ReplyTo()) > 0 {
		return
	}
	for _, pk := range nip56.ReportedPubKeys(in.evt) {
		if validID(pk) {
			c.getOrCreateUser(pk).AddReport(in.evt.PubKey, n.Key())
		}
	}
}

func (c *Cache) registerZapRequest(in incoming, n *model.Note) {
	for _, pk := range nip57.ZappedAuthors(in.evt) {
		c.getOrCreateUser(pk).AddZap(n.Key(), "")
	}
}

// consumeZap accepts a receipt only once its embedded request is in the
// graph.
func (c *Cache) consumeZap(in incoming) bool {
	receipt := in.evt
	request, err := nip57.ZapRequest(receipt)
	if err != nil {
		c.logger.Debug("dropping zap without request", "event_id", receipt.ID, "error", err)
		return false
	}
	c.consume(incoming{evt: request, relay: in.relay, verify: in.verify})

	reqNote, ok := c.notes.Get(request.ID)
	if !ok || reqNote.Kind() != nip57.KindZapRequest {
		c.logger.Debug("zap request not found", "event_id", receipt.ID, "request_id", request.ID)
		return false
	}

	links := func(evt *event.Event) []link {
		addrs := append(nip57.ZappedAddresses(evt), nip57.ZappedAddresses(request)...)
		return idLinks(linkZap, request.ID, nip57.ZappedIDs(evt), addrs)
	}
	n, ok := c.consumeRegular(in, false, links)
	if !ok {
		return false
	}

	for _, pk := range nip57.ZappedAuthors(receipt) {
		c.getOrCreateUser(pk).AddZap(request.ID, n.Key())
	}
	if amount, err := nip57.Amount(receipt); err == nil {
		c.logger.Debug("zap received", "event_id", receipt.ID, "sats", amount)
	}
	return true
}

func (c *Cache) consumeChannelCreate(in incoming) bool {
	n, ok := c.consumeRegular(in, false, nil)
	if !ok {
		return false
	}
	channel := c.publicChats.GetOrCreate(n.Key(), func() *model.PublicChat { return model.NewPublicChat(n.Key()) })
	if md, err := nip28.ParseMetadata(in.evt); err == nil {
		channel.UpdateMetadata(in.evt, md)
	} else {
		c.logger.Debug("ignoring channel metadata", "event_id", in.evt.ID, "error", err)
	}
	c.gather(n, channel)
	return true
}

func (c *Cache) consumeChannelMetadata(in incoming) bool {
	channelID, ok := nip28.ChannelID(in.evt)
	if !ok || !validID(channelID) {
		return false
	}
	n, ok := c.consumeRegular(in, false, nil)
	if !ok {
		return false
	}
	channel := c.publicChats.GetOrCreate(channelID, func() *model.PublicChat { return model.NewPublicChat(channelID) })
	if md, err := nip28.ParseMetadata(in.evt); err == nil {
		channel.UpdateMetadata(in.evt, md)
	}
	c.gather(n, channel)
	return true
}

func (c *Cache) consumeChannelMessage(in incoming) bool {
	channelID, ok := nip28.ChannelID(in.evt)
	if !ok || !validID(channelID) {
		return false
	}
	links := func(evt *event.Event) []link {
		return withoutTarget(replyLinks(evt), channelID)
	}
	n, ok := c.consumeRegular(in, true, links)
	if !ok {
		return false
	}
	channel := c.publicChats.GetOrCreate(channelID, func() *model.PublicChat { return model.NewPublicChat(channelID) })
	c.gather(n, channel)
	return true
}

func (c *Cache) consumeEphemeralChat(in incoming) bool {
	room, ok := nip28.Room(in.evt)
	if !ok {
		return false
	}
	if relay := hints.Normalize(room.Relay); relay != "" {
		room.Relay = relay
	}
	n, ok := c.consumeRegular(in, false, replyLinks)
	if !ok {
		return false
	}
	channel := c.ephemeralChats.GetOrCreate(room, func() *model.EphemeralChat { return model.NewEphemeralChat(room) })
	c.gather(n, channel)
	return true
}

func (c *Cache) updateLiveActivity(in incoming, n *model.Note) {
	addr, _ := n.Address()
	channel := c.liveActivities.GetOrCreate(addr.String(), func() *model.LiveActivity { return model.NewLiveActivity(addr) })
	channel.UpdateActivity(in.evt)
}

func (c *Cache) consumeLiveChat(in incoming) bool {
	addr, ok := nip53.ActivityAddress(in.evt)
	if !ok {
		return false
	}
	links := func(evt *event.Event) []link {
		return withoutTarget(replyLinks(evt), addr.String())
	}
	n, ok := c.consumeRegular(in, true, links)
	if !ok {
		return false
	}
	channel := c.liveActivities.GetOrCreate(addr.String(), func() *model.LiveActivity { return model.NewLiveActivity(addr) })
	c.gather(n, channel)
	return true
}

func (c *Cache) fileDirectMessage(in incoming, n *model.Note) {
	participants := []string{in.evt.PubKey}
	if recipient, ok := nip04.Recipient(in.evt); ok {
		participants = append(participants, recipient)
	}
	c.fileChatroom(n, participants)
}

func (c *Cache) fileChatMessage(in incoming, n *model.Note) {
	c.fileChatroom(n, append([]string{in.evt.PubKey}, nip17.Recipients(in.evt)...))
}

// unwrap opens a seal or gift wrap and links the inner note to the wrap
// that carried it.
func (c *Cache) unwrap(in incoming, n *model.Note) {
	if c.unwrapper == nil {
		return
	}
	inner, err := c.unwrapper.Unwrap(in.evt)
	if err != nil {
		c.logger.Debug("cannot unwrap", "event_id", in.evt.ID, "kind", in.evt.Kind, "error", err)
		return
	}

	// rumors are unsigned
	c.consume(incoming{evt: inner, verify: inner.Sig != ""})

	if innerNote, ok := c.notes.Get(inner.ID); ok && innerNote.Host() == "" {
		innerNote.SetHost(n.Key())
	}
}
