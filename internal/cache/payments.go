package cache

import (
	"github.com/paul/notecache/pkg/event"
	"github.com/paul/notecache/pkg/nips/nip47"
)

type awaitingPayment struct {
	zapped     string
	onResponse func(*event.Event)
}

// ConsumePaymentRequest ingests a wallet payment request sent by a local
// account and waits for its response. zappedKey names the note being paid
// for and may be empty. onResponse runs on the worker pool for every
// accepted response until ForgetPaymentRequest is called.
func (c *Cache) ConsumePaymentRequest(req *event.Event, zappedKey string, onResponse func(*event.Event)) bool {
	if req.Kind != nip47.KindPaymentRequest || !validID(req.ID) || !validID(req.PubKey) {
		return false
	}

	note := c.getOrCreateNote(req.ID)
	var replyTo []string
	if zappedKey != "" {
		if _, ok := c.getOrCreateByKey(zappedKey); ok {
			replyTo = []string{zappedKey}
		}
	}
	if !note.Bind(req, replyTo) {
		return false
	}
	c.getOrCreateUser(req.PubKey).Ref()

	for _, key := range replyTo {
		if target, ok := c.lookupNote(key); ok {
			// registered without a response until one arrives
			target.AddZapPayment(req.ID, "")
		}
	}
	c.awaiting.Store(req.ID, &awaitingPayment{zapped: zappedKey, onResponse: onResponse})
	return true
}

// ForgetPaymentRequest stops waiting for responses to a request
func (c *Cache) ForgetPaymentRequest(id string) {
	c.awaiting.Delete(id)
}

// AwaitingPayments returns the number of requests still waiting
func (c *Cache) AwaitingPayments() int {
	return c.awaiting.Size()
}

func (c *Cache) consumePaymentResponse(in incoming) bool {
	resp := in.evt
	requestID, ok := nip47.RequestID(resp)
	if !ok {
		return false
	}
	pending, ok := c.awaiting.Load(requestID)
	if !ok {
		return false
	}

	var links linker
	if pending.zapped != "" {
		links = func(*event.Event) []link {
			return []link{{kind: linkPayment, target: pending.zapped, detail: requestID}}
		}
	}
	if _, ok := c.consumeRegular(in, false, links); !ok {
		return false
	}

	if pending.onResponse != nil {
		if _, err := c.pool.Go(func() error {
			pending.onResponse(resp)
			return nil
		}); err != nil {
			c.logger.Warn("cannot deliver payment response", "request_id", requestID, "error", err)
		}
	}
	return true
}
