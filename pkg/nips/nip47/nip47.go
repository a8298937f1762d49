package nip47

import (
	"github.com/nbd-wtf/go-nostr"
	"github.com/paul/notecache/pkg/event"
)

const (
	// KindPaymentRequest is a wallet connect request sent to a wallet service
	KindPaymentRequest = 23194
	// KindPaymentResponse is the wallet service answer to a request
	KindPaymentResponse = 23195
)

// RequestID returns the id of the request a response answers
func RequestID(evt *event.Event) (string, bool) {
	if evt.Kind != KindPaymentResponse {
		return "", false
	}
	id := evt.FirstTagValue("e")
	return id, nostr.IsValid32ByteHex(id)
}

// WalletService returns the pubkey of the wallet service a request is sent to
func WalletService(evt *event.Event) (string, bool) {
	if evt.Kind != KindPaymentRequest {
		return "", false
	}
	pk := evt.FirstTagValue("p")
	return pk, nostr.IsValid32ByteHex(pk)
}
