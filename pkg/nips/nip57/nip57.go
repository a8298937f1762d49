package nip57

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/nbd-wtf/go-nostr"
	"github.com/paul/notecache/pkg/event"
)

const (
	KindZapRequest = 9734
	KindZap        = 9735
)

var (
	ErrNoZapRequest = errors.New("zap receipt has no description")
	ErrNoAmount     = errors.New("could not parse invoice amount")

	invoiceAmount = regexp.MustCompile(`lnbc(\d+)([munp]?)`)
)

// ZapRequest decodes the zap request embedded in a receipt's description tag
func ZapRequest(receipt *event.Event) (*event.Event, error) {
	if receipt.Kind != KindZap {
		return nil, fmt.Errorf("expected kind %d, got %d", KindZap, receipt.Kind)
	}
	desc := receipt.FirstTagValue("description")
	if desc == "" {
		return nil, ErrNoZapRequest
	}

	req, err := event.Parse([]byte(desc))
	if err != nil {
		return nil, err
	}
	if req.Kind != KindZapRequest {
		return nil, fmt.Errorf("description holds kind %d, expected %d", req.Kind, KindZapRequest)
	}
	return req, nil
}

// ZappedIDs returns the notes a zap request or receipt targets
func ZappedIDs(evt *event.Event) []string {
	if evt.Kind != KindZap && evt.Kind != KindZapRequest {
		return nil
	}

	var ids []string
	for _, id := range evt.TagValues("e") {
		if nostr.IsValid32ByteHex(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// ZappedAddresses returns the addressable events a zap targets
func ZappedAddresses(evt *event.Event) []event.Address {
	if evt.Kind != KindZap && evt.Kind != KindZapRequest {
		return nil
	}

	var addrs []event.Address
	for _, value := range evt.TagValues("a") {
		if addr, err := event.ParseAddress(value); err == nil {
			addrs = append(addrs, addr)
		}
	}
	return addrs
}

// ZappedAuthors returns the users receiving the zap
func ZappedAuthors(evt *event.Event) []string {
	if evt.Kind != KindZap && evt.Kind != KindZapRequest {
		return nil
	}

	var pubkeys []string
	for _, pk := range evt.TagValues("p") {
		if nostr.IsValid32ByteHex(pk) {
			pubkeys = append(pubkeys, pk)
		}
	}
	return pubkeys
}

// Amount returns the receipt amount in satoshis from its bolt11 invoice
func Amount(receipt *event.Event) (int64, error) {
	return InvoiceAmount(receipt.FirstTagValue("bolt11"))
}

// InvoiceAmount extracts the amount in satoshis from a bolt11 invoice
func InvoiceAmount(invoice string) (int64, error) {
	matches := invoiceAmount.FindStringSubmatch(invoice)
	if len(matches) < 2 {
		return 0, ErrNoAmount
	}

	amount, err := strconv.ParseInt(matches[1], 10, 64)
	if err != nil {
		return 0, err
	}

	switch matches[2] {
	case "m":
		amount *= 100000
	case "u":
		amount *= 100
	case "n":
		amount /= 10
	case "p":
		amount /= 10000
	default:
		amount *= 100000000
	}
	return amount, nil
}
