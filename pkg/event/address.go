package event

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nbd-wtf/go-nostr"
)

// ErrInvalidAddress is returned when an address string cannot be parsed
var ErrInvalidAddress = errors.New("invalid address")

// Address identifies a replaceable or addressable event as kind:pubkey:d
type Address struct {
	Kind   int
	PubKey string
	DTag   string
}

// String returns the a-tag form of the address
func (a Address) String() string {
	return strconv.Itoa(a.Kind) + ":" + a.PubKey + ":" + a.DTag
}

// ParseAddress parses an a-tag value. The d part may itself contain colons.
func ParseAddress(s string) (Address, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 2 {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	kind, err := strconv.Atoi(parts[0])
	if err != nil || kind < 0 {
		return Address{}, fmt.Errorf("%w: bad kind in %q", ErrInvalidAddress, s)
	}
	if !nostr.IsValid32ByteHex(parts[1]) {
		return Address{}, fmt.Errorf("%w: bad pubkey in %q", ErrInvalidAddress, s)
	}
	addr := Address{Kind: kind, PubKey: parts[1]}
	if len(parts) == 3 {
		addr.DTag = parts[2]
	}
	return addr, nil
}

// IsAddressKey reports whether a store key is an address rather than an event id
func IsAddressKey(key string) bool {
	return strings.IndexByte(key, ':') >= 0
}
