package nip04

import (
	"strings"

	"github.com/paul/notecache/pkg/event"
)

const (
	// KindEncryptedDirectMessage represents NIP-04 encrypted direct messages
	KindEncryptedDirectMessage = 4
)

// Recipient returns the pubkey of the first p tag
func Recipient(evt *event.Event) (string, bool) {
	if evt.Kind != KindEncryptedDirectMessage {
		return "", false
	}
	recipient := evt.FirstTagValue("p")
	return recipient, recipient != ""
}

// ReplyTo returns the ids of the messages this message answers
func ReplyTo(evt *event.Event) []string {
	if evt.Kind != KindEncryptedDirectMessage {
		return nil
	}
	return evt.TagValues("e")
}

// IsWellFormed checks the <ciphertext>?iv=<iv> content layout
func IsWellFormed(content string) bool {
	ciphertext, iv, found := strings.Cut(content, "?iv=")
	return found && ciphertext != "" && iv != ""
}
