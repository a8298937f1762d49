package nip17

import (
	"github.com/paul/notecache/pkg/event"
)

const (
	// KindChatMessage represents NIP-17 private direct message rumors
	KindChatMessage = 14
	// KindFileMessage represents NIP-17 file message rumors
	KindFileMessage = 15
	// KindDMRelayList lists the relays a user receives gift wrapped messages on
	KindDMRelayList = 10050
)

// IsChatMessage checks if the kind is one of the NIP-17 message rumors
func IsChatMessage(kind int) bool {
	return kind == KindChatMessage || kind == KindFileMessage
}

// Recipients extracts all recipient public keys from the p tags
func Recipients(evt *event.Event) []string {
	if !IsChatMessage(evt.Kind) {
		return nil
	}
	return evt.TagValues("p")
}

// ReplyTo extracts the ids of the messages this one replies to
func ReplyTo(evt *event.Event) []string {
	if !IsChatMessage(evt.Kind) {
		return nil
	}
	return evt.TagValues("e")
}

// Subject extracts the conversation subject
func Subject(evt *event.Event) (string, bool) {
	subject := evt.FirstTagValue("subject")
	return subject, subject != ""
}

// DMRelays returns the relays of a kind 10050 list
func DMRelays(evt *event.Event) []string {
	if evt.Kind != KindDMRelayList {
		return nil
	}
	return evt.TagValues("relay")
}
