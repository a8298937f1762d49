package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paul/notecache/pkg/event"
)

// MessageType represents the type of Nostr protocol message
type MessageType string

const (
	MessageTypeEvent  MessageType = "EVENT"
	MessageTypeEOSE   MessageType = "EOSE"   // End of stored events
	MessageTypeOK     MessageType = "OK"     // Command result
	MessageTypeNotice MessageType = "NOTICE" // Human-readable message
	MessageTypeClosed MessageType = "CLOSED" // Subscription ended by the relay
	MessageTypeAuth   MessageType = "AUTH"   // NIP-42 challenge
	MessageTypeCount  MessageType = "COUNT"  // NIP-45 result
)

// ErrNotAMessage is returned for input that is not a JSON array
var ErrNotAMessage = errors.New("not a protocol message")

// Message is one relay to client message
type Message struct {
	Type     MessageType
	SubID    string
	Event    *event.Event
	EventID  string
	Accepted bool
	Text     string
	Count    int64
}

// Parse decodes a relay to client message
func Parse(data []byte) (*Message, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAMessage, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty message")
	}

	var msgType string
	if err := json.Unmarshal(raw[0], &msgType); err != nil {
		return nil, fmt.Errorf("invalid message type: %w", err)
	}

	msg := &Message{Type: MessageType(msgType)}
	switch msg.Type {
	case MessageTypeEvent:
		// relays send ["EVENT", <sub>, <event>]; clients send ["EVENT", <event>]
		switch len(raw) {
		case 2:
			return msg, decodeEvent(raw[1], msg)
		case 3:
			if err := json.Unmarshal(raw[1], &msg.SubID); err != nil {
				return nil, fmt.Errorf("invalid subscription ID: %w", err)
			}
			return msg, decodeEvent(raw[2], msg)
		default:
			return nil, fmt.Errorf("EVENT message must have 2 or 3 elements")
		}

	case MessageTypeEOSE:
		if len(raw) != 2 {
			return nil, fmt.Errorf("EOSE message must have 2 elements")
		}
		return msg, json.Unmarshal(raw[1], &msg.SubID)

	case MessageTypeOK:
		if len(raw) != 4 {
			return nil, fmt.Errorf("OK message must have 4 elements")
		}
		if err := json.Unmarshal(raw[1], &msg.EventID); err != nil {
			return nil, fmt.Errorf("invalid event ID: %w", err)
		}
		if err := json.Unmarshal(raw[2], &msg.Accepted); err != nil {
			return nil, fmt.Errorf("invalid OK flag: %w", err)
		}
		return msg, json.Unmarshal(raw[3], &msg.Text)

	case MessageTypeNotice, MessageTypeAuth:
		if len(raw) != 2 {
			return nil, fmt.Errorf("%s message must have 2 elements", msgType)
		}
		return msg, json.Unmarshal(raw[1], &msg.Text)

	case MessageTypeClosed:
		if len(raw) < 2 {
			return nil, fmt.Errorf("CLOSED message must have at least 2 elements")
		}
		if err := json.Unmarshal(raw[1], &msg.SubID); err != nil {
			return nil, fmt.Errorf("invalid subscription ID: %w", err)
		}
		if len(raw) > 2 {
			return msg, json.Unmarshal(raw[2], &msg.Text)
		}
		return msg, nil

	case MessageTypeCount:
		if len(raw) != 3 {
			return nil, fmt.Errorf("COUNT message must have 3 elements")
		}
		if err := json.Unmarshal(raw[1], &msg.SubID); err != nil {
			return nil, fmt.Errorf("invalid subscription ID: %w", err)
		}
		var result struct {
			Count int64 `json:"count"`
		}
		if err := json.Unmarshal(raw[2], &result); err != nil {
			return nil, fmt.Errorf("invalid count: %w", err)
		}
		msg.Count = result.Count
		return msg, nil

	default:
		return nil, fmt.Errorf("unknown message type: %s", msgType)
	}
}

func decodeEvent(data json.RawMessage, msg *Message) error {
	var evt event.Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}
	msg.Event = &evt
	return nil
}

// EventMessage encodes the client message publishing evt
func EventMessage(evt *event.Event) ([]byte, error) {
	return json.Marshal([]any{MessageTypeEvent, evt})
}
