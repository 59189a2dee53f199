// Package server implements the realtime gateway and the thin HTTP surface of
// the wanderchat backend: the hub, per-connection pumps, the wire protocol,
// and the register/auth/logout endpoints.
package server

import (
	"encoding/json"
	"fmt"

	"github.com/wanderhappen/wanderchat/internal/chat"
)

// Inbound action types accepted from a connected channel.
const (
	ActionSendMessage   = "send-message"
	ActionTyping        = "typing"
	ActionEditMessage   = "edit-message"
	ActionDeleteMessage = "delete-message"
)

// Outbound event types emitted to connected channels.
const (
	EventPresenceCount   = "presence-count"
	EventMessageSnapshot = "message-snapshot"
	EventNewMessage      = "new-message"
	EventTypingNotice    = "typing-notice"
	EventMessageEdited   = "message-edited"
	EventMessageRemoved  = "message-removed"
)

// Inbound is the envelope for client-to-server actions. Data is decoded into
// the payload matching Type once the type is known.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// SendMessagePayload carries a new chat message and the sender's token.
type SendMessagePayload struct {
	Text  string `json:"text"`
	Token string `json:"token"`
}

// TypingPayload announces that the token's user is typing.
type TypingPayload struct {
	Token string `json:"token"`
}

// EditMessagePayload replaces the text of an existing message.
type EditMessagePayload struct {
	MessageID string `json:"messageId"`
	NewText   string `json:"newText"`
}

// DeleteMessagePayload removes an existing message.
type DeleteMessagePayload struct {
	MessageID string `json:"messageId"`
}

// Outbound is the envelope for server-to-client events.
type Outbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// PresenceCountPayload carries the current number of open channels.
type PresenceCountPayload struct {
	Count int `json:"count"`
}

// MessageSnapshotPayload carries the full ledger in insertion order.
type MessageSnapshotPayload struct {
	Messages []chat.Message `json:"messages"`
}

// NewMessagePayload carries a freshly appended message.
type NewMessagePayload struct {
	Message chat.Message `json:"message"`
}

// TypingNoticePayload carries the display name of a typing user.
type TypingNoticePayload struct {
	Name string `json:"name"`
}

// MessageEditedPayload carries an edited message together with its id.
type MessageEditedPayload struct {
	MessageID string       `json:"messageId"`
	Message   chat.Message `json:"message"`
}

// MessageRemovedPayload carries the id of a deleted message.
type MessageRemovedPayload struct {
	MessageID string `json:"messageId"`
}

// decodeInbound parses a raw frame into a typed envelope. Unknown action
// types and malformed JSON are reported as errors so the caller can drop the
// frame without touching any store.
func decodeInbound(raw []byte) (Inbound, error) {
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return Inbound{}, fmt.Errorf("decode inbound: %w", err)
	}

	switch in.Type {
	case ActionSendMessage, ActionTyping, ActionEditMessage, ActionDeleteMessage:
		return in, nil
	default:
		return Inbound{}, fmt.Errorf("decode inbound: unknown action %q", in.Type)
	}
}

// encodeEvent marshals an outbound event envelope.
func encodeEvent(eventType string, data any) ([]byte, error) {
	payload, err := json.Marshal(Outbound{Type: eventType, Data: data})
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", eventType, err)
	}
	return payload, nil
}
