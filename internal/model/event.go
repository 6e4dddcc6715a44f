package model

import (
	"encoding/json"
)

// EventType identifies a socket event. Server-to-client events carry a
// payload; conversationUpdate is a signal only.
type EventType string

const (
	// Server -> client. messageDelivered also flows client -> server as
	// the receiver's render receipt.
	EventNewMessage         EventType = "newMessage"
	EventConversationUpdate EventType = "conversationUpdate"
	EventMessageDelivered   EventType = "messageDelivered"
	EventMessageRead        EventType = "messageRead"
	EventNotification       EventType = "notification"
	EventSendAck            EventType = "sendAck"

	// Client -> server.
	EventSendMessage       EventType = "sendMessage"
	EventJoinConversation  EventType = "joinConversation"
	EventLeaveConversation EventType = "leaveConversation"
	EventMarkRead          EventType = "markConversationRead"
)

// Event is the wire envelope for all socket traffic.
type Event struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEvent marshals data into an event envelope.
func NewEvent(t EventType, data any) (*Event, error) {
	if data == nil {
		return &Event{Type: t}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Event{Type: t, Data: raw}, nil
}

// MessageRef carries just a message id, used by the delivered and read
// receipt events.
type MessageRef struct {
	MessageID string `json:"message_id"`
}

// PeerRef carries a conversation partner id, used by the join and
// mark-read client actions and the conversationUpdate signal.
type PeerRef struct {
	PeerID string `json:"peer_id"`
}
