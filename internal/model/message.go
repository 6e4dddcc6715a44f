package model

import (
	"time"
)

// Status represents the delivery state of a message.
type Status string

const (
	// StatusSending is the provisional client-local state before the
	// server has acknowledged persistence.
	StatusSending Status = "sending"
	// StatusSent means the message is persisted server-side.
	StatusSent Status = "sent"
	// StatusDelivered means the message was pushed over a live connection.
	StatusDelivered Status = "delivered"
	// StatusRead means the receiver has opened the conversation.
	StatusRead Status = "read"
	// StatusError is the terminal client-local state after an ack timeout.
	StatusError Status = "error"
)

// Valid reports whether s is one of the enumerated statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusSending, StatusSent, StatusDelivered, StatusRead, StatusError:
		return true
	}
	return false
}

// CanTransitionTo reports whether the happy-path transition s -> next is
// legal. Transitions are monotonic: sending -> sent -> delivered -> read.
// StatusError is reachable only from the provisional sending state.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusSending:
		return next == StatusSent || next == StatusError
	case StatusSent:
		return next == StatusDelivered || next == StatusRead
	case StatusDelivered:
		return next == StatusRead
	case StatusRead, StatusError:
		return false
	}
	return false
}

// Message represents a message between two users.
type Message struct {
	ID         string  `json:"id"`
	SenderID   string  `json:"sender_id"`
	ReceiverID string  `json:"receiver_id"`
	TaskID     *string `json:"task_id,omitempty"`

	Content string `json:"content"`
	Status  Status `json:"status"`
	Read    bool   `json:"read"`

	CreatedAt time.Time `json:"created_at"`
}

// SendMessageRequest is the inbound send-message action payload.
type SendMessageRequest struct {
	ReceiverID   string  `json:"receiver_id"`
	Content      string  `json:"content"`
	TaskID       *string `json:"task_id,omitempty"`
	ClientTempID string  `json:"client_temp_id,omitempty"`
}

// SendMessageAck is the acknowledgment returned for a send-message action.
type SendMessageAck struct {
	ClientTempID string `json:"client_temp_id,omitempty"`
	Success      bool   `json:"success"`
	MessageID    string `json:"message_id,omitempty"`
	Error        string `json:"error,omitempty"`
}

// ListMessagesResponse is the response for listing conversation messages.
type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
}
