// Package model defines data structures for the messaging platform.
package model

import (
	"time"
)

// ConversationSummary is one row of a user's conversation list: the
// partner, the latest message, and how many messages the viewing user
// has not read yet. It is derived from the message store, never stored.
type ConversationSummary struct {
	PeerID        string    `json:"peer_id"`
	PeerName      string    `json:"peer_name,omitempty"`
	LastMessage   string    `json:"last_message"`
	LastMessageAt time.Time `json:"last_message_at"`
	UnreadCount   int       `json:"unread_count"`
}

// ListConversationsResponse is the response for the conversation list.
type ListConversationsResponse struct {
	Conversations []ConversationSummary `json:"conversations"`
}
