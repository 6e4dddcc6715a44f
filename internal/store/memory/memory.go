// Package memory provides in-memory store implementations used by unit
// tests and local development.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskhive/messaging-platform/internal/apperr"
	"github.com/taskhive/messaging-platform/internal/model"
	"github.com/taskhive/messaging-platform/internal/store"
)

// MessageStore is an in-memory store.MessageStore.
type MessageStore struct {
	mu       sync.RWMutex
	messages map[string]*model.Message
	order    []string // ids in insertion order
}

// NewMessageStore creates an empty in-memory message store.
func NewMessageStore() *MessageStore {
	return &MessageStore{
		messages: make(map[string]*model.Message),
	}
}

// CreateMessage validates and persists a new message.
func (s *MessageStore) CreateMessage(ctx context.Context, senderID, receiverID, content string, taskID *string) (*model.Message, error) {
	if err := store.ValidateNewMessage(senderID, receiverID, content); err != nil {
		return nil, err
	}

	msg := &model.Message{
		ID:         uuid.Must(uuid.NewV7()).String(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		TaskID:     taskID,
		Content:    strings.TrimSpace(content),
		Status:     model.StatusSent,
		Read:       false,
		CreatedAt:  time.Now(),
	}

	s.mu.Lock()
	s.messages[msg.ID] = msg
	s.order = append(s.order, msg.ID)
	s.mu.Unlock()

	out := *msg
	return &out, nil
}

// GetMessage returns a message by id.
func (s *MessageStore) GetMessage(ctx context.Context, id string) (*model.Message, error) {
	s.mu.RLock()
	msg, ok := s.messages[id]
	s.mu.RUnlock()

	if !ok {
		return nil, apperr.NotFound("message %s not found", id)
	}
	out := *msg
	return &out, nil
}

// ConversationMessages returns all messages between two users ascending
// by creation time.
func (s *MessageStore) ConversationMessages(ctx context.Context, userA, userB string) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var msgs []model.Message
	for _, id := range s.order {
		msg := s.messages[id]
		if (msg.SenderID == userA && msg.ReceiverID == userB) ||
			(msg.SenderID == userB && msg.ReceiverID == userA) {
			msgs = append(msgs, *msg)
		}
	}

	sortMessagesAsc(msgs)
	return msgs, nil
}

// MarkRead sets read=true and status=read. Idempotent.
func (s *MessageStore) MarkRead(ctx context.Context, id string) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[id]
	if !ok {
		return nil, apperr.NotFound("message %s not found", id)
	}

	if !msg.Read {
		msg.Read = true
		msg.Status = model.StatusRead
	}

	out := *msg
	return &out, nil
}

// MarkDelivered transitions sent -> delivered, no-op otherwise.
func (s *MessageStore) MarkDelivered(ctx context.Context, id string) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[id]
	if !ok {
		return nil, apperr.NotFound("message %s not found", id)
	}

	if msg.Status == model.StatusSent {
		msg.Status = model.StatusDelivered
	}

	out := *msg
	return &out, nil
}

// UnreadFrom returns unread messages from senderID to receiverID.
func (s *MessageStore) UnreadFrom(ctx context.Context, receiverID, senderID string) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var msgs []model.Message
	for _, id := range s.order {
		msg := s.messages[id]
		if msg.ReceiverID == receiverID && msg.SenderID == senderID && !msg.Read {
			msgs = append(msgs, *msg)
		}
	}

	sortMessagesAsc(msgs)
	return msgs, nil
}

// ConversationSummaries groups the user's messages by conversation
// partner.
func (s *MessageStore) ConversationSummaries(ctx context.Context, userID string) ([]model.ConversationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make(map[string]*model.ConversationSummary)
	latest := make(map[string]*model.Message)

	for _, id := range s.order {
		msg := s.messages[id]

		var peer string
		switch {
		case msg.SenderID == userID:
			peer = msg.ReceiverID
		case msg.ReceiverID == userID:
			peer = msg.SenderID
		default:
			continue
		}

		sum, ok := summaries[peer]
		if !ok {
			sum = &model.ConversationSummary{PeerID: peer}
			summaries[peer] = sum
		}

		if last := latest[peer]; last == nil || newerThan(msg, last) {
			latest[peer] = msg
			sum.LastMessage = msg.Content
			sum.LastMessageAt = msg.CreatedAt
		}

		if msg.ReceiverID == userID && !msg.Read {
			sum.UnreadCount++
		}
	}

	out := make([]model.ConversationSummary, 0, len(summaries))
	for _, sum := range summaries {
		out = append(out, *sum)
	}
	return out, nil
}

// newerThan orders by creation time, falling back to id order (UUIDv7
// ids sort by generation time) for identical timestamps.
func newerThan(a, b *model.Message) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID > b.ID
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func sortMessagesAsc(msgs []model.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
}
