package service

import (
	"context"
	"testing"

	"github.com/taskhive/messaging-platform/internal/directory"
	"github.com/taskhive/messaging-platform/internal/store/memory"
	"github.com/taskhive/messaging-platform/pkg/logger"
)

func TestListResolvesNamesAndOrders(t *testing.T) {
	messages := memory.NewMessageStore()
	dir := directory.NewMemory()
	dir.Put(directory.User{ID: "bob", Name: "Bob"})
	dir.Put(directory.User{ID: "carol", Name: "Carol"})

	svc := NewConversationService(messages, dir, nil, logger.NewNop())
	ctx := context.Background()

	messages.CreateMessage(ctx, "bob", "alice", "older", nil)
	messages.CreateMessage(ctx, "carol", "alice", "newer", nil)

	resp, err := svc.List(ctx, "alice")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(resp.Conversations) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(resp.Conversations))
	}

	// Newest activity first.
	if resp.Conversations[0].PeerID != "carol" || resp.Conversations[1].PeerID != "bob" {
		t.Errorf("wrong order: %s, %s", resp.Conversations[0].PeerID, resp.Conversations[1].PeerID)
	}
	if resp.Conversations[0].PeerName != "Carol" {
		t.Errorf("peer name not resolved: %q", resp.Conversations[0].PeerName)
	}
}

func TestListUnknownPeerKeepsID(t *testing.T) {
	messages := memory.NewMessageStore()
	svc := NewConversationService(messages, directory.NewMemory(), nil, logger.NewNop())
	ctx := context.Background()

	messages.CreateMessage(ctx, "ghost", "alice", "hello?", nil)

	resp, err := svc.List(ctx, "alice")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(resp.Conversations) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(resp.Conversations))
	}
	if resp.Conversations[0].PeerID != "ghost" || resp.Conversations[0].PeerName != "" {
		t.Errorf("directory miss mishandled: %+v", resp.Conversations[0])
	}
}

func TestListEmpty(t *testing.T) {
	svc := NewConversationService(memory.NewMessageStore(), directory.NewMemory(), nil, logger.NewNop())

	resp, err := svc.List(context.Background(), "alice")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(resp.Conversations) != 0 {
		t.Errorf("expected no conversations, got %d", len(resp.Conversations))
	}
}

func TestMessages(t *testing.T) {
	messages := memory.NewMessageStore()
	svc := NewConversationService(messages, directory.NewMemory(), nil, logger.NewNop())
	ctx := context.Background()

	messages.CreateMessage(ctx, "alice", "bob", "first", nil)
	messages.CreateMessage(ctx, "bob", "alice", "second", nil)

	resp, err := svc.Messages(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}
	if len(resp.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(resp.Messages))
	}
	if resp.Messages[0].Content != "first" {
		t.Errorf("messages not ascending: first is %q", resp.Messages[0].Content)
	}
}
