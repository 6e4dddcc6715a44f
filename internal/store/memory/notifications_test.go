package memory

import (
	"context"
	"testing"

	"github.com/taskhive/messaging-platform/internal/apperr"
	"github.com/taskhive/messaging-platform/internal/model"
)

func strPtr(s string) *string { return &s }

func messageNotification(userID string) *model.CreateNotificationRequest {
	return &model.CreateNotificationRequest{
		UserID:     userID,
		Type:       model.NotificationMessage,
		Text:       "New message from Carol",
		SenderID:   "carol",
		SenderName: "Carol",
	}
}

func TestCreateNotification(t *testing.T) {
	s := NewNotificationStore()

	n, err := s.CreateNotification(context.Background(), &model.CreateNotificationRequest{
		UserID:     "alice",
		Type:       model.NotificationOffer,
		TaskID:     strPtr("task-1"),
		OfferID:    strPtr("offer-1"),
		Text:       "Bob made an offer on your task",
		SenderID:   "bob",
		SenderName: "Bob",
	})
	if err != nil {
		t.Fatalf("CreateNotification failed: %v", err)
	}
	if n.ID == "" {
		t.Error("expected a generated id")
	}
	if n.Read {
		t.Error("expected read=false on a new notification")
	}
	if n.SenderName != "Bob" {
		t.Errorf("sender name not carried: %q", n.SenderName)
	}
}

func TestCreateNotificationValidation(t *testing.T) {
	s := NewNotificationStore()
	ctx := context.Background()

	tests := []struct {
		name string
		req  *model.CreateNotificationRequest
	}{
		{"invalid type", &model.CreateNotificationRequest{
			UserID: "alice", Type: "bogus", Text: "x", SenderID: "bob",
		}},
		{"offer without offer ref", &model.CreateNotificationRequest{
			UserID: "alice", Type: model.NotificationOffer, TaskID: strPtr("task-1"),
			Text: "x", SenderID: "bob",
		}},
		{"offer_accepted without task ref", &model.CreateNotificationRequest{
			UserID: "alice", Type: model.NotificationOfferAccepted, OfferID: strPtr("offer-1"),
			Text: "x", SenderID: "bob",
		}},
		{"missing user", &model.CreateNotificationRequest{
			Type: model.NotificationMessage, Text: "x", SenderID: "bob",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateNotification(ctx, tt.req)
			if !apperr.IsValidation(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestMarkNotificationReadOwnership(t *testing.T) {
	s := NewNotificationStore()
	ctx := context.Background()

	n, err := s.CreateNotification(ctx, messageNotification("alice"))
	if err != nil {
		t.Fatalf("CreateNotification failed: %v", err)
	}

	// A different user marking someone else's notification gets the same
	// not-found as a missing id, and the record stays unread.
	if _, err := s.MarkRead(ctx, n.ID, "mallory"); !apperr.IsNotFound(err) {
		t.Errorf("expected not-found for cross-user mark, got %v", err)
	}
	count, _ := s.CountUnread(ctx, "alice")
	if count != 1 {
		t.Errorf("notification mutated by rejected mark, unread=%d", count)
	}

	updated, err := s.MarkRead(ctx, n.ID, "alice")
	if err != nil {
		t.Fatalf("owner MarkRead failed: %v", err)
	}
	if !updated.Read {
		t.Error("expected read=true after owner mark")
	}
}

func TestMarkNotificationReadMissing(t *testing.T) {
	s := NewNotificationStore()
	if _, err := s.MarkRead(context.Background(), "missing", "alice"); !apperr.IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestListForUserOrdering(t *testing.T) {
	s := NewNotificationStore()
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		n, err := s.CreateNotification(ctx, messageNotification("alice"))
		if err != nil {
			t.Fatalf("CreateNotification failed: %v", err)
		}
		ids = append(ids, n.ID)
	}
	s.CreateNotification(ctx, messageNotification("bob"))

	list, err := s.ListForUser(ctx, "alice")
	if err != nil {
		t.Fatalf("ListForUser failed: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(list))
	}
	// Newest first.
	for i, want := range []string{ids[2], ids[1], ids[0]} {
		if list[i].ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, list[i].ID)
		}
	}
}

func TestCountUnreadAndClear(t *testing.T) {
	s := NewNotificationStore()
	ctx := context.Background()

	n1, _ := s.CreateNotification(ctx, messageNotification("alice"))
	s.CreateNotification(ctx, messageNotification("alice"))
	s.CreateNotification(ctx, messageNotification("bob"))

	count, err := s.CountUnread(ctx, "alice")
	if err != nil {
		t.Fatalf("CountUnread failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 unread, got %d", count)
	}

	s.MarkRead(ctx, n1.ID, "alice")
	if count, _ = s.CountUnread(ctx, "alice"); count != 1 {
		t.Errorf("expected 1 unread after mark, got %d", count)
	}

	if err := s.Clear(ctx, "alice"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	list, _ := s.ListForUser(ctx, "alice")
	if len(list) != 0 {
		t.Errorf("expected no notifications after clear, got %d", len(list))
	}

	// Other users' notifications are untouched.
	if list, _ = s.ListForUser(ctx, "bob"); len(list) != 1 {
		t.Errorf("clear leaked into another user's notifications")
	}
}
