package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/taskhive/messaging-platform/internal/directory"
	"github.com/taskhive/messaging-platform/internal/dispatch"
	"github.com/taskhive/messaging-platform/internal/middleware"
	"github.com/taskhive/messaging-platform/internal/model"
	"github.com/taskhive/messaging-platform/internal/presence"
	"github.com/taskhive/messaging-platform/internal/service"
	"github.com/taskhive/messaging-platform/internal/store/memory"
	"github.com/taskhive/messaging-platform/pkg/logger"
)

type testEnv struct {
	router     chi.Router
	messages   *memory.MessageStore
	dispatcher *dispatch.Dispatcher
}

// asUser injects auth context the way the JWT middleware does, so the
// handlers under test see an authenticated request.
func asUser(userID string, scopes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), middleware.UserIDKey, userID)
			ctx = context.WithValue(ctx, middleware.ScopesKey, scopes)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newTestEnv(t *testing.T, userID string, scopes ...string) *testEnv {
	t.Helper()

	log := logger.NewNop()
	messages := memory.NewMessageStore()
	notifications := memory.NewNotificationStore()
	dir := directory.NewMemory()
	dir.Put(directory.User{ID: "alice", Name: "Alice"})
	dir.Put(directory.User{ID: "bob", Name: "Bob"})

	dispatcher := dispatch.New(messages, notifications, presence.NewRegistry(), dir, dispatch.Options{}, log)

	convHandler := NewConversationHandler(
		service.NewConversationService(messages, dir, nil, log), dispatcher, log)
	notifHandler := NewNotificationHandler(
		service.NewNotificationService(notifications, log), dispatcher, log)

	r := chi.NewRouter()
	r.Use(asUser(userID, scopes...))
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", convHandler.List)
			r.Get("/{peerID}/messages", convHandler.Messages)
			r.Post("/{peerID}/read", convHandler.MarkRead)
		})
		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", notifHandler.List)
			r.Get("/unread-count", notifHandler.UnreadCount)
			r.Post("/{id}/read", notifHandler.MarkRead)
			r.Delete("/", notifHandler.Clear)
			r.With(middleware.RequireScope("notifications:write")).Post("/", notifHandler.Create)
		})
	})

	return &testEnv{router: r, messages: messages, dispatcher: dispatcher}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestListConversations(t *testing.T) {
	env := newTestEnv(t, "alice")
	ctx := context.Background()

	env.messages.CreateMessage(ctx, "bob", "alice", "hey alice", nil)

	rec := env.do(t, http.MethodGet, "/api/v1/conversations", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp model.ListConversationsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if len(resp.Conversations) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(resp.Conversations))
	}
	c := resp.Conversations[0]
	if c.PeerID != "bob" || c.PeerName != "Bob" || c.UnreadCount != 1 || c.LastMessage != "hey alice" {
		t.Errorf("unexpected conversation: %+v", c)
	}
}

func TestConversationMessagesRoundTrip(t *testing.T) {
	env := newTestEnv(t, "alice")
	ctx := context.Background()

	env.messages.CreateMessage(ctx, "alice", "bob", "one", nil)
	env.messages.CreateMessage(ctx, "bob", "alice", "two", nil)

	rec := env.do(t, http.MethodGet, "/api/v1/conversations/bob/messages", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp model.ListMessagesResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Messages) != 2 || resp.Messages[0].Content != "one" {
		t.Errorf("unexpected messages: %+v", resp.Messages)
	}
}

func TestMarkConversationRead(t *testing.T) {
	env := newTestEnv(t, "alice")
	ctx := context.Background()

	msg, _ := env.messages.CreateMessage(ctx, "bob", "alice", "unread", nil)

	rec := env.do(t, http.MethodPost, "/api/v1/conversations/bob/read", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	stored, _ := env.messages.GetMessage(ctx, msg.ID)
	if !stored.Read {
		t.Error("message not marked read")
	}

	// Repeat is a no-op, not an error.
	if rec := env.do(t, http.MethodPost, "/api/v1/conversations/bob/read", ""); rec.Code != http.StatusNoContent {
		t.Errorf("repeat mark-read returned %d", rec.Code)
	}
}

func TestNotificationLifecycle(t *testing.T) {
	env := newTestEnv(t, "alice", "notifications:write")

	body := `{"user_id":"alice","type":"offer","task_id":"task-1","offer_id":"offer-1","text":"New offer","sender_id":"bob","sender_name":"Bob"}`
	rec := env.do(t, http.MethodPost, "/api/v1/notifications", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created model.Notification
	json.Unmarshal(rec.Body.Bytes(), &created)

	rec = env.do(t, http.MethodGet, "/api/v1/notifications/unread-count", "")
	var count model.UnreadCountResponse
	json.Unmarshal(rec.Body.Bytes(), &count)
	if count.Count != 1 {
		t.Errorf("expected 1 unread, got %d", count.Count)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/notifications/"+created.ID+"/read", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("mark read returned %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/api/v1/notifications", "")
	var list model.ListNotificationsResponse
	json.Unmarshal(rec.Body.Bytes(), &list)
	if len(list.Notifications) != 1 || !list.Notifications[0].Read {
		t.Errorf("unexpected list: %+v", list.Notifications)
	}

	rec = env.do(t, http.MethodDelete, "/api/v1/notifications", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("clear returned %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/v1/notifications", "")
	json.Unmarshal(rec.Body.Bytes(), &list)
	if len(list.Notifications) != 0 {
		t.Errorf("notifications survived clear: %+v", list.Notifications)
	}
}

func TestCreateNotificationRequiresScope(t *testing.T) {
	env := newTestEnv(t, "alice")

	body := `{"user_id":"alice","type":"message","text":"x","sender_id":"bob"}`
	rec := env.do(t, http.MethodPost, "/api/v1/notifications", body)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 without scope, got %d", rec.Code)
	}
}

func TestCreateNotificationValidation(t *testing.T) {
	env := newTestEnv(t, "alice", "notifications:write")

	// Offer notification without its offer reference.
	body := `{"user_id":"alice","type":"offer","task_id":"task-1","text":"x","sender_id":"bob"}`
	rec := env.do(t, http.MethodPost, "/api/v1/notifications", body)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/api/v1/notifications", "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestMarkNotificationReadWrongOwner(t *testing.T) {
	env := newTestEnv(t, "mallory", "notifications:write")

	body := `{"user_id":"alice","type":"message","text":"x","sender_id":"bob","sender_name":"Bob"}`
	rec := env.do(t, http.MethodPost, "/api/v1/notifications", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("setup create returned %d", rec.Code)
	}
	var created model.Notification
	json.Unmarshal(rec.Body.Bytes(), &created)

	// mallory is authenticated but does not own alice's notification.
	rec = env.do(t, http.MethodPost, "/api/v1/notifications/"+created.ID+"/read", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for cross-user mark, got %d", rec.Code)
	}
}

func TestMessagesInvalidPeerID(t *testing.T) {
	env := newTestEnv(t, "alice")

	longID := strings.Repeat("x", 80)
	rec := env.do(t, http.MethodGet, "/api/v1/conversations/"+longID+"/messages", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for oversized peer id, got %d", rec.Code)
	}
}
