package push

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/taskhive/messaging-platform/pkg/logger"
)

func testMessages(n int) []Message {
	msgs := make([]Message, n)
	for i := range msgs {
		msgs[i] = Message{To: fmt.Sprintf("token-%d", i), Body: "hi"}
	}
	return msgs
}

func TestSendSingleChunk(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/push/send" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")

		var batch []Message
		if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		tickets := make([]Ticket, len(batch))
		for i := range batch {
			tickets[i] = Ticket{ID: fmt.Sprintf("id-%d", i), Status: StatusOK}
		}
		json.NewEncoder(w).Encode(sendResponse{Data: tickets})
	}))
	defer server.Close()

	client := NewExpoClient(server.URL, "secret-token", logger.NewNop())
	tickets, err := client.Send(context.Background(), testMessages(3))
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if len(tickets) != 3 {
		t.Fatalf("expected 3 tickets, got %d", len(tickets))
	}
	if tickets[0].Status != StatusOK || tickets[0].ID != "id-0" {
		t.Errorf("unexpected ticket: %+v", tickets[0])
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("access token not sent, got %q", gotAuth)
	}
}

func TestSendChunking(t *testing.T) {
	var mu sync.Mutex
	var chunkSizes []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var batch []Message
		json.NewDecoder(r.Body).Decode(&batch)
		mu.Lock()
		chunkSizes = append(chunkSizes, len(batch))
		mu.Unlock()

		tickets := make([]Ticket, len(batch))
		for i := range tickets {
			tickets[i] = Ticket{ID: fmt.Sprintf("id-%d", i), Status: StatusOK}
		}
		json.NewEncoder(w).Encode(sendResponse{Data: tickets})
	}))
	defer server.Close()

	client := NewExpoClient(server.URL, "", logger.NewNop())
	tickets, err := client.Send(context.Background(), testMessages(250))
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if len(tickets) != 250 {
		t.Fatalf("expected 250 tickets, got %d", len(tickets))
	}

	want := []int{100, 100, 50}
	if len(chunkSizes) != len(want) {
		t.Fatalf("expected %d requests, got %d: %v", len(want), len(chunkSizes), chunkSizes)
	}
	for i, size := range want {
		if chunkSizes[i] != size {
			t.Errorf("chunk %d: expected %d messages, got %d", i, size, chunkSizes[i])
		}
	}
}

func TestSendFailedChunkDoesNotBlockOthers(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		var batch []Message
		json.NewDecoder(r.Body).Decode(&batch)
		tickets := make([]Ticket, len(batch))
		for i := range tickets {
			tickets[i] = Ticket{ID: fmt.Sprintf("id-%d", i), Status: StatusOK}
		}
		json.NewEncoder(w).Encode(sendResponse{Data: tickets})
	}))
	defer server.Close()

	client := NewExpoClient(server.URL, "", logger.NewNop())
	tickets, err := client.Send(context.Background(), testMessages(150))
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if len(tickets) != 150 {
		t.Fatalf("expected 150 tickets, got %d", len(tickets))
	}

	// First 100 come from the failed chunk.
	for i := 0; i < 100; i++ {
		if tickets[i].Status != StatusError {
			t.Fatalf("ticket %d: expected error status, got %q", i, tickets[i].Status)
		}
	}
	for i := 100; i < 150; i++ {
		if tickets[i].Status != StatusOK {
			t.Fatalf("ticket %d: expected ok status, got %q", i, tickets[i].Status)
		}
	}
}

func TestReceipts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/push/getReceipts" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req receiptsRequest
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.IDs) != 2 {
			t.Errorf("expected 2 ids, got %v", req.IDs)
		}
		json.NewEncoder(w).Encode(receiptsResponse{Data: map[string]Receipt{
			"a": {Status: StatusOK},
			"b": {Status: StatusError, Message: "device gone", Details: map[string]any{"error": "DeviceNotRegistered"}},
		}})
	}))
	defer server.Close()

	client := NewExpoClient(server.URL, "", logger.NewNop())
	receipts, err := client.Receipts(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Receipts failed: %v", err)
	}
	if receipts["a"].Status != StatusOK {
		t.Errorf("receipt a: %+v", receipts["a"])
	}
	if receipts["b"].Status != StatusError || receipts["b"].Details["error"] != "DeviceNotRegistered" {
		t.Errorf("receipt b: %+v", receipts["b"])
	}
}

func TestReceiptsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewExpoClient(server.URL, "", logger.NewNop())
	if _, err := client.Receipts(context.Background(), []string{"a"}); err == nil {
		t.Error("expected an error for a 500 response")
	}
}
