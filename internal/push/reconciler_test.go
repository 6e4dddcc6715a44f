package push

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/taskhive/messaging-platform/pkg/logger"
)

type stubProvider struct {
	mu       sync.Mutex
	receipts map[string]Receipt
	err      error
	lookups  [][]string
}

func (p *stubProvider) Send(ctx context.Context, messages []Message) ([]Ticket, error) {
	return nil, nil
}

func (p *stubProvider) Receipts(ctx context.Context, ticketIDs []string) (map[string]Receipt, error) {
	p.mu.Lock()
	p.lookups = append(p.lookups, ticketIDs)
	p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return p.receipts, nil
}

func TestTrackFiltersTickets(t *testing.T) {
	r := NewReconciler(&stubProvider{}, time.Minute, logger.NewNop())

	r.Track([]Ticket{
		{ID: "a", Status: StatusOK},
		{ID: "", Status: StatusOK},
		{ID: "b", Status: StatusError, Message: "rejected"},
		{ID: "c", Status: StatusOK},
	})

	if got := r.PendingCount(); got != 2 {
		t.Errorf("expected 2 pending tickets, got %d", got)
	}
}

func TestReconcileResolvesReceipts(t *testing.T) {
	provider := &stubProvider{receipts: map[string]Receipt{
		"a": {Status: StatusOK},
		"b": {Status: StatusError, Message: "device gone", Details: map[string]any{"error": "DeviceNotRegistered"}},
	}}
	r := NewReconciler(provider, time.Minute, logger.NewNop())
	r.Track([]Ticket{{ID: "a", Status: StatusOK}, {ID: "b", Status: StatusOK}})

	r.Reconcile(context.Background())

	if got := r.PendingCount(); got != 0 {
		t.Errorf("expected no pending tickets after reconcile, got %d", got)
	}
}

func TestReconcileRequeuesMissingReceipts(t *testing.T) {
	provider := &stubProvider{receipts: map[string]Receipt{
		"a": {Status: StatusOK},
	}}
	r := NewReconciler(provider, time.Minute, logger.NewNop())
	r.Track([]Ticket{{ID: "a", Status: StatusOK}, {ID: "pending", Status: StatusOK}})

	r.Reconcile(context.Background())

	// The ticket without a receipt stays queued for the next pass.
	if got := r.PendingCount(); got != 1 {
		t.Errorf("expected 1 pending ticket, got %d", got)
	}
}

func TestReconcileRequeuesBatchOnLookupFailure(t *testing.T) {
	provider := &stubProvider{err: errors.New("provider down")}
	r := NewReconciler(provider, time.Minute, logger.NewNop())
	r.Track([]Ticket{{ID: "a", Status: StatusOK}, {ID: "b", Status: StatusOK}})

	r.Reconcile(context.Background())
	if got := r.PendingCount(); got != 2 {
		t.Errorf("expected full batch requeued, got %d pending", got)
	}

	// The lookup itself retries on the next pass; the deliveries do not.
	provider.mu.Lock()
	lookups := len(provider.lookups)
	provider.mu.Unlock()
	if lookups != 1 {
		t.Errorf("expected 1 lookup, got %d", lookups)
	}
}

func TestReconcileEmptyQueue(t *testing.T) {
	provider := &stubProvider{}
	r := NewReconciler(provider, time.Minute, logger.NewNop())

	r.Reconcile(context.Background())

	provider.mu.Lock()
	lookups := len(provider.lookups)
	provider.mu.Unlock()
	if lookups != 0 {
		t.Errorf("lookup issued with nothing pending")
	}
}

func TestReceiptErrorCode(t *testing.T) {
	if got := receiptErrorCode(Receipt{Details: map[string]any{"error": "MessageRateExceeded"}}); got != "MessageRateExceeded" {
		t.Errorf("got %q", got)
	}
	if got := receiptErrorCode(Receipt{}); got != "unknown" {
		t.Errorf("got %q", got)
	}
}
