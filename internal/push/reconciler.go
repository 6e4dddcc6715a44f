package push

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taskhive/messaging-platform/pkg/logger"
	"github.com/taskhive/messaging-platform/pkg/metrics"
)

// receiptBatchSize caps the number of ticket ids per receipt lookup.
const receiptBatchSize = 300

// Reconciler asynchronously checks outstanding push tickets against the
// provider's receipt API. It is diagnostic only: delivery errors are
// logged, never retried, and never alter message state.
type Reconciler struct {
	provider Provider
	interval time.Duration
	logger   *logger.Logger

	mu      sync.Mutex
	pending []string
}

// NewReconciler creates a reconciler polling at the given interval.
func NewReconciler(provider Provider, interval time.Duration, log *logger.Logger) *Reconciler {
	return &Reconciler{
		provider: provider,
		interval: interval,
		logger:   log,
	}
}

// Track queues successful tickets for a later receipt check.
func (r *Reconciler) Track(tickets []Ticket) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range tickets {
		if t.Status == StatusOK && t.ID != "" {
			r.pending = append(r.pending, t.ID)
		}
	}
}

// PendingCount returns the number of tickets awaiting a receipt check.
func (r *Reconciler) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Run polls until ctx is canceled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Reconcile(ctx)
		}
	}
}

// Reconcile performs one receipt pass over the pending tickets.
func (r *Reconciler) Reconcile(ctx context.Context) {
	batch := r.takeBatch()
	if len(batch) == 0 {
		return
	}

	receipts, err := r.provider.Receipts(ctx, batch)
	if err != nil {
		r.logger.Error("push receipt lookup failed",
			zap.Int("tickets", len(batch)),
			zap.Error(err),
		)
		// Put the batch back; the next pass retries the lookup itself
		// (not the deliveries).
		r.mu.Lock()
		r.pending = append(r.pending, batch...)
		r.mu.Unlock()
		return
	}

	for _, id := range batch {
		receipt, ok := receipts[id]
		if !ok {
			// Receipt not ready yet; check again next pass.
			r.mu.Lock()
			r.pending = append(r.pending, id)
			r.mu.Unlock()
			continue
		}

		if receipt.Status == StatusError {
			code := receiptErrorCode(receipt)
			metrics.PushReceiptErrors.WithLabelValues(code).Inc()
			r.logger.Warn("push delivery failed",
				zap.String("ticket_id", id),
				zap.String("code", code),
				zap.String("reason", receipt.Message),
			)
		}
	}
}

func (r *Reconciler) takeBatch() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.pending)
	if n == 0 {
		return nil
	}
	if n > receiptBatchSize {
		n = receiptBatchSize
	}

	batch := make([]string, n)
	copy(batch, r.pending[:n])
	r.pending = append(r.pending[:0], r.pending[n:]...)
	return batch
}

func receiptErrorCode(receipt Receipt) string {
	if v, ok := receipt.Details["error"]; ok {
		return fmt.Sprint(v)
	}
	return "unknown"
}
