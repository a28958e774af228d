package order

import (
	"context"
	"log"
	"sync"
	"time"
)

// reconcile parameters: an unknown-outcome order is polled a bounded number
// of times before being declared dead.
const (
	reconcileInterval = 10 * time.Second
	reconcileAttempts = 6
)

// Reconciler resolves orders whose submission timed out. The broker may have
// accepted such an order even though we never saw the acknowledgment, so the
// outcome is queried rather than assumed; a phantom position must never be
// created from a guess.
type Reconciler struct {
	gateway Gateway
	resolve func(orderID string, report *StatusReport)

	mu       sync.Mutex
	tracked  map[string]int // orderID -> attempts so far
	interval time.Duration
}

// NewReconciler creates a reconciler that reports resolutions through the
// given callback.
func NewReconciler(gateway Gateway, resolve func(string, *StatusReport)) *Reconciler {
	return &Reconciler{
		gateway:  gateway,
		resolve:  resolve,
		tracked:  make(map[string]int),
		interval: reconcileInterval,
	}
}

// Track enrolls an unknown-outcome order for status polling.
func (r *Reconciler) Track(orderID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tracked[orderID]; !ok {
		r.tracked[orderID] = 0
	}
}

// Forget drops an order, typically because its notification arrived after all.
func (r *Reconciler) Forget(orderID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tracked, orderID)
}

// Pending returns the number of orders awaiting reconciliation.
func (r *Reconciler) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tracked)
}

// Start begins the polling loop.
func (r *Reconciler) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.sweep(ctx)
			}
		}
	}()
}

// sweep polls each tracked order once.
func (r *Reconciler) sweep(ctx context.Context) {
	r.mu.Lock()
	ids := make([]string, 0, len(r.tracked))
	for id := range r.tracked {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		callCtx, cancel := context.WithTimeout(ctx, DefaultBrokerTimeout)
		report, err := r.gateway.OrderStatus(callCtx, id)
		cancel()

		if err == nil && report != nil && report.Status != "PENDING" && report.Status != "UNKNOWN" {
			log.Printf("reconciler: order %s resolved as %s", id, report.Status)
			r.Forget(id)
			r.resolve(id, report)
			continue
		}
		if err != nil {
			log.Printf("reconciler: status query for %s failed: %v", id, err)
		}

		r.mu.Lock()
		r.tracked[id]++
		attempts := r.tracked[id]
		r.mu.Unlock()

		if attempts >= reconcileAttempts {
			log.Printf("❌ reconciler: order %s unresolved after %d attempts, treating as rejected", id, attempts)
			r.Forget(id)
			r.resolve(id, nil)
		}
	}
}
