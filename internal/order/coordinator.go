package order

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"execution-core/internal/position"
	"execution-core/internal/risk"
)

// DefaultBrokerTimeout bounds every gateway call.
const DefaultBrokerTimeout = 5 * time.Second

// outcomeDeliveryTimeout bounds how long a resolved outcome waits for the
// consumer before being declared lost.
const outcomeDeliveryTimeout = 30 * time.Second

const (
	tagEntryPrefix = "entry:"
	tagExitPrefix  = "exit:"
)

// pending tracks an in-flight submission until its notification arrives.
type pending struct {
	exit       bool
	symbol     string
	side       position.Side
	quantity   float64
	stopLoss   float64
	target     float64
	strategy   string
	exitReason position.ExitReason
	submitted  time.Time
}

// Coordinator converts accepted signals into broker orders and correlates
// the asynchronous fill/reject notifications back into outcomes. Submission
// is fire-and-forget: the scheduler loops never block on the broker.
type Coordinator struct {
	gateway Gateway
	timeout time.Duration
	limiter *rate.Limiter

	mu      sync.Mutex
	pending map[string]pending

	outcomes   chan Outcome
	reconciler *Reconciler

	wg sync.WaitGroup
}

// NewCoordinator builds a coordinator around the given gateway. A timeout of
// zero uses DefaultBrokerTimeout.
func NewCoordinator(gateway Gateway, timeout time.Duration) *Coordinator {
	if timeout <= 0 {
		timeout = DefaultBrokerTimeout
	}
	c := &Coordinator{
		gateway: gateway,
		timeout: timeout,
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 10),
		pending: make(map[string]pending),
		outcomes: make(chan Outcome, 256),
	}
	c.reconciler = NewReconciler(gateway, c.resolveReconciled)
	return c
}

// Outcomes streams resolved fills and rejections. The engine consumes this
// through its serialization point.
func (c *Coordinator) Outcomes() <-chan Outcome {
	return c.outcomes
}

// Start begins consuming gateway notifications and running reconciliation.
func (c *Coordinator) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case n, ok := <-c.gateway.Notifications():
				if !ok {
					return
				}
				c.handleNotification(n)
			}
		}
	}()
	c.reconciler.Start(ctx)
}

// Drain waits for in-flight submissions to finish. Called during shutdown so
// late notifications are still routed rather than orphaned.
func (c *Coordinator) Drain() {
	c.wg.Wait()
}

// PendingCount returns the number of unresolved submissions.
func (c *Coordinator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// SubmitEntry places an entry order for an accepted, sized signal.
func (c *Coordinator) SubmitEntry(adj *risk.AdjustedSignal) (string, error) {
	side := SideBuy
	posSide := position.SideLong
	if adj.Signal.Action == "SELL" {
		side = SideSell
		posSide = position.SideShort
	}

	id := uuid.NewString()
	c.track(id, pending{
		symbol:    adj.Signal.Symbol,
		side:      posSide,
		quantity:  adj.Quantity,
		stopLoss:  adj.StopLoss,
		target:    adj.Target,
		strategy:  adj.Signal.Strategy,
		submitted: time.Now(),
	})

	c.submit(Request{
		ID:       id,
		Symbol:   adj.Signal.Symbol,
		Side:     side,
		Quantity: adj.Quantity,
		Type:     "MARKET",
		Tag:      tagEntryPrefix + adj.Signal.Strategy,
	})
	return id, nil
}

// SubmitExit places a closing order for a live position. The exit tag prefix
// lets fills route to close handling without ambiguity.
func (c *Coordinator) SubmitExit(pos position.Position, reason position.ExitReason) (string, error) {
	if pos.Quantity <= 0 {
		return "", fmt.Errorf("exit for %s with non-positive quantity", pos.Symbol)
	}

	side := SideSell
	if pos.Side == position.SideShort {
		side = SideBuy
	}

	id := uuid.NewString()
	c.track(id, pending{
		exit:       true,
		symbol:     pos.Symbol,
		side:       pos.Side,
		quantity:   pos.Quantity,
		strategy:   pos.Strategy,
		exitReason: reason,
		submitted:  time.Now(),
	})

	c.submit(Request{
		ID:       id,
		Symbol:   pos.Symbol,
		Side:     side,
		Quantity: pos.Quantity,
		Type:     "MARKET",
		Tag:      tagExitPrefix + string(reason),
	})
	return id, nil
}

func (c *Coordinator) track(id string, p pending) {
	c.mu.Lock()
	c.pending[id] = p
	c.mu.Unlock()
}

// submit sends the request to the gateway without blocking the caller. A
// timed-out call has an unknown outcome and is handed to the reconciler; it
// must never be assumed filled or rejected.
func (c *Coordinator) submit(req Request) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		if err := c.limiter.Wait(context.Background()); err != nil {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()

		ack, err := c.gateway.PlaceOrder(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				log.Printf("order %s: submission timed out, scheduling reconciliation", req.ID)
				c.reconciler.Track(req.ID)
				return
			}
			log.Printf("order %s: submission failed: %v", req.ID, err)
			c.rejectLocally(req.ID, err.Error())
			return
		}
		log.Printf("order placed: %s %s %s qty=%.0f (tag=%s status=%s)",
			req.ID, req.Side, req.Symbol, req.Quantity, req.Tag, ack.Status)
	}()
}

// rejectLocally resolves a submission that never reached the broker.
func (c *Coordinator) rejectLocally(orderID, reason string) {
	c.handleNotification(Notification{
		OrderID: orderID,
		Kind:    NotifRejected,
		Reason:  reason,
		Time:    time.Now(),
	})
}

// handleNotification correlates a broker callback with its pending
// submission and emits the outcome. A notification with no matching pending
// order is an invariant violation: logged and discarded, never fatal.
func (c *Coordinator) handleNotification(n Notification) {
	c.mu.Lock()
	p, ok := c.pending[n.OrderID]
	if ok {
		delete(c.pending, n.OrderID)
	}
	c.mu.Unlock()

	if !ok {
		log.Printf("order notification for unknown order %s (%s) discarded", n.OrderID, n.Kind)
		return
	}
	c.reconciler.Forget(n.OrderID)

	out := Outcome{
		OrderID:    n.OrderID,
		Symbol:     p.symbol,
		Side:       p.side,
		Quantity:   p.quantity,
		Price:      n.Price,
		StopLoss:   p.stopLoss,
		Target:     p.target,
		Strategy:   p.strategy,
		ExitReason: p.exitReason,
		Reason:     n.Reason,
		Submitted:  p.submitted,
		Time:       n.Time,
	}
	if n.Quantity > 0 {
		out.Quantity = n.Quantity
	}

	switch {
	case p.exit && n.Kind == NotifFilled:
		out.Kind = OutcomeExitFilled
	case p.exit:
		out.Kind = OutcomeExitRejected
	case n.Kind == NotifFilled:
		out.Kind = OutcomeEntryFilled
	default:
		out.Kind = OutcomeEntryRejected
	}

	// A dropped outcome would orphan a broker fill or strand a CLOSING
	// position, so delivery waits for the consumer rather than dropping.
	// The deadline only guards against a consumer that is gone entirely.
	select {
	case c.outcomes <- out:
	case <-time.After(outcomeDeliveryTimeout):
		log.Printf("❌ outcome consumer stalled for %v, lost %s for %s", outcomeDeliveryTimeout, out.Kind, out.Symbol)
	}
}

// resolveReconciled maps a reconciliation result onto the normal
// notification path.
func (c *Coordinator) resolveReconciled(orderID string, report *StatusReport) {
	n := Notification{OrderID: orderID, Time: time.Now()}
	if report != nil && strings.EqualFold(report.Status, "FILLED") {
		n.Kind = NotifFilled
		n.Price = report.Price
		n.Quantity = report.Quantity
	} else {
		n.Kind = NotifRejected
		n.Reason = "unresolved after reconciliation"
		if report != nil {
			n.Reason = "broker reported " + report.Status
		}
	}
	c.handleNotification(n)
}
