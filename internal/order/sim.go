package order

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// PriceSource supplies the latest market price for simulated fills.
// *market.Cache satisfies this.
type PriceSource interface {
	LastPrice(symbol string) float64
}

// SimGateway is an in-process broker used in simulation mode and tests.
// Market orders fill asynchronously at the latest cached price with
// configurable slippage and latency.
type SimGateway struct {
	prices      PriceSource
	slippageBps float64
	latency     time.Duration

	mu     sync.Mutex
	orders map[string]StatusReport
	notifs chan Notification
	closed bool
}

// NewSimGateway creates a simulated gateway.
func NewSimGateway(prices PriceSource, slippageBps float64, latency time.Duration) *SimGateway {
	return &SimGateway{
		prices:      prices,
		slippageBps: slippageBps,
		latency:     latency,
		orders:      make(map[string]StatusReport),
		notifs:      make(chan Notification, 256),
	}
}

// PlaceOrder accepts the order and schedules an asynchronous fill.
func (g *SimGateway) PlaceOrder(ctx context.Context, req Request) (*Ack, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("sim gateway: non-positive quantity for %s", req.Symbol)
	}

	price := g.prices.LastPrice(req.Symbol)
	if price <= 0 {
		g.record(req.ID, StatusReport{OrderID: req.ID, Status: "REJECTED"})
		g.notify(Notification{
			OrderID: req.ID,
			Symbol:  req.Symbol,
			Kind:    NotifRejected,
			Reason:  fmt.Sprintf("no market price for %s", req.Symbol),
			Time:    time.Now(),
		})
		return &Ack{OrderID: req.ID, Status: "ACCEPTED"}, nil
	}

	// Slippage works against the taker on both sides.
	slip := price * g.slippageBps / 10000
	fillPrice := price + slip
	if req.Side == SideSell {
		fillPrice = price - slip
	}

	g.record(req.ID, StatusReport{OrderID: req.ID, Status: "PENDING"})

	go func() {
		if g.latency > 0 {
			time.Sleep(g.latency)
		}
		g.record(req.ID, StatusReport{OrderID: req.ID, Status: "FILLED", Price: fillPrice, Quantity: req.Quantity})
		g.notify(Notification{
			OrderID:  req.ID,
			Symbol:   req.Symbol,
			Kind:     NotifFilled,
			Price:    fillPrice,
			Quantity: req.Quantity,
			Time:     time.Now(),
		})
	}()

	return &Ack{OrderID: req.ID, Status: "ACCEPTED"}, nil
}

// OrderStatus reports the simulated order state.
func (g *SimGateway) OrderStatus(ctx context.Context, orderID string) (*StatusReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if rep, ok := g.orders[orderID]; ok {
		return &rep, nil
	}
	return &StatusReport{OrderID: orderID, Status: "UNKNOWN"}, nil
}

// Notifications streams simulated fills and rejections.
func (g *SimGateway) Notifications() <-chan Notification {
	return g.notifs
}

// Close stops the notification stream.
func (g *SimGateway) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.closed {
		g.closed = true
		close(g.notifs)
	}
}

func (g *SimGateway) record(id string, rep StatusReport) {
	g.mu.Lock()
	g.orders[id] = rep
	g.mu.Unlock()
}

func (g *SimGateway) notify(n Notification) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	select {
	case g.notifs <- n:
	default:
	}
}
