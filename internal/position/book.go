package position

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// historyDepth bounds the in-memory closed-position history; the durable
// record lives with the persistence collaborator.
const historyDepth = 500

// Book owns the authoritative set of live positions, keyed by symbol.
// At most one OPEN/CLOSING position exists per symbol at any time, and at
// most one entry order may be outstanding per symbol: an entry reservation
// occupies the slot from submission until the fill or rejection arrives.
// All mutation goes through the lifecycle methods below; accessors hand out
// copies, never pointers into live state.
type Book struct {
	mu      sync.RWMutex
	active  map[string]*Position
	pending map[string]struct{} // symbols with an outstanding entry order
	history []Position
}

// NewBook creates an empty position book.
func NewBook() *Book {
	return &Book{
		active:  make(map[string]*Position),
		pending: make(map[string]struct{}),
	}
}

// ReserveEntry marks symbol as having an outstanding entry order so further
// signals for it are turned away until the order resolves.
func (b *Book) ReserveEntry(symbol string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if p, ok := b.active[symbol]; ok && p.Live() {
		return fmt.Errorf("position already %s for %s", p.Status, symbol)
	}
	if _, ok := b.pending[symbol]; ok {
		return fmt.Errorf("entry order already outstanding for %s", symbol)
	}
	b.pending[symbol] = struct{}{}
	return nil
}

// ReleaseEntry frees a reservation whose entry order was rejected or died
// in reconciliation.
func (b *Book) ReleaseEntry(symbol string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, symbol)
}

// OnEntryFilled creates a new OPEN position from an entry fill. A fill for a
// symbol that already has a live position is a protocol error: the event is
// logged and discarded, the existing position is never overwritten.
func (b *Book) OnEntryFilled(f EntryFill) (Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if existing, ok := b.active[f.Symbol]; ok && existing.Live() {
		log.Printf("position book: entry fill for %s discarded, %s position already exists", f.Symbol, existing.Status)
		return Position{}, fmt.Errorf("position already %s for %s", existing.Status, f.Symbol)
	}
	if f.Quantity <= 0 || f.Price <= 0 {
		return Position{}, fmt.Errorf("invalid entry fill for %s: qty=%.4f price=%.4f", f.Symbol, f.Quantity, f.Price)
	}
	delete(b.pending, f.Symbol) // fill consumes the reservation

	entryTime := f.Time
	if entryTime.IsZero() {
		entryTime = time.Now()
	}

	p := &Position{
		Symbol:       f.Symbol,
		Side:         f.Side,
		Quantity:     f.Quantity,
		EntryPrice:   f.Price,
		CurrentPrice: f.Price,
		StopLoss:     f.StopLoss,
		Target:       f.Target,
		Strategy:     f.Strategy,
		Status:       StatusOpen,
		EntryTime:    entryTime,
	}
	b.active[f.Symbol] = p

	log.Printf("position opened: %s %s qty=%.0f @ %.2f (SL=%.2f TP=%.2f)",
		f.Symbol, f.Side, f.Quantity, f.Price, f.StopLoss, f.Target)
	return *p, nil
}

// OnExitSubmitted transitions OPEN -> CLOSING and records the exit reason
// optimistically. A second call without an intervening fill or revert is
// rejected, so only one closing order can be outstanding per symbol.
func (b *Book) OnExitSubmitted(symbol string, reason ExitReason) (Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.active[symbol]
	if !ok {
		return Position{}, fmt.Errorf("no live position for %s", symbol)
	}
	if p.Status != StatusOpen {
		return Position{}, fmt.Errorf("position %s is %s, not OPEN", symbol, p.Status)
	}

	p.Status = StatusClosing
	p.ExitReason = reason
	return *p, nil
}

// RevertExit moves a CLOSING position back to OPEN after the exit order was
// rejected. The recorded reason is cleared; the exit monitor will re-evaluate
// on the next tick.
func (b *Book) RevertExit(symbol string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.active[symbol]
	if !ok {
		return fmt.Errorf("no live position for %s", symbol)
	}
	if p.Status != StatusClosing {
		return fmt.Errorf("position %s is %s, not CLOSING", symbol, p.Status)
	}

	p.Status = StatusOpen
	p.ExitReason = ""
	log.Printf("position %s exit rejected, reverted to OPEN", symbol)
	return nil
}

// OnExitFilled transitions CLOSING -> CLOSED, realizes P&L and removes the
// position from the active map. The closed copy is appended to the bounded
// in-memory history and returned.
func (b *Book) OnExitFilled(f ExitFill) (Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.active[f.Symbol]
	if !ok {
		return Position{}, fmt.Errorf("exit fill for %s has no matching position", f.Symbol)
	}
	if p.Status != StatusClosing {
		return Position{}, fmt.Errorf("exit fill for %s in state %s, want CLOSING", f.Symbol, p.Status)
	}

	exitTime := f.Time
	if exitTime.IsZero() {
		exitTime = time.Now()
	}

	p.Status = StatusClosed
	p.CurrentPrice = f.Price
	p.ExitTime = &exitTime
	if p.Side == SideLong {
		p.RealizedPnL = (f.Price - p.EntryPrice) * p.Quantity
	} else {
		p.RealizedPnL = (p.EntryPrice - f.Price) * p.Quantity
	}
	p.UnrealizedPnL = 0

	closed := *p
	delete(b.active, f.Symbol)
	b.history = append(b.history, closed)
	if len(b.history) > historyDepth {
		b.history = b.history[len(b.history)-historyDepth:]
	}

	log.Printf("position closed: %s %s pnl=%.2f reason=%s", closed.Symbol, closed.Side, closed.RealizedPnL, closed.ExitReason)
	return closed, nil
}

// UpdateMarketPrice recomputes unrealized P&L for the live position on
// symbol, if any. Status never changes here.
func (b *Book) UpdateMarketPrice(symbol string, price float64) {
	if price <= 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.active[symbol]
	if !ok {
		return
	}
	p.CurrentPrice = price
	if p.Side == SideLong {
		p.UnrealizedPnL = (price - p.EntryPrice) * p.Quantity
	} else {
		p.UnrealizedPnL = (p.EntryPrice - price) * p.Quantity
	}
}

// Get returns a copy of the live position for symbol.
func (b *Book) Get(symbol string) (Position, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	p, ok := b.active[symbol]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// HasLive reports whether symbol's slot is occupied: a live (OPEN or
// CLOSING) position, or an entry order still awaiting its outcome.
func (b *Book) HasLive(symbol string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if _, ok := b.pending[symbol]; ok {
		return true
	}
	p, ok := b.active[symbol]
	return ok && p.Live()
}

// PendingEntries returns the number of outstanding entry reservations.
func (b *Book) PendingEntries() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.pending)
}

// Active returns copies of all live positions.
func (b *Book) Active() []Position {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Position, 0, len(b.active))
	for _, p := range b.active {
		out = append(out, *p)
	}
	return out
}

// Open returns copies of positions currently in OPEN (not CLOSING).
func (b *Book) Open() []Position {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []Position
	for _, p := range b.active {
		if p.Status == StatusOpen {
			out = append(out, *p)
		}
	}
	return out
}

// Count returns the number of live positions.
func (b *Book) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.active)
}

// History returns copies of up to n most recently closed positions, newest last.
func (b *Book) History(n int) []Position {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n <= 0 || n > len(b.history) {
		n = len(b.history)
	}
	out := make([]Position, n)
	copy(out, b.history[len(b.history)-n:])
	return out
}

// UnrealizedTotal sums unrealized P&L over live positions.
func (b *Book) UnrealizedTotal() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var sum float64
	for _, p := range b.active {
		sum += p.UnrealizedPnL
	}
	return sum
}
