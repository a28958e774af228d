package market

import (
	"sync"
	"time"
)

// DefaultDepth is the per-symbol ring size when none is configured.
const DefaultDepth = 200

// Cache keeps a bounded ring of recent ticks per symbol. It is the only
// market-data view the rest of the engine reads.
type Cache struct {
	mu    sync.RWMutex
	depth int
	rings map[string]*ring
}

type ring struct {
	buf   []Tick
	head  int // next write slot
	count int
	last  time.Time // newest accepted timestamp
}

// NewCache creates a cache holding up to depth ticks per symbol.
func NewCache(depth int) *Cache {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Cache{
		depth: depth,
		rings: make(map[string]*ring),
	}
}

// Append stores a tick unless an equal-or-newer sample was already recorded
// for the symbol. Returns true when the tick was accepted.
func (c *Cache) Append(t Tick) bool {
	if t.Symbol == "" || t.Price <= 0 {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.rings[t.Symbol]
	if !ok {
		r = &ring{buf: make([]Tick, c.depth)}
		c.rings[t.Symbol] = r
	}

	// At-least-once feeds redeliver; only strictly newer samples count.
	if !t.Timestamp.After(r.last) {
		return false
	}

	r.buf[r.head] = t
	r.head = (r.head + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
	r.last = t.Timestamp
	return true
}

// Recent returns up to n most recent ticks for symbol, oldest first.
func (c *Cache) Recent(symbol string, n int) []Tick {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r, ok := c.rings[symbol]
	if !ok || r.count == 0 {
		return nil
	}
	if n <= 0 || n > r.count {
		n = r.count
	}

	out := make([]Tick, n)
	start := (r.head - n + len(r.buf)) % len(r.buf)
	for i := 0; i < n; i++ {
		out[i] = r.buf[(start+i)%len(r.buf)]
	}
	return out
}

// LastPrice returns the newest price for symbol, or 0 when nothing is cached.
func (c *Cache) LastPrice(symbol string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r, ok := c.rings[symbol]
	if !ok || r.count == 0 {
		return 0
	}
	idx := (r.head - 1 + len(r.buf)) % len(r.buf)
	return r.buf[idx].Price
}

// Symbols lists symbols with at least one cached tick.
func (c *Cache) Symbols() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, 0, len(c.rings))
	for sym, r := range c.rings {
		if r.count > 0 {
			out = append(out, sym)
		}
	}
	return out
}
