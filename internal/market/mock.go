package market

import (
	"math/rand"
	"sync"
	"time"
)

// MockFeed generates synthetic ticks for local development and tests.
type MockFeed struct {
	Symbols    []string
	StartPrice float64
	Step       float64
	Interval   time.Duration
}

// NewMockFeed returns a mock feed ticking at the given interval. Zero
// values fall back to usable defaults on Subscribe.
func NewMockFeed(interval time.Duration) *MockFeed {
	return &MockFeed{Interval: interval}
}

// Subscribe emits a random walk per symbol until stopped.
func (m *MockFeed) Subscribe(symbols []string) (<-chan Tick, func(), error) {
	if len(symbols) == 0 {
		symbols = m.Symbols
	}
	if len(symbols) == 0 {
		symbols = []string{"BTCUSDT"}
	}
	start := m.StartPrice
	if start == 0 {
		start = 100.0
	}
	step := m.Step
	if step == 0 {
		step = 0.5
	}
	interval := m.Interval
	if interval == 0 {
		interval = time.Second
	}

	prices := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		prices[sym] = start
	}

	out := make(chan Tick, 64)
	done := make(chan struct{})
	var once sync.Once
	stop := func() {
		once.Do(func() { close(done) })
	}

	go func() {
		defer close(out)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case now := <-t.C:
				for _, sym := range symbols {
					prices[sym] += (rand.Float64()*2 - 1) * step
					if prices[sym] < step {
						prices[sym] = step
					}
					select {
					case out <- Tick{Symbol: sym, Price: prices[sym], Volume: rand.Float64() * 10, Timestamp: now}:
					case <-done:
						return
					}
				}
			}
		}
	}()

	return out, stop, nil
}
