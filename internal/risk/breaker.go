package risk

import (
	"log"
	"sync"
)

// Breaker is the session-level risk circuit breaker. Once tripped it stays
// tripped until Reset is called at the next session start; re-evaluating a
// tripped breaker is a no-op.
type Breaker struct {
	mu           sync.Mutex
	tripped      bool
	reason       string
	maxDailyLoss float64
	maxDrawdown  float64
}

// NewBreaker creates a breaker from session limits. A limit of zero disables
// that trigger.
func NewBreaker(limits Limits) *Breaker {
	return &Breaker{
		maxDailyLoss: limits.MaxDailyLoss,
		maxDrawdown:  limits.MaxDrawdown,
	}
}

// Evaluate checks aggregate session statistics against the limits.
// It returns the tripped state and whether this particular call performed
// the trip, so the caller can run the halt sequence exactly once.
func (b *Breaker) Evaluate(dailyPnL, drawdown float64) (tripped, first bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.tripped {
		return true, false
	}

	switch {
	case b.maxDailyLoss > 0 && dailyPnL < -b.maxDailyLoss:
		b.reason = "daily loss limit exceeded"
	case b.maxDrawdown > 0 && drawdown > b.maxDrawdown:
		b.reason = "max drawdown exceeded"
	default:
		return false, false
	}

	b.tripped = true
	log.Printf("🛑 risk breaker tripped: %s (dailyPnL=%.2f drawdown=%.2f)", b.reason, dailyPnL, drawdown)
	return true, true
}

// Tripped reports the breaker state.
func (b *Breaker) Tripped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tripped
}

// Reason returns why the breaker tripped, empty if it has not.
func (b *Breaker) Reason() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reason
}

// Reset re-arms the breaker. Called at session start only.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tripped {
		log.Printf("risk breaker reset")
	}
	b.tripped = false
	b.reason = ""
}
