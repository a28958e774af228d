package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"execution-core/internal/position"
)

// Status of a trading session.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
)

// Session aggregates one engine run. It is persisted once at start and once
// at stop, not on every trade.
type Session struct {
	ID          string     `json:"id"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	Capital     float64    `json:"capital"`
	Trades      int        `json:"trades"`
	Wins        int        `json:"wins"`
	RealizedPnL float64    `json:"realized_pnl"`
	PeakEquity  float64    `json:"peak_equity"`
	MaxDrawdown float64    `json:"max_drawdown"`
	Status      Status     `json:"status"`
}

// Tracker maintains the running session statistics: realized P&L, daily P&L
// for the breaker, and drawdown from peak equity. Daily figures come from
// real aggregation of closed trades, not a placeholder.
type Tracker struct {
	mu       sync.Mutex
	sess     Session
	dailyPnL float64
	day      string // YYYY-MM-DD the daily counter belongs to
}

// NewTracker starts a session with the given capital.
func NewTracker(capital float64) *Tracker {
	now := time.Now()
	return &Tracker{
		sess: Session{
			ID:         uuid.NewString(),
			StartedAt:  now,
			Capital:    capital,
			PeakEquity: capital,
			Status:     StatusActive,
		},
		day: now.Format("2006-01-02"),
	}
}

// ApplyClosed folds a closed position into the session statistics.
func (t *Tracker) ApplyClosed(p position.Position) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rollDayLocked(time.Now())

	t.sess.Trades++
	if p.RealizedPnL > 0 {
		t.sess.Wins++
	}
	t.sess.RealizedPnL += p.RealizedPnL
	t.dailyPnL += p.RealizedPnL

	equity := t.sess.Capital + t.sess.RealizedPnL
	if equity > t.sess.PeakEquity {
		t.sess.PeakEquity = equity
	}
	if dd := t.sess.PeakEquity - equity; dd > t.sess.MaxDrawdown {
		t.sess.MaxDrawdown = dd
	}
}

// DailyPnL returns realized P&L accumulated today.
func (t *Tracker) DailyPnL() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollDayLocked(time.Now())
	return t.dailyPnL
}

// Drawdown returns the current decline from peak equity.
func (t *Tracker) Drawdown() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sess.PeakEquity - (t.sess.Capital + t.sess.RealizedPnL)
}

// AccountBalance returns capital plus realized P&L. Satisfies the risk
// gate's account provider.
func (t *Tracker) AccountBalance() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sess.Capital + t.sess.RealizedPnL
}

// ResetDaily zeroes the daily counter; scheduled at midnight.
func (t *Tracker) ResetDaily() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dailyPnL = 0
	t.day = time.Now().Format("2006-01-02")
}

// rollDayLocked resets the daily counter when the calendar day changed.
func (t *Tracker) rollDayLocked(now time.Time) {
	if d := now.Format("2006-01-02"); d != t.day {
		t.dailyPnL = 0
		t.day = d
	}
}

// Snapshot returns a copy of the running session.
func (t *Tracker) Snapshot() Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sess
}

// Complete marks the session finished and returns the final record.
func (t *Tracker) Complete() Session {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sess.Status == StatusActive {
		now := time.Now()
		t.sess.EndedAt = &now
		t.sess.Status = StatusCompleted
	}
	return t.sess
}
