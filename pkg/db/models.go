package db

import "time"

// SessionRow is the stored form of a trading session.
type SessionRow struct {
	ID          string     `json:"id"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	Capital     float64    `json:"capital"`
	Trades      int        `json:"trades"`
	Wins        int        `json:"wins"`
	RealizedPnL float64    `json:"realized_pnl"`
	PeakEquity  float64    `json:"peak_equity"`
	MaxDrawdown float64    `json:"max_drawdown"`
	Status      string     `json:"status"`
}

// SignalRow records each signal the engine evaluated: accepted or not, and
// the rejection code when not.
type SignalRow struct {
	ID            int64     `json:"id"`
	SessionID     string    `json:"session_id"`
	Symbol        string    `json:"symbol"`
	Action        string    `json:"action"`
	Price         float64   `json:"price"`
	Confidence    float64   `json:"confidence"`
	Strategy      string    `json:"strategy"`
	Accepted      bool      `json:"accepted"`
	RejectionCode string    `json:"rejection_code,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// OrderRow is the stored form of a submitted order and its final status.
type OrderRow struct {
	ID         string     `json:"id"`
	SessionID  string     `json:"session_id"`
	Symbol     string     `json:"symbol"`
	Side       string     `json:"side"`
	Qty        float64    `json:"qty"`
	Tag        string     `json:"tag"`
	Status     string     `json:"status"`
	FillPrice  float64    `json:"fill_price"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// HistoryRow is a fully closed position.
type HistoryRow struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Symbol      string    `json:"symbol"`
	Side        string    `json:"side"`
	Qty         float64   `json:"qty"`
	EntryPrice  float64   `json:"entry_price"`
	ExitPrice   float64   `json:"exit_price"`
	StopLoss    float64   `json:"stop_loss"`
	TakeProfit  float64   `json:"take_profit"`
	RealizedPnL float64   `json:"realized_pnl"`
	Strategy    string    `json:"strategy"`
	ExitReason  string    `json:"exit_reason"`
	OpenedAt    time.Time `json:"opened_at"`
	ClosedAt    time.Time `json:"closed_at"`
}
