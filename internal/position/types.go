package position

import "time"

// Side encodes position direction; quantity is always positive.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Status is the lifecycle state of a position. Transitions are strictly
// OPEN -> CLOSING -> CLOSED; nothing skips CLOSING.
type Status string

const (
	StatusOpen    Status = "OPEN"
	StatusClosing Status = "CLOSING"
	StatusClosed  Status = "CLOSED"
)

// ExitReason records why a position was (or is being) closed.
type ExitReason string

const (
	ExitStopLoss   ExitReason = "STOP_LOSS"
	ExitTakeProfit ExitReason = "TAKE_PROFIT"
	ExitStrategy   ExitReason = "STRATEGY_EXIT"
	ExitRiskLimit  ExitReason = "RISK_LIMIT_EXIT"
	ExitSessionEnd ExitReason = "SESSION_END"
)

// Position is an open or recently-closed holding in one instrument, tracked
// from entry fill to exit fill.
type Position struct {
	Symbol        string     `json:"symbol"`
	Side          Side       `json:"side"`
	Quantity      float64    `json:"quantity"`
	EntryPrice    float64    `json:"entry_price"`
	CurrentPrice  float64    `json:"current_price"`
	UnrealizedPnL float64    `json:"unrealized_pnl"`
	RealizedPnL   float64    `json:"realized_pnl"`
	StopLoss      float64    `json:"stop_loss"`
	Target        float64    `json:"target"`
	Strategy      string     `json:"strategy"`
	Status        Status     `json:"status"`
	EntryTime     time.Time  `json:"entry_time"`
	ExitTime      *time.Time `json:"exit_time,omitempty"`
	ExitReason    ExitReason `json:"exit_reason,omitempty"`
}

// Live reports whether the position still occupies its symbol's slot.
func (p *Position) Live() bool {
	return p.Status == StatusOpen || p.Status == StatusClosing
}

// EntryFill carries the broker confirmation that opens a position.
type EntryFill struct {
	Symbol   string
	Side     Side
	Quantity float64
	Price    float64
	StopLoss float64
	Target   float64
	Strategy string
	Time     time.Time
}

// ExitFill carries the broker confirmation that closes a position.
type ExitFill struct {
	Symbol string
	Price  float64
	Time   time.Time
}
