package strategy

import (
	"time"

	"execution-core/internal/market"
	"execution-core/internal/position"
)

// Action is a strategy's recommendation for a symbol.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Signal is a trading recommendation emitted by a strategy. It is immutable
// once emitted; the risk gate derives an adjusted copy rather than mutating it.
type Signal struct {
	Symbol     string    `json:"symbol"`
	Action     Action    `json:"action"`
	Price      float64   `json:"price"`
	Confidence float64   `json:"confidence"` // 0..1
	StopLoss   float64   `json:"stop_loss,omitempty"`
	Target     float64   `json:"target,omitempty"`
	Strategy   string    `json:"strategy"`
	CreatedAt  time.Time `json:"created_at"`
}

// Strategy is the plug-in contract. Implementations must be pure functions of
// their inputs: no state shared with the engine.
type Strategy interface {
	// Name returns the registry key for this strategy.
	Name() string
	// GenerateSignals inspects recent market data and proposes trades.
	GenerateSignals(symbol string, recent []market.Tick) ([]Signal, error)
	// ShouldExit decides whether an open position owned by this strategy
	// should be closed for strategy-specific reasons.
	ShouldExit(pos *position.Position, recent []market.Tick) bool
}
