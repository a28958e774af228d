// Package builtin ships reference strategies for the execution engine.
// They derive everything from the tick window they are handed, so runs are
// reproducible from cached market data alone.
package builtin

import (
	"math"

	"execution-core/internal/market"
	"execution-core/internal/position"
	"execution-core/internal/strategy"
)

// MomentumParams tunes the momentum strategy.
type MomentumParams struct {
	Lookback   int     // ticks compared against the latest price
	Threshold  float64 // fractional move that triggers a signal, e.g. 0.003
	ExitFade   float64 // fraction of the entry move that, when lost, exits
	MinHistory int
}

// DefaultMomentumParams are tuned for the mock feed's volatility.
func DefaultMomentumParams() MomentumParams {
	return MomentumParams{
		Lookback:   20,
		Threshold:  0.003,
		ExitFade:   0.5,
		MinHistory: 30,
	}
}

// Momentum buys strength and sells weakness: a move beyond Threshold over
// the lookback window signals in the direction of the move.
type Momentum struct {
	params MomentumParams
}

func NewMomentum(params MomentumParams) *Momentum {
	if params.Lookback <= 0 {
		params = DefaultMomentumParams()
	}
	return &Momentum{params: params}
}

func (m *Momentum) Name() string { return "momentum" }

func (m *Momentum) GenerateSignals(symbol string, recent []market.Tick) ([]strategy.Signal, error) {
	if len(recent) < m.params.MinHistory {
		return nil, nil
	}

	latest := recent[len(recent)-1]
	ref := recent[len(recent)-1-m.params.Lookback]
	if ref.Price <= 0 {
		return nil, nil
	}

	move := (latest.Price - ref.Price) / ref.Price
	if math.Abs(move) < m.params.Threshold {
		return nil, nil
	}

	action := strategy.ActionBuy
	if move < 0 {
		action = strategy.ActionSell
	}

	confidence := math.Min(math.Abs(move)/(m.params.Threshold*3), 1)
	return []strategy.Signal{{
		Symbol:     symbol,
		Action:     action,
		Price:      latest.Price,
		Confidence: confidence,
		Strategy:   m.Name(),
		CreatedAt:  latest.Timestamp,
	}}, nil
}

// ShouldExit closes the position once the move that justified entry has
// faded by ExitFade.
func (m *Momentum) ShouldExit(pos *position.Position, recent []market.Tick) bool {
	if pos == nil || len(recent) == 0 || pos.EntryPrice <= 0 {
		return false
	}

	price := recent[len(recent)-1].Price
	entryMove := pos.EntryPrice * m.params.Threshold

	if pos.Side == position.SideLong {
		return price < pos.EntryPrice-entryMove*m.params.ExitFade
	}
	return price > pos.EntryPrice+entryMove*m.params.ExitFade
}
