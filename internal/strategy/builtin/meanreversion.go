package builtin

import (
	"math"

	"execution-core/internal/market"
	"execution-core/internal/position"
	"execution-core/internal/strategy"
)

// MeanReversionParams tunes the mean-reversion strategy.
type MeanReversionParams struct {
	Window     int     // moving-average window
	EntryBands float64 // standard deviations from the mean to enter
	MinHistory int
}

func DefaultMeanReversionParams() MeanReversionParams {
	return MeanReversionParams{
		Window:     40,
		EntryBands: 2,
		MinHistory: 50,
	}
}

// MeanReversion fades extremes: a price more than EntryBands standard
// deviations from its moving average signals back toward the mean.
type MeanReversion struct {
	params MeanReversionParams
}

func NewMeanReversion(params MeanReversionParams) *MeanReversion {
	if params.Window <= 0 {
		params = DefaultMeanReversionParams()
	}
	return &MeanReversion{params: params}
}

func (m *MeanReversion) Name() string { return "mean_reversion" }

func (m *MeanReversion) GenerateSignals(symbol string, recent []market.Tick) ([]strategy.Signal, error) {
	if len(recent) < m.params.MinHistory {
		return nil, nil
	}

	window := recent[len(recent)-m.params.Window:]
	mean, stddev := meanStddev(window)
	if stddev == 0 {
		return nil, nil
	}

	latest := recent[len(recent)-1]
	z := (latest.Price - mean) / stddev
	if math.Abs(z) < m.params.EntryBands {
		return nil, nil
	}

	// Stretched above the mean: sell. Stretched below: buy.
	action := strategy.ActionSell
	if z < 0 {
		action = strategy.ActionBuy
	}

	confidence := math.Min(math.Abs(z)/(m.params.EntryBands*2), 1)
	return []strategy.Signal{{
		Symbol:     symbol,
		Action:     action,
		Price:      latest.Price,
		Confidence: confidence,
		Target:     mean,
		Strategy:   m.Name(),
		CreatedAt:  latest.Timestamp,
	}}, nil
}

// ShouldExit closes once price has crossed back through the current mean.
func (m *MeanReversion) ShouldExit(pos *position.Position, recent []market.Tick) bool {
	if pos == nil || len(recent) < m.params.Window {
		return false
	}

	mean, _ := meanStddev(recent[len(recent)-m.params.Window:])
	price := recent[len(recent)-1].Price

	if pos.Side == position.SideLong {
		return price >= mean
	}
	return price <= mean
}

func meanStddev(ticks []market.Tick) (mean, stddev float64) {
	if len(ticks) == 0 {
		return 0, 0
	}
	for _, t := range ticks {
		mean += t.Price
	}
	mean /= float64(len(ticks))

	var variance float64
	for _, t := range ticks {
		d := t.Price - mean
		variance += d * d
	}
	variance /= float64(len(ticks))
	return mean, math.Sqrt(variance)
}
