package risk

import (
	"execution-core/internal/market"
	"execution-core/internal/position"
	"execution-core/internal/strategy"
)

// EvaluateExit decides whether an OPEN position must be closed at the given
// price. Checks run in fixed priority order and the first match wins:
// stop-loss, then take-profit, then the owning strategy's exit predicate.
func EvaluateExit(pos position.Position, price float64, recent []market.Tick, strat strategy.Strategy) (position.ExitReason, bool) {
	if price <= 0 {
		return "", false
	}

	if pos.StopLoss > 0 {
		if pos.Side == position.SideLong && price <= pos.StopLoss {
			return position.ExitStopLoss, true
		}
		if pos.Side == position.SideShort && price >= pos.StopLoss {
			return position.ExitStopLoss, true
		}
	}

	if pos.Target > 0 {
		if pos.Side == position.SideLong && price >= pos.Target {
			return position.ExitTakeProfit, true
		}
		if pos.Side == position.SideShort && price <= pos.Target {
			return position.ExitTakeProfit, true
		}
	}

	if strat != nil && strat.ShouldExit(&pos, recent) {
		return position.ExitStrategy, true
	}

	return "", false
}
