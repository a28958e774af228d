package risk

import (
	"fmt"
	"log"
	"math"

	"execution-core/internal/position"
	"execution-core/internal/strategy"
)

// RejectionCode is a typed admission-control outcome. Rejections are expected
// results, not errors.
type RejectionCode string

const (
	RejectTradingHalted RejectionCode = "TRADING_HALTED"
	RejectSymbol        RejectionCode = "SYMBOL_NOT_ALLOWED"
	RejectPositionOpen  RejectionCode = "POSITION_EXISTS"
	RejectMaxPositions  RejectionCode = "MAX_POSITIONS_REACHED"
	RejectValidation    RejectionCode = "VALIDATION_FAILED"
	RejectZeroQuantity  RejectionCode = "ZERO_QUANTITY"
)

// Rejection explains why a signal was refused.
type Rejection struct {
	Code   RejectionCode `json:"code"`
	Reason string        `json:"reason"`
}

// AdjustedSignal is a signal the gate accepted, carrying the computed
// stop-loss, target and quantity. Consumed exactly once by the order
// coordinator.
type AdjustedSignal struct {
	Signal   strategy.Signal `json:"signal"`
	StopLoss float64         `json:"stop_loss"`
	Target   float64         `json:"target"`
	Quantity float64         `json:"quantity"`
}

// AccountProvider supplies the balance used for position sizing.
type AccountProvider interface {
	AccountBalance() float64
}

// SignalValidator is the broker/portfolio-side validation collaborator.
type SignalValidator interface {
	ValidateSignal(sig strategy.Signal) (bool, string)
}

// Gate screens and sizes incoming signals against the session limits. It
// never mutates shared state, so evaluations for different symbols are
// independent.
type Gate struct {
	limits    Limits
	book      *position.Book
	account   AccountProvider
	validator SignalValidator
	breaker   *Breaker
}

// NewGate builds an admission gate. validator may be nil when no external
// validation collaborator is configured.
func NewGate(limits Limits, book *position.Book, account AccountProvider, validator SignalValidator, breaker *Breaker) *Gate {
	return &Gate{
		limits:    limits,
		book:      book,
		account:   account,
		validator: validator,
		breaker:   breaker,
	}
}

// Limits returns the session limits the gate was built with.
func (g *Gate) Limits() Limits {
	return g.limits
}

// Evaluate screens a signal. Checks run in a fixed order and the first
// failing reason wins; there are no partial side effects.
func (g *Gate) Evaluate(sig strategy.Signal) (*AdjustedSignal, *Rejection) {
	if g.breaker != nil && g.breaker.Tripped() {
		return nil, &Rejection{Code: RejectTradingHalted, Reason: "session risk breaker tripped"}
	}

	if !g.limits.SymbolAllowed(sig.Symbol) {
		return nil, &Rejection{Code: RejectSymbol, Reason: fmt.Sprintf("symbol %s not in allowed list", sig.Symbol)}
	}

	if g.book.HasLive(sig.Symbol) {
		return nil, &Rejection{Code: RejectPositionOpen, Reason: fmt.Sprintf("position already open/pending for %s", sig.Symbol)}
	}

	if g.limits.MaxPositions > 0 && g.book.Count()+g.book.PendingEntries() >= g.limits.MaxPositions {
		return nil, &Rejection{Code: RejectMaxPositions, Reason: fmt.Sprintf("active positions at limit %d", g.limits.MaxPositions)}
	}

	if g.validator != nil {
		if ok, reason := g.validator.ValidateSignal(sig); !ok {
			return nil, &Rejection{Code: RejectValidation, Reason: reason}
		}
	}

	stop, target := g.protectionLevels(sig)
	perUnit := math.Abs(sig.Price - stop)
	if perUnit == 0 {
		// Degenerate stop placement; reject instead of dividing by zero.
		return nil, &Rejection{Code: RejectValidation, Reason: fmt.Sprintf("stop-loss equals price %.4f for %s", sig.Price, sig.Symbol)}
	}

	balance := g.account.AccountBalance()
	qty := g.size(balance, sig.Price, perUnit)
	if qty <= 0 {
		return nil, &Rejection{Code: RejectZeroQuantity, Reason: fmt.Sprintf("computed quantity %.0f for %s", qty, sig.Symbol)}
	}

	log.Printf("risk approved: %s %s qty=%.0f @ %.2f SL=%.2f TP=%.2f",
		sig.Action, sig.Symbol, qty, sig.Price, stop, target)

	return &AdjustedSignal{
		Signal:   sig,
		StopLoss: stop,
		Target:   target,
		Quantity: qty,
	}, nil
}

// protectionLevels returns the signal's own stop/target when supplied,
// otherwise percentage defaults mirrored around the reference price.
func (g *Gate) protectionLevels(sig strategy.Signal) (stop, target float64) {
	stop = sig.StopLoss
	target = sig.Target

	if sig.Action == strategy.ActionBuy {
		if stop == 0 {
			stop = sig.Price * (1 - g.limits.StopLossPct)
		}
		if target == 0 {
			target = sig.Price * (1 + g.limits.TakeProfitPct)
		}
	} else {
		if stop == 0 {
			stop = sig.Price * (1 + g.limits.StopLossPct)
		}
		if target == 0 {
			target = sig.Price * (1 - g.limits.TakeProfitPct)
		}
	}
	return stop, target
}

// size computes the order quantity from the per-unit risk, clamped so a
// single position never exceeds 10% of account balance in notional.
func (g *Gate) size(balance, price, perUnitRisk float64) float64 {
	if price <= 0 {
		return 0
	}

	riskAmount := balance * g.limits.MaxRiskPerTrade
	qty := math.Floor(riskAmount / perUnitRisk)
	if qty < 1 {
		qty = 1
	}
	if maxQty := math.Floor(balance * 0.1 / price); qty > maxQty {
		qty = maxQty
	}
	return qty
}
