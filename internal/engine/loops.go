package engine

import (
	"context"
	"log"
	"time"

	"execution-core/internal/events"
	"execution-core/internal/market"
	"execution-core/internal/monitor"
	"execution-core/internal/order"
	"execution-core/internal/position"
	"execution-core/internal/risk"
	"execution-core/internal/strategy"
)

// tickLoop funnels market data into the cache, live position marks and the
// per-symbol exit check.
func (e *Engine) tickLoop(ctx context.Context, ticks <-chan market.Tick) {
	defer e.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-ticks:
			if !ok {
				log.Printf("⚠️ market feed closed")
				return
			}
			e.onTick(t)
		}
	}
}

// onTick applies a single price update. A tick that moves an OPEN position
// through its stop or target triggers the exit right here rather than
// waiting for the next monitoring pass.
func (e *Engine) onTick(t market.Tick) {
	if !e.cache.Append(t) {
		return
	}
	e.metrics.IncrementTicks()
	e.book.UpdateMarketPrice(t.Symbol, t.Price)
	e.checkExit(t.Symbol, t.Price)
	e.bus.Publish(events.EventPriceTick, t)
}

// checkExit evaluates exit conditions for symbol's OPEN position, if any.
func (e *Engine) checkExit(symbol string, price float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pos, ok := e.book.Get(symbol)
	if !ok || pos.Status != position.StatusOpen {
		return
	}

	strat, _ := e.registry.Get(pos.Strategy)
	reason, hit := risk.EvaluateExit(pos, price, e.cache.Recent(symbol, 0), strat)
	if !hit {
		return
	}
	e.submitExitLocked(symbol, reason)
}

// strategyCycle runs every due strategy over every symbol with cached data
// and routes resulting signals through the risk gate. A panicking strategy
// is deregistered; the cycle continues with the rest.
func (e *Engine) strategyCycle() {
	if !e.limits.Hours.Contains(time.Now()) {
		return
	}
	if e.breaker.Tripped() {
		return
	}

	timer := monitor.NewTimer(e.metrics.StrategyLatency)
	defer timer.Stop()

	now := time.Now()
	for _, strat := range e.registry.Due(now) {
		e.runStrategy(strat, now)
	}
}

func (e *Engine) runStrategy(strat strategy.Strategy, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ strategy %s panicked: %v, deregistering", strat.Name(), r)
			e.metrics.IncrementErrors()
			e.registry.Deregister(strat.Name())
		}
	}()

	for _, symbol := range e.cache.Symbols() {
		recent := e.cache.Recent(symbol, 0)
		if len(recent) == 0 {
			continue
		}

		signals, err := strat.GenerateSignals(symbol, recent)
		if err != nil {
			log.Printf("⚠️ strategy %s on %s: %v", strat.Name(), symbol, err)
			e.metrics.IncrementErrors()
			continue
		}
		for _, sig := range signals {
			if sig.Action == strategy.ActionHold {
				continue
			}
			if sig.Strategy == "" {
				sig.Strategy = strat.Name()
			}
			if sig.CreatedAt.IsZero() {
				sig.CreatedAt = now
			}
			e.handleSignal(sig)
		}
	}
	e.registry.MarkRun(strat.Name(), now)
}

// handleSignal is the admission path: gate evaluation, event emission,
// persistence and (when auto-execution is on) order submission — all under
// the engine mutex so concurrent signals for one symbol cannot both pass.
func (e *Engine) handleSignal(sig strategy.Signal) {
	e.mu.Lock()
	defer e.mu.Unlock()

	adj, rej := e.gate.Evaluate(sig)
	sessID := e.tracker.Snapshot().ID

	e.metrics.IncrementSignals()
	e.bus.Publish(events.EventSignalGenerated, sig)
	e.store.RecordSignal(sessID, sig, rej)

	if rej != nil {
		e.metrics.IncrementRejections()
		log.Printf("signal rejected [%s]: %s %s @ %.2f (%s)",
			rej.Code, sig.Action, sig.Symbol, sig.Price, rej.Reason)
		return
	}
	if !e.autoExecute {
		log.Printf("signal approved (execution disabled): %s %s qty=%.0f", sig.Action, sig.Symbol, adj.Quantity)
		return
	}

	// Occupy the symbol slot until the order's outcome arrives, so a second
	// signal racing the fill cannot place a second entry order.
	if err := e.book.ReserveEntry(sig.Symbol); err != nil {
		log.Printf("❌ reserve entry for %s: %v", sig.Symbol, err)
		return
	}

	orderID, err := e.coord.SubmitEntry(adj)
	if err != nil {
		log.Printf("❌ submit entry for %s: %v", sig.Symbol, err)
		e.book.ReleaseEntry(sig.Symbol)
		return
	}
	side := order.SideBuy
	if sig.Action == strategy.ActionSell {
		side = order.SideSell
	}
	e.metrics.IncrementOrders()
	e.store.RecordOrder(sessID, orderID, sig.Symbol, string(side), "entry:"+sig.Strategy, adj.Quantity)
	e.bus.Publish(events.EventOrderPlaced, adj)
}

// monitoringCycle walks OPEN positions and submits exits for the first
// matching exit condition. CLOSING positions are skipped; their exit order
// is already outstanding.
func (e *Engine) monitoringCycle() {
	timer := monitor.NewTimer(e.metrics.MonitorLatency)
	defer timer.Stop()

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, pos := range e.book.Open() {
		price := e.cache.LastPrice(pos.Symbol)
		if price <= 0 {
			continue
		}

		strat, _ := e.registry.Get(pos.Strategy)
		reason, ok := risk.EvaluateExit(pos, price, e.cache.Recent(pos.Symbol, 0), strat)
		if !ok {
			continue
		}
		e.submitExitLocked(pos.Symbol, reason)
	}
}

// submitExitLocked transitions a position to CLOSING and places the exit
// order. Callers hold e.mu.
func (e *Engine) submitExitLocked(symbol string, reason position.ExitReason) {
	pos, err := e.book.OnExitSubmitted(symbol, reason)
	if err != nil {
		log.Printf("⚠️ exit %s (%s): %v", symbol, reason, err)
		return
	}

	orderID, err := e.coord.SubmitExit(pos, reason)
	if err != nil {
		log.Printf("❌ submit exit for %s: %v", symbol, err)
		if rerr := e.book.RevertExit(symbol); rerr != nil {
			log.Printf("❌ revert exit for %s: %v", symbol, rerr)
		}
		return
	}

	side := order.SideSell
	if pos.Side == position.SideShort {
		side = order.SideBuy
	}
	e.metrics.IncrementOrders()
	e.store.RecordOrder(e.tracker.Snapshot().ID, orderID, symbol, string(side), "exit:"+string(reason), pos.Quantity)
	e.bus.Publish(events.EventPositionExiting, pos)
	log.Printf("exit submitted: %s reason=%s qty=%.0f", symbol, reason, pos.Quantity)
}

// riskCycle evaluates the session circuit breaker. The halt sequence runs
// exactly once, on the evaluation that performs the trip.
func (e *Engine) riskCycle() {
	tripped, first := e.breaker.Evaluate(e.tracker.DailyPnL(), e.tracker.Drawdown())
	if !tripped || !first {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.halting = true
	e.bus.Publish(events.EventRiskLimitExceeded, e.breaker.Reason())
	log.Printf("🛑 trading halted: %s, closing all open positions", e.breaker.Reason())
	e.closeAllOpenLocked(position.ExitRiskLimit)
}

// closeAllOpen submits exits for every OPEN position.
func (e *Engine) closeAllOpen(reason position.ExitReason) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closeAllOpenLocked(reason)
}

func (e *Engine) closeAllOpenLocked(reason position.ExitReason) {
	for _, pos := range e.book.Open() {
		e.submitExitLocked(pos.Symbol, reason)
	}
}

// outcomeLoop applies resolved order outcomes to the position book and
// session statistics.
func (e *Engine) outcomeLoop(ctx context.Context) {
	defer e.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case out, ok := <-e.coord.Outcomes():
			if !ok {
				return
			}
			e.applyOutcome(out)
		}
	}
}

func (e *Engine) applyOutcome(out order.Outcome) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !out.Submitted.IsZero() && !out.Time.IsZero() {
		e.metrics.OrderLatency.RecordDuration(out.Time.Sub(out.Submitted))
	}

	sessID := e.tracker.Snapshot().ID

	switch out.Kind {
	case order.OutcomeEntryFilled:
		e.store.ResolveOrder(out.OrderID, "FILLED", out.Price)
		p, err := e.book.OnEntryFilled(position.EntryFill{
			Symbol:   out.Symbol,
			Side:     out.Side,
			Quantity: out.Quantity,
			Price:    out.Price,
			StopLoss: out.StopLoss,
			Target:   out.Target,
			Strategy: out.Strategy,
			Time:     out.Time,
		})
		if err != nil {
			log.Printf("❌ apply entry fill %s: %v", out.OrderID, err)
			return
		}
		e.bus.Publish(events.EventOrderFilled, p)

	case order.OutcomeEntryRejected:
		e.store.ResolveOrder(out.OrderID, "REJECTED", 0)
		e.book.ReleaseEntry(out.Symbol)
		e.bus.Publish(events.EventOrderRejected, out)
		log.Printf("entry rejected: %s %s (%s)", out.Symbol, out.OrderID, out.Reason)

	case order.OutcomeExitFilled:
		e.store.ResolveOrder(out.OrderID, "FILLED", out.Price)
		closed, err := e.book.OnExitFilled(position.ExitFill{
			Symbol: out.Symbol,
			Price:  out.Price,
			Time:   out.Time,
		})
		if err != nil {
			log.Printf("❌ apply exit fill %s: %v", out.OrderID, err)
			return
		}
		e.metrics.IncrementClosedPositions()
		e.tracker.ApplyClosed(closed)
		e.store.RecordClosedPosition(sessID, closed)
		e.store.UpdateSession(e.tracker.Snapshot())
		e.bus.Publish(events.EventPositionClosed, closed)

	case order.OutcomeExitRejected:
		e.store.ResolveOrder(out.OrderID, "REJECTED", 0)
		e.bus.Publish(events.EventOrderRejected, out)
		if err := e.book.RevertExit(out.Symbol); err != nil {
			log.Printf("❌ revert exit after rejection for %s: %v", out.Symbol, err)
			return
		}
		// While halting, the position must still go; resubmit immediately.
		if e.halting {
			e.submitExitLocked(out.Symbol, out.ExitReason)
		}
	}
}
