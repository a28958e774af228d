// Package engine wires the market feed, strategies, risk controls, order
// coordination and session accounting into the running execution core.
//
// All trading decisions pass through one mutex. Market data, broker
// notifications and the three scheduler loops funnel into that serialization
// point, so no decision ever reads half-updated state.
package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"execution-core/internal/events"
	"execution-core/internal/market"
	"execution-core/internal/monitor"
	"execution-core/internal/order"
	"execution-core/internal/persistence"
	"execution-core/internal/position"
	"execution-core/internal/risk"
	"execution-core/internal/session"
	"execution-core/internal/strategy"
)

// Default loop cadences. Each loop reschedules itself after the previous
// cycle finishes, so a slow cycle delays the next instead of stacking up.
const (
	defaultStrategyInterval   = 5 * time.Second
	defaultMonitoringInterval = 2 * time.Second
	defaultRiskInterval       = 10 * time.Second
)

// Options configures an Engine.
type Options struct {
	Limits          risk.Limits
	Feed            market.Feed
	Gateway         order.Gateway
	Symbols         []string
	Validator       risk.SignalValidator
	Cache           *market.Cache
	Store           persistence.Store
	Metrics         *monitor.SystemMetrics
	Bus             *events.Bus
	Cooldown        time.Duration
	AutoExecute     bool
	LiquidateOnStop bool
	BrokerTimeout   time.Duration

	// Loop cadences; zero values use the defaults above.
	StrategyInterval time.Duration
	MonitorInterval  time.Duration
	RiskInterval     time.Duration
}

// Engine owns the trading session from Start to Stop.
type Engine struct {
	mu sync.Mutex // serializes every trading decision

	limits   risk.Limits
	book     *position.Book
	breaker  *risk.Breaker
	gate     *risk.Gate
	registry *strategy.Registry
	tracker  *session.Tracker
	cache    *market.Cache
	feed     market.Feed
	coord    *order.Coordinator
	bus      *events.Bus
	store    persistence.Store
	metrics  *monitor.SystemMetrics

	symbols         []string
	autoExecute     bool
	liquidateOnStop bool

	strategyInterval time.Duration
	monitorInterval  time.Duration
	riskInterval     time.Duration

	running  bool
	halting  bool // breaker halt sequence in progress or done
	cancel   context.CancelFunc
	feedStop func()
	wg       sync.WaitGroup
	cronner  *cron.Cron
}

// New assembles an engine from its collaborators. Nothing starts running
// until Start is called.
func New(opts Options) *Engine {
	book := position.NewBook()
	breaker := risk.NewBreaker(opts.Limits)
	tracker := session.NewTracker(opts.Limits.Capital)
	bus := opts.Bus
	if bus == nil {
		bus = events.NewBus()
	}
	store := opts.Store
	if store == nil {
		store = persistence.NopStore{}
	}
	cache := opts.Cache
	if cache == nil {
		cache = market.NewCache(market.DefaultDepth)
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = monitor.NewSystemMetrics()
	}
	if opts.StrategyInterval <= 0 {
		opts.StrategyInterval = defaultStrategyInterval
	}
	if opts.MonitorInterval <= 0 {
		opts.MonitorInterval = defaultMonitoringInterval
	}
	if opts.RiskInterval <= 0 {
		opts.RiskInterval = defaultRiskInterval
	}

	e := &Engine{
		limits:          opts.Limits,
		book:            book,
		breaker:         breaker,
		gate:            risk.NewGate(opts.Limits, book, tracker, opts.Validator, breaker),
		registry:        strategy.NewRegistry(opts.Cooldown),
		tracker:         tracker,
		cache:           cache,
		feed:            opts.Feed,
		coord:           order.NewCoordinator(opts.Gateway, opts.BrokerTimeout),
		bus:             bus,
		store:           store,
		metrics:         metrics,
		symbols:         opts.Symbols,
		autoExecute:     opts.AutoExecute,
		liquidateOnStop: opts.LiquidateOnStop,

		strategyInterval: opts.StrategyInterval,
		monitorInterval:  opts.MonitorInterval,
		riskInterval:     opts.RiskInterval,
	}
	return e
}

// Bus exposes the event stream for external consumers.
func (e *Engine) Bus() *events.Bus { return e.bus }

// Book exposes read-only position access for the API layer.
func (e *Engine) Book() *position.Book { return e.book }

// Cache exposes the market data view for the API layer.
func (e *Engine) Cache() *market.Cache { return e.cache }

// Registry exposes strategy registration.
func (e *Engine) Registry() *strategy.Registry { return e.registry }

// Session returns a snapshot of the running session.
func (e *Engine) Session() session.Session { return e.tracker.Snapshot() }

// Limits returns the session risk limits.
func (e *Engine) Limits() risk.Limits { return e.limits }

// Breaker exposes the session circuit breaker state.
func (e *Engine) Breaker() *risk.Breaker { return e.breaker }

// Metrics exposes runtime statistics for the API layer.
func (e *Engine) Metrics() *monitor.SystemMetrics { return e.metrics }

// Start subscribes to market data and launches the scheduler loops.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return fmt.Errorf("engine already running")
	}
	e.running = true
	e.halting = false
	e.mu.Unlock()

	e.breaker.Reset()

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	ticks, stop, err := e.feed.Subscribe(e.symbols)
	if err != nil {
		cancel()
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		return fmt.Errorf("subscribe market feed: %w", err)
	}
	e.feedStop = stop

	e.coord.Start(runCtx)

	e.wg.Add(5)
	go e.tickLoop(runCtx, ticks)
	go e.outcomeLoop(runCtx)
	go e.loop(runCtx, "strategy", e.strategyInterval, e.strategyCycle)
	go e.loop(runCtx, "monitoring", e.monitorInterval, e.monitoringCycle)
	go e.loop(runCtx, "risk", e.riskInterval, e.riskCycle)

	// Daily counters reset at midnight.
	e.cronner = cron.New()
	if _, err := e.cronner.AddFunc("0 0 * * *", func() {
		e.tracker.ResetDaily()
		log.Printf("daily risk counters reset")
	}); err != nil {
		log.Printf("⚠️ schedule daily reset: %v", err)
	}
	e.cronner.Start()

	sess := e.tracker.Snapshot()
	e.store.SaveSession(sess)
	e.bus.Publish(events.EventTradingStarted, sess)
	log.Printf("engine started: session=%s capital=%.2f symbols=%v autoExecute=%v",
		sess.ID, sess.Capital, e.symbols, e.autoExecute)
	return nil
}

// Stop halts the loops, optionally liquidates open positions, waits for
// in-flight order submissions and flushes the session record. Safe to call
// once; a second call is a no-op.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = false
	e.mu.Unlock()

	log.Printf("engine stopping")

	if e.liquidateOnStop {
		e.closeAllOpen(position.ExitSessionEnd)
		e.waitForFlat(ctx)
	}

	if e.cronner != nil {
		e.cronner.Stop()
	}
	if e.feedStop != nil {
		e.feedStop()
	}
	if e.cancel != nil {
		e.cancel()
	}

	// In-flight submissions still resolve and route through the book.
	e.coord.Drain()
	e.wg.Wait()

	final := e.tracker.Complete()
	e.store.UpdateSession(final)
	e.bus.Publish(events.EventTradingStopped, final)
	if err := e.store.Close(); err != nil {
		log.Printf("⚠️ persistence close: %v", err)
	}

	log.Printf("engine stopped: trades=%d wins=%d pnl=%.2f maxDD=%.2f",
		final.Trades, final.Wins, final.RealizedPnL, final.MaxDrawdown)
	return nil
}

// waitForFlat polls until every liquidation order resolved or ctx expires.
func (e *Engine) waitForFlat(ctx context.Context) {
	deadline := time.After(15 * time.Second)
	for {
		if e.book.Count() == 0 && e.coord.PendingCount() == 0 {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			log.Printf("⚠️ shutdown: %d positions still live after liquidation wait", e.book.Count())
			return
		case <-time.After(200 * time.Millisecond):
		}
	}
}

// loop runs fn on a fixed cadence until ctx is cancelled. The timer restarts
// after fn returns, so cycles never overlap.
func (e *Engine) loop(ctx context.Context, name string, interval time.Duration, fn func()) {
	defer e.wg.Done()

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("%s loop stopped", name)
			return
		case <-timer.C:
			fn()
			timer.Reset(interval)
		}
	}
}
