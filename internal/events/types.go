package events

// Event enumerates the closed set of topics emitted by the execution engine.
// External consumers (dashboards, notifiers) subscribe to these; the engine
// never publishes ad-hoc string keys.
type Event string

const (
	EventPriceTick         Event = "price_tick"
	EventSignalGenerated   Event = "signal_generated"
	EventOrderPlaced       Event = "order_placed"
	EventOrderFilled       Event = "order_filled"
	EventOrderRejected     Event = "order_rejected"
	EventPositionExiting   Event = "position_exiting"
	EventPositionClosed    Event = "position_closed"
	EventRiskLimitExceeded Event = "risk_limit_exceeded"
	EventTradingStarted    Event = "trading_started"
	EventTradingStopped    Event = "trading_stopped"
)
