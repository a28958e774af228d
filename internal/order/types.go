package order

import (
	"context"
	"time"

	"execution-core/internal/position"
)

// Side is the broker-facing order direction.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Request is the order sent to the broker gateway.
type Request struct {
	ID       string  `json:"id"`
	Symbol   string  `json:"symbol"`
	Side     Side    `json:"side"`
	Quantity float64 `json:"quantity"`
	Type     string  `json:"type"` // MARKET
	Tag      string  `json:"tag"`  // entry:<strategy> or exit:<reason>
}

// Ack is the synchronous acknowledgment of an order submission. The fill or
// rejection arrives later on the notification stream.
type Ack struct {
	OrderID string
	Status  string // ACCEPTED
}

// NotificationKind distinguishes asynchronous broker callbacks.
type NotificationKind string

const (
	NotifFilled   NotificationKind = "FILLED"
	NotifRejected NotificationKind = "REJECTED"
)

// Notification is an asynchronous fill/reject callback from the broker.
type Notification struct {
	OrderID  string
	Symbol   string
	Kind     NotificationKind
	Price    float64
	Quantity float64
	Reason   string
	Time     time.Time
}

// StatusReport is the broker's answer to an order-status query, used by the
// reconciler for unknown-outcome orders.
type StatusReport struct {
	OrderID  string
	Status   string // FILLED, REJECTED, PENDING, UNKNOWN
	Price    float64
	Quantity float64
}

// Gateway is the broker collaborator. PlaceOrder is synchronous up to
// acknowledgment only; outcomes stream through Notifications.
type Gateway interface {
	PlaceOrder(ctx context.Context, req Request) (*Ack, error)
	OrderStatus(ctx context.Context, orderID string) (*StatusReport, error)
	Notifications() <-chan Notification
}

// OutcomeKind classifies resolved order outcomes handed to the engine.
type OutcomeKind string

const (
	OutcomeEntryFilled   OutcomeKind = "ENTRY_FILLED"
	OutcomeEntryRejected OutcomeKind = "ENTRY_REJECTED"
	OutcomeExitFilled    OutcomeKind = "EXIT_FILLED"
	OutcomeExitRejected  OutcomeKind = "EXIT_REJECTED"
)

// Outcome is a broker notification correlated back to the originating
// submission, carrying everything the position book needs.
type Outcome struct {
	Kind       OutcomeKind
	OrderID    string
	Symbol     string
	Side       position.Side
	Quantity   float64
	Price      float64
	StopLoss   float64
	Target     float64
	Strategy   string
	ExitReason position.ExitReason
	Reason     string // broker rejection reason
	Submitted  time.Time
	Time       time.Time
}
