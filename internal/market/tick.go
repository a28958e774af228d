package market

import "time"

// Tick is a single price sample delivered by the market data feed.
type Tick struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

// Feed streams ticks for a set of symbols. Delivery is push-based and
// at-least-once; consumers deduplicate by timestamp.
type Feed interface {
	Subscribe(symbols []string) (<-chan Tick, func(), error)
}
