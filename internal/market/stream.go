package market

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// StreamFeed consumes a websocket tick stream. The remote endpoint is expected
// to push JSON objects matching Tick after receiving a subscribe frame.
type StreamFeed struct {
	URL    string
	dialer *websocket.Dialer
}

// NewStreamFeed builds a websocket feed client for the given endpoint.
func NewStreamFeed(url string) *StreamFeed {
	return &StreamFeed{
		URL:    url,
		dialer: websocket.DefaultDialer,
	}
}

type subscribeFrame struct {
	Op      string   `json:"op"`
	Symbols []string `json:"symbols"`
}

// Subscribe opens the stream and pushes parsed ticks into a channel.
// It returns the channel and a stop function. The reader reconnects with
// backoff until stopped, so transient feed outages only create gaps.
func (f *StreamFeed) Subscribe(symbols []string) (<-chan Tick, func(), error) {
	if f.URL == "" {
		return nil, nil, fmt.Errorf("stream feed: empty URL")
	}

	out := make(chan Tick, 256)
	done := make(chan struct{})
	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(done)
		})
	}

	go func() {
		defer close(out)
		backoff := time.Second
		for {
			select {
			case <-done:
				return
			default:
			}

			if err := f.readLoop(symbols, out, done); err != nil {
				log.Printf("market stream: %v (reconnecting in %v)", err, backoff)
			}

			select {
			case <-done:
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
		}
	}()

	return out, stop, nil
}

// readLoop runs one connection until it fails or the subscription stops.
func (f *StreamFeed) readLoop(symbols []string, out chan<- Tick, done <-chan struct{}) error {
	conn, _, err := f.dialer.Dial(f.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", f.URL, err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(subscribeFrame{Op: "subscribe", Symbols: symbols}); err != nil {
		return fmt.Errorf("subscribe frame: %w", err)
	}

	// Close the connection when the caller stops, which unblocks ReadMessage.
	connDone := make(chan struct{})
	defer close(connDone)
	go func() {
		select {
		case <-done:
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = conn.Close()
		case <-connDone:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-done:
				return nil
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
				strings.Contains(err.Error(), "use of closed network connection") {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		tick, err := parseTick(msg)
		if err != nil {
			log.Printf("market stream: parse error: %v", err)
			continue
		}

		select {
		case out <- tick:
		case <-done:
			return nil
		}
	}
}

// parseTick decodes only the fields we need.
func parseTick(msg []byte) (Tick, error) {
	var raw struct {
		Symbol string `json:"symbol"`
		Price  any    `json:"price"`
		Volume any    `json:"volume"`
		TS     int64  `json:"timestamp"`
	}
	if err := json.Unmarshal(msg, &raw); err != nil {
		return Tick{}, err
	}
	if raw.Symbol == "" {
		return Tick{}, fmt.Errorf("tick without symbol")
	}
	return Tick{
		Symbol:    raw.Symbol,
		Price:     toFloat(raw.Price),
		Volume:    toFloat(raw.Volume),
		Timestamp: time.UnixMilli(raw.TS),
	}, nil
}

// toFloat tolerates numeric fields sent as strings, a common feed quirk.
func toFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		var f float64
		_, _ = fmt.Sscanf(t, "%g", &f)
		return f
	default:
		return 0
	}
}
