package builtin

import (
	"testing"
	"time"

	"execution-core/internal/market"
	"execution-core/internal/position"
	"execution-core/internal/strategy"
)

func series(prices ...float64) []market.Tick {
	base := time.Now().Add(-time.Duration(len(prices)) * time.Second)
	ticks := make([]market.Tick, len(prices))
	for i, p := range prices {
		ticks[i] = market.Tick{
			Symbol:    "BTCUSDT",
			Price:     p,
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}
	}
	return ticks
}

func flat(price float64, n int) []market.Tick {
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = price
	}
	return series(prices...)
}

func TestMomentumSignals(t *testing.T) {
	m := NewMomentum(MomentumParams{Lookback: 5, Threshold: 0.01, ExitFade: 0.5, MinHistory: 10})

	t.Run("insufficient history", func(t *testing.T) {
		sigs, err := m.GenerateSignals("BTCUSDT", flat(100, 5))
		if err != nil || sigs != nil {
			t.Fatalf("sigs=%v err=%v, want none", sigs, err)
		}
	})

	t.Run("flat market holds", func(t *testing.T) {
		sigs, err := m.GenerateSignals("BTCUSDT", flat(100, 20))
		if err != nil || sigs != nil {
			t.Fatalf("sigs=%v err=%v, want none", sigs, err)
		}
	})

	t.Run("upward move buys", func(t *testing.T) {
		ticks := series(100, 100, 100, 100, 100, 100, 100.5, 101, 101.5, 102)
		sigs, err := m.GenerateSignals("BTCUSDT", ticks)
		if err != nil {
			t.Fatal(err)
		}
		if len(sigs) != 1 {
			t.Fatalf("got %d signals, want 1", len(sigs))
		}
		sig := sigs[0]
		if sig.Action != strategy.ActionBuy || sig.Price != 102 || sig.Strategy != "momentum" {
			t.Errorf("unexpected signal: %+v", sig)
		}
		if sig.Confidence <= 0 || sig.Confidence > 1 {
			t.Errorf("confidence out of range: %v", sig.Confidence)
		}
	})

	t.Run("downward move sells", func(t *testing.T) {
		ticks := series(100, 100, 100, 100, 100, 100, 99.5, 99, 98.5, 98)
		sigs, err := m.GenerateSignals("BTCUSDT", ticks)
		if err != nil {
			t.Fatal(err)
		}
		if len(sigs) != 1 || sigs[0].Action != strategy.ActionSell {
			t.Fatalf("want a SELL signal, got %+v", sigs)
		}
	})
}

func TestMomentumExit(t *testing.T) {
	m := NewMomentum(MomentumParams{Lookback: 5, Threshold: 0.01, ExitFade: 0.5, MinHistory: 10})
	long := &position.Position{Side: position.SideLong, EntryPrice: 100}
	short := &position.Position{Side: position.SideShort, EntryPrice: 100}

	// Exit fires once half the 1% entry move has faded.
	if m.ShouldExit(long, series(99.6)) {
		t.Error("long exited above the fade level")
	}
	if !m.ShouldExit(long, series(99.4)) {
		t.Error("long did not exit below the fade level")
	}
	if m.ShouldExit(short, series(100.4)) {
		t.Error("short exited below the fade level")
	}
	if !m.ShouldExit(short, series(100.6)) {
		t.Error("short did not exit above the fade level")
	}
	if m.ShouldExit(nil, series(100)) || m.ShouldExit(long, nil) {
		t.Error("degenerate inputs must not exit")
	}
}

func TestMeanReversionSignals(t *testing.T) {
	m := NewMeanReversion(MeanReversionParams{Window: 10, EntryBands: 2, MinHistory: 12})

	oscillate := func(n int, last float64) []market.Tick {
		prices := make([]float64, 0, n+1)
		for i := 0; i < n; i++ {
			if i%2 == 0 {
				prices = append(prices, 101)
			} else {
				prices = append(prices, 99)
			}
		}
		prices = append(prices, last)
		return series(prices...)
	}

	t.Run("insufficient history", func(t *testing.T) {
		sigs, err := m.GenerateSignals("BTCUSDT", oscillate(8, 110))
		if err != nil || sigs != nil {
			t.Fatalf("sigs=%v err=%v, want none", sigs, err)
		}
	})

	t.Run("zero variance holds", func(t *testing.T) {
		sigs, err := m.GenerateSignals("BTCUSDT", flat(100, 15))
		if err != nil || sigs != nil {
			t.Fatalf("sigs=%v err=%v, want none", sigs, err)
		}
	})

	t.Run("stretch above mean sells toward it", func(t *testing.T) {
		sigs, err := m.GenerateSignals("BTCUSDT", oscillate(14, 112))
		if err != nil {
			t.Fatal(err)
		}
		if len(sigs) != 1 {
			t.Fatalf("got %d signals, want 1", len(sigs))
		}
		sig := sigs[0]
		if sig.Action != strategy.ActionSell || sig.Strategy != "mean_reversion" {
			t.Errorf("unexpected signal: %+v", sig)
		}
		if sig.Target <= 99 || sig.Target >= sig.Price {
			t.Errorf("target %.2f should sit at the mean, below price %.2f", sig.Target, sig.Price)
		}
	})

	t.Run("stretch below mean buys toward it", func(t *testing.T) {
		sigs, err := m.GenerateSignals("BTCUSDT", oscillate(14, 88))
		if err != nil {
			t.Fatal(err)
		}
		if len(sigs) != 1 || sigs[0].Action != strategy.ActionBuy {
			t.Fatalf("want a BUY signal, got %+v", sigs)
		}
	})

	t.Run("inside the bands holds", func(t *testing.T) {
		sigs, err := m.GenerateSignals("BTCUSDT", oscillate(14, 101.5))
		if err != nil || sigs != nil {
			t.Fatalf("sigs=%v err=%v, want none", sigs, err)
		}
	})
}

func TestMeanReversionExit(t *testing.T) {
	m := NewMeanReversion(MeanReversionParams{Window: 10, EntryBands: 2, MinHistory: 12})
	long := &position.Position{Side: position.SideLong, EntryPrice: 95}
	short := &position.Position{Side: position.SideShort, EntryPrice: 105}

	crossed := flat(100, 10) // last price sits exactly on the mean
	if !m.ShouldExit(long, crossed) {
		t.Error("long should exit once price reaches the mean")
	}
	if !m.ShouldExit(short, crossed) {
		t.Error("short should exit once price reaches the mean")
	}

	below := append(flat(100, 9), series(97)...)
	if m.ShouldExit(long, below) {
		t.Error("long exited while still below the mean")
	}

	if m.ShouldExit(long, flat(100, 4)) {
		t.Error("short window must not exit")
	}
}
