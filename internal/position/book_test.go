package position

import (
	"math"
	"testing"
	"time"
)

func openLong(t *testing.T, b *Book, symbol string, qty, price float64) Position {
	t.Helper()
	p, err := b.OnEntryFilled(EntryFill{
		Symbol:   symbol,
		Side:     SideLong,
		Quantity: qty,
		Price:    price,
		StopLoss: price * 0.98,
		Target:   price * 1.05,
		Strategy: "test",
		Time:     time.Now(),
	})
	if err != nil {
		t.Fatalf("OnEntryFilled: %v", err)
	}
	return p
}

func TestLifecycleRoundTrip(t *testing.T) {
	b := NewBook()

	p := openLong(t, b, "BTCUSDT", 10, 100)
	if p.Status != StatusOpen {
		t.Fatalf("status = %s, want OPEN", p.Status)
	}

	if _, err := b.OnExitSubmitted("BTCUSDT", ExitTakeProfit); err != nil {
		t.Fatalf("OnExitSubmitted: %v", err)
	}
	if got, _ := b.Get("BTCUSDT"); got.Status != StatusClosing {
		t.Fatalf("status = %s, want CLOSING", got.Status)
	}

	closed, err := b.OnExitFilled(ExitFill{Symbol: "BTCUSDT", Price: 110, Time: time.Now()})
	if err != nil {
		t.Fatalf("OnExitFilled: %v", err)
	}
	if closed.Status != StatusClosed {
		t.Errorf("status = %s, want CLOSED", closed.Status)
	}
	if closed.RealizedPnL != 100 {
		t.Errorf("RealizedPnL = %.2f, want 100", closed.RealizedPnL)
	}
	if b.Count() != 0 {
		t.Errorf("Count = %d after close, want 0", b.Count())
	}
	if got := b.History(10); len(got) != 1 || got[0].Symbol != "BTCUSDT" {
		t.Errorf("history missing closed position: %v", got)
	}
}

func TestRoundTripAtSamePriceIsFlat(t *testing.T) {
	b := NewBook()
	openLong(t, b, "BTCUSDT", 7, 250)

	if _, err := b.OnExitSubmitted("BTCUSDT", ExitStrategy); err != nil {
		t.Fatal(err)
	}
	closed, err := b.OnExitFilled(ExitFill{Symbol: "BTCUSDT", Price: 250})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(closed.RealizedPnL) > 1e-9 {
		t.Errorf("flat round trip pnl = %v, want 0", closed.RealizedPnL)
	}
}

func TestShortPnLIsReversed(t *testing.T) {
	b := NewBook()
	if _, err := b.OnEntryFilled(EntryFill{Symbol: "ETHUSDT", Side: SideShort, Quantity: 4, Price: 200}); err != nil {
		t.Fatal(err)
	}
	if _, err := b.OnExitSubmitted("ETHUSDT", ExitStopLoss); err != nil {
		t.Fatal(err)
	}

	closed, err := b.OnExitFilled(ExitFill{Symbol: "ETHUSDT", Price: 210})
	if err != nil {
		t.Fatal(err)
	}
	// Short loses when price rises.
	if closed.RealizedPnL != -40 {
		t.Errorf("short pnl = %.2f, want -40", closed.RealizedPnL)
	}
}

func TestOnePositionPerSymbol(t *testing.T) {
	b := NewBook()
	openLong(t, b, "BTCUSDT", 10, 100)

	if _, err := b.OnEntryFilled(EntryFill{Symbol: "BTCUSDT", Side: SideLong, Quantity: 5, Price: 101}); err == nil {
		t.Fatal("second entry fill for live symbol accepted")
	}

	// Original position untouched.
	if p, _ := b.Get("BTCUSDT"); p.Quantity != 10 || p.EntryPrice != 100 {
		t.Errorf("existing position overwritten: %+v", p)
	}

	// A CLOSING position still occupies the slot.
	if _, err := b.OnExitSubmitted("BTCUSDT", ExitStrategy); err != nil {
		t.Fatal(err)
	}
	if !b.HasLive("BTCUSDT") {
		t.Error("CLOSING position should still be live")
	}
}

func TestExitSubmitIsNotRepeatable(t *testing.T) {
	b := NewBook()
	openLong(t, b, "BTCUSDT", 10, 100)

	if _, err := b.OnExitSubmitted("BTCUSDT", ExitStopLoss); err != nil {
		t.Fatal(err)
	}
	if _, err := b.OnExitSubmitted("BTCUSDT", ExitStopLoss); err == nil {
		t.Fatal("second exit submission accepted while CLOSING")
	}
}

func TestRevertExit(t *testing.T) {
	b := NewBook()
	openLong(t, b, "BTCUSDT", 10, 100)

	if err := b.RevertExit("BTCUSDT"); err == nil {
		t.Fatal("revert of OPEN position accepted")
	}

	if _, err := b.OnExitSubmitted("BTCUSDT", ExitTakeProfit); err != nil {
		t.Fatal(err)
	}
	if err := b.RevertExit("BTCUSDT"); err != nil {
		t.Fatalf("RevertExit: %v", err)
	}

	p, _ := b.Get("BTCUSDT")
	if p.Status != StatusOpen {
		t.Errorf("status = %s after revert, want OPEN", p.Status)
	}
	if p.ExitReason != "" {
		t.Errorf("exit reason %q not cleared", p.ExitReason)
	}

	// Exit can be resubmitted after the revert.
	if _, err := b.OnExitSubmitted("BTCUSDT", ExitStopLoss); err != nil {
		t.Errorf("resubmit after revert: %v", err)
	}
}

func TestExitFillRequiresClosing(t *testing.T) {
	b := NewBook()
	openLong(t, b, "BTCUSDT", 10, 100)

	if _, err := b.OnExitFilled(ExitFill{Symbol: "BTCUSDT", Price: 105}); err == nil {
		t.Fatal("exit fill accepted for OPEN position")
	}
	if _, err := b.OnExitFilled(ExitFill{Symbol: "NOPE", Price: 105}); err == nil {
		t.Fatal("exit fill accepted for unknown symbol")
	}
}

func TestUnrealizedTracksMarketPrice(t *testing.T) {
	b := NewBook()
	openLong(t, b, "BTCUSDT", 10, 100)

	b.UpdateMarketPrice("BTCUSDT", 104)
	if p, _ := b.Get("BTCUSDT"); p.UnrealizedPnL != 40 {
		t.Errorf("unrealized = %.2f, want 40", p.UnrealizedPnL)
	}
	if got := b.UnrealizedTotal(); got != 40 {
		t.Errorf("UnrealizedTotal = %.2f, want 40", got)
	}

	// Invalid price is ignored.
	b.UpdateMarketPrice("BTCUSDT", 0)
	if p, _ := b.Get("BTCUSDT"); p.CurrentPrice != 104 {
		t.Errorf("zero price applied: %.2f", p.CurrentPrice)
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	b := NewBook()
	openLong(t, b, "BTCUSDT", 10, 100)

	p, _ := b.Get("BTCUSDT")
	p.Quantity = 999

	if inBook, _ := b.Get("BTCUSDT"); inBook.Quantity != 10 {
		t.Error("mutating a returned copy changed book state")
	}
}

func TestEntryReservationOccupiesSlot(t *testing.T) {
	b := NewBook()

	if err := b.ReserveEntry("BTCUSDT"); err != nil {
		t.Fatalf("ReserveEntry: %v", err)
	}
	if !b.HasLive("BTCUSDT") {
		t.Fatal("reserved symbol should read as occupied")
	}
	if b.Count() != 0 {
		t.Errorf("Count = %d, reservations are not positions", b.Count())
	}
	if b.PendingEntries() != 1 {
		t.Errorf("PendingEntries = %d, want 1", b.PendingEntries())
	}

	if err := b.ReserveEntry("BTCUSDT"); err == nil {
		t.Fatal("second reservation for the same symbol must fail")
	}
	if err := b.ReserveEntry("ETHUSDT"); err != nil {
		t.Errorf("other symbols stay reservable: %v", err)
	}
}

func TestEntryFillConsumesReservation(t *testing.T) {
	b := NewBook()

	if err := b.ReserveEntry("BTCUSDT"); err != nil {
		t.Fatalf("ReserveEntry: %v", err)
	}
	openLong(t, b, "BTCUSDT", 10, 100)

	if b.PendingEntries() != 0 {
		t.Errorf("PendingEntries = %d after fill, want 0", b.PendingEntries())
	}
	if !b.HasLive("BTCUSDT") {
		t.Error("filled position should occupy the slot")
	}
}

func TestReleaseEntryFreesSlot(t *testing.T) {
	b := NewBook()

	if err := b.ReserveEntry("BTCUSDT"); err != nil {
		t.Fatalf("ReserveEntry: %v", err)
	}
	b.ReleaseEntry("BTCUSDT")

	if b.HasLive("BTCUSDT") {
		t.Fatal("released symbol should be free")
	}
	if err := b.ReserveEntry("BTCUSDT"); err != nil {
		t.Errorf("re-reserving a released symbol: %v", err)
	}
}

func TestReserveEntryRejectedWhileLive(t *testing.T) {
	b := NewBook()
	openLong(t, b, "BTCUSDT", 10, 100)

	if err := b.ReserveEntry("BTCUSDT"); err == nil {
		t.Fatal("reservation must fail while a position is OPEN")
	}

	if _, err := b.OnExitSubmitted("BTCUSDT", ExitStopLoss); err != nil {
		t.Fatal(err)
	}
	if err := b.ReserveEntry("BTCUSDT"); err == nil {
		t.Fatal("reservation must fail while a position is CLOSING")
	}
}
