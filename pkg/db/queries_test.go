package db

import (
	"context"
	"testing"
	"time"
)

func testQueries(t *testing.T) *Queries {
	t.Helper()
	d, err := New(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	if err := ApplyMigrations(d); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewQueries(d.DB)
}

func TestSessionRoundTrip(t *testing.T) {
	q := testQueries(t)
	ctx := context.Background()
	started := time.Now().UTC().Truncate(time.Second)

	s := SessionRow{
		ID:         "sess-1",
		StartedAt:  started,
		Capital:    10000,
		PeakEquity: 10000,
		Status:     "ACTIVE",
	}
	if err := q.CreateSession(ctx, s); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := q.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Capital != 10000 || got.Status != "ACTIVE" || got.EndedAt != nil {
		t.Errorf("round trip mismatch: %+v", got)
	}

	ended := started.Add(time.Hour)
	s.EndedAt = &ended
	s.Trades = 4
	s.Wins = 3
	s.RealizedPnL = 212.5
	s.MaxDrawdown = 80
	s.Status = "COMPLETED"
	if err := q.UpdateSession(ctx, s); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err = q.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got.Trades != 4 || got.Wins != 3 || got.RealizedPnL != 212.5 || got.Status != "COMPLETED" {
		t.Errorf("update not persisted: %+v", got)
	}
	if got.EndedAt == nil {
		t.Error("ended_at not persisted")
	}
}

func TestGetSessionNotFound(t *testing.T) {
	q := testQueries(t)
	if _, err := q.GetSession(context.Background(), "missing"); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRecentSessionsNewestFirst(t *testing.T) {
	q := testQueries(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	for i, id := range []string{"old", "mid", "new"} {
		err := q.CreateSession(ctx, SessionRow{
			ID:        id,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
			Status:    "COMPLETED",
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	got, err := q.RecentSessions(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "new" || got[1].ID != "mid" {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestSignalRecording(t *testing.T) {
	q := testQueries(t)
	ctx := context.Background()

	rows := []SignalRow{
		{SessionID: "s", Symbol: "BTCUSDT", Action: "BUY", Price: 100, Confidence: 0.8, Strategy: "mom", Accepted: true, CreatedAt: time.Now().UTC()},
		{SessionID: "s", Symbol: "BTCUSDT", Action: "BUY", Price: 101, Confidence: 0.4, Strategy: "mom", Accepted: false, RejectionCode: "POSITION_EXISTS", CreatedAt: time.Now().UTC()},
	}
	for _, r := range rows {
		if err := q.RecordSignal(ctx, r); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	got, err := q.SignalsBySession(ctx, "s", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d signals, want 2", len(got))
	}

	var accepted, rejected *SignalRow
	for i := range got {
		if got[i].Accepted {
			accepted = &got[i]
		} else {
			rejected = &got[i]
		}
	}
	if accepted == nil || rejected == nil {
		t.Fatalf("missing accepted/rejected rows: %+v", got)
	}
	if accepted.RejectionCode != "" {
		t.Errorf("accepted signal carries rejection code %q", accepted.RejectionCode)
	}
	if rejected.RejectionCode != "POSITION_EXISTS" {
		t.Errorf("rejection code = %q", rejected.RejectionCode)
	}
}

func TestOrderResolution(t *testing.T) {
	q := testQueries(t)
	ctx := context.Background()

	o := OrderRow{
		ID:        "ord-1",
		SessionID: "s",
		Symbol:    "ETHUSDT",
		Side:      "SELL",
		Qty:       5,
		Tag:       "exit:STOP_LOSS",
		Status:    "PENDING",
		CreatedAt: time.Now().UTC(),
	}
	if err := q.RecordOrder(ctx, o); err != nil {
		t.Fatalf("record: %v", err)
	}

	if err := q.ResolveOrder(ctx, "ord-1", "FILLED", 199.5); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	got, err := q.OrdersBySession(ctx, "s", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d orders, want 1", len(got))
	}
	if got[0].Status != "FILLED" || got[0].FillPrice != 199.5 {
		t.Errorf("resolution not persisted: %+v", got[0])
	}
	if got[0].ResolvedAt == nil {
		t.Error("resolved_at not set")
	}
}

func TestClosedPositionHistory(t *testing.T) {
	q := testQueries(t)
	ctx := context.Background()
	opened := time.Now().UTC().Add(-time.Hour)

	h := HistoryRow{
		ID:          "hist-1",
		SessionID:   "s",
		Symbol:      "BTCUSDT",
		Side:        "LONG",
		Qty:         10,
		EntryPrice:  100,
		ExitPrice:   105,
		StopLoss:    98,
		TakeProfit:  105,
		RealizedPnL: 50,
		Strategy:    "mom",
		ExitReason:  "TAKE_PROFIT",
		OpenedAt:    opened,
		ClosedAt:    opened.Add(30 * time.Minute),
	}
	if err := q.RecordClosedPosition(ctx, h); err != nil {
		t.Fatalf("record: %v", err)
	}

	got, err := q.HistoryBySession(ctx, "s", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d rows, want 1", len(got))
	}
	if got[0].RealizedPnL != 50 || got[0].ExitReason != "TAKE_PROFIT" || got[0].Side != "LONG" {
		t.Errorf("history mismatch: %+v", got[0])
	}
}
