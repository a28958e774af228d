// Package persistence writes engine records to SQLite off the hot path.
// All recording methods enqueue and return immediately; a single worker
// goroutine owns the database handle, so persistence never blocks a
// trading decision.
package persistence

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"execution-core/internal/position"
	"execution-core/internal/risk"
	"execution-core/internal/session"
	"execution-core/internal/strategy"
	"execution-core/pkg/db"
)

// Store records engine activity. Implementations must not block callers.
type Store interface {
	SaveSession(s session.Session)
	UpdateSession(s session.Session)
	RecordSignal(sessionID string, sig strategy.Signal, rej *risk.Rejection)
	RecordOrder(sessionID, orderID, symbol, side, tag string, qty float64)
	ResolveOrder(orderID, status string, fillPrice float64)
	RecordClosedPosition(sessionID string, p position.Position)
	Close() error
}

// SQLStore is the SQLite-backed Store.
type SQLStore struct {
	queries *db.Queries
	jobs    chan func(context.Context)
	done    chan struct{}
	wg      sync.WaitGroup
	dropped uint64
}

const jobBuffer = 256

// NewSQLStore starts the write worker over an open database.
func NewSQLStore(database *db.Database) *SQLStore {
	s := &SQLStore{
		queries: db.NewQueries(database.DB),
		jobs:    make(chan func(context.Context), jobBuffer),
		done:    make(chan struct{}),
	}
	s.wg.Add(1)
	go s.worker()
	return s
}

func (s *SQLStore) worker() {
	defer s.wg.Done()
	for {
		select {
		case job := <-s.jobs:
			s.run(job)
		case <-s.done:
			// Drain what is already queued before exiting.
			for {
				select {
				case job := <-s.jobs:
					s.run(job)
				default:
					return
				}
			}
		}
	}
}

func (s *SQLStore) run(job func(context.Context)) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	job(ctx)
}

// enqueue hands a write to the worker; a full queue drops the record
// rather than stall the engine.
func (s *SQLStore) enqueue(job func(context.Context)) {
	select {
	case s.jobs <- job:
	default:
		n := atomic.AddUint64(&s.dropped, 1)
		log.Printf("⚠️ persistence: queue full, record dropped (total %d)", n)
	}
}

func (s *SQLStore) SaveSession(sess session.Session) {
	row := sessionRow(sess)
	s.enqueue(func(ctx context.Context) {
		if err := s.queries.CreateSession(ctx, row); err != nil {
			log.Printf("❌ persistence: save session %s: %v", row.ID, err)
		}
	})
}

func (s *SQLStore) UpdateSession(sess session.Session) {
	row := sessionRow(sess)
	s.enqueue(func(ctx context.Context) {
		if err := s.queries.UpdateSession(ctx, row); err != nil {
			log.Printf("❌ persistence: update session %s: %v", row.ID, err)
		}
	})
}

func (s *SQLStore) RecordSignal(sessionID string, sig strategy.Signal, rej *risk.Rejection) {
	row := db.SignalRow{
		SessionID:  sessionID,
		Symbol:     sig.Symbol,
		Action:     string(sig.Action),
		Price:      sig.Price,
		Confidence: sig.Confidence,
		Strategy:   sig.Strategy,
		Accepted:   rej == nil,
		CreatedAt:  sig.CreatedAt,
	}
	if rej != nil {
		row.RejectionCode = string(rej.Code)
	}
	s.enqueue(func(ctx context.Context) {
		if err := s.queries.RecordSignal(ctx, row); err != nil {
			log.Printf("❌ persistence: record signal %s/%s: %v", row.Symbol, row.Strategy, err)
		}
	})
}

func (s *SQLStore) RecordOrder(sessionID, orderID, symbol, side, tag string, qty float64) {
	row := db.OrderRow{
		ID:        orderID,
		SessionID: sessionID,
		Symbol:    symbol,
		Side:      side,
		Qty:       qty,
		Tag:       tag,
		Status:    "PENDING",
		CreatedAt: time.Now(),
	}
	s.enqueue(func(ctx context.Context) {
		if err := s.queries.RecordOrder(ctx, row); err != nil {
			log.Printf("❌ persistence: record order %s: %v", row.ID, err)
		}
	})
}

func (s *SQLStore) ResolveOrder(orderID, status string, fillPrice float64) {
	s.enqueue(func(ctx context.Context) {
		if err := s.queries.ResolveOrder(ctx, orderID, status, fillPrice); err != nil {
			log.Printf("❌ persistence: resolve order %s: %v", orderID, err)
		}
	})
}

func (s *SQLStore) RecordClosedPosition(sessionID string, p position.Position) {
	closedAt := time.Now()
	if p.ExitTime != nil {
		closedAt = *p.ExitTime
	}
	row := db.HistoryRow{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		Symbol:      p.Symbol,
		Side:        string(p.Side),
		Qty:         p.Quantity,
		EntryPrice:  p.EntryPrice,
		ExitPrice:   p.CurrentPrice,
		StopLoss:    p.StopLoss,
		TakeProfit:  p.Target,
		RealizedPnL: p.RealizedPnL,
		Strategy:    p.Strategy,
		ExitReason:  string(p.ExitReason),
		OpenedAt:    p.EntryTime,
		ClosedAt:    closedAt,
	}
	s.enqueue(func(ctx context.Context) {
		if err := s.queries.RecordClosedPosition(ctx, row); err != nil {
			log.Printf("❌ persistence: record closed position %s: %v", row.ID, err)
		}
	})
}

// Close flushes queued writes and stops the worker.
func (s *SQLStore) Close() error {
	close(s.done)
	s.wg.Wait()
	if n := atomic.LoadUint64(&s.dropped); n > 0 {
		log.Printf("⚠️ persistence: %d records were dropped during the session", n)
	}
	return nil
}

func sessionRow(sess session.Session) db.SessionRow {
	return db.SessionRow{
		ID:          sess.ID,
		StartedAt:   sess.StartedAt,
		EndedAt:     sess.EndedAt,
		Capital:     sess.Capital,
		Trades:      sess.Trades,
		Wins:        sess.Wins,
		RealizedPnL: sess.RealizedPnL,
		PeakEquity:  sess.PeakEquity,
		MaxDrawdown: sess.MaxDrawdown,
		Status:      string(sess.Status),
	}
}

// NopStore discards everything; used when persistence is disabled.
type NopStore struct{}

func (NopStore) SaveSession(session.Session)                                   {}
func (NopStore) UpdateSession(session.Session)                                 {}
func (NopStore) RecordSignal(string, strategy.Signal, *risk.Rejection)         {}
func (NopStore) RecordOrder(string, string, string, string, string, float64)   {}
func (NopStore) ResolveOrder(string, string, float64)                          {}
func (NopStore) RecordClosedPosition(string, position.Position)                {}
func (NopStore) Close() error                                                  { return nil }
