// Package db provides SQLite persistence for sessions, signals, orders and
// closed positions.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("record not found")

// Queries wraps prepared access to the engine tables.
type Queries struct {
	db *sql.DB
}

// NewQueries creates a Queries instance over an open handle.
func NewQueries(db *sql.DB) *Queries {
	return &Queries{db: db}
}

// ----------------------------------------
// Session Queries
// ----------------------------------------

// CreateSession inserts a new session row.
func (q *Queries) CreateSession(ctx context.Context, s SessionRow) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO sessions (id, started_at, capital, trades, wins, realized_pnl, peak_equity, max_drawdown, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.StartedAt, s.Capital, s.Trades, s.Wins, s.RealizedPnL, s.PeakEquity, s.MaxDrawdown, s.Status)
	return err
}

// UpdateSession rewrites the mutable columns of a session row.
func (q *Queries) UpdateSession(ctx context.Context, s SessionRow) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE sessions
		SET ended_at = ?, trades = ?, wins = ?, realized_pnl = ?, peak_equity = ?, max_drawdown = ?, status = ?
		WHERE id = ?
	`, s.EndedAt, s.Trades, s.Wins, s.RealizedPnL, s.PeakEquity, s.MaxDrawdown, s.Status, s.ID)
	return err
}

// GetSession returns one session by ID.
func (q *Queries) GetSession(ctx context.Context, id string) (*SessionRow, error) {
	var s SessionRow
	err := q.db.QueryRowContext(ctx, `
		SELECT id, started_at, ended_at, capital, trades, wins, realized_pnl, peak_equity, max_drawdown, status
		FROM sessions
		WHERE id = ?
	`, id).Scan(&s.ID, &s.StartedAt, &s.EndedAt, &s.Capital, &s.Trades, &s.Wins, &s.RealizedPnL, &s.PeakEquity, &s.MaxDrawdown, &s.Status)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	return &s, nil
}

// RecentSessions returns the newest sessions first.
func (q *Queries) RecentSessions(ctx context.Context, limit int) ([]SessionRow, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, started_at, ended_at, capital, trades, wins, realized_pnl, peak_equity, max_drawdown, status
		FROM sessions
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRow
	for rows.Next() {
		var s SessionRow
		if err := rows.Scan(&s.ID, &s.StartedAt, &s.EndedAt, &s.Capital, &s.Trades, &s.Wins, &s.RealizedPnL, &s.PeakEquity, &s.MaxDrawdown, &s.Status); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ----------------------------------------
// Signal Queries
// ----------------------------------------

// RecordSignal inserts an evaluated signal.
func (q *Queries) RecordSignal(ctx context.Context, s SignalRow) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO signals (session_id, symbol, action, price, confidence, strategy, accepted, rejection_code, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.SessionID, s.Symbol, s.Action, s.Price, s.Confidence, s.Strategy, s.Accepted, nullIfEmpty(s.RejectionCode), s.CreatedAt)
	return err
}

// SignalsBySession returns signals for a session, newest first.
func (q *Queries) SignalsBySession(ctx context.Context, sessionID string, limit int) ([]SignalRow, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, session_id, symbol, action, price, confidence, strategy, accepted, COALESCE(rejection_code, ''), created_at
		FROM signals
		WHERE session_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	var out []SignalRow
	for rows.Next() {
		var s SignalRow
		if err := rows.Scan(&s.ID, &s.SessionID, &s.Symbol, &s.Action, &s.Price, &s.Confidence, &s.Strategy, &s.Accepted, &s.RejectionCode, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ----------------------------------------
// Order Queries
// ----------------------------------------

// RecordOrder inserts a submitted order.
func (q *Queries) RecordOrder(ctx context.Context, o OrderRow) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO orders (id, session_id, symbol, side, qty, tag, status, fill_price, created_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, o.ID, o.SessionID, o.Symbol, o.Side, o.Qty, o.Tag, o.Status, o.FillPrice, o.CreatedAt, o.ResolvedAt)
	return err
}

// ResolveOrder records an order's terminal status and fill price.
func (q *Queries) ResolveOrder(ctx context.Context, orderID, status string, fillPrice float64) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE orders
		SET status = ?, fill_price = ?, resolved_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, status, fillPrice, orderID)
	return err
}

// OrdersBySession returns orders for a session, newest first.
func (q *Queries) OrdersBySession(ctx context.Context, sessionID string, limit int) ([]OrderRow, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, session_id, symbol, side, qty, COALESCE(tag, ''), status, fill_price, created_at, resolved_at
		FROM orders
		WHERE session_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var out []OrderRow
	for rows.Next() {
		var o OrderRow
		if err := rows.Scan(&o.ID, &o.SessionID, &o.Symbol, &o.Side, &o.Qty, &o.Tag, &o.Status, &o.FillPrice, &o.CreatedAt, &o.ResolvedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ----------------------------------------
// Position History Queries
// ----------------------------------------

// RecordClosedPosition inserts a fully closed position.
func (q *Queries) RecordClosedPosition(ctx context.Context, h HistoryRow) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO position_history (id, session_id, symbol, side, qty, entry_price, exit_price, stop_loss, take_profit, realized_pnl, strategy, exit_reason, opened_at, closed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, h.ID, h.SessionID, h.Symbol, h.Side, h.Qty, h.EntryPrice, h.ExitPrice, h.StopLoss, h.TakeProfit, h.RealizedPnL, h.Strategy, h.ExitReason, h.OpenedAt, h.ClosedAt)
	return err
}

// HistoryBySession returns closed positions for a session, newest first.
func (q *Queries) HistoryBySession(ctx context.Context, sessionID string, limit int) ([]HistoryRow, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, session_id, symbol, side, qty, entry_price, exit_price, stop_loss, take_profit, realized_pnl, COALESCE(strategy, ''), COALESCE(exit_reason, ''), opened_at, closed_at
		FROM position_history
		WHERE session_id = ?
		ORDER BY closed_at DESC
		LIMIT ?
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query position history: %w", err)
	}
	defer rows.Close()

	var out []HistoryRow
	for rows.Next() {
		var h HistoryRow
		if err := rows.Scan(&h.ID, &h.SessionID, &h.Symbol, &h.Side, &h.Qty, &h.EntryPrice, &h.ExitPrice, &h.StopLoss, &h.TakeProfit, &h.RealizedPnL, &h.Strategy, &h.ExitReason, &h.OpenedAt, &h.ClosedAt); err != nil {
			return nil, fmt.Errorf("scan position history: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
