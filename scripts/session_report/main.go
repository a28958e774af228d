// Prints a summary of recent trading sessions from the SQLite database.
//
// Usage:
//
//	go run ./scripts/session_report -db ./data/execution.db -n 5
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"execution-core/pkg/db"
)

func main() {
	dbPath := flag.String("db", "./data/execution.db", "path to the SQLite database")
	n := flag.Int("n", 5, "number of sessions to report")
	flag.Parse()

	database, err := db.New(*dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer database.Close()

	queries := db.NewQueries(database.DB)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sessions, err := queries.RecentSessions(ctx, *n)
	if err != nil {
		log.Fatalf("query sessions: %v", err)
	}
	if len(sessions) == 0 {
		fmt.Println("no sessions recorded")
		return
	}

	for _, s := range sessions {
		fmt.Printf("\nsession %s (%s)\n", s.ID, s.Status)
		fmt.Printf("  started:  %s\n", s.StartedAt.Format(time.RFC3339))
		if s.EndedAt != nil {
			fmt.Printf("  ended:    %s\n", s.EndedAt.Format(time.RFC3339))
		}
		winRate := 0.0
		if s.Trades > 0 {
			winRate = float64(s.Wins) / float64(s.Trades) * 100
		}
		fmt.Printf("  trades:   %d (%.0f%% wins)\n", s.Trades, winRate)
		fmt.Printf("  pnl:      %.2f (max drawdown %.2f)\n", s.RealizedPnL, s.MaxDrawdown)

		history, err := queries.HistoryBySession(ctx, s.ID, 10)
		if err != nil {
			log.Fatalf("query history: %v", err)
		}
		for _, h := range history {
			fmt.Printf("    %-10s %-5s qty=%-6.0f %8.2f -> %8.2f  pnl=%8.2f  %s\n",
				h.Symbol, h.Side, h.Qty, h.EntryPrice, h.ExitPrice, h.RealizedPnL, h.ExitReason)
		}
	}
}
