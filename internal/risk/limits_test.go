package risk

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func at(hhmm string) time.Time {
	parsed, err := time.Parse("15:04", hhmm)
	if err != nil {
		panic(err)
	}
	return time.Date(2024, 6, 3, parsed.Hour(), parsed.Minute(), 0, 0, time.Local)
}

func TestWindowContains(t *testing.T) {
	tests := []struct {
		name   string
		window Window
		at     string
		want   bool
	}{
		{"zero window always open", Window{}, "03:00", true},
		{"inside", Window{Start: "09:30", End: "16:00"}, "12:00", true},
		{"at open", Window{Start: "09:30", End: "16:00"}, "09:30", true},
		{"at close is outside", Window{Start: "09:30", End: "16:00"}, "16:00", false},
		{"before open", Window{Start: "09:30", End: "16:00"}, "09:00", false},
		{"overnight inside late", Window{Start: "22:00", End: "04:00"}, "23:30", true},
		{"overnight inside early", Window{Start: "22:00", End: "04:00"}, "02:00", true},
		{"overnight outside", Window{Start: "22:00", End: "04:00"}, "12:00", false},
		{"unparseable is open", Window{Start: "nope", End: "16:00"}, "03:00", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.window.Contains(at(tt.at)); got != tt.want {
				t.Errorf("Contains(%s) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestSymbolAllowed(t *testing.T) {
	empty := Limits{}
	if !empty.SymbolAllowed("ANYTHING") {
		t.Error("empty allow-list should allow everything")
	}

	limited := Limits{AllowedSymbols: []string{"BTCUSDT", "ETHUSDT"}}
	if !limited.SymbolAllowed("BTCUSDT") {
		t.Error("listed symbol refused")
	}
	if limited.SymbolAllowed("DOGEUSDT") {
		t.Error("unlisted symbol allowed")
	}
}

func TestLoadLimitsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "limits.yaml")
	content := []byte(`
capital: 50000
max_risk_per_trade: 0.01
max_positions: 3
max_daily_loss: 1000
allowed_symbols:
  - BTCUSDT
trading_hours:
  start: "09:30"
  end: "16:00"
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	limits, err := LoadLimitsFile(path)
	if err != nil {
		t.Fatalf("LoadLimitsFile: %v", err)
	}

	if limits.Capital != 50000 || limits.MaxRiskPerTrade != 0.01 || limits.MaxPositions != 3 {
		t.Errorf("sizing fields wrong: %+v", limits)
	}
	if limits.MaxDailyLoss != 1000 {
		t.Errorf("MaxDailyLoss = %.0f", limits.MaxDailyLoss)
	}
	// Unset fields keep defaults.
	if limits.MaxDrawdown != DefaultLimits().MaxDrawdown {
		t.Errorf("MaxDrawdown = %.0f, want default", limits.MaxDrawdown)
	}
	if len(limits.AllowedSymbols) != 1 || limits.AllowedSymbols[0] != "BTCUSDT" {
		t.Errorf("AllowedSymbols = %v", limits.AllowedSymbols)
	}
	if limits.Hours.Start != "09:30" || limits.Hours.End != "16:00" {
		t.Errorf("Hours = %+v", limits.Hours)
	}
}

func TestLoadLimitsFileMissing(t *testing.T) {
	if _, err := LoadLimitsFile("/definitely/not/here.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
