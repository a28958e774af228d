package risk

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Limits are the per-session risk parameters. They are immutable for the
// lifetime of a session.
type Limits struct {
	// Capital and sizing
	Capital         float64 `yaml:"capital"`
	MaxRiskPerTrade float64 `yaml:"max_risk_per_trade"` // fraction of capital, e.g. 0.02
	MaxPositions    int     `yaml:"max_positions"`

	// Session circuit breaker
	MaxDailyLoss float64 `yaml:"max_daily_loss"`
	MaxDrawdown  float64 `yaml:"max_drawdown"`

	// Stop-loss / take-profit defaults applied when a signal supplies none
	StopLossPct   float64 `yaml:"stop_loss_pct"`
	TakeProfitPct float64 `yaml:"take_profit_pct"`

	// Symbol universe; empty means unrestricted
	AllowedSymbols []string `yaml:"allowed_symbols"`

	// Trading-hours window
	Hours Window `yaml:"trading_hours"`
}

// Window is a daily trading window in "HH:MM" local time. Zero value means
// always open.
type Window struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if w.Start == "" || w.End == "" {
		return true
	}
	start, err1 := time.Parse("15:04", w.Start)
	end, err2 := time.Parse("15:04", w.End)
	if err1 != nil || err2 != nil {
		return true
	}

	minutes := t.Hour()*60 + t.Minute()
	startMin := start.Hour()*60 + start.Minute()
	endMin := end.Hour()*60 + end.Minute()
	if startMin <= endMin {
		return minutes >= startMin && minutes < endMin
	}
	// Overnight window, e.g. 22:00-04:00.
	return minutes >= startMin || minutes < endMin
}

// SymbolAllowed reports whether the symbol passes the allow-list. An empty
// list allows everything.
func (l Limits) SymbolAllowed(symbol string) bool {
	if len(l.AllowedSymbols) == 0 {
		return true
	}
	for _, s := range l.AllowedSymbols {
		if s == symbol {
			return true
		}
	}
	return false
}

// DefaultLimits returns conservative defaults for local runs.
func DefaultLimits() Limits {
	return Limits{
		Capital:         100000,
		MaxRiskPerTrade: 0.02,
		MaxPositions:    5,
		MaxDailyLoss:    2000,
		MaxDrawdown:     5000,
		StopLossPct:     0.02,
		TakeProfitPct:   0.05,
	}
}

// LoadLimitsFile reads limits from a YAML file, starting from defaults so a
// partial file only overrides what it names.
func LoadLimitsFile(path string) (Limits, error) {
	limits := DefaultLimits()

	data, err := os.ReadFile(path)
	if err != nil {
		return limits, fmt.Errorf("read limits file: %w", err)
	}
	if err := yaml.Unmarshal(data, &limits); err != nil {
		return limits, fmt.Errorf("parse limits file: %w", err)
	}
	return limits, nil
}
