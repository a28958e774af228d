package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.Capital != 100000 || cfg.MaxPositions != 5 {
		t.Errorf("risk defaults off: capital=%.0f positions=%d", cfg.Capital, cfg.MaxPositions)
	}
	if cfg.BrokerTimeout != 5*time.Second {
		t.Errorf("BrokerTimeout = %v, want 5s", cfg.BrokerTimeout)
	}
	if cfg.StrategyInterval != 5*time.Second || cfg.MonitorInterval != 2*time.Second || cfg.RiskInterval != 10*time.Second {
		t.Errorf("cadence defaults off: %v/%v/%v", cfg.StrategyInterval, cfg.MonitorInterval, cfg.RiskInterval)
	}
	if cfg.StrategyCooldown != time.Minute {
		t.Errorf("StrategyCooldown = %v, want 1m", cfg.StrategyCooldown)
	}
	if len(cfg.Symbols) != 2 || cfg.Symbols[0] != "BTCUSDT" {
		t.Errorf("Symbols = %v", cfg.Symbols)
	}
	if !cfg.UseMockFeed || !cfg.AutoExecute {
		t.Error("mock feed and auto-execute default to on")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("BROKER_TIMEOUT", "1500ms")
	t.Setenv("STRATEGY_INTERVAL", "250ms")
	t.Setenv("MONITOR_INTERVAL", "100ms")
	t.Setenv("RISK_INTERVAL", "30s")
	t.Setenv("STRATEGY_COOLDOWN", "5m")
	t.Setenv("MAX_POSITIONS", "2")
	t.Setenv("ALLOWED_SYMBOLS", " BTCUSDT , ETHUSDT ,")
	t.Setenv("AUTO_EXECUTE", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.BrokerTimeout != 1500*time.Millisecond {
		t.Errorf("BrokerTimeout = %v", cfg.BrokerTimeout)
	}
	if cfg.StrategyInterval != 250*time.Millisecond || cfg.MonitorInterval != 100*time.Millisecond || cfg.RiskInterval != 30*time.Second {
		t.Errorf("cadences = %v/%v/%v", cfg.StrategyInterval, cfg.MonitorInterval, cfg.RiskInterval)
	}
	if cfg.StrategyCooldown != 5*time.Minute {
		t.Errorf("StrategyCooldown = %v", cfg.StrategyCooldown)
	}
	if cfg.MaxPositions != 2 {
		t.Errorf("MaxPositions = %d", cfg.MaxPositions)
	}
	if len(cfg.AllowedSymbols) != 2 || cfg.AllowedSymbols[1] != "ETHUSDT" {
		t.Errorf("AllowedSymbols = %v, whitespace and empties should be trimmed", cfg.AllowedSymbols)
	}
	if cfg.AutoExecute {
		t.Error("AUTO_EXECUTE=false not honored")
	}
}

func TestLoadRejectsBadDurations(t *testing.T) {
	t.Setenv("STRATEGY_INTERVAL", "soon")
	t.Setenv("MONITOR_INTERVAL", "-2s")
	t.Setenv("RISK_INTERVAL", "0s")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	// Unparseable or non-positive values fall back to the defaults.
	if cfg.StrategyInterval != 5*time.Second {
		t.Errorf("StrategyInterval = %v, want default 5s", cfg.StrategyInterval)
	}
	if cfg.MonitorInterval != 2*time.Second {
		t.Errorf("MonitorInterval = %v, want default 2s", cfg.MonitorInterval)
	}
	if cfg.RiskInterval != 10*time.Second {
		t.Errorf("RiskInterval = %v, want default 10s", cfg.RiskInterval)
	}
}
