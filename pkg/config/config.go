package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the execution engine.
type Config struct {
	Port string

	// Risk limits (env overrides; RISK_LIMITS_FILE layers a YAML file on top)
	Capital         float64
	MaxRiskPerTrade float64
	MaxPositions    int
	MaxDailyLoss    float64
	MaxDrawdown     float64
	StopLossPct     float64
	TakeProfitPct   float64
	AllowedSymbols  []string
	TradingStart    string // HH:MM, empty means always-on
	TradingEnd      string
	RiskLimitsFile  string

	// Market data
	UseMockFeed bool
	FeedURL     string
	Symbols     []string

	// Execution
	AutoExecute      bool
	LiquidateOnStop  bool
	SlippageBps      float64
	GatewayLatencyMs int
	BrokerTimeout    time.Duration

	// Scheduler cadences
	StrategyInterval time.Duration
	MonitorInterval  time.Duration
	RiskInterval     time.Duration
	StrategyCooldown time.Duration

	// Database
	DBPath             string
	PersistenceEnabled bool
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	return &Config{
		Port:               getEnv("PORT", "8080"),
		Capital:            getEnvFloat("CAPITAL", 100000),
		MaxRiskPerTrade:    getEnvFloat("MAX_RISK_PER_TRADE", 0.02),
		MaxPositions:       getEnvInt("MAX_POSITIONS", 5),
		MaxDailyLoss:       getEnvFloat("MAX_DAILY_LOSS", 2000),
		MaxDrawdown:        getEnvFloat("MAX_DRAWDOWN", 5000),
		StopLossPct:        getEnvFloat("STOP_LOSS_PCT", 0.02),
		TakeProfitPct:      getEnvFloat("TAKE_PROFIT_PCT", 0.05),
		AllowedSymbols:     splitAndTrim(getEnv("ALLOWED_SYMBOLS", "")),
		TradingStart:       getEnv("TRADING_HOURS_START", ""),
		TradingEnd:         getEnv("TRADING_HOURS_END", ""),
		RiskLimitsFile:     getEnv("RISK_LIMITS_FILE", ""),
		UseMockFeed:        getEnv("USE_MOCK_FEED", "true") == "true",
		FeedURL:            getEnv("FEED_URL", ""),
		Symbols:            splitAndTrim(getEnv("SYMBOLS", "BTCUSDT,ETHUSDT")),
		AutoExecute:        getEnv("AUTO_EXECUTE", "true") == "true",
		LiquidateOnStop:    getEnv("LIQUIDATE_ON_STOP", "false") == "true",
		SlippageBps:        getEnvFloat("SLIPPAGE_BPS", 2),
		GatewayLatencyMs:   getEnvInt("GATEWAY_LATENCY_MS", 50),
		BrokerTimeout:      getEnvDuration("BROKER_TIMEOUT", 5*time.Second),
		StrategyInterval:   getEnvDuration("STRATEGY_INTERVAL", 5*time.Second),
		MonitorInterval:    getEnvDuration("MONITOR_INTERVAL", 2*time.Second),
		RiskInterval:       getEnvDuration("RISK_INTERVAL", 10*time.Second),
		StrategyCooldown:   getEnvDuration("STRATEGY_COOLDOWN", time.Minute),
		DBPath:             getEnv("DB_PATH", "./data/execution.db"),
		PersistenceEnabled: getEnv("PERSISTENCE_ENABLED", "true") == "true",
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitAndTrim(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}
