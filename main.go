package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"execution-core/internal/api"
	"execution-core/internal/engine"
	"execution-core/internal/events"
	"execution-core/internal/market"
	"execution-core/internal/monitor"
	"execution-core/internal/order"
	"execution-core/internal/persistence"
	"execution-core/internal/risk"
	"execution-core/internal/strategy/builtin"
	"execution-core/pkg/config"
	"execution-core/pkg/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	log.Printf("execution core starting (port=%s symbols=%v)", cfg.Port, cfg.Symbols)

	buildVersion := os.Getenv("APP_VERSION")
	if buildVersion == "" {
		buildVersion = "v1.0-dev"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := events.NewBus()

	// Risk limits: defaults, then YAML file, then env overrides.
	limits := riskLimits(cfg)

	// Persistence
	var store persistence.Store = persistence.NopStore{}
	var queries *db.Queries
	if cfg.PersistenceEnabled {
		database, err := db.New(cfg.DBPath)
		if err != nil {
			log.Fatalf("open database: %v", err)
		}
		defer database.Close()
		if err := db.ApplyMigrations(database); err != nil {
			log.Fatalf("apply migrations: %v", err)
		}
		store = persistence.NewSQLStore(database)
		queries = db.NewQueries(database.DB)
		log.Printf("persistence enabled at %s", cfg.DBPath)
	}

	// Market data feed
	var feed market.Feed
	if cfg.UseMockFeed || cfg.FeedURL == "" {
		feed = market.NewMockFeed(250 * time.Millisecond)
		log.Printf("using mock market feed")
	} else {
		feed = market.NewStreamFeed(cfg.FeedURL)
		log.Printf("using stream feed at %s", cfg.FeedURL)
	}

	// Broker gateway: simulated fills at cached prices. The cache is shared
	// with the engine so fills track the same view of the market.
	cache := market.NewCache(market.DefaultDepth)
	gateway := order.NewSimGateway(cache, cfg.SlippageBps, time.Duration(cfg.GatewayLatencyMs)*time.Millisecond)
	defer gateway.Close()

	eng := engine.New(engine.Options{
		Limits:          limits,
		Feed:            feed,
		Gateway:         gateway,
		Symbols:         cfg.Symbols,
		Cache:           cache,
		Store:           store,
		Bus:             bus,
		Cooldown:        cfg.StrategyCooldown,
		AutoExecute:     cfg.AutoExecute,
		LiquidateOnStop: cfg.LiquidateOnStop,
		BrokerTimeout:   cfg.BrokerTimeout,

		StrategyInterval: cfg.StrategyInterval,
		MonitorInterval:  cfg.MonitorInterval,
		RiskInterval:     cfg.RiskInterval,
	})

	// Built-in strategies
	if err := eng.Registry().Register(builtin.NewMomentum(builtin.DefaultMomentumParams())); err != nil {
		log.Fatalf("register momentum strategy: %v", err)
	}
	if err := eng.Registry().Register(builtin.NewMeanReversion(builtin.DefaultMeanReversionParams())); err != nil {
		log.Fatalf("register mean-reversion strategy: %v", err)
	}

	if err := eng.Start(ctx); err != nil {
		log.Fatalf("start engine: %v", err)
	}

	// Risk alerts to the process log.
	alerts := &monitor.Monitor{Bus: bus, Sink: monitor.LogSink{}}
	alerts.Start(ctx)

	// API
	server := api.NewServer(eng, queries, api.SystemMeta{
		Version:     buildVersion,
		Symbols:     cfg.Symbols,
		UseMockFeed: cfg.UseMockFeed,
		AutoExecute: cfg.AutoExecute,
		StartedAt:   time.Now().UTC(),
	})
	go func() {
		if err := server.Start(":" + cfg.Port); err != nil {
			log.Fatalf("api server: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("shutting down")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := eng.Stop(stopCtx); err != nil {
		log.Printf("⚠️ engine stop: %v", err)
	}
}

// riskLimits layers the optional YAML limits file and env overrides on top
// of the defaults.
func riskLimits(cfg *config.Config) risk.Limits {
	limits := risk.DefaultLimits()
	if cfg.RiskLimitsFile != "" {
		loaded, err := risk.LoadLimitsFile(cfg.RiskLimitsFile)
		if err != nil {
			log.Fatalf("load risk limits file: %v", err)
		}
		limits = loaded
	}

	limits.Capital = cfg.Capital
	limits.MaxRiskPerTrade = cfg.MaxRiskPerTrade
	limits.MaxPositions = cfg.MaxPositions
	limits.MaxDailyLoss = cfg.MaxDailyLoss
	limits.MaxDrawdown = cfg.MaxDrawdown
	limits.StopLossPct = cfg.StopLossPct
	limits.TakeProfitPct = cfg.TakeProfitPct
	if len(cfg.AllowedSymbols) > 0 {
		limits.AllowedSymbols = cfg.AllowedSymbols
	}
	if cfg.TradingStart != "" && cfg.TradingEnd != "" {
		limits.Hours = risk.Window{Start: cfg.TradingStart, End: cfg.TradingEnd}
	}
	return limits
}
