// Package api exposes a read-only HTTP surface over the running engine:
// session statistics, live positions, recent signals/orders and a websocket
// event stream. It never mutates trading state.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"execution-core/internal/engine"
	"execution-core/pkg/db"
)

// Server wires HTTP endpoints around the engine.
type Server struct {
	Router  *gin.Engine
	Engine  *engine.Engine
	Queries *db.Queries
	Meta    SystemMeta
}

// SystemMeta describes runtime status exposed to clients.
type SystemMeta struct {
	Version     string
	Symbols     []string
	UseMockFeed bool
	AutoExecute bool
	StartedAt   time.Time
}

// NewServer builds the router. queries may be nil when persistence is
// disabled; the history endpoints then return 404.
func NewServer(eng *engine.Engine, queries *db.Queries, meta SystemMeta) *Server {
	r := gin.New()

	// Middleware stack (order matters!)
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger())
	r.Use(RateLimitMiddleware())
	r.Use(TimeoutMiddleware(30 * time.Second))
	r.Use(CORSMiddleware())

	s := &Server{
		Router:  r,
		Engine:  eng,
		Queries: queries,
		Meta:    meta,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/ws", s.websocket)

	api := s.Router.Group("/api")
	{
		api.GET("/status", s.getStatus)
		api.GET("/metrics", s.getMetrics)
		api.GET("/session", s.getSession)
		api.GET("/positions", s.getPositions)
		api.GET("/positions/history", s.getPositionHistory)
		api.GET("/risk", s.getRisk)
		api.GET("/strategies", s.getStrategies)
		api.GET("/prices", s.getPrices)
		api.GET("/signals", s.getSignals)
		api.GET("/orders", s.getOrders)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getStatus(c *gin.Context) {
	sess := s.Engine.Session()
	c.JSON(http.StatusOK, gin.H{
		"version":      s.Meta.Version,
		"server_time":  time.Now().UTC(),
		"started_at":   s.Meta.StartedAt,
		"symbols":      s.Meta.Symbols,
		"mock_feed":    s.Meta.UseMockFeed,
		"auto_execute": s.Meta.AutoExecute,
		"session_id":   sess.ID,
		"halted":       s.Engine.Breaker().Tripped(),
		"halt_reason":  s.Engine.Breaker().Reason(),
	})
}

func (s *Server) getMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.Engine.Metrics().GetSnapshot())
}

func (s *Server) getSession(c *gin.Context) {
	sess := s.Engine.Session()
	c.JSON(http.StatusOK, gin.H{
		"session":          sess,
		"unrealized_pnl":   s.Engine.Book().UnrealizedTotal(),
		"active_positions": s.Engine.Book().Count(),
	})
}

func (s *Server) getPositions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"positions": s.Engine.Book().Active()})
}

func (s *Server) getPositionHistory(c *gin.Context) {
	if s.Queries == nil {
		// In-memory fallback when persistence is disabled.
		c.JSON(http.StatusOK, gin.H{"history": s.Engine.Book().History(limitParam(c, 50))})
		return
	}

	rows, err := s.Queries.HistoryBySession(c.Request.Context(), s.Engine.Session().ID, limitParam(c, 50))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": rows})
}

func (s *Server) getRisk(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"limits":      s.Engine.Limits(),
		"halted":      s.Engine.Breaker().Tripped(),
		"halt_reason": s.Engine.Breaker().Reason(),
	})
}

func (s *Server) getStrategies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"strategies": s.Engine.Registry().Names()})
}

func (s *Server) getPrices(c *gin.Context) {
	cache := s.Engine.Cache()
	out := make(map[string]float64)
	for _, sym := range cache.Symbols() {
		out[sym] = cache.LastPrice(sym)
	}
	c.JSON(http.StatusOK, gin.H{"prices": out})
}

func (s *Server) getSignals(c *gin.Context) {
	if s.Queries == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "persistence disabled"})
		return
	}

	rows, err := s.Queries.SignalsBySession(c.Request.Context(), s.Engine.Session().ID, limitParam(c, 100))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"signals": rows})
}

func (s *Server) getOrders(c *gin.Context) {
	if s.Queries == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "persistence disabled"})
		return
	}

	rows, err := s.Queries.OrdersBySession(c.Request.Context(), s.Engine.Session().ID, limitParam(c, 100))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": rows})
}

func limitParam(c *gin.Context, def int) int {
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			return n
		}
	}
	return def
}

func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}
