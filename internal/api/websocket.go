package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"execution-core/internal/events"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamable topics; anything else on ?topic= is refused before upgrade.
var wsTopics = map[string]events.Event{
	"price_tick":          events.EventPriceTick,
	"signal_generated":    events.EventSignalGenerated,
	"order_placed":        events.EventOrderPlaced,
	"order_filled":        events.EventOrderFilled,
	"order_rejected":      events.EventOrderRejected,
	"position_exiting":    events.EventPositionExiting,
	"position_closed":     events.EventPositionClosed,
	"risk_limit_exceeded": events.EventRiskLimitExceeded,
}

func (s *Server) websocket(c *gin.Context) {
	topic := c.DefaultQuery("topic", "price_tick")
	event, ok := wsTopics[topic]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown topic " + topic})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}
	defer conn.Close()

	stream, unsub := s.Engine.Bus().Subscribe(event, 100)
	defer unsub()

	for msg := range stream {
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("ws write error: %v", err)
			return
		}
	}
}
