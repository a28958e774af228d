package monitor

import (
	"context"
	"fmt"
	"log"
	"time"

	"execution-core/internal/events"
)

// AlertSink is the pluggable alert delivery interface.
type AlertSink interface {
	Send(message string) error
}

// LogSink writes alerts to the process log.
type LogSink struct{}

func (LogSink) Send(message string) error {
	log.Printf("🚨 ALERT: %s", message)
	return nil
}

// Monitor watches the event stream and forwards risk alerts to the sink.
type Monitor struct {
	Bus  *events.Bus
	Sink AlertSink
}

func (m *Monitor) Start(ctx context.Context) {
	if m.Bus == nil || m.Sink == nil {
		log.Println("monitor not fully configured; skipping")
		return
	}

	stream, unsub := m.Bus.Subscribe(events.EventRiskLimitExceeded, 50)
	go func() {
		defer unsub()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-stream:
				if !ok {
					return
				}
				if err := m.Sink.Send(formatAlert(msg)); err != nil {
					log.Printf("⚠️ alert delivery failed: %v", err)
				}
			}
		}
	}()
}

func formatAlert(msg any) string {
	return "[" + time.Now().Format(time.RFC3339) + "] " + toString(msg)
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return "risk limit exceeded"
	}
}
