package httpserver

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/hyblock/hyblock-contracts/pkg/types"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// EventSource publishes ledger events to subscribers.
type EventSource interface {
	Subscribe() (<-chan types.Event, func())
}

// StreamFrame is one event as written to a stream. Skipped counts the events
// this stream filtered out since the previous frame, so a client can tell
// filtered events from lost ones: Seq == previous Seq + 1 + Skipped.
type StreamFrame struct {
	types.Event
	Skipped uint64 `json:"skipped,omitempty"`
}

// EventStreamHandler streams ledger events to WebSocket clients. The optional
// "events" query parameter is a comma separated list of event names to keep.
type EventStreamHandler struct {
	source   EventSource
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewEventStreamHandler creates an event stream handler.
func NewEventStreamHandler(source EventSource, logger *zap.Logger) *EventStreamHandler {
	return &EventStreamHandler{
		source: source,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP upgrades the connection and forwards events until either side closes.
func (h *EventStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	filter := parseEventFilter(r.URL.Query().Get("events"))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("event-stream-upgrade-failed", zap.Error(err))
		return
	}

	events, cancel := h.source.Subscribe()
	defer cancel()

	h.track(conn)
	defer h.untrack(conn)

	StreamClients.Inc()
	defer StreamClients.Dec()

	h.logger.Info("event-stream-client-connected",
		zap.String("remote", r.RemoteAddr),
		zap.Int("filters", len(filter)))

	done := make(chan struct{})
	go h.readPump(conn, done)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	var skipped uint64

	for {
		select {
		case <-done:
			h.logger.Info("event-stream-client-disconnected", zap.String("remote", r.RemoteAddr))
			return

		case ev, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "ledger closed"),
					time.Now().Add(writeWait))
				conn.Close()
				return
			}

			if len(filter) > 0 {
				if _, keep := filter[ev.Name]; !keep {
					skipped++
					continue
				}
			}

			payload, err := json.Marshal(StreamFrame{Event: ev, Skipped: skipped})
			if err != nil {
				h.logger.Error("event-encode-failed", zap.String("event", ev.Name), zap.Error(err))
				continue
			}

			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			err = conn.WriteMessage(websocket.TextMessage, payload)
			if err != nil {
				h.logger.Warn("event-stream-write-failed", zap.Error(err))
				conn.Close()
				return
			}
			skipped = 0
			StreamEventsSentTotal.WithLabelValues(ev.Name).Inc()

		case <-ticker.C:
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			if err != nil {
				conn.Close()
				return
			}
		}
	}
}

// readPump discards client frames and handles pongs. It closes done when the
// connection fails.
func (h *EventStreamHandler) readPump(conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			return
		}
	}
}

// CloseAll closes every open stream.
func (h *EventStreamHandler) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		conn.Close()
	}
}

func (h *EventStreamHandler) track(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
}

func (h *EventStreamHandler) untrack(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
}

func parseEventFilter(raw string) map[string]struct{} {
	if raw == "" {
		return nil
	}

	filter := make(map[string]struct{})
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			filter[name] = struct{}{}
		}
	}
	return filter
}
