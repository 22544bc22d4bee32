// Package websocket is a reconnecting client for the devnet ledger event
// stream.
package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// StreamEvent is one ledger event as received from the stream.
type StreamEvent struct {
	Name string          `json:"event"`
	Seq  uint64          `json:"seq"`
	Data json.RawMessage `json:"data"`

	// Skipped is the number of events the server filtered out of this
	// stream since the previous frame.
	Skipped uint64 `json:"skipped,omitempty"`
}

// Manager manages a single event stream connection.
type Manager struct {
	url             string
	conn            *websocket.Conn
	logger          *zap.Logger
	reconnectMgr    *ReconnectManager
	config          Config
	events          chan *StreamEvent
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	mu              sync.RWMutex
	connected       atomic.Bool
	lastSeq         atomic.Uint64
	lastPongTime    atomic.Int64
	connectionStart atomic.Int64
}

// Config holds event stream client configuration.
type Config struct {
	URL string

	// EventNames filters the stream server-side. Empty means all events.
	EventNames []string

	DialTimeout           time.Duration
	PongTimeout           time.Duration
	PingInterval          time.Duration
	ReconnectInitialDelay time.Duration
	ReconnectMaxDelay     time.Duration
	ReconnectBackoffMult  float64
	MessageBufferSize     int
	Logger                *zap.Logger
}

// New creates a new event stream manager.
func New(cfg Config) (*Manager, error) {
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	streamURL, err := buildURL(cfg.URL, cfg.EventNames)
	if err != nil {
		return nil, err
	}

	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = 15 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 10 * time.Second
	}
	if cfg.ReconnectInitialDelay <= 0 {
		cfg.ReconnectInitialDelay = time.Second
	}
	if cfg.ReconnectMaxDelay <= 0 {
		cfg.ReconnectMaxDelay = 30 * time.Second
	}
	if cfg.ReconnectBackoffMult < 1 {
		cfg.ReconnectBackoffMult = 2
	}
	if cfg.MessageBufferSize <= 0 {
		cfg.MessageBufferSize = 256
	}

	ctx, cancel := context.WithCancel(context.Background())

	reconnectCfg := ReconnectConfig{
		InitialDelay:      cfg.ReconnectInitialDelay,
		MaxDelay:          cfg.ReconnectMaxDelay,
		BackoffMultiplier: cfg.ReconnectBackoffMult,
		JitterPercent:     0.2,
	}

	return &Manager{
		url:          streamURL,
		logger:       cfg.Logger,
		reconnectMgr: NewReconnectManager(reconnectCfg, cfg.Logger),
		config:       cfg,
		events:       make(chan *StreamEvent, cfg.MessageBufferSize),
		ctx:          ctx,
		cancel:       cancel,
	}, nil
}

func buildURL(raw string, eventNames []string) (string, error) {
	if raw == "" {
		return "", errors.New("stream URL cannot be empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse stream URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported stream URL scheme %q", u.Scheme)
	}

	if len(eventNames) > 0 {
		q := u.Query()
		q.Set("events", strings.Join(eventNames, ","))
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}

// Start connects and starts the read, ping and reconnect loops.
func (m *Manager) Start() error {
	m.logger.Info("event-stream-starting", zap.String("url", m.url))

	err := m.connect(m.ctx)
	if err != nil {
		return fmt.Errorf("initial connection: %w", err)
	}

	m.wg.Add(3)
	go m.readLoop()
	go m.pingLoop()
	go m.reconnectLoop()

	return nil
}

// connect establishes a WebSocket connection.
func (m *Manager) connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: m.config.DialTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, m.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	conn.SetPongHandler(func(string) error {
		m.lastPongTime.Store(time.Now().Unix())
		return conn.SetReadDeadline(time.Now().Add(m.config.PongTimeout + m.config.PingInterval))
	})

	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()

	now := time.Now()
	m.connected.Store(true)
	m.lastPongTime.Store(now.Unix())
	m.connectionStart.Store(now.Unix())
	ActiveConnections.Set(1)

	m.logger.Info("event-stream-connected", zap.String("url", m.url))

	return nil
}

// readLoop reads events until the connection fails.
func (m *Manager) readLoop() {
	defer m.wg.Done()

	m.mu.RLock()
	conn := m.conn
	m.mu.RUnlock()

	if conn == nil {
		return
	}

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if m.ctx.Err() == nil {
				m.logger.Warn("read-error", zap.Error(err))
			}

			startTime := m.connectionStart.Load()
			if startTime > 0 {
				ConnectionDuration.Observe(time.Since(time.Unix(startTime, 0)).Seconds())
			}

			m.connected.Store(false)
			ActiveConnections.Set(0)
			return
		}

		var ev StreamEvent
		err = json.Unmarshal(message, &ev)
		if err != nil || ev.Name == "" {
			m.logger.Debug("event-stream-unparseable-message",
				zap.Int("bytes", len(message)))
			continue
		}

		prev := m.lastSeq.Swap(ev.Seq)
		expected := prev + 1 + ev.Skipped
		if prev != 0 && ev.Seq > expected {
			MissedEventsTotal.Add(float64(ev.Seq - expected))
			m.logger.Warn("event-stream-gap",
				zap.Uint64("last-seq", prev),
				zap.Uint64("skipped", ev.Skipped),
				zap.Uint64("seq", ev.Seq))
		}

		MessagesReceivedTotal.WithLabelValues(ev.Name).Inc()

		select {
		case m.events <- &ev:
		case <-m.ctx.Done():
			return
		default:
			m.logger.Warn("message-channel-full", zap.String("event", ev.Name))
			MessagesDroppedTotal.WithLabelValues("channel_full").Inc()
		}
	}
}

// pingLoop sends periodic PING messages.
func (m *Manager) pingLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			if !m.connected.Load() {
				continue
			}

			m.mu.RLock()
			conn := m.conn
			m.mu.RUnlock()

			if conn == nil {
				continue
			}

			err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(time.Second))
			if err != nil {
				m.logger.Warn("ping-error", zap.Error(err))
			}
		}
	}
}

// reconnectLoop reconnects when the connection drops and restarts the read loop.
func (m *Manager) reconnectLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		if m.connected.Load() {
			select {
			case <-m.ctx.Done():
				return
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}

		m.logger.Warn("connection-lost-initiating-reconnect")

		err := m.reconnectMgr.Reconnect(m.ctx, m.connect)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			m.logger.Error("reconnection-failed", zap.Error(err))
			continue
		}

		m.wg.Add(1)
		go m.readLoop()
	}
}

// Events returns the channel of received events. It is closed by Close.
func (m *Manager) Events() <-chan *StreamEvent {
	return m.events
}

// Connected reports whether the stream is currently connected.
func (m *Manager) Connected() bool {
	return m.connected.Load()
}

// LastSeq returns the sequence number of the last received event.
func (m *Manager) LastSeq() uint64 {
	return m.lastSeq.Load()
}

// Close gracefully closes the event stream.
func (m *Manager) Close() error {
	m.logger.Info("closing-event-stream")

	m.cancel()

	m.mu.RLock()
	if m.conn != nil {
		_ = m.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		m.conn.Close()
	}
	m.mu.RUnlock()

	m.wg.Wait()

	close(m.events)

	ActiveConnections.Set(0)

	m.logger.Info("event-stream-closed")

	return nil
}
