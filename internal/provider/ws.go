package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WSConfig configures WebSocket wake source behavior.
type WSConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// WSWakeSource subscribes to logs mentioning the tracked mint and emits a
// poke whenever activity is seen. Pokes carry no data; they only tell the
// delta sync loop to run earlier than its next tick. Missed pokes are
// harmless because the periodic tick always catches up.
type WSWakeSource struct {
	endpoint string
	mint     string
	config   WSConfig
	log      *logrus.Logger

	pokes chan struct{}
	done  chan struct{}

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64
	wg        sync.WaitGroup
}

// NewWSWakeSource creates a wake source for one mint. Call Run to start it.
func NewWSWakeSource(endpoint, mint string, config *WSConfig, log *logrus.Logger) *WSWakeSource {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	if log == nil {
		log = logrus.New()
	}
	return &WSWakeSource{
		endpoint: endpoint,
		mint:     mint,
		config:   cfg,
		log:      log,
		pokes:    make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Pokes returns the wake-up channel.
func (s *WSWakeSource) Pokes() <-chan struct{} {
	return s.pokes
}

// Run connects, subscribes, and keeps reading until ctx is cancelled or
// Close is called. Reconnects with exponential backoff on any failure.
func (s *WSWakeSource) Run(ctx context.Context) {
	delay := s.config.ReconnectDelay

	for {
		if s.closed.Load() || ctx.Err() != nil {
			return
		}

		err := s.connectAndRead(ctx)
		if s.closed.Load() || ctx.Err() != nil {
			return
		}
		if err != nil {
			s.log.WithError(err).WithField("endpoint", s.endpoint).Warn("websocket wake source disconnected")
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		case <-s.done:
			return
		}

		delay *= 2
		if delay > s.config.MaxReconnectDelay {
			delay = s.config.MaxReconnectDelay
		}
	}
}

// Close stops the wake source. Safe to call more than once.
func (s *WSWakeSource) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(s.done)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	return nil
}

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// connectAndRead performs one connection lifetime: dial, subscribe, read
// until failure. The backoff delay resets only after a successful
// subscription.
func (s *WSWakeSource) connectAndRead(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()

	defer func() {
		s.connMu.Lock()
		if s.conn == conn {
			s.conn = nil
		}
		s.connMu.Unlock()
		conn.Close()
	}()

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      s.requestID.Add(1),
		Method:  "logsSubscribe",
		Params: []interface{}{
			map[string]interface{}{"mentions": []string{s.mint}},
			map[string]string{"commitment": "confirmed"},
		},
	}

	conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}

	s.log.WithField("mint", s.mint).Debug("websocket wake source subscribed")

	// Ping loop for this connection
	pingDone := make(chan struct{})
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.config.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-pingDone:
				return
			case <-s.done:
				return
			}
		}
	}()
	defer close(pingDone)

	for {
		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read message: %w", err)
		}

		var frame struct {
			Method string          `json:"method"`
			ID     *uint64         `json:"id"`
			Result json.RawMessage `json:"result"`
		}
		if err := json.Unmarshal(message, &frame); err != nil {
			continue
		}

		// Subscription confirmations and unknown frames are not pokes
		if frame.Method != "logsNotification" {
			continue
		}

		select {
		case s.pokes <- struct{}{}:
		default:
			// A poke is already pending; coalesce
		}
	}
}
