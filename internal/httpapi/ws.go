package httpapi

import (
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/antoniostano/ironhand/internal/observability"
	"github.com/antoniostano/ironhand/internal/protocol"
)

const (
	RegisteredMessage     = "WebSocket connection established and registered."
	NotRegisteredMessage  = "Invalid message or not registered."
	InvalidFormatMessage  = "Invalid message format."
	UnavailableMessage    = "The server is shutting down. Please reconnect shortly."
	outboundQueueCapacity = 256
)

var (
	errConnClosed   = errors.New("connection closed")
	errSlowConsumer = errors.New("outbound queue full")
)

// wsConn adapts a websocket to registry.Conn. All writes go through one
// writer goroutine; Send only enqueues.
type wsConn struct {
	conn         *websocket.Conn
	outbound     chan any
	done         chan struct{}
	writerDone   chan struct{}
	closed       atomic.Bool
	closeOnce    sync.Once
	writeTimeout time.Duration
	pingInterval time.Duration
	metrics      *observability.Metrics
}

func newWSConn(conn *websocket.Conn, writeTimeout, idleTimeout time.Duration, metrics *observability.Metrics) *wsConn {
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	if idleTimeout <= 0 {
		idleTimeout = 120 * time.Second
	}
	c := &wsConn{
		conn:         conn,
		outbound:     make(chan any, outboundQueueCapacity),
		done:         make(chan struct{}),
		writerDone:   make(chan struct{}),
		writeTimeout: writeTimeout,
		pingInterval: idleTimeout / 2,
		metrics:      metrics,
	}
	go c.writeLoop()
	return c
}

// Send queues msg without waiting. A peer whose queue is full has fallen
// too far behind and is disconnected; it can replay the log after
// reconnecting.
func (c *wsConn) Send(msg any) error {
	if c.closed.Load() {
		return errConnClosed
	}
	select {
	case c.outbound <- msg:
		return nil
	case <-c.done:
		return errConnClosed
	default:
		_ = c.Close()
		return errSlowConsumer
	}
}

func (c *wsConn) Open() bool {
	return !c.closed.Load()
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

func (c *wsConn) writeLoop() {
	defer close(c.writerDone)
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout)); err != nil {
				_ = c.Close()
				return
			}
		case msg := <-c.outbound:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteJSON(msg); err != nil {
				_ = c.Close()
				return
			}
			c.metrics.ObserveWSMessage("outbound", string(protocol.TypeOf(msg)))
		}
	}
}

func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	if s.orchestrator == nil || s.registry == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "session channel not configured")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	wc := newWSConn(conn, s.cfg.WSWriteTimeout, s.cfg.WSIdleTimeout, s.metrics)
	s.metrics.SessionEvent("ws_connected")

	defer func() {
		s.registry.Unregister(wc)
		_ = wc.Close()
		<-wc.writerDone
		s.metrics.SessionEvent("ws_disconnected")
	}()

	idle := s.cfg.WSIdleTimeout
	if idle <= 0 {
		idle = 120 * time.Second
	}
	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(idle))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(idle))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(idle))
		if msgType != websocket.TextMessage {
			continue
		}
		s.handleFrame(wc, data)
	}
}

func (s *Server) handleFrame(wc *wsConn, data []byte) {
	parsed, err := protocol.ParseClientMessage(data)
	if err != nil {
		content := NotRegisteredMessage
		if !errors.Is(err, protocol.ErrUnsupportedType) && !errors.Is(err, protocol.ErrInvalidMessage) {
			content = InvalidFormatMessage
		}
		s.metrics.ObserveWSMessage("inbound", "invalid")
		_ = wc.Send(protocol.NewError(content))
		return
	}
	s.metrics.ObserveWSMessage("inbound", string(protocol.TypeOf(parsed)))

	if reg, ok := parsed.(protocol.Register); ok {
		if err := s.registry.Register(reg.GameID, wc); err != nil {
			_ = wc.Send(protocol.NewError(UnavailableMessage))
			return
		}
		s.logger.Debug("connection registered",
			zap.String("session_id", reg.GameID),
			zap.Int("connections", s.registry.Count(reg.GameID)),
		)
		_ = wc.Send(protocol.NewSystem(RegisteredMessage))
		return
	}

	sessionID, ok := s.registry.SessionOf(wc)
	if !ok {
		_ = wc.Send(protocol.NewError(NotRegisteredMessage))
		return
	}
	if err := s.orchestrator.Submit(sessionID, parsed); err != nil {
		s.logger.Warn("submit failed", zap.String("session_id", sessionID), zap.Error(err))
		_ = wc.Send(protocol.NewError(UnavailableMessage))
	}
}
