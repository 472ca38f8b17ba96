// Package registry tracks which live connections belong to which session
// and fans messages out to them.
package registry

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/antoniostano/ironhand/internal/observability"
	"github.com/antoniostano/ironhand/internal/protocol"
)

var ErrClosed = errors.New("registry closed")

// Conn is a live transport handle. Send must not block on a slow peer.
type Conn interface {
	Send(msg any) error
	Open() bool
	Close() error
}

// Registry maps session ids to their connections. A connection belongs to at
// most one session at a time. The zero value is not usable; use New.
type Registry struct {
	mu       sync.Mutex
	sessions map[string][]Conn
	owner    map[Conn]string
	closed   bool

	logger  *zap.Logger
	metrics *observability.Metrics
}

func New(logger *zap.Logger, metrics *observability.Metrics) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		sessions: make(map[string][]Conn),
		owner:    make(map[Conn]string),
		logger:   logger,
		metrics:  metrics,
	}
}

// Register binds conn to sessionID, moving it out of any session it was
// previously bound to.
func (r *Registry) Register(sessionID string, conn Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}

	if prev, ok := r.owner[conn]; ok {
		if prev == sessionID {
			return nil
		}
		r.removeLocked(prev, conn)
	} else if r.metrics != nil {
		r.metrics.ActiveConnections.Inc()
	}
	r.sessions[sessionID] = append(r.sessions[sessionID], conn)
	r.owner[conn] = sessionID
	return nil
}

// Unregister drops conn from whatever session holds it. Unknown connections
// are ignored.
func (r *Registry) Unregister(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sessionID, ok := r.owner[conn]
	if !ok {
		return
	}
	r.removeLocked(sessionID, conn)
	delete(r.owner, conn)
	if r.metrics != nil {
		r.metrics.ActiveConnections.Dec()
	}
}

func (r *Registry) removeLocked(sessionID string, conn Conn) {
	conns := r.sessions[sessionID]
	for i, c := range conns {
		if c == conn {
			conns = append(conns[:i:i], conns[i+1:]...)
			break
		}
	}
	if len(conns) == 0 {
		delete(r.sessions, sessionID)
		return
	}
	r.sessions[sessionID] = conns
}

// SessionOf reports the session conn is registered to.
func (r *Registry) SessionOf(conn Conn) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.owner[conn]
	return id, ok
}

// Count returns the number of connections registered to sessionID.
func (r *Registry) Count(sessionID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions[sessionID])
}

// Broadcast sends msg to every open connection of sessionID in registration
// order. Sends happen outside the lock on a snapshot of the set; closed
// connections are skipped and send failures are logged, not returned.
func (r *Registry) Broadcast(sessionID string, msg any) {
	r.mu.Lock()
	conns := append([]Conn(nil), r.sessions[sessionID]...)
	r.mu.Unlock()
	if len(conns) == 0 {
		return
	}

	msgType := string(protocol.TypeOf(msg))
	for _, c := range conns {
		if !c.Open() {
			r.metrics.ObserveOutboundMessage(msgType, "skipped")
			continue
		}
		if err := c.Send(msg); err != nil {
			r.metrics.ObserveOutboundMessage(msgType, "error")
			r.logger.Warn("broadcast send failed",
				zap.String("session_id", sessionID),
				zap.String("type", msgType),
				zap.Error(err),
			)
			continue
		}
		r.metrics.ObserveOutboundMessage(msgType, "delivered")
	}
}

// Close closes every registered connection and rejects further
// registrations.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	conns := make([]Conn, 0, len(r.owner))
	for c := range r.owner {
		conns = append(conns, c)
	}
	r.sessions = make(map[string][]Conn)
	r.owner = make(map[Conn]string)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.ActiveConnections.Sub(float64(len(conns)))
	}
	for _, c := range conns {
		_ = c.Close()
	}
}
