// Package game turns inbound player messages into ordered session log
// entries and broadcasts each entry as soon as it is stored.
//
// Every session id gets at most one worker goroutine, fed by a FIFO queue.
// Messages for one session are therefore processed strictly one at a time
// in submission order, while different sessions proceed in parallel. A
// worker exits once its queue is empty and is restarted by the next Submit.
package game

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/antoniostano/ironhand/internal/character"
	"github.com/antoniostano/ironhand/internal/dice"
	"github.com/antoniostano/ironhand/internal/observability"
	"github.com/antoniostano/ironhand/internal/protocol"
	"github.com/antoniostano/ironhand/internal/rules"
	"github.com/antoniostano/ironhand/internal/session"
)

const (
	ServerErrorMessage     = "An error occurred on the server."
	SessionNotFoundMessage = "Game session not found."

	defaultMessageTimeout = 3 * time.Minute
	defaultStoreTimeout   = 10 * time.Second
)

var (
	ErrClosed             = errors.New("orchestrator closed")
	ErrUnsupportedMessage = errors.New("unsupported message")
)

// Narrator produces text for a prompt. It must not fail; degraded output is
// its own concern.
type Narrator interface {
	Generate(ctx context.Context, prompt string) string
}

// Broadcaster delivers a message to every connection of a session.
type Broadcaster interface {
	Broadcast(sessionID string, msg any)
}

// Roller is the slice of the dice engine the orchestrator uses.
type Roller interface {
	Roll(notation string) (dice.Result, error)
	RollPercentile() int
}

type Dependencies struct {
	Sessions    session.Store
	Characters  character.Store
	Narrator    Narrator
	Broadcaster Broadcaster
	Roller      Roller
	Logger      *zap.Logger
	Metrics     *observability.Metrics
	// MessageTimeout bounds the generator work for one message.
	MessageTimeout time.Duration
	// StoreTimeout bounds each log append. Appends are detached from the
	// message deadline so narration that arrives late is still recorded.
	StoreTimeout time.Duration
}

type Orchestrator struct {
	sessions    session.Store
	characters  character.Store
	narrator    Narrator
	broadcaster Broadcaster
	roller      Roller
	resolver    *rules.Resolver
	logger      *zap.Logger
	metrics     *observability.Metrics
	timeout     time.Duration
	storeTTL    time.Duration

	mu      sync.Mutex
	workers map[string]*worker
	closed  bool
	wg      sync.WaitGroup
}

type worker struct {
	queue []any
}

func New(deps Dependencies) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := deps.MessageTimeout
	if timeout <= 0 {
		timeout = defaultMessageTimeout
	}
	storeTTL := deps.StoreTimeout
	if storeTTL <= 0 {
		storeTTL = defaultStoreTimeout
	}
	return &Orchestrator{
		sessions:    deps.Sessions,
		characters:  deps.Characters,
		narrator:    deps.Narrator,
		broadcaster: deps.Broadcaster,
		roller:      deps.Roller,
		resolver:    rules.NewResolver(deps.Roller),
		logger:      logger,
		metrics:     deps.Metrics,
		timeout:     timeout,
		storeTTL:    storeTTL,
		workers:     make(map[string]*worker),
	}
}

// Submit enqueues msg for sessionID and returns without waiting for it to be
// processed.
func (o *Orchestrator) Submit(sessionID string, msg any) error {
	switch msg.(type) {
	case protocol.Action, protocol.ManualRoll:
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedMessage, msg)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}
	w, ok := o.workers[sessionID]
	if !ok {
		w = &worker{}
		o.workers[sessionID] = w
		o.wg.Add(1)
		if o.metrics != nil {
			o.metrics.ActiveSessionWorkers.Inc()
		}
		go o.run(sessionID, w)
	}
	w.queue = append(w.queue, msg)
	return nil
}

func (o *Orchestrator) run(sessionID string, w *worker) {
	defer o.wg.Done()
	for {
		o.mu.Lock()
		if len(w.queue) == 0 {
			delete(o.workers, sessionID)
			o.mu.Unlock()
			if o.metrics != nil {
				o.metrics.ActiveSessionWorkers.Dec()
			}
			return
		}
		msg := w.queue[0]
		w.queue[0] = nil
		w.queue = w.queue[1:]
		o.mu.Unlock()

		// Client disconnects never cancel in-flight work, so each message
		// gets a fresh context bounded only by the processing timeout.
		ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
		o.Handle(ctx, sessionID, msg)
		cancel()
	}
}

// Close stops accepting messages and waits for queued ones to finish or for
// ctx to end.
func (o *Orchestrator) Close(ctx context.Context) error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handle processes one message synchronously. Any error or panic is turned
// into a notice on the session rather than returned.
func (o *Orchestrator) Handle(ctx context.Context, sessionID string, msg any) {
	start := time.Now()
	label := string(protocol.TypeOf(msg))
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("panic while handling session message",
				zap.String("session_id", sessionID),
				zap.String("type", label),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			o.reportFailure(ctx, sessionID, fmt.Errorf("panic: %v", r))
		}
		o.metrics.ObserveOrchestration(label, time.Since(start))
	}()

	var err error
	switch m := msg.(type) {
	case protocol.Action:
		err = o.handleAction(ctx, sessionID, m.Payload.Action)
	case protocol.ManualRoll:
		err = o.handleManualRoll(ctx, sessionID, m.Payload.Command)
	default:
		err = fmt.Errorf("%w: %T", ErrUnsupportedMessage, msg)
	}
	if err == nil {
		return
	}

	if errors.Is(err, session.ErrNotFound) {
		o.logger.Warn("message for unknown session", zap.String("session_id", sessionID), zap.String("type", label))
		o.metrics.SessionEvent("session_not_found")
		o.broadcaster.Broadcast(sessionID, protocol.NewError(SessionNotFoundMessage))
		return
	}
	o.logger.Error("failed to handle session message",
		zap.String("session_id", sessionID),
		zap.String("type", label),
		zap.Error(err),
	)
	o.reportFailure(ctx, sessionID, err)
}

// reportFailure appends the generic server error notice. When even that
// cannot be stored, the notice is broadcast marked transient.
func (o *Orchestrator) reportFailure(ctx context.Context, sessionID string, cause error) {
	o.metrics.SessionEvent("orchestration_failed")
	_, err := o.appendEntry(ctx, sessionID, session.KindSystem, ServerErrorMessage)
	if err == nil {
		return
	}
	o.logger.Warn("could not persist failure notice",
		zap.String("session_id", sessionID),
		zap.NamedError("cause", cause),
		zap.Error(err),
	)
	notice := session.NewEntry(session.KindSystem, ServerErrorMessage)
	notice.Transient = true
	o.broadcaster.Broadcast(sessionID, protocol.NewLog(notice))
}

// appendEntry stores an entry and broadcasts it. Nothing is broadcast when
// the store rejects the append.
func (o *Orchestrator) appendEntry(ctx context.Context, sessionID string, kind session.EntryKind, content string) (session.LogEntry, error) {
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.storeTTL)
	defer cancel()
	entry, err := o.sessions.AppendEntry(storeCtx, sessionID, session.NewEntry(kind, content))
	if err != nil {
		if o.metrics != nil {
			o.metrics.LogAppends.WithLabelValues(string(kind), "error").Inc()
		}
		return session.LogEntry{}, fmt.Errorf("append %s entry: %w", kind, err)
	}
	if o.metrics != nil {
		o.metrics.LogAppends.WithLabelValues(string(kind), "ok").Inc()
	}
	o.broadcaster.Broadcast(sessionID, protocol.NewLog(entry))
	return entry, nil
}

func (o *Orchestrator) loadSheet(ctx context.Context, characterID string) (character.Sheet, error) {
	sheet, err := o.characters.FindByID(ctx, characterID)
	if err != nil {
		return character.Sheet{}, fmt.Errorf("load character %s: %w", characterID, err)
	}
	return sheet, nil
}

func (o *Orchestrator) countCheck(source string, c rules.Check) {
	if o.metrics == nil {
		return
	}
	outcome := "failure"
	if c.Success {
		outcome = "success"
	}
	o.metrics.ChecksResolved.WithLabelValues(source, outcome).Inc()
}
