package lemonkv

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/lemon-mint/lemonkv/types"
)

// Gate admits one Session at a time to an Engine. Openers that find a live
// session block until it closes; each close lets exactly one waiter in.
type Gate struct {
	engine *Engine
	logger *slog.Logger

	// sem holds a token while a session is live.
	sem chan struct{}

	opens   int64
	waiting int64
}

func NewGate(engine *Engine, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		engine: engine,
		logger: logger,
		sem:    make(chan struct{}, 1),
	}
}

// Open blocks until the caller is admitted or ctx is done.
func (g *Gate) Open(ctx context.Context) (*Session, error) {
	select {
	case g.sem <- struct{}{}:
	default:
		atomic.AddInt64(&g.waiting, 1)
		select {
		case g.sem <- struct{}{}:
			atomic.AddInt64(&g.waiting, -1)
		case <-ctx.Done():
			atomic.AddInt64(&g.waiting, -1)
			return nil, ctx.Err()
		}
	}

	return g.admit(), nil
}

// TryOpen admits the caller only if no session is live.
func (g *Gate) TryOpen() (*Session, bool) {
	select {
	case g.sem <- struct{}{}:
	default:
		return nil, false
	}
	return g.admit(), true
}

// admit is called with the token held.
func (g *Gate) admit() *Session {
	opens := atomic.AddInt64(&g.opens, 1)
	s := &Session{
		id:       uuid.Must(uuid.NewV7()).String(),
		gate:     g,
		openedAt: time.Now(),
	}
	g.logger.Info("session opened", "session", s.id, "opens", opens)
	return s
}

// Active reports whether a session currently holds the gate.
func (g *Gate) Active() bool {
	return len(g.sem) == 1
}

// Opens returns the number of sessions admitted so far.
func (g *Gate) Opens() int64 {
	return atomic.LoadInt64(&g.opens)
}

// Waiting returns the number of callers blocked in Open.
func (g *Gate) Waiting() int64 {
	return atomic.LoadInt64(&g.waiting)
}

func (g *Gate) release() {
	select {
	case <-g.sem:
	default:
	}
}

// Session is exclusive access to the gate's engine. Operations and Close may
// be called from any goroutine; they are serialized.
type Session struct {
	id       string
	gate     *Gate
	openedAt time.Time

	mu     sync.Mutex
	closed bool
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) OpenedAt() time.Time {
	return s.openedAt
}

// Close releases the gate. It waits only for an in-flight operation of this
// session, never for other callers, and is safe to call twice.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.gate.release()
	s.gate.logger.Info("session closed", "session", s.id, "held", time.Since(s.openedAt))
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// do runs fn under the session lock, so Close cannot release the gate while
// an operation is in flight.
func (s *Session) do(fn func(e *Engine) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return fn(s.gate.engine)
}

// Lookup returns the entry stored under key, or ErrNotFound.
func (s *Session) Lookup(key int32) (types.Entry, error) {
	ent := types.NotFound()
	err := s.do(func(e *Engine) error {
		got, ok := e.Lookup(key)
		if !ok {
			return ErrNotFound
		}
		ent = got
		return nil
	})
	return ent, err
}

// Write upserts key, or deletes it when data is 0.
func (s *Session) Write(key, data int32) error {
	return s.do(func(e *Engine) error {
		return e.Write(key, data)
	})
}

// Dump drains bucket n. See Engine.Dump.
func (s *Session) Dump(n int32) (types.DumpRecord, int, error) {
	rec := types.NewDumpRecord(n)
	filled := 0
	err := s.do(func(e *Engine) error {
		var err error
		rec, filled, err = e.Dump(n)
		return err
	})
	return rec, filled, err
}
