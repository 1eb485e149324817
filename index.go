package lemonkv

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/gopkg/util/gopool"
)

// Server hosts one Engine behind a Gate and serves sessions over TCP, one
// connection per caller.
type Server struct {
	Ln net.Listener

	Engine *Engine
	Gate   *Gate

	ConnTimeout time.Duration

	statsInterval time.Duration

	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup

	ops int64

	clients int64

	rpsCounter int64

	rps float64

	rpsStopChan chan struct{}

	closed int32
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the server logger. The engine and gate inherit it.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEngine serves an existing engine instead of creating one.
func WithEngine(e *Engine) ServerOption {
	return func(s *Server) {
		s.Engine = e
	}
}

func NewServer(cfg Config, opts ...ServerOption) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		ConnTimeout:   time.Duration(cfg.ConnTimeout),
		statsInterval: time.Duration(cfg.StatsInterval),
		logger:        slog.New(slog.NewTextHandler(os.Stderr, nil)),
		ctx:           ctx,
		cancel:        cancel,
		conns:         make(map[net.Conn]struct{}),
		rpsStopChan:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Engine == nil {
		s.Engine = NewEngine(
			WithCapacity(cfg.MaxEntries),
			WithEngineLogger(s.logger.With("component", "engine")),
		)
	}
	s.Gate = NewGate(s.Engine, s.logger.With("component", "gate"))
	return s
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.Ln = ln
	s.mu.Unlock()
	return s.Serve()
}

// Serve accepts connections on s.Ln until Close is called, then returns
// ErrServerClosed. A server closed before Serve starts closes s.Ln and
// returns at once.
func (s *Server) Serve() error {
	s.mu.Lock()
	ln := s.Ln
	closed := atomic.LoadInt32(&s.closed) == 1
	s.mu.Unlock()
	if closed {
		ln.Close()
		return ErrServerClosed
	}

	s.logger.Info("serving", "addr", ln.Addr().String())
	if s.statsInterval > 0 {
		go s.rpsc()
	}

	for {
		conn, err := ln.Accept()
		if err != nil {
			if atomic.LoadInt32(&s.closed) == 1 {
				return ErrServerClosed
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return err
		}
		if !s.track(conn) {
			conn.Close()
			return ErrServerClosed
		}
		atomic.AddInt64(&s.clients, 1)
		gopool.Go(func() {
			defer s.untrack(conn)
			s.handleConn(conn)
		})
	}
}

func (s *Server) track(c net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if atomic.LoadInt32(&s.closed) == 1 {
		return false
	}
	s.conns[c] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(c net.Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	atomic.AddInt64(&s.clients, -1)
	s.wg.Done()
}

// Close stops accepting, wakes blocked openers with StatusUnavailable,
// drops every connection and frees the table.
func (s *Server) Close() error {
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return nil
	}
	s.cancel()

	var err error
	s.mu.Lock()
	if s.Ln != nil {
		err = s.Ln.Close()
	}
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()

	close(s.rpsStopChan)

	freed := s.Engine.Teardown()
	s.logger.Info("server closed", "freed", freed, "opens", s.Gate.Opens())
	return err
}

// Ops returns the number of table operations served.
func (s *Server) Ops() int64 {
	return atomic.LoadInt64(&s.ops)
}

// Clients returns the number of connected callers.
func (s *Server) Clients() int64 {
	return atomic.LoadInt64(&s.clients)
}

func (s *Server) countOp() {
	atomic.AddInt64(&s.ops, 1)
	atomic.AddInt64(&s.rpsCounter, 1)
}

func (s *Server) rpsc() {
	ticker := time.NewTicker(s.statsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.rps = float64(atomic.SwapInt64(&s.rpsCounter, 0)) / s.statsInterval.Seconds()
			s.logger.Info("stats",
				"rps", s.rps,
				"ops", atomic.LoadInt64(&s.ops),
				"opens", s.Gate.Opens(),
				"waiting", s.Gate.Waiting(),
				"clients", atomic.LoadInt64(&s.clients),
			)
		case <-s.rpsStopChan:
			return
		}
	}
}
