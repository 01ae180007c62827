package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"tcp-echo-serv/internal/connset"
	"tcp-echo-serv/internal/metrics"
	"tcp-echo-serv/internal/shutdown"

	uuid "github.com/satori/go.uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// State is the lifecycle phase of a Server.
type State int32

const (
	Accepting State = iota
	Draining
	Stopped
)

func (s State) String() string {
	switch s {
	case Accepting:
		return "accepting"
	case Draining:
		return "draining"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// Server tcp echo server
type Server struct {
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  trace.Tracer
	conns   *connset.Set
	state   atomic.Int32
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics collector. Default: none.
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithTracer sets the tracer. Default: the global provider's "echo" tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Server) {
		s.tracer = tracer
	}
}

// New creates new Server
func New(cfg Config, opts ...Option) *Server {
	s := &Server{
		cfg:   cfg.withDefaults(),
		conns: connset.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "server")
	if s.tracer == nil {
		s.tracer = otel.Tracer("echo")
	}
	return s
}

// State returns the current lifecycle phase.
func (s *Server) State() State {
	return State(s.state.Load())
}

// Active returns the number of connection handlers still running.
func (s *Server) Active() int {
	return s.conns.Len()
}

// Abort closes every live connection so a stuck drain can finish.
func (s *Server) Abort() {
	s.logger.Warn("aborting active connections", "active", s.conns.Len())
	s.conns.CloseAll()
}

// Serve accepts connections on l until rx reports shutdown, then waits for
// every connection handler to return. l is closed when Serve returns.
func (s *Server) Serve(l net.Listener, rx *shutdown.Receiver) error {
	s.logger.Info("listening", "addr", l.Addr().String())

	// Accept cannot be selected on, so a pending signal closes the listener.
	watch := rx.Resubscribe()
	stop := make(chan struct{})
	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		select {
		case <-watch.Ready():
			_ = l.Close()
		case <-stop:
		}
	}()

	err := s.acceptLoop(l, rx)

	close(stop)
	<-watcherDone
	_ = l.Close()

	s.state.Store(int32(Draining))
	s.drain()
	s.state.Store(int32(Stopped))
	return err
}

func (s *Server) acceptLoop(l net.Listener, rx *shutdown.Receiver) error {
	var backoff time.Duration
	for {
		if s.observeShutdown(rx) {
			return nil
		}

		conn, err := l.Accept()
		if err != nil {
			if s.observeShutdown(rx) {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				s.logger.Error("listener closed without shutdown signal")
				return ErrListenerClosed
			}

			if backoff == 0 {
				backoff = acceptBackoffMin
			} else {
				backoff *= 2
			}
			if backoff > s.cfg.AcceptBackoffMax {
				backoff = s.cfg.AcceptBackoffMax
			}
			s.logger.Error("accept error", "error", err, "retry_in", backoff)
			s.metrics.AcceptError()

			timer := time.NewTimer(backoff)
			select {
			case <-timer.C:
			case <-rx.Ready():
				timer.Stop()
			}
			continue
		}
		backoff = 0
		s.spawn(conn, rx.Resubscribe())
	}
}

func (s *Server) spawn(conn net.Conn, rx *shutdown.Receiver) {
	id := uuid.NewV4()
	peer := conn.RemoteAddr().String()
	s.logger.Info("accepted", "peer", peer, "conn_id", id.String())
	s.metrics.ConnectionOpened()

	s.conns.Go(id, peer, conn, func() error {
		defer s.metrics.ConnectionClosed()
		if err := s.handleConnection(context.Background(), id, conn, rx); err != nil {
			s.logger.Error("connection error",
				"conn_id", id.String(),
				"peer", peer,
				"kind", ErrorKind(err),
				"error", err)
			s.metrics.ConnectionError(ErrorKind(err))
		}
		return nil
	})
}

// observeShutdown consumes a pending signal, if any, and reports whether the
// accept loop must stop.
func (s *Server) observeShutdown(rx *shutdown.Receiver) bool {
	err := rx.TryRecv()
	status := shutdown.Classify(err)
	if !status.Stop() {
		return false
	}
	switch status {
	case shutdown.Observed:
		s.logger.Info("shutdown requested")
	case shutdown.Lagged:
		var lagged *shutdown.LaggedError
		errors.As(err, &lagged)
		s.logger.Warn("shutdown receiver lagged", "skipped", lagged.Skipped)
	case shutdown.Closed:
		s.logger.Info("shutdown channel closed")
	}
	s.metrics.ShutdownSignal(status.String())
	return true
}

func (s *Server) drain() {
	s.logger.Info("waiting for active connections to finish", "active", s.conns.Len())
	start := time.Now()
	for {
		r, ok := s.conns.JoinNext(context.Background())
		if !ok {
			break
		}
		if r.Err != nil {
			s.logger.Error("connection task join error",
				"conn_id", r.ID.String(),
				"peer", r.Peer,
				"error", r.Err)
			s.metrics.JoinError()
		}
	}
	s.metrics.Drained(time.Since(start))
	s.logger.Info("all connection tasks finished")
}
