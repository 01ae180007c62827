package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"tcp-echo-serv/internal/admin"
	"tcp-echo-serv/internal/metrics"
	"tcp-echo-serv/internal/server"
	"tcp-echo-serv/internal/shutdown"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// app wires the listener, the server and the shutdown broadcaster.
type app struct {
	opts     *options
	logger   *slog.Logger
	registry *prometheus.Registry
	srv      *server.Server
	bc       *shutdown.Broadcaster
	listener net.Listener
	tp       *sdktrace.TracerProvider
}

// result is the outcome of the server goroutine.
type result struct {
	err      error
	panicked any
}

func newLogger(level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	hopts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(os.Stderr, hopts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, hopts)), nil
	}
	return nil, fmt.Errorf("invalid log format %q", format)
}

func newApp(ctx context.Context, opts *options) (*app, error) {
	logger, err := newLogger(opts.logLevel, opts.logFormat)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	cfg := server.Config{
		Address:      opts.addr,
		WriteTimeout: opts.writeTimeout,
		BufferSize:   opts.bufferSize,
		ReuseAddr:    true,
	}
	l, err := server.Listen(ctx, cfg)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srvOpts := []server.Option{
		server.WithLogger(logger),
		server.WithMetrics(metrics.New(metrics.WithRegistry(reg))),
	}
	var tp *sdktrace.TracerProvider
	if opts.traceStdout {
		out := opts.traceOut
		if out == nil {
			out = os.Stdout
		}
		if tp, err = newTracerProvider(out); err != nil {
			_ = l.Close()
			return nil, err
		}
		srvOpts = append(srvOpts, server.WithTracer(tp.Tracer("echo")))
	}

	return &app{
		opts:     opts,
		logger:   logger.With("component", "main"),
		registry: reg,
		srv:      server.New(cfg, srvOpts...),
		bc:       shutdown.New(opts.capacity),
		listener: l,
		tp:       tp,
	}, nil
}

// startServer runs the server in its own goroutine. The receiver is taken
// before the goroutine starts so no signal sent afterwards is missed.
func (a *app) startServer() <-chan result {
	rx := a.bc.Subscribe()
	done := make(chan result, 1)
	go func() {
		var res result
		defer func() {
			if v := recover(); v != nil {
				res.panicked = v
			}
			done <- res
		}()
		res.err = a.srv.Serve(a.listener, rx)
	}()
	return done
}

// startAdmin serves /metrics and /healthz when an admin address is set and
// returns a function that stops it.
func (a *app) startAdmin() func() {
	if a.opts.adminAddr == "" {
		return func() {}
	}
	state := func() (string, bool) {
		st := a.srv.State()
		return st.String(), st == server.Accepting
	}
	hs := &http.Server{
		Addr:              a.opts.adminAddr,
		Handler:           admin.NewRouter(state, a.registry),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.logger.Info("admin listening", "addr", a.opts.adminAddr)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("admin server failed", "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hs.Shutdown(ctx)
	}
}

// stop sends the shutdown signal and waits for the server. When the drain
// timeout passes or force fires, live connections are aborted.
func (a *app) stop(ctx context.Context, done <-chan result, force <-chan struct{}) {
	a.logger.Info("sending shutdown signal")
	if err := a.bc.Send(); err != nil {
		a.logger.Error("shutdown signal not sent", "error", err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.opts.drainTimeout)
	defer cancel()

	select {
	case res := <-done:
		a.report(res)
		return
	case <-ctx.Done():
		a.logger.Warn("drain timeout passed", "active", a.srv.Active())
	case <-force:
		a.logger.Warn("force stopping server")
	}
	a.srv.Abort()
	a.report(<-done)
}

func (a *app) report(res result) {
	switch {
	case res.panicked != nil:
		a.logger.Error("server task join error", "error", res.panicked)
	case res.err != nil:
		a.logger.Error("server returned error", "error", res.err)
	default:
		a.logger.Info("server exited cleanly")
	}
}
