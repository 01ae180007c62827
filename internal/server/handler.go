package server

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"time"

	"tcp-echo-serv/internal/message"
	"tcp-echo-serv/internal/shutdown"

	uuid "github.com/satori/go.uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// aLongTimeAgo is a deadline in the past that unblocks a pending read.
var aLongTimeAgo = time.Unix(1, 0)

// handleConnection echoes everything read from conn until the peer closes,
// an I/O error occurs or rx reports shutdown. conn is closed on return.
func (s *Server) handleConnection(ctx context.Context, id uuid.UUID, conn net.Conn, rx *shutdown.Receiver) (err error) {
	peer := conn.RemoteAddr().String()
	_, span := s.tracer.Start(ctx, "echo.connection",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("echo.conn_id", id.String()),
			attribute.String("net.peer.addr", peer),
		),
	)
	var echoed int
	defer func() {
		span.SetAttributes(attribute.Int("echo.bytes", echoed))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		_ = conn.Close()
	}()

	watch := rx.Resubscribe()
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-watch.Ready():
			_ = conn.SetReadDeadline(aLongTimeAgo)
		case <-stop:
		}
	}()

	buf := make([]byte, s.cfg.BufferSize)
	for {
		if recvErr := rx.TryRecv(); !errors.Is(recvErr, shutdown.ErrEmpty) {
			s.sayGoodbye(id, conn, shutdown.Classify(recvErr))
			span.AddEvent("shutdown")
			return nil
		}

		n, readErr := conn.Read(buf)
		if n > 0 {
			if err := s.echo(id, peer, conn, buf[:n]); err != nil {
				return err
			}
			echoed += n
			s.metrics.Echoed(n)
			continue
		}
		switch {
		case readErr == nil:
			continue
		case errors.Is(readErr, io.EOF):
			return nil
		}

		select {
		case <-rx.Ready():
			// interrupted by shutdown
			continue
		default:
		}
		return &ConnError{ID: id, Peer: peer, Kind: KindReset, Op: "read", Err: readErr}
	}
}

func (s *Server) echo(id uuid.UUID, peer string, conn net.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
		return &ConnError{ID: id, Peer: peer, Kind: KindReset, Op: "write", Err: err}
	}
	if _, err := conn.Write(data); err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return &ConnError{ID: id, Peer: peer, Kind: KindTimedOut, Op: "write", Err: err}
		}
		return &ConnError{ID: id, Peer: peer, Kind: KindReset, Op: "write", Err: err}
	}
	return nil
}

// sayGoodbye notifies the peer on a clean shutdown signal. Failures are logged
// and otherwise ignored; the connection closes either way.
func (s *Server) sayGoodbye(id uuid.UUID, conn net.Conn, status shutdown.Status) {
	if status != shutdown.Observed {
		s.logger.Debug("closing connection without goodbye", "conn_id", id.String(), "status", status.String())
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	if _, err := io.WriteString(conn, message.Goodbye); err != nil {
		s.logger.Debug("goodbye not delivered", "conn_id", id.String(), "error", err)
		return
	}
	s.metrics.GoodbyeSent()
}
