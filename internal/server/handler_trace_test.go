package server

import (
	"context"
	"net"
	"testing"
	"time"

	"tcp-echo-serv/internal/message"
	"tcp-echo-serv/internal/shutdown"

	uuid "github.com/satori/go.uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newTracedServer(cfg Config) (*Server, *tracetest.SpanRecorder) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	return New(cfg, WithLogger(discardLogger()), WithTracer(tp.Tracer("echo"))), sr
}

func endedSpan(t *testing.T, sr *tracetest.SpanRecorder) (sdktrace.ReadOnlySpan, map[attribute.Key]attribute.Value) {
	t.Helper()
	spans := sr.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	attrs := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	return span, attrs
}

func TestHandleConnection_TraceShutdown(t *testing.T) {
	s, sr := newTracedServer(Config{})
	srvSide, cliSide := net.Pipe()
	defer cliSide.Close()
	bc := shutdown.New(16)
	id := uuid.NewV4()

	done := make(chan error, 1)
	go func() {
		done <- s.handleConnection(context.Background(), id, srvSide, bc.Subscribe())
	}()

	_, err := cliSide.Write([]byte("one"))
	require.NoError(t, err)
	_, err = message.ReadReply(cliSide)
	require.NoError(t, err)
	assert.Empty(t, sr.Ended(), "span must stay open while the connection is served")

	require.NoError(t, bc.Send())
	reply, err := message.ReadReply(cliSide)
	require.NoError(t, err)
	assert.True(t, message.IsGoodbye(reply))
	require.NoError(t, waitHandler(t, done))

	span, attrs := endedSpan(t, sr)
	assert.Equal(t, "echo.connection", span.Name())
	assert.Equal(t, trace.SpanKindServer, span.SpanKind())
	assert.Equal(t, id.String(), attrs["echo.conn_id"].AsString())
	assert.Equal(t, "pipe", attrs["net.peer.addr"].AsString())
	assert.Equal(t, int64(3), attrs["echo.bytes"].AsInt64())
	assert.Equal(t, codes.Unset, span.Status().Code)

	require.Len(t, span.Events(), 1)
	assert.Equal(t, "shutdown", span.Events()[0].Name)
}

func TestHandleConnection_TraceWriteTimeout(t *testing.T) {
	s, sr := newTracedServer(Config{WriteTimeout: 50 * time.Millisecond})
	srvSide, cliSide := net.Pipe()
	defer cliSide.Close()
	bc := shutdown.New(16)
	id := uuid.NewV4()

	done := make(chan error, 1)
	go func() {
		done <- s.handleConnection(context.Background(), id, srvSide, bc.Subscribe())
	}()

	// the peer never reads, so the echo cannot complete
	_, err := cliSide.Write([]byte("ping"))
	require.NoError(t, err)
	err = waitHandler(t, done)
	require.ErrorIs(t, err, ErrTimedOut)

	span, attrs := endedSpan(t, sr)
	assert.Equal(t, id.String(), attrs["echo.conn_id"].AsString())
	assert.Equal(t, int64(0), attrs["echo.bytes"].AsInt64())
	assert.Equal(t, codes.Error, span.Status().Code)
	assert.Equal(t, err.Error(), span.Status().Description)

	require.NotEmpty(t, span.Events())
	assert.Equal(t, "exception", span.Events()[0].Name)
}
