package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"tcp-echo-serv/internal/server"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() *options {
	return &options{
		addr:         "127.0.0.1:0",
		writeTimeout: 2 * time.Second,
		bufferSize:   1024,
		drainTimeout: 5 * time.Second,
		capacity:     16,
		logLevel:     "error",
		logFormat:    "text",
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{"text", "info", "text", false},
		{"json", "debug", "JSON", false},
		{"bad level", "loud", "text", true},
		{"bad format", "info", "xml", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newLogger(tt.level, tt.format)
			if (err != nil) != tt.wantErr {
				t.Errorf("newLogger() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApp_Demo(t *testing.T) {
	a, err := newApp(context.Background(), testOptions())
	require.NoError(t, err)

	done := a.startServer()
	require.NoError(t, runClients(context.Background(), a))
	a.stop(context.Background(), done, nil)
	assert.Equal(t, server.Stopped, a.srv.State())
}

func TestApp_ListenFailure(t *testing.T) {
	a, err := newApp(context.Background(), testOptions())
	require.NoError(t, err)
	defer a.listener.Close()

	opts := testOptions()
	opts.addr = a.listener.Addr().String()
	_, err = newApp(context.Background(), opts)
	assert.Error(t, err)
}

func TestApp_ForceStop(t *testing.T) {
	opts := testOptions()
	a, err := newApp(context.Background(), opts)
	require.NoError(t, err)
	done := a.startServer()

	force := make(chan struct{})
	close(force)
	a.stop(context.Background(), done, force)
	assert.Equal(t, server.Stopped, a.srv.State())
	assert.Equal(t, 0, a.srv.Active())
}

func TestApp_TraceStdout(t *testing.T) {
	var out bytes.Buffer
	opts := testOptions()
	opts.traceStdout = true
	opts.traceOut = &out
	a, err := newApp(context.Background(), opts)
	require.NoError(t, err)
	require.NotNil(t, a.tp)

	done := a.startServer()
	require.NoError(t, runClients(context.Background(), a))
	a.stop(context.Background(), done, nil)
	a.closeTracing()

	assert.Equal(t, 2, strings.Count(out.String(), `"Name":"echo.connection"`))
	assert.Contains(t, out.String(), "echo.conn_id")
	assert.Contains(t, out.String(), "echo.bytes")
}

func TestApp_TracingOffByDefault(t *testing.T) {
	a, err := newApp(context.Background(), testOptions())
	require.NoError(t, err)
	defer a.listener.Close()
	assert.Nil(t, a.tp)
	a.closeTracing()
}
