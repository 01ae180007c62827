package server

import (
	"time"

	"tcp-echo-serv/internal/message"
)

// Config holds the server settings. Zero fields fall back to DefaultConfig.
type Config struct {
	// Address is the host:port the listener binds to.
	Address string

	// WriteTimeout bounds every write to a peer, measured from write start.
	WriteTimeout time.Duration

	// BufferSize is the size of a single read from a peer.
	BufferSize int

	// ReuseAddr sets SO_REUSEADDR on the listening socket where supported.
	ReuseAddr bool

	// AcceptBackoffMax caps the pause after a transient accept error.
	AcceptBackoffMax time.Duration
}

const (
	defaultAddress          = "127.0.0.1:3011"
	defaultWriteTimeout     = 2 * time.Second
	defaultAcceptBackoffMax = time.Second
	acceptBackoffMin        = 5 * time.Millisecond
)

// DefaultConfig returns the default settings.
func DefaultConfig() Config {
	return Config{
		Address:          defaultAddress,
		WriteTimeout:     defaultWriteTimeout,
		BufferSize:       message.BufferSize,
		ReuseAddr:        true,
		AcceptBackoffMax: defaultAcceptBackoffMax,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Address == "" {
		c.Address = d.Address
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.BufferSize <= 0 {
		c.BufferSize = d.BufferSize
	}
	if c.AcceptBackoffMax <= 0 {
		c.AcceptBackoffMax = d.AcceptBackoffMax
	}
	return c
}
