package server

import (
	"context"
	"fmt"
	"net"
)

// Listen creates the listening socket described by cfg. A failure here is the
// only fatal server error.
func Listen(ctx context.Context, cfg Config) (net.Listener, error) {
	cfg = cfg.withDefaults()
	lc := net.ListenConfig{}
	if cfg.ReuseAddr {
		lc.Control = reuseAddr
	}
	l, err := lc.Listen(ctx, "tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("server: listen on %s: %w", cfg.Address, err)
	}
	return l, nil
}
