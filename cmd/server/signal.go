package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func waitStopSignal(ctx context.Context, a *app, done <-chan result) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(c)

	select {
	case <-c:
	case res := <-done:
		a.report(res)
		return
	}

	// a second signal aborts the drain
	force := make(chan struct{})
	go func() {
		select {
		case <-c:
			close(force)
		case <-ctx.Done():
		}
	}()
	a.stop(ctx, done, force)
}
