package main

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"tcp-echo-serv/internal/client"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func demoCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Start the server, exercise it with two clients and shut it down",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.closeTracing()
			done := a.startServer()
			stopAdmin := a.startAdmin()
			defer stopAdmin()

			select {
			case <-time.After(opts.startDelay):
			case <-ctx.Done():
			}

			clientErr := runClients(ctx, a)
			a.stop(ctx, done, nil)
			return clientErr
		},
	}
	cmd.Flags().DurationVar(&opts.startDelay, "start-delay", 150*time.Millisecond, "pause between starting the server and running the clients")
	return cmd
}

func runClients(ctx context.Context, a *app) error {
	c := client.New(a.listener.Addr().String(), a.logger)
	g, gctx := errgroup.WithContext(ctx)
	for _, tc := range []struct{ name, payload string }{
		{"client-1", "hello from client 1"},
		{"client-2", "hello from client 2"},
	} {
		tc := tc
		g.Go(func() error {
			reply, err := c.Echo(gctx, tc.name, []byte(tc.payload))
			if err != nil {
				return err
			}
			if !bytes.Equal(reply, []byte(tc.payload)) {
				return fmt.Errorf("%s: echo mismatch: got %q", tc.name, reply)
			}
			return nil
		})
	}
	return g.Wait()
}
