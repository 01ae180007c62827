package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"tcp-echo-serv/internal/server"

	"github.com/spf13/cobra"
)

type options struct {
	addr         string
	writeTimeout time.Duration
	bufferSize   int
	adminAddr    string
	drainTimeout time.Duration
	capacity     int
	startDelay   time.Duration
	logLevel     string
	logFormat    string
	traceStdout  bool
	traceOut     io.Writer
}

func main() {
	opts := &options{}
	defaults := server.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "echo-server",
		Short: "TCP echo server with graceful shutdown",
		Long: `echo-server echoes every byte it reads back to the peer.

On shutdown it stops accepting, tells every open connection
"server shutting down" and waits for all of them to finish.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.addr, "addr", defaults.Address, "address to listen on")
	flags.DurationVar(&opts.writeTimeout, "write-timeout", defaults.WriteTimeout, "time budget for a single write to a peer")
	flags.IntVar(&opts.bufferSize, "buffer-size", defaults.BufferSize, "size of a single read from a peer")
	flags.StringVar(&opts.adminAddr, "admin-addr", "", "address of the /metrics and /healthz endpoint (disabled when empty)")
	flags.DurationVar(&opts.drainTimeout, "drain-timeout", time.Minute, "how long to wait for connections after shutdown before aborting them")
	flags.IntVar(&opts.capacity, "capacity", 16, "shutdown signals retained per receiver")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "text", "log format (text, json)")
	flags.BoolVar(&opts.traceStdout, "trace-stdout", false, "print a span per connection to stdout")

	rootCmd.AddCommand(
		serveCmd(opts),
		demoCmd(opts),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func serveCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve until SIGINT or SIGTERM",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.closeTracing()
			done := a.startServer()
			stopAdmin := a.startAdmin()
			defer stopAdmin()

			waitStopSignal(cmd.Context(), a, done)
			return nil
		},
	}
}
