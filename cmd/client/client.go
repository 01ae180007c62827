package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tcp-echo-serv/internal/client"

	"github.com/spf13/cobra"
)

func main() {
	var (
		addr    string
		name    string
		timeout time.Duration
	)

	rootCmd := &cobra.Command{
		Use:   "echo-client [payload...]",
		Short: "Send a payload to the echo server and print the reply",
		Long: `echo-client sends its arguments as one payload and prints the reply.
Without arguments it reads lines from stdin until EOF or until the server
shuts down.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c := client.New(addr, slog.Default())
			if len(args) == 0 {
				return c.Interactive(ctx, os.Stdin, os.Stdout)
			}

			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			reply, err := c.Echo(ctx, name, []byte(strings.Join(args, " ")))
			if err != nil {
				return err
			}
			fmt.Printf("[%s] received: %s\n", name, reply)
			return nil
		},
	}

	rootCmd.Flags().StringVar(&addr, "addr", "127.0.0.1:3011", "server address")
	rootCmd.Flags().StringVar(&name, "name", "client", "client name used in logs")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "deadline for a one-shot exchange")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
