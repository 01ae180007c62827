package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"tcp-echo-serv/internal/message"
)

// Client tcp echo client
type Client struct {
	address string
	logger  *slog.Logger
	dialer  net.Dialer
}

// New creates new Client
func New(address string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		address: address,
		logger:  logger.With("component", "client"),
		dialer:  net.Dialer{KeepAlive: 30 * time.Second},
	}
}

// Echo connects, writes payload once, reads one reply and disconnects.
func (c *Client) Echo(ctx context.Context, name string, payload []byte) ([]byte, error) {
	conn, err := c.dialer.DialContext(ctx, "tcp", c.address)
	if err != nil {
		return nil, fmt.Errorf("client %s: dial: %w", name, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if _, err := conn.Write(payload); err != nil {
		return nil, fmt.Errorf("client %s: write: %w", name, err)
	}
	reply, err := message.ReadReply(conn)
	if err != nil {
		return nil, fmt.Errorf("client %s: read: %w", name, err)
	}
	c.logger.Info("received", "name", name, "reply", string(reply))
	return reply, nil
}

// Interactive sends every line of in to the server and copies replies to out
// until the server closes the connection. When in is exhausted the write side
// is closed so the server can finish.
func (c *Client) Interactive(ctx context.Context, in io.Reader, out io.Writer) error {
	conn, err := c.dialer.DialContext(ctx, "tcp", c.address)
	if err != nil {
		return fmt.Errorf("client: dial: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	notify := make(chan error, 2)

	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			if _, err := conn.Write(append(scanner.Bytes(), '\n')); err != nil {
				notify <- err
				return
			}
		}
		if err := scanner.Err(); err != nil {
			notify <- err
			return
		}
		if cw, ok := conn.(interface{ CloseWrite() error }); ok {
			_ = cw.CloseWrite()
		}
	}()

	go func() {
		for {
			reply, err := message.ReadReply(conn)
			if err != nil {
				if errors.Is(err, message.ErrEmptyReply) {
					err = nil
				}
				notify <- err
				return
			}
			if _, err := out.Write(reply); err != nil {
				notify <- err
				return
			}
			if message.IsGoodbye(reply) {
				c.logger.Info("server is shutting down")
			}
		}
	}()

	err = <-notify
	if err != nil {
		c.logger.Info("connection dropped", "error", err)
	}
	return err
}
