// Package client implements the Gomoku client: the directory connection,
// client-side matchmaking and the peer-to-peer game handoff.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/NicolasHaas/gomoku/pkg/protocol"
)

// LineHandler is a callback for incoming directory lines.
type LineHandler func(line string)

// ControlClient manages the TCP connection to the directory server.
type ControlClient struct {
	conn    *protocol.Conn
	handler LineHandler
	done    chan struct{}
}

// DialControl connects to the directory server at addr.
func DialControl(ctx context.Context, addr string) (*ControlClient, error) {
	var d net.Dialer
	raw, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("client: connect directory: %w", err)
	}
	return &ControlClient{
		conn: protocol.NewConn(raw, 0),
		done: make(chan struct{}),
	}, nil
}

// SetLineHandler sets the callback for incoming lines. It must be called
// before StartReceiving.
func (c *ControlClient) SetLineHandler(handler LineHandler) {
	c.handler = handler
}

// Send writes one line to the server.
func (c *ControlClient) Send(line string) error {
	return c.conn.WriteLine(line)
}

// StartReceiving starts a goroutine that reads incoming lines and
// dispatches them to the handler.
func (c *ControlClient) StartReceiving() {
	go func() {
		defer close(c.done)
		for {
			line, err := c.conn.ReadLine()
			if err != nil {
				if protocol.IsClosed(err) {
					slog.Debug("directory connection closed")
					return
				}
				slog.Error("directory read error", "err", err)
				return
			}
			if c.handler != nil {
				c.handler(line)
			}
		}
	}()
}

// Close closes the directory connection.
func (c *ControlClient) Close() error {
	return c.conn.Close()
}

// Done returns a channel that's closed when the connection is lost.
func (c *ControlClient) Done() <-chan struct{} {
	return c.done
}
