package client

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/lemon-mint/lemonkv"
	"github.com/lemon-mint/lemonkv/packet"
)

// conn serializes request/reply exchanges on one stream.
type conn struct {
	mu sync.Mutex

	conn net.Conn
	st   *packet.Stream

	broken error

	buf []byte
}

func dial(ctx context.Context, addr string) (*conn, error) {
	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return &conn{
		conn: c,
		st:   packet.NewStream(c),
		buf:  make([]byte, 0, packet.DumpSize),
	}, nil
}

// roundTrip sends req and waits for its reply. fn sees the reply while the
// record is still valid. Any I/O failure poisons the conn, since the
// request/reply pairing can no longer be trusted.
func (c *conn) roundTrip(ctx context.Context, req *packet.Packet, fn func(reply *packet.Packet) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken != nil {
		return c.broken
	}

	if dl, ok := ctx.Deadline(); ok {
		c.conn.SetDeadline(dl)
		defer c.conn.SetDeadline(time.Time{})
	}
	stop := context.AfterFunc(ctx, func() {
		c.conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	if err := c.st.Send(req); err != nil {
		return c.fail(ctx, err)
	}
	var reply packet.Packet
	if err := c.st.Recv(&reply); err != nil {
		return c.fail(ctx, err)
	}
	if reply.Op != req.Op {
		return c.fail(ctx, fmt.Errorf("reply op %s for request %s", reply.Op, req.Op))
	}
	return fn(&reply)
}

func (c *conn) fail(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	c.broken = fmt.Errorf("%w: %w", lemonkv.ErrTransport, err)
	return c.broken
}

func (c *conn) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.st == nil {
		return nil
	}
	err := c.conn.Close()
	c.st.Release()
	c.st = nil
	if c.broken == nil {
		c.broken = fmt.Errorf("%w: %w", lemonkv.ErrTransport, net.ErrClosed)
	}
	return err
}
