// Package client talks to a lemonkv server: it dials, opens a session, and
// issues point reads, writes and bucket dumps over the framed protocol.
package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/lemon-mint/lemonkv"
	"github.com/lemon-mint/lemonkv/packet"
	"github.com/lemon-mint/lemonkv/types"
)

var ErrAlreadyOpen = errors.New("client: session already open")

// Client is one connection to a server. At most one session is open on it
// at a time. A Client must not be used from more than one goroutine.
type Client struct {
	addr string
	c    *conn

	open bool
}

// Dial connects to addr. No session is opened.
func Dial(ctx context.Context, addr string) (*Client, error) {
	c, err := dial(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", addr, err)
	}
	return &Client{addr: addr, c: c}, nil
}

func (c *Client) Addr() string {
	return c.addr
}

// Open blocks until the server admits this client's session or ctx is
// done. A cancelled Open leaves the connection unusable, since the server
// may still admit it later.
func (c *Client) Open(ctx context.Context) error {
	if c.open {
		return ErrAlreadyOpen
	}
	err := c.c.roundTrip(ctx, &packet.Packet{Op: packet.OpOpen}, func(reply *packet.Packet) error {
		return statusErr(packet.OpOpen, reply.Status)
	})
	if err != nil {
		return err
	}
	c.open = true
	return nil
}

// CloseSession ends the session, letting the next waiting caller in.
func (c *Client) CloseSession(ctx context.Context) error {
	err := c.c.roundTrip(ctx, &packet.Packet{Op: packet.OpClose}, func(reply *packet.Packet) error {
		return statusErr(packet.OpClose, reply.Status)
	})
	c.open = false
	return err
}

// InSession reports whether Open succeeded and CloseSession has not been
// called since.
func (c *Client) InSession() bool {
	return c.open
}

// Ping checks the connection without touching the table.
func (c *Client) Ping(ctx context.Context) error {
	return c.c.roundTrip(ctx, &packet.Packet{Op: packet.OpPing}, func(reply *packet.Packet) error {
		return statusErr(packet.OpPing, reply.Status)
	})
}

// Lookup returns the entry stored under key, or lemonkv.ErrNotFound.
func (c *Client) Lookup(ctx context.Context, key int32) (types.Entry, error) {
	ent := types.NotFound()
	req := packet.Packet{
		Op:     packet.OpRead,
		Record: packet.AppendEntry(nil, types.Entry{Key: key}),
	}
	err := c.c.roundTrip(ctx, &req, func(reply *packet.Packet) error {
		if err := statusErr(packet.OpRead, reply.Status); err != nil {
			return err
		}
		got, err := packet.DecodeEntry(reply.Record)
		if err != nil {
			return fmt.Errorf("%w: %w", lemonkv.ErrTransport, err)
		}
		ent = got
		return nil
	})
	return ent, err
}

// Write stores data under key. Data 0 deletes the key.
func (c *Client) Write(ctx context.Context, key, data int32) error {
	req := packet.Packet{
		Op:     packet.OpWrite,
		Record: packet.AppendEntry(nil, types.Entry{Key: key, Data: data}),
	}
	return c.c.roundTrip(ctx, &req, func(reply *packet.Packet) error {
		return statusErr(packet.OpWrite, reply.Status)
	})
}

// Delete removes key. Deleting a missing key is not an error.
func (c *Client) Delete(ctx context.Context, key int32) error {
	return c.Write(ctx, key, 0)
}

// Dump drains bucket n on the server and returns the first entries it
// removed. The server discards everything past the last slot.
func (c *Client) Dump(ctx context.Context, n int32) (types.DumpRecord, error) {
	rec := types.NewDumpRecord(n)
	req := packet.Packet{
		Op:     packet.OpDump,
		Record: packet.AppendDump(nil, &rec),
	}
	err := c.c.roundTrip(ctx, &req, func(reply *packet.Packet) error {
		if err := statusErr(packet.OpDump, reply.Status); err != nil {
			return err
		}
		got, err := packet.DecodeDump(reply.Record)
		if err != nil {
			return fmt.Errorf("%w: %w", lemonkv.ErrTransport, err)
		}
		rec = got
		return nil
	})
	return rec, err
}

// DrainAll dumps every bucket in order and returns what was reported. It
// stops at the first error, returning the entries collected so far.
func (c *Client) DrainAll(ctx context.Context) ([]types.Entry, error) {
	var out []types.Entry
	for n := int32(0); n < types.BucketCount; n++ {
		rec, err := c.Dump(ctx, n)
		if err != nil {
			return out, fmt.Errorf("drain bucket %d: %w", n, err)
		}
		out = append(out, rec.Entries()...)
	}
	return out, nil
}

// Close drops the connection. The server releases any open session.
func (c *Client) Close() error {
	c.open = false
	return c.c.close()
}

func statusErr(op packet.Op, status uint8) error {
	s := lemonkv.Status(status)
	switch {
	case s == lemonkv.StatusOK:
		return nil
	case s == lemonkv.StatusInvalidArgument && op == packet.OpRead:
		return lemonkv.ErrNotFound
	case s == lemonkv.StatusInvalidArgument && op == packet.OpDump:
		return lemonkv.ErrBucketRange
	case s == lemonkv.StatusProtocolError && op == packet.OpOpen:
		return ErrAlreadyOpen
	}
	return fmt.Errorf("%s: %w", op, s.Err())
}
