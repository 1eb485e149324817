package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/lemon-mint/lemonkv"
	"github.com/lemon-mint/lemonkv/client"
	"github.com/lemon-mint/lemonkv/types"
	"github.com/natefinch/atomic"
)

var errUsage = errors.New("usage")

// runner executes one command line against a client.
type runner struct {
	c       *client.Client
	out     io.Writer
	timeout time.Duration
}

var commandNames = []string{
	"open", "close", "get", "put", "del", "delete",
	"dump", "drain", "ping", "help", "exit", "quit", "q",
}

func (r *runner) ctx() (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), r.timeout)
}

func (r *runner) exec(cmd string, args []string) error {
	switch cmd {
	case "help", "?":
		printHelp(r.out)
		return nil
	case "open":
		// Admission may wait on another caller's session indefinitely.
		return r.c.Open(context.Background())
	case "close":
		ctx, cancel := r.ctx()
		defer cancel()
		return r.c.CloseSession(ctx)
	case "ping":
		ctx, cancel := r.ctx()
		defer cancel()
		if err := r.c.Ping(ctx); err != nil {
			return err
		}
		fmt.Fprintln(r.out, "pong")
		return nil
	case "get":
		return r.cmdGet(args)
	case "put":
		return r.cmdPut(args)
	case "del", "delete":
		return r.cmdDelete(args)
	case "dump":
		return r.cmdDump(args)
	case "drain":
		return r.cmdDrain(args)
	default:
		return fmt.Errorf("unknown command: %s (type 'help' for commands)", cmd)
	}
}

func (r *runner) cmdGet(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: get <key>", errUsage)
	}
	key, err := parseInt32(args[0])
	if err != nil {
		return err
	}
	ctx, cancel := r.ctx()
	defer cancel()
	ent, err := r.c.Lookup(ctx, key)
	if errors.Is(err, lemonkv.ErrNotFound) {
		fmt.Fprintf(r.out, "key=%d not found\n", key)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "key=%d data=%d\n", ent.Key, ent.Data)
	return nil
}

func (r *runner) cmdPut(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: put <key> <data>", errUsage)
	}
	key, err := parseInt32(args[0])
	if err != nil {
		return err
	}
	data, err := parseInt32(args[1])
	if err != nil {
		return err
	}
	ctx, cancel := r.ctx()
	defer cancel()
	if err := r.c.Write(ctx, key, data); err != nil {
		return err
	}
	if data == 0 {
		fmt.Fprintf(r.out, "deleted key=%d\n", key)
	} else {
		fmt.Fprintf(r.out, "stored key=%d data=%d\n", key, data)
	}
	return nil
}

func (r *runner) cmdDelete(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: del <key>", errUsage)
	}
	return r.cmdPut([]string{args[0], "0"})
}

func (r *runner) cmdDump(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: dump <bucket>", errUsage)
	}
	n, err := parseInt32(args[0])
	if err != nil {
		return err
	}
	ctx, cancel := r.ctx()
	defer cancel()
	rec, err := r.c.Dump(ctx, n)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "bucket %d:\n", rec.N)
	for i, e := range rec.Slots {
		fmt.Fprintf(r.out, "  [%d] key=%d data=%d\n", i, e.Key, e.Data)
	}
	return nil
}

// cmdDrain dumps every bucket. With --out FILE the result is written as a
// JSON array, replacing FILE atomically.
func (r *runner) cmdDrain(args []string) error {
	var out string
	switch {
	case len(args) == 0:
	case len(args) == 2 && (args[0] == "--out" || args[0] == "-o"):
		out = args[1]
	default:
		return fmt.Errorf("%w: drain [--out FILE]", errUsage)
	}

	ctx, cancel := r.ctx()
	defer cancel()
	entries, err := r.c.DrainAll(ctx)
	if err != nil {
		return err
	}

	if out == "" {
		for _, e := range entries {
			fmt.Fprintf(r.out, "key=%d data=%d\n", e.Key, e.Data)
		}
		fmt.Fprintf(r.out, "drained %d entries\n", len(entries))
		return nil
	}

	if err := writeEntries(out, entries); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "drained %d entries to %s\n", len(entries), out)
	return nil
}

type exportedEntry struct {
	Key  int32 `json:"key"`
	Data int32 `json:"data"`
}

func writeEntries(path string, entries []types.Entry) error {
	export := make([]exportedEntry, len(entries))
	for i, e := range entries {
		export[i] = exportedEntry{Key: e.Key, Data: e.Data}
	}
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func parseInt32(s string) (int32, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return int32(v), nil
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  open                    Open a session (waits while another is active)")
	fmt.Fprintln(w, "  close                   Close the session")
	fmt.Fprintln(w, "  get <key>               Look up a key")
	fmt.Fprintln(w, "  put <key> <data>        Insert or replace; data 0 deletes")
	fmt.Fprintln(w, "  del <key>               Delete a key")
	fmt.Fprintln(w, "  dump <bucket>           Drain a bucket, showing up to 8 removed entries")
	fmt.Fprintln(w, "  drain [--out FILE]      Drain every bucket, optionally exporting to JSON")
	fmt.Fprintln(w, "  ping                    Check the connection")
	fmt.Fprintln(w, "  help                    Show this help")
	fmt.Fprintln(w, "  exit / quit / q         Exit")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "dump and drain are destructive: entries past the 8th in a bucket are lost.")
}
