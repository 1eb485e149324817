package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lemon-mint/lemonkv"
	"github.com/lemon-mint/lemonkv/client"
)

func newRunner(t *testing.T) (*runner, *bytes.Buffer) {
	t.Helper()
	cfg := lemonkv.DefaultConfig()
	cfg.StatsInterval = 0
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := lemonkv.NewServer(cfg, lemonkv.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.Ln = ln
	go s.Serve()
	t.Cleanup(func() { s.Close() })

	c, err := client.Dial(context.Background(), ln.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	var out bytes.Buffer
	return &runner{c: c, out: &out, timeout: 5 * time.Second}, &out
}

func TestRunnerCommands(t *testing.T) {
	r, out := newRunner(t)

	require.NoError(t, r.exec("open", nil))
	require.NoError(t, r.exec("put", []string{"5", "10"}))
	require.NoError(t, r.exec("get", []string{"5"}))
	require.NoError(t, r.exec("del", []string{"5"}))
	require.NoError(t, r.exec("get", []string{"5"}))
	require.NoError(t, r.exec("put", []string{"0x107", "3"}))
	require.NoError(t, r.exec("dump", []string{"7"}))
	require.NoError(t, r.exec("close", nil))

	got := out.String()
	assert.Contains(t, got, "stored key=5 data=10\n")
	assert.Contains(t, got, "key=5 data=10\n")
	assert.Contains(t, got, "deleted key=5\n")
	assert.Contains(t, got, "key=5 not found\n")
	assert.Contains(t, got, "bucket 7:\n  [0] key=263 data=3\n  [1] key=-1 data=-1\n")
}

func TestRunnerErrors(t *testing.T) {
	r, _ := newRunner(t)

	assert.ErrorIs(t, r.exec("get", nil), errUsage)
	assert.ErrorIs(t, r.exec("put", []string{"1"}), errUsage)
	assert.ErrorIs(t, r.exec("drain", []string{"--bogus"}), errUsage)
	assert.Error(t, r.exec("get", []string{"nine"}))
	assert.Error(t, r.exec("put", []string{"1", "99999999999"}))
	assert.Error(t, r.exec("frobnicate", nil))

	assert.ErrorIs(t, r.exec("get", []string{"1"}), lemonkv.ErrNoSession)

	require.NoError(t, r.exec("open", nil))
	assert.ErrorIs(t, r.exec("dump", []string{"256"}), lemonkv.ErrBucketRange)
}

func TestRunnerDrainExport(t *testing.T) {
	r, out := newRunner(t)
	path := filepath.Join(t.TempDir(), "drain.json")

	require.NoError(t, runOnce(r, "put", []string{"1", "2"}))
	require.NoError(t, runOnce(r, "put", []string{"300", "4"}))
	require.NoError(t, runOnce(r, "drain", []string{"--out", path}))
	assert.Contains(t, out.String(), "drained 2 entries to "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got []exportedEntry
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, []exportedEntry{{Key: 1, Data: 2}, {Key: 300, Data: 4}}, got)

	out.Reset()
	require.NoError(t, runOnce(r, "drain", nil))
	assert.Equal(t, "drained 0 entries\n", out.String())
}
