package lemonkv

import (
	"io"
	"log/slog"

	"github.com/lemon-mint/lemonkv/slowtable"
	"github.com/lemon-mint/lemonkv/types"
)

// Engine implements lookup, upsert/delete and destructive bucket dumps over
// a slowtable. It is not safe for concurrent use; a Gate serializes callers.
type Engine struct {
	table    *slowtable.Table
	capacity int
	logger   *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithCapacity bounds the number of live entries. Inserts past the bound
// fail with ErrAllocation. Zero means unbounded.
func WithCapacity(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.capacity = n
		}
	}
}

// WithEngineLogger sets the logger used for per-operation tracing.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		table:  slowtable.NewTable(nil, types.BucketCount),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Len returns the number of live entries.
func (e *Engine) Len() int {
	return e.table.Len()
}

// BucketLen returns the number of entries in bucket n.
func (e *Engine) BucketLen(n int) int {
	return e.table.BucketLen(n)
}

// Lookup returns the first entry in key's bucket whose key matches.
func (e *Engine) Lookup(key int32) (types.Entry, bool) {
	n := e.table.BucketIndex(key)
	found := types.NotFound()
	ok := false
	e.table.ForEach(n, func(ent types.Entry) bool {
		if ent.Key == key {
			found, ok = ent, true
			return false
		}
		return true
	})
	if ok {
		e.logger.Debug("lookup", "key", key, "data", found.Data, "bucket", n)
	} else {
		e.logger.Debug("lookup miss", "key", key, "bucket", n)
	}
	return found, ok
}

// Write stores data under key. Data 0 deletes every entry with that key;
// deleting a missing key is a no-op. A matching entry is updated in place,
// otherwise a new entry is appended to the bucket.
func (e *Engine) Write(key, data int32) error {
	n := e.table.BucketIndex(key)
	if data == 0 {
		for _, ent := range e.table.RemoveMatching(n, slowtable.KeyIs(key)) {
			e.logger.Debug("delete", "key", ent.Key, "data", ent.Data, "bucket", n)
		}
		return nil
	}

	if e.table.Update(n, slowtable.KeyIs(key), func(ent *types.Entry) { ent.Data = data }) {
		e.logger.Debug("replace", "key", key, "data", data, "bucket", n)
		return nil
	}

	if e.capacity > 0 && e.table.Len() >= e.capacity {
		e.logger.Warn("add rejected", "key", key, "capacity", e.capacity)
		return ErrAllocation
	}
	e.table.Insert(n, types.Entry{Key: key, Data: data})
	e.logger.Debug("add", "key", key, "data", data, "bucket", n)
	return nil
}

// Dump drains bucket n completely and reports the first DumpSlots entries
// it removed, in chain order. Entries past the last slot are discarded.
// It returns the record and the number of filled slots. An out-of-range n
// returns ErrBucketRange and leaves the table untouched.
func (e *Engine) Dump(n int32) (types.DumpRecord, int, error) {
	rec := types.NewDumpRecord(n)
	if n < 0 || int(n) >= e.table.Buckets() {
		return rec, 0, ErrBucketRange
	}

	drained := e.table.RemoveMatching(int(n), slowtable.Always)
	filled := copy(rec.Slots[:], drained)
	if len(drained) > filled {
		e.logger.Debug("dump truncated", "bucket", n, "drained", len(drained), "reported", filled)
	}
	for _, ent := range drained {
		e.logger.Debug("dump", "bucket", n, "key", ent.Key, "data", ent.Data)
	}
	return rec, filled, nil
}

// Teardown frees every entry and returns how many were freed.
func (e *Engine) Teardown() int {
	return e.table.Reset(func(n int, ent types.Entry) {
		e.logger.Debug("teardown delete", "key", ent.Key, "data", ent.Data, "bucket", n)
	})
}
