package client

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/bytedance/gopkg/lang/fastrand"
	"github.com/lemon-mint/lemonkv"
)

// StressOptions configures a Stress run. Zero Workers, KeySpace and
// BucketSpace take the DefaultStressOptions values; a zero op count skips
// that phase.
type StressOptions struct {
	Workers int
	Writes  int
	Reads   int
	Dumps   int

	// KeySpace bounds generated keys and data to [0, KeySpace).
	KeySpace int32
	// BucketSpace bounds generated dump indexes to [0, BucketSpace). Values
	// above 256 deliberately produce out-of-range dumps.
	BucketSpace int32

	Logger *slog.Logger
}

func DefaultStressOptions() StressOptions {
	return StressOptions{
		Workers:     4,
		Writes:      200,
		Reads:       20000,
		Dumps:       200,
		KeySpace:    100,
		BucketSpace: 512,
	}
}

func (o *StressOptions) fill() {
	d := DefaultStressOptions()
	if o.Workers <= 0 {
		o.Workers = d.Workers
	}
	if o.Writes < 0 {
		o.Writes = 0
	}
	if o.Reads < 0 {
		o.Reads = 0
	}
	if o.Dumps < 0 {
		o.Dumps = 0
	}
	if o.KeySpace <= 0 {
		o.KeySpace = d.KeySpace
	}
	if o.BucketSpace <= 0 {
		o.BucketSpace = d.BucketSpace
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// StressReport counts the outcomes of a Stress run.
type StressReport struct {
	Sessions   int64
	Writes     int64
	Hits       int64
	Misses     int64
	Dumps      int64
	Reported   int64
	OutOfRange int64
	Failures   int64
}

func (r *StressReport) add(o *StressReport) {
	atomic.AddInt64(&r.Sessions, o.Sessions)
	atomic.AddInt64(&r.Writes, o.Writes)
	atomic.AddInt64(&r.Hits, o.Hits)
	atomic.AddInt64(&r.Misses, o.Misses)
	atomic.AddInt64(&r.Dumps, o.Dumps)
	atomic.AddInt64(&r.Reported, o.Reported)
	atomic.AddInt64(&r.OutOfRange, o.OutOfRange)
	atomic.AddInt64(&r.Failures, o.Failures)
}

// Stress runs opts.Workers concurrent callers against addr. Each dials,
// waits for its own session, then issues random writes, reads and dumps.
// Sessions are admitted one at a time, so workers run back to back.
func Stress(ctx context.Context, addr string, opts StressOptions) (StressReport, error) {
	opts.fill()

	var (
		total StressReport
		wg    sync.WaitGroup
		mu    sync.Mutex
		errs  []error
	)
	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			r, err := stressWorker(ctx, addr, &opts)
			total.add(&r)
			if err != nil {
				opts.Logger.Error("stress worker failed", "worker", id, "err", err)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return
			}
			opts.Logger.Info("stress worker done", "worker", id, "writes", r.Writes, "hits", r.Hits, "dumps", r.Dumps)
		}(i)
	}
	wg.Wait()
	return total, errors.Join(errs...)
}

func stressWorker(ctx context.Context, addr string, opts *StressOptions) (StressReport, error) {
	var r StressReport
	c, err := Dial(ctx, addr)
	if err != nil {
		return r, err
	}
	defer c.Close()

	if err := c.Open(ctx); err != nil {
		return r, err
	}
	r.Sessions++

	for i := 0; i < opts.Writes; i++ {
		key := randn(opts.KeySpace)
		data := randn(opts.KeySpace)
		if err := c.Write(ctx, key, data); err != nil {
			r.Failures++
			return r, err
		}
		r.Writes++
	}

	for i := 0; i < opts.Reads; i++ {
		_, err := c.Lookup(ctx, randn(opts.KeySpace))
		switch {
		case err == nil:
			r.Hits++
		case errors.Is(err, lemonkv.ErrNotFound):
			r.Misses++
		default:
			r.Failures++
			return r, err
		}
	}

	for i := 0; i < opts.Dumps; i++ {
		rec, err := c.Dump(ctx, randn(opts.BucketSpace))
		switch {
		case err == nil:
			r.Dumps++
			r.Reported += int64(rec.Count())
		case errors.Is(err, lemonkv.ErrBucketRange):
			r.OutOfRange++
		default:
			r.Failures++
			return r, err
		}
	}

	return r, c.CloseSession(ctx)
}

func randn(n int32) int32 {
	return int32(fastrand.Uint32n(uint32(n)))
}
