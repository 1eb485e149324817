// lemonkv-stress hammers a lemonkv server with concurrent sessions doing
// random writes, lookups and dumps, then prints the outcome counts.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/lemon-mint/lemonkv/client"
	flag "github.com/spf13/pflag"
)

func main() {
	d := client.DefaultStressOptions()
	var (
		addr        = flag.StringP("addr", "a", "127.0.0.1:5555", "Server address")
		workers     = flag.IntP("workers", "w", d.Workers, "Concurrent sessions")
		writes      = flag.Int("writes", d.Writes, "Writes per session")
		reads       = flag.Int("reads", d.Reads, "Lookups per session")
		dumps       = flag.Int("dumps", d.Dumps, "Dumps per session")
		keySpace    = flag.Int32("keys", d.KeySpace, "Keys and data are drawn from [0, keys)")
		bucketSpace = flag.Int32("buckets", d.BucketSpace, "Dump indexes are drawn from [0, buckets)")
		verbose     = flag.BoolP("verbose", "v", false, "Log per-worker progress")
	)
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	report, err := client.Stress(ctx, *addr, client.StressOptions{
		Workers:     *workers,
		Writes:      *writes,
		Reads:       *reads,
		Dumps:       *dumps,
		KeySpace:    *keySpace,
		BucketSpace: *bucketSpace,
		Logger:      logger,
	})

	fmt.Printf("sessions=%d writes=%d hits=%d misses=%d dumps=%d reported=%d out_of_range=%d failures=%d\n",
		report.Sessions, report.Writes, report.Hits, report.Misses,
		report.Dumps, report.Reported, report.OutOfRange, report.Failures)
	if err != nil {
		fmt.Fprintln(os.Stderr, "lemonkv-stress:", err)
		os.Exit(1)
	}
}
