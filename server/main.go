package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lemon-mint/lemonkv"
	flag "github.com/spf13/pflag"
)

func main() {
	var (
		configFile    = flag.StringP("config", "c", "", "Path to a JSON/JSONC config file")
		addr          = flag.StringP("addr", "a", "", "Listen address (overrides config)")
		connTimeout   = flag.Duration("conn-timeout", -1, "Idle timeout per connection; 0 disables (overrides config)")
		statsInterval = flag.Duration("stats-interval", -1, "Stats log interval; 0 disables (overrides config)")
		maxEntries    = flag.Int("max-entries", -1, "Maximum live entries; 0 for unbounded (overrides config)")
		verbose       = flag.BoolP("verbose", "v", false, "Log every table operation")
	)
	flag.Parse()

	cfg := lemonkv.DefaultConfig()
	if *configFile != "" {
		loaded, err := lemonkv.LoadConfig(*configFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "lemonkv-server:", err)
			os.Exit(1)
		}
		cfg = *loaded
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *connTimeout >= 0 {
		cfg.ConnTimeout = lemonkv.Duration(*connTimeout)
	}
	if *statsInterval >= 0 {
		cfg.StatsInterval = lemonkv.Duration(*statsInterval)
	}
	if *maxEntries >= 0 {
		cfg.MaxEntries = *maxEntries
	}
	if *verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "lemonkv-server:", err)
		os.Exit(1)
	}

	level, _ := lemonkv.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	server := lemonkv.NewServer(cfg, lemonkv.WithLogger(logger))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		<-sig
		logger.Info("shutting down")
		server.Close()
		close(done)
	}()

	err := server.ListenAndServe(cfg.Addr)
	if !errors.Is(err, lemonkv.ErrServerClosed) {
		logger.Error("serve failed", "err", err)
		os.Exit(1)
	}
	<-done
}
