// lemonkv-cli is a client for a lemonkv server.
//
// Usage:
//
//	lemonkv-cli [flags]                  Start an interactive session
//	lemonkv-cli [flags] <command> [args] Open a session, run one command, close
//
// Flags:
//
//	-a, --addr       Server address (default 127.0.0.1:5555)
//	-t, --timeout    Per-request timeout (default 5s; admission is never timed out)
//
// Run 'lemonkv-cli help' for the command list.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lemon-mint/lemonkv/client"
	flag "github.com/spf13/pflag"
)

func main() {
	var (
		addr    = flag.StringP("addr", "a", "127.0.0.1:5555", "Server address")
		timeout = flag.DurationP("timeout", "t", 5*time.Second, "Per-request timeout")
	)
	flag.SetInterspersed(false)
	flag.Parse()

	args := flag.Args()
	if len(args) > 0 && (args[0] == "help" || args[0] == "?") {
		printHelp(os.Stdout)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	c, err := client.Dial(ctx, *addr)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, "lemonkv-cli:", err)
		os.Exit(1)
	}
	defer c.Close()

	r := &runner{c: c, out: os.Stdout, timeout: *timeout}

	if len(args) == 0 {
		repl := &REPL{runner: r}
		if err := repl.Run(); err != nil {
			fmt.Fprintln(os.Stderr, "lemonkv-cli:", err)
			os.Exit(1)
		}
		return
	}

	if err := runOnce(r, strings.ToLower(args[0]), args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "lemonkv-cli:", err)
		os.Exit(1)
	}
}

// runOnce wraps a single command in its own session.
func runOnce(r *runner, cmd string, args []string) error {
	if err := r.exec("open", nil); err != nil {
		return err
	}
	runErr := r.exec(cmd, args)
	closeErr := r.exec("close", nil)
	if runErr != nil {
		return runErr
	}
	return closeErr
}
