// Command formfetch downloads a file that sits behind a landing page form.
//
// Usage:
//
//	formfetch [-o FILE] [--proxy URI] [-v...] URL
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"formfetch/internal/cli"
	"formfetch/internal/config"
)

func main() {
	if err := config.LoadEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewRootCommand(os.Stdout, os.Stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
