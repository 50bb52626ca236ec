// Command longopass is the Longopass AI client: a Telegram bot front end for
// the chat widget and command line access to the quiz, lab and chat
// endpoints.
package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx, os.Args[1:], os.Stdin, os.Stdout)
	stop()
	os.Exit(exitCode)
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, in io.Reader, out io.Writer) int {
	root := newRootCmd(in, out)
	root.SetArgs(args)

	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0
		}
		slog.Error("Command failed", "error", err)
		return 1
	}
	return 0
}
