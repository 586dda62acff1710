package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := runMain(ctx, newApp(os.Stdout, os.Stderr), os.Args[1:])
	stop()
	os.Exit(code)
}

// runMain executes the command line and returns the process exit status.
// Failures are logged with the name of the command that failed.
func runMain(ctx context.Context, a *app, args []string) int {
	root := newRootCmd(a)
	if args == nil {
		// nil args make cobra fall back to os.Args
		args = []string{}
	}
	root.SetArgs(args)

	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return 0
	}
	ev := a.logger.Error().Err(err)
	if cmd != nil {
		ev = ev.Str("command", cmd.Name())
	}
	ev.Msg("command failed")
	return 1
}
