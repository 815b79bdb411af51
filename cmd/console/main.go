package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"suitehub/internal/console/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand(cli.DefaultBuilder).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error: "+cli.Describe(err))
		stop()
		os.Exit(1)
	}
}
