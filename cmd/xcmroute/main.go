// Command xcmroute resolves, sends and serves cross-consensus messages.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "xcmroute",
		Short:         "Route cross-consensus messages to other networks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newResolveCommand(), newSendCommand(), newServeCommand())
	return root
}
