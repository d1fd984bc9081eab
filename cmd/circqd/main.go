// Command circqd keeps a bounded lifecycle history per task and serves it
// over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "circqd",
		Short:         "Task lifecycle history server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand(), newExportCommand())
	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "circqd:", err)
		os.Exit(1)
	}
}
