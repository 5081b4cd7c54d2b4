package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/petal-go/petal/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "petal",
		Short: "Server-driven reactive pages for Go",
		Long: `Petal binds directive-annotated HTML to reactive state on the
server and keeps connected browsers in sync over WebSocket.

Commands:
  serve    run the configured page as a live server
  render   print the bound initial HTML and exit
  version  print version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		renderCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errors.Format(err))
		os.Exit(1)
	}
}
