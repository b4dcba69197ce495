// Command lostfoundctl is the operator CLI: it applies schema migrations and
// mints bearer tokens for local development.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ghuser/lostfound/pkg/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "lostfoundctl",
		Short:         "Operator tooling for the lost and found service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMigrateCmd(), newTokenCmd())
	return root
}

// loadConfig reads the environment only. conf also parses os.Args, which
// belong to cobra here.
func loadConfig() (*config.Config, error) {
	args := os.Args
	os.Args = args[:1]
	defer func() { os.Args = args }()
	return config.Load()
}
