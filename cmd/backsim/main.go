// Command backsim runs a deterministic backtest against a JSON
// market-data fixture, wiring the configured exchanges, brokers and
// message bus through internal/engine.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "backsim",
		Short: "Deterministic discrete-event backtesting engine",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "directory containing config.yaml")

	root.AddCommand(newRunCmd(&configPath))
	root.AddCommand(newVersionCmd())

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the backsim version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}
}
