// Package cli wires the trader subcommands. Every command bootstraps the app
// from the same YAML configuration, so `trader run` and the one-shot
// maintenance commands see identical state.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "trader",
		Short:         "Crypto portfolio agent for Binance spot",
		Long:          "trader keeps a local ledger reconciled against Binance spot balances and runs an AI-driven signal and execution loop.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", defaultConfigPath(), "path to the YAML configuration file")

	root.AddCommand(newRunCmd())
	root.AddCommand(newSyncCmd())
	root.AddCommand(newReconcileCmd())
	root.AddCommand(newResetCmd())
	root.AddCommand(newTradeCmd())
	root.AddCommand(newAccountCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func defaultConfigPath() string {
	if p := os.Getenv("TRADER_CONFIG"); p != "" {
		return p
	}
	return "configs/config.yaml"
}

func configPath(cmd *cobra.Command) string {
	p, _ := cmd.Flags().GetString("config")
	return p
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("trader " + version)
		},
	}
}

// version is stamped by the release build via -ldflags.
var version = "dev"
