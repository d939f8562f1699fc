// Package cmd provides the command-line interface for rompatch, a toolkit
// for applying and building IPS/UPS/BPS ROM patches.
package cmd

import (
	"os"

	"github.com/hansbonini/rompatch/pkg/common"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "rompatch",
	Short: "Apply and build IPS/UPS/BPS ROM patches",
	Long: `rompatch - a toolkit for applying and building binary ROM patches.

Supports the three classic ROM-hacking patch formats:
  - IPS  (offset/length write list, no checksums)
  - UPS  (XOR-based, bidirectional, CRC32-checked)
  - BPS  (copy/read action list with source and target checksums)

Examples:
  rompatch patch original.gb patch.ips
  rompatch patch original.sfc patch.bps --validate-checksum --fix-checksum
  rompatch create original.gb modified.gb --format ups -o patch.ups
  rompatch info patch.bps --format yaml

Use 'rompatch [command] --help' for more information about a command.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose/debug logging")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		common.SetVerboseMode(verbose)
	}
}
