package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/hansbonini/rompatch/pkg/buffer"
	"github.com/hansbonini/rompatch/pkg/common"
	"github.com/hansbonini/rompatch/pkg/patcher"
	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create [original] [modified]",
	Short: "Build a patch between two ROM files",
	Long: `Build an IPS, UPS, or BPS patch that turns original into modified.

The BPS builder always uses its linear strategy; --format selects which
codec produces the patch.

Example:
  rompatch create original.gb modified.gb --format ups -o patch.ups`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		originalPath, modifiedPath := args[0], args[1]

		format, _ := cmd.Flags().GetString("format")
		outPath, _ := cmd.Flags().GetString("output")
		if outPath == "" {
			base := strings.TrimSuffix(modifiedPath, filepath.Ext(modifiedPath))
			outPath = base + "." + format
		}

		originalBytes, err := os.ReadFile(originalPath)
		if err != nil {
			return common.FormatErrorString(common.ErrFailedToOpenROM, originalPath)
		}
		modifiedBytes, err := os.ReadFile(modifiedPath)
		if err != nil {
			return common.FormatErrorString(common.ErrFailedToOpenROM, modifiedPath)
		}

		orchestrator := patcher.NewOrchestrator()
		patchBuf, err := orchestrator.Create(
			buffer.NewFromBytes(originalBytes),
			buffer.NewFromBytes(modifiedBytes),
			format,
		)
		if err != nil {
			return common.FormatError(common.ErrFailedToBuildPatch, err)
		}

		if err := os.WriteFile(outPath, patchBuf.Bytes(), 0o644); err != nil {
			return common.FormatErrorString(common.ErrFailedToWriteOutput, outPath)
		}

		color.Green("%s", common.InfoPatchCreated)
		fmt.Printf("Output: %s (%s)\n", outPath, humanize.Bytes(uint64(len(patchBuf.Bytes()))))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createCmd)

	createCmd.Flags().String("format", "ips", "patch format to build: ips, ups, or bps")
	createCmd.Flags().StringP("output", "o", "", "output patch path (default: <modified>.<format>)")
}
