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

var patchCmd = &cobra.Command{
	Use:   "patch [rom] [patch]",
	Short: "Apply an IPS, UPS, or BPS patch to a ROM",
	Long: `Apply an IPS, UPS, or BPS patch to a ROM file.

The patch format is detected automatically from its magic bytes. When
--validate-checksum is set, source/target checksum mismatches (UPS, BPS)
abort the operation instead of proceeding best-effort.

Example:
  rompatch patch original.gb patch.ips
  rompatch patch original.sfc patch.bps --validate-checksum --fix-checksum`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		romPath, patchPath := args[0], args[1]

		validate, _ := cmd.Flags().GetBool("validate-checksum")
		addHeader, _ := cmd.Flags().GetBool("add-header")
		removeHeader, _ := cmd.Flags().GetBool("remove-header")
		fixChecksum, _ := cmd.Flags().GetBool("fix-checksum")
		outputSuffix, _ := cmd.Flags().GetString("output-suffix")

		romBytes, err := os.ReadFile(romPath)
		if err != nil {
			return common.FormatErrorString(common.ErrFailedToOpenROM, romPath)
		}
		patchBytes, err := os.ReadFile(patchPath)
		if err != nil {
			return common.FormatErrorString(common.ErrFailedToOpenPatch, patchPath)
		}

		rom := buffer.NewFromBytes(romBytes)
		rom.SetName(romPath)
		patchBuf := buffer.NewFromBytes(patchBytes)

		orchestrator := patcher.NewOrchestrator()
		result, err := orchestrator.Apply(rom, patchBuf, patcher.ApplyOptions{
			Validate:     validate,
			AddHeader:    addHeader,
			RemoveHeader: removeHeader,
			FixChecksum:  fixChecksum,
			Extension:    filepath.Ext(romPath),
			OutputSuffix: outputSuffix,
		})
		if err != nil {
			return common.FormatError(common.ErrFailedToApplyPatch, err)
		}

		if !validate {
			common.LogWarn(common.WarnValidateSkipped)
		}

		outPath := outputPath(romPath, patchPath, outputSuffix)
		if err := os.WriteFile(outPath, result.Bytes(), 0o644); err != nil {
			return common.FormatErrorString(common.ErrFailedToWriteOutput, outPath)
		}

		color.Green("%s", common.InfoPatchApplied)
		fmt.Printf("Output: %s (%s)\n", outPath, humanize.Bytes(uint64(len(result.Bytes()))))
		return nil
	},
}

// outputPath derives the patched ROM's file name. With no --output-suffix,
// it defaults to the patch file's base name carrying the ROM's extension;
// otherwise it inserts suffix before the ROM's own extension.
func outputPath(romPath, patchPath, suffix string) string {
	romExt := filepath.Ext(romPath)
	if suffix == "" {
		patchBase := strings.TrimSuffix(filepath.Base(patchPath), filepath.Ext(patchPath))
		return patchBase + romExt
	}
	base := strings.TrimSuffix(romPath, romExt)
	return base + suffix + romExt
}

func init() {
	rootCmd.AddCommand(patchCmd)

	patchCmd.Flags().Bool("validate-checksum", false, "abort on source/target checksum mismatch (UPS/BPS)")
	patchCmd.Flags().Bool("add-header", false, "prefix a synthetic copier header before patching")
	patchCmd.Flags().Bool("remove-header", false, "strip a copier header before patching, restoring it after")
	patchCmd.Flags().Bool("fix-checksum", false, "recompute the target's in-ROM checksum after patching")
	patchCmd.Flags().String("output-suffix", "", "suffix inserted before the output file's extension")
}
