package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/hansbonini/rompatch/pkg/bps"
	"github.com/hansbonini/rompatch/pkg/buffer"
	"github.com/hansbonini/rompatch/pkg/common"
	"github.com/hansbonini/rompatch/pkg/ips"
	"github.com/hansbonini/rompatch/pkg/patcher"
	"github.com/hansbonini/rompatch/pkg/ups"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// patchInfo is the metadata surface printed by `rompatch info`. It has no
// bearing on any codec's wire format; fields are omitted per-format
// depending on what that codec actually tracks.
type patchInfo struct {
	Format          string `json:"format" yaml:"format"`
	SourceSize      uint64 `json:"sourceSize,omitempty" yaml:"sourceSize,omitempty"`
	TargetSize      uint64 `json:"targetSize,omitempty" yaml:"targetSize,omitempty"`
	RecordCount     int    `json:"recordCount" yaml:"recordCount"`
	HasTruncate     bool   `json:"hasTruncate,omitempty" yaml:"hasTruncate,omitempty"`
	SourceChecksum  string `json:"sourceChecksum,omitempty" yaml:"sourceChecksum,omitempty"`
	TargetChecksum  string `json:"targetChecksum,omitempty" yaml:"targetChecksum,omitempty"`
	PatchChecksum   string `json:"patchChecksum,omitempty" yaml:"patchChecksum,omitempty"`
	Metadata        string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	GuessedROMKinds []string `json:"guessedRomKinds,omitempty" yaml:"guessedRomKinds,omitempty"`
}

var infoCmd = &cobra.Command{
	Use:   "info [patch]",
	Short: "Print metadata about a patch file",
	Long: `Parse a patch file and print its metadata: declared sizes, record or
action counts, embedded checksums, and any built-in header-table ROM sizes
its declared source size happens to be a multiple of.

Example:
  rompatch info patch.bps --format yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patchPath := args[0]
		outFormat, _ := cmd.Flags().GetString("format")

		raw, err := os.ReadFile(patchPath)
		if err != nil {
			return common.FormatErrorString(common.ErrFailedToOpenPatch, patchPath)
		}
		patchBuf := buffer.NewFromBytes(raw)

		format, err := patcher.DetectFormat(patchBuf)
		if err != nil {
			return common.FormatError(common.ErrUnknownPatchFormat, err)
		}

		info, err := describe(format, patchBuf)
		if err != nil {
			return common.FormatError(common.ErrFailedToParsePatch, err)
		}

		switch outFormat {
		case "yaml":
			out, err := yaml.Marshal(info)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
		case "json", "":
			out, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
		default:
			return common.FormatErrorString(common.ErrUnsupportedFormatFlag, outFormat)
		}
		return nil
	},
}

func describe(format patcher.Format, patchBuf *buffer.Buffer) (*patchInfo, error) {
	switch format {
	case patcher.FormatIPS:
		p, err := ips.Parse(patchBuf)
		if err != nil {
			return nil, err
		}
		return &patchInfo{
			Format:      format.String(),
			RecordCount: len(p.Records),
			HasTruncate: p.HasTruncate,
		}, nil
	case patcher.FormatUPS:
		p, err := ups.Parse(patchBuf)
		if err != nil {
			return nil, err
		}
		return &patchInfo{
			Format:         format.String(),
			SourceSize:     p.SizeInput,
			TargetSize:     p.SizeOutput,
			RecordCount:    len(p.Records),
			SourceChecksum: fmt.Sprintf("%08x", p.ChecksumInput),
			TargetChecksum: fmt.Sprintf("%08x", p.ChecksumOutput),
			PatchChecksum:  fmt.Sprintf("%08x", p.ChecksumPatch),
			GuessedROMKinds: guessROMKinds(p.SizeInput),
		}, nil
	case patcher.FormatBPS:
		p, err := bps.Parse(patchBuf)
		if err != nil {
			return nil, err
		}
		return &patchInfo{
			Format:         format.String(),
			SourceSize:     p.SourceSize,
			TargetSize:     p.TargetSize,
			RecordCount:    len(p.Actions),
			SourceChecksum: fmt.Sprintf("%08x", p.SourceChecksum),
			TargetChecksum: fmt.Sprintf("%08x", p.TargetChecksum),
			PatchChecksum:  fmt.Sprintf("%08x", p.PatchChecksum),
			Metadata:       p.Metadata,
			GuessedROMKinds: guessROMKinds(p.SourceSize),
		}, nil
	default:
		return nil, common.NewError(common.KindUnknownPatchFormat, "unsupported patch format")
	}
}

// guessROMKinds names every header-table entry whose romSizeMultiple
// evenly divides size, a loose signal of what kind of headerless ROM the
// patch was built against.
func guessROMKinds(size uint64) []string {
	if size == 0 {
		return nil
	}
	var kinds []string
	for _, entry := range patcher.Table {
		if size%uint64(entry.RomSizeMultiple) == 0 {
			kinds = append(kinds, entry.Name)
		}
	}
	return kinds
}

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().String("format", "json", "output format: json or yaml")
}
