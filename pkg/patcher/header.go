package patcher

import (
	"strings"

	"github.com/hansbonini/rompatch/pkg/buffer"
	"github.com/hansbonini/rompatch/pkg/common"
)

// HeaderEntry describes one copier/emulator header convention: the file
// extensions it applies to, the header's byte size, and the ROM-size
// multiple a headerless dump must be aligned to.
type HeaderEntry struct {
	Extensions      []string
	HeaderSize      int
	RomSizeMultiple int
	Name            string
}

// Table is the built-in header catalog consulted by the add/remove policy.
var Table = []HeaderEntry{
	{Extensions: []string{"nes"}, HeaderSize: 16, RomSizeMultiple: 1024, Name: "iNES"},
	{Extensions: []string{"fds"}, HeaderSize: 16, RomSizeMultiple: 65500, Name: "fwNES"},
	{Extensions: []string{"lnx"}, HeaderSize: 64, RomSizeMultiple: 1024, Name: "LNX"},
	{Extensions: []string{"sfc", "smc", "swc", "fig"}, HeaderSize: 512, RomSizeMultiple: 262144, Name: "SNES copier"},
}

const (
	maxRemoveHeaderSize = 0x600200
	maxAddHeaderSize    = 0x600000
)

// Lookup matches a file extension (case-insensitive, no leading dot)
// against the header table.
func Lookup(extension string) (HeaderEntry, bool) {
	ext := strings.ToLower(strings.TrimPrefix(extension, "."))
	for _, entry := range Table {
		for _, e := range entry.Extensions {
			if e == ext {
				return entry, true
			}
		}
	}
	return HeaderEntry{}, false
}

// CanRemove reports whether a synthetic header may be stripped from a ROM
// of the given size for this table entry.
func CanRemove(entry HeaderEntry, fileSize int) bool {
	return fileSize <= maxRemoveHeaderSize &&
		fileSize%1024 != 0 &&
		(fileSize-entry.HeaderSize)%entry.RomSizeMultiple == 0
}

// CanAdd reports whether a synthetic header may be prefixed to a ROM of
// the given size for this table entry.
func CanAdd(entry HeaderEntry, fileSize int) bool {
	return fileSize <= maxAddHeaderSize && fileSize%entry.RomSizeMultiple == 0
}

// Remove splits rom into (header, body). The caller is expected to have
// already checked CanRemove.
func Remove(rom *buffer.Buffer, entry HeaderEntry) (header, body *buffer.Buffer, err error) {
	header, err = rom.Slice(0, entry.HeaderSize)
	if err != nil {
		return nil, nil, common.WrapError(common.KindPatchFailed, "slicing header", err)
	}
	body, err = rom.Slice(entry.HeaderSize, -1)
	if err != nil {
		return nil, nil, common.WrapError(common.KindPatchFailed, "slicing headerless body", err)
	}
	return header, body, nil
}

// Add prefixes rom with a synthetic header for entry. When system is FDS,
// the header follows the fwNES convention: magic "FDS\x1A" followed by a
// byte holding originalSize/65500; every other system gets a zero-filled
// prefix, since the copier headers this table otherwise describes carry
// no recoverable content.
func Add(rom *buffer.Buffer, entry HeaderEntry, isFDS bool) (*buffer.Buffer, error) {
	originalSize := rom.FileSize()
	out := buffer.NewOfSize(entry.HeaderSize + originalSize)
	out.SetEndian(buffer.BigEndian)

	if isFDS {
		prefix := []byte{0x46, 0x44, 0x53, 0x1A, byte(originalSize / 65500)}
		if err := out.WriteBytes(prefix); err != nil {
			return nil, common.WrapError(common.KindPatchFailed, "writing fwNES header", err)
		}
		out.Seek(entry.HeaderSize)
	} else {
		out.Seek(entry.HeaderSize)
	}

	if err := rom.CopyTo(out, 0, originalSize, entry.HeaderSize); err != nil {
		return nil, common.WrapError(common.KindPatchFailed, "copying ROM after synthetic header", err)
	}
	return out, nil
}
