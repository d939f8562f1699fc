package patcher

import (
	"github.com/hansbonini/rompatch/pkg/buffer"
	"github.com/hansbonini/rompatch/pkg/common"
)

const (
	gameBoyChecksumLoopStart = 0x134
	gameBoyChecksumLoopLen   = 25
	gameBoyChecksumOffset    = 0x14D

	segaChecksumOffset = 0x18E
	segaChecksumStart  = 0x200
)

// FixChecksum recomputes and, if necessary, rewrites the in-ROM checksum
// for GameBoy and SegaGenesis ROMs. It reports whether a fix was applied;
// systems without a known in-ROM checksum are left untouched.
func FixChecksum(rom *buffer.Buffer, system System) (bool, error) {
	switch system {
	case GameBoy:
		return fixGameBoy(rom)
	case SegaGenesis:
		return fixSegaGenesis(rom)
	default:
		return false, nil
	}
}

func fixGameBoy(rom *buffer.Buffer) (bool, error) {
	if rom.FileSize() < gameBoyChecksumOffset+1 {
		return false, common.NewError(common.KindOutOfBounds, "gameboy: ROM too small for header checksum")
	}

	rom.Seek(gameBoyChecksumLoopStart)
	var c uint8
	for i := 0; i < gameBoyChecksumLoopLen; i++ {
		b, err := rom.ReadU8()
		if err != nil {
			return false, common.WrapError(common.KindPatchFailed, "reading gameboy header bytes", err)
		}
		c = c - b - 1
	}

	rom.Seek(gameBoyChecksumOffset)
	stored, err := rom.ReadU8()
	if err != nil {
		return false, common.WrapError(common.KindPatchFailed, "reading gameboy checksum byte", err)
	}
	if stored == c {
		return false, nil
	}

	rom.Seek(gameBoyChecksumOffset)
	if err := rom.WriteU8(c); err != nil {
		return false, common.WrapError(common.KindPatchFailed, "writing gameboy checksum byte", err)
	}
	return true, nil
}

func fixSegaGenesis(rom *buffer.Buffer) (bool, error) {
	if rom.FileSize() < segaChecksumOffset+2 {
		return false, common.NewError(common.KindOutOfBounds, "segagenesis: ROM too small for header checksum")
	}

	rom.SetEndian(buffer.BigEndian)
	rom.Seek(segaChecksumOffset)
	stored, err := rom.ReadU16()
	if err != nil {
		return false, common.WrapError(common.KindPatchFailed, "reading segagenesis checksum", err)
	}

	var sum uint16
	rom.Seek(segaChecksumStart)
	for !rom.IsEOF() {
		remaining := rom.FileSize() - rom.Cursor()
		if remaining < 2 {
			break
		}
		v, err := rom.ReadU16()
		if err != nil {
			return false, common.WrapError(common.KindPatchFailed, "summing segagenesis ROM", err)
		}
		sum += v
	}

	if stored == sum {
		return false, nil
	}

	rom.Seek(segaChecksumOffset)
	if err := rom.WriteU16(sum); err != nil {
		return false, common.WrapError(common.KindPatchFailed, "writing segagenesis checksum", err)
	}
	return true, nil
}
