package patcher

import (
	"testing"

	"github.com/hansbonini/rompatch/pkg/buffer"
)

func TestGameBoyChecksumFix(t *testing.T) {
	data := gameBoyROM()
	// Header bytes 0x134..0x14C are all zero, so the correct checksum is
	// c = 0 - 0 - 1, twenty-five times = -25 mod 256.
	want := uint8(256 - 25)
	data[gameBoyChecksumOffset] = 0x00 // deliberately wrong

	rom := buffer.NewFromBytes(data)
	fixed, err := FixChecksum(rom, GameBoy)
	if err != nil {
		t.Fatalf("FixChecksum: %v", err)
	}
	if !fixed {
		t.Fatalf("expected checksum fix to be applied")
	}
	if got := rom.Bytes()[gameBoyChecksumOffset]; got != want {
		t.Errorf("checksum byte = %#x, want %#x", got, want)
	}

	fixed, err = FixChecksum(rom, GameBoy)
	if err != nil {
		t.Fatalf("FixChecksum (second pass): %v", err)
	}
	if fixed {
		t.Errorf("second FixChecksum pass should be a no-op once correct")
	}
}

func TestSegaGenesisChecksumFix(t *testing.T) {
	data := make([]byte, segaChecksumStart+4)
	data[segaChecksumStart] = 0x00
	data[segaChecksumStart+1] = 0x10
	data[segaChecksumStart+2] = 0x00
	data[segaChecksumStart+3] = 0x20
	// want = 0x0010 + 0x0020 = 0x0030
	rom := buffer.NewFromBytes(data)
	fixed, err := FixChecksum(rom, SegaGenesis)
	if err != nil {
		t.Fatalf("FixChecksum: %v", err)
	}
	if !fixed {
		t.Fatalf("expected checksum fix to be applied")
	}
	rom.SetEndian(buffer.BigEndian)
	rom.Seek(segaChecksumOffset)
	got, _ := rom.ReadU16()
	if got != 0x0030 {
		t.Errorf("checksum = %#x, want 0x0030", got)
	}
}

func TestFixChecksumUnknownSystemIsNoop(t *testing.T) {
	rom := buffer.NewFromBytes(make([]byte, 0x300))
	fixed, err := FixChecksum(rom, Unknown)
	if err != nil {
		t.Fatalf("FixChecksum: %v", err)
	}
	if fixed {
		t.Errorf("expected no-op for a system with no known in-ROM checksum")
	}
}
