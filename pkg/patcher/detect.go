package patcher

import "github.com/hansbonini/rompatch/pkg/buffer"

// System identifies the console family a ROM belongs to, as far as the
// orchestrator can guess from a handful of well-known signature bytes.
type System int

const (
	Unknown System = iota
	GameBoy
	SegaGenesis
	Nintendo64
	FamicomDiskSystem
)

func (s System) String() string {
	switch s {
	case GameBoy:
		return "GameBoy"
	case SegaGenesis:
		return "SegaGenesis"
	case Nintendo64:
		return "Nintendo64"
	case FamicomDiskSystem:
		return "FamicomDiskSystem"
	default:
		return "Unknown"
	}
}

// gameBoyLogo is the 48-byte Nintendo logo baked into every licensed Game
// Boy cartridge header at 0x104. Detection only compares the first 32
// bytes of it, matching a quirk of the reference implementation this
// module was distilled from.
var gameBoyLogo = [48]byte{
	0xCE, 0xED, 0x66, 0x66, 0xCC, 0x0D, 0x00, 0x0B,
	0x03, 0x73, 0x00, 0x83, 0x00, 0x0C, 0x00, 0x0D,
	0x00, 0x08, 0x11, 0x1F, 0x88, 0x89, 0x00, 0x0E,
	0xDC, 0xCC, 0x6E, 0xE6, 0xDD, 0xDD, 0xD9, 0x99,
	0xBB, 0xBB, 0x67, 0x63, 0x6E, 0x0E, 0xEC, 0xCC,
	0xDD, 0xDC, 0x99, 0x9F, 0xBB, 0xB9, 0x33, 0x3E,
}

const gameBoyLogoCompareLen = 32

var segaMarkers = []string{"SEGA", "GENESIS", "MEGA DR"}

var nintendo64Signatures = [][4]byte{
	{0x80, 0x37, 0x12, 0x40},
	{0x37, 0x80, 0x40, 0x12},
	{0x40, 0x12, 0x37, 0x80},
}

// Detect guesses the target system of rom from a small set of well-known
// signature checks, in the order the orchestrator's reference algorithm
// applies them: files of 0x200 bytes or fewer are Unknown up front; then
// Game Boy logo, Sega markers, Nintendo 64 byte order, and a file size of
// exactly 65500 bytes for FDS, else Unknown.
const (
	minDetectableSize = 0x200
	fdsFileSize       = 65500
)

func Detect(rom *buffer.Buffer) System {
	data := rom.Bytes()
	size := len(data)

	if size <= minDetectableSize {
		return Unknown
	}

	if size >= 0x150 && bytesEqual(data[0x104:0x104+gameBoyLogoCompareLen], gameBoyLogo[:gameBoyLogoCompareLen]) {
		return GameBoy
	}

	if size > 0x100 {
		region := string(data[0x100:0x10C])
		for _, marker := range segaMarkers {
			if containsASCII(region, marker) {
				return SegaGenesis
			}
		}
	}

	if size >= 0x40 {
		var head [4]byte
		copy(head[:], data[:4])
		for _, sig := range nintendo64Signatures {
			if head == sig {
				return Nintendo64
			}
		}
	}

	if size == fdsFileSize {
		return FamicomDiskSystem
	}

	return Unknown
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func containsASCII(haystack, needle string) bool {
	if len(needle) > len(haystack) {
		return false
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
