// Package patcher ties the three codecs together into the operations a ROM
// hacking tool actually exposes: detect a patch's format from its magic,
// apply it to a ROM (optionally adding/removing a synthetic header and
// fixing the target's in-ROM checksum), and build a new patch between two
// ROM images.
package patcher

import (
	"sync"

	"github.com/hansbonini/rompatch/pkg/bps"
	"github.com/hansbonini/rompatch/pkg/buffer"
	"github.com/hansbonini/rompatch/pkg/common"
	"github.com/hansbonini/rompatch/pkg/hashkit"
	"github.com/hansbonini/rompatch/pkg/ips"
	"github.com/hansbonini/rompatch/pkg/ups"
)

// Format identifies which of the three patch codecs a file belongs to.
type Format int

const (
	FormatUnknown Format = iota
	FormatIPS
	FormatUPS
	FormatBPS
)

func (f Format) String() string {
	switch f {
	case FormatIPS:
		return "ips"
	case FormatUPS:
		return "ups"
	case FormatBPS:
		return "bps"
	default:
		return "unknown"
	}
}

// DetectFormat inspects a patch buffer's magic bytes without consuming its
// cursor.
func DetectFormat(patch *buffer.Buffer) (Format, error) {
	data := patch.Bytes()
	switch {
	case len(data) >= 5 && string(data[:5]) == "PATCH":
		return FormatIPS, nil
	case len(data) >= 4 && string(data[:4]) == "UPS1":
		return FormatUPS, nil
	case len(data) >= 4 && string(data[:4]) == "BPS1":
		return FormatBPS, nil
	default:
		return FormatUnknown, common.NewError(common.KindUnknownPatchFormat, "unrecognized patch magic")
	}
}

// detectionCacheWindow is how many leading bytes of a ROM are hashed to key
// the signature cache; system-identifying bytes always live well within it.
const detectionCacheWindow = 4096

// Orchestrator holds the ROM Orchestrator's small piece of mutable state:
// a cache mapping a ROM's leading-bytes signature to its detected system,
// so repeated Apply calls against the same ROM (e.g. in a batch CLI run)
// skip re-scanning it.
type Orchestrator struct {
	mu    sync.Mutex
	cache map[uint64]System
}

// NewOrchestrator returns a ready-to-use Orchestrator.
func NewOrchestrator() *Orchestrator {
	return &Orchestrator{cache: make(map[uint64]System)}
}

// DetectCached returns rom's system, consulting and populating the
// signature cache keyed by xxhash.Sum64 of the ROM's first 4KiB (or the
// whole ROM, if shorter).
func (o *Orchestrator) DetectCached(rom *buffer.Buffer) System {
	window := rom.FileSize()
	if window > detectionCacheWindow {
		window = detectionCacheWindow
	}
	key := hashkit.XXHash64(rom.Bytes(), 0, window)

	o.mu.Lock()
	defer o.mu.Unlock()
	if sys, ok := o.cache[key]; ok {
		common.LogDebug(common.DebugCacheHit, key)
		return sys
	}
	sys := Detect(rom)
	o.cache[key] = sys
	common.LogDebug(common.DebugCacheMiss, key)
	return sys
}

// ApplyOptions controls the header and checksum policy layered around a
// codec's raw Apply.
type ApplyOptions struct {
	Validate     bool
	AddHeader    bool
	RemoveHeader bool
	FixChecksum  bool
	Extension    string
	OutputSuffix string
}

// Apply runs the full patch-application pipeline: optional header
// stripping/synthesis, codec dispatch by magic, optional checksum fixup,
// and an optional display-name suffix.
func (o *Orchestrator) Apply(rom *buffer.Buffer, patch *buffer.Buffer, opts ApplyOptions) (*buffer.Buffer, error) {
	defer common.StartTimer("orchestrator apply")()

	if opts.AddHeader && opts.RemoveHeader {
		common.LogWarn(common.WarnAddAndRemoveHeader)
		opts.AddHeader = false
	}

	format, err := DetectFormat(patch)
	if err != nil {
		return nil, err
	}
	common.LogDebug(common.DebugDispatchByMagic, patch.Bytes()[:4], format)

	entry, hasEntry := Lookup(opts.Extension)
	if !hasEntry && (opts.AddHeader || opts.RemoveHeader) {
		common.LogWarn(common.WarnNoHeaderMatch)
	}

	var strippedHeader *buffer.Buffer
	workingROM := rom

	switch {
	case opts.RemoveHeader && hasEntry && CanRemove(entry, rom.FileSize()):
		header, body, err := Remove(rom, entry)
		if err != nil {
			return nil, err
		}
		strippedHeader = header
		workingROM = body
		common.LogInfo(common.InfoHeaderRemoved)
	case opts.AddHeader && hasEntry && CanAdd(entry, rom.FileSize()):
		headered, err := Add(rom, entry, entry.Name == "fwNES")
		if err != nil {
			return nil, err
		}
		workingROM = headered
		common.LogInfo(common.InfoHeaderAdded)
	}

	var result *buffer.Buffer
	switch format {
	case FormatIPS:
		p, err := ips.Parse(patch)
		if err != nil {
			return nil, err
		}
		result, err = ips.Apply(p, workingROM, opts.Validate)
		if err != nil {
			return nil, err
		}
	case FormatUPS:
		p, err := ups.Parse(patch)
		if err != nil {
			return nil, err
		}
		result, err = ups.Apply(p, workingROM, opts.Validate)
		if err != nil {
			return nil, err
		}
	case FormatBPS:
		p, err := bps.Parse(patch)
		if err != nil {
			return nil, err
		}
		result, err = bps.Apply(p, workingROM, opts.Validate)
		if err != nil {
			return nil, err
		}
	default:
		return nil, common.NewError(common.KindUnknownPatchFormat, "unsupported patch format")
	}

	switch {
	case strippedHeader != nil:
		restored := buffer.NewOfSize(strippedHeader.FileSize() + result.FileSize())
		restored.SetEndian(result.Endian())
		if err := strippedHeader.CopyTo(restored, 0, strippedHeader.FileSize(), 0); err != nil {
			return nil, common.WrapError(common.KindPatchFailed, "restoring extracted header", err)
		}
		if err := result.CopyTo(restored, 0, result.FileSize(), strippedHeader.FileSize()); err != nil {
			return nil, common.WrapError(common.KindPatchFailed, "restoring extracted header", err)
		}
		result = restored
		common.LogInfo(common.InfoHeaderRestored)
	case opts.AddHeader && hasEntry && workingROM != rom:
		stripped, err := result.Slice(entry.HeaderSize, -1)
		if err != nil {
			return nil, common.WrapError(common.KindPatchFailed, "stripping synthetic header", err)
		}
		result = stripped
		common.LogInfo(common.InfoHeaderStripped)
	}

	if opts.FixChecksum {
		system := o.DetectCached(result)
		fixed, err := FixChecksum(result, system)
		if err != nil {
			return nil, err
		}
		if fixed {
			common.LogInfo(common.InfoChecksumFixed)
		} else if system == Unknown {
			common.LogWarn(common.WarnChecksumFixSkipped)
		}
	}

	if opts.OutputSuffix != "" {
		result.SetName(rom.Name() + opts.OutputSuffix)
		common.LogDebug(common.WarnOutputSuffixApplied)
	}

	return result, nil
}

// Create builds a patch between original and modified using the named
// codec ("ips", "ups", or "bps") and returns its exported wire bytes.
func (o *Orchestrator) Create(original, modified *buffer.Buffer, format string) (*buffer.Buffer, error) {
	defer common.StartTimer("orchestrator create " + format)()

	switch format {
	case "ips":
		p, err := ips.Build(original.Bytes(), modified.Bytes())
		if err != nil {
			return nil, err
		}
		return ips.Export(p)
	case "ups":
		p := ups.Build(original.Bytes(), modified.Bytes())
		return ups.Export(p)
	case "bps":
		strategy := bps.PreferredStrategy(original.FileSize())
		p := bps.Build(original.Bytes(), modified.Bytes(), strategy)
		return bps.Export(p)
	default:
		return nil, common.NewError(common.KindUnknownPatchFormat, "unsupported --format value: "+format)
	}
}
