// Package bps implements the BPS patch format: parse, build (linear diff),
// apply, and export. BPS actions describe copies from the source ROM,
// literal bytes, or — the trickiest of the four kinds — copies within the
// target buffer being constructed, which may legally overlap their own
// destination to produce a repeating pattern (TargetCopy).
package bps

import (
	"github.com/hansbonini/rompatch/pkg/buffer"
	"github.com/hansbonini/rompatch/pkg/common"
	"github.com/hansbonini/rompatch/pkg/hashkit"
	"github.com/hansbonini/rompatch/pkg/vlv"
)

const (
	magic           = "BPS1"
	trailerSize     = 12 // sourceChecksum + targetChecksum + patchChecksum
	linearMaxSource = 4 << 20 // 4 MiB — the "delta mode" threshold from the orchestrator
)

// ActionKind identifies one of the four BPS action types.
type ActionKind int

const (
	SourceRead ActionKind = iota
	TargetRead
	SourceCopy
	TargetCopy
)

// Action is one BPS instruction. Length applies to all kinds; Bytes is
// populated only for TargetRead; RelativeOffset is populated only for
// SourceCopy/TargetCopy.
type Action struct {
	Kind           ActionKind
	Length         int
	Bytes          []byte
	RelativeOffset int64
}

// Patch is a fully parsed BPS patch.
type Patch struct {
	SourceSize     uint64
	TargetSize     uint64
	Metadata       string
	Actions        []Action
	SourceChecksum uint32
	TargetChecksum uint32
	PatchChecksum  uint32
}

// Strategy selects a Build algorithm. Only StrategyLinear has an
// implementation; StrategyDelta is a documented extension point that
// currently falls back to linear (see spec's Open Questions).
type Strategy int

const (
	StrategyLinear Strategy = iota
	StrategyDelta
)

// PreferredStrategy mirrors the orchestrator's rule: delta mode is
// advertised when the original ROM is small enough (<= 4 MiB) to make the
// extra compression worthwhile. Build still only implements linear, so
// this only affects which Strategy a caller requests.
func PreferredStrategy(sourceSize int) Strategy {
	if sourceSize <= linearMaxSource {
		return StrategyDelta
	}
	return StrategyLinear
}

// Parse reads a Patch from a BPS buffer.
func Parse(buf *buffer.Buffer) (*Patch, error) {
	buf.SetEndian(buffer.LittleEndian)
	raw := buf.Bytes()

	if len(raw) < len(magic)+trailerSize {
		return nil, common.NewError(common.KindInvalidMagic, "bps: file too small")
	}

	buf.Seek(0)
	sig, err := buf.ReadString(len(magic))
	if err != nil || sig != magic {
		return nil, common.NewError(common.KindInvalidMagic, "not a BPS patch")
	}

	sourceSize, offset, err := vlv.Decode(raw, buf.Cursor())
	if err != nil {
		return nil, common.WrapError(common.KindInvalidRecord, "reading source size", err)
	}
	targetSize, offset, err := vlv.Decode(raw, offset)
	if err != nil {
		return nil, common.WrapError(common.KindInvalidRecord, "reading target size", err)
	}
	metadataLen, offset, err := vlv.Decode(raw, offset)
	if err != nil {
		return nil, common.WrapError(common.KindInvalidMetadata, "reading metadata length", err)
	}
	if offset+int(metadataLen) > len(raw) {
		return nil, common.NewError(common.KindInvalidMetadata, "bps: metadata length overruns file")
	}
	metadata := string(raw[offset : offset+int(metadataLen)])
	offset += int(metadataLen)

	p := &Patch{SourceSize: sourceSize, TargetSize: targetSize, Metadata: metadata}

	actionsEnd := len(raw) - trailerSize
	var produced uint64
	for offset < actionsEnd {
		header, next, err := vlv.Decode(raw, offset)
		if err != nil {
			return nil, common.WrapError(common.KindInvalidRecord, "reading action header", err)
		}
		offset = next

		kind := ActionKind(header & 0x3)
		length := int(header>>2) + 1

		a := Action{Kind: kind, Length: length}
		switch kind {
		case TargetRead:
			if offset+length > actionsEnd {
				return nil, common.NewError(common.KindInvalidRecord, "bps: TargetRead overruns action stream")
			}
			a.Bytes = make([]byte, length)
			copy(a.Bytes, raw[offset:offset+length])
			offset += length
		case SourceCopy, TargetCopy:
			relOffset, next, err := vlv.DecodeSigned(raw, offset)
			if err != nil {
				return nil, common.WrapError(common.KindInvalidRecord, "reading copy offset", err)
			}
			a.RelativeOffset = relOffset
			offset = next
		}
		p.Actions = append(p.Actions, a)
		produced += uint64(length)
	}

	if produced != targetSize {
		return nil, common.NewError(common.KindInvalidRecord, "bps: action lengths do not sum to target size")
	}

	buf.Seek(actionsEnd)
	p.SourceChecksum, err = buf.ReadU32()
	if err != nil {
		return nil, err
	}
	p.TargetChecksum, err = buf.ReadU32()
	if err != nil {
		return nil, err
	}
	p.PatchChecksum, err = buf.ReadU32()
	if err != nil {
		return nil, err
	}

	return p, nil
}

// Apply applies the patch to rom (the source ROM), returning a freshly
// owned target buffer.
func Apply(p *Patch, rom *buffer.Buffer, validate bool) (*buffer.Buffer, error) {
	if validate {
		if rom.CRC32(0, int(p.SourceSize)) != p.SourceChecksum {
			return nil, common.NewError(common.KindSourceChecksumMismatch, "bps: source CRC32 mismatch")
		}
	}

	source := rom.Bytes()
	target := make([]byte, p.TargetSize)

	var c, sourceRelOff, targetRelOff int64

	for _, a := range p.Actions {
		length := int64(a.Length)
		switch a.Kind {
		case SourceRead:
			if c+length > int64(len(source)) {
				return nil, common.NewError(common.KindPatchFailed, "bps: SourceRead exceeds source bounds")
			}
			copy(target[c:c+length], source[c:c+length])
			c += length
			// A literal write resumes the cursor at c; subsequent Copy
			// deltas are relative to wherever the write left off.
			sourceRelOff, targetRelOff = c, c
		case TargetRead:
			copy(target[c:c+length], a.Bytes)
			c += length
			sourceRelOff, targetRelOff = c, c
		case SourceCopy:
			sourceRelOff += a.RelativeOffset
			if sourceRelOff < 0 || sourceRelOff+length > int64(len(source)) {
				return nil, common.NewError(common.KindPatchFailed, "bps: SourceCopy exceeds source bounds")
			}
			copy(target[c:c+length], source[sourceRelOff:sourceRelOff+length])
			sourceRelOff += length
			c += length
		case TargetCopy:
			targetRelOff += a.RelativeOffset
			// Forward byte-by-byte copy, deliberately not a bulk memmove:
			// when the read range starts before c and reaches into the
			// bytes being written, this produces a repeating pattern of period
			// c-targetRelOff. copy() would give wrong results here for
			// overlapping forward ranges.
			for i := int64(0); i < length; i++ {
				target[c] = target[targetRelOff]
				c++
				targetRelOff++
			}
		}
	}

	if c != int64(p.TargetSize) {
		return nil, common.NewError(common.KindPatchFailed, "bps: actions did not produce the declared target size")
	}

	if validate {
		if hashkit.CRC32All(target) != p.TargetChecksum {
			return nil, common.NewError(common.KindTargetChecksumMismatch, "bps: target CRC32 mismatch")
		}
	}

	out := buffer.NewFromBytes(target)
	out.SetEndian(buffer.LittleEndian)
	return out, nil
}
