// Package ups implements the UPS patch format: parse, build (diff), apply,
// and export. UPS is XOR-based and bidirectional — applying the same
// patch to either the source or the target file yields the other — and
// every patch carries three CRC32 checksums (source, target, and the
// patch body itself).
package ups

import (
	"github.com/hansbonini/rompatch/pkg/buffer"
	"github.com/hansbonini/rompatch/pkg/common"
	"github.com/hansbonini/rompatch/pkg/hashkit"
	"github.com/hansbonini/rompatch/pkg/vlv"
)

const (
	magic       = "UPS1"
	trailerSize = 12 // crcInput + crcOutput + crcPatch, 4 bytes each
)

// Record is one UPS XOR run: relativeOffset is added to a running cursor
// (see Apply/Build), and XOR is a non-empty run of non-zero bytes.
type Record struct {
	RelativeOffset uint64
	XOR            []byte
}

// Patch is a fully parsed UPS patch.
type Patch struct {
	SizeInput      uint64
	SizeOutput     uint64
	Records        []Record
	ChecksumInput  uint32
	ChecksumOutput uint32
	ChecksumPatch  uint32
}

// Parse reads a Patch from a UPS buffer.
func Parse(buf *buffer.Buffer) (*Patch, error) {
	buf.SetEndian(buffer.LittleEndian)
	raw := buf.Bytes()

	if len(raw) < len(magic)+trailerSize {
		return nil, common.NewError(common.KindInvalidMagic, "ups: file too small")
	}

	buf.Seek(0)
	sig, err := buf.ReadString(len(magic))
	if err != nil || sig != magic {
		return nil, common.NewError(common.KindInvalidMagic, "not a UPS patch")
	}

	sizeInput, offset, err := vlv.Decode(raw, buf.Cursor())
	if err != nil {
		return nil, common.WrapError(common.KindInvalidRecord, "reading input size", err)
	}
	sizeOutput, offset, err := vlv.Decode(raw, offset)
	if err != nil {
		return nil, common.WrapError(common.KindInvalidRecord, "reading output size", err)
	}
	if sizeInput == 0 || sizeOutput == 0 {
		return nil, common.NewError(common.KindInvalidMetadata, "ups: sizes must be > 0")
	}

	p := &Patch{SizeInput: sizeInput, SizeOutput: sizeOutput}

	recordsEnd := len(raw) - trailerSize
	for offset < recordsEnd {
		relOffset, next, err := vlv.Decode(raw, offset)
		if err != nil {
			return nil, common.WrapError(common.KindInvalidRecord, "reading record offset", err)
		}
		offset = next

		start := offset
		for offset < len(raw) && raw[offset] != 0 {
			offset++
		}
		if offset >= len(raw) {
			return nil, common.NewError(common.KindInvalidRecord, "ups: unterminated xor run")
		}
		xorBytes := make([]byte, offset-start)
		copy(xorBytes, raw[start:offset])
		offset++ // skip the terminating 0x00

		p.Records = append(p.Records, Record{RelativeOffset: relOffset, XOR: xorBytes})
	}

	buf.Seek(recordsEnd)
	p.ChecksumInput, err = buf.ReadU32()
	if err != nil {
		return nil, err
	}
	p.ChecksumOutput, err = buf.ReadU32()
	if err != nil {
		return nil, err
	}
	p.ChecksumPatch, err = buf.ReadU32()
	if err != nil {
		return nil, err
	}

	return p, nil
}

// Apply applies the patch to rom. When validate is true, mismatched
// source/target CRC32s fail the operation. When false, the "Rom Patcher
// JS PR #40" glitch is reproduced: if the ROM is larger than the patch's
// declared input size, both input and output sizes are widened to match.
func Apply(p *Patch, rom *buffer.Buffer, validate bool) (*buffer.Buffer, error) {
	if validate {
		if rom.CRC32(0, -1) != p.ChecksumInput {
			return nil, common.NewError(common.KindSourceChecksumMismatch, "ups: source CRC32 mismatch")
		}
	}

	inputSize := p.SizeInput
	outputSize := p.SizeOutput
	if !validate && uint64(rom.FileSize()) > inputSize {
		grow := uint64(rom.FileSize()) - inputSize
		inputSize = uint64(rom.FileSize())
		outputSize += grow
	}

	target := buffer.NewOfSize(int(outputSize))
	target.SetEndian(buffer.LittleEndian)
	n := int(inputSize)
	if n > rom.FileSize() {
		n = rom.FileSize()
	}
	if n > 0 {
		if err := rom.CopyTo(target, 0, n, 0); err != nil {
			return nil, common.WrapError(common.KindPatchFailed, "copying source into target", err)
		}
	}

	source := rom.Bytes()
	sourceLen := len(source)
	targetBytes := target.Bytes()

	var cursor uint64
	for _, r := range p.Records {
		cursor += r.RelativeOffset
		for i, x := range r.XOR {
			idx := int(cursor) + i
			if idx >= len(targetBytes) {
				break
			}
			var s byte
			if idx < sourceLen {
				s = source[idx]
			}
			targetBytes[idx] = s ^ x
		}
		cursor += uint64(len(r.XOR)) + 1
	}

	if validate {
		if hashkit.CRC32All(targetBytes) != p.ChecksumOutput {
			return nil, common.NewError(common.KindTargetChecksumMismatch, "ups: target CRC32 mismatch")
		}
	}

	return target, nil
}

// Build diffs original against modified and returns a Patch. Both files
// are conceptually zero-padded past their own length while diffing so
// that a size mismatch between them still produces a correct patch.
func Build(original, modified []byte) *Patch {
	p := &Patch{
		SizeInput:  uint64(len(original)),
		SizeOutput: uint64(len(modified)),
	}

	longest := len(original)
	if len(modified) > longest {
		longest = len(modified)
	}

	at := func(data []byte, i int) byte {
		if i < len(data) {
			return data[i]
		}
		return 0
	}

	var previousSeek uint64
	pos := 0
	for pos < longest {
		if at(original, pos) == at(modified, pos) {
			pos++
			continue
		}

		start := pos
		var xor []byte
		for pos < longest && at(original, pos) != at(modified, pos) {
			xor = append(xor, at(original, pos)^at(modified, pos))
			pos++
		}

		relOffset := uint64(start) - previousSeek
		p.Records = append(p.Records, Record{RelativeOffset: relOffset, XOR: xor})
		previousSeek = uint64(start) + uint64(len(xor)) + 1
	}

	p.ChecksumInput = hashkit.CRC32All(original)
	p.ChecksumOutput = hashkit.CRC32All(modified)
	return p
}

// Export serializes the patch to its exact wire representation, computing
// ChecksumPatch as the CRC32 of every byte written before it.
func Export(p *Patch) (*buffer.Buffer, error) {
	var body []byte
	body = append(body, magic...)
	body = vlv.Encode(body, p.SizeInput)
	body = vlv.Encode(body, p.SizeOutput)
	for _, r := range p.Records {
		body = vlv.Encode(body, r.RelativeOffset)
		body = append(body, r.XOR...)
		body = append(body, 0x00)
	}

	out := buffer.NewOfSize(len(body) + trailerSize)
	out.SetEndian(buffer.LittleEndian)
	if err := out.WriteBytes(body); err != nil {
		return nil, err
	}
	if err := out.WriteU32(p.ChecksumInput); err != nil {
		return nil, err
	}
	if err := out.WriteU32(p.ChecksumOutput); err != nil {
		return nil, err
	}

	patchChecksum := hashkit.CRC32All(out.Bytes()[:out.Cursor()])
	p.ChecksumPatch = patchChecksum
	if err := out.WriteU32(patchChecksum); err != nil {
		return nil, err
	}

	return out, nil
}
