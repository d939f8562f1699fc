// Package ips implements the IPS patch format: parse, build (diff), apply,
// and export. IPS is the simplest of the three formats — an ordered list
// of offset-tagged writes, capped at a 24-bit offset (16 MiB) — and it
// carries no checksums of its own.
package ips

import (
	"github.com/hansbonini/rompatch/pkg/buffer"
	"github.com/hansbonini/rompatch/pkg/common"
)

const (
	magic       = "PATCH"
	eofMarker   = "EOF"
	eofSentinel = 0x454F46 // 3-byte "EOF" read as a big-endian u24
	maxOffset   = 1 << 24  // 16 MiB
)

// RecordKind distinguishes a literal-data record from a run-length record.
type RecordKind int

const (
	Simple RecordKind = iota
	RLE
)

// Record is one IPS write instruction. For Simple records Data holds the
// literal bytes; for RLE records Length and Byte describe the run.
type Record struct {
	Kind   RecordKind
	Offset uint32
	Data   []byte
	Length uint16
	Byte   byte
}

// Patch is a fully parsed IPS patch: an ordered record list plus an
// optional truncation length.
type Patch struct {
	Records      []Record
	HasTruncate  bool
	TruncateSize uint32
}

// Parse reads a Patch from an IPS buffer.
func Parse(buf *buffer.Buffer) (*Patch, error) {
	buf.SetEndian(buffer.BigEndian)
	buf.Seek(0)

	sig, err := buf.ReadString(5)
	if err != nil || sig != magic {
		return nil, common.NewError(common.KindInvalidMagic, "not an IPS patch")
	}

	p := &Patch{}
	for {
		offset, err := buf.ReadU24()
		if err != nil {
			return nil, common.WrapError(common.KindInvalidRecord, "reading record offset", err)
		}

		if offset == eofSentinel {
			remaining := buf.FileSize() - buf.Cursor()
			if remaining == 3 {
				t, err := buf.ReadU24()
				if err != nil {
					return nil, common.WrapError(common.KindInvalidRecord, "reading truncation length", err)
				}
				p.HasTruncate = true
				p.TruncateSize = t
			}
			return p, nil
		}

		length, err := buf.ReadU16()
		if err != nil {
			return nil, common.WrapError(common.KindInvalidRecord, "reading record length", err)
		}

		if length == 0 {
			rleLen, err := buf.ReadU16()
			if err != nil {
				return nil, common.WrapError(common.KindInvalidRecord, "reading RLE length", err)
			}
			b, err := buf.ReadU8()
			if err != nil {
				return nil, common.WrapError(common.KindInvalidRecord, "reading RLE byte", err)
			}
			p.Records = append(p.Records, Record{Kind: RLE, Offset: offset, Length: rleLen, Byte: b})
			continue
		}

		data, err := buf.ReadBytes(int(length))
		if err != nil {
			return nil, common.WrapError(common.KindInvalidRecord, "reading record data", err)
		}
		p.Records = append(p.Records, Record{Kind: Simple, Offset: offset, Data: data})
	}
}

// Apply applies the patch to rom and returns a freshly-owned target
// buffer. IPS carries no checksums, so validate is accepted for interface
// symmetry with the other codecs but is always a no-op.
func Apply(p *Patch, rom *buffer.Buffer, validate bool) (*buffer.Buffer, error) {
	targetSize := rom.FileSize()
	if p.HasTruncate {
		targetSize = int(p.TruncateSize)
	} else {
		for _, r := range p.Records {
			end := int(r.Offset) + recordLength(r)
			if end > targetSize {
				targetSize = end
			}
		}
	}

	target := buffer.NewOfSize(targetSize)
	target.SetEndian(buffer.BigEndian)
	n := rom.FileSize()
	if n > targetSize {
		n = targetSize
	}
	if err := rom.CopyTo(target, 0, n, 0); err != nil {
		return nil, common.WrapError(common.KindPatchFailed, "copying source into target", err)
	}

	for _, r := range p.Records {
		switch r.Kind {
		case Simple:
			target.Seek(int(r.Offset))
			if err := target.WriteBytes(r.Data); err != nil {
				return nil, common.WrapError(common.KindPatchFailed, "writing simple record", err)
			}
		case RLE:
			target.Seek(int(r.Offset))
			run := make([]byte, r.Length)
			for i := range run {
				run[i] = r.Byte
			}
			if err := target.WriteBytes(run); err != nil {
				return nil, common.WrapError(common.KindPatchFailed, "writing RLE record", err)
			}
		}
	}

	return target, nil
}

// ValidateSource is always true for IPS: the format defines no source
// checksum to validate against.
func ValidateSource(*Patch, *buffer.Buffer) bool { return true }

func recordLength(r Record) int {
	if r.Kind == RLE {
		return int(r.Length)
	}
	return len(r.Data)
}

// Export serializes the patch to its exact wire representation.
func Export(p *Patch) (*buffer.Buffer, error) {
	size := 5
	for _, r := range p.Records {
		size += 3
		if r.Kind == RLE {
			size += 2 + 2 + 1
		} else {
			size += 2 + len(r.Data)
		}
	}
	size += 3
	if p.HasTruncate {
		size += 3
	}

	out := buffer.NewOfSize(size)
	out.SetEndian(buffer.BigEndian)
	if err := out.WriteString(magic, -1); err != nil {
		return nil, err
	}
	for _, r := range p.Records {
		if err := out.WriteU24(r.Offset); err != nil {
			return nil, err
		}
		if r.Kind == RLE {
			if err := out.WriteU16(0); err != nil {
				return nil, err
			}
			if err := out.WriteU16(r.Length); err != nil {
				return nil, err
			}
			if err := out.WriteU8(r.Byte); err != nil {
				return nil, err
			}
		} else {
			length, err := common.SafeIntToUint16(len(r.Data))
			if err != nil {
				return nil, common.WrapError(common.KindPatchFailed, "simple record length", err)
			}
			if err := out.WriteU16(length); err != nil {
				return nil, err
			}
			if err := out.WriteBytes(r.Data); err != nil {
				return nil, err
			}
		}
	}
	if err := out.WriteString(eofMarker, -1); err != nil {
		return nil, err
	}
	if p.HasTruncate {
		if err := out.WriteU24(p.TruncateSize); err != nil {
			return nil, err
		}
	}
	return out, nil
}
