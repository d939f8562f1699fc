package bps

import (
	"github.com/hansbonini/rompatch/pkg/buffer"
	"github.com/hansbonini/rompatch/pkg/hashkit"
	"github.com/hansbonini/rompatch/pkg/vlv"
)

// Export serializes the patch to its exact wire representation, computing
// PatchChecksum as the CRC32 of every byte written before it.
func Export(p *Patch) (*buffer.Buffer, error) {
	var body []byte
	body = append(body, magic...)
	body = vlv.Encode(body, p.SourceSize)
	body = vlv.Encode(body, p.TargetSize)
	body = vlv.Encode(body, uint64(len(p.Metadata)))
	body = append(body, p.Metadata...)

	for _, a := range p.Actions {
		header := uint64(a.Length-1)<<2 | uint64(a.Kind)
		body = vlv.Encode(body, header)
		switch a.Kind {
		case TargetRead:
			body = append(body, a.Bytes...)
		case SourceCopy, TargetCopy:
			body = vlv.EncodeSigned(body, a.RelativeOffset)
		}
	}

	out := buffer.NewOfSize(len(body) + trailerSize)
	out.SetEndian(buffer.LittleEndian)
	if err := out.WriteBytes(body); err != nil {
		return nil, err
	}
	if err := out.WriteU32(p.SourceChecksum); err != nil {
		return nil, err
	}
	if err := out.WriteU32(p.TargetChecksum); err != nil {
		return nil, err
	}

	patchChecksum := hashkit.CRC32All(out.Bytes()[:out.Cursor()])
	p.PatchChecksum = patchChecksum
	if err := out.WriteU32(patchChecksum); err != nil {
		return nil, err
	}

	return out, nil
}
