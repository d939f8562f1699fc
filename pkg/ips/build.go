package ips

import "github.com/hansbonini/rompatch/pkg/common"

// mergeDistance is the JS-original's "close enough to merge" heuristic: a
// gap of fewer than this many identical bytes between the end of the
// previous simple record and the start of a new diff is folded into the
// previous record instead of emitting a new one. The heuristic ignores the
// per-record header cost of NOT merging; that is a known quirk (see
// spec's Open Question) and is reproduced verbatim, not "fixed".
const mergeDistance = 6

// Build diffs original against modified and returns the smallest IPS patch
// (subject to the source algorithm's merge heuristic) that turns original
// into modified when applied.
func Build(original, modified []byte) (*Patch, error) {
	p := &Patch{}
	maxCovered := 0
	pos := 0

	origAt := func(i int) byte {
		if i < len(original) {
			return original[i]
		}
		return 0
	}

	for pos < len(modified) {
		if origAt(pos) == modified[pos] {
			pos++
			continue
		}

		start := pos
		var d []byte
		for pos < len(modified) && len(d) < 0xFFFF && origAt(pos) != modified[pos] {
			d = append(d, modified[pos])
			pos++
		}

		rleEligible := true
		for _, b := range d {
			if b != d[0] {
				rleEligible = false
				break
			}
		}

		merged := false
		if n := len(p.Records); n > 0 {
			prev := &p.Records[n-1]
			if prev.Kind == Simple {
				prevEnd := int(prev.Offset) + len(prev.Data)
				distance := start - prevEnd
				fitsWidth := len(prev.Data)+distance+len(d) <= 0xFFFF
				rleException := rleEligible && len(d) > mergeDistance
				if distance >= 0 && distance < mergeDistance && fitsWidth && !rleException {
					between := modified[prevEnd:start]
					prev.Data = append(prev.Data, between...)
					prev.Data = append(prev.Data, d...)
					maxCovered = max(maxCovered, int(prev.Offset)+len(prev.Data))
					merged = true
				}
			}
		}

		if merged {
			continue
		}

		if start >= maxOffset {
			return nil, common.NewError(common.KindPatchFailed, "files too big for IPS")
		}
		offset, err := common.SafeIntToUint32(start)
		if err != nil {
			return nil, common.WrapError(common.KindPatchFailed, "record offset", err)
		}

		if len(d) > 2 && rleEligible {
			length, err := common.SafeIntToUint16(len(d))
			if err != nil {
				return nil, common.WrapError(common.KindPatchFailed, "RLE record length", err)
			}
			p.Records = append(p.Records, Record{Kind: RLE, Offset: offset, Length: length, Byte: d[0]})
		} else {
			p.Records = append(p.Records, Record{Kind: Simple, Offset: offset, Data: d})
		}
		maxCovered = max(maxCovered, start+len(d))
	}

	if len(modified) > len(original) && maxCovered < len(modified) {
		offset, err := common.SafeIntToUint32(len(modified) - 1)
		if err != nil {
			return nil, common.WrapError(common.KindPatchFailed, "tail record offset", err)
		}
		p.Records = append(p.Records, Record{Kind: Simple, Offset: offset, Data: []byte{0x00}})
	}

	if len(modified) < len(original) {
		p.HasTruncate = true
		p.TruncateSize = uint32(len(modified))
	}

	return p, nil
}
