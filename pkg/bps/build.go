package bps

import "github.com/hansbonini/rompatch/pkg/hashkit"

// Build diffs original against modified and returns a Patch using the
// requested strategy. Only StrategyLinear is implemented; StrategyDelta
// currently defers to it (delta mode is a documented extension point, not
// a correctness requirement — see spec's Open Questions).
func Build(original, modified []byte, strategy Strategy) *Patch {
	return buildLinear(original, modified)
}

// buildLinear walks target positions comparing source and target at the
// same offset: a run of equal bytes becomes a SourceRead, everything else
// accumulates into a pending TargetRead that is flushed whenever a
// SourceRead run starts (or at EOF).
func buildLinear(original, modified []byte) *Patch {
	p := &Patch{
		SourceSize: uint64(len(original)),
		TargetSize: uint64(len(modified)),
	}

	var pending []byte
	flush := func() {
		if len(pending) == 0 {
			return
		}
		p.Actions = append(p.Actions, Action{Kind: TargetRead, Length: len(pending), Bytes: pending})
		pending = nil
	}

	i := 0
	for i < len(modified) {
		matchLen := 0
		for i+matchLen < len(modified) && i+matchLen < len(original) && original[i+matchLen] == modified[i+matchLen] {
			matchLen++
		}

		if matchLen > 0 {
			flush()
			p.Actions = append(p.Actions, Action{Kind: SourceRead, Length: matchLen})
			i += matchLen
			continue
		}

		pending = append(pending, modified[i])
		i++
	}
	flush()

	p.SourceChecksum = hashkit.CRC32All(original)
	p.TargetChecksum = hashkit.CRC32All(modified)
	return p
}
