package bps

import (
	"bytes"
	"testing"

	"github.com/hansbonini/rompatch/pkg/buffer"
	"github.com/hansbonini/rompatch/pkg/hashkit"
	"github.com/hansbonini/rompatch/pkg/vlv"
)

func encodeAction(dst []byte, kind ActionKind, length int) []byte {
	header := uint64(length-1)<<2 | uint64(kind)
	return vlv.Encode(dst, header)
}

// parseBodyOnly appends correct trailer checksums to a hand-built body and
// returns the resulting Patch (used to build test fixtures by hand).
func parseBodyOnly(t *testing.T, body []byte, source, target []byte) (*Patch, error) {
	t.Helper()
	full := buffer.NewOfSize(len(body) + trailerSize)
	full.SetEndian(buffer.LittleEndian)
	if err := full.WriteBytes(body); err != nil {
		return nil, err
	}
	if err := full.WriteU32(hashkit.CRC32All(source)); err != nil {
		return nil, err
	}
	if err := full.WriteU32(hashkit.CRC32All(target)); err != nil {
		return nil, err
	}
	patchChecksum := hashkit.CRC32All(full.Bytes()[:full.Cursor()])
	if err := full.WriteU32(patchChecksum); err != nil {
		return nil, err
	}
	return Parse(full)
}

func TestTargetCopyOverlapPatternFillCase1(t *testing.T) {
	source := []byte{}
	target := []byte{0x41, 0x41, 0x41, 0x41, 0x41, 0x41}

	var actions []byte
	actions = encodeAction(actions, TargetRead, 1)
	actions = append(actions, 0x41)
	actions = encodeAction(actions, TargetCopy, 5)
	actions = vlv.EncodeSigned(actions, -1)

	var body []byte
	body = append(body, magic...)
	body = vlv.Encode(body, 0)
	body = vlv.Encode(body, 6)
	body = vlv.Encode(body, 0)
	body = append(body, actions...)

	p, err := parseBodyOnly(t, body, source, target)
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}

	result, err := Apply(p, buffer.NewFromBytes(source), true)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	want := []byte{0x41, 0x41, 0x41, 0x41, 0x41, 0x41}
	if !bytes.Equal(result.Bytes(), want) {
		t.Errorf("got % X, want % X", result.Bytes(), want)
	}
}

func TestTargetCopyOverlapPatternFillCase2(t *testing.T) {
	source := []byte{}
	target := []byte{0x01, 0x02, 0x01, 0x02, 0x01, 0x02}

	var actions []byte
	actions = encodeAction(actions, TargetRead, 2)
	actions = append(actions, 0x01, 0x02)
	actions = encodeAction(actions, TargetCopy, 4)
	actions = vlv.EncodeSigned(actions, -2)

	var body []byte
	body = append(body, magic...)
	body = vlv.Encode(body, 0)
	body = vlv.Encode(body, 6)
	body = vlv.Encode(body, 0)
	body = append(body, actions...)

	p, err := parseBodyOnly(t, body, source, target)
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}

	result, err := Apply(p, buffer.NewFromBytes(source), true)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !bytes.Equal(result.Bytes(), target) {
		t.Errorf("got % X, want % X", result.Bytes(), target)
	}
}

func TestBuildApplyRoundTrip(t *testing.T) {
	original := []byte("the quick brown fox jumps over the lazy dog")
	modified := []byte("the slow brown fox leaps over the lazy hog!")

	p := Build(original, modified, StrategyLinear)
	exportedBuf, err := Export(p)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	reparsed, err := Parse(exportedBuf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	result, err := Apply(reparsed, buffer.NewFromBytes(original), true)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !bytes.Equal(result.Bytes(), modified) {
		t.Errorf("got %q, want %q", result.Bytes(), modified)
	}
	if hashkit.CRC32All(modified) != reparsed.TargetChecksum {
		t.Errorf("TargetChecksum = %#x, want CRC32(modified) = %#x", reparsed.TargetChecksum, hashkit.CRC32All(modified))
	}
}

func TestApplyDetectsCorruptTargetChecksum(t *testing.T) {
	original := []byte("hello world")
	modified := []byte("hello there")
	p := Build(original, modified, StrategyLinear)
	p.TargetChecksum ^= 0xFFFFFFFF

	exportedBuf, err := Export(p)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	// Export recomputes PatchChecksum but not TargetChecksum, so the
	// corrupted target checksum survives into the wire format.
	reparsed, err := Parse(exportedBuf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := Apply(reparsed, buffer.NewFromBytes(original), true); err == nil {
		t.Fatalf("expected target checksum mismatch error")
	}
}

func TestParseRejectsTruncatedFile(t *testing.T) {
	buf := buffer.NewFromBytes([]byte("BPS1"))
	if _, err := Parse(buf); err == nil {
		t.Fatalf("expected parse failure on truncated BPS1 file")
	}
}

func TestPreferredStrategyThreshold(t *testing.T) {
	if PreferredStrategy(1 << 20) != StrategyDelta {
		t.Errorf("expected delta strategy for a 1 MiB source")
	}
	if PreferredStrategy(8 << 20) != StrategyLinear {
		t.Errorf("expected linear strategy for an 8 MiB source")
	}
}
