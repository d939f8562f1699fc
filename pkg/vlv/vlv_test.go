package vlv

import "testing"

func TestRoundTripBoundaryValues(t *testing.T) {
	values := []uint64{0, 1, 126, 127, 128, 129, 16383, 16384, 16385, 1 << 20, 1 << 32, 1 << 53}
	for _, v := range values {
		enc := Encode(nil, v)
		got, next, err := Decode(enc, 0)
		if err != nil {
			t.Fatalf("Decode(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("round trip %d -> %v -> %d", v, enc, got)
		}
		if next != len(enc) {
			t.Errorf("Decode(%d) consumed %d bytes, want %d", v, next, len(enc))
		}
	}
}

func TestEncodingLengthMonotonic(t *testing.T) {
	prevLen := 0
	prevVal := uint64(0)
	for v := uint64(0); v < 1<<20; v += 997 {
		enc := Encode(nil, v)
		if len(enc) < prevLen {
			t.Fatalf("encoding length decreased from %d (value %d) to %d (value %d)", prevLen, prevVal, len(enc), v)
		}
		prevLen = len(enc)
		prevVal = v
	}
}

func TestDecodeTruncatedFails(t *testing.T) {
	// A byte without its terminator bit set, and nothing after it.
	if _, _, err := Decode([]byte{0x7F}, 0); err == nil {
		t.Errorf("expected error decoding a truncated VLV stream")
	}
}

func TestSignedRoundTrip(t *testing.T) {
	values := []int64{0, 1, -1, 127, -127, 128, -128, 1 << 20, -(1 << 20)}
	for _, v := range values {
		enc := EncodeSigned(nil, v)
		got, _, err := DecodeSigned(enc, 0)
		if err != nil {
			t.Fatalf("DecodeSigned(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("signed round trip %d -> %v -> %d", v, enc, got)
		}
	}
}

func TestDecodeAtOffset(t *testing.T) {
	buf := []byte{0xFF, 0xFF}
	buf = Encode(buf, 300)
	v, next, err := Decode(buf, 2)
	if err != nil {
		t.Fatalf("Decode at offset: %v", err)
	}
	if v != 300 {
		t.Errorf("got %d, want 300", v)
	}
	if next != len(buf) {
		t.Errorf("next = %d, want %d", next, len(buf))
	}
}
