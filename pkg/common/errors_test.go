package common

import (
	"errors"
	"testing"
)

func TestPatchErrorMessage(t *testing.T) {
	err := NewError(KindEndOfFile, "read past end")
	want := "EndOfFile: read past end"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestPatchErrorWrap(t *testing.T) {
	cause := errors.New("boom")
	err := WrapError(KindInvalidMagic, "bad header", cause)

	if !errors.Is(err, cause) {
		t.Errorf("expected errors.Is to find wrapped cause")
	}

	var pe *PatchError
	if !errors.As(err, &pe) {
		t.Fatalf("expected errors.As to find *PatchError")
	}
	if pe.Kind != KindInvalidMagic {
		t.Errorf("Kind = %v, want %v", pe.Kind, KindInvalidMagic)
	}
}

func TestErrorKindString(t *testing.T) {
	cases := map[ErrorKind]string{
		KindInvalidSource:          "InvalidSource",
		KindOutOfBounds:            "OutOfBounds",
		KindInvalidLength:          "InvalidLength",
		KindEndOfFile:              "EndOfFile",
		KindUnknownPatchFormat:     "UnknownPatchFormat",
		KindInvalidMagic:           "InvalidMagic",
		KindInvalidRecord:          "InvalidRecord",
		KindInvalidMetadata:        "InvalidMetadata",
		KindSourceChecksumMismatch: "SourceChecksumMismatch",
		KindTargetChecksumMismatch: "TargetChecksumMismatch",
		KindPatchChecksumMismatch:  "PatchChecksumMismatch",
		KindPatchFailed:            "PatchFailed",
	}

	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("%v.String() = %q, want %q", int(kind), got, want)
		}
	}
}
