package patcher

import (
	"bytes"
	"testing"

	"github.com/hansbonini/rompatch/pkg/buffer"
)

func TestHeaderLookupAndPolicy(t *testing.T) {
	entry, ok := Lookup(".nes")
	if !ok {
		t.Fatalf("expected nes extension to be found")
	}
	if entry.Name != "iNES" {
		t.Errorf("entry.Name = %q, want iNES", entry.Name)
	}

	sizeWithHeader := entry.HeaderSize + entry.RomSizeMultiple*2
	if !CanRemove(entry, sizeWithHeader) {
		t.Errorf("expected header removal to be allowed for a size-aligned dump")
	}

	sizeHeaderless := entry.RomSizeMultiple * 2
	if !CanAdd(entry, sizeHeaderless) {
		t.Errorf("expected header addition to be allowed for a size-aligned headerless dump")
	}
}

func TestHeaderRemoveAndAddRoundTrip(t *testing.T) {
	entry, _ := Lookup("nes")
	body := bytes.Repeat([]byte{0xAB}, entry.RomSizeMultiple*2)
	full := append(append([]byte{}, bytes.Repeat([]byte{0x00}, entry.HeaderSize)...), body...)

	rom := buffer.NewFromBytes(full)
	header, stripped, err := Remove(rom, entry)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !bytes.Equal(stripped.Bytes(), body) {
		t.Errorf("stripped body mismatch")
	}
	if header.FileSize() != entry.HeaderSize {
		t.Errorf("header size = %d, want %d", header.FileSize(), entry.HeaderSize)
	}

	readded, err := Add(stripped, entry, false)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !bytes.Equal(readded.Bytes()[entry.HeaderSize:], body) {
		t.Errorf("re-added ROM body mismatch")
	}
}

func TestHeaderAddFDSMagic(t *testing.T) {
	entry, ok := Lookup("fds")
	if !ok {
		t.Fatalf("expected fds extension to be found")
	}
	body := bytes.Repeat([]byte{0x11}, entry.RomSizeMultiple)

	readded, err := Add(buffer.NewFromBytes(body), entry, true)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	want := []byte{0x46, 0x44, 0x53, 0x1A, 0x01}
	if !bytes.Equal(readded.Bytes()[:5], want) {
		t.Errorf("fwNES magic = % X, want % X", readded.Bytes()[:5], want)
	}
	if !bytes.Equal(readded.Bytes()[entry.HeaderSize:], body) {
		t.Errorf("re-added ROM body mismatch")
	}
}
