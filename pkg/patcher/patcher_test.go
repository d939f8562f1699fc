package patcher

import (
	"bytes"
	"testing"

	"github.com/hansbonini/rompatch/pkg/buffer"
	"github.com/hansbonini/rompatch/pkg/ips"
)

func TestOrchestratorApplyIPS(t *testing.T) {
	original := []byte("hello world")
	modified := []byte("hellO world")

	p, err := ips.Build(original, modified)
	if err != nil {
		t.Fatalf("ips.Build: %v", err)
	}
	patchBuf, err := ips.Export(p)
	if err != nil {
		t.Fatalf("ips.Export: %v", err)
	}

	o := NewOrchestrator()
	result, err := o.Apply(buffer.NewFromBytes(original), patchBuf, ApplyOptions{Validate: true})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !bytes.Equal(result.Bytes(), modified) {
		t.Errorf("got %q, want %q", result.Bytes(), modified)
	}
}

func TestOrchestratorCreateAndApplyBPS(t *testing.T) {
	original := []byte("the quick brown fox")
	modified := []byte("the slow brown fox!")

	o := NewOrchestrator()
	patchBuf, err := o.Create(buffer.NewFromBytes(original), buffer.NewFromBytes(modified), "bps")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	result, err := o.Apply(buffer.NewFromBytes(original), patchBuf, ApplyOptions{Validate: true})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !bytes.Equal(result.Bytes(), modified) {
		t.Errorf("got %q, want %q", result.Bytes(), modified)
	}
}

func TestOrchestratorCreateUnknownFormat(t *testing.T) {
	o := NewOrchestrator()
	_, err := o.Create(buffer.NewFromBytes([]byte("a")), buffer.NewFromBytes([]byte("b")), "zzz")
	if err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}

func TestDetectFormatUnrecognized(t *testing.T) {
	_, err := DetectFormat(buffer.NewFromBytes([]byte("nope")))
	if err == nil {
		t.Fatalf("expected error for unrecognized magic")
	}
}
