package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fossilize/fossilize"
)

func TestFozWriteReadReopenRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "archive.foz")

	f := NewFoz(path)
	if err := f.Prepare(ctx); err != nil {
		t.Fatal(err)
	}
	payload := []byte("the quick brown fox jumps over the lazy dog")
	if err := f.WriteEntry(fossilize.ResourceShaderModule, 0xabc, payload, 0); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	f2 := NewFoz(path)
	if err := f2.Prepare(ctx); err != nil {
		t.Fatal(err)
	}
	defer f2.Close()

	if !f2.HasEntry(fossilize.ResourceShaderModule, 0xabc) {
		t.Fatal("entry should survive a reopen")
	}
	size, err := f2.EntrySize(fossilize.ResourceShaderModule, 0xabc)
	if err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, size)
	if err := f2.ReadEntry(fossilize.ResourceShaderModule, 0xabc, buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != string(payload) {
		t.Fatalf("read %q, want %q", buf, payload)
	}
}

// TestFozToleratesTruncatedTrailingRecord covers the property that an
// archive ending mid-write (crash during append) still opens successfully,
// silently discarding the truncated trailing record and keeping every
// whole record that precedes it, and that the file is trimmed back to the
// last whole record so the next write appends cleanly rather than leaving
// the partial bytes stranded in the middle of the file.
func TestFozToleratesTruncatedTrailingRecord(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "archive.foz")

	f := NewFoz(path)
	if err := f.Prepare(ctx); err != nil {
		t.Fatal(err)
	}
	if err := f.WriteEntry(fossilize.ResourceSampler, 1, []byte("first"), 0); err != nil {
		t.Fatal(err)
	}
	if err := f.WriteEntry(fossilize.ResourceSampler, 2, []byte("second"), 0); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// Simulate a crash mid-append: truncate a few bytes off the end, inside
	// the second record's payload.
	truncated := data[:len(data)-3]
	if err := os.WriteFile(path, truncated, 0o644); err != nil {
		t.Fatal(err)
	}

	f2 := NewFoz(path)
	if err := f2.Prepare(ctx); err != nil {
		t.Fatalf("Prepare should silently discard a truncated trailing record, got %v", err)
	}
	if !f2.HasEntry(fossilize.ResourceSampler, 1) {
		t.Fatal("record preceding the truncation point should survive")
	}
	if f2.HasEntry(fossilize.ResourceSampler, 2) {
		t.Fatal("truncated trailing record should not be indexed")
	}

	// The file should have been trimmed back to the last whole record, so
	// appending a fresh entry lands cleanly instead of leaving garbage
	// bytes between the last good record and the new one.
	if err := f2.WriteEntry(fossilize.ResourceSampler, 3, []byte("third"), 0); err != nil {
		t.Fatal(err)
	}
	if err := f2.Close(); err != nil {
		t.Fatal(err)
	}

	f3 := NewFoz(path)
	if err := f3.Prepare(ctx); err != nil {
		t.Fatal(err)
	}
	if !f3.HasEntry(fossilize.ResourceSampler, 1) || !f3.HasEntry(fossilize.ResourceSampler, 3) {
		t.Fatal("both the surviving record and the new append should be present")
	}
	if f3.HasEntry(fossilize.ResourceSampler, 2) {
		t.Fatal("the discarded truncated record should never reappear")
	}
}

func TestFozCompressionRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "archive.foz")
	f := NewFoz(path)
	if err := f.Prepare(ctx); err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	payload := make([]byte, 4096)
	for i := range payload {
		payload[i] = byte(i % 7)
	}
	if err := f.WriteEntry(fossilize.ResourceShaderModule, 1, payload, WriteBestCompression); err != nil {
		t.Fatal(err)
	}
	size, err := f.EntrySize(fossilize.ResourceShaderModule, 1)
	if err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, size)
	if err := f.ReadEntry(fossilize.ResourceShaderModule, 1, buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != string(payload) {
		t.Fatal("compressed round trip produced different bytes")
	}
}
