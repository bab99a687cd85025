package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/fossilize/fossilize"
)

func TestZipWriteCloseReopenRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "archive.zip")

	z := NewZip(path)
	if err := z.Prepare(ctx); err != nil {
		t.Fatal(err)
	}
	payload := []byte("shader bytecode goes here")
	if err := z.WriteEntry(fossilize.ResourceShaderModule, 7, payload, 0); err != nil {
		t.Fatal(err)
	}
	if err := z.Close(); err != nil {
		t.Fatal(err)
	}

	z2 := NewZip(path)
	if err := z2.Prepare(ctx); err != nil {
		t.Fatal(err)
	}
	defer z2.Close()

	if !z2.HasEntry(fossilize.ResourceShaderModule, 7) {
		t.Fatal("entry should survive a reopen")
	}
	size, err := z2.EntrySize(fossilize.ResourceShaderModule, 7)
	if err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, size)
	if err := z2.ReadEntry(fossilize.ResourceShaderModule, 7, buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != string(payload) {
		t.Fatalf("read %q, want %q", buf, payload)
	}
}

func TestZipWriteRejectsDuplicateWithoutOverwrite(t *testing.T) {
	ctx := context.Background()
	z := NewZip(filepath.Join(t.TempDir(), "archive.zip"))
	if err := z.Prepare(ctx); err != nil {
		t.Fatal(err)
	}
	defer z.Close()

	if err := z.WriteEntry(fossilize.ResourceSampler, 1, []byte("a"), 0); err != nil {
		t.Fatal(err)
	}
	err := z.WriteEntry(fossilize.ResourceSampler, 1, []byte("b"), 0)
	if !errors.Is(err, fossilize.ErrEntryAlreadyExists) {
		t.Fatalf("got %v, want ErrEntryAlreadyExists", err)
	}
	if err := z.WriteEntry(fossilize.ResourceSampler, 1, []byte("b"), WriteOverwrite); err != nil {
		t.Fatalf("overwrite should succeed with WriteOverwrite: %v", err)
	}
}

func TestZipGetHashListForResourceTag(t *testing.T) {
	ctx := context.Background()
	z := NewZip(filepath.Join(t.TempDir(), "archive.zip"))
	if err := z.Prepare(ctx); err != nil {
		t.Fatal(err)
	}
	defer z.Close()

	for _, h := range []fossilize.Hash64{1, 2, 3} {
		if err := z.WriteEntry(fossilize.ResourceSampler, h, []byte("x"), 0); err != nil {
			t.Fatal(err)
		}
	}
	if err := z.WriteEntry(fossilize.ResourceShaderModule, 1, []byte("y"), 0); err != nil {
		t.Fatal(err)
	}

	got, err := z.GetHashListForResourceTag(fossilize.ResourceSampler)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d hashes, want 3", len(got))
	}
}

func TestZipClosedReturnsError(t *testing.T) {
	ctx := context.Background()
	z := NewZip(filepath.Join(t.TempDir(), "archive.zip"))
	if err := z.Prepare(ctx); err != nil {
		t.Fatal(err)
	}
	if err := z.Close(); err != nil {
		t.Fatal(err)
	}
	if err := z.WriteEntry(fossilize.ResourceSampler, 1, []byte("x"), 0); !errors.Is(err, fossilize.ErrArchiveClosed) {
		t.Fatalf("got %v, want ErrArchiveClosed", err)
	}
}
