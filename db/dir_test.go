package db

import (
	"context"
	"errors"
	"testing"

	"github.com/fossilize/fossilize"
)

func TestDirWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	d := NewDir(t.TempDir())
	if err := d.Prepare(ctx); err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	tag, hash := fossilize.ResourceSampler, fossilize.Hash64(0x1234)
	payload := []byte("hello world")

	if d.HasEntry(tag, hash) {
		t.Fatal("entry should not exist yet")
	}
	if err := d.WriteEntry(tag, hash, payload, 0); err != nil {
		t.Fatal(err)
	}
	if !d.HasEntry(tag, hash) {
		t.Fatal("entry should exist after write")
	}

	size, err := d.EntrySize(tag, hash)
	if err != nil {
		t.Fatal(err)
	}
	if size != len(payload) {
		t.Fatalf("size = %d, want %d", size, len(payload))
	}

	buf := make([]byte, size)
	if err := d.ReadEntry(tag, hash, buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != string(payload) {
		t.Fatalf("read %q, want %q", buf, payload)
	}
}

func TestDirWriteRejectsDuplicateWithoutOverwrite(t *testing.T) {
	ctx := context.Background()
	d := NewDir(t.TempDir())
	if err := d.Prepare(ctx); err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	tag, hash := fossilize.ResourceSampler, fossilize.Hash64(1)
	if err := d.WriteEntry(tag, hash, []byte("a"), 0); err != nil {
		t.Fatal(err)
	}
	err := d.WriteEntry(tag, hash, []byte("b"), 0)
	if !errors.Is(err, fossilize.ErrEntryAlreadyExists) {
		t.Fatalf("got %v, want ErrEntryAlreadyExists", err)
	}

	if err := d.WriteEntry(tag, hash, []byte("b"), WriteOverwrite); err != nil {
		t.Fatalf("overwrite should succeed with WriteOverwrite: %v", err)
	}
}

func TestDirGetHashListForResourceTag(t *testing.T) {
	ctx := context.Background()
	d := NewDir(t.TempDir())
	if err := d.Prepare(ctx); err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	want := map[fossilize.Hash64]bool{1: true, 2: true, 3: true}
	for h := range want {
		if err := d.WriteEntry(fossilize.ResourceSampler, h, []byte("x"), 0); err != nil {
			t.Fatal(err)
		}
	}
	// An entry under a different tag must not show up in the sampler listing.
	if err := d.WriteEntry(fossilize.ResourceShaderModule, 1, []byte("y"), 0); err != nil {
		t.Fatal(err)
	}

	got, err := d.GetHashListForResourceTag(fossilize.ResourceSampler)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d hashes, want %d", len(got), len(want))
	}
	for _, h := range got {
		if !want[h] {
			t.Fatalf("unexpected hash %x in listing", h)
		}
	}
}

func TestDirClosedReturnsError(t *testing.T) {
	ctx := context.Background()
	d := NewDir(t.TempDir())
	if err := d.Prepare(ctx); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if err := d.WriteEntry(fossilize.ResourceSampler, 1, []byte("x"), 0); !errors.Is(err, fossilize.ErrArchiveClosed) {
		t.Fatalf("got %v, want ErrArchiveClosed", err)
	}
}
