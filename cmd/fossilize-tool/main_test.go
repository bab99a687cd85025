package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/fossilize/fossilize"
	"github.com/fossilize/fossilize/db"
	"github.com/fossilize/fossilize/descriptor"
	"github.com/fossilize/fossilize/recorder"
)

func populateSampler(t *testing.T, dir string) fossilize.Hash64 {
	t.Helper()
	d := db.NewDir(dir)
	if err := d.Prepare(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	rec := recorder.NewSynchronized(d, nil)
	hash, err := rec.RecordSampler(fossilize.NewArena(), fossilize.Handle(1), &descriptor.Sampler{MagFilter: 1})
	if err != nil {
		t.Fatal(err)
	}
	return hash
}

func TestConvertCommandCopiesEntries(t *testing.T) {
	srcDir := filepath.Join(t.TempDir(), "src")
	hash := populateSampler(t, srcDir)
	dstDir := filepath.Join(t.TempDir(), "dst")

	cmd := newConvertCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{srcDir, dstDir})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}

	d := db.NewDir(dstDir)
	if err := d.Prepare(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	if !d.HasEntry(fossilize.ResourceSampler, hash) {
		t.Fatal("convert should have copied the sampler entry into the destination archive")
	}
}

func TestListCommandPrintsEntry(t *testing.T) {
	srcDir := filepath.Join(t.TempDir(), "src")
	hash := populateSampler(t, srcDir)

	cmd := newListCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{srcDir})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}

	want := fossilize.ResourceSampler.String()
	if !bytes.Contains(out.Bytes(), []byte(want)) {
		t.Fatalf("list output %q does not mention tag %q", out.String(), want)
	}
	if !bytes.Contains(out.Bytes(), []byte(hashHex(hash))) {
		t.Fatalf("list output %q does not mention hash %s", out.String(), hashHex(hash))
	}
}

func hashHex(h fossilize.Hash64) string {
	const hextable = "0123456789abcdef"
	buf := make([]byte, 16)
	v := uint64(h)
	for i := 15; i >= 0; i-- {
		buf[i] = hextable[v&0xf]
		v >>= 4
	}
	return string(buf)
}

func TestPruneDropsUnreferencedSampler(t *testing.T) {
	srcDir := filepath.Join(t.TempDir(), "src")
	d := db.NewDir(srcDir)
	if err := d.Prepare(context.Background()); err != nil {
		t.Fatal(err)
	}
	rec := recorder.NewSynchronized(d, nil)
	arena := fossilize.NewArena()

	// A sampler with nothing referencing it...
	orphanSampler, err := rec.RecordSampler(arena, fossilize.Handle(1), &descriptor.Sampler{MagFilter: 1})
	if err != nil {
		t.Fatal(err)
	}
	// ...and a pipeline layout that IS referenced by a graphics pipeline,
	// so it should survive pruning.
	layoutHash, err := rec.RecordPipelineLayout(arena, fossilize.Handle(2), &descriptor.PipelineLayout{})
	if err != nil {
		t.Fatal(err)
	}
	moduleHash, err := rec.RecordShaderModule(arena, fossilize.Handle(3), &descriptor.ShaderModule{Code: []uint32{1}})
	if err != nil {
		t.Fatal(err)
	}
	_, err = rec.RecordGraphicsPipeline(arena, fossilize.Handle(4), &descriptor.GraphicsPipeline{
		Layout: layoutHash,
		Stages: []descriptor.StageCreateInfo{{Module: moduleHash}},
	})
	if err != nil {
		t.Fatal(err)
	}
	d.Close()

	dstDir := filepath.Join(t.TempDir(), "dst")
	cmd := newPruneCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{srcDir, dstDir})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}

	dst := db.NewDir(dstDir)
	if err := dst.Prepare(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer dst.Close()

	if dst.HasEntry(fossilize.ResourceSampler, orphanSampler) {
		t.Fatal("an unreferenced sampler should have been pruned")
	}
	if !dst.HasEntry(fossilize.ResourcePipelineLayout, layoutHash) {
		t.Fatal("a pipeline layout reachable from a kept pipeline should survive pruning")
	}
}
