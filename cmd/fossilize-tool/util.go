package main

import (
	"context"
	"fmt"

	"github.com/fossilize/fossilize"
	"github.com/fossilize/fossilize/db"
)

// allTags lists every resource tag in the fixed order the CLI tools walk
// archives in; it has no bearing on replay dependency order (see the
// replay package for that), only on iteration.
var allTags = func() []fossilize.ResourceTag {
	tags := make([]fossilize.ResourceTag, fossilize.ResourceTagCount)
	for i := range tags {
		tags[i] = fossilize.ResourceTag(i)
	}
	return tags
}()

// openPrepared opens path via db.Open and calls Prepare, the two-step dance
// every backend requires before Has/Read/WriteEntry are valid.
func openPrepared(ctx context.Context, path string) (db.Database, error) {
	d, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if err := d.Prepare(ctx); err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return d, nil
}

// copyEntries copies every entry of src not already present in dst,
// returning the number of entries actually copied.
func copyEntries(src, dst db.Database, flags db.WriteFlags) (int, error) {
	copied := 0
	for _, tag := range allTags {
		hashes, err := src.GetHashListForResourceTag(tag)
		if err != nil {
			return copied, fmt.Errorf("list %s: %w", tag, err)
		}
		for _, h := range hashes {
			if dst.HasEntry(tag, h) {
				continue
			}
			buf, err := readEntry(src, tag, h)
			if err != nil {
				return copied, err
			}
			if err := dst.WriteEntry(tag, h, buf, flags); err != nil {
				return copied, fmt.Errorf("write %s %016x: %w", tag, uint64(h), err)
			}
			copied++
		}
	}
	return copied, nil
}

func readEntry(d db.Database, tag fossilize.ResourceTag, hash fossilize.Hash64) ([]byte, error) {
	size, err := d.EntrySize(tag, hash)
	if err != nil {
		return nil, fmt.Errorf("size %s %016x: %w", tag, uint64(hash), err)
	}
	buf := make([]byte, size)
	if err := d.ReadEntry(tag, hash, buf); err != nil {
		return nil, fmt.Errorf("read %s %016x: %w", tag, uint64(hash), err)
	}
	return buf, nil
}
