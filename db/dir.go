package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fossilize/fossilize"
)

// Dir stores each entry as a separate file named "<tag:2-hex>.<hash:16-hex>.json"
// in a flat directory, the simplest and most debuggable backend: every entry
// is inspectable with ordinary file tools at the cost of one file descriptor
// per read/write and poor performance on filesystems with slow directory
// listings for large caches.
type Dir struct {
	root   string
	mu     sync.RWMutex
	cache  *lruCache
	closed bool
}

// NewDir returns a Dir backend rooted at path.
func NewDir(path string) *Dir {
	return &Dir{root: path, cache: newLRUCache(256)}
}

func (d *Dir) Prepare(ctx context.Context) error {
	return os.MkdirAll(d.root, 0o755)
}

func (d *Dir) path(tag fossilize.ResourceTag, hash fossilize.Hash64) string {
	return filepath.Join(d.root, fmt.Sprintf("%02x.%016x.json", int(tag), uint64(hash)))
}

func (d *Dir) HasEntry(tag fossilize.ResourceTag, hash fossilize.Hash64) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, err := os.Stat(d.path(tag, hash))
	return err == nil
}

func (d *Dir) EntrySize(tag fossilize.ResourceTag, hash fossilize.Hash64) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return 0, fossilize.ErrArchiveClosed
	}
	info, err := os.Stat(d.path(tag, hash))
	if err != nil {
		return 0, err
	}
	return int(info.Size()), nil
}

func (d *Dir) ReadEntry(tag fossilize.ResourceTag, hash fossilize.Hash64, dst []byte) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return fossilize.ErrArchiveClosed
	}
	key := d.path(tag, hash)
	if cached, ok := d.cache.Get(key); ok {
		copy(dst, cached)
		return nil
	}
	b, err := os.ReadFile(key)
	if err != nil {
		return err
	}
	copy(dst, b)
	d.cache.Put(key, b)
	return nil
}

func (d *Dir) WriteEntry(tag fossilize.ResourceTag, hash fossilize.Hash64, payload []byte, flags WriteFlags) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return fossilize.ErrArchiveClosed
	}
	key := d.path(tag, hash)
	if flags&WriteOverwrite == 0 {
		if _, err := os.Stat(key); err == nil {
			return fossilize.ErrEntryAlreadyExists
		}
	}
	tmp := key + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, key); err != nil {
		return err
	}
	d.cache.Put(key, payload)
	return nil
}

func (d *Dir) GetHashListForResourceTag(tag fossilize.ResourceTag) ([]fossilize.Hash64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil, fossilize.ErrArchiveClosed
	}
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, err
	}
	prefix := fmt.Sprintf("%02x.", int(tag))
	var hashes []fossilize.Hash64
	for _, e := range entries {
		name := e.Name()
		if len(name) < len(prefix) || name[:len(prefix)] != prefix {
			continue
		}
		var h uint64
		if _, err := fmt.Sscanf(name[len(prefix):], "%016x.json", &h); err == nil {
			hashes = append(hashes, fossilize.Hash64(h))
		}
	}
	return hashes, nil
}

func (d *Dir) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}
