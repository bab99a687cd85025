package db

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/fossilize/fossilize"
	"golang.org/x/sync/singleflight"
)

// Concurrent fans writes out across per-process FOZ shards named
// "<prefix>.<n>.foz", each owned exclusively by the process that created
// it via O_EXCL, so that multiple recording processes sharing one cache
// directory never contend on a single file. Reads fall through every
// shard that exists at Prepare time; a shard created by another process
// after Prepare won't be visible until the next Prepare.
type Concurrent struct {
	prefix string
	mu     sync.RWMutex
	shards []Database
	own    Database // the shard this process owns and writes to
	group  singleflight.Group
	closed bool
}

// NewConcurrent returns a Concurrent backend whose shard files are named
// "<prefix>.<n>.foz".
func NewConcurrent(prefix string) *Concurrent {
	return &Concurrent{prefix: prefix}
}

func (c *Concurrent) Prepare(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for n := 0; ; n++ {
		path := fmt.Sprintf("%s.%d.foz", c.prefix, n)
		if _, err := os.Stat(path); err != nil {
			if !os.IsNotExist(err) {
				return err
			}
			// First missing shard index: try to claim it exclusively.
			f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
			if err != nil {
				if os.IsExist(err) {
					continue // another process claimed it first; try the next index
				}
				return err
			}
			f.Close()
			shard := NewFoz(path)
			if err := shard.Prepare(ctx); err != nil {
				return err
			}
			c.shards = append(c.shards, shard)
			c.own = shard
			return nil
		}
		shard := NewFoz(path)
		if err := shard.Prepare(ctx); err != nil {
			return err
		}
		c.shards = append(c.shards, shard)
	}
}

func (c *Concurrent) HasEntry(tag fossilize.ResourceTag, hash fossilize.Hash64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.shards {
		if s.HasEntry(tag, hash) {
			return true
		}
	}
	return false
}

func (c *Concurrent) EntrySize(tag fossilize.ResourceTag, hash fossilize.Hash64) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return 0, fossilize.ErrArchiveClosed
	}
	for _, s := range c.shards {
		if s.HasEntry(tag, hash) {
			return s.EntrySize(tag, hash)
		}
	}
	return 0, fmt.Errorf("db: no such entry")
}

func (c *Concurrent) ReadEntry(tag fossilize.ResourceTag, hash fossilize.Hash64, dst []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return fossilize.ErrArchiveClosed
	}
	for _, s := range c.shards {
		if s.HasEntry(tag, hash) {
			return s.ReadEntry(tag, hash, dst)
		}
	}
	return fmt.Errorf("db: no such entry")
}

// WriteEntry always writes to this process's own shard; duplicate
// concurrent writes for the same (tag, hash) within this process collapse
// onto a single actual write via singleflight.
func (c *Concurrent) WriteEntry(tag fossilize.ResourceTag, hash fossilize.Hash64, payload []byte, flags WriteFlags) error {
	c.mu.RLock()
	own := c.own
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return fossilize.ErrArchiveClosed
	}
	key := fmt.Sprintf("%s.%016x", tag, uint64(hash))
	_, err, _ := c.group.Do(key, func() (any, error) {
		if c.HasEntry(tag, hash) {
			return nil, nil
		}
		return nil, own.WriteEntry(tag, hash, payload, flags)
	})
	return err
}

func (c *Concurrent) GetHashListForResourceTag(tag fossilize.ResourceTag) ([]fossilize.Hash64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, fossilize.ErrArchiveClosed
	}
	seen := make(map[fossilize.Hash64]struct{})
	var out []fossilize.Hash64
	for _, s := range c.shards {
		hashes, err := s.GetHashListForResourceTag(tag)
		if err != nil {
			return nil, err
		}
		for _, h := range hashes {
			if _, ok := seen[h]; !ok {
				seen[h] = struct{}{}
				out = append(out, h)
			}
		}
	}
	return out, nil
}

func (c *Concurrent) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	var firstErr error
	for _, s := range c.shards {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
