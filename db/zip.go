package db

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/fossilize/fossilize"
	"github.com/klauspost/compress/flate"
)

func init() {
	zip.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		return flate.NewReader(r)
	})
	zip.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.DefaultCompression)
	})
}

// Zip stores entries as members of a standard zip archive, each named
// "<tag:16-hex><hash:16-hex>" (32 hex characters, no separator), with
// klauspost/compress's faster flate implementation registered in place of
// the stdlib one.
// Because archive/zip's writer is append-only, Zip buffers the whole
// archive in memory and rewrites it on every Close; it targets
// moderate-size caches produced by a single `fossilize-tool convert` run,
// not continuous recording (use Foz or Concurrent for that).
type Zip struct {
	path    string
	mu      sync.Mutex
	entries map[string][]byte
	closed  bool
}

// NewZip returns a Zip backend backed by the file at path.
func NewZip(path string) *Zip {
	return &Zip{path: path, entries: make(map[string][]byte)}
}

func zipKey(tag fossilize.ResourceTag, hash fossilize.Hash64) string {
	return fmt.Sprintf("%016x%016x", uint64(tag), uint64(hash))
}

func (z *Zip) Prepare(ctx context.Context) error {
	f, err := os.Open(z.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	r, err := zip.NewReader(f, info.Size())
	if err != nil {
		return fmt.Errorf("db: open zip %s: %w", z.path, err)
	}
	for _, zf := range r.File {
		rc, err := zf.Open()
		if err != nil {
			return err
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return err
		}
		z.entries[zf.Name] = b
	}
	return nil
}

func (z *Zip) HasEntry(tag fossilize.ResourceTag, hash fossilize.Hash64) bool {
	z.mu.Lock()
	defer z.mu.Unlock()
	_, ok := z.entries[zipKey(tag, hash)]
	return ok
}

func (z *Zip) EntrySize(tag fossilize.ResourceTag, hash fossilize.Hash64) (int, error) {
	z.mu.Lock()
	defer z.mu.Unlock()
	if z.closed {
		return 0, fossilize.ErrArchiveClosed
	}
	b, ok := z.entries[zipKey(tag, hash)]
	if !ok {
		return 0, fmt.Errorf("db: no such entry %s", zipKey(tag, hash))
	}
	return len(b), nil
}

func (z *Zip) ReadEntry(tag fossilize.ResourceTag, hash fossilize.Hash64, dst []byte) error {
	z.mu.Lock()
	defer z.mu.Unlock()
	if z.closed {
		return fossilize.ErrArchiveClosed
	}
	b, ok := z.entries[zipKey(tag, hash)]
	if !ok {
		return fmt.Errorf("db: no such entry %s", zipKey(tag, hash))
	}
	copy(dst, b)
	return nil
}

func (z *Zip) WriteEntry(tag fossilize.ResourceTag, hash fossilize.Hash64, payload []byte, flags WriteFlags) error {
	z.mu.Lock()
	defer z.mu.Unlock()
	if z.closed {
		return fossilize.ErrArchiveClosed
	}
	key := zipKey(tag, hash)
	if _, ok := z.entries[key]; ok && flags&WriteOverwrite == 0 {
		return fossilize.ErrEntryAlreadyExists
	}
	cp := append([]byte(nil), payload...)
	z.entries[key] = cp
	return nil
}

func (z *Zip) GetHashListForResourceTag(tag fossilize.ResourceTag) ([]fossilize.Hash64, error) {
	z.mu.Lock()
	defer z.mu.Unlock()
	if z.closed {
		return nil, fossilize.ErrArchiveClosed
	}
	prefix := fmt.Sprintf("%016x", uint64(tag))
	var hashes []fossilize.Hash64
	for key := range z.entries {
		if len(key) != 32 || key[:16] != prefix {
			continue
		}
		h, err := strconv.ParseUint(key[16:], 16, 64)
		if err == nil {
			hashes = append(hashes, fossilize.Hash64(h))
		}
	}
	return hashes, nil
}

func (z *Zip) Close() error {
	z.mu.Lock()
	defer z.mu.Unlock()
	if z.closed {
		return nil
	}
	z.closed = true

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for key, payload := range z.entries {
		fw, err := w.CreateHeader(&zip.FileHeader{Name: key, Method: zip.Deflate})
		if err != nil {
			return err
		}
		if _, err := fw.Write(payload); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}
	return os.WriteFile(z.path, buf.Bytes(), 0o644)
}
