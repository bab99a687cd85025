// Package db implements the archive backends Fossilize persists cached
// entities to: a plain directory of files, a zip archive, a streaming
// single-file "FOZ" format, and a concurrent multi-writer wrapper around
// per-process FOZ shards.
package db

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/fossilize/fossilize"
)

// WriteFlags controls how WriteEntry treats an existing entry and how its
// payload is stored.
type WriteFlags uint32

const (
	// WriteOverwrite allows WriteEntry to replace an existing entry
	// instead of returning fossilize.ErrEntryAlreadyExists.
	WriteOverwrite WriteFlags = 1 << iota
	// WriteBestCompression requests maximum compression effort. Only Foz
	// honors it; Zip deflates every entry at the default level and Dir
	// does not compress, so both ignore it.
	WriteBestCompression
	// WriteNoCompression stores the payload uncompressed in Foz. Zip and
	// Dir ignore it.
	WriteNoCompression
)

// Database is the archive contract every backend implements. Entries are
// addressed by (tag, hash); reads and writes are two-phase (size/prepare,
// then payload) so a caller can size a buffer once before copying bytes.
type Database interface {
	// Prepare opens backing resources (files, indices) and must be
	// called before any other method.
	Prepare(ctx context.Context) error

	// HasEntry reports whether (tag, hash) exists without reading it.
	HasEntry(tag fossilize.ResourceTag, hash fossilize.Hash64) bool

	// EntrySize returns the decompressed payload size for (tag, hash).
	EntrySize(tag fossilize.ResourceTag, hash fossilize.Hash64) (int, error)

	// ReadEntry copies the decompressed payload for (tag, hash) into dst,
	// which must be at least as large as the size EntrySize reports.
	ReadEntry(tag fossilize.ResourceTag, hash fossilize.Hash64, dst []byte) error

	// WriteEntry stores payload under (tag, hash).
	WriteEntry(tag fossilize.ResourceTag, hash fossilize.Hash64, payload []byte, flags WriteFlags) error

	// GetHashListForResourceTag returns every hash stored under tag.
	GetHashListForResourceTag(tag fossilize.ResourceTag) ([]fossilize.Hash64, error)

	// Close releases backing resources. Further method calls return
	// fossilize.ErrArchiveClosed.
	Close() error
}

// Open dispatches to a backend based on path's extension: ".foz" opens a
// streaming Foz archive, ".zip" a Zip archive, anything else a directory
// (created if absent).
func Open(path string) (Database, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".foz":
		return NewFoz(path), nil
	case ".zip":
		return NewZip(path), nil
	default:
		return NewDir(path), nil
	}
}
