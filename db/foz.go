package db

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/fossilize/fossilize"
	"github.com/klauspost/compress/flate"
)

// fozMagicLen is the width of the fixed archive header: a 12-byte magic,
// 3 reserved zero bytes, and a single version byte in the last position.
const fozMagicLen = 16

// fozMagic returns the 16-byte header every FOZ archive starts with:
// {0x81,'F','O','S','S','I','L','I','Z','E','D','B',0,0,0,version}, matching
// the upstream stream_reference_magic_and_version array byte for byte.
func fozMagic(version fossilize.FormatVersion) [fozMagicLen]byte {
	return [fozMagicLen]byte{
		0x81, 'F', 'O', 'S', 'S', 'I', 'L', 'I', 'Z', 'E', 'D', 'B',
		0, 0, 0, byte(version),
	}
}

// fozNameLen is the fixed width of an entry's name field: "<tag as 16
// hex><hash as 16 hex>", 32 ASCII hex characters with no separator.
const fozNameLen = 32

// fozPayloadHeader mirrors the upstream PayloadHeader: four little-endian
// uint32 fields, written via explicit byte-level encoding rather than an
// unsafe struct cast.
type fozPayloadHeader struct {
	PayloadSize      uint32
	Format           uint32
	Crc              uint32
	UncompressedSize uint32
}

const fozPayloadHeaderLen = 16

func (h fozPayloadHeader) marshal() []byte {
	b := make([]byte, fozPayloadHeaderLen)
	binary.LittleEndian.PutUint32(b[0:4], h.PayloadSize)
	binary.LittleEndian.PutUint32(b[4:8], h.Format)
	binary.LittleEndian.PutUint32(b[8:12], h.Crc)
	binary.LittleEndian.PutUint32(b[12:16], h.UncompressedSize)
	return b
}

func unmarshalFozPayloadHeader(b []byte) fozPayloadHeader {
	return fozPayloadHeader{
		PayloadSize:      binary.LittleEndian.Uint32(b[0:4]),
		Format:           binary.LittleEndian.Uint32(b[4:8]),
		Crc:              binary.LittleEndian.Uint32(b[8:12]),
		UncompressedSize: binary.LittleEndian.Uint32(b[12:16]),
	}
}

// fozEntryName is "<tag:16 hex><hash:16 hex>", 32 ASCII hex digits with no
// separator, matching the original's sprintf("%016x", tag) followed by
// sprintf("%016llx", hash) into one 32-byte buffer.
func fozEntryName(tag fossilize.ResourceTag, hash fossilize.Hash64) [fozNameLen]byte {
	var name [fozNameLen]byte
	s := fmt.Sprintf("%016x%016x", uint64(tag), uint64(hash))
	copy(name[:], s)
	return name
}

func parseFozEntryName(name [fozNameLen]byte) (fossilize.ResourceTag, fossilize.Hash64, error) {
	s := string(name[:])
	if len(s) != fozNameLen {
		return 0, 0, fmt.Errorf("db: malformed foz entry name %q", s)
	}
	tagVal, err := strconv.ParseUint(s[:16], 16, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("db: malformed foz entry tag %q: %w", s[:16], err)
	}
	hashVal, err := strconv.ParseUint(s[16:], 16, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("db: malformed foz entry hash %q: %w", s[16:], err)
	}
	return fossilize.ResourceTag(tagVal), fossilize.Hash64(hashVal), nil
}

type fozRecord struct {
	header  fozPayloadHeader
	payload []byte // as stored on disk: possibly compressed
}

// Foz is the streaming single-file archive format: a magic+version
// header followed by a flat sequence of [32-byte name][PayloadHeader]
// [payload] records, appended to as entries are written. CRC-32 is
// computed over the stored (possibly compressed) bytes on every write;
// there is no flag to skip it. On read, a stored crc of zero means
// "unchecked", matching the upstream reader so that archives written
// without checksums remain readable rather than failing integrity checks
// that were never promised.
type Foz struct {
	path    string
	mu      sync.Mutex
	records map[string]*fozRecord
	order   []string
	closed  bool
}

// NewFoz returns a Foz backend backed by the file at path.
func NewFoz(path string) *Foz {
	return &Foz{path: path, records: make(map[string]*fozRecord)}
}

// Prepare scans the archive, indexing every whole record it finds. A
// truncated trailing record — the writer may have been killed mid-append —
// is not an error: the scan simply stops at the last whole record, and if
// that leaves trailing bytes in the file, Prepare truncates them away so
// the next WriteEntry appends cleanly onto a valid archive, matching
// upstream StreamArchive::prepare's begin_append_offset rewind.
func (f *Foz) Prepare(ctx context.Context) error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if len(data) < fozMagicLen {
		return fossilize.ErrTruncatedRecord
	}
	version := fossilize.FormatVersion(data[fozMagicLen-1])
	want := fozMagic(version)
	if !bytes.Equal(data[:fozMagicLen], want[:]) {
		return fossilize.ErrInvalidMagic
	}
	if !fossilize.CompatibleFormat(version) {
		return fossilize.ErrFormatVersionUnsupported
	}

	off := fozMagicLen
	validEnd := off
	for off < len(data) {
		if off+fozNameLen+fozPayloadHeaderLen > len(data) {
			break // truncated trailing record: stop scanning, discard it
		}
		var name [fozNameLen]byte
		copy(name[:], data[off:off+fozNameLen])
		hdrOff := off + fozNameLen
		hdr := unmarshalFozPayloadHeader(data[hdrOff : hdrOff+fozPayloadHeaderLen])
		payloadOff := hdrOff + fozPayloadHeaderLen
		if payloadOff+int(hdr.PayloadSize) > len(data) {
			break // truncated trailing record: stop scanning, discard it
		}
		payload := data[payloadOff : payloadOff+int(hdr.PayloadSize)]

		key := string(name[:])
		if _, ok := f.records[key]; !ok {
			f.order = append(f.order, key)
		}
		f.records[key] = &fozRecord{header: hdr, payload: append([]byte(nil), payload...)}

		off = payloadOff + int(hdr.PayloadSize)
		validEnd = off
	}

	if validEnd != len(data) {
		if err := os.Truncate(f.path, int64(validEnd)); err != nil {
			return err
		}
	}
	return nil
}

func decompressFoz(hdr fozPayloadHeader, payload []byte) ([]byte, error) {
	if hdr.Crc != 0 {
		if crc32.ChecksumIEEE(payload) != hdr.Crc {
			return nil, fossilize.ErrChecksumMismatch
		}
	}
	switch fossilize.CompressionFormat(hdr.Format) {
	case fossilize.CompressionNone:
		return payload, nil
	case fossilize.CompressionDeflate:
		r := flate.NewReader(bytes.NewReader(payload))
		defer r.Close()
		out := make([]byte, hdr.UncompressedSize)
		if _, err := io.ReadFull(r, out); err != nil {
			return nil, fmt.Errorf("db: inflate foz payload: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("db: unknown foz compression format %d", hdr.Format)
	}
}

func (f *Foz) HasEntry(tag fossilize.ResourceTag, hash fossilize.Hash64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := fozEntryName(tag, hash)
	_, ok := f.records[string(name[:])]
	return ok
}

func (f *Foz) EntrySize(tag fossilize.ResourceTag, hash fossilize.Hash64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, fossilize.ErrArchiveClosed
	}
	name := fozEntryName(tag, hash)
	rec, ok := f.records[string(name[:])]
	if !ok {
		return 0, fmt.Errorf("db: no such entry")
	}
	return int(rec.header.UncompressedSize), nil
}

func (f *Foz) ReadEntry(tag fossilize.ResourceTag, hash fossilize.Hash64, dst []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return fossilize.ErrArchiveClosed
	}
	name := fozEntryName(tag, hash)
	rec, ok := f.records[string(name[:])]
	if !ok {
		return fmt.Errorf("db: no such entry")
	}
	b, err := decompressFoz(rec.header, rec.payload)
	if err != nil {
		return err
	}
	copy(dst, b)
	return nil
}

func (f *Foz) WriteEntry(tag fossilize.ResourceTag, hash fossilize.Hash64, payload []byte, flags WriteFlags) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return fossilize.ErrArchiveClosed
	}
	name := fozEntryName(tag, hash)
	key := string(name[:])
	if _, ok := f.records[key]; ok && flags&WriteOverwrite == 0 {
		return fossilize.ErrEntryAlreadyExists
	}

	format := fossilize.CompressionDeflate
	if flags&WriteNoCompression != 0 {
		format = fossilize.CompressionNone
	}
	var stored []byte
	if format == fossilize.CompressionDeflate {
		var buf bytes.Buffer
		level := flate.DefaultCompression
		if flags&WriteBestCompression != 0 {
			level = flate.BestCompression
		}
		w, err := flate.NewWriter(&buf, level)
		if err != nil {
			return err
		}
		if _, err := w.Write(payload); err != nil {
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
		stored = buf.Bytes()
	} else {
		stored = payload
	}

	hdr := fozPayloadHeader{
		PayloadSize:      uint32(len(stored)),
		Format:           uint32(format),
		UncompressedSize: uint32(len(payload)),
	}
	hdr.Crc = crc32.ChecksumIEEE(stored)

	if _, ok := f.records[key]; !ok {
		f.order = append(f.order, key)
	}
	f.records[key] = &fozRecord{header: hdr, payload: stored}
	return f.appendLocked(name, hdr, stored)
}

// appendLocked streams the new record straight onto the end of the file,
// writing the magic+version header first if the file is new.
func (f *Foz) appendLocked(name [fozNameLen]byte, hdr fozPayloadHeader, payload []byte) error {
	fh, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer fh.Close()

	info, err := fh.Stat()
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		magic := fozMagic(fossilize.CurrentFormatVersion)
		if _, err := fh.Write(magic[:]); err != nil {
			return err
		}
	}
	if _, err := fh.Write(name[:]); err != nil {
		return err
	}
	if _, err := fh.Write(hdr.marshal()); err != nil {
		return err
	}
	_, err = fh.Write(payload)
	return err
}

func (f *Foz) GetHashListForResourceTag(tag fossilize.ResourceTag) ([]fossilize.Hash64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, fossilize.ErrArchiveClosed
	}
	var hashes []fossilize.Hash64
	for _, key := range f.order {
		var name [fozNameLen]byte
		copy(name[:], key)
		t, h, err := parseFozEntryName(name)
		if err != nil || t != tag {
			continue
		}
		hashes = append(hashes, h)
	}
	return hashes, nil
}

func (f *Foz) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
