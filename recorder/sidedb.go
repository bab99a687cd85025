package recorder

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/golang/snappy"

	"github.com/fossilize/fossilize"
)

// sideLog is an append-only, snappy-block-compressed key/value journal
// backing the write-only side databases of §4.7 (module-identifier DB,
// on-use DB). Unlike the main db.Database backends these have no
// spec-mandated wire format and no random-access read requirement: a
// session only ever appends, and a consumer (the merge CLI tool's
// --last-use option) replays the whole journal into memory once, keeping
// the last value written for each key.
//
// Record layout, repeated: u64 key, u32 snappy-compressed length,
// compressed bytes. All integers little-endian, matching the FOZ format's
// own endianness convention.
type sideLog struct {
	mu sync.Mutex
	f  *os.File
	w  *bufio.Writer
}

func openSideLog(path string) (*sideLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("recorder: open side database %s: %w", path, err)
	}
	return &sideLog{f: f, w: bufio.NewWriter(f)}, nil
}

func (s *sideLog) Append(key fossilize.Hash64, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	compressed := snappy.Encode(nil, value)
	var hdr [12]byte
	binary.LittleEndian.PutUint64(hdr[0:8], uint64(key))
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(len(compressed)))
	if _, err := s.w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := s.w.Write(compressed)
	return err
}

func (s *sideLog) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Flush()
}

func (s *sideLog) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.w.Flush(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}

// ReadSideLog replays the journal at path into a map of key to its most
// recently appended value. A truncated trailing record (the process died
// mid-append) is silently discarded, mirroring the FOZ main format's own
// truncation tolerance.
func ReadSideLog(path string) (map[fossilize.Hash64][]byte, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return map[fossilize.Hash64][]byte{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make(map[fossilize.Hash64][]byte)
	r := bufio.NewReader(f)
	for {
		var hdr [12]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			break
		}
		key := fossilize.Hash64(binary.LittleEndian.Uint64(hdr[0:8]))
		n := binary.LittleEndian.Uint32(hdr[8:12])
		compressed := make([]byte, n)
		if _, err := io.ReadFull(r, compressed); err != nil {
			break
		}
		value, err := snappy.Decode(nil, compressed)
		if err != nil {
			break
		}
		out[key] = value
	}
	return out, nil
}

// ModuleIdentifierDB is the write-only side database mapping a shader
// module's content hash to the driver-stable identifier
// vkGetShaderModuleCreateInfoIdentifierEXT reported for it (at most 32
// bytes). A later recording session can register pipelines that reference
// only the identifier without re-hashing the full SPIR-V, by consulting a
// reverse index built from ReadSideLog.
type ModuleIdentifierDB struct {
	log *sideLog
}

// OpenModuleIdentifierDB opens (creating if absent) the module-identifier
// journal at path.
func OpenModuleIdentifierDB(path string) (*ModuleIdentifierDB, error) {
	log, err := openSideLog(path)
	if err != nil {
		return nil, err
	}
	return &ModuleIdentifierDB{log: log}, nil
}

// Record appends identifier under moduleHash. identifier longer than 32
// bytes is rejected: real module identifiers are always small, and a
// larger value is a caller bug rather than data worth persisting.
func (d *ModuleIdentifierDB) Record(moduleHash fossilize.Hash64, identifier []byte) error {
	if len(identifier) > 32 {
		return fmt.Errorf("recorder: module identifier too large (%d bytes)", len(identifier))
	}
	return d.log.Append(moduleHash, identifier)
}

// Close flushes and closes the underlying journal.
func (d *ModuleIdentifierDB) Close() error { return d.log.Close() }

// OnUseDB is the write-only side database recording a timestamp each time
// a cached hash is referenced. merge --last-use reads it back and keeps the
// newest timestamp per hash; the prune tool does not read it.
type OnUseDB struct {
	log *sideLog
}

// OpenOnUseDB opens (creating if absent) the on-use journal at path.
func OpenOnUseDB(path string) (*OnUseDB, error) {
	log, err := openSideLog(path)
	if err != nil {
		return nil, err
	}
	return &OnUseDB{log: log}, nil
}

// Touch records that hash was referenced at unixNano.
func (d *OnUseDB) Touch(hash fossilize.Hash64, unixNano int64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(unixNano))
	return d.log.Append(hash, b[:])
}

// Close flushes and closes the underlying journal.
func (d *OnUseDB) Close() error { return d.log.Close() }

// DecodeTimestamp parses a value produced by Touch back into a Unix-nano
// timestamp, as read back via ReadSideLog.
func DecodeTimestamp(value []byte) (int64, bool) {
	if len(value) != 8 {
		return 0, false
	}
	return int64(binary.LittleEndian.Uint64(value)), true
}

// RewriteOnUseDB replaces the on-use journal at path with exactly one
// record per key in values. merge --last-use uses this to write back a
// reconciled map without leaving stale duplicate keys in the journal (a
// plain Append would grow the file forever across repeated merges).
func RewriteOnUseDB(path string, values map[fossilize.Hash64][]byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("recorder: rewrite on-use database %s: %w", path, err)
	}
	log := &sideLog{f: f, w: bufio.NewWriter(f)}
	for k, v := range values {
		if err := log.Append(k, v); err != nil {
			log.Close()
			return err
		}
	}
	return log.Close()
}

// MergeLastUse reconciles two on-use maps (as produced by ReadSideLog),
// keeping the maximum timestamp for each hash — the semantics
// merge --last-use needs when unioning archives that were recorded by
// different sessions.
func MergeLastUse(a, b map[fossilize.Hash64][]byte) map[fossilize.Hash64][]byte {
	out := make(map[fossilize.Hash64][]byte, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		cur, ok := out[k]
		if !ok {
			out[k] = v
			continue
		}
		ct, _ := DecodeTimestamp(cur)
		nt, _ := DecodeTimestamp(v)
		if nt > ct {
			out[k] = v
		}
	}
	return out
}
