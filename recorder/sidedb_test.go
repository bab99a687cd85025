package recorder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fossilize/fossilize"
)

func TestSideLogAppendAndReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "side.log")
	log, err := openSideLog(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := log.Append(1, []byte("first")); err != nil {
		t.Fatal(err)
	}
	if err := log.Append(2, []byte("second")); err != nil {
		t.Fatal(err)
	}
	// A repeated key should leave only the last value when replayed.
	if err := log.Append(1, []byte("first-updated")); err != nil {
		t.Fatal(err)
	}
	if err := log.Close(); err != nil {
		t.Fatal(err)
	}

	got, err := ReadSideLog(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got[1]) != "first-updated" {
		t.Fatalf("key 1 = %q, want last-appended value", got[1])
	}
	if string(got[2]) != "second" {
		t.Fatalf("key 2 = %q, want %q", got[2], "second")
	}
}

func TestReadSideLogMissingFileReturnsEmptyMap(t *testing.T) {
	got, err := ReadSideLog(filepath.Join(t.TempDir(), "nonexistent.log"))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d entries from a nonexistent journal, want 0", len(got))
	}
}

func TestReadSideLogToleratesTruncatedTrailingRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "side.log")
	log, err := openSideLog(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := log.Append(1, []byte("complete")); err != nil {
		t.Fatal(err)
	}
	if err := log.Append(2, []byte("also complete")); err != nil {
		t.Fatal(err)
	}
	if err := log.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data[:len(data)-2], 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ReadSideLog(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got[1]) != "complete" {
		t.Fatalf("key 1 = %q, want the intact first record preserved", got[1])
	}
	if _, ok := got[2]; ok {
		t.Fatal("the truncated trailing record should be silently discarded, not surfaced")
	}
}

func TestModuleIdentifierDBRejectsOversizedIdentifier(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moduleident.log")
	db, err := OpenModuleIdentifierDB(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	oversized := make([]byte, 33)
	if err := db.Record(1, oversized); err == nil {
		t.Fatal("expected an error recording a >32 byte module identifier")
	}
	if err := db.Record(2, make([]byte, 32)); err != nil {
		t.Fatalf("a 32-byte identifier should be accepted: %v", err)
	}
}

func TestOnUseDBTouchAndDecodeTimestamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "onuse.log")
	db, err := OpenOnUseDB(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Touch(42, 1000); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	got, err := ReadSideLog(path)
	if err != nil {
		t.Fatal(err)
	}
	ts, ok := DecodeTimestamp(got[42])
	if !ok || ts != 1000 {
		t.Fatalf("DecodeTimestamp = %d, %v, want 1000, true", ts, ok)
	}
}

func TestMergeLastUseKeepsMaxTimestamp(t *testing.T) {
	encode := func(ts int64) []byte {
		var b [8]byte
		return encodeTimestampForTest(ts, b[:])
	}
	a := map[fossilize.Hash64][]byte{1: encode(100), 2: encode(500)}
	b := map[fossilize.Hash64][]byte{1: encode(200), 3: encode(50)}

	merged := MergeLastUse(a, b)
	if ts, _ := DecodeTimestamp(merged[1]); ts != 200 {
		t.Fatalf("key 1 merged timestamp = %d, want 200 (the larger value)", ts)
	}
	if ts, _ := DecodeTimestamp(merged[2]); ts != 500 {
		t.Fatalf("key 2 merged timestamp = %d, want 500", ts)
	}
	if ts, _ := DecodeTimestamp(merged[3]); ts != 50 {
		t.Fatalf("key 3 merged timestamp = %d, want 50", ts)
	}
}

func TestRewriteOnUseDBProducesExactlyOneRecordPerKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "onuse.log")
	values := map[fossilize.Hash64][]byte{
		1: encodeTimestampForTest(10, make([]byte, 8)),
		2: encodeTimestampForTest(20, make([]byte, 8)),
	}
	if err := RewriteOnUseDB(path, values); err != nil {
		t.Fatal(err)
	}
	got, err := ReadSideLog(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d keys, want 2", len(got))
	}

	// Rewriting again with a narrower key set must not leave the old key
	// behind, unlike a plain Append would.
	if err := RewriteOnUseDB(path, map[fossilize.Hash64][]byte{1: encodeTimestampForTest(99, make([]byte, 8))}); err != nil {
		t.Fatal(err)
	}
	got, err = ReadSideLog(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d keys after rewrite, want 1", len(got))
	}
	if ts, _ := DecodeTimestamp(got[1]); ts != 99 {
		t.Fatalf("key 1 = %d, want 99", ts)
	}
}

func encodeTimestampForTest(ts int64, buf []byte) []byte {
	for i := 0; i < 8; i++ {
		buf[i] = byte(ts >> (8 * i))
	}
	return buf
}
