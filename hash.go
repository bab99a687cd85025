// Package fossilize implements a content-addressable cache for Vulkan
// pipeline creation descriptors: canonical hashing, deep-copying into an
// arena, JSON(+varint) serialization, and a family of archive backends.
package fossilize

import "math"

// Hash64 is the canonical content hash of a descriptor graph or a slice of
// bytes within one. It is never used for cryptographic purposes.
type Hash64 uint64

const (
	fnvOffsetBasis Hash64 = 0xcbf29ce484222325
	fnvPrime       Hash64 = 0x100000001b3
)

// Hasher accumulates a 64-bit FNV-1a-style digest over a sequence of typed
// fields. NewHasher returns one reset to the FNV offset basis; a zero-value
// Hasher starts from 0 instead.
//
// Hasher is not safe for concurrent use; callers that hash many independent
// entities concurrently should pull one from the package-level pool.
type Hasher struct {
	acc Hasher64
}

// Hasher64 is the raw accumulator, split out so it can be embedded or reset
// independently of the pooled Hasher wrapper.
type Hasher64 struct {
	h Hash64
}

// Reset restores the accumulator to the FNV offset basis.
func (h *Hasher64) Reset() { h.h = fnvOffsetBasis }

// Sum returns the current digest without mutating the accumulator.
func (h *Hasher64) Sum() Hash64 { return h.h }

func (h *Hasher64) mixByte(b byte) {
	h.h *= fnvPrime
	h.h ^= Hash64(b)
}

// WriteBytes folds raw bytes into the digest in order.
func (h *Hasher64) WriteBytes(b []byte) {
	for _, c := range b {
		h.mixByte(c)
	}
}

// WriteU32 folds a little-endian uint32 into the digest.
func (h *Hasher64) WriteU32(v uint32) {
	h.mixByte(byte(v))
	h.mixByte(byte(v >> 8))
	h.mixByte(byte(v >> 16))
	h.mixByte(byte(v >> 24))
}

// WriteU64 folds a little-endian uint64 into the digest.
func (h *Hasher64) WriteU64(v uint64) {
	h.WriteU32(uint32(v))
	h.WriteU32(uint32(v >> 32))
}

// WriteF32 folds an IEEE-754 float32 into the digest via its bit pattern.
func (h *Hasher64) WriteF32(v float32) { h.WriteU32(math.Float32bits(v)) }

// WriteBool folds a boolean as a single 0/1 byte.
func (h *Hasher64) WriteBool(v bool) {
	if v {
		h.mixByte(1)
	} else {
		h.mixByte(0)
	}
}

// WriteString folds a string's raw bytes, length-prefixed so that
// {"ab","c"} and {"a","bc"} never collide.
func (h *Hasher64) WriteString(s string) {
	h.WriteU32(uint32(len(s)))
	h.WriteBytes([]byte(s))
}

// WriteZero folds a fixed number of zero bytes, used when a field is
// elided from the hash (e.g. pipeline state masked off by dynamic state).
func (h *Hasher64) WriteZero(n int) {
	for i := 0; i < n; i++ {
		h.mixByte(0)
	}
}

// NewHasher returns a Hasher reset to its initial state.
func NewHasher() *Hasher {
	hr := &Hasher{}
	hr.acc.Reset()
	return hr
}

// U32 folds a uint32 and returns the Hasher for chaining.
func (h *Hasher) U32(v uint32) *Hasher { h.acc.WriteU32(v); return h }

// U64 folds a uint64 and returns the Hasher for chaining.
func (h *Hasher) U64(v uint64) *Hasher { h.acc.WriteU64(v); return h }

// F32 folds a float32 and returns the Hasher for chaining.
func (h *Hasher) F32(v float32) *Hasher { h.acc.WriteF32(v); return h }

// Bool folds a bool and returns the Hasher for chaining.
func (h *Hasher) Bool(v bool) *Hasher { h.acc.WriteBool(v); return h }

// Bytes folds a length-prefixed byte slice and returns the Hasher for
// chaining.
func (h *Hasher) Bytes(b []byte) *Hasher {
	h.acc.WriteU32(uint32(len(b)))
	h.acc.WriteBytes(b)
	return h
}

// String folds a length-prefixed string and returns the Hasher for
// chaining.
func (h *Hasher) String(s string) *Hasher { h.acc.WriteString(s); return h }

// Zero folds n zero bytes in place of an elided field.
func (h *Hasher) Zero(n int) *Hasher { h.acc.WriteZero(n); return h }

// Sub folds the digest of a nested Hasher as a single uint64 field, the
// idiom used to compose per-entity hashes (e.g. a pipeline layout's hash
// folded into the pipeline that references it).
func (h *Hasher) Sub(sum Hash64) *Hasher { h.acc.WriteU64(uint64(sum)); return h }

// Sum returns the accumulated digest.
func (h *Hasher) Sum() Hash64 { return h.acc.Sum() }
