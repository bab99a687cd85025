package fossilize

import "sync"

// hasherPool reuses Hasher instances the way the teacher's encoderPool /
// decoderPool reuse Encoder / Decoder instances, avoiding an allocation per
// hashed entity during a busy recording session.
var hasherPool = sync.Pool{
	New: func() any { return NewHasher() },
}

// AcquireHasher pulls a freshly reset Hasher from the shared pool.
func AcquireHasher() *Hasher {
	h := hasherPool.Get().(*Hasher)
	h.acc.Reset()
	return h
}

// ReleaseHasher returns h to the shared pool. Callers must not use h after
// calling ReleaseHasher.
func ReleaseHasher(h *Hasher) {
	hasherPool.Put(h)
}
