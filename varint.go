package fossilize

// AppendVarint appends v to dst using the 7-bit continuation encoding used
// for the SPIR-V word tail of serialized shader modules: each byte carries
// 7 payload bits in its low bits and a continuation flag in its high bit.
func AppendVarint(dst []byte, v uint32) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

// ReadVarint decodes a single varint from the front of b, returning the
// value and the number of bytes consumed. It returns ok=false if b ends
// before a terminating byte (high bit clear) is found.
func ReadVarint(b []byte) (v uint32, n int, ok bool) {
	var shift uint
	for n < len(b) {
		c := b[n]
		n++
		v |= uint32(c&0x7f) << shift
		if c&0x80 == 0 {
			return v, n, true
		}
		shift += 7
		if shift >= 35 {
			return 0, n, false
		}
	}
	return 0, n, false
}
