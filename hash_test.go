package fossilize

import "testing"

func TestHasherDeterministic(t *testing.T) {
	build := func() Hash64 {
		h := NewHasher()
		h.U32(42).String("hello").Bool(true).F32(1.5).Bytes([]byte{1, 2, 3})
		return h.Sum()
	}
	a, b := build(), build()
	if a != b {
		t.Fatalf("hash not deterministic: %x != %x", a, b)
	}
}

func TestHasherFieldOrderMatters(t *testing.T) {
	h1 := NewHasher()
	h1.U32(1).U32(2)

	h2 := NewHasher()
	h2.U32(2).U32(1)

	if h1.Sum() == h2.Sum() {
		t.Fatal("field order should affect the digest")
	}
}

func TestHasherStringLengthPrefixAvoidsCollision(t *testing.T) {
	h1 := NewHasher()
	h1.String("ab").String("c")

	h2 := NewHasher()
	h2.String("a").String("bc")

	if h1.Sum() == h2.Sum() {
		t.Fatal("length-prefixing should prevent {ab,c} == {a,bc}")
	}
}

func TestHasherZeroMatchesExplicitZeroBytes(t *testing.T) {
	h1 := NewHasher()
	h1.Zero(4)

	h2 := NewHasher()
	h2.acc.WriteBytes([]byte{0, 0, 0, 0})

	if h1.Sum() != h2.Sum() {
		t.Fatal("Zero(n) should fold the same as n explicit zero bytes")
	}
}

func TestAcquireReleaseHasherResets(t *testing.T) {
	h := AcquireHasher()
	h.U32(7)
	ReleaseHasher(h)

	h2 := AcquireHasher()
	defer ReleaseHasher(h2)
	if h2.Sum() != NewHasher().Sum() {
		t.Fatal("AcquireHasher should return a reset accumulator")
	}
}
