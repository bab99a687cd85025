package recorder

import "github.com/prysmaticlabs/go-bitfield"

// SubpassMeta records, per subpass index, whether that subpass uses a
// color attachment and/or a depth-stencil attachment. The Recorder builds
// and caches one per recorded render pass; canonhash and deepcopy do not
// consult it when deciding which graphics-pipeline sub-structures are
// live. The first 16 subpasses pack into a single uint32 (2 bits each, the
// common case for real render passes); subpasses beyond that spill into a
// bitfield.Bitlist so a handful of exotic many-subpass render passes don't
// force every render pass to pay for an overflow vector.
type SubpassMeta struct {
	inline   uint32
	overflow bitfield.Bitlist
}

const inlineSubpasses = 16

// NewSubpassMeta allocates storage for a render pass with numSubpasses
// subpasses.
func NewSubpassMeta(numSubpasses int) *SubpassMeta {
	m := &SubpassMeta{}
	if numSubpasses > inlineSubpasses {
		m.overflow = bitfield.NewBitlist(uint64(2 * (numSubpasses - inlineSubpasses)))
	}
	return m
}

// Set records whether subpass uses a color and/or depth-stencil
// attachment.
func (m *SubpassMeta) Set(subpass int, usesColor, usesDepthStencil bool) {
	if subpass < inlineSubpasses {
		shift := uint(subpass * 2)
		mask := uint32(0b11) << shift
		m.inline &^= mask
		var bits uint32
		if usesColor {
			bits |= 1
		}
		if usesDepthStencil {
			bits |= 2
		}
		m.inline |= bits << shift
		return
	}
	idx := uint64(subpass-inlineSubpasses) * 2
	m.overflow.SetBitAt(idx, usesColor)
	m.overflow.SetBitAt(idx+1, usesDepthStencil)
}

// Get returns whether subpass uses a color and/or depth-stencil
// attachment. Querying past the range given to NewSubpassMeta returns
// false, false.
func (m *SubpassMeta) Get(subpass int) (usesColor, usesDepthStencil bool) {
	if subpass < inlineSubpasses {
		bits := (m.inline >> uint(subpass*2)) & 0b11
		return bits&1 != 0, bits&2 != 0
	}
	idx := uint64(subpass-inlineSubpasses) * 2
	if m.overflow == nil || idx+1 >= m.overflow.Len() {
		return false, false
	}
	return m.overflow.BitAt(idx), m.overflow.BitAt(idx + 1)
}

// BuildSubpassMeta derives SubpassMeta for every subpass of a render pass
// from per-subpass inputs: subpass i uses color if colorCounts[i] > 0 and
// uses depth-stencil if hasDepthStencil[i] is true. The Recorder passes
// len(ColorAttachments) and whether DepthStencilAttachment is non-nil, so
// references to the unused attachment index count as uses.
func BuildSubpassMeta(numSubpasses int, colorCounts []int, hasDepthStencil []bool) *SubpassMeta {
	m := NewSubpassMeta(numSubpasses)
	for i := 0; i < numSubpasses; i++ {
		usesColor := i < len(colorCounts) && colorCounts[i] > 0
		usesDS := i < len(hasDepthStencil) && hasDepthStencil[i]
		m.Set(i, usesColor, usesDS)
	}
	return m
}
