package canonhash

import (
	"github.com/fossilize/fossilize"
	"github.com/fossilize/fossilize/descriptor"
)

// Sampler computes the canonical hash of a sampler descriptor.
func Sampler(s *descriptor.Sampler) (fossilize.Hash64, error) {
	h := fossilize.AcquireHasher()
	defer fossilize.ReleaseHasher(h)

	h.U32(s.Flags).U32(s.MagFilter).U32(s.MinFilter).U32(s.MipmapMode)
	h.U32(s.AddressModeU).U32(s.AddressModeV).U32(s.AddressModeW)
	h.F32(s.MipLodBias).Bool(s.AnisotropyEnable).F32(s.MaxAnisotropy)
	h.Bool(s.CompareEnable).U32(s.CompareOp)
	h.F32(s.MinLod).F32(s.MaxLod).U32(s.BorderColor).Bool(s.UnnormalizedCoordinates)
	if err := hashChain(h, s.Chain); err != nil {
		return 0, err
	}
	return h.Sum(), nil
}

// hashBinding folds one descriptor set layout binding, including the
// hashes of its immutable samplers (samplers are referenced by hash
// directly, so no lookup is needed).
func hashBinding(h *fossilize.Hasher, b descriptor.DescriptorSetLayoutBinding) {
	h.U32(b.Binding).U32(b.DescriptorType).U32(b.DescriptorCount).U32(b.StageFlags)
	h.U32(uint32(len(b.ImmutableSamplers)))
	for _, s := range b.ImmutableSamplers {
		h.Sub(s)
	}
}

// DescriptorSetLayout computes the canonical hash of a descriptor set
// layout. Bindings are hashed in the order given; spec lifecycle rules
// require the caller to have already canonicalized binding order upstream
// if order-independence is desired.
func DescriptorSetLayout(d *descriptor.DescriptorSetLayout) (fossilize.Hash64, error) {
	h := fossilize.AcquireHasher()
	defer fossilize.ReleaseHasher(h)

	h.U32(d.Flags).U32(uint32(len(d.Bindings)))
	for _, b := range d.Bindings {
		hashBinding(h, b)
	}
	if err := hashChain(h, d.Chain); err != nil {
		return 0, err
	}
	return h.Sum(), nil
}

// PipelineLayout computes the canonical hash of a pipeline layout.
func PipelineLayout(p *descriptor.PipelineLayout) (fossilize.Hash64, error) {
	h := fossilize.AcquireHasher()
	defer fossilize.ReleaseHasher(h)

	h.U32(p.Flags).U32(uint32(len(p.SetLayouts)))
	for _, s := range p.SetLayouts {
		h.Sub(s)
	}
	h.U32(uint32(len(p.PushConstantRanges)))
	for _, r := range p.PushConstantRanges {
		h.U32(r.StageFlags).U32(r.Offset).U32(r.Size)
	}
	return h.Sum(), nil
}

// ShaderModule computes the canonical hash of a shader module's raw SPIR-V
// word stream.
func ShaderModule(s *descriptor.ShaderModule) (fossilize.Hash64, error) {
	h := fossilize.AcquireHasher()
	defer fossilize.ReleaseHasher(h)

	h.U32(s.Flags).U32(uint32(len(s.Code)))
	for _, w := range s.Code {
		h.U32(w)
	}
	return h.Sum(), nil
}

func hashAttachmentRef(h *fossilize.Hasher, r descriptor.AttachmentReference) {
	h.U32(r.Attachment).U32(r.Layout)
}

func hashSubpass(h *fossilize.Hasher, s descriptor.SubpassDescription) {
	h.U32(s.Flags).U32(s.PipelineBindPoint)
	h.U32(uint32(len(s.InputAttachments)))
	for _, r := range s.InputAttachments {
		hashAttachmentRef(h, r)
	}
	h.U32(uint32(len(s.ColorAttachments)))
	for _, r := range s.ColorAttachments {
		hashAttachmentRef(h, r)
	}
	h.U32(uint32(len(s.ResolveAttachments)))
	for _, r := range s.ResolveAttachments {
		hashAttachmentRef(h, r)
	}
	if s.DepthStencilAttachment != nil {
		h.Bool(true)
		hashAttachmentRef(h, *s.DepthStencilAttachment)
	} else {
		h.Bool(false)
	}
	h.U32(uint32(len(s.PreserveAttachments)))
	for _, p := range s.PreserveAttachments {
		h.U32(p)
	}
}

// RenderPass computes the canonical hash of a render pass, whether built
// via the v1 or v2 creation API. Version is folded in because the two
// entry points differ in default subpass-dependency semantics.
func RenderPass(r *descriptor.RenderPass) (fossilize.Hash64, error) {
	h := fossilize.AcquireHasher()
	defer fossilize.ReleaseHasher(h)

	h.U32(uint32(r.Version)).U32(r.Flags)
	h.U32(uint32(len(r.Attachments)))
	for _, a := range r.Attachments {
		h.U32(a.Flags).U32(a.Format).U32(a.Samples)
		h.U32(a.LoadOp).U32(a.StoreOp).U32(a.StencilLoadOp).U32(a.StencilStoreOp)
		h.U32(a.InitialLayout).U32(a.FinalLayout)
	}
	h.U32(uint32(len(r.Subpasses)))
	for _, s := range r.Subpasses {
		hashSubpass(h, s)
	}
	h.U32(uint32(len(r.Dependencies)))
	for _, d := range r.Dependencies {
		h.U32(d.SrcSubpass).U32(d.DstSubpass)
		h.U32(d.SrcStageMask).U32(d.DstStageMask)
		h.U32(d.SrcAccessMask).U32(d.DstAccessMask)
		h.U32(d.DependencyFlags)
	}
	if err := hashChain(h, r.Chain); err != nil {
		return 0, err
	}
	return h.Sum(), nil
}

func hashStageCommon(h *fossilize.Hasher, s descriptor.StageCreateInfo) {
	h.U32(s.Flags).U32(s.Stage).Sub(s.Module).String(s.EntryPoint)
	h.Bytes(s.SpecializationData)
}

// hasDynamic reports whether ds is present in states.
func hasDynamic(states []descriptor.DynamicState, ds descriptor.DynamicState) bool {
	for _, s := range states {
		if s == ds {
			return true
		}
	}
	return false
}

// Dynamic state bits recognized for fixed-function elision. These mirror
// the subset of VkDynamicState that affects fields this implementation
// hashes; anything else dynamic has no corresponding static field to zero.
const (
	DynamicViewport descriptor.DynamicState = iota + 1
	DynamicScissor
	DynamicLineWidth
	DynamicDepthBias
	DynamicBlendConstants
	DynamicDepthBounds
	DynamicStencilCompareMask
	DynamicStencilWriteMask
	DynamicStencilReference
	DynamicCullMode
	DynamicFrontFace
	DynamicPrimitiveTopology
	// DynamicColorBlendEnable, DynamicColorWriteMask and
	// DynamicColorBlendEquation are the three EDS3 (extended dynamic
	// state 3) bits that together make a graphics pipeline's entire
	// per-attachment color-blend array dynamic. When all three are set,
	// spec.md §4.3 point 5 requires the whole pAttachments array — not
	// just the fields each bit would individually suppress — to be
	// elided, since the driver ignores the static array entirely.
	DynamicColorBlendEnable
	DynamicColorWriteMask
	DynamicColorBlendEquation
)

// fullyDynamicColorBlendAttachments reports whether all three EDS3 bits
// that jointly supersede the static color-blend attachment array are set,
// per spec.md §4.3 point 5's "fully dynamic color-blend attachment state
// nulls pAttachments" special case.
func fullyDynamicColorBlendAttachments(states []descriptor.DynamicState) bool {
	return hasDynamic(states, DynamicColorBlendEnable) &&
		hasDynamic(states, DynamicColorWriteMask) &&
		hasDynamic(states, DynamicColorBlendEquation)
}

// GraphicsPipeline computes the canonical hash of a graphics pipeline.
// Fixed-function state left dynamic is hashed as zero: the actual value
// set at bind time is per-draw, not part of the pipeline's cached
// identity. A present Flags2 subsumes the legacy Flags field, and a
// nonzero LibraryFlags restricts which of the vertex-input,
// pre-rasterization-shaders, fragment-shader and fragment-output-interface
// state blocks (and the stages that belong to them) actually contribute.
func GraphicsPipeline(g *descriptor.GraphicsPipeline) (fossilize.Hash64, error) {
	h := fossilize.AcquireHasher()
	defer fossilize.ReleaseHasher(h)

	if g.Flags2 != nil {
		// FLAGS_2 subsumes the legacy flags field entirely: it hashes as
		// zero and only the wider value contributes (spec.md §4.3 point 1).
		h.U32(0).U64(descriptor.NormalizeFlags2(*g.Flags2))
	} else {
		h.U32(descriptor.NormalizeFlags(g.Flags)).U64(0)
	}

	preRasterLive := descriptor.LibraryInterfaceLive(g.LibraryFlags, descriptor.GraphicsLibraryPreRasterizationShadersBit)
	fragmentLive := descriptor.LibraryInterfaceLive(g.LibraryFlags, descriptor.GraphicsLibraryFragmentShaderBit)
	liveStages := g.Stages
	if g.LibraryFlags != 0 {
		liveStages = nil
		for _, s := range g.Stages {
			if s.Stage&descriptor.PreRasterizationStageMask != 0 && !preRasterLive {
				continue
			}
			if s.Stage&descriptor.ShaderStageFragmentBit != 0 && !fragmentLive {
				continue
			}
			liveStages = append(liveStages, s)
		}
	}
	h.U32(uint32(len(liveStages)))
	for _, s := range liveStages {
		hashStageCommon(h, s)
	}
	h.Sub(g.Layout).Sub(g.RenderPass).U32(g.Subpass)
	if g.Flags&descriptor.PipelineCreateDerivativeBit != 0 {
		h.Sub(g.BasePipeline)
	} else {
		h.Sub(0)
	}
	h.U32(uint32(len(g.Libraries)))
	for _, l := range g.Libraries {
		h.Sub(l)
	}
	h.U32(uint32(len(g.DynamicStates)))
	for _, d := range g.DynamicStates {
		h.U32(uint32(d))
	}

	vertexInputLive := descriptor.LibraryInterfaceLive(g.LibraryFlags, descriptor.GraphicsLibraryVertexInputInterfaceBit)

	if g.VertexInputState != nil && vertexInputLive {
		h.Bool(true)
		v := g.VertexInputState
		h.U32(uint32(len(v.Bindings)))
		for _, b := range v.Bindings {
			h.U32(b.Binding).U32(b.Stride).U32(b.InputRate)
		}
		h.U32(uint32(len(v.Attributes)))
		for _, a := range v.Attributes {
			h.U32(a.Location).U32(a.Binding).U32(a.Format).U32(a.Offset)
		}
	} else {
		h.Bool(false)
	}

	if g.InputAssemblyState != nil && vertexInputLive {
		h.Bool(true)
		a := g.InputAssemblyState
		topology := a.Topology
		if hasDynamic(g.DynamicStates, DynamicPrimitiveTopology) {
			topology = 0
		}
		h.U32(topology).Bool(a.PrimitiveRestartEnable)
	} else {
		h.Bool(false)
	}

	if r := g.RasterizationState; r != nil && preRasterLive {
		h.Bool(true)
		cullMode, frontFace, lineWidth := r.CullMode, r.FrontFace, r.LineWidth
		if hasDynamic(g.DynamicStates, DynamicCullMode) {
			cullMode = 0
		}
		if hasDynamic(g.DynamicStates, DynamicFrontFace) {
			frontFace = 0
		}
		if hasDynamic(g.DynamicStates, DynamicLineWidth) {
			lineWidth = 0
		}
		h.Bool(r.DepthClampEnable).Bool(r.RasterizerDiscardEnable)
		h.U32(r.PolygonMode).U32(cullMode).U32(frontFace)
		h.Bool(r.DepthBiasEnable)
		if hasDynamic(g.DynamicStates, DynamicDepthBias) {
			h.F32(0).F32(0).F32(0)
		} else {
			h.F32(r.DepthBiasConstantFactor).F32(r.DepthBiasClamp).F32(r.DepthBiasSlopeFactor)
		}
		h.F32(lineWidth)
	} else {
		h.Bool(false)
	}

	fragmentOutputLive := descriptor.LibraryInterfaceLive(g.LibraryFlags, descriptor.GraphicsLibraryFragmentOutputInterfaceBit)

	if m := g.MultisampleState; m != nil && fragmentOutputLive {
		h.Bool(true)
		h.U32(m.RasterizationSamples).Bool(m.SampleShadingEnable).F32(m.MinSampleShading)
		h.Bool(m.AlphaToCoverageEnable).Bool(m.AlphaToOneEnable)
	} else {
		h.Bool(false)
	}

	if d := g.DepthStencilState; d != nil && fragmentLive {
		h.Bool(true)
		h.Bool(d.DepthTestEnable).Bool(d.DepthWriteEnable).U32(d.DepthCompareOp)
		h.Bool(d.DepthBoundsTestEnable).Bool(d.StencilTestEnable)
		front, back := d.Front, d.Back
		if hasDynamic(g.DynamicStates, DynamicStencilCompareMask) {
			front.CompareMask, back.CompareMask = 0, 0
		}
		if hasDynamic(g.DynamicStates, DynamicStencilWriteMask) {
			front.WriteMask, back.WriteMask = 0, 0
		}
		if hasDynamic(g.DynamicStates, DynamicStencilReference) {
			front.Reference, back.Reference = 0, 0
		}
		hashStencilOp(h, front)
		hashStencilOp(h, back)
		minB, maxB := d.MinDepthBounds, d.MaxDepthBounds
		if hasDynamic(g.DynamicStates, DynamicDepthBounds) {
			minB, maxB = 0, 0
		}
		h.F32(minB).F32(maxB)
	} else {
		h.Bool(false)
	}

	if c := g.ColorBlendState; c != nil && fragmentOutputLive {
		h.Bool(true)
		h.Bool(c.LogicOpEnable).U32(c.LogicOp)
		if fullyDynamicColorBlendAttachments(g.DynamicStates) {
			// EDS3: COLOR_BLEND_ENABLE + COLOR_WRITE_MASK +
			// COLOR_BLEND_EQUATION all dynamic nulls pAttachments
			// entirely; the driver never reads the static array, so
			// its count and per-attachment fields are elided, not just
			// zeroed field-by-field.
			h.U32(0)
		} else {
			h.U32(uint32(len(c.Attachments)))
			for _, a := range c.Attachments {
				h.Bool(a.BlendEnable).U32(a.SrcColorBlendFactor).U32(a.DstColorBlendFactor)
				h.U32(a.ColorBlendOp).U32(a.SrcAlphaBlendFactor).U32(a.DstAlphaBlendFactor)
				h.U32(a.AlphaBlendOp).U32(a.ColorWriteMask)
			}
		}
		constants := c.BlendConstants
		if hasDynamic(g.DynamicStates, DynamicBlendConstants) {
			constants = [4]float32{}
		}
		for _, v := range constants {
			h.F32(v)
		}
	} else {
		h.Bool(false)
	}

	if v := g.ViewportState; v != nil && preRasterLive {
		h.Bool(true)
		vc, sc := v.ViewportCount, v.ScissorCount
		if hasDynamic(g.DynamicStates, DynamicViewport) {
			vc = 0
		}
		if hasDynamic(g.DynamicStates, DynamicScissor) {
			sc = 0
		}
		h.U32(vc).U32(sc)
	} else {
		h.Bool(false)
	}

	if err := hashChain(h, g.Chain); err != nil {
		return 0, err
	}
	return h.Sum(), nil
}

func hashStencilOp(h *fossilize.Hasher, s descriptor.StencilOpState) {
	h.U32(s.FailOp).U32(s.PassOp).U32(s.DepthFailOp).U32(s.CompareOp)
	h.U32(s.CompareMask).U32(s.WriteMask).U32(s.Reference)
}

// HashComputeStage hashes a compute pipeline's single stage using a field
// order distinct from hashStageCommon. This mirrors an existing asymmetry
// between compute and graphics/raytracing pipeline hashing: unifying the
// two would change the hash of every previously cached compute pipeline,
// so the mismatched order is kept rather than "fixed".
func HashComputeStage(h *fossilize.Hasher, s descriptor.StageCreateInfo) {
	h.Sub(s.Module).U32(s.Stage).U32(s.Flags).String(s.EntryPoint)
	h.Bytes(s.SpecializationData)
}

// ComputePipeline computes the canonical hash of a compute pipeline.
func ComputePipeline(c *descriptor.ComputePipeline) (fossilize.Hash64, error) {
	h := fossilize.AcquireHasher()
	defer fossilize.ReleaseHasher(h)

	h.U32(descriptor.NormalizeFlags(c.Flags))
	HashComputeStage(h, c.Stage)
	h.Sub(c.Layout)
	if c.Flags&descriptor.PipelineCreateDerivativeBit != 0 {
		h.Sub(c.BasePipeline)
	} else {
		h.Sub(0)
	}
	return h.Sum(), nil
}

// RaytracingPipeline computes the canonical hash of a ray tracing
// pipeline.
func RaytracingPipeline(r *descriptor.RaytracingPipeline) (fossilize.Hash64, error) {
	h := fossilize.AcquireHasher()
	defer fossilize.ReleaseHasher(h)

	h.U32(descriptor.NormalizeFlags(r.Flags))
	h.U32(uint32(len(r.Stages)))
	for _, s := range r.Stages {
		hashStageCommon(h, s)
	}
	h.U32(uint32(len(r.Groups)))
	for _, g := range r.Groups {
		h.U32(g.Type).U32(g.GeneralShader).U32(g.ClosestHitShader)
		h.U32(g.AnyHitShader).U32(g.IntersectionShader)
	}
	h.U32(r.MaxRecursionDepth).Sub(r.Layout)
	if r.Flags&descriptor.PipelineCreateDerivativeBit != 0 {
		h.Sub(r.BasePipeline)
	} else {
		h.Sub(0)
	}
	h.U32(uint32(len(r.Libraries)))
	for _, l := range r.Libraries {
		h.Sub(l)
	}
	h.U32(uint32(len(r.DynamicStates)))
	for _, d := range r.DynamicStates {
		h.U32(uint32(d))
	}
	if err := hashChain(h, r.Chain); err != nil {
		return 0, err
	}
	return h.Sum(), nil
}

// ApplicationInfo computes the canonical hash of an application info
// record. Unlike the other entity kinds, application info intentionally
// excludes ApplicationVersion/EngineVersion from the hash: the filter
// package applies its minimum-version gates to those fields separately
// (its bucket hash does not use them) so that driver-side workarounds
// keyed on exact versions never fragment the underlying pipeline cache.
func ApplicationInfo(a *descriptor.ApplicationInfo) (fossilize.Hash64, error) {
	h := fossilize.AcquireHasher()
	defer fossilize.ReleaseHasher(h)

	h.U32(a.APIVersion).String(a.ApplicationName).String(a.EngineName)
	if err := hashChain(h, a.Chain); err != nil {
		return 0, err
	}
	return h.Sum(), nil
}

// ApplicationBlobLink computes the canonical hash of an application blob
// link.
func ApplicationBlobLink(l *descriptor.ApplicationBlobLink) (fossilize.Hash64, error) {
	h := fossilize.AcquireHasher()
	defer fossilize.ReleaseHasher(h)

	h.Sub(l.ApplicationInfo).Bytes(l.Blob)
	return h.Sum(), nil
}
