// Package deepcopy clones descriptor graphs, pruning any sub-state that
// canonhash treats as dead (e.g. fixed-function state superseded by
// dynamic state) so that what's retained in memory matches what
// participates in the entity's identity. Every function takes a
// *fossilize.Arena, but the copies are ordinary Go heap allocations; the
// arena is not used.
package deepcopy

import (
	"github.com/fossilize/fossilize"
	"github.com/fossilize/fossilize/canonhash"
	"github.com/fossilize/fossilize/descriptor"
)

func hasDynamic(states []descriptor.DynamicState, ds descriptor.DynamicState) bool {
	for _, s := range states {
		if s == ds {
			return true
		}
	}
	return false
}

func cloneSlice[T any](a *fossilize.Arena, src []T) []T {
	if len(src) == 0 {
		return nil
	}
	dst := make([]T, len(src))
	copy(dst, src)
	return dst
}

// Sampler returns an arena-independent deep copy of s. Samplers carry no
// prunable dead state.
func Sampler(a *fossilize.Arena, s *descriptor.Sampler) *descriptor.Sampler {
	out := *s
	out.Chain = cloneChain(s.Chain)
	return &out
}

func cloneChain(c descriptor.Chain) descriptor.Chain {
	if len(c) == 0 {
		return nil
	}
	out := make(descriptor.Chain, len(c))
	for i, link := range c {
		switch v := link.(type) {
		case *descriptor.SamplerYcbcrConversionInfo:
			cp := *v
			out[i] = &cp
		case *descriptor.PipelineRenderingCreateInfo:
			cp := *v
			cp.ColorAttachmentFormats = append([]uint32(nil), v.ColorAttachmentFormats...)
			out[i] = &cp
		case *descriptor.PipelineRobustnessCreateInfo:
			cp := *v
			out[i] = &cp
		case *descriptor.PhysicalDeviceFeatures2:
			cp := &descriptor.PhysicalDeviceFeatures2{Features: make(map[string]bool, len(v.Features))}
			for k, val := range v.Features {
				cp.Features[k] = val
			}
			out[i] = cp
		default:
			out[i] = link
		}
	}
	return out
}

// DescriptorSetLayout returns a deep copy of d.
func DescriptorSetLayout(a *fossilize.Arena, d *descriptor.DescriptorSetLayout) *descriptor.DescriptorSetLayout {
	out := &descriptor.DescriptorSetLayout{Flags: d.Flags, Chain: cloneChain(d.Chain)}
	out.Bindings = make([]descriptor.DescriptorSetLayoutBinding, len(d.Bindings))
	for i, b := range d.Bindings {
		nb := b
		nb.ImmutableSamplers = cloneSlice(a, b.ImmutableSamplers)
		out.Bindings[i] = nb
	}
	return out
}

// PipelineLayout returns a deep copy of p.
func PipelineLayout(a *fossilize.Arena, p *descriptor.PipelineLayout) *descriptor.PipelineLayout {
	out := &descriptor.PipelineLayout{Flags: p.Flags}
	out.SetLayouts = cloneSlice(a, p.SetLayouts)
	out.PushConstantRanges = cloneSlice(a, p.PushConstantRanges)
	return out
}

// ShaderModule returns a deep copy of s, including its SPIR-V words.
func ShaderModule(a *fossilize.Arena, s *descriptor.ShaderModule) *descriptor.ShaderModule {
	return &descriptor.ShaderModule{Flags: s.Flags, Code: cloneSlice(a, s.Code)}
}

// RenderPass returns a deep copy of r.
func RenderPass(a *fossilize.Arena, r *descriptor.RenderPass) *descriptor.RenderPass {
	out := &descriptor.RenderPass{Version: r.Version, Flags: r.Flags, Chain: cloneChain(r.Chain)}
	out.Attachments = cloneSlice(a, r.Attachments)
	out.Subpasses = make([]descriptor.SubpassDescription, len(r.Subpasses))
	for i, s := range r.Subpasses {
		ns := s
		ns.InputAttachments = cloneSlice(a, s.InputAttachments)
		ns.ColorAttachments = cloneSlice(a, s.ColorAttachments)
		ns.ResolveAttachments = cloneSlice(a, s.ResolveAttachments)
		ns.PreserveAttachments = cloneSlice(a, s.PreserveAttachments)
		if s.DepthStencilAttachment != nil {
			ref := *s.DepthStencilAttachment
			ns.DepthStencilAttachment = &ref
		}
		out.Subpasses[i] = ns
	}
	out.Dependencies = cloneSlice(a, r.Dependencies)
	return out
}

func cloneStage(s descriptor.StageCreateInfo) descriptor.StageCreateInfo {
	ns := s
	ns.SpecializationData = append([]byte(nil), s.SpecializationData...)
	return ns
}

// GraphicsPipeline returns a deep copy of g with dead fixed-function state
// pruned: any field superseded by an entry in DynamicStates is replaced
// with its zero value (or, for pointer fields not fully superseded, the
// individual sub-fields are zeroed); any stage or fixed-function state block
// outside the live subset LibraryFlags selects is dropped entirely; a
// present Flags2 zeroes the legacy Flags field it subsumes — all matching
// what canonhash.GraphicsPipeline treats as live.
func GraphicsPipeline(a *fossilize.Arena, g *descriptor.GraphicsPipeline) *descriptor.GraphicsPipeline {
	basePipeline := g.BasePipeline
	if g.Flags&descriptor.PipelineCreateDerivativeBit == 0 {
		// Derived-pipeline index fix-up (spec.md §4.4): with no
		// DERIVATIVE_BIT, the base pipeline reference is meaningless and
		// is zeroed.
		basePipeline = 0
	}
	var flags2 *uint64
	if g.Flags2 != nil {
		v := descriptor.NormalizeFlags2(*g.Flags2)
		flags2 = &v
	}
	flags := descriptor.NormalizeFlags(g.Flags)
	if g.Flags2 != nil {
		// FLAGS_2 subsumes the legacy field entirely once present.
		flags = 0
	}
	out := &descriptor.GraphicsPipeline{
		Flags:        flags,
		Flags2:       flags2,
		LibraryFlags: g.LibraryFlags,
		Layout:       g.Layout,
		RenderPass:   g.RenderPass,
		Subpass:      g.Subpass,
		BasePipeline: basePipeline,
		Chain:        cloneChain(g.Chain),
	}
	preRasterLive := descriptor.LibraryInterfaceLive(g.LibraryFlags, descriptor.GraphicsLibraryPreRasterizationShadersBit)
	fragmentLive := descriptor.LibraryInterfaceLive(g.LibraryFlags, descriptor.GraphicsLibraryFragmentShaderBit)
	vertexInputLive := descriptor.LibraryInterfaceLive(g.LibraryFlags, descriptor.GraphicsLibraryVertexInputInterfaceBit)
	fragmentOutputLive := descriptor.LibraryInterfaceLive(g.LibraryFlags, descriptor.GraphicsLibraryFragmentOutputInterfaceBit)

	for _, s := range g.Stages {
		if s.Stage&descriptor.PreRasterizationStageMask != 0 && !preRasterLive {
			continue
		}
		if s.Stage&descriptor.ShaderStageFragmentBit != 0 && !fragmentLive {
			continue
		}
		out.Stages = append(out.Stages, cloneStage(s))
	}
	out.Libraries = cloneSlice(a, g.Libraries)
	out.DynamicStates = cloneSlice(a, g.DynamicStates)

	if g.VertexInputState != nil && vertexInputLive {
		v := *g.VertexInputState
		v.Bindings = cloneSlice(a, g.VertexInputState.Bindings)
		v.Attributes = cloneSlice(a, g.VertexInputState.Attributes)
		out.VertexInputState = &v
	}
	if g.InputAssemblyState != nil && vertexInputLive {
		v := *g.InputAssemblyState
		if hasDynamic(g.DynamicStates, canonhash.DynamicPrimitiveTopology) {
			v.Topology = 0
		}
		out.InputAssemblyState = &v
	}
	if r := g.RasterizationState; r != nil && preRasterLive {
		v := *r
		if hasDynamic(g.DynamicStates, canonhash.DynamicCullMode) {
			v.CullMode = 0
		}
		if hasDynamic(g.DynamicStates, canonhash.DynamicFrontFace) {
			v.FrontFace = 0
		}
		if hasDynamic(g.DynamicStates, canonhash.DynamicLineWidth) {
			v.LineWidth = 0
		}
		if hasDynamic(g.DynamicStates, canonhash.DynamicDepthBias) {
			v.DepthBiasConstantFactor, v.DepthBiasClamp, v.DepthBiasSlopeFactor = 0, 0, 0
		}
		out.RasterizationState = &v
	}
	if m := g.MultisampleState; m != nil && fragmentOutputLive {
		v := *m
		out.MultisampleState = &v
	}
	if d := g.DepthStencilState; d != nil && fragmentLive {
		v := *d
		if hasDynamic(g.DynamicStates, canonhash.DynamicStencilCompareMask) {
			v.Front.CompareMask, v.Back.CompareMask = 0, 0
		}
		if hasDynamic(g.DynamicStates, canonhash.DynamicStencilWriteMask) {
			v.Front.WriteMask, v.Back.WriteMask = 0, 0
		}
		if hasDynamic(g.DynamicStates, canonhash.DynamicStencilReference) {
			v.Front.Reference, v.Back.Reference = 0, 0
		}
		if hasDynamic(g.DynamicStates, canonhash.DynamicDepthBounds) {
			v.MinDepthBounds, v.MaxDepthBounds = 0, 0
		}
		out.DepthStencilState = &v
	}
	if c := g.ColorBlendState; c != nil && fragmentOutputLive {
		v := *c
		if hasDynamic(g.DynamicStates, canonhash.DynamicColorBlendEnable) &&
			hasDynamic(g.DynamicStates, canonhash.DynamicColorWriteMask) &&
			hasDynamic(g.DynamicStates, canonhash.DynamicColorBlendEquation) {
			// EDS3 fully-dynamic color-blend attachments: null the
			// attachment array entirely rather than retaining dead bytes
			// canonhash would never read (spec.md §4.3 point 5).
			v.Attachments = nil
		} else {
			v.Attachments = cloneSlice(a, c.Attachments)
		}
		if hasDynamic(g.DynamicStates, canonhash.DynamicBlendConstants) {
			v.BlendConstants = [4]float32{}
		}
		out.ColorBlendState = &v
	}
	if v := g.ViewportState; v != nil && preRasterLive {
		nv := *v
		if hasDynamic(g.DynamicStates, canonhash.DynamicViewport) {
			nv.ViewportCount = 0
		}
		if hasDynamic(g.DynamicStates, canonhash.DynamicScissor) {
			nv.ScissorCount = 0
		}
		out.ViewportState = &nv
	}
	return out
}

// ComputePipeline returns a deep copy of c.
func ComputePipeline(a *fossilize.Arena, c *descriptor.ComputePipeline) *descriptor.ComputePipeline {
	out := *c
	out.Flags = descriptor.NormalizeFlags(c.Flags)
	if c.Flags&descriptor.PipelineCreateDerivativeBit == 0 {
		out.BasePipeline = 0
	}
	out.Stage = cloneStage(c.Stage)
	return &out
}

// RaytracingPipeline returns a deep copy of r.
func RaytracingPipeline(a *fossilize.Arena, r *descriptor.RaytracingPipeline) *descriptor.RaytracingPipeline {
	basePipeline := r.BasePipeline
	if r.Flags&descriptor.PipelineCreateDerivativeBit == 0 {
		basePipeline = 0
	}
	out := &descriptor.RaytracingPipeline{
		Flags:             descriptor.NormalizeFlags(r.Flags),
		MaxRecursionDepth: r.MaxRecursionDepth,
		Layout:            r.Layout,
		BasePipeline:      basePipeline,
		Chain:             cloneChain(r.Chain),
	}
	out.Stages = make([]descriptor.StageCreateInfo, len(r.Stages))
	for i, s := range r.Stages {
		out.Stages[i] = cloneStage(s)
	}
	out.Groups = cloneSlice(a, r.Groups)
	out.Libraries = cloneSlice(a, r.Libraries)
	out.DynamicStates = cloneSlice(a, r.DynamicStates)
	return out
}

// ApplicationInfo returns a deep copy of info.
func ApplicationInfo(a *fossilize.Arena, info *descriptor.ApplicationInfo) *descriptor.ApplicationInfo {
	out := *info
	out.Chain = cloneChain(info.Chain)
	return &out
}

// ApplicationBlobLink returns a deep copy of l.
func ApplicationBlobLink(a *fossilize.Arena, l *descriptor.ApplicationBlobLink) *descriptor.ApplicationBlobLink {
	out := *l
	out.Blob = append([]byte(nil), l.Blob...)
	return &out
}
