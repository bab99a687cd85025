package serialize

import (
	"encoding/json"
	"fmt"

	"github.com/fossilize/fossilize/descriptor"
)

type vertexBindingDoc struct {
	Binding   uint32 `json:"binding"`
	Stride    uint32 `json:"stride"`
	InputRate uint32 `json:"inputRate"`
}

type vertexAttributeDoc struct {
	Location uint32 `json:"location"`
	Binding  uint32 `json:"binding"`
	Format   uint32 `json:"format"`
	Offset   uint32 `json:"offset"`
}

type stencilOpDoc struct {
	FailOp      uint32 `json:"failOp"`
	PassOp      uint32 `json:"passOp"`
	DepthFailOp uint32 `json:"depthFailOp"`
	CompareOp   uint32 `json:"compareOp"`
	CompareMask uint32 `json:"compareMask"`
	WriteMask   uint32 `json:"writeMask"`
	Reference   uint32 `json:"reference"`
}

func stencilToDoc(s descriptor.StencilOpState) stencilOpDoc {
	return stencilOpDoc{s.FailOp, s.PassOp, s.DepthFailOp, s.CompareOp, s.CompareMask, s.WriteMask, s.Reference}
}

func stencilFromDoc(d stencilOpDoc) descriptor.StencilOpState {
	return descriptor.StencilOpState{
		FailOp: d.FailOp, PassOp: d.PassOp, DepthFailOp: d.DepthFailOp, CompareOp: d.CompareOp,
		CompareMask: d.CompareMask, WriteMask: d.WriteMask, Reference: d.Reference,
	}
}

type colorBlendAttachmentDoc struct {
	BlendEnable         bool   `json:"blendEnable"`
	SrcColorBlendFactor uint32 `json:"srcColorBlendFactor"`
	DstColorBlendFactor uint32 `json:"dstColorBlendFactor"`
	ColorBlendOp        uint32 `json:"colorBlendOp"`
	SrcAlphaBlendFactor uint32 `json:"srcAlphaBlendFactor"`
	DstAlphaBlendFactor uint32 `json:"dstAlphaBlendFactor"`
	AlphaBlendOp        uint32 `json:"alphaBlendOp"`
	ColorWriteMask      uint32 `json:"colorWriteMask"`
}

type graphicsPipelineDoc struct {
	Flags              uint32                    `json:"flags"`
	Flags2             *uint64                   `json:"flags2,omitempty"`
	Stages             []stageDoc                `json:"stages"`
	Layout             HashString                `json:"layout"`
	RenderPass         HashString                `json:"renderPass,omitempty"`
	Subpass            uint32                    `json:"subpass"`
	BasePipeline       HashString                `json:"basePipeline,omitempty"`
	Libraries          []HashString              `json:"libraries,omitempty"`
	LibraryFlags       uint32                    `json:"libraryFlags,omitempty"`
	DynamicStates      []uint32                  `json:"dynamicStates,omitempty"`
	VertexBindings     []vertexBindingDoc        `json:"vertexBindings,omitempty"`
	VertexAttributes   []vertexAttributeDoc      `json:"vertexAttributes,omitempty"`
	Topology           *uint32                   `json:"topology,omitempty"`
	PrimitiveRestart   *bool                     `json:"primitiveRestartEnable,omitempty"`
	Rasterization      *rasterizationDoc         `json:"rasterization,omitempty"`
	Multisample        *multisampleDoc           `json:"multisample,omitempty"`
	DepthStencil       *depthStencilDoc          `json:"depthStencil,omitempty"`
	ColorBlend         *colorBlendDoc            `json:"colorBlend,omitempty"`
	ViewportCount      *uint32                   `json:"viewportCount,omitempty"`
	ScissorCount       *uint32                   `json:"scissorCount,omitempty"`
}

type rasterizationDoc struct {
	DepthClampEnable        bool    `json:"depthClampEnable"`
	RasterizerDiscardEnable bool    `json:"rasterizerDiscardEnable"`
	PolygonMode             uint32  `json:"polygonMode"`
	CullMode                uint32  `json:"cullMode"`
	FrontFace               uint32  `json:"frontFace"`
	DepthBiasEnable         bool    `json:"depthBiasEnable"`
	DepthBiasConstantFactor float32 `json:"depthBiasConstantFactor"`
	DepthBiasClamp          float32 `json:"depthBiasClamp"`
	DepthBiasSlopeFactor    float32 `json:"depthBiasSlopeFactor"`
	LineWidth               float32 `json:"lineWidth"`
}

type multisampleDoc struct {
	RasterizationSamples  uint32  `json:"rasterizationSamples"`
	SampleShadingEnable   bool    `json:"sampleShadingEnable"`
	MinSampleShading      float32 `json:"minSampleShading"`
	AlphaToCoverageEnable bool    `json:"alphaToCoverageEnable"`
	AlphaToOneEnable      bool    `json:"alphaToOneEnable"`
}

type depthStencilDoc struct {
	DepthTestEnable       bool         `json:"depthTestEnable"`
	DepthWriteEnable      bool         `json:"depthWriteEnable"`
	DepthCompareOp        uint32       `json:"depthCompareOp"`
	DepthBoundsTestEnable bool         `json:"depthBoundsTestEnable"`
	StencilTestEnable     bool         `json:"stencilTestEnable"`
	Front                 stencilOpDoc `json:"front"`
	Back                  stencilOpDoc `json:"back"`
	MinDepthBounds        float32      `json:"minDepthBounds"`
	MaxDepthBounds        float32      `json:"maxDepthBounds"`
}

type colorBlendDoc struct {
	LogicOpEnable  bool                      `json:"logicOpEnable"`
	LogicOp        uint32                    `json:"logicOp"`
	Attachments    []colorBlendAttachmentDoc `json:"attachments,omitempty"`
	BlendConstants [4]float32                `json:"blendConstants"`
}

func u32ptr(v uint32) *uint32 { return &v }
func boolptr(v bool) *bool    { return &v }

// EncodeGraphicsPipeline renders g as its canonical JSON document.
func EncodeGraphicsPipeline(g *descriptor.GraphicsPipeline) ([]byte, error) {
	doc := graphicsPipelineDoc{
		Flags: g.Flags, Flags2: g.Flags2, Layout: NewHashString(g.Layout), RenderPass: NewHashString(g.RenderPass),
		Subpass: g.Subpass, BasePipeline: NewHashString(g.BasePipeline), Libraries: hashStrings(g.Libraries),
		LibraryFlags: g.LibraryFlags,
	}
	for _, s := range g.Stages {
		doc.Stages = append(doc.Stages, stageToDoc(s))
	}
	for _, d := range g.DynamicStates {
		doc.DynamicStates = append(doc.DynamicStates, uint32(d))
	}
	if v := g.VertexInputState; v != nil {
		for _, b := range v.Bindings {
			doc.VertexBindings = append(doc.VertexBindings, vertexBindingDoc{b.Binding, b.Stride, b.InputRate})
		}
		for _, a := range v.Attributes {
			doc.VertexAttributes = append(doc.VertexAttributes, vertexAttributeDoc{a.Location, a.Binding, a.Format, a.Offset})
		}
	}
	if a := g.InputAssemblyState; a != nil {
		doc.Topology = u32ptr(a.Topology)
		doc.PrimitiveRestart = boolptr(a.PrimitiveRestartEnable)
	}
	if r := g.RasterizationState; r != nil {
		doc.Rasterization = &rasterizationDoc{
			r.DepthClampEnable, r.RasterizerDiscardEnable, r.PolygonMode, r.CullMode, r.FrontFace,
			r.DepthBiasEnable, r.DepthBiasConstantFactor, r.DepthBiasClamp, r.DepthBiasSlopeFactor, r.LineWidth,
		}
	}
	if m := g.MultisampleState; m != nil {
		doc.Multisample = &multisampleDoc{m.RasterizationSamples, m.SampleShadingEnable, m.MinSampleShading, m.AlphaToCoverageEnable, m.AlphaToOneEnable}
	}
	if d := g.DepthStencilState; d != nil {
		doc.DepthStencil = &depthStencilDoc{
			d.DepthTestEnable, d.DepthWriteEnable, d.DepthCompareOp, d.DepthBoundsTestEnable, d.StencilTestEnable,
			stencilToDoc(d.Front), stencilToDoc(d.Back), d.MinDepthBounds, d.MaxDepthBounds,
		}
	}
	if c := g.ColorBlendState; c != nil {
		cd := &colorBlendDoc{LogicOpEnable: c.LogicOpEnable, LogicOp: c.LogicOp, BlendConstants: c.BlendConstants}
		for _, a := range c.Attachments {
			cd.Attachments = append(cd.Attachments, colorBlendAttachmentDoc{
				a.BlendEnable, a.SrcColorBlendFactor, a.DstColorBlendFactor, a.ColorBlendOp,
				a.SrcAlphaBlendFactor, a.DstAlphaBlendFactor, a.AlphaBlendOp, a.ColorWriteMask,
			})
		}
		doc.ColorBlend = cd
	}
	if v := g.ViewportState; v != nil {
		doc.ViewportCount = u32ptr(v.ViewportCount)
		doc.ScissorCount = u32ptr(v.ScissorCount)
	}
	return json.Marshal(doc)
}

// DecodeGraphicsPipeline parses a graphics pipeline JSON document.
func DecodeGraphicsPipeline(b []byte) (*descriptor.GraphicsPipeline, error) {
	var doc graphicsPipelineDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("serialize: decode graphics pipeline: %w", err)
	}
	layout, err := doc.Layout.Hash64()
	if err != nil {
		return nil, err
	}
	renderPass, err := doc.RenderPass.Hash64()
	if err != nil {
		return nil, err
	}
	base, err := doc.BasePipeline.Hash64()
	if err != nil {
		return nil, err
	}
	libs, err := parseHashes(doc.Libraries)
	if err != nil {
		return nil, err
	}
	out := &descriptor.GraphicsPipeline{
		Flags: doc.Flags, Flags2: doc.Flags2, Layout: layout, RenderPass: renderPass, Subpass: doc.Subpass,
		BasePipeline: base, Libraries: libs, LibraryFlags: doc.LibraryFlags,
	}
	for _, s := range doc.Stages {
		st, err := stageFromDoc(s)
		if err != nil {
			return nil, err
		}
		out.Stages = append(out.Stages, st)
	}
	for _, d := range doc.DynamicStates {
		out.DynamicStates = append(out.DynamicStates, descriptor.DynamicState(d))
	}
	if len(doc.VertexBindings) > 0 || len(doc.VertexAttributes) > 0 {
		v := &descriptor.VertexInputState{}
		for _, b := range doc.VertexBindings {
			v.Bindings = append(v.Bindings, descriptor.VertexInputBinding{Binding: b.Binding, Stride: b.Stride, InputRate: b.InputRate})
		}
		for _, a := range doc.VertexAttributes {
			v.Attributes = append(v.Attributes, descriptor.VertexInputAttribute{Location: a.Location, Binding: a.Binding, Format: a.Format, Offset: a.Offset})
		}
		out.VertexInputState = v
	}
	if doc.Topology != nil {
		out.InputAssemblyState = &descriptor.InputAssemblyState{Topology: *doc.Topology, PrimitiveRestartEnable: doc.PrimitiveRestart != nil && *doc.PrimitiveRestart}
	}
	if r := doc.Rasterization; r != nil {
		out.RasterizationState = &descriptor.RasterizationState{
			DepthClampEnable: r.DepthClampEnable, RasterizerDiscardEnable: r.RasterizerDiscardEnable,
			PolygonMode: r.PolygonMode, CullMode: r.CullMode, FrontFace: r.FrontFace,
			DepthBiasEnable: r.DepthBiasEnable, DepthBiasConstantFactor: r.DepthBiasConstantFactor,
			DepthBiasClamp: r.DepthBiasClamp, DepthBiasSlopeFactor: r.DepthBiasSlopeFactor, LineWidth: r.LineWidth,
		}
	}
	if m := doc.Multisample; m != nil {
		out.MultisampleState = &descriptor.MultisampleState{
			RasterizationSamples: m.RasterizationSamples, SampleShadingEnable: m.SampleShadingEnable,
			MinSampleShading: m.MinSampleShading, AlphaToCoverageEnable: m.AlphaToCoverageEnable, AlphaToOneEnable: m.AlphaToOneEnable,
		}
	}
	if d := doc.DepthStencil; d != nil {
		out.DepthStencilState = &descriptor.DepthStencilState{
			DepthTestEnable: d.DepthTestEnable, DepthWriteEnable: d.DepthWriteEnable, DepthCompareOp: d.DepthCompareOp,
			DepthBoundsTestEnable: d.DepthBoundsTestEnable, StencilTestEnable: d.StencilTestEnable,
			Front: stencilFromDoc(d.Front), Back: stencilFromDoc(d.Back),
			MinDepthBounds: d.MinDepthBounds, MaxDepthBounds: d.MaxDepthBounds,
		}
	}
	if c := doc.ColorBlend; c != nil {
		cb := &descriptor.ColorBlendState{LogicOpEnable: c.LogicOpEnable, LogicOp: c.LogicOp, BlendConstants: c.BlendConstants}
		for _, a := range c.Attachments {
			cb.Attachments = append(cb.Attachments, descriptor.ColorBlendAttachment{
				BlendEnable: a.BlendEnable, SrcColorBlendFactor: a.SrcColorBlendFactor, DstColorBlendFactor: a.DstColorBlendFactor,
				ColorBlendOp: a.ColorBlendOp, SrcAlphaBlendFactor: a.SrcAlphaBlendFactor, DstAlphaBlendFactor: a.DstAlphaBlendFactor,
				AlphaBlendOp: a.AlphaBlendOp, ColorWriteMask: a.ColorWriteMask,
			})
		}
		out.ColorBlendState = cb
	}
	if doc.ViewportCount != nil {
		vs := &descriptor.ViewportState{ViewportCount: *doc.ViewportCount}
		if doc.ScissorCount != nil {
			vs.ScissorCount = *doc.ScissorCount
		}
		out.ViewportState = vs
	}
	return out, nil
}

type raytracingGroupDoc struct {
	Type               uint32 `json:"type"`
	GeneralShader      uint32 `json:"generalShader"`
	ClosestHitShader   uint32 `json:"closestHitShader"`
	AnyHitShader       uint32 `json:"anyHitShader"`
	IntersectionShader uint32 `json:"intersectionShader"`
}

type raytracingPipelineDoc struct {
	Flags             uint32               `json:"flags"`
	Stages            []stageDoc           `json:"stages"`
	Groups            []raytracingGroupDoc `json:"groups"`
	MaxRecursionDepth uint32               `json:"maxRecursionDepth"`
	Layout            HashString           `json:"layout"`
	BasePipeline      HashString           `json:"basePipeline,omitempty"`
	Libraries         []HashString         `json:"libraries,omitempty"`
	DynamicStates     []uint32             `json:"dynamicStates,omitempty"`
}

// EncodeRaytracingPipeline renders r as its canonical JSON document.
func EncodeRaytracingPipeline(r *descriptor.RaytracingPipeline) ([]byte, error) {
	doc := raytracingPipelineDoc{
		Flags: r.Flags, MaxRecursionDepth: r.MaxRecursionDepth, Layout: NewHashString(r.Layout),
		BasePipeline: NewHashString(r.BasePipeline), Libraries: hashStrings(r.Libraries),
	}
	for _, s := range r.Stages {
		doc.Stages = append(doc.Stages, stageToDoc(s))
	}
	for _, g := range r.Groups {
		doc.Groups = append(doc.Groups, raytracingGroupDoc{g.Type, g.GeneralShader, g.ClosestHitShader, g.AnyHitShader, g.IntersectionShader})
	}
	for _, d := range r.DynamicStates {
		doc.DynamicStates = append(doc.DynamicStates, uint32(d))
	}
	return json.Marshal(doc)
}

// DecodeRaytracingPipeline parses a ray tracing pipeline JSON document.
func DecodeRaytracingPipeline(b []byte) (*descriptor.RaytracingPipeline, error) {
	var doc raytracingPipelineDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("serialize: decode raytracing pipeline: %w", err)
	}
	layout, err := doc.Layout.Hash64()
	if err != nil {
		return nil, err
	}
	base, err := doc.BasePipeline.Hash64()
	if err != nil {
		return nil, err
	}
	libs, err := parseHashes(doc.Libraries)
	if err != nil {
		return nil, err
	}
	out := &descriptor.RaytracingPipeline{
		Flags: doc.Flags, MaxRecursionDepth: doc.MaxRecursionDepth, Layout: layout, BasePipeline: base, Libraries: libs,
	}
	for _, s := range doc.Stages {
		st, err := stageFromDoc(s)
		if err != nil {
			return nil, err
		}
		out.Stages = append(out.Stages, st)
	}
	for _, g := range doc.Groups {
		out.Groups = append(out.Groups, descriptor.RaytracingShaderGroup{
			Type: g.Type, GeneralShader: g.GeneralShader, ClosestHitShader: g.ClosestHitShader,
			AnyHitShader: g.AnyHitShader, IntersectionShader: g.IntersectionShader,
		})
	}
	for _, d := range doc.DynamicStates {
		out.DynamicStates = append(out.DynamicStates, descriptor.DynamicState(d))
	}
	return out, nil
}
