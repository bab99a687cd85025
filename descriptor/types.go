package descriptor

import "github.com/fossilize/fossilize"

// Sampler mirrors VkSamplerCreateInfo.
type Sampler struct {
	Flags                   uint32
	MagFilter               uint32
	MinFilter               uint32
	MipmapMode              uint32
	AddressModeU            uint32
	AddressModeV            uint32
	AddressModeW            uint32
	MipLodBias              float32
	AnisotropyEnable        bool
	MaxAnisotropy           float32
	CompareEnable           bool
	CompareOp               uint32
	MinLod                  float32
	MaxLod                  float32
	BorderColor             uint32
	UnnormalizedCoordinates bool
	Chain                   Chain
}

// DescriptorSetLayoutBinding mirrors VkDescriptorSetLayoutBinding, with
// immutable samplers referenced by hash (the sampler object must already
// be known to the cache) rather than by live handle.
type DescriptorSetLayoutBinding struct {
	Binding            uint32
	DescriptorType      uint32
	DescriptorCount    uint32
	StageFlags         uint32
	ImmutableSamplers  []fossilize.Hash64
}

// DescriptorSetLayout mirrors VkDescriptorSetLayoutCreateInfo.
type DescriptorSetLayout struct {
	Flags    uint32
	Bindings []DescriptorSetLayoutBinding
	Chain    Chain
}

// PipelineLayout mirrors VkPipelineLayoutCreateInfo. SetLayouts are
// referenced by hash; a zero hash denotes a null/unused set slot.
type PushConstantRange struct {
	StageFlags uint32
	Offset     uint32
	Size       uint32
}

type PipelineLayout struct {
	Flags             uint32
	SetLayouts        []fossilize.Hash64
	PushConstantRanges []PushConstantRange
}

// ShaderModule mirrors VkShaderModuleCreateInfo. Code is the raw SPIR-V
// word stream; it is hashed and serialized verbatim.
type ShaderModule struct {
	Flags uint32
	Code  []uint32
}

// AttachmentDescription mirrors VkAttachmentDescription(2).
type AttachmentDescription struct {
	Flags          uint32
	Format         uint32
	Samples        uint32
	LoadOp         uint32
	StoreOp        uint32
	StencilLoadOp  uint32
	StencilStoreOp uint32
	InitialLayout  uint32
	FinalLayout    uint32
}

// AttachmentReference mirrors VkAttachmentReference(2).
type AttachmentReference struct {
	Attachment uint32
	Layout     uint32
}

// SubpassDescription mirrors VkSubpassDescription(2). Exactly one of
// ResolveAttachments may be non-empty, matching Vulkan's invariant that
// resolve attachments, if present, number the same as color attachments.
type SubpassDescription struct {
	Flags                  uint32
	PipelineBindPoint      uint32
	InputAttachments       []AttachmentReference
	ColorAttachments       []AttachmentReference
	ResolveAttachments     []AttachmentReference
	DepthStencilAttachment *AttachmentReference
	PreserveAttachments    []uint32
}

// SubpassDependency mirrors VkSubpassDependency(2).
type SubpassDependency struct {
	SrcSubpass      uint32
	DstSubpass      uint32
	SrcStageMask    uint32
	DstStageMask    uint32
	SrcAccessMask   uint32
	DstAccessMask   uint32
	DependencyFlags uint32
}

// RenderPass mirrors VkRenderPassCreateInfo / VkRenderPassCreateInfo2.
// Version records which API entry point constructed it, since the two
// have subtly different default semantics replay must reproduce.
type RenderPass struct {
	Version      int // 1 or 2
	Flags        uint32
	Attachments  []AttachmentDescription
	Subpasses    []SubpassDescription
	Dependencies []SubpassDependency
	Chain        Chain
}

// StageCreateInfo mirrors VkPipelineShaderStageCreateInfo. The shader
// module is referenced by hash; SpecializationData carries the raw
// specialization constant bytes.
type StageCreateInfo struct {
	Flags              uint32
	Stage              uint32
	Module             fossilize.Hash64
	EntryPoint         string
	SpecializationData []byte
}

// DynamicState lists which pieces of fixed-function state are left
// dynamic; canonhash zeroes the corresponding fields instead of hashing
// their (meaningless, pipeline-instance-specific) values.
type DynamicState uint32

// GraphicsPipeline mirrors VkGraphicsPipelineCreateInfo. Base/library
// pipelines and the render pass / pipeline layout are referenced by hash.
type GraphicsPipeline struct {
	Flags      uint32
	// Flags2, when non-nil, is a VkPipelineCreateFlags2CreateInfo pNext's
	// wider flag value. When present it subsumes Flags entirely: the
	// legacy field no longer contributes to identity (spec.md §4.3 point 1).
	Flags2             *uint64
	Stages             []StageCreateInfo
	Layout             fossilize.Hash64
	RenderPass         fossilize.Hash64
	Subpass            uint32
	BasePipeline       fossilize.Hash64
	Libraries          []fossilize.Hash64
	// LibraryFlags is VkGraphicsPipelineLibraryCreateInfoEXT.flags: which
	// of the vertex-input/pre-rasterization/fragment-shader/fragment-output
	// interfaces this pipeline (or library part) actually provides. State
	// outside the live subset is hash-irrelevant (spec.md §4.3 point 6).
	LibraryFlags       uint32
	DynamicStates      []DynamicState
	VertexInputState   *VertexInputState
	InputAssemblyState *InputAssemblyState
	RasterizationState *RasterizationState
	MultisampleState   *MultisampleState
	DepthStencilState  *DepthStencilState
	ColorBlendState    *ColorBlendState
	ViewportState      *ViewportState
	Chain              Chain
}

type VertexInputState struct {
	Bindings   []VertexInputBinding
	Attributes []VertexInputAttribute
}

type VertexInputBinding struct {
	Binding   uint32
	Stride    uint32
	InputRate uint32
}

type VertexInputAttribute struct {
	Location uint32
	Binding  uint32
	Format   uint32
	Offset   uint32
}

type InputAssemblyState struct {
	Topology               uint32
	PrimitiveRestartEnable bool
}

type RasterizationState struct {
	DepthClampEnable        bool
	RasterizerDiscardEnable bool
	PolygonMode             uint32
	CullMode                uint32
	FrontFace               uint32
	DepthBiasEnable         bool
	DepthBiasConstantFactor float32
	DepthBiasClamp          float32
	DepthBiasSlopeFactor    float32
	LineWidth               float32
}

type MultisampleState struct {
	RasterizationSamples  uint32
	SampleShadingEnable   bool
	MinSampleShading      float32
	AlphaToCoverageEnable bool
	AlphaToOneEnable      bool
}

type DepthStencilState struct {
	DepthTestEnable       bool
	DepthWriteEnable      bool
	DepthCompareOp        uint32
	DepthBoundsTestEnable bool
	StencilTestEnable     bool
	Front                 StencilOpState
	Back                  StencilOpState
	MinDepthBounds        float32
	MaxDepthBounds        float32
}

type StencilOpState struct {
	FailOp      uint32
	PassOp      uint32
	DepthFailOp uint32
	CompareOp   uint32
	CompareMask uint32
	WriteMask   uint32
	Reference   uint32
}

type ColorBlendAttachment struct {
	BlendEnable         bool
	SrcColorBlendFactor uint32
	DstColorBlendFactor uint32
	ColorBlendOp        uint32
	SrcAlphaBlendFactor uint32
	DstAlphaBlendFactor uint32
	AlphaBlendOp        uint32
	ColorWriteMask      uint32
}

type ColorBlendState struct {
	LogicOpEnable   bool
	LogicOp         uint32
	Attachments     []ColorBlendAttachment
	BlendConstants  [4]float32
}

type ViewportState struct {
	ViewportCount uint32
	ScissorCount  uint32
}

// ComputePipeline mirrors VkComputePipelineCreateInfo.
type ComputePipeline struct {
	Flags        uint32
	Stage        StageCreateInfo
	Layout       fossilize.Hash64
	BasePipeline fossilize.Hash64
}

// RaytracingShaderGroup mirrors VkRayTracingShaderGroupCreateInfoKHR.
type RaytracingShaderGroup struct {
	Type              uint32
	GeneralShader     uint32
	ClosestHitShader  uint32
	AnyHitShader      uint32
	IntersectionShader uint32
}

// RaytracingPipeline mirrors VkRayTracingPipelineCreateInfoKHR.
type RaytracingPipeline struct {
	Flags             uint32
	Stages            []StageCreateInfo
	Groups            []RaytracingShaderGroup
	MaxRecursionDepth uint32
	Layout            fossilize.Hash64
	BasePipeline      fossilize.Hash64
	Libraries         []fossilize.Hash64
	DynamicStates     []DynamicState
	Chain             Chain
}

// ApplicationInfo mirrors VkApplicationInfo plus the device-feature
// extension chain it is recorded alongside.
type ApplicationInfo struct {
	APIVersion         uint32
	ApplicationName    string
	ApplicationVersion uint32
	EngineName         string
	EngineVersion      uint32
	Chain              Chain
}

// ApplicationBlobLink ties a secondary, application-supplied blob of
// opaque bytes to the ApplicationInfo that produced it (e.g. driver-shader
// cache metadata that rides alongside Fossilize's own records).
type ApplicationBlobLink struct {
	ApplicationInfo fossilize.Hash64
	Blob            []byte
}
