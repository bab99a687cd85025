package descriptor

// Pipeline creation flag bits referenced by canonhash, deepcopy and the
// prune tool. Values match the host graphics API's own bit assignments so
// that a recording layer can pass flags straight through without a
// translation table.
const (
	PipelineCreateDisableOptimizationBit uint32 = 0x00000001
	PipelineCreateDerivativeBit          uint32 = 0x00000004
	PipelineCreateViewIndexFromDeviceIndexBit uint32 = 0x00000008
	PipelineCreateLibraryBit             uint32 = 0x00000800

	// PipelineCreateIgnoredMask covers flag bits that influence tooling or
	// telemetry (capture statistics, early-return-on-failure, ...) but
	// never affect the compiled pipeline's behavior, so canonhash and
	// deepcopy both strip them from Flags before it participates in a
	// hash or gets persisted.
	PipelineCreateIgnoredMask uint32 = 0x00000002 | // ..._FAIL_ON_PIPELINE_COMPILE_REQUIRED_BIT family
		0x00040000 | // capture statistics
		0x00080000 | // capture internal representations
		0x00020000 // early return on failure

	// PipelineCreateIgnoredMask2 is PipelineCreateIgnoredMask widened to the
	// 64-bit flag space a VkPipelineCreateFlags2CreateInfo pNext ("FLAGS_2")
	// carries, for pipelines whose creation flags no longer fit the legacy
	// 32-bit field.
	PipelineCreateIgnoredMask2 uint64 = uint64(PipelineCreateIgnoredMask)

	// GraphicsLibraryVertexInputInterfaceBit through
	// GraphicsLibraryFragmentOutputInterfaceBit are the four bits of
	// VkGraphicsPipelineLibraryCreateInfoEXT.flags identifying which
	// interface(s) a graphics-pipeline-library part contributes.
	GraphicsLibraryVertexInputInterfaceBit    uint32 = 0x00000001
	GraphicsLibraryPreRasterizationShadersBit uint32 = 0x00000002
	GraphicsLibraryFragmentShaderBit          uint32 = 0x00000004
	GraphicsLibraryFragmentOutputInterfaceBit uint32 = 0x00000008

	// Shader stage bits, used to classify a StageCreateInfo into the
	// graphics-pipeline-library interface it belongs to.
	ShaderStageVertexBit                 uint32 = 0x00000001
	ShaderStageTessellationControlBit    uint32 = 0x00000002
	ShaderStageTessellationEvaluationBit uint32 = 0x00000004
	ShaderStageGeometryBit               uint32 = 0x00000008
	ShaderStageFragmentBit               uint32 = 0x00000010

	// PreRasterizationStageMask is every shader stage the
	// pre-rasterization-shaders library interface covers.
	PreRasterizationStageMask = ShaderStageVertexBit | ShaderStageTessellationControlBit |
		ShaderStageTessellationEvaluationBit | ShaderStageGeometryBit
)

// NormalizeFlags clears the bits PipelineCreateIgnoredMask marks as
// hash-irrelevant, the normalization canonhash and deepcopy both apply to
// every pipeline's Flags field (spec.md §4.3 point 1).
func NormalizeFlags(flags uint32) uint32 {
	return flags &^ PipelineCreateIgnoredMask
}

// NormalizeFlags2 applies the same tooling/telemetry mask as NormalizeFlags
// to a FLAGS_2 value.
func NormalizeFlags2(flags uint64) uint64 {
	return flags &^ PipelineCreateIgnoredMask2
}

// LibraryInterfaceLive reports whether the graphics-pipeline-library
// interface identified by bit contributes to this pipeline's state. A zero
// libraryFlags means the pipeline was not split into library parts at all
// (no VkGraphicsPipelineLibraryCreateInfoEXT), so every interface is live.
func LibraryInterfaceLive(libraryFlags, bit uint32) bool {
	return libraryFlags == 0 || libraryFlags&bit != 0
}

// IsLibraryOnly reports whether a graphics pipeline was created purely as
// a pipeline library part with no shader stages of its own — the "primary
// vs default library" distinction the prune tool preserves verbatim per
// spec.md §9's Open Question.
func IsLibraryOnly(flags uint32, numStages int) bool {
	return flags&PipelineCreateLibraryBit != 0 && numStages == 0
}
