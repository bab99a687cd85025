package descriptor

// SamplerYcbcrConversionInfo chains onto a Sampler (or descriptor set
// layout immutable sampler) to describe YUV format conversion.
type SamplerYcbcrConversionInfo struct {
	Format                      uint32
	YcbcrModel                  uint32
	YcbcrRange                  uint32
	ComponentMapping            [4]uint32
	XChromaOffset               uint32
	YChromaOffset               uint32
	ChromaFilter                uint32
	ForceExplicitReconstruction bool
}

func (s *SamplerYcbcrConversionInfo) ChainType() StructureType {
	return StructureTypeSamplerYcbcrConversionInfo
}

// PipelineRenderingCreateInfo chains onto a GraphicsPipeline that targets
// dynamic rendering instead of an explicit RenderPass.
type PipelineRenderingCreateInfo struct {
	ViewMask                uint32
	ColorAttachmentFormats  []uint32
	DepthAttachmentFormat   uint32
	StencilAttachmentFormat uint32
}

func (p *PipelineRenderingCreateInfo) ChainType() StructureType {
	return StructureTypePipelineRenderingCreateInfo
}

// PipelineRobustnessCreateInfo chains onto any pipeline to request
// per-pipeline robustness behavior overrides.
type PipelineRobustnessCreateInfo struct {
	StorageBuffers uint32
	UniformBuffers uint32
	VertexInputs   uint32
	Images         uint32
}

func (p *PipelineRobustnessCreateInfo) ChainType() StructureType {
	return StructureTypePipelineRobustnessCreateInfo
}

// PhysicalDeviceFeatures2 chains onto ApplicationInfo to record the
// feature bits the application enabled at device-creation time. Only a
// fixed whitelist of feature words is hashed (see canonhash); the rest
// exist purely for replay fidelity.
type PhysicalDeviceFeatures2 struct {
	Features map[string]bool
}

func (p *PhysicalDeviceFeatures2) ChainType() StructureType {
	return StructureTypePhysicalDeviceFeatures2
}
