package deepcopy

import (
	"testing"

	"github.com/fossilize/fossilize"
	"github.com/fossilize/fossilize/canonhash"
	"github.com/fossilize/fossilize/descriptor"
)

func TestShaderModuleCopyIsIndependent(t *testing.T) {
	a := fossilize.NewArena()
	s := &descriptor.ShaderModule{Code: []uint32{1, 2, 3}}
	out := ShaderModule(a, s)

	s.Code[0] = 99
	if out.Code[0] == 99 {
		t.Fatal("deep copy should not alias the source slice")
	}
}

func TestGraphicsPipelineNormalizesFlags(t *testing.T) {
	a := fossilize.NewArena()
	g := &descriptor.GraphicsPipeline{
		Flags: descriptor.PipelineCreateDisableOptimizationBit | descriptor.PipelineCreateIgnoredMask,
	}
	out := GraphicsPipeline(a, g)
	if out.Flags != descriptor.PipelineCreateDisableOptimizationBit {
		t.Fatalf("Flags = %#x, want ignored bits stripped", out.Flags)
	}
}

func TestGraphicsPipelinePrunesDynamicBlendConstants(t *testing.T) {
	a := fossilize.NewArena()
	g := &descriptor.GraphicsPipeline{
		ColorBlendState: &descriptor.ColorBlendState{BlendConstants: [4]float32{1, 2, 3, 4}},
		DynamicStates:   []descriptor.DynamicState{canonhash.DynamicBlendConstants},
	}
	out := GraphicsPipeline(a, g)
	if out.ColorBlendState.BlendConstants != ([4]float32{}) {
		t.Fatalf("blend constants = %v, want zeroed since marked dynamic", out.ColorBlendState.BlendConstants)
	}
	// Source must be untouched.
	if g.ColorBlendState.BlendConstants == ([4]float32{}) {
		t.Fatal("deep copy mutated the source descriptor")
	}
}

func TestGraphicsPipelinePrunesEDS3ColorBlendAttachments(t *testing.T) {
	a := fossilize.NewArena()
	g := &descriptor.GraphicsPipeline{
		ColorBlendState: &descriptor.ColorBlendState{
			Attachments: []descriptor.ColorBlendAttachment{{ColorWriteMask: 0xf}},
		},
		DynamicStates: []descriptor.DynamicState{
			canonhash.DynamicColorBlendEnable,
			canonhash.DynamicColorWriteMask,
			canonhash.DynamicColorBlendEquation,
		},
	}
	out := GraphicsPipeline(a, g)
	if out.ColorBlendState.Attachments != nil {
		t.Fatalf("attachments = %v, want nil since color blend fully dynamic", out.ColorBlendState.Attachments)
	}
	if len(g.ColorBlendState.Attachments) != 1 {
		t.Fatal("deep copy mutated the source descriptor")
	}

	g.DynamicStates = []descriptor.DynamicState{canonhash.DynamicColorBlendEnable}
	out2 := GraphicsPipeline(a, g)
	if out2.ColorBlendState.Attachments == nil {
		t.Fatal("attachments should be retained when blend is not fully dynamic")
	}
}

func TestGraphicsPipelinePrunesNonLiveLibraryInterfaces(t *testing.T) {
	a := fossilize.NewArena()
	g := &descriptor.GraphicsPipeline{
		LibraryFlags: descriptor.GraphicsLibraryVertexInputInterfaceBit,
		Stages: []descriptor.StageCreateInfo{
			{Stage: descriptor.ShaderStageVertexBit, Module: 1, EntryPoint: "main"},
			{Stage: descriptor.ShaderStageFragmentBit, Module: 2, EntryPoint: "main"},
		},
		VertexInputState: &descriptor.VertexInputState{Bindings: []descriptor.VertexInputBinding{{Binding: 1}}},
		ColorBlendState:  &descriptor.ColorBlendState{Attachments: []descriptor.ColorBlendAttachment{{ColorWriteMask: 0xf}}},
	}
	out := GraphicsPipeline(a, g)
	if out.ColorBlendState != nil {
		t.Fatal("fragment-output-interface state should be pruned outside the live vertex-input interface")
	}
	if out.VertexInputState == nil {
		t.Fatal("vertex-input state should be retained within the live interface")
	}
	// The vertex stage belongs to the pre-rasterization-shaders interface
	// and the fragment stage to the fragment-shader interface; neither is
	// live in a vertex-input-only library.
	if len(out.Stages) != 0 {
		t.Fatalf("stages = %v, want none retained", out.Stages)
	}
}

func TestGraphicsPipelineFlags2SubsumesLegacyFlags(t *testing.T) {
	a := fossilize.NewArena()
	flags2 := uint64(descriptor.PipelineCreateDerivativeBit)
	g := &descriptor.GraphicsPipeline{
		Flags:  descriptor.PipelineCreateDisableOptimizationBit,
		Flags2: &flags2,
	}
	out := GraphicsPipeline(a, g)
	if out.Flags != 0 {
		t.Fatalf("Flags = %#x, want 0 once Flags2 is present", out.Flags)
	}
	if out.Flags2 == nil || *out.Flags2 != flags2 {
		t.Fatalf("Flags2 = %v, want %#x", out.Flags2, flags2)
	}
}

func TestGraphicsPipelineGatesBasePipelineOnDerivativeBit(t *testing.T) {
	a := fossilize.NewArena()
	g := &descriptor.GraphicsPipeline{BasePipeline: 42}
	out := GraphicsPipeline(a, g)
	if out.BasePipeline != 0 {
		t.Fatalf("basePipeline = %d, want 0 without DERIVATIVE_BIT", out.BasePipeline)
	}

	g.Flags = descriptor.PipelineCreateDerivativeBit
	out2 := GraphicsPipeline(a, g)
	if out2.BasePipeline != 42 {
		t.Fatalf("basePipeline = %d, want 42 with DERIVATIVE_BIT set", out2.BasePipeline)
	}
}

func TestComputePipelineNormalizesFlags(t *testing.T) {
	a := fossilize.NewArena()
	c := &descriptor.ComputePipeline{Flags: descriptor.PipelineCreateIgnoredMask}
	out := ComputePipeline(a, c)
	if out.Flags != 0 {
		t.Fatalf("Flags = %#x, want 0 after normalization", out.Flags)
	}
}

func TestComputePipelineGatesBasePipelineOnDerivativeBit(t *testing.T) {
	a := fossilize.NewArena()
	c := &descriptor.ComputePipeline{BasePipeline: 42}
	out := ComputePipeline(a, c)
	if out.BasePipeline != 0 {
		t.Fatalf("basePipeline = %d, want 0 without DERIVATIVE_BIT", out.BasePipeline)
	}

	c.Flags = descriptor.PipelineCreateDerivativeBit
	out2 := ComputePipeline(a, c)
	if out2.BasePipeline != 42 {
		t.Fatalf("basePipeline = %d, want 42 with DERIVATIVE_BIT set", out2.BasePipeline)
	}
}

func TestRaytracingPipelineGatesBasePipelineOnDerivativeBit(t *testing.T) {
	a := fossilize.NewArena()
	r := &descriptor.RaytracingPipeline{BasePipeline: 42}
	out := RaytracingPipeline(a, r)
	if out.BasePipeline != 0 {
		t.Fatalf("basePipeline = %d, want 0 without DERIVATIVE_BIT", out.BasePipeline)
	}

	r.Flags = descriptor.PipelineCreateDerivativeBit
	out2 := RaytracingPipeline(a, r)
	if out2.BasePipeline != 42 {
		t.Fatalf("basePipeline = %d, want 42 with DERIVATIVE_BIT set", out2.BasePipeline)
	}
}

func TestDescriptorSetLayoutCopiesImmutableSamplers(t *testing.T) {
	a := fossilize.NewArena()
	d := &descriptor.DescriptorSetLayout{
		Bindings: []descriptor.DescriptorSetLayoutBinding{
			{ImmutableSamplers: []fossilize.Hash64{1, 2, 3}},
		},
	}
	out := DescriptorSetLayout(a, d)
	d.Bindings[0].ImmutableSamplers[0] = 99
	if out.Bindings[0].ImmutableSamplers[0] == 99 {
		t.Fatal("deep copy should not alias the source ImmutableSamplers slice")
	}
}
