package replay

import (
	"testing"

	"github.com/fossilize/fossilize"
	"github.com/fossilize/fossilize/descriptor"
	"github.com/fossilize/fossilize/serialize"
)

// memResolver is a minimal in-memory Resolver backing the dependency-order
// tests below.
type memResolver struct {
	entries map[fossilize.ResourceTag]map[fossilize.Hash64][]byte
}

func newMemResolver() *memResolver {
	return &memResolver{entries: make(map[fossilize.ResourceTag]map[fossilize.Hash64][]byte)}
}

func (m *memResolver) put(tag fossilize.ResourceTag, hash fossilize.Hash64, b []byte) {
	if m.entries[tag] == nil {
		m.entries[tag] = make(map[fossilize.Hash64][]byte)
	}
	m.entries[tag][hash] = b
}

func (m *memResolver) Resolve(tag fossilize.ResourceTag, hash fossilize.Hash64) ([]byte, error) {
	b, ok := m.entries[tag][hash]
	if !ok {
		return nil, fossilize.ErrMissingCrossReference
	}
	return b, nil
}

func (m *memResolver) HashesForTag(tag fossilize.ResourceTag) ([]fossilize.Hash64, error) {
	var out []fossilize.Hash64
	for h := range m.entries[tag] {
		out = append(out, h)
	}
	return out, nil
}

// recordingCreator tracks the order in which entities are enqueued, so
// tests can assert dependencies always precede dependents.
type recordingCreator struct {
	order []string
}

func (c *recordingCreator) EnqueueCreateSampler(hash fossilize.Hash64, info *descriptor.Sampler) error {
	c.order = append(c.order, "sampler")
	return nil
}
func (c *recordingCreator) EnqueueCreateDescriptorSetLayout(hash fossilize.Hash64, info *descriptor.DescriptorSetLayout) error {
	c.order = append(c.order, "setlayout")
	return nil
}
func (c *recordingCreator) EnqueueCreatePipelineLayout(hash fossilize.Hash64, info *descriptor.PipelineLayout) error {
	c.order = append(c.order, "pipelinelayout")
	return nil
}
func (c *recordingCreator) EnqueueCreateShaderModule(hash fossilize.Hash64, info *descriptor.ShaderModule) error {
	c.order = append(c.order, "shadermodule")
	return nil
}
func (c *recordingCreator) EnqueueCreateRenderPass(hash fossilize.Hash64, info *descriptor.RenderPass) error {
	c.order = append(c.order, "renderpass")
	return nil
}
func (c *recordingCreator) EnqueueCreateGraphicsPipeline(hash fossilize.Hash64, info *descriptor.GraphicsPipeline) error {
	c.order = append(c.order, "graphicspipeline")
	return nil
}
func (c *recordingCreator) EnqueueCreateComputePipeline(hash fossilize.Hash64, info *descriptor.ComputePipeline) error {
	c.order = append(c.order, "computepipeline")
	return nil
}
func (c *recordingCreator) EnqueueCreateRaytracingPipeline(hash fossilize.Hash64, info *descriptor.RaytracingPipeline) error {
	c.order = append(c.order, "raytracingpipeline")
	return nil
}

func indexOf(order []string, name string) int {
	for i, s := range order {
		if s == name {
			return i
		}
	}
	return -1
}

func TestReplayAllDependencyOrder(t *testing.T) {
	r := newMemResolver()

	sampler := fossilize.Hash64(1)
	setLayout := fossilize.Hash64(2)
	layout := fossilize.Hash64(3)
	module := fossilize.Hash64(4)
	renderPass := fossilize.Hash64(5)
	pipeline := fossilize.Hash64(6)

	samplerBytes, err := serialize.EncodeSampler(&descriptor.Sampler{})
	if err != nil {
		t.Fatal(err)
	}
	r.put(fossilize.ResourceSampler, sampler, samplerBytes)

	setLayoutBytes, err := serialize.EncodeDescriptorSetLayout(&descriptor.DescriptorSetLayout{
		Bindings: []descriptor.DescriptorSetLayoutBinding{{ImmutableSamplers: []fossilize.Hash64{sampler}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	r.put(fossilize.ResourceDescriptorSetLayout, setLayout, setLayoutBytes)

	layoutBytes, err := serialize.EncodePipelineLayout(&descriptor.PipelineLayout{SetLayouts: []fossilize.Hash64{setLayout}})
	if err != nil {
		t.Fatal(err)
	}
	r.put(fossilize.ResourcePipelineLayout, layout, layoutBytes)

	moduleBytes, err := serialize.EncodeShaderModule(&descriptor.ShaderModule{Code: []uint32{1, 2, 3}})
	if err != nil {
		t.Fatal(err)
	}
	r.put(fossilize.ResourceShaderModule, module, moduleBytes)

	rpBytes, err := serialize.EncodeRenderPass(&descriptor.RenderPass{Version: 2})
	if err != nil {
		t.Fatal(err)
	}
	r.put(fossilize.ResourceRenderPass, renderPass, rpBytes)

	gfxBytes, err := serialize.EncodeGraphicsPipeline(&descriptor.GraphicsPipeline{
		Layout:     layout,
		RenderPass: renderPass,
		Stages:     []descriptor.StageCreateInfo{{Module: module}},
	})
	if err != nil {
		t.Fatal(err)
	}
	r.put(fossilize.ResourceGraphicsPipeline, pipeline, gfxBytes)

	creator := &recordingCreator{}
	p := NewParser(r, creator)
	if err := p.ReplayAll(); err != nil {
		t.Fatal(err)
	}

	for _, dep := range []string{"sampler", "setlayout", "pipelinelayout", "shadermodule", "renderpass"} {
		if indexOf(creator.order, dep) >= indexOf(creator.order, "graphicspipeline") {
			t.Fatalf("%s must be replayed before graphicspipeline, got order %v", dep, creator.order)
		}
	}
}

func TestReplaySkipsAlreadyReplayed(t *testing.T) {
	r := newMemResolver()
	sampler := fossilize.Hash64(1)
	b, err := serialize.EncodeSampler(&descriptor.Sampler{})
	if err != nil {
		t.Fatal(err)
	}
	r.put(fossilize.ResourceSampler, sampler, b)

	creator := &recordingCreator{}
	p := NewParser(r, creator)
	if err := p.Replay(fossilize.ResourceSampler, sampler); err != nil {
		t.Fatal(err)
	}
	if err := p.Replay(fossilize.ResourceSampler, sampler); err != nil {
		t.Fatal(err)
	}
	if len(creator.order) != 1 {
		t.Fatalf("expected sampler to be replayed once, got %d times", len(creator.order))
	}

	p.ForgetHandleReferences()
	if err := p.Replay(fossilize.ResourceSampler, sampler); err != nil {
		t.Fatal(err)
	}
	if len(creator.order) != 2 {
		t.Fatalf("expected a second replay after ForgetHandleReferences, got %d total", len(creator.order))
	}
}

func TestReplayMissingCrossReference(t *testing.T) {
	r := newMemResolver()
	creator := &recordingCreator{}
	p := NewParser(r, creator)
	if err := p.Replay(fossilize.ResourceSampler, fossilize.Hash64(42)); err == nil {
		t.Fatal("expected an error resolving a hash the resolver doesn't have")
	}
}
