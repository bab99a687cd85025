// Package replay drives a StateCreator through the fixed dependency order
// required to reconstruct live API objects from cached descriptor graphs:
// samplers and shader modules before the layouts/render passes that
// reference them, those before the pipelines that reference them in turn.
package replay

import (
	"fmt"

	"github.com/fossilize/fossilize"
	"github.com/fossilize/fossilize/descriptor"
	"github.com/fossilize/fossilize/serialize"
)

// StateCreator is implemented by the application driving replay; each
// EnqueueCreate* call hands back control once the corresponding live
// object has been created (or the creator has decided to skip it). When
// the call returns nil the Parser marks the hash as replayed.
type StateCreator interface {
	EnqueueCreateSampler(hash fossilize.Hash64, info *descriptor.Sampler) error
	EnqueueCreateDescriptorSetLayout(hash fossilize.Hash64, info *descriptor.DescriptorSetLayout) error
	EnqueueCreatePipelineLayout(hash fossilize.Hash64, info *descriptor.PipelineLayout) error
	EnqueueCreateShaderModule(hash fossilize.Hash64, info *descriptor.ShaderModule) error
	EnqueueCreateRenderPass(hash fossilize.Hash64, info *descriptor.RenderPass) error
	EnqueueCreateGraphicsPipeline(hash fossilize.Hash64, info *descriptor.GraphicsPipeline) error
	EnqueueCreateComputePipeline(hash fossilize.Hash64, info *descriptor.ComputePipeline) error
	EnqueueCreateRaytracingPipeline(hash fossilize.Hash64, info *descriptor.RaytracingPipeline) error
}

// Resolver fetches a (tag, hash) entry's serialized bytes, typically
// backed by a db.Database.
type Resolver interface {
	Resolve(tag fossilize.ResourceTag, hash fossilize.Hash64) ([]byte, error)
	HashesForTag(tag fossilize.ResourceTag) ([]fossilize.Hash64, error)
}

// Parser replays every entity a Resolver exposes, in dependency order,
// against a StateCreator.
type Parser struct {
	resolver Resolver
	creator  StateCreator
	replayed map[fossilize.Hash64]struct{}
}

// NewParser returns a Parser driving creator from entities exposed by
// resolver.
func NewParser(resolver Resolver, creator StateCreator) *Parser {
	return &Parser{resolver: resolver, creator: creator, replayed: make(map[fossilize.Hash64]struct{})}
}

// order is the fixed dependency order every replay pass follows: entities
// later in the list may reference hashes of entities earlier in it, never
// the other way around.
var order = []fossilize.ResourceTag{
	fossilize.ResourceSampler,
	fossilize.ResourceShaderModule,
	fossilize.ResourceDescriptorSetLayout,
	fossilize.ResourcePipelineLayout,
	fossilize.ResourceRenderPass,
	fossilize.ResourceGraphicsPipeline,
	fossilize.ResourceComputePipeline,
	fossilize.ResourceRaytracingPipeline,
}

// ReplayAll walks every resource tag in dependency order and replays each
// entity found for it.
func (p *Parser) ReplayAll() error {
	for _, tag := range order {
		hashes, err := p.resolver.HashesForTag(tag)
		if err != nil {
			return fmt.Errorf("replay: list %s: %w", tag, err)
		}
		for _, h := range hashes {
			if err := p.Replay(tag, h); err != nil {
				return fmt.Errorf("replay: %s %016x: %w", tag, uint64(h), err)
			}
		}
	}
	return nil
}

// Replay replays a single entity, a no-op if it has already been replayed
// in this Parser's lifetime.
func (p *Parser) Replay(tag fossilize.ResourceTag, hash fossilize.Hash64) error {
	if _, ok := p.replayed[hash]; ok {
		return nil
	}
	b, err := p.resolver.Resolve(tag, hash)
	if err != nil {
		return err
	}
	switch tag {
	case fossilize.ResourceSampler:
		info, err := serialize.DecodeSampler(b)
		if err != nil {
			return err
		}
		if err := p.creator.EnqueueCreateSampler(hash, info); err != nil {
			return err
		}
	case fossilize.ResourceShaderModule:
		info, err := serialize.DecodeShaderModule(b)
		if err != nil {
			return err
		}
		if err := p.creator.EnqueueCreateShaderModule(hash, info); err != nil {
			return err
		}
	case fossilize.ResourceDescriptorSetLayout:
		info, err := serialize.DecodeDescriptorSetLayout(b)
		if err != nil {
			return err
		}
		if err := p.dependOnSamplers(info); err != nil {
			return err
		}
		if err := p.creator.EnqueueCreateDescriptorSetLayout(hash, info); err != nil {
			return err
		}
	case fossilize.ResourcePipelineLayout:
		info, err := serialize.DecodePipelineLayout(b)
		if err != nil {
			return err
		}
		for _, set := range info.SetLayouts {
			if set != 0 {
				if err := p.Replay(fossilize.ResourceDescriptorSetLayout, set); err != nil {
					return err
				}
			}
		}
		if err := p.creator.EnqueueCreatePipelineLayout(hash, info); err != nil {
			return err
		}
	case fossilize.ResourceRenderPass:
		info, err := serialize.DecodeRenderPass(b)
		if err != nil {
			return err
		}
		if err := p.creator.EnqueueCreateRenderPass(hash, info); err != nil {
			return err
		}
	case fossilize.ResourceGraphicsPipeline:
		info, err := serialize.DecodeGraphicsPipeline(b)
		if err != nil {
			return err
		}
		if err := p.dependOnGraphics(info); err != nil {
			return err
		}
		if err := p.creator.EnqueueCreateGraphicsPipeline(hash, info); err != nil {
			return err
		}
	case fossilize.ResourceComputePipeline:
		info, err := serialize.DecodeComputePipeline(b)
		if err != nil {
			return err
		}
		if info.Stage.Module != 0 {
			if err := p.Replay(fossilize.ResourceShaderModule, info.Stage.Module); err != nil {
				return err
			}
		}
		if err := p.Replay(fossilize.ResourcePipelineLayout, info.Layout); err != nil {
			return err
		}
		if err := p.creator.EnqueueCreateComputePipeline(hash, info); err != nil {
			return err
		}
	case fossilize.ResourceRaytracingPipeline:
		info, err := serialize.DecodeRaytracingPipeline(b)
		if err != nil {
			return err
		}
		for _, s := range info.Stages {
			if s.Module != 0 {
				if err := p.Replay(fossilize.ResourceShaderModule, s.Module); err != nil {
					return err
				}
			}
		}
		if err := p.Replay(fossilize.ResourcePipelineLayout, info.Layout); err != nil {
			return err
		}
		for _, lib := range info.Libraries {
			if err := p.Replay(fossilize.ResourceRaytracingPipeline, lib); err != nil {
				return err
			}
		}
		if err := p.creator.EnqueueCreateRaytracingPipeline(hash, info); err != nil {
			return err
		}
	default:
		return fmt.Errorf("replay: unsupported resource tag %s", tag)
	}
	p.replayed[hash] = struct{}{}
	return nil
}

func (p *Parser) dependOnSamplers(info *descriptor.DescriptorSetLayout) error {
	for _, b := range info.Bindings {
		for _, s := range b.ImmutableSamplers {
			if s != 0 {
				if err := p.Replay(fossilize.ResourceSampler, s); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (p *Parser) dependOnGraphics(info *descriptor.GraphicsPipeline) error {
	for _, s := range info.Stages {
		if s.Module != 0 {
			if err := p.Replay(fossilize.ResourceShaderModule, s.Module); err != nil {
				return err
			}
		}
	}
	if info.Layout != 0 {
		if err := p.Replay(fossilize.ResourcePipelineLayout, info.Layout); err != nil {
			return err
		}
	}
	if info.RenderPass != 0 {
		if err := p.Replay(fossilize.ResourceRenderPass, info.RenderPass); err != nil {
			return err
		}
	}
	for _, lib := range info.Libraries {
		if err := p.Replay(fossilize.ResourceGraphicsPipeline, lib); err != nil {
			return err
		}
	}
	return nil
}

// ForgetHandleReferences clears the set of already-replayed hashes,
// allowing a Parser to be reused for a second pass (e.g. re-replaying
// after a cache-invalidating driver update) without carrying over replay
// state from handles that are no longer valid.
func (p *Parser) ForgetHandleReferences() {
	p.replayed = make(map[fossilize.Hash64]struct{})
}
