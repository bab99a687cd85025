// Package canonhash computes the canonical content hash of a descriptor
// graph: the same logical pipeline always hashes the same regardless of
// which handles or memory addresses it was built from, and dynamic
// fixed-function state is elided rather than hashed.
package canonhash

import (
	"fmt"

	"github.com/fossilize/fossilize"
	"github.com/fossilize/fossilize/descriptor"
)

// registry backs error messages for unknown chain links; canonhash always
// walks strictly. deepcopy does not: it carries unknown links through
// unchanged and has no strict mode.
var registry = descriptor.NewChainRegistry()

// hashChain folds every link of c into h in order, failing hard on any
// link this implementation does not recognize — an unrecognized extension
// structure might carry bits that affect GPU-visible behavior, so silently
// ignoring it would let two semantically different pipelines collide on
// the same hash.
func hashChain(h *fossilize.Hasher, c descriptor.Chain) error {
	h.U32(uint32(len(c)))
	for _, link := range c {
		st := link.ChainType()
		if !registry.Known(st) {
			return fmt.Errorf("%w: %s", fossilize.ErrUnknownChainLink, registry.Name(st))
		}
		h.U32(uint32(st))
		switch v := link.(type) {
		case *descriptor.SamplerYcbcrConversionInfo:
			hashYcbcr(h, v)
		case *descriptor.PipelineRenderingCreateInfo:
			hashPipelineRendering(h, v)
		case *descriptor.PipelineRobustnessCreateInfo:
			hashPipelineRobustness(h, v)
		case *descriptor.PhysicalDeviceFeatures2:
			hashFeatures2(h, v)
		default:
			return fmt.Errorf("%w: %s", fossilize.ErrUnknownChainLink, registry.Name(st))
		}
	}
	return nil
}

func hashYcbcr(h *fossilize.Hasher, y *descriptor.SamplerYcbcrConversionInfo) {
	h.U32(y.Format).U32(y.YcbcrModel).U32(y.YcbcrRange)
	for _, c := range y.ComponentMapping {
		h.U32(c)
	}
	h.U32(y.XChromaOffset).U32(y.YChromaOffset).U32(y.ChromaFilter)
	h.Bool(y.ForceExplicitReconstruction)
}

func hashPipelineRendering(h *fossilize.Hasher, p *descriptor.PipelineRenderingCreateInfo) {
	h.U32(p.ViewMask)
	h.U32(uint32(len(p.ColorAttachmentFormats)))
	for _, f := range p.ColorAttachmentFormats {
		h.U32(f)
	}
	h.U32(p.DepthAttachmentFormat).U32(p.StencilAttachmentFormat)
}

func hashPipelineRobustness(h *fossilize.Hasher, p *descriptor.PipelineRobustnessCreateInfo) {
	h.U32(p.StorageBuffers).U32(p.UniformBuffers).U32(p.VertexInputs).U32(p.Images)
}

// featureWhitelist names the only PhysicalDeviceFeatures2 bits that affect
// compiled pipeline output and therefore participate in the hash; the rest
// of the enabled feature set is replay-relevant only.
var featureWhitelist = []string{
	"robustBufferAccess",
	"fullDrawIndexUint32",
	"geometryShader",
	"tessellationShader",
	"sampleRateShading",
	"multiViewport",
	"shaderFloat64",
	"shaderInt64",
	"shaderInt16",
}

func hashFeatures2(h *fossilize.Hasher, f *descriptor.PhysicalDeviceFeatures2) {
	for _, name := range featureWhitelist {
		h.Bool(f.Features[name])
	}
}
