// Package descriptor defines Go-native mirrors of the Vulkan pipeline
// creation descriptor graphs Fossilize caches: samplers, descriptor set
// layouts, pipeline layouts, shader modules, render passes and the three
// pipeline kinds, plus the extension ("pNext") structures that can be
// chained onto them.
package descriptor

import "fmt"

// StructureType identifies a chained extension structure, mirroring
// Vulkan's VkStructureType enum. Only the subset Fossilize understands is
// named here; unrecognized values still round-trip through Raw.
type StructureType uint32

const (
	StructureTypeUnknown StructureType = iota
	StructureTypeSamplerYcbcrConversionInfo
	StructureTypePipelineRenderingCreateInfo
	StructureTypePhysicalDeviceFeatures2
	StructureTypePipelineRobustnessCreateInfo
)

// Chained is implemented by every structure that can be linked into a
// pNext chain. ChainType returns the structure's tag so a walker can dispatch
// without a type switch over every concrete Go type.
type Chained interface {
	ChainType() StructureType
}

// Raw is a placeholder for a pNext entry whose sType this implementation
// does not recognize. It preserves the sType and the raw serialized bytes
// so that a non-strict walker can carry it through unchanged; a strict
// walker (canonhash in particular) rejects Raw outright.
type Raw struct {
	SType StructureType
	Bytes []byte
}

func (r *Raw) ChainType() StructureType { return r.SType }

// Chain is an ordered list of chained extension structures, modeling
// Vulkan's singly linked pNext list as a slice rather than raw pointers.
type Chain []Chained

// ChainRegistry resolves a StructureType to a human-readable name and is
// used to produce actionable errors when a strict walk hits something
// unregistered. Hash/copy dispatch itself is a type switch in canonhash
// and deepcopy, not a function registered here — the registry only backs
// diagnostics.
type ChainRegistry struct {
	names map[StructureType]string
}

// NewChainRegistry returns a registry pre-populated with the structure
// types this implementation understands.
func NewChainRegistry() *ChainRegistry {
	r := &ChainRegistry{names: make(map[StructureType]string)}
	r.Register(StructureTypeSamplerYcbcrConversionInfo, "SamplerYcbcrConversionInfo")
	r.Register(StructureTypePipelineRenderingCreateInfo, "PipelineRenderingCreateInfo")
	r.Register(StructureTypePhysicalDeviceFeatures2, "PhysicalDeviceFeatures2")
	r.Register(StructureTypePipelineRobustnessCreateInfo, "PipelineRobustnessCreateInfo")
	return r
}

// Register adds or overwrites the display name for t.
func (r *ChainRegistry) Register(t StructureType, name string) {
	r.names[t] = name
}

// Name returns a human-readable name for t, or a numeric fallback.
func (r *ChainRegistry) Name(t StructureType) string {
	if n, ok := r.names[t]; ok {
		return n
	}
	return fmt.Sprintf("StructureType(%d)", t)
}

// Known reports whether t has been registered.
func (r *ChainRegistry) Known(t StructureType) bool {
	_, ok := r.names[t]
	return ok
}
