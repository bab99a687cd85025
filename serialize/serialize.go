// Package serialize turns descriptor graphs into the JSON documents
// Fossilize persists, cross-referencing other cached entities by their
// 16-hex-digit hash string rather than embedding them inline. Shader
// module SPIR-V words are carried as a separate varint-encoded binary
// tail rather than JSON, since JSON has no compact representation for a
// large array of 32-bit words.
package serialize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/fossilize/fossilize"
	"github.com/fossilize/fossilize/descriptor"
)

// HashString is the on-the-wire representation of a fossilize.Hash64: 16
// lowercase hex digits, zero-padded, e.g. "00000000cafebabe".
type HashString string

// NewHashString formats h as a HashString.
func NewHashString(h fossilize.Hash64) HashString {
	return HashString(fmt.Sprintf("%016x", uint64(h)))
}

// Hash64 parses a HashString back into a fossilize.Hash64.
func (s HashString) Hash64() (fossilize.Hash64, error) {
	v, err := strconv.ParseUint(string(s), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("serialize: invalid hash string %q: %w", s, err)
	}
	return fossilize.Hash64(v), nil
}

func hashStrings(hs []fossilize.Hash64) []HashString {
	if len(hs) == 0 {
		return nil
	}
	out := make([]HashString, len(hs))
	for i, h := range hs {
		out[i] = NewHashString(h)
	}
	return out
}

func parseHashes(ss []HashString) ([]fossilize.Hash64, error) {
	if len(ss) == 0 {
		return nil, nil
	}
	out := make([]fossilize.Hash64, len(ss))
	for i, s := range ss {
		h, err := s.Hash64()
		if err != nil {
			return nil, err
		}
		out[i] = h
	}
	return out, nil
}

// samplerDoc is the JSON shape of a descriptor.Sampler record.
type samplerDoc struct {
	Flags                   uint32  `json:"flags"`
	MagFilter               uint32  `json:"magFilter"`
	MinFilter               uint32  `json:"minFilter"`
	MipmapMode              uint32  `json:"mipmapMode"`
	AddressModeU            uint32  `json:"addressModeU"`
	AddressModeV            uint32  `json:"addressModeV"`
	AddressModeW            uint32  `json:"addressModeW"`
	MipLodBias              float32 `json:"mipLodBias"`
	AnisotropyEnable        bool    `json:"anisotropyEnable"`
	MaxAnisotropy           float32 `json:"maxAnisotropy"`
	CompareEnable           bool    `json:"compareEnable"`
	CompareOp               uint32  `json:"compareOp"`
	MinLod                  float32 `json:"minLod"`
	MaxLod                  float32 `json:"maxLod"`
	BorderColor             uint32  `json:"borderColor"`
	UnnormalizedCoordinates bool    `json:"unnormalizedCoordinates"`
}

// EncodeSampler renders s as its canonical JSON document.
func EncodeSampler(s *descriptor.Sampler) ([]byte, error) {
	doc := samplerDoc{
		Flags: s.Flags, MagFilter: s.MagFilter, MinFilter: s.MinFilter, MipmapMode: s.MipmapMode,
		AddressModeU: s.AddressModeU, AddressModeV: s.AddressModeV, AddressModeW: s.AddressModeW,
		MipLodBias: s.MipLodBias, AnisotropyEnable: s.AnisotropyEnable, MaxAnisotropy: s.MaxAnisotropy,
		CompareEnable: s.CompareEnable, CompareOp: s.CompareOp, MinLod: s.MinLod, MaxLod: s.MaxLod,
		BorderColor: s.BorderColor, UnnormalizedCoordinates: s.UnnormalizedCoordinates,
	}
	return json.Marshal(doc)
}

// DecodeSampler parses a sampler JSON document.
func DecodeSampler(b []byte) (*descriptor.Sampler, error) {
	var doc samplerDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("serialize: decode sampler: %w", err)
	}
	return &descriptor.Sampler{
		Flags: doc.Flags, MagFilter: doc.MagFilter, MinFilter: doc.MinFilter, MipmapMode: doc.MipmapMode,
		AddressModeU: doc.AddressModeU, AddressModeV: doc.AddressModeV, AddressModeW: doc.AddressModeW,
		MipLodBias: doc.MipLodBias, AnisotropyEnable: doc.AnisotropyEnable, MaxAnisotropy: doc.MaxAnisotropy,
		CompareEnable: doc.CompareEnable, CompareOp: doc.CompareOp, MinLod: doc.MinLod, MaxLod: doc.MaxLod,
		BorderColor: doc.BorderColor, UnnormalizedCoordinates: doc.UnnormalizedCoordinates,
	}, nil
}

type bindingDoc struct {
	Binding           uint32       `json:"binding"`
	DescriptorType    uint32       `json:"descriptorType"`
	DescriptorCount   uint32       `json:"descriptorCount"`
	StageFlags        uint32       `json:"stageFlags"`
	ImmutableSamplers []HashString `json:"immutableSamplers,omitempty"`
}

type setLayoutDoc struct {
	Flags    uint32       `json:"flags"`
	Bindings []bindingDoc `json:"bindings"`
}

// EncodeDescriptorSetLayout renders d as its canonical JSON document.
func EncodeDescriptorSetLayout(d *descriptor.DescriptorSetLayout) ([]byte, error) {
	doc := setLayoutDoc{Flags: d.Flags}
	for _, b := range d.Bindings {
		doc.Bindings = append(doc.Bindings, bindingDoc{
			Binding: b.Binding, DescriptorType: b.DescriptorType, DescriptorCount: b.DescriptorCount,
			StageFlags: b.StageFlags, ImmutableSamplers: hashStrings(b.ImmutableSamplers),
		})
	}
	return json.Marshal(doc)
}

// DecodeDescriptorSetLayout parses a descriptor set layout JSON document.
func DecodeDescriptorSetLayout(b []byte) (*descriptor.DescriptorSetLayout, error) {
	var doc setLayoutDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("serialize: decode descriptor set layout: %w", err)
	}
	out := &descriptor.DescriptorSetLayout{Flags: doc.Flags}
	for _, bd := range doc.Bindings {
		samplers, err := parseHashes(bd.ImmutableSamplers)
		if err != nil {
			return nil, err
		}
		out.Bindings = append(out.Bindings, descriptor.DescriptorSetLayoutBinding{
			Binding: bd.Binding, DescriptorType: bd.DescriptorType, DescriptorCount: bd.DescriptorCount,
			StageFlags: bd.StageFlags, ImmutableSamplers: samplers,
		})
	}
	return out, nil
}

type pushConstantDoc struct {
	StageFlags uint32 `json:"stageFlags"`
	Offset     uint32 `json:"offset"`
	Size       uint32 `json:"size"`
}

type pipelineLayoutDoc struct {
	Flags              uint32            `json:"flags"`
	SetLayouts         []HashString      `json:"setLayouts"`
	PushConstantRanges []pushConstantDoc `json:"pushConstantRanges,omitempty"`
}

// EncodePipelineLayout renders p as its canonical JSON document.
func EncodePipelineLayout(p *descriptor.PipelineLayout) ([]byte, error) {
	doc := pipelineLayoutDoc{Flags: p.Flags, SetLayouts: hashStrings(p.SetLayouts)}
	for _, r := range p.PushConstantRanges {
		doc.PushConstantRanges = append(doc.PushConstantRanges, pushConstantDoc{r.StageFlags, r.Offset, r.Size})
	}
	return json.Marshal(doc)
}

// DecodePipelineLayout parses a pipeline layout JSON document.
func DecodePipelineLayout(b []byte) (*descriptor.PipelineLayout, error) {
	var doc pipelineLayoutDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("serialize: decode pipeline layout: %w", err)
	}
	sets, err := parseHashes(doc.SetLayouts)
	if err != nil {
		return nil, err
	}
	out := &descriptor.PipelineLayout{Flags: doc.Flags, SetLayouts: sets}
	for _, r := range doc.PushConstantRanges {
		out.PushConstantRanges = append(out.PushConstantRanges, descriptor.PushConstantRange{
			StageFlags: r.StageFlags, Offset: r.Offset, Size: r.Size,
		})
	}
	return out, nil
}

type shaderModuleDoc struct {
	Flags    uint32 `json:"flags"`
	NumWords uint32 `json:"numWords"`
}

// EncodeShaderModule renders s as a JSON header followed by a varint-coded
// binary tail carrying the SPIR-V words. The two are concatenated with no
// separator; the header is a fixed-shape single-line JSON object so a
// reader can locate its end by decoding a json.Decoder incrementally and
// treating everything after as the tail (see DecodeShaderModule).
func EncodeShaderModule(s *descriptor.ShaderModule) ([]byte, error) {
	header, err := json.Marshal(shaderModuleDoc{Flags: s.Flags, NumWords: uint32(len(s.Code))})
	if err != nil {
		return nil, err
	}
	var tail []byte
	for _, w := range s.Code {
		tail = fossilize.AppendVarint(tail, w)
	}
	return append(header, tail...), nil
}

// DecodeShaderModule parses a blob produced by EncodeShaderModule.
func DecodeShaderModule(b []byte) (*descriptor.ShaderModule, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	var doc shaderModuleDoc
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("serialize: decode shader module header: %w", err)
	}
	tail := b[dec.InputOffset():]
	code := make([]uint32, 0, doc.NumWords)
	for len(tail) > 0 && uint32(len(code)) < doc.NumWords {
		v, n, ok := fossilize.ReadVarint(tail)
		if !ok {
			return nil, fossilize.ErrTruncatedRecord
		}
		code = append(code, v)
		tail = tail[n:]
	}
	if uint32(len(code)) != doc.NumWords {
		return nil, fossilize.ErrTruncatedRecord
	}
	return &descriptor.ShaderModule{Flags: doc.Flags, Code: code}, nil
}
