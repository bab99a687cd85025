package serialize

import (
	"encoding/json"
	"fmt"

	"github.com/fossilize/fossilize/descriptor"
)

type attachmentDoc struct {
	Flags          uint32 `json:"flags"`
	Format         uint32 `json:"format"`
	Samples        uint32 `json:"samples"`
	LoadOp         uint32 `json:"loadOp"`
	StoreOp        uint32 `json:"storeOp"`
	StencilLoadOp  uint32 `json:"stencilLoadOp"`
	StencilStoreOp uint32 `json:"stencilStoreOp"`
	InitialLayout  uint32 `json:"initialLayout"`
	FinalLayout    uint32 `json:"finalLayout"`
}

type attachmentRefDoc struct {
	Attachment uint32 `json:"attachment"`
	Layout     uint32 `json:"layout"`
}

type subpassDoc struct {
	Flags                  uint32             `json:"flags"`
	PipelineBindPoint      uint32             `json:"pipelineBindPoint"`
	InputAttachments       []attachmentRefDoc `json:"inputAttachments,omitempty"`
	ColorAttachments       []attachmentRefDoc `json:"colorAttachments,omitempty"`
	ResolveAttachments     []attachmentRefDoc `json:"resolveAttachments,omitempty"`
	DepthStencilAttachment *attachmentRefDoc  `json:"depthStencilAttachment,omitempty"`
	PreserveAttachments    []uint32           `json:"preserveAttachments,omitempty"`
}

type dependencyDoc struct {
	SrcSubpass      uint32 `json:"srcSubpass"`
	DstSubpass      uint32 `json:"dstSubpass"`
	SrcStageMask    uint32 `json:"srcStageMask"`
	DstStageMask    uint32 `json:"dstStageMask"`
	SrcAccessMask   uint32 `json:"srcAccessMask"`
	DstAccessMask   uint32 `json:"dstAccessMask"`
	DependencyFlags uint32 `json:"dependencyFlags"`
}

type renderPassDoc struct {
	Version      int             `json:"version"`
	Flags        uint32          `json:"flags"`
	Attachments  []attachmentDoc `json:"attachments,omitempty"`
	Subpasses    []subpassDoc    `json:"subpasses"`
	Dependencies []dependencyDoc `json:"dependencies,omitempty"`
}

func refToDoc(r descriptor.AttachmentReference) attachmentRefDoc {
	return attachmentRefDoc{r.Attachment, r.Layout}
}

func refFromDoc(d attachmentRefDoc) descriptor.AttachmentReference {
	return descriptor.AttachmentReference{Attachment: d.Attachment, Layout: d.Layout}
}

func refsToDoc(rs []descriptor.AttachmentReference) []attachmentRefDoc {
	if len(rs) == 0 {
		return nil
	}
	out := make([]attachmentRefDoc, len(rs))
	for i, r := range rs {
		out[i] = refToDoc(r)
	}
	return out
}

func refsFromDoc(ds []attachmentRefDoc) []descriptor.AttachmentReference {
	if len(ds) == 0 {
		return nil
	}
	out := make([]descriptor.AttachmentReference, len(ds))
	for i, d := range ds {
		out[i] = refFromDoc(d)
	}
	return out
}

// EncodeRenderPass renders r as its canonical JSON document.
func EncodeRenderPass(r *descriptor.RenderPass) ([]byte, error) {
	doc := renderPassDoc{Version: r.Version, Flags: r.Flags}
	for _, a := range r.Attachments {
		doc.Attachments = append(doc.Attachments, attachmentDoc{
			a.Flags, a.Format, a.Samples, a.LoadOp, a.StoreOp, a.StencilLoadOp, a.StencilStoreOp,
			a.InitialLayout, a.FinalLayout,
		})
	}
	for _, s := range r.Subpasses {
		sd := subpassDoc{
			Flags: s.Flags, PipelineBindPoint: s.PipelineBindPoint,
			InputAttachments: refsToDoc(s.InputAttachments), ColorAttachments: refsToDoc(s.ColorAttachments),
			ResolveAttachments: refsToDoc(s.ResolveAttachments), PreserveAttachments: s.PreserveAttachments,
		}
		if s.DepthStencilAttachment != nil {
			rd := refToDoc(*s.DepthStencilAttachment)
			sd.DepthStencilAttachment = &rd
		}
		doc.Subpasses = append(doc.Subpasses, sd)
	}
	for _, d := range r.Dependencies {
		doc.Dependencies = append(doc.Dependencies, dependencyDoc{
			d.SrcSubpass, d.DstSubpass, d.SrcStageMask, d.DstStageMask, d.SrcAccessMask, d.DstAccessMask, d.DependencyFlags,
		})
	}
	return json.Marshal(doc)
}

// DecodeRenderPass parses a render pass JSON document.
func DecodeRenderPass(b []byte) (*descriptor.RenderPass, error) {
	var doc renderPassDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("serialize: decode render pass: %w", err)
	}
	out := &descriptor.RenderPass{Version: doc.Version, Flags: doc.Flags}
	for _, a := range doc.Attachments {
		out.Attachments = append(out.Attachments, descriptor.AttachmentDescription{
			Flags: a.Flags, Format: a.Format, Samples: a.Samples, LoadOp: a.LoadOp, StoreOp: a.StoreOp,
			StencilLoadOp: a.StencilLoadOp, StencilStoreOp: a.StencilStoreOp,
			InitialLayout: a.InitialLayout, FinalLayout: a.FinalLayout,
		})
	}
	for _, s := range doc.Subpasses {
		ns := descriptor.SubpassDescription{
			Flags: s.Flags, PipelineBindPoint: s.PipelineBindPoint,
			InputAttachments: refsFromDoc(s.InputAttachments), ColorAttachments: refsFromDoc(s.ColorAttachments),
			ResolveAttachments: refsFromDoc(s.ResolveAttachments), PreserveAttachments: s.PreserveAttachments,
		}
		if s.DepthStencilAttachment != nil {
			ref := refFromDoc(*s.DepthStencilAttachment)
			ns.DepthStencilAttachment = &ref
		}
		out.Subpasses = append(out.Subpasses, ns)
	}
	for _, d := range doc.Dependencies {
		out.Dependencies = append(out.Dependencies, descriptor.SubpassDependency{
			SrcSubpass: d.SrcSubpass, DstSubpass: d.DstSubpass, SrcStageMask: d.SrcStageMask, DstStageMask: d.DstStageMask,
			SrcAccessMask: d.SrcAccessMask, DstAccessMask: d.DstAccessMask, DependencyFlags: d.DependencyFlags,
		})
	}
	return out, nil
}

type stageDoc struct {
	Flags              uint32     `json:"flags"`
	Stage              uint32     `json:"stage"`
	Module             HashString `json:"module"`
	EntryPoint         string     `json:"entryPoint"`
	SpecializationData []byte     `json:"specializationData,omitempty"`
}

func stageToDoc(s descriptor.StageCreateInfo) stageDoc {
	return stageDoc{s.Flags, s.Stage, NewHashString(s.Module), s.EntryPoint, s.SpecializationData}
}

func stageFromDoc(d stageDoc) (descriptor.StageCreateInfo, error) {
	h, err := d.Module.Hash64()
	if err != nil {
		return descriptor.StageCreateInfo{}, err
	}
	return descriptor.StageCreateInfo{
		Flags: d.Flags, Stage: d.Stage, Module: h, EntryPoint: d.EntryPoint, SpecializationData: d.SpecializationData,
	}, nil
}

type computePipelineDoc struct {
	Flags        uint32     `json:"flags"`
	Stage        stageDoc   `json:"stage"`
	Layout       HashString `json:"layout"`
	BasePipeline HashString `json:"basePipeline,omitempty"`
}

// EncodeComputePipeline renders c as its canonical JSON document.
func EncodeComputePipeline(c *descriptor.ComputePipeline) ([]byte, error) {
	doc := computePipelineDoc{
		Flags: c.Flags, Stage: stageToDoc(c.Stage), Layout: NewHashString(c.Layout),
		BasePipeline: NewHashString(c.BasePipeline),
	}
	return json.Marshal(doc)
}

// DecodeComputePipeline parses a compute pipeline JSON document.
func DecodeComputePipeline(b []byte) (*descriptor.ComputePipeline, error) {
	var doc computePipelineDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("serialize: decode compute pipeline: %w", err)
	}
	stage, err := stageFromDoc(doc.Stage)
	if err != nil {
		return nil, err
	}
	layout, err := doc.Layout.Hash64()
	if err != nil {
		return nil, err
	}
	base, err := doc.BasePipeline.Hash64()
	if err != nil {
		return nil, err
	}
	return &descriptor.ComputePipeline{Flags: doc.Flags, Stage: stage, Layout: layout, BasePipeline: base}, nil
}

type applicationInfoDoc struct {
	APIVersion         uint32 `json:"apiVersion"`
	ApplicationName    string `json:"applicationName"`
	ApplicationVersion uint32 `json:"applicationVersion"`
	EngineName         string `json:"engineName"`
	EngineVersion      uint32 `json:"engineVersion"`
}

// EncodeApplicationInfo renders a as its canonical JSON document.
func EncodeApplicationInfo(a *descriptor.ApplicationInfo) ([]byte, error) {
	return json.Marshal(applicationInfoDoc{
		APIVersion: a.APIVersion, ApplicationName: a.ApplicationName, ApplicationVersion: a.ApplicationVersion,
		EngineName: a.EngineName, EngineVersion: a.EngineVersion,
	})
}

// DecodeApplicationInfo parses an application-info JSON document.
func DecodeApplicationInfo(b []byte) (*descriptor.ApplicationInfo, error) {
	var doc applicationInfoDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("serialize: decode application info: %w", err)
	}
	return &descriptor.ApplicationInfo{
		APIVersion: doc.APIVersion, ApplicationName: doc.ApplicationName, ApplicationVersion: doc.ApplicationVersion,
		EngineName: doc.EngineName, EngineVersion: doc.EngineVersion,
	}, nil
}

type blobLinkDoc struct {
	ApplicationInfo HashString `json:"applicationInfo"`
	Blob            []byte     `json:"blob"`
}

// EncodeApplicationBlobLink renders l as its canonical JSON document.
func EncodeApplicationBlobLink(l *descriptor.ApplicationBlobLink) ([]byte, error) {
	return json.Marshal(blobLinkDoc{NewHashString(l.ApplicationInfo), l.Blob})
}

// DecodeApplicationBlobLink parses an application blob link JSON document.
func DecodeApplicationBlobLink(b []byte) (*descriptor.ApplicationBlobLink, error) {
	var doc blobLinkDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("serialize: decode application blob link: %w", err)
	}
	h, err := doc.ApplicationInfo.Hash64()
	if err != nil {
		return nil, err
	}
	return &descriptor.ApplicationBlobLink{ApplicationInfo: h, Blob: doc.Blob}, nil
}
