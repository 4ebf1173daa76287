package gpucore

import "github.com/gogpu/gputypes"

// MaxRenderTargets is the maximum number of simultaneous color targets.
const MaxRenderTargets = 8

// RenderTargetBlendDesc is the blend state of one color target.
type RenderTargetBlendDesc struct {
	BlendEnable    bool
	SrcBlend       gputypes.BlendFactor
	DestBlend      gputypes.BlendFactor
	BlendOp        gputypes.BlendOperation
	SrcBlendAlpha  gputypes.BlendFactor
	DestBlendAlpha gputypes.BlendFactor
	BlendOpAlpha   gputypes.BlendOperation
	WriteMask      gputypes.ColorWriteMask
}

// BlendDesc is the blend state of all color targets.
type BlendDesc struct {
	AlphaToCoverage  bool
	IndependentBlend bool
	RenderTargets    [MaxRenderTargets]RenderTargetBlendDesc
}

// StencilFaceDesc is the stencil state of one polygon face.
type StencilFaceDesc struct {
	FailOp      StencilOperation
	DepthFailOp StencilOperation
	PassOp      StencilOperation
	Func        gputypes.CompareFunction
}

// DepthStencilDesc is the depth and stencil test state.
type DepthStencilDesc struct {
	DepthEnable      bool
	DepthWriteEnable bool
	DepthFunc        gputypes.CompareFunction
	StencilEnable    bool
	StencilReadMask  uint8
	StencilWriteMask uint8
	FrontFace        StencilFaceDesc
	BackFace         StencilFaceDesc
}

// RasterizerDesc is the rasterizer state.
type RasterizerDesc struct {
	FillMode              FillMode
	CullMode              gputypes.CullMode
	FrontCounterClockwise bool
	DepthBias             int32
	SlopeScaledDepthBias  float32
	DepthClipEnable       bool
	ScissorEnable         bool
	AntialiasedLineEnable bool
}

// ProgramLinkedFunc is invoked by link-time reflection backends after the
// shader program is linked and before the pipeline object is finalized.
// A returned error fails pipeline creation.
type ProgramLinkedFunc func(program LinkedProgram) error

// GraphicsPipelineCreateInfo describes a graphics pipeline to a Device.
type GraphicsPipelineCreateInfo struct {
	Name string

	VS ShaderHandle
	PS ShaderHandle
	GS ShaderHandle
	HS ShaderHandle
	DS ShaderHandle

	InputLayout       []LayoutElement
	ImmutableSamplers []ImmutableSampler
	PrimitiveTopology PrimitiveTopology

	NumRenderTargets uint32
	RTVFormats       [MaxRenderTargets]gputypes.TextureFormat
	DSVFormat        gputypes.TextureFormat
	SampleCount      uint32

	Blend        BlendDesc
	DepthStencil DepthStencilDesc
	Rasterizer   RasterizerDesc

	DefaultVariableType ResourceVariableType
	Cache               PipelineCache

	// OnProgramLinked may rewrite InputLayout and ImmutableSamplers of this
	// create info. Nil on explicit reflection backends.
	OnProgramLinked ProgramLinkedFunc
}

// Shaders returns the non-nil shader handles in stage order.
func (ci *GraphicsPipelineCreateInfo) Shaders() []ShaderHandle {
	out := make([]ShaderHandle, 0, 5)
	for _, sh := range [...]ShaderHandle{ci.VS, ci.PS, ci.GS, ci.HS, ci.DS} {
		if sh != nil {
			out = append(out, sh)
		}
	}
	return out
}

// ComputePipelineCreateInfo describes a compute pipeline to a Device.
type ComputePipelineCreateInfo struct {
	Name string
	CS   ShaderHandle

	ImmutableSamplers   []ImmutableSampler
	DefaultVariableType ResourceVariableType
	Cache               PipelineCache

	OnProgramLinked ProgramLinkedFunc
}
