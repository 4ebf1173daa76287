package pso

import (
	"math"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/pso/gpucore"
)

// blendEquation is the backend form of a BlendMode.
type blendEquation struct {
	enable   bool
	src      gputypes.BlendFactor
	dst      gputypes.BlendFactor
	srcAlpha gputypes.BlendFactor
	dstAlpha gputypes.BlendFactor
	op       gputypes.BlendOperation
}

var blendEquations = [...]blendEquation{
	BlendReplace: {false,
		gputypes.BlendFactorOne, gputypes.BlendFactorZero,
		gputypes.BlendFactorOne, gputypes.BlendFactorZero,
		gputypes.BlendOperationAdd},
	BlendAdd: {true,
		gputypes.BlendFactorOne, gputypes.BlendFactorOne,
		gputypes.BlendFactorOne, gputypes.BlendFactorOne,
		gputypes.BlendOperationAdd},
	BlendMultiply: {true,
		gputypes.BlendFactorDst, gputypes.BlendFactorZero,
		gputypes.BlendFactorDst, gputypes.BlendFactorZero,
		gputypes.BlendOperationAdd},
	BlendAlpha: {true,
		gputypes.BlendFactorSrcAlpha, gputypes.BlendFactorOneMinusSrcAlpha,
		gputypes.BlendFactorSrcAlpha, gputypes.BlendFactorOneMinusSrcAlpha,
		gputypes.BlendOperationAdd},
	BlendAddAlpha: {true,
		gputypes.BlendFactorSrcAlpha, gputypes.BlendFactorOne,
		gputypes.BlendFactorSrcAlpha, gputypes.BlendFactorOne,
		gputypes.BlendOperationAdd},
	BlendPremulAlpha: {true,
		gputypes.BlendFactorOne, gputypes.BlendFactorOneMinusSrcAlpha,
		gputypes.BlendFactorOne, gputypes.BlendFactorOneMinusSrcAlpha,
		gputypes.BlendOperationAdd},
	BlendInvDestAlpha: {true,
		gputypes.BlendFactorOneMinusDstAlpha, gputypes.BlendFactorDstAlpha,
		gputypes.BlendFactorOneMinusDstAlpha, gputypes.BlendFactorDstAlpha,
		gputypes.BlendOperationAdd},
	BlendSubtract: {true,
		gputypes.BlendFactorOne, gputypes.BlendFactorOne,
		gputypes.BlendFactorOne, gputypes.BlendFactorOne,
		gputypes.BlendOperationReverseSubtract},
	BlendSubtractAlpha: {true,
		gputypes.BlendFactorSrcAlpha, gputypes.BlendFactorOne,
		gputypes.BlendFactorSrcAlpha, gputypes.BlendFactorOne,
		gputypes.BlendOperationReverseSubtract},
	// Decals blend color and keep the alpha of the G-buffer.
	BlendDeferredDecal: {true,
		gputypes.BlendFactorSrcAlpha, gputypes.BlendFactorOneMinusSrcAlpha,
		gputypes.BlendFactorZero, gputypes.BlendFactorOne,
		gputypes.BlendOperationAdd},
}

var compareFunctions = [...]gputypes.CompareFunction{
	CompareAlways:       gputypes.CompareFunctionAlways,
	CompareEqual:        gputypes.CompareFunctionEqual,
	CompareNotEqual:     gputypes.CompareFunctionNotEqual,
	CompareLess:         gputypes.CompareFunctionLess,
	CompareLessEqual:    gputypes.CompareFunctionLessEqual,
	CompareGreater:      gputypes.CompareFunctionGreater,
	CompareGreaterEqual: gputypes.CompareFunctionGreaterEqual,
}

var stencilOperations = [...]gpucore.StencilOperation{
	StencilKeep: gpucore.StencilOpKeep,
	StencilZero: gpucore.StencilOpZero,
	StencilRef:  gpucore.StencilOpReplace,
	StencilIncr: gpucore.StencilOpIncrementWrap,
	StencilDecr: gpucore.StencilOpDecrementWrap,
}

var cullModes = [...]gputypes.CullMode{
	CullNone: gputypes.CullModeNone,
	CullCCW:  gputypes.CullModeBack,
	CullCW:   gputypes.CullModeFront,
}

var fillModes = [...]gpucore.FillMode{
	FillSolid:     gpucore.FillSolid,
	FillWireframe: gpucore.FillWireframe,
	FillPoint:     gpucore.FillWireframe,
}

var primitiveTopologies = [...]gpucore.PrimitiveTopology{
	TriangleList:  gpucore.TopologyTriangleList,
	LineList:      gpucore.TopologyLineList,
	PointList:     gpucore.TopologyPointList,
	TriangleStrip: gpucore.TopologyTriangleStrip,
	LineStrip:     gpucore.TopologyLineStrip,
	TriangleFan:   gpucore.TopologyUndefined,
}

var (
	_ = [1]struct{}{}[len(blendEquations)-numBlendModes]
	_ = [1]struct{}{}[len(compareFunctions)-numCompareModes]
	_ = [1]struct{}{}[len(stencilOperations)-numStencilOps]
	_ = [1]struct{}{}[len(cullModes)-numCullModes]
	_ = [1]struct{}{}[len(fillModes)-numFillModes]
	_ = [1]struct{}{}[len(primitiveTopologies)-numPrimitiveTypes]
)

// lookup returns table[i], or the zero value when i is out of range.
func lookup[T any, I ~uint8](table []T, i I) T {
	if int(i) < len(table) {
		return table[i]
	}
	var zero T
	return zero
}

// Depth bias scale factors by depth buffer precision.
const (
	depthBiasScale16 = 1 << 16
	depthBiasScale24 = 1 << 24
)

// scaledDepthBias converts a bias in depth units to the integer constant
// bias of the backend. Backends with resolution independent bias take the
// value unscaled. Results outside the int32 range saturate; NaN gives 0.
func scaledDepthBias(bias float32, depthFormat gputypes.TextureFormat, resolutionIndependent bool) int32 {
	if resolutionIndependent {
		return saturateInt32(float64(bias))
	}
	scale := float64(depthBiasScale24)
	if depthFormat == gputypes.TextureFormatDepth16Unorm {
		scale = depthBiasScale16
	}
	return saturateInt32(float64(bias) * scale)
}

func saturateInt32(v float64) int32 {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt32:
		return math.MaxInt32
	case v <= math.MinInt32:
		return math.MinInt32
	}
	return int32(v)
}

// translateBlend fills the blend state. Only the first render target is
// configured; targets share its state.
func translateBlend(d *GraphicsPipelineStateDesc) gpucore.BlendDesc {
	out := gpucore.BlendDesc{AlphaToCoverage: d.AlphaToCoverageEnabled}
	if len(d.Output.RenderTargetFormats) == 0 {
		return out
	}
	eq := lookup(blendEquations[:], d.BlendMode)
	rt := &out.RenderTargets[0]
	rt.BlendEnable = eq.enable
	rt.SrcBlend = eq.src
	rt.DestBlend = eq.dst
	rt.BlendOp = eq.op
	rt.SrcBlendAlpha = eq.srcAlpha
	rt.DestBlendAlpha = eq.dstAlpha
	rt.BlendOpAlpha = eq.op
	rt.WriteMask = gputypes.ColorWriteMaskNone
	if d.ColorWriteEnabled {
		rt.WriteMask = gputypes.ColorWriteMaskAll
	}
	return out
}

// translateDepthStencil fills the depth and stencil state. The depth test
// is always enabled; both faces share the stencil operations.
func translateDepthStencil(d *GraphicsPipelineStateDesc) gpucore.DepthStencilDesc {
	face := gpucore.StencilFaceDesc{
		FailOp:      lookup(stencilOperations[:], d.StencilOperationOnStencilFailed),
		DepthFailOp: lookup(stencilOperations[:], d.StencilOperationOnDepthFailed),
		PassOp:      lookup(stencilOperations[:], d.StencilOperationOnPassed),
		Func:        lookup(compareFunctions[:], d.StencilCompareFunction),
	}
	return gpucore.DepthStencilDesc{
		DepthEnable:      true,
		DepthWriteEnable: d.DepthWriteEnabled,
		DepthFunc:        lookup(compareFunctions[:], d.DepthCompareFunction),
		StencilEnable:    d.StencilTestEnabled,
		StencilReadMask:  d.StencilCompareMask,
		StencilWriteMask: d.StencilWriteMask,
		FrontFace:        face,
		BackFace:         face,
	}
}

// translateRasterizer fills the rasterizer state for backend b.
func translateRasterizer(d *GraphicsPipelineStateDesc, b gpucore.Backend) gpucore.RasterizerDesc {
	return gpucore.RasterizerDesc{
		FillMode:              lookup(fillModes[:], d.FillMode),
		CullMode:              lookup(cullModes[:], d.CullMode),
		FrontCounterClockwise: false,
		DepthBias:             scaledDepthBias(d.ConstantDepthBias, d.Output.DepthStencilFormat, b.ResolutionIndependentDepthBias()),
		SlopeScaledDepthBias:  d.SlopeScaledDepthBias,
		DepthClipEnable:       true,
		ScissorEnable:         d.ScissorTestEnabled,
		AntialiasedLineEnable: d.LineAntiAlias && b != gpucore.BackendOpenGL,
	}
}

// translateTopology returns TopologyUndefined for types the backends cannot
// draw.
func translateTopology(t PrimitiveType) gpucore.PrimitiveTopology {
	return lookup(primitiveTopologies[:], t)
}
