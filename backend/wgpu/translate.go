package wgpu

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/pso/gpucore"
)

// =============================================================================
// Vertex input
// =============================================================================

// vertexFormats is indexed by value type, normalization and component count.
var vertexFormats = map[gpucore.ValueType][2][5]gputypes.VertexFormat{
	gpucore.ValueTypeFloat32: {
		{1: gputypes.VertexFormatFloat32, 2: gputypes.VertexFormatFloat32x2, 3: gputypes.VertexFormatFloat32x3, 4: gputypes.VertexFormatFloat32x4},
	},
	gpucore.ValueTypeInt32: {
		{1: gputypes.VertexFormatSint32, 2: gputypes.VertexFormatSint32x2, 3: gputypes.VertexFormatSint32x3, 4: gputypes.VertexFormatSint32x4},
	},
	gpucore.ValueTypeUint8: {
		{2: gputypes.VertexFormatUint8x2, 4: gputypes.VertexFormatUint8x4},
		{2: gputypes.VertexFormatUnorm8x2, 4: gputypes.VertexFormatUnorm8x4},
	},
}

func vertexFormat(el gpucore.LayoutElement) gputypes.VertexFormat {
	formats, ok := vertexFormats[el.ValueType]
	if !ok || el.NumComponents > 4 {
		return gputypes.VertexFormatUndefined
	}
	norm := 0
	if el.IsNormalized {
		norm = 1
	}
	return formats[norm][el.NumComponents]
}

// vertexBuffers groups layout elements by buffer slot. Slots that no
// element uses are marked unused.
func vertexBuffers(layout []gpucore.LayoutElement) ([]gputypes.VertexBufferLayout, error) {
	if len(layout) == 0 {
		return nil, nil
	}
	var maxSlot uint32
	for i, el := range layout {
		if el.InputIndex == gpucore.UnassignedInput {
			return nil, fmt.Errorf("%w: element %d", ErrUnassignedInput, i)
		}
		maxSlot = max(maxSlot, el.BufferSlot)
	}

	bufs := make([]gputypes.VertexBufferLayout, maxSlot+1)
	for i := range bufs {
		bufs[i].StepMode = gputypes.VertexStepModeVertexBufferNotUsed
	}
	for i, el := range layout {
		f := vertexFormat(el)
		if f == gputypes.VertexFormatUndefined {
			return nil, fmt.Errorf("%w: element %d has %d components of type %d", ErrVertexFormat, i, el.NumComponents, el.ValueType)
		}
		b := &bufs[el.BufferSlot]
		b.ArrayStride = uint64(el.Stride)
		b.StepMode = gputypes.VertexStepModeVertex
		if el.Frequency == gpucore.FrequencyPerInstance {
			b.StepMode = gputypes.VertexStepModeInstance
			if el.InstanceDataStepRate > 1 {
				slogger().Warn("wgpu: instance step rate is always 1", "element", i, "rate", el.InstanceDataStepRate)
			}
		}
		b.Attributes = append(b.Attributes, gputypes.VertexAttribute{
			Format:         f,
			Offset:         uint64(el.RelativeOffset),
			ShaderLocation: el.InputIndex,
		})
	}
	return bufs, nil
}

// =============================================================================
// Fixed function state
// =============================================================================

var topologies = [...]gputypes.PrimitiveTopology{
	gpucore.TopologyTriangleList:  gputypes.PrimitiveTopologyTriangleList,
	gpucore.TopologyLineList:      gputypes.PrimitiveTopologyLineList,
	gpucore.TopologyPointList:     gputypes.PrimitiveTopologyPointList,
	gpucore.TopologyTriangleStrip: gputypes.PrimitiveTopologyTriangleStrip,
	gpucore.TopologyLineStrip:     gputypes.PrimitiveTopologyLineStrip,
}

func primitiveState(ci *gpucore.GraphicsPipelineCreateInfo) (gputypes.PrimitiveState, error) {
	t := ci.PrimitiveTopology
	if t == gpucore.TopologyUndefined || int(t) >= len(topologies) {
		return gputypes.PrimitiveState{}, ErrUndefinedTopology
	}
	ps := gputypes.PrimitiveState{
		Topology:       topologies[t],
		FrontFace:      gputypes.FrontFaceCW,
		CullMode:       ci.Rasterizer.CullMode,
		UnclippedDepth: !ci.Rasterizer.DepthClipEnable,
	}
	if ci.Rasterizer.FrontCounterClockwise {
		ps.FrontFace = gputypes.FrontFaceCCW
	}
	return ps, nil
}

var stencilOps = [...]hal.StencilOperation{
	gpucore.StencilOpKeep:          hal.StencilOperationKeep,
	gpucore.StencilOpZero:          hal.StencilOperationZero,
	gpucore.StencilOpReplace:       hal.StencilOperationReplace,
	gpucore.StencilOpIncrementWrap: hal.StencilOperationIncrementWrap,
	gpucore.StencilOpDecrementWrap: hal.StencilOperationDecrementWrap,
}

func stencilOp(op gpucore.StencilOperation) hal.StencilOperation {
	if int(op) < len(stencilOps) {
		return stencilOps[op]
	}
	return hal.StencilOperationKeep
}

func stencilFace(f gpucore.StencilFaceDesc) hal.StencilFaceState {
	return hal.StencilFaceState{
		Compare:     f.Func,
		FailOp:      stencilOp(f.FailOp),
		DepthFailOp: stencilOp(f.DepthFailOp),
		PassOp:      stencilOp(f.PassOp),
	}
}

// depthStencilState returns nil without a depth buffer.
func depthStencilState(ci *gpucore.GraphicsPipelineCreateInfo) *hal.DepthStencilState {
	if ci.DSVFormat == gputypes.TextureFormatUndefined {
		return nil
	}
	ds := &ci.DepthStencil
	passThrough := hal.StencilFaceState{Compare: gputypes.CompareFunctionAlways}
	st := &hal.DepthStencilState{
		Format:              ci.DSVFormat,
		DepthCompare:        gputypes.CompareFunctionAlways,
		StencilFront:        passThrough,
		StencilBack:         passThrough,
		DepthBias:           ci.Rasterizer.DepthBias,
		DepthBiasSlopeScale: ci.Rasterizer.SlopeScaledDepthBias,
	}
	if ds.DepthEnable {
		st.DepthWriteEnabled = ds.DepthWriteEnable
		st.DepthCompare = ds.DepthFunc
	}
	if ds.StencilEnable {
		st.StencilFront = stencilFace(ds.FrontFace)
		st.StencilBack = stencilFace(ds.BackFace)
		st.StencilReadMask = uint32(ds.StencilReadMask)
		st.StencilWriteMask = uint32(ds.StencilWriteMask)
	}
	return st
}

// colorTargets uses the first target blend for every target unless
// independent blending is enabled.
func colorTargets(ci *gpucore.GraphicsPipelineCreateInfo) ([]gputypes.ColorTargetState, error) {
	if ci.NumRenderTargets > gpucore.MaxRenderTargets {
		return nil, fmt.Errorf("%w: %d", ErrTooManyTargets, ci.NumRenderTargets)
	}
	out := make([]gputypes.ColorTargetState, ci.NumRenderTargets)
	for i := range out {
		rt := ci.Blend.RenderTargets[0]
		if ci.Blend.IndependentBlend {
			rt = ci.Blend.RenderTargets[i]
		}
		out[i] = gputypes.ColorTargetState{Format: ci.RTVFormats[i], WriteMask: rt.WriteMask}
		if rt.BlendEnable {
			out[i].Blend = &gputypes.BlendState{
				Color: gputypes.BlendComponent{SrcFactor: rt.SrcBlend, DstFactor: rt.DestBlend, Operation: rt.BlendOp},
				Alpha: gputypes.BlendComponent{SrcFactor: rt.SrcBlendAlpha, DstFactor: rt.DestBlendAlpha, Operation: rt.BlendOpAlpha},
			}
		}
	}
	return out, nil
}

func multisampleState(ci *gpucore.GraphicsPipelineCreateInfo) gputypes.MultisampleState {
	ms := gputypes.DefaultMultisampleState()
	if ci.SampleCount > 1 {
		ms.Count = ci.SampleCount
	}
	ms.AlphaToCoverageEnabled = ci.Blend.AlphaToCoverage
	return ms
}

// =============================================================================
// Samplers
// =============================================================================

const maxLOD = 32

func filterMode(f gpucore.FilterType) gputypes.FilterMode {
	if f.Base() == gpucore.FilterPoint {
		return gputypes.FilterModeNearest
	}
	return gputypes.FilterModeLinear
}

func addressMode(m gputypes.AddressMode) gputypes.AddressMode {
	if m == gputypes.AddressModeUndefined {
		return gputypes.AddressModeClampToEdge
	}
	return m
}

// clampLOD maps infinite bounds onto the WebGPU range [0, 32].
func clampLOD(v float32) float32 {
	f := float64(v)
	switch {
	case math.IsNaN(f), math.IsInf(f, 1):
		return maxLOD
	case math.IsInf(f, -1):
		return 0
	}
	return float32(math.Min(math.Max(f, 0), maxLOD))
}

func samplerDescriptor(name string, s gpucore.SamplerDesc) *hal.SamplerDescriptor {
	d := &hal.SamplerDescriptor{
		Label:        name,
		AddressModeU: addressMode(s.AddressU),
		AddressModeV: addressMode(s.AddressV),
		AddressModeW: addressMode(s.AddressW),
		MagFilter:    filterMode(s.MagFilter),
		MinFilter:    filterMode(s.MinFilter),
		MipmapFilter: filterMode(s.MipFilter),
		LodMinClamp:  clampLOD(s.MinLOD),
		LodMaxClamp:  clampLOD(s.MaxLOD),
		Anisotropy:   1,
	}
	d.LodMaxClamp = max(d.LodMaxClamp, d.LodMinClamp)
	if s.MinFilter.Base() == gpucore.FilterAnisotropic {
		d.Anisotropy = uint16(min(max(s.MaxAnisotropy, 1), 16))
	}
	if s.MinFilter.IsComparison() {
		d.Compare = s.ComparisonFunc
	}
	return d
}

// =============================================================================
// Bind group layouts
// =============================================================================

func visibility(stages gpucore.ShaderStage) gputypes.ShaderStages {
	var v gputypes.ShaderStages
	if stages&gpucore.ShaderStageVertex != 0 {
		v |= gputypes.ShaderStageVertex
	}
	if stages&gpucore.ShaderStagePixel != 0 {
		v |= gputypes.ShaderStageFragment
	}
	if stages&gpucore.ShaderStageCompute != 0 {
		v |= gputypes.ShaderStageCompute
	}
	return v
}

func viewDimension(typeName string) gputypes.TextureViewDimension {
	switch {
	case strings.Contains(typeName, "_cube_array"):
		return gputypes.TextureViewDimensionCubeArray
	case strings.Contains(typeName, "_cube"):
		return gputypes.TextureViewDimensionCube
	case strings.Contains(typeName, "_2d_array"):
		return gputypes.TextureViewDimension2DArray
	case strings.Contains(typeName, "_3d"):
		return gputypes.TextureViewDimension3D
	case strings.Contains(typeName, "_1d"):
		return gputypes.TextureViewDimension1D
	default:
		return gputypes.TextureViewDimension2D
	}
}

func sampleType(typeName string) gputypes.TextureSampleType {
	switch {
	case strings.HasPrefix(typeName, "texture_depth"):
		return gputypes.TextureSampleTypeDepth
	case strings.Contains(typeName, "<i32>"):
		return gputypes.TextureSampleTypeSint
	case strings.Contains(typeName, "<u32>"):
		return gputypes.TextureSampleTypeUint
	default:
		return gputypes.TextureSampleTypeFloat
	}
}

var storageFormats = map[string]gputypes.TextureFormat{
	"rgba8unorm":  gputypes.TextureFormatRGBA8Unorm,
	"rgba8snorm":  gputypes.TextureFormatRGBA8Snorm,
	"rgba8uint":   gputypes.TextureFormatRGBA8Uint,
	"rgba8sint":   gputypes.TextureFormatRGBA8Sint,
	"bgra8unorm":  gputypes.TextureFormatBGRA8Unorm,
	"rgba16float": gputypes.TextureFormatRGBA16Float,
	"rgba32float": gputypes.TextureFormatRGBA32Float,
	"r32float":    gputypes.TextureFormatR32Float,
	"r32uint":     gputypes.TextureFormatR32Uint,
	"r32sint":     gputypes.TextureFormatR32Sint,
}

var storageAccess = map[string]gputypes.StorageTextureAccess{
	"write":      gputypes.StorageTextureAccessWriteOnly,
	"read":       gputypes.StorageTextureAccessReadOnly,
	"read_write": gputypes.StorageTextureAccessReadWrite,
}

// storageTexture parses texture_storage_2d<format, access>.
func storageTexture(typeName string) *gputypes.StorageTextureBindingLayout {
	st := &gputypes.StorageTextureBindingLayout{
		Access:        gputypes.StorageTextureAccessWriteOnly,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		ViewDimension: viewDimension(typeName),
	}
	open, end := strings.IndexByte(typeName, '<'), strings.LastIndexByte(typeName, '>')
	if open < 0 || end < open {
		return st
	}
	args := strings.Split(typeName[open+1:end], ",")
	if f, ok := storageFormats[strings.TrimSpace(args[0])]; ok {
		st.Format = f
	}
	if len(args) > 1 {
		if a, ok := storageAccess[strings.TrimSpace(args[1])]; ok {
			st.Access = a
		}
	}
	return st
}

func layoutEntry(r gpucore.ShaderResource) gputypes.BindGroupLayoutEntry {
	e := gputypes.BindGroupLayoutEntry{Binding: r.Binding, Visibility: visibility(r.Stages)}
	switch r.Kind {
	case gpucore.ResourceUniformBuffer:
		e.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}
	case gpucore.ResourceStorageBuffer:
		e.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}
		if r.Writable {
			e.Buffer.Type = gputypes.BufferBindingTypeStorage
		}
	case gpucore.ResourceTexture:
		e.Texture = &gputypes.TextureBindingLayout{
			SampleType:    sampleType(r.TypeName),
			ViewDimension: viewDimension(r.TypeName),
			Multisampled:  strings.Contains(r.TypeName, "multisampled"),
		}
	case gpucore.ResourceStorageTexture:
		e.StorageTexture = storageTexture(r.TypeName)
	case gpucore.ResourceSampler:
		e.Sampler = &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering}
		if r.TypeName == "sampler_comparison" {
			e.Sampler.Type = gputypes.SamplerBindingTypeComparison
		}
	}
	return e
}

// bindGroupEntries returns the layout entries of every group up to the
// highest one used. Unused groups stay empty so that group indices match
// the shader.
func bindGroupEntries(resources []gpucore.ShaderResource) [][]gputypes.BindGroupLayoutEntry {
	if len(resources) == 0 {
		return nil
	}
	var maxGroup uint32
	for _, r := range resources {
		maxGroup = max(maxGroup, r.Group)
	}
	groups := make([][]gputypes.BindGroupLayoutEntry, maxGroup+1)
	for _, r := range resources {
		groups[r.Group] = append(groups[r.Group], layoutEntry(r))
	}
	for _, g := range groups {
		sort.Slice(g, func(i, j int) bool { return g[i].Binding < g[j].Binding })
	}
	return groups
}
