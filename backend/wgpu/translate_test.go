package wgpu

import (
	"errors"
	"math"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/pso/gpucore"
)

// =============================================================================
// Vertex input
// =============================================================================

func TestVertexFormat(t *testing.T) {
	tests := []struct {
		vt   gpucore.ValueType
		n    uint32
		norm bool
		want gputypes.VertexFormat
	}{
		{gpucore.ValueTypeFloat32, 1, false, gputypes.VertexFormatFloat32},
		{gpucore.ValueTypeFloat32, 4, false, gputypes.VertexFormatFloat32x4},
		{gpucore.ValueTypeInt32, 3, false, gputypes.VertexFormatSint32x3},
		{gpucore.ValueTypeUint8, 4, false, gputypes.VertexFormatUint8x4},
		{gpucore.ValueTypeUint8, 4, true, gputypes.VertexFormatUnorm8x4},
		{gpucore.ValueTypeUint8, 2, true, gputypes.VertexFormatUnorm8x2},
		{gpucore.ValueTypeUint8, 3, false, gputypes.VertexFormatUndefined},
		{gpucore.ValueTypeFloat32, 5, false, gputypes.VertexFormatUndefined},
		{gpucore.ValueTypeUndefined, 4, false, gputypes.VertexFormatUndefined},
	}
	for _, tt := range tests {
		el := gpucore.LayoutElement{ValueType: tt.vt, NumComponents: tt.n, IsNormalized: tt.norm}
		if got := vertexFormat(el); got != tt.want {
			t.Errorf("vertexFormat(%d x%d norm=%v) = %v, want %v", tt.vt, tt.n, tt.norm, got, tt.want)
		}
	}
}

func TestVertexBuffersSlots(t *testing.T) {
	layout := []gpucore.LayoutElement{
		{InputIndex: 0, BufferSlot: 0, Stride: 12, NumComponents: 3, ValueType: gpucore.ValueTypeFloat32},
		{InputIndex: 1, BufferSlot: 2, Stride: 64, NumComponents: 4, ValueType: gpucore.ValueTypeFloat32,
			Frequency: gpucore.FrequencyPerInstance, InstanceDataStepRate: 1},
		{InputIndex: 2, BufferSlot: 2, RelativeOffset: 16, Stride: 64, NumComponents: 4, ValueType: gpucore.ValueTypeFloat32,
			Frequency: gpucore.FrequencyPerInstance, InstanceDataStepRate: 1},
	}
	bufs, err := vertexBuffers(layout)
	if err != nil {
		t.Fatalf("vertexBuffers: %v", err)
	}
	if len(bufs) != 3 {
		t.Fatalf("buffers = %d, want 3", len(bufs))
	}
	if bufs[0].StepMode != gputypes.VertexStepModeVertex || bufs[0].ArrayStride != 12 {
		t.Errorf("slot 0 = %+v", bufs[0])
	}
	if bufs[1].StepMode != gputypes.VertexStepModeVertexBufferNotUsed || len(bufs[1].Attributes) != 0 {
		t.Errorf("slot 1 = %+v, want unused", bufs[1])
	}
	if bufs[2].StepMode != gputypes.VertexStepModeInstance || len(bufs[2].Attributes) != 2 || bufs[2].Attributes[1].Offset != 16 {
		t.Errorf("slot 2 = %+v", bufs[2])
	}

	if bufs, err := vertexBuffers(nil); err != nil || bufs != nil {
		t.Errorf("vertexBuffers(nil) = %v, %v", bufs, err)
	}
}

// =============================================================================
// Fixed function state
// =============================================================================

func TestPrimitiveState(t *testing.T) {
	ci := &gpucore.GraphicsPipelineCreateInfo{
		PrimitiveTopology: gpucore.TopologyLineStrip,
		Rasterizer: gpucore.RasterizerDesc{
			CullMode:              gputypes.CullModeFront,
			FrontCounterClockwise: true,
		},
	}
	ps, err := primitiveState(ci)
	if err != nil {
		t.Fatalf("primitiveState: %v", err)
	}
	if ps.Topology != gputypes.PrimitiveTopologyLineStrip || ps.FrontFace != gputypes.FrontFaceCCW ||
		ps.CullMode != gputypes.CullModeFront || !ps.UnclippedDepth {
		t.Errorf("primitive = %+v", ps)
	}

	ci.PrimitiveTopology = gpucore.PrimitiveTopology(200)
	if _, err := primitiveState(ci); !errors.Is(err, ErrUndefinedTopology) {
		t.Errorf("out of range topology err = %v", err)
	}
}

func TestDepthStencilState(t *testing.T) {
	ci := &gpucore.GraphicsPipelineCreateInfo{}
	if ds := depthStencilState(ci); ds != nil {
		t.Errorf("depthStencilState without DSV = %+v, want nil", ds)
	}

	ci.DSVFormat = gputypes.TextureFormatDepth24PlusStencil8
	ci.DepthStencil = gpucore.DepthStencilDesc{
		DepthEnable:      false,
		DepthWriteEnable: true,
		StencilEnable:    true,
		StencilReadMask:  0x0f,
		StencilWriteMask: 0xf0,
		FrontFace: gpucore.StencilFaceDesc{
			FailOp: gpucore.StencilOpZero, DepthFailOp: gpucore.StencilOpDecrementWrap,
			PassOp: gpucore.StencilOpReplace, Func: gputypes.CompareFunctionEqual,
		},
	}
	ci.Rasterizer.SlopeScaledDepthBias = 1.5
	ds := depthStencilState(ci)
	if ds.DepthWriteEnabled || ds.DepthCompare != gputypes.CompareFunctionAlways {
		t.Errorf("disabled depth = write %v compare %v", ds.DepthWriteEnabled, ds.DepthCompare)
	}
	want := hal.StencilFaceState{
		Compare:     gputypes.CompareFunctionEqual,
		FailOp:      hal.StencilOperationZero,
		DepthFailOp: hal.StencilOperationDecrementWrap,
		PassOp:      hal.StencilOperationReplace,
	}
	if ds.StencilFront != want {
		t.Errorf("front stencil = %+v, want %+v", ds.StencilFront, want)
	}
	if ds.StencilReadMask != 0x0f || ds.StencilWriteMask != 0xf0 || ds.DepthBiasSlopeScale != 1.5 {
		t.Errorf("depth stencil = %+v", ds)
	}
	if stencilOp(gpucore.StencilOperation(99)) != hal.StencilOperationKeep {
		t.Error("unknown stencil op is not Keep")
	}
}

func TestColorTargets(t *testing.T) {
	ci := &gpucore.GraphicsPipelineCreateInfo{NumRenderTargets: 2}
	ci.RTVFormats[0] = gputypes.TextureFormatRGBA8Unorm
	ci.RTVFormats[1] = gputypes.TextureFormatRGBA16Float
	ci.Blend.RenderTargets[0] = gpucore.RenderTargetBlendDesc{
		BlendEnable: true, SrcBlend: gputypes.BlendFactorOne, DestBlend: gputypes.BlendFactorOne,
		BlendOp: gputypes.BlendOperationAdd, WriteMask: gputypes.ColorWriteMaskAll,
	}
	ci.Blend.RenderTargets[1] = gpucore.RenderTargetBlendDesc{WriteMask: gputypes.ColorWriteMaskRed}

	targets, err := colorTargets(ci)
	if err != nil {
		t.Fatalf("colorTargets: %v", err)
	}
	if targets[1].Blend == nil || targets[1].WriteMask != gputypes.ColorWriteMaskAll {
		t.Errorf("shared blend target 1 = %+v, want the first target's blend", targets[1])
	}
	if targets[1].Format != gputypes.TextureFormatRGBA16Float {
		t.Errorf("target 1 format = %v", targets[1].Format)
	}

	ci.Blend.IndependentBlend = true
	targets, _ = colorTargets(ci)
	if targets[1].Blend != nil || targets[1].WriteMask != gputypes.ColorWriteMaskRed {
		t.Errorf("independent target 1 = %+v", targets[1])
	}
}

func TestMultisampleState(t *testing.T) {
	ci := &gpucore.GraphicsPipelineCreateInfo{}
	if ms := multisampleState(ci); ms.Count != 1 || ms.Mask != 0xFFFFFFFF {
		t.Errorf("default multisample = %+v", ms)
	}
	ci.SampleCount = 8
	ci.Blend.AlphaToCoverage = true
	if ms := multisampleState(ci); ms.Count != 8 || !ms.AlphaToCoverageEnabled {
		t.Errorf("multisample = %+v", ms)
	}
}

// =============================================================================
// Samplers
// =============================================================================

func TestClampLOD(t *testing.T) {
	tests := []struct {
		in, want float32
	}{
		{0, 0},
		{4.5, 4.5},
		{-3, 0},
		{1000, maxLOD},
		{float32(math.Inf(1)), maxLOD},
		{float32(math.Inf(-1)), 0},
		{float32(math.NaN()), maxLOD},
	}
	for _, tt := range tests {
		if got := clampLOD(tt.in); got != tt.want {
			t.Errorf("clampLOD(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSamplerDescriptor(t *testing.T) {
	d := samplerDescriptor("s", gpucore.SamplerDesc{
		MinFilter: gpucore.FilterPoint, MagFilter: gpucore.FilterLinear, MipFilter: gpucore.FilterPoint,
		MinLOD: 8, MaxLOD: 2,
	})
	if d.MinFilter != gputypes.FilterModeNearest || d.MagFilter != gputypes.FilterModeLinear {
		t.Errorf("filters = %v/%v", d.MinFilter, d.MagFilter)
	}
	if d.AddressModeU != gputypes.AddressModeClampToEdge {
		t.Errorf("undefined address mode = %v, want ClampToEdge", d.AddressModeU)
	}
	if d.LodMinClamp != 8 || d.LodMaxClamp != 8 {
		t.Errorf("lod = [%v, %v], want [8, 8]", d.LodMinClamp, d.LodMaxClamp)
	}
	if d.Anisotropy != 1 || d.Compare != gputypes.CompareFunctionUndefined {
		t.Errorf("anisotropy %d compare %v", d.Anisotropy, d.Compare)
	}

	d = samplerDescriptor("s", gpucore.SamplerDesc{
		MinFilter: gpucore.FilterComparisonAnisotropic, MaxAnisotropy: 64,
		ComparisonFunc: gputypes.CompareFunctionGreater,
	})
	if d.Anisotropy != 16 || d.Compare != gputypes.CompareFunctionGreater {
		t.Errorf("anisotropy %d compare %v, want 16 Greater", d.Anisotropy, d.Compare)
	}
}

// =============================================================================
// Bind group layouts
// =============================================================================

func TestTextureTypes(t *testing.T) {
	tests := []struct {
		typeName string
		dim      gputypes.TextureViewDimension
		sample   gputypes.TextureSampleType
	}{
		{"texture_2d<f32>", gputypes.TextureViewDimension2D, gputypes.TextureSampleTypeFloat},
		{"texture_2d_array<i32>", gputypes.TextureViewDimension2DArray, gputypes.TextureSampleTypeSint},
		{"texture_cube<f32>", gputypes.TextureViewDimensionCube, gputypes.TextureSampleTypeFloat},
		{"texture_cube_array<u32>", gputypes.TextureViewDimensionCubeArray, gputypes.TextureSampleTypeUint},
		{"texture_3d<f32>", gputypes.TextureViewDimension3D, gputypes.TextureSampleTypeFloat},
		{"texture_1d<f32>", gputypes.TextureViewDimension1D, gputypes.TextureSampleTypeFloat},
		{"texture_depth_cube", gputypes.TextureViewDimensionCube, gputypes.TextureSampleTypeDepth},
	}
	for _, tt := range tests {
		if got := viewDimension(tt.typeName); got != tt.dim {
			t.Errorf("viewDimension(%q) = %v, want %v", tt.typeName, got, tt.dim)
		}
		if got := sampleType(tt.typeName); got != tt.sample {
			t.Errorf("sampleType(%q) = %v, want %v", tt.typeName, got, tt.sample)
		}
	}
}

func TestStorageTexture(t *testing.T) {
	tests := []struct {
		typeName string
		format   gputypes.TextureFormat
		access   gputypes.StorageTextureAccess
	}{
		{"texture_storage_2d<r32float, read_write>", gputypes.TextureFormatR32Float, gputypes.StorageTextureAccessReadWrite},
		{"texture_storage_2d<rgba8unorm, read>", gputypes.TextureFormatRGBA8Unorm, gputypes.StorageTextureAccessReadOnly},
		{"texture_storage_3d<rgba32float>", gputypes.TextureFormatRGBA32Float, gputypes.StorageTextureAccessWriteOnly},
		{"texture_storage_2d<bogus, write>", gputypes.TextureFormatRGBA8Unorm, gputypes.StorageTextureAccessWriteOnly},
	}
	for _, tt := range tests {
		st := storageTexture(tt.typeName)
		if st.Format != tt.format || st.Access != tt.access {
			t.Errorf("storageTexture(%q) = %v %v, want %v %v", tt.typeName, st.Format, st.Access, tt.format, tt.access)
		}
	}
	if st := storageTexture("texture_storage_3d<rgba32float>"); st.ViewDimension != gputypes.TextureViewDimension3D {
		t.Errorf("view dimension = %v, want 3D", st.ViewDimension)
	}
}

func TestBindGroupEntries(t *testing.T) {
	resources := []gpucore.ShaderResource{
		{Name: "sLinear", Kind: gpucore.ResourceSampler, Group: 1, Binding: 3, Stages: gpucore.ShaderStagePixel, TypeName: "sampler"},
		{Name: "tMS", Kind: gpucore.ResourceTexture, Group: 1, Binding: 0, Stages: gpucore.ShaderStagePixel, TypeName: "texture_multisampled_2d<f32>"},
		{Name: "camera", Kind: gpucore.ResourceUniformBuffer, Group: 0, Binding: 0, Stages: gpucore.ShaderStageVertex},
	}
	groups := bindGroupEntries(resources)
	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}
	g1 := groups[1]
	if len(g1) != 2 || g1[0].Binding != 0 || g1[1].Binding != 3 {
		t.Fatalf("group 1 = %+v, want sorted by binding", g1)
	}
	if !g1[0].Texture.Multisampled {
		t.Error("multisampled texture not flagged")
	}
	if g1[1].Sampler.Type != gputypes.SamplerBindingTypeFiltering || g1[1].Visibility != gputypes.ShaderStageFragment {
		t.Errorf("sampler entry = %+v", g1[1])
	}
	if bindGroupEntries(nil) != nil {
		t.Error("bindGroupEntries(nil) != nil")
	}
}

func TestLink(t *testing.T) {
	vs := &shaderHandle{stage: gpucore.ShaderStageVertex, refl: &gpucore.ShaderReflection{
		VertexAttributes: []gpucore.VertexShaderAttribute{{Semantic: gpucore.SemanticPosition, InputIndex: 3}},
		Resources:        []gpucore.ShaderResource{{Name: "camera"}},
	}}
	ps := &shaderHandle{stage: gpucore.ShaderStagePixel, refl: &gpucore.ShaderReflection{
		Resources: []gpucore.ShaderResource{{Name: "camera"}, {Name: "tDiffMap"}},
	}}

	p := link([]*shaderHandle{vs, ps})
	if len(p.attrs) != 1 || p.attrs[0].InputIndex != 3 {
		t.Errorf("attrs = %v", p.attrs)
	}
	if len(p.resources) != 2 {
		t.Fatalf("resources = %d, want 2", len(p.resources))
	}
	if p.resources[0].Stages != gpucore.ShaderStageVertex|gpucore.ShaderStagePixel || p.resources[1].Stages != gpucore.ShaderStagePixel {
		t.Errorf("stages = %v, %v", p.resources[0].Stages, p.resources[1].Stages)
	}
}
