package pso

import (
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/pso/backend/headless"
	"github.com/gogpu/pso/gpucore"
	"github.com/gogpu/pso/render"
	"github.com/gogpu/pso/shader"
)

// =============================================================================
// Test Helpers
// =============================================================================

const litVS = `
@group(0) @binding(0) var<uniform> camera: mat4x4<f32>;

@vertex
fn main(@location(0) iPos: vec3<f32>, @location(1) iTexCoord: vec2<f32>) -> @builtin(position) vec4<f32> {
    return camera * vec4<f32>(iPos, 1.0);
}
`

const litPS = `
@group(0) @binding(0) var<uniform> camera: mat4x4<f32>;
@group(1) @binding(0) var tDiffMap: texture_2d<f32>;
@group(1) @binding(1) var sDiffMap: sampler;
@group(1) @binding(2) var tNormalMap: texture_2d<f32>;

@fragment
fn main(@builtin(position) pos: vec4<f32>) -> @location(0) vec4<f32> {
    let uv = pos.xy / 512.0;
    let normal = textureSample(tNormalMap, sDiffMap, uv);
    return camera * (textureSample(tDiffMap, sDiffMap, uv) + normal);
}
`

const blurCS = `
@group(0) @binding(0) var tInput: texture_2d<f32>;
@group(0) @binding(1) var sInput: sampler;
@group(0) @binding(2) var<storage, read_write> result: array<vec4<f32>>;

@compute @workgroup_size(8, 8)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
    let uv = vec2<f32>(id.xy) / 64.0;
    result[id.x] = textureSampleLevel(tInput, sInput, uv, 0.0);
}
`

type fixture struct {
	gpu   *headless.Device
	dev   *render.Device
	cache *Cache
	vs    *shader.Shader
	ps    *shader.Shader
}

func newFixture(t *testing.T, backend gpucore.Backend, features gpucore.Features, opts ...CacheOption) *fixture {
	t.Helper()
	gpu := headless.New(headless.Options{Backend: backend, Features: features})
	dev := render.NewDevice(gpu)
	cache, err := NewCache(dev, opts...)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	if err := cache.Initialize(nil); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return &fixture{
		gpu:   gpu,
		dev:   dev,
		cache: cache,
		vs:    mustShader(t, dev, gpucore.ShaderStageVertex, "lit.vs", litVS),
		ps:    mustShader(t, dev, gpucore.ShaderStagePixel, "lit.ps", litPS),
	}
}

func newVulkanFixture(t *testing.T, opts ...CacheOption) *fixture {
	t.Helper()
	return newFixture(t, gpucore.BackendVulkan, gpucore.Features{SeparablePrograms: true}, opts...)
}

func mustShader(t *testing.T, dev *render.Device, stage gpucore.ShaderStage, name, src string) *shader.Shader {
	t.Helper()
	s, err := shader.New(dev, stage, name, src)
	if err != nil {
		t.Fatalf("shader.New(%s): %v", name, err)
	}
	return s
}

// litLayout declares position and texcoord in one interleaved buffer, plus
// a normal the lit shaders do not read.
func litLayout() []InputLayoutElementDesc {
	return []InputLayoutElementDesc{
		{BufferStride: 32, ElementOffset: 0, ElementType: TypeVector3, Semantic: gpucore.SemanticPosition},
		{BufferStride: 32, ElementOffset: 12, ElementType: TypeVector3, Semantic: gpucore.SemanticNormal},
		{BufferStride: 32, ElementOffset: 24, ElementType: TypeVector2, Semantic: gpucore.SemanticTexCoord},
	}
}

func (f *fixture) graphicsDesc() GraphicsPipelineStateDesc {
	d := GraphicsPipelineStateDesc{
		DebugName:            "lit",
		VertexShader:         f.vs,
		PixelShader:          f.ps,
		InputLayout:          litLayout(),
		PrimitiveType:        TriangleList,
		BlendMode:            BlendAlpha,
		ColorWriteEnabled:    true,
		DepthWriteEnabled:    true,
		DepthCompareFunction: CompareLessEqual,
		StencilCompareMask:   0xff,
		StencilWriteMask:     0xff,
		CullMode:             CullCCW,
		Output: OutputDesc{
			RenderTargetFormats: []gputypes.TextureFormat{gputypes.TextureFormatRGBA8Unorm},
			DepthStencilFormat:  gputypes.TextureFormatDepth24PlusStencil8,
			MultiSample:         1,
		},
	}
	d.Samplers.Add("DiffMap", SamplerStateDesc{FilterMode: FilterAnisotropic, Anisotropy: 16})
	d.Samplers.Add("NormalMap", SamplerStateDesc{FilterMode: FilterTrilinear})
	return d
}

// lastGraphicsInfo returns the create info of the newest graphics pipeline.
func (f *fixture) lastGraphicsInfo(t *testing.T) gpucore.GraphicsPipelineCreateInfo {
	t.Helper()
	infos := f.gpu.GraphicsCreateInfos()
	if len(infos) == 0 {
		t.Fatal("no graphics pipeline was created")
	}
	return infos[len(infos)-1]
}

func mustRelease(t *testing.T, st *PipelineState) {
	t.Helper()
	if err := st.Release(); err != nil {
		t.Fatalf("Release(%s): %v", st, err)
	}
}
