package wgsl

import (
	"errors"
	"testing"

	"github.com/gogpu/pso/gpucore"
)

const litShader = `
// Lit model shader.
struct Camera {
    view_proj: mat4x4<f32>,
}

struct VertexInput {
    @location(0) iPos: vec3<f32>,
    @location(1) iNormal: vec3<f32>,
    @location(2) iTexCoord: vec2<f32>, /* primary uv */
}

struct VertexOutput {
    @builtin(position) clip: vec4<f32>,
    @location(0) uv: vec2<f32>,
}

@group(0) @binding(0) var<uniform> camera: Camera;
@group(1) @binding(1) var sDiffMap: sampler;
@group(1) @binding(0) var tDiffMap: texture_2d<f32>;

@vertex
fn vs_main(in: VertexInput, @location(5) iTexCoord1: vec2<f32>, @builtin(instance_index) inst: u32) -> VertexOutput {
    var out: VertexOutput;
    out.clip = camera.view_proj * vec4<f32>(in.iPos, 1.0);
    out.uv = in.iTexCoord + iTexCoord1;
    return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    return textureSample(tDiffMap, sDiffMap, in.uv);
}
`

type wantResource struct {
	name    string
	kind    gpucore.ShaderResourceKind
	group   uint32
	binding uint32
}

func checkResources(t *testing.T, got []gpucore.ShaderResource, stage gpucore.ShaderStage, want []wantResource) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("len(Resources) = %d, want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		r := got[i]
		if r.Name != w.name || r.Kind != w.kind || r.Group != w.group || r.Binding != w.binding {
			t.Errorf("Resources[%d] = %+v, want %+v", i, r, w)
		}
		if r.Stages != stage {
			t.Errorf("Resources[%d].Stages = %v, want %v", i, r.Stages, stage)
		}
	}
}

func TestReflectVertex(t *testing.T) {
	refl, err := Reflect(litShader, gpucore.ShaderStageVertex, "")
	if err != nil {
		t.Fatalf("Reflect: %v", err)
	}
	if refl.EntryPoint != "vs_main" {
		t.Errorf("EntryPoint = %q, want vs_main", refl.EntryPoint)
	}

	want := []gpucore.VertexShaderAttribute{
		{Semantic: gpucore.SemanticPosition, SemanticIndex: 0, InputIndex: 0},
		{Semantic: gpucore.SemanticNormal, SemanticIndex: 0, InputIndex: 1},
		{Semantic: gpucore.SemanticTexCoord, SemanticIndex: 0, InputIndex: 2},
		{Semantic: gpucore.SemanticTexCoord, SemanticIndex: 1, InputIndex: 5},
	}
	if len(refl.VertexAttributes) != len(want) {
		t.Fatalf("len(VertexAttributes) = %d, want %d: %v", len(refl.VertexAttributes), len(want), refl.VertexAttributes)
	}
	for i, w := range want {
		if got := refl.VertexAttributes[i]; got != w {
			t.Errorf("VertexAttributes[%d] = %+v, want %+v", i, got, w)
		}
	}

	// The vertex entry point only reads the camera.
	checkResources(t, refl.Resources, gpucore.ShaderStageVertex, []wantResource{
		{"camera", gpucore.ResourceUniformBuffer, 0, 0},
	})
}

func TestReflectResources(t *testing.T) {
	refl, err := Reflect(litShader, gpucore.ShaderStagePixel, "")
	if err != nil {
		t.Fatalf("Reflect: %v", err)
	}
	if refl.EntryPoint != "fs_main" {
		t.Errorf("EntryPoint = %q, want fs_main", refl.EntryPoint)
	}
	if len(refl.VertexAttributes) != 0 {
		t.Errorf("pixel stage has %d vertex attributes, want 0", len(refl.VertexAttributes))
	}
	checkResources(t, refl.Resources, gpucore.ShaderStagePixel, []wantResource{
		{"tDiffMap", gpucore.ResourceTexture, 1, 0},
		{"sDiffMap", gpucore.ResourceSampler, 1, 1},
	})
	if got := refl.Resources[0].TypeName; got != "texture_2d<f32>" {
		t.Errorf("tDiffMap TypeName = %q, want texture_2d<f32>", got)
	}
}

func TestReflectAttributeOrder(t *testing.T) {
	src := `
@binding(0) @group(1) var tDiffMap: texture_2d<f32>;
@group(1)
@binding(1)
var sDiffMap: sampler;

@fragment
fn main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
    return textureSample(tDiffMap, sDiffMap, uv);
}
`
	refl, err := Reflect(src, gpucore.ShaderStagePixel, "")
	if err != nil {
		t.Fatalf("Reflect: %v", err)
	}
	checkResources(t, refl.Resources, gpucore.ShaderStagePixel, []wantResource{
		{"tDiffMap", gpucore.ResourceTexture, 1, 0},
		{"sDiffMap", gpucore.ResourceSampler, 1, 1},
	})
}

func TestReflectStageUsage(t *testing.T) {
	src := `
@group(0) @binding(0) var<uniform> camera: mat4x4<f32>;
@group(0) @binding(1) var<uniform> tint: vec4<f32>;
@group(1) @binding(0) var tDiffMap: texture_2d<f32>;
@group(1) @binding(1) var sDiffMap: sampler;
@group(1) @binding(2) var tUnused: texture_2d<f32>;

fn shade(uv: vec2<f32>) -> vec4<f32> {
    return textureSample(tDiffMap, sDiffMap, uv) * tint;
}

@vertex
fn vs_main(@location(0) iPos: vec3<f32>) -> @builtin(position) vec4<f32> {
    return camera * vec4<f32>(iPos, 1.0);
}

@fragment
fn fs_main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
    return shade(uv);
}
`
	vs, err := Reflect(src, gpucore.ShaderStageVertex, "")
	if err != nil {
		t.Fatalf("Reflect(vertex): %v", err)
	}
	checkResources(t, vs.Resources, gpucore.ShaderStageVertex, []wantResource{
		{"camera", gpucore.ResourceUniformBuffer, 0, 0},
	})

	// Resources reached through a called function count for the caller.
	ps, err := Reflect(src, gpucore.ShaderStagePixel, "")
	if err != nil {
		t.Fatalf("Reflect(pixel): %v", err)
	}
	checkResources(t, ps.Resources, gpucore.ShaderStagePixel, []wantResource{
		{"tint", gpucore.ResourceUniformBuffer, 0, 1},
		{"tDiffMap", gpucore.ResourceTexture, 1, 0},
		{"sDiffMap", gpucore.ResourceSampler, 1, 1},
	})

	all, err := Resources(src, gpucore.ShaderStageGeometry)
	if err != nil {
		t.Fatalf("Resources: %v", err)
	}
	if len(all) != 5 {
		t.Errorf("len(Resources) = %d, want every declared binding (5)", len(all))
	}
}

func TestReflectErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		stage gpucore.ShaderStage
		entry string
		want  error
	}{
		{"no compute entry", litShader, gpucore.ShaderStageCompute, "", ErrNoEntryPoint},
		{"named entry missing", litShader, gpucore.ShaderStageVertex, "main", ErrNoEntryPoint},
		{"geometry stage", litShader, gpucore.ShaderStageGeometry, "", ErrBadStage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Reflect(tt.src, tt.stage, tt.entry)
			if !errors.Is(err, tt.want) {
				t.Errorf("Reflect() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReflectSyntaxError(t *testing.T) {
	if _, err := Reflect("@vertex fn main( -> {", gpucore.ShaderStageVertex, ""); err == nil {
		t.Error("Reflect() error = nil, want parse error")
	}
}

func TestReflectUnknownSemantic(t *testing.T) {
	src := `@vertex fn main(@location(0) wobble: f32) -> @builtin(position) vec4<f32> { return vec4<f32>(wobble); }`
	if _, err := Reflect(src, gpucore.ShaderStageVertex, ""); err == nil {
		t.Error("Reflect() error = nil, want unknown semantic error")
	}
}

func TestCommentedOutDeclarations(t *testing.T) {
	src := `
/* @group(0) @binding(0) var<uniform> hidden: vec4<f32>; /* nested */ still hidden */
// @group(0) @binding(1) var alsoHidden: sampler;
@group(0) @binding(2) var<storage, read_write> data: array<u32>;
@compute @workgroup_size(64)
fn cs_main(@builtin(global_invocation_id) id: vec3<u32>) {
    data[id.x] = id.x;
}
`
	refl, err := Reflect(src, gpucore.ShaderStageCompute, "")
	if err != nil {
		t.Fatalf("Reflect: %v", err)
	}
	if len(refl.Resources) != 1 {
		t.Fatalf("len(Resources) = %d, want 1: %+v", len(refl.Resources), refl.Resources)
	}
	if r := refl.Resources[0]; r.Name != "data" || r.Kind != gpucore.ResourceStorageBuffer {
		t.Errorf("Resources[0] = %+v, want storage buffer data", r)
	}
}

func TestInputsOrder(t *testing.T) {
	in, err := Inputs(litShader, "vs_main")
	if err != nil {
		t.Fatalf("Inputs: %v", err)
	}
	if len(in) != 4 {
		t.Fatalf("len(Inputs) = %d, want 4", len(in))
	}
	if in[3].Name != "iTexCoord1" || in[3].Type != "vec2<f32>" {
		t.Errorf("Inputs[3] = %+v, want iTexCoord1 vec2<f32>", in[3])
	}
}

func TestStorageAccess(t *testing.T) {
	src := `
@group(0) @binding(0) var<storage, read> particlesIn: array<f32>;
@group(0) @binding(1) var<storage, read_write> particlesOut: array<f32>;

@compute @workgroup_size(64)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
    particlesOut[id.x] = particlesIn[id.x] * 2.0;
}
`
	refl, err := Reflect(src, gpucore.ShaderStageCompute, "")
	if err != nil {
		t.Fatalf("Reflect: %v", err)
	}
	got := refl.Resources
	if len(got) != 2 {
		t.Fatalf("len(Resources) = %d, want 2", len(got))
	}
	if got[0].Kind != gpucore.ResourceStorageBuffer || got[0].Writable {
		t.Errorf("particlesIn = %+v, want read-only storage", got[0])
	}
	if got[1].Kind != gpucore.ResourceStorageBuffer || !got[1].Writable {
		t.Errorf("particlesOut = %+v, want writable storage", got[1])
	}
}

func TestTypeNames(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
		kind gpucore.ShaderResourceKind
	}{
		{"depth", `@group(0) @binding(0) var t: texture_depth_2d;`, "texture_depth_2d", gpucore.ResourceTexture},
		{"comparison sampler", `@group(0) @binding(0) var s: sampler_comparison;`, "sampler_comparison", gpucore.ResourceSampler},
		{"storage texture", `@group(0) @binding(0) var t: texture_storage_2d<rgba16float, write>;`, "texture_storage_2d<rgba16float, write>", gpucore.ResourceStorageTexture},
		{"cube", `@group(0) @binding(0) var t: texture_cube<f32>;`, "texture_cube<f32>", gpucore.ResourceTexture},
		{"multisampled", `@group(0) @binding(0) var t: texture_multisampled_2d<f32>;`, "texture_multisampled_2d<f32>", gpucore.ResourceTexture},
		{"array", `@group(0) @binding(0) var t: texture_2d_array<u32>;`, "texture_2d_array<u32>", gpucore.ResourceTexture},
		{"uniform", `@group(0) @binding(0) var<uniform> m: mat4x4<f32>;`, "mat4x4<f32>", gpucore.ResourceUniformBuffer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resources(tt.src, gpucore.ShaderStagePixel)
			if err != nil {
				t.Fatalf("Resources: %v", err)
			}
			if len(got) != 1 {
				t.Fatalf("len(Resources) = %d, want 1", len(got))
			}
			if got[0].TypeName != tt.want || got[0].Kind != tt.kind {
				t.Errorf("got %q %v, want %q %v", got[0].TypeName, got[0].Kind, tt.want, tt.kind)
			}
		})
	}
}

func BenchmarkReflect(b *testing.B) {
	for b.Loop() {
		_, _ = Reflect(litShader, gpucore.ShaderStageVertex, "")
	}
}
