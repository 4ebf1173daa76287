// Package pso builds and caches GPU pipeline state objects.
//
// # Overview
//
// A pipeline state object (PSO) bundles the complete fixed-function and
// shader-stage configuration a GPU needs to issue draw or dispatch calls.
// pso describes pipelines with backend-independent descriptors, translates
// them into backend create infos, deduplicates identical descriptors and
// keeps the resulting objects valid across shader reloads and device loss.
//
// # Quick Start
//
//	dev := render.NewDevice(gpu)
//	cache, err := pso.NewCache(dev)
//	if err != nil {
//	    return err
//	}
//	cache.Initialize(blob) // optional, may be nil or stale
//
//	vs, _ := shader.New(dev, gpucore.ShaderStageVertex, "lit.vs", src)
//	ps, _ := shader.New(dev, gpucore.ShaderStagePixel, "lit.ps", src)
//
//	desc := pso.GraphicsPipelineStateDesc{
//	    DebugName:    "lit",
//	    VertexShader: vs,
//	    PixelShader:  ps,
//	    InputLayout:  layout,
//	    Output:       pso.OutputDesc{RenderTargetFormats: formats},
//	}
//	state := cache.GetGraphicsPipelineState(desc)
//	defer state.Release()
//
//	if h := state.Handle(); h != nil {
//	    // bind h and state.SRB() to a render pass
//	}
//
// # Descriptors
//
// GraphicsPipelineStateDesc and ComputePipelineStateDesc are plain values.
// PipelineStateDesc wraps exactly one of them, computes a deterministic
// hash over every field and compares shader references by identity. Two
// descriptors that describe the same pipeline always share one
// PipelineState while either is referenced.
//
// # Translation
//
// Abstract enums (BlendMode, CompareMode, StencilOp, CullMode, FillMode,
// PrimitiveType, TextureFilterMode, TextureAddressMode) map to backend
// values through fixed lookup tables. The vertex input layout keeps only
// elements consumed by the vertex shader; when several elements share a
// semantic, the last declared one wins. Every sampled resource declared by
// the shaders receives an immutable sampler, either an override matched by
// name or the bilinear default.
//
// # Reflection timing
//
// Explicit backends (Vulkan, D3D12, Metal) reflect each stage before the
// pipeline is created. OpenGL only knows vertex input slots, and without
// separable programs its resources, once the program is linked. For those
// backends the layout and samplers are finished inside the
// gpucore.GraphicsPipelineCreateInfo.OnProgramLinked callback.
//
// # Lifetime
//
// A PipelineState is reference counted. The Cache holds no reference of its
// own: the entry of a state exists exactly as long as some caller holds it.
// Releasing the last reference must happen on the thread that owns the
// graphics context. A release from another thread returns
// ErrForeignThreadRelease and parks the state until DrainReleaseQueue runs
// on the owning thread.
//
// # Failure model
//
// Nothing in pso panics on the frame path. A pipeline that fails to build
// is still returned by the Cache; its Handle is nil and Err reports the
// cause. Unmatched vertex attributes and missing sampler overrides are
// logged and degrade the pipeline instead of failing it, unless
// WithSamplerFallback(SamplerFallbackError) is set.
//
// # Logging
//
// pso is silent by default. Use SetLogger to route diagnostics to a
// log/slog handler.
package pso
