// Package wgpu implements gpucore.Device on top of a gogpu/wgpu hal.Device.
//
// The device works on every hal backend: Vulkan, Metal, DX12, GLES and the
// noop backend used in tests. Shader stages are reflected from their WGSL
// source, so vertex input slots and resources are known per stage and the
// device reports explicit reflection whatever hal backend sits below.
//
// # Opening a device
//
// Open picks the best registered hal backend:
//
//	dev, err := wgpu.Open(wgpu.Options{DetectBackend: true})
//	if err != nil {
//	    return err
//	}
//	defer dev.Destroy()
//
// A device shared with a windowing layer is wrapped with NewFromProvider,
// and an already opened hal.Device with New. Importing the package
// registers the "wgpu" backend with the backend registry.
//
// # Translation
//
// Create infos map onto hal descriptors:
//
//   - Layout elements become vertex buffer layouts grouped by buffer slot.
//   - Reflected resources become one bind group layout per @group index.
//   - Blend, depth-stencil and rasterizer state become the WebGPU
//     primitive, depth-stencil, multisample and color target states.
//
// WebGPU has no geometry or tessellation stages, no wireframe fill and no
// immutable samplers. Pipelines using the first are rejected, wireframe is
// drawn solid, and immutable samplers are created once per description and
// preset on the sampler variables of every resource binding.
//
// # SPIR-V
//
// With Options.SPIRV set, WGSL is compiled with naga before module
// creation. Compiled code is cached by source hash.
//
// # Pipeline cache
//
// WebGPU exposes no driver pipeline cache. The cache returned by
// CreatePipelineCache records a descriptor hash per pipeline name and
// serializes the records, so a later run can tell which of its pipelines
// a previous run already built with the same descriptor (see CacheStats).
package wgpu
