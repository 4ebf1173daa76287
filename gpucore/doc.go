// Package gpucore defines the backend-native pipeline model shared by the
// pso package and its device backends.
//
// Everything above this package speaks in abstract descriptors (blend modes,
// vertex element types, sampler filter modes). Everything below speaks in the
// types declared here: layout elements with resolved input slots, immutable
// samplers with min/mag/mip filter triples, graphics and compute create
// infos, and the [Device] interface that turns them into pipeline objects.
//
// # Reflection families
//
// Backends fall into two families:
//
//	+--------------------------+-----------------------------------------+
//	| explicit reflection      | vertex inputs and resources are known   |
//	| (Vulkan, D3D12, Metal)   | per stage before the pipeline is built  |
//	+--------------------------+-----------------------------------------+
//	| link-time reflection     | vertex input slots and, without         |
//	| (OpenGL)                 | separable programs, resources are only  |
//	|                          | known once the program has been linked  |
//	+--------------------------+-----------------------------------------+
//
// A [GraphicsPipelineCreateInfo] carries an optional OnProgramLinked
// callback. Backends of the link-time family call it after linking and
// before finishing the pipeline object, giving the caller the chance to
// patch InputLayout and ImmutableSamplers from the [LinkedProgram].
//
// # Implementations
//
//   - backend/wgpu: github.com/gogpu/wgpu/hal devices (explicit family)
//   - backend/headless: in-memory device emulating either family
package gpucore
