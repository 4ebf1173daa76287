package gpucore

import (
	"fmt"
	"hash/fnv"

	"github.com/gogpu/gputypes"
)

// Backend identifies the graphics API family behind a Device.
type Backend uint8

// Backends.
const (
	BackendVulkan Backend = iota
	BackendD3D12
	BackendMetal
	BackendOpenGL
	BackendHeadless
)

var backendNames = [...]string{"Vulkan", "D3D12", "Metal", "OpenGL", "Headless"}

// String returns the backend name.
func (b Backend) String() string {
	if int(b) < len(backendNames) {
		return backendNames[b]
	}
	return fmt.Sprintf("Backend(%d)", uint8(b))
}

// EagerReflection reports whether vertex input attributes can be queried
// from individual shader stages before the pipeline is linked.
func (b Backend) EagerReflection() bool {
	return b != BackendOpenGL
}

// ResolutionIndependentDepthBias reports whether the native constant depth
// bias is already expressed independently of the depth buffer precision.
func (b Backend) ResolutionIndependentDepthBias() bool {
	return b == BackendOpenGL
}

// Features describes optional device capabilities relevant to pipeline
// construction.
type Features struct {
	// SeparablePrograms is set when shader stages can be reflected
	// individually. Without it, resources are only known after linking.
	SeparablePrograms bool

	// GeometryShaders is set when the geometry stage is supported.
	GeometryShaders bool

	// Tessellation is set when the hull and domain stages are supported.
	Tessellation bool
}

// ShaderStage is a bit set of programmable pipeline stages.
type ShaderStage uint32

// Shader stages.
const (
	ShaderStageVertex ShaderStage = 1 << iota
	ShaderStagePixel
	ShaderStageGeometry
	ShaderStageHull
	ShaderStageDomain
	ShaderStageCompute

	ShaderStageNone        ShaderStage = 0
	ShaderStageAllGraphics             = ShaderStageVertex | ShaderStagePixel | ShaderStageGeometry | ShaderStageHull | ShaderStageDomain
)

// String returns a "|"-separated list of stage names.
func (s ShaderStage) String() string {
	if s == ShaderStageNone {
		return "None"
	}
	names := [...]string{"Vertex", "Pixel", "Geometry", "Hull", "Domain", "Compute"}
	out := ""
	for i, name := range names {
		if s&(1<<i) == 0 {
			continue
		}
		if out != "" {
			out += "|"
		}
		out += name
	}
	if out == "" {
		return fmt.Sprintf("ShaderStage(%#x)", uint32(s))
	}
	return out
}

// NameHash is a 32-bit FNV-1a hash of a resource or sampler name.
type NameHash uint32

// HashName hashes a shader resource name.
func HashName(name string) NameHash {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return NameHash(h.Sum32())
}

// String returns the hash in hexadecimal.
func (h NameHash) String() string {
	return fmt.Sprintf("#%08x", uint32(h))
}

// ValueType is the scalar type of a vertex input component.
type ValueType uint8

// Value types.
const (
	ValueTypeUndefined ValueType = iota
	ValueTypeInt32
	ValueTypeFloat32
	ValueTypeUint8
)

// InputFrequency selects per-vertex or per-instance stepping.
type InputFrequency uint8

// Input frequencies.
const (
	FrequencyPerVertex InputFrequency = iota
	FrequencyPerInstance
)

// UnassignedInput marks a layout element not yet consumed by any shader input.
const UnassignedInput = ^uint32(0)

// LayoutElement is one backend vertex input element.
type LayoutElement struct {
	InputIndex           uint32
	BufferSlot           uint32
	RelativeOffset       uint32
	Stride               uint32
	NumComponents        uint32
	ValueType            ValueType
	IsNormalized         bool
	Frequency            InputFrequency
	InstanceDataStepRate uint32
}

// FilterType is a backend texture filter. Comparison variants are used for
// shadow map sampling.
type FilterType uint8

// Filter types.
const (
	FilterPoint FilterType = iota
	FilterLinear
	FilterAnisotropic
	FilterComparisonPoint
	FilterComparisonLinear
	FilterComparisonAnisotropic
)

// IsComparison reports whether f samples with depth comparison.
func (f FilterType) IsComparison() bool {
	return f >= FilterComparisonPoint
}

// Base strips the comparison flag.
func (f FilterType) Base() FilterType {
	if f.IsComparison() {
		return f - FilterComparisonPoint
	}
	return f
}

// SamplerDesc is a fully resolved backend sampler.
type SamplerDesc struct {
	MinFilter      FilterType
	MagFilter      FilterType
	MipFilter      FilterType
	AddressU       gputypes.AddressMode
	AddressV       gputypes.AddressMode
	AddressW       gputypes.AddressMode
	MaxAnisotropy  uint32
	ComparisonFunc gputypes.CompareFunction
	MinLOD         float32
	MaxLOD         float32
}

// ImmutableSampler binds a sampler to a texture or sampler name in the given
// shader stages.
type ImmutableSampler struct {
	ShaderStages         ShaderStage
	SamplerOrTextureName string
	Desc                 SamplerDesc
}

// StencilOperation is a backend stencil operation.
type StencilOperation uint8

// Stencil operations.
const (
	StencilOpKeep StencilOperation = iota
	StencilOpZero
	StencilOpReplace
	StencilOpIncrementWrap
	StencilOpDecrementWrap
)

// FillMode is a backend polygon fill mode.
type FillMode uint8

// Fill modes.
const (
	FillSolid FillMode = iota
	FillWireframe
)

// PrimitiveTopology is a backend primitive topology. TopologyUndefined
// marks topologies the backend cannot express.
type PrimitiveTopology uint8

// Primitive topologies.
const (
	TopologyUndefined PrimitiveTopology = iota
	TopologyTriangleList
	TopologyLineList
	TopologyPointList
	TopologyTriangleStrip
	TopologyLineStrip
)

// ResourceVariableType controls how often a shader variable may change.
type ResourceVariableType uint8

// Variable types.
const (
	VariableStatic ResourceVariableType = iota
	VariableMutable
	VariableDynamic
)
