package pso

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/pso/gpucore"
	"github.com/gogpu/pso/shader"
)

// InputLayoutElementDesc describes one element of a vertex buffer.
type InputLayoutElementDesc struct {
	BufferIndex   uint32
	BufferStride  uint32
	ElementOffset uint32

	// InstanceStepRate is zero for per-vertex data. Otherwise the element
	// advances once every InstanceStepRate instances.
	InstanceStepRate uint32

	ElementType   VertexElementType
	Semantic      gpucore.VertexElementSemantic
	SemanticIndex uint32
}

// SamplerStateDesc describes a texture sampler.
type SamplerStateDesc struct {
	FilterMode TextureFilterMode

	// Anisotropy is the maximum anisotropy. Zero selects 4.
	Anisotropy    uint8
	ShadowCompare bool

	// AddressMode is indexed by texture coordinate U, V, W.
	AddressMode [3]TextureAddressMode
}

// DefaultSampler returns a wrapping sampler with the default filter.
func DefaultSampler() SamplerStateDesc {
	return SamplerStateDesc{FilterMode: FilterDefault}
}

// BilinearSampler returns a wrapping bilinear sampler. It is used for shader
// resources without an override.
func BilinearSampler() SamplerStateDesc {
	return SamplerStateDesc{FilterMode: FilterBilinear}
}

// SamplerOverride binds a sampler to a shader resource name.
type SamplerOverride struct {
	Name gpucore.NameHash
	Desc SamplerStateDesc
}

// SamplerOverrides is an ordered list of named samplers. Resource names are
// matched without their t or s prefix: "DiffMap" covers both tDiffMap and
// sDiffMap.
type SamplerOverrides []SamplerOverride

// Add sets the sampler of the named resource, replacing an earlier entry
// for the same name.
func (s *SamplerOverrides) Add(name string, desc SamplerStateDesc) {
	s.AddHash(gpucore.HashName(name), desc)
}

// AddHash is Add for a precomputed name hash.
func (s *SamplerOverrides) AddHash(name gpucore.NameHash, desc SamplerStateDesc) {
	for i := range *s {
		if (*s)[i].Name == name {
			(*s)[i].Desc = desc
			return
		}
	}
	*s = append(*s, SamplerOverride{Name: name, Desc: desc})
}

// Lookup returns the sampler bound to name.
func (s SamplerOverrides) Lookup(name gpucore.NameHash) (SamplerStateDesc, bool) {
	for _, o := range s {
		if o.Name == name {
			return o.Desc, true
		}
	}
	return SamplerStateDesc{}, false
}

func (s SamplerOverrides) sorted() SamplerOverrides {
	out := slices.Clone(s)
	slices.SortStableFunc(out, func(a, b SamplerOverride) int { return cmp.Compare(a.Name, b.Name) })
	return out
}

// OutputDesc describes the render targets a graphics pipeline writes.
type OutputDesc struct {
	RenderTargetFormats []gputypes.TextureFormat
	DepthStencilFormat  gputypes.TextureFormat

	// MultiSample is the sample count. Zero is treated as one.
	MultiSample uint32
}

// GraphicsPipelineStateDesc describes a graphics pipeline. Vertex and pixel
// shaders are required.
type GraphicsPipelineStateDesc struct {
	DebugName string

	VertexShader   *shader.Shader
	PixelShader    *shader.Shader
	GeometryShader *shader.Shader
	HullShader     *shader.Shader
	DomainShader   *shader.Shader

	InputLayout   []InputLayoutElementDesc
	PrimitiveType PrimitiveType

	BlendMode              BlendMode
	AlphaToCoverageEnabled bool
	ColorWriteEnabled      bool

	DepthWriteEnabled    bool
	DepthCompareFunction CompareMode

	StencilTestEnabled              bool
	StencilCompareFunction          CompareMode
	StencilOperationOnPassed        StencilOp
	StencilOperationOnStencilFailed StencilOp
	StencilOperationOnDepthFailed   StencilOp
	StencilCompareMask              uint8
	StencilWriteMask                uint8

	FillMode             FillMode
	CullMode             CullMode
	ScissorTestEnabled   bool
	ConstantDepthBias    float32
	SlopeScaledDepthBias float32
	LineAntiAlias        bool

	Output   OutputDesc
	Samplers SamplerOverrides
}

// IsInitialized reports whether the required shaders are set.
func (d *GraphicsPipelineStateDesc) IsInitialized() bool {
	return d.VertexShader != nil && d.PixelShader != nil
}

// ComputePipelineStateDesc describes a compute pipeline.
type ComputePipelineStateDesc struct {
	DebugName     string
	ComputeShader *shader.Shader
	Samplers      SamplerOverrides
}

// IsInitialized reports whether the compute shader is set.
func (d *ComputePipelineStateDesc) IsInitialized() bool {
	return d.ComputeShader != nil
}

// PipelineStateDesc holds exactly one graphics or compute descriptor.
// The zero value holds neither and is not valid.
type PipelineStateDesc struct {
	graphics *GraphicsPipelineStateDesc
	compute  *ComputePipelineStateDesc
	hash     uint64
	key      uint64
}

// NewGraphicsDesc wraps a copy of d. Sampler overrides are sorted by name
// hash, so the order they were added in does not matter. A zero sample
// count is stored as one.
func NewGraphicsDesc(d GraphicsPipelineStateDesc) PipelineStateDesc {
	d.InputLayout = slices.Clone(d.InputLayout)
	d.Output.RenderTargetFormats = slices.Clone(d.Output.RenderTargetFormats)
	if d.Output.MultiSample == 0 {
		d.Output.MultiSample = 1
	}
	d.Samplers = d.Samplers.sorted()
	return PipelineStateDesc{
		graphics: &d,
		hash:     hashGraphicsDesc(&d, identityKey),
		key:      hashGraphicsDesc(&d, contentKey),
	}
}

// NewComputeDesc wraps a copy of d.
func NewComputeDesc(d ComputePipelineStateDesc) PipelineStateDesc {
	d.Samplers = d.Samplers.sorted()
	return PipelineStateDesc{
		compute: &d,
		hash:    hashComputeDesc(&d, identityKey),
		key:     hashComputeDesc(&d, contentKey),
	}
}

// IsValid reports whether a variant is held.
func (d PipelineStateDesc) IsValid() bool {
	return d.graphics != nil || d.compute != nil
}

// Type returns the held variant.
func (d PipelineStateDesc) Type() PipelineStateType {
	if d.compute != nil {
		return PipelineStateCompute
	}
	return PipelineStateGraphics
}

// AsGraphics returns the graphics descriptor, or nil. The result must not
// be modified.
func (d PipelineStateDesc) AsGraphics() *GraphicsPipelineStateDesc { return d.graphics }

// AsCompute returns the compute descriptor, or nil. The result must not be
// modified.
func (d PipelineStateDesc) AsCompute() *ComputePipelineStateDesc { return d.compute }

// IsInitialized reports whether the held variant has its required shaders.
func (d PipelineStateDesc) IsInitialized() bool {
	switch {
	case d.graphics != nil:
		return d.graphics.IsInitialized()
	case d.compute != nil:
		return d.compute.IsInitialized()
	}
	return false
}

// Hash returns the content hash. Equal descriptors have equal hashes.
func (d PipelineStateDesc) Hash() uint64 { return d.hash }

// CacheKey is like Hash but identifies shaders by stage, entry point and
// source instead of by object, so the same descriptor built in another
// process has the same key. Backends name persisted pipelines with it.
func (d PipelineStateDesc) CacheKey() uint64 { return d.key }

// DebugName returns the name of the held descriptor, or a name derived from
// CacheKey when unset.
func (d PipelineStateDesc) DebugName() string {
	var name string
	switch {
	case d.graphics != nil:
		name = d.graphics.DebugName
	case d.compute != nil:
		name = d.compute.DebugName
	}
	if name == "" {
		return fmt.Sprintf("pso-%016x", d.key)
	}
	return name
}

// Shaders returns the referenced shaders in stage order, skipping unset
// optional stages.
func (d PipelineStateDesc) Shaders() []*shader.Shader {
	var all []*shader.Shader
	switch {
	case d.graphics != nil:
		g := d.graphics
		all = []*shader.Shader{g.VertexShader, g.PixelShader, g.GeometryShader, g.HullShader, g.DomainShader}
	case d.compute != nil:
		all = []*shader.Shader{d.compute.ComputeShader}
	}
	return slices.DeleteFunc(all, func(s *shader.Shader) bool { return s == nil })
}

// Equal reports whether d and o describe the same pipeline. Shaders are
// compared by identity; debug names are ignored.
func (d PipelineStateDesc) Equal(o PipelineStateDesc) bool {
	if d.hash != o.hash {
		return false
	}
	switch {
	case d.graphics != nil && o.graphics != nil:
		return d.graphics.equal(o.graphics)
	case d.compute != nil && o.compute != nil:
		return d.compute.equal(o.compute)
	}
	return !d.IsValid() && !o.IsValid()
}

func (d *GraphicsPipelineStateDesc) equal(o *GraphicsPipelineStateDesc) bool {
	return d.VertexShader == o.VertexShader &&
		d.PixelShader == o.PixelShader &&
		d.GeometryShader == o.GeometryShader &&
		d.HullShader == o.HullShader &&
		d.DomainShader == o.DomainShader &&
		slices.Equal(d.InputLayout, o.InputLayout) &&
		d.PrimitiveType == o.PrimitiveType &&
		d.BlendMode == o.BlendMode &&
		d.AlphaToCoverageEnabled == o.AlphaToCoverageEnabled &&
		d.ColorWriteEnabled == o.ColorWriteEnabled &&
		d.DepthWriteEnabled == o.DepthWriteEnabled &&
		d.DepthCompareFunction == o.DepthCompareFunction &&
		d.StencilTestEnabled == o.StencilTestEnabled &&
		d.StencilCompareFunction == o.StencilCompareFunction &&
		d.StencilOperationOnPassed == o.StencilOperationOnPassed &&
		d.StencilOperationOnStencilFailed == o.StencilOperationOnStencilFailed &&
		d.StencilOperationOnDepthFailed == o.StencilOperationOnDepthFailed &&
		d.StencilCompareMask == o.StencilCompareMask &&
		d.StencilWriteMask == o.StencilWriteMask &&
		d.FillMode == o.FillMode &&
		d.CullMode == o.CullMode &&
		d.ScissorTestEnabled == o.ScissorTestEnabled &&
		floatBits(d.ConstantDepthBias) == floatBits(o.ConstantDepthBias) &&
		floatBits(d.SlopeScaledDepthBias) == floatBits(o.SlopeScaledDepthBias) &&
		d.LineAntiAlias == o.LineAntiAlias &&
		slices.Equal(d.Output.RenderTargetFormats, o.Output.RenderTargetFormats) &&
		d.Output.DepthStencilFormat == o.Output.DepthStencilFormat &&
		d.Output.MultiSample == o.Output.MultiSample &&
		slices.Equal(d.Samplers, o.Samplers)
}

func (d *ComputePipelineStateDesc) equal(o *ComputePipelineStateDesc) bool {
	return d.ComputeShader == o.ComputeShader && slices.Equal(d.Samplers, o.Samplers)
}
