package pso

import (
	"encoding/binary"
	"hash"
	"hash/fnv"
	"math"

	"github.com/gogpu/pso/shader"
)

// shaderKey names a shader inside a descriptor hash.
type shaderKey func(*shader.Shader) uint64

// identityKey distinguishes shader objects; used for the in-process cache.
func identityKey(s *shader.Shader) uint64 { return s.Hash() }

// contentKey depends only on stage, entry point and source; used for names
// that must survive a restart.
func contentKey(s *shader.Shader) uint64 { return s.ContentHash() }

// hashGraphicsDesc computes an FNV-1a hash over every field of d except the
// debug name. Shaders contribute key(s).
func hashGraphicsDesc(d *GraphicsPipelineStateDesc, key shaderKey) uint64 {
	h := fnv.New64a()
	hashWriteUint32(h, uint32(PipelineStateGraphics))

	// Hash shaders
	for _, s := range [...]*shader.Shader{d.VertexShader, d.PixelShader, d.GeometryShader, d.HullShader, d.DomainShader} {
		hashWriteShader(h, s, key)
	}

	// Hash input layout
	//nolint:gosec // G115: layout length is bounded by vertex input limits
	hashWriteUint32(h, uint32(len(d.InputLayout)))
	for i := range d.InputLayout {
		el := &d.InputLayout[i]
		hashWriteUint32(h, el.BufferIndex)
		hashWriteUint32(h, el.BufferStride)
		hashWriteUint32(h, el.ElementOffset)
		hashWriteUint32(h, el.InstanceStepRate)
		hashWriteUint32(h, uint32(el.ElementType))
		hashWriteUint32(h, uint32(el.Semantic))
		hashWriteUint32(h, el.SemanticIndex)
	}
	hashWriteUint32(h, uint32(d.PrimitiveType))

	// Hash blend state
	hashWriteUint32(h, uint32(d.BlendMode))
	hashWriteBool(h, d.AlphaToCoverageEnabled)
	hashWriteBool(h, d.ColorWriteEnabled)

	// Hash depth and stencil state
	hashWriteBool(h, d.DepthWriteEnabled)
	hashWriteUint32(h, uint32(d.DepthCompareFunction))
	hashWriteBool(h, d.StencilTestEnabled)
	hashWriteUint32(h, uint32(d.StencilCompareFunction))
	hashWriteUint32(h, uint32(d.StencilOperationOnPassed))
	hashWriteUint32(h, uint32(d.StencilOperationOnStencilFailed))
	hashWriteUint32(h, uint32(d.StencilOperationOnDepthFailed))
	hashWriteUint32(h, uint32(d.StencilCompareMask))
	hashWriteUint32(h, uint32(d.StencilWriteMask))

	// Hash rasterizer state
	hashWriteUint32(h, uint32(d.FillMode))
	hashWriteUint32(h, uint32(d.CullMode))
	hashWriteBool(h, d.ScissorTestEnabled)
	hashWriteFloat32(h, d.ConstantDepthBias)
	hashWriteFloat32(h, d.SlopeScaledDepthBias)
	hashWriteBool(h, d.LineAntiAlias)

	// Hash output
	//nolint:gosec // G115: bounded by gpucore.MaxRenderTargets after validation
	hashWriteUint32(h, uint32(len(d.Output.RenderTargetFormats)))
	for _, f := range d.Output.RenderTargetFormats {
		hashWriteUint32(h, uint32(f))
	}
	hashWriteUint32(h, uint32(d.Output.DepthStencilFormat))
	hashWriteUint32(h, d.Output.MultiSample)

	hashWriteSamplers(h, d.Samplers)
	return h.Sum64()
}

// hashComputeDesc computes an FNV-1a hash of a compute descriptor.
func hashComputeDesc(d *ComputePipelineStateDesc, key shaderKey) uint64 {
	h := fnv.New64a()
	hashWriteUint32(h, uint32(PipelineStateCompute))
	hashWriteShader(h, d.ComputeShader, key)
	hashWriteSamplers(h, d.Samplers)
	return h.Sum64()
}

// =============================================================================
// Helper Functions for Hashing
// =============================================================================

func hashWriteShader(h hash.Hash64, s *shader.Shader, key shaderKey) {
	if s == nil {
		hashWriteUint64(h, 0)
		return
	}
	hashWriteUint64(h, key(s))
}

func hashWriteSamplers(h hash.Hash64, s SamplerOverrides) {
	//nolint:gosec // G115: override count is small
	hashWriteUint32(h, uint32(len(s)))
	for _, o := range s {
		hashWriteUint32(h, uint32(o.Name))
		hashWriteUint32(h, uint32(o.Desc.FilterMode))
		hashWriteUint32(h, uint32(o.Desc.Anisotropy))
		hashWriteBool(h, o.Desc.ShadowCompare)
		for _, a := range o.Desc.AddressMode {
			hashWriteUint32(h, uint32(a))
		}
	}
}

// hashWriteUint32 writes a uint32 to the hash.
func hashWriteUint32(h hash.Hash64, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, _ = h.Write(buf[:])
}

// hashWriteUint64 writes a uint64 to the hash.
func hashWriteUint64(h hash.Hash64, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, _ = h.Write(buf[:])
}

// hashWriteFloat32 writes the bits of v, folding -0 into 0 so that values
// comparing equal hash equally.
func hashWriteFloat32(h hash.Hash64, v float32) {
	hashWriteUint32(h, floatBits(v))
}

// floatBits is the bit pattern used for hashing and equality: -0 folds to
// +0 and a NaN equals itself.
func floatBits(v float32) uint32 {
	if v == 0 {
		return 0
	}
	return math.Float32bits(v)
}

// hashWriteBool writes a bool to the hash.
func hashWriteBool(h hash.Hash64, v bool) {
	if v {
		_, _ = h.Write([]byte{1})
	} else {
		_, _ = h.Write([]byte{0})
	}
}
