package pso

import "fmt"

// BlendMode is a predefined color blending equation.
type BlendMode uint8

// Blend modes.
const (
	BlendReplace BlendMode = iota
	BlendAdd
	BlendMultiply
	BlendAlpha
	BlendAddAlpha
	BlendPremulAlpha
	BlendInvDestAlpha
	BlendSubtract
	BlendSubtractAlpha
	BlendDeferredDecal

	numBlendModes = iota
)

var blendModeNames = [numBlendModes]string{
	"replace", "add", "multiply", "alpha", "addalpha",
	"premulalpha", "invdestalpha", "subtract", "subtractalpha", "deferreddecal",
}

func (m BlendMode) String() string { return enumName(blendModeNames[:], uint8(m), "BlendMode") }

// CompareMode is a depth or stencil comparison.
type CompareMode uint8

// Compare modes.
const (
	CompareAlways CompareMode = iota
	CompareEqual
	CompareNotEqual
	CompareLess
	CompareLessEqual
	CompareGreater
	CompareGreaterEqual

	numCompareModes = iota
)

var compareModeNames = [numCompareModes]string{
	"always", "equal", "notequal", "less", "lessequal", "greater", "greaterequal",
}

func (m CompareMode) String() string { return enumName(compareModeNames[:], uint8(m), "CompareMode") }

// StencilOp is an operation applied to the stencil buffer.
type StencilOp uint8

// Stencil operations.
const (
	StencilKeep StencilOp = iota
	StencilZero
	StencilRef
	StencilIncr
	StencilDecr

	numStencilOps = iota
)

var stencilOpNames = [numStencilOps]string{"keep", "zero", "ref", "incr", "decr"}

func (o StencilOp) String() string { return enumName(stencilOpNames[:], uint8(o), "StencilOp") }

// CullMode selects which polygon faces are discarded.
type CullMode uint8

// Cull modes. CullCCW discards counter-clockwise (back) faces.
const (
	CullNone CullMode = iota
	CullCCW
	CullCW

	numCullModes = iota
)

var cullModeNames = [numCullModes]string{"none", "ccw", "cw"}

func (m CullMode) String() string { return enumName(cullModeNames[:], uint8(m), "CullMode") }

// FillMode is the polygon rasterization mode.
type FillMode uint8

// Fill modes. FillPoint is rasterized as wireframe.
const (
	FillSolid FillMode = iota
	FillWireframe
	FillPoint

	numFillModes = iota
)

var fillModeNames = [numFillModes]string{"solid", "wireframe", "point"}

func (m FillMode) String() string { return enumName(fillModeNames[:], uint8(m), "FillMode") }

// PrimitiveType is the primitive assembly topology.
type PrimitiveType uint8

// Primitive types. TriangleFan has no backend equivalent and fails to build.
const (
	TriangleList PrimitiveType = iota
	LineList
	PointList
	TriangleStrip
	LineStrip
	TriangleFan

	numPrimitiveTypes = iota
)

var primitiveTypeNames = [numPrimitiveTypes]string{
	"trianglelist", "linelist", "pointlist", "trianglestrip", "linestrip", "trianglefan",
}

func (t PrimitiveType) String() string { return enumName(primitiveTypeNames[:], uint8(t), "PrimitiveType") }

// VertexElementType is the data type of a vertex element.
type VertexElementType uint8

// Vertex element types.
const (
	TypeInt VertexElementType = iota
	TypeFloat
	TypeVector2
	TypeVector3
	TypeVector4
	TypeUByte4
	TypeUByte4Norm

	numVertexElementTypes = iota
)

var vertexElementTypeNames = [numVertexElementTypes]string{
	"int", "float", "vector2", "vector3", "vector4", "ubyte4", "ubyte4norm",
}

func (t VertexElementType) String() string {
	return enumName(vertexElementTypeNames[:], uint8(t), "VertexElementType")
}

// Size returns the size of the element in bytes.
func (t VertexElementType) Size() uint32 {
	switch t {
	case TypeVector2:
		return 8
	case TypeVector3:
		return 12
	case TypeVector4:
		return 16
	default:
		return 4
	}
}

// TextureFilterMode is the texture sampling filter.
type TextureFilterMode uint8

// Filter modes. FilterDefault resolves to FilterTrilinear.
const (
	FilterNearest TextureFilterMode = iota
	FilterBilinear
	FilterTrilinear
	FilterAnisotropic
	FilterNearestAnisotropic
	FilterDefault

	numFilterModes = iota
)

// numConcreteFilterModes excludes FilterDefault.
const numConcreteFilterModes = numFilterModes - 1

var filterModeNames = [numFilterModes]string{
	"nearest", "bilinear", "trilinear", "anisotropic", "nearestanisotropic", "default",
}

func (m TextureFilterMode) String() string { return enumName(filterModeNames[:], uint8(m), "TextureFilterMode") }

// TextureAddressMode is the texture coordinate addressing mode.
type TextureAddressMode uint8

// Address modes.
const (
	AddressWrap TextureAddressMode = iota
	AddressMirror
	AddressClamp

	numAddressModes = iota
)

var addressModeNames = [numAddressModes]string{"wrap", "mirror", "clamp"}

func (m TextureAddressMode) String() string { return enumName(addressModeNames[:], uint8(m), "TextureAddressMode") }

// PipelineStateType is the variant of a PipelineStateDesc.
type PipelineStateType uint8

// Pipeline state types.
const (
	PipelineStateGraphics PipelineStateType = iota
	PipelineStateCompute
)

func (t PipelineStateType) String() string {
	switch t {
	case PipelineStateGraphics:
		return "graphics"
	case PipelineStateCompute:
		return "compute"
	}
	return fmt.Sprintf("PipelineStateType(%d)", uint8(t))
}

func enumName(names []string, v uint8, typ string) string {
	if int(v) < len(names) {
		return names[v]
	}
	return fmt.Sprintf("%s(%d)", typ, v)
}
