package wgsl

import (
	"fmt"
	"strings"

	"github.com/gogpu/naga/ir"
)

var storageFormatNames = map[ir.StorageFormat]string{
	ir.StorageFormatR8Unorm:       "r8unorm",
	ir.StorageFormatR8Snorm:       "r8snorm",
	ir.StorageFormatR8Uint:        "r8uint",
	ir.StorageFormatR8Sint:        "r8sint",
	ir.StorageFormatR16Uint:       "r16uint",
	ir.StorageFormatR16Sint:       "r16sint",
	ir.StorageFormatR16Float:      "r16float",
	ir.StorageFormatRg8Unorm:      "rg8unorm",
	ir.StorageFormatRg8Snorm:      "rg8snorm",
	ir.StorageFormatRg8Uint:       "rg8uint",
	ir.StorageFormatRg8Sint:       "rg8sint",
	ir.StorageFormatR32Uint:       "r32uint",
	ir.StorageFormatR32Sint:       "r32sint",
	ir.StorageFormatR32Float:      "r32float",
	ir.StorageFormatRg16Uint:      "rg16uint",
	ir.StorageFormatRg16Sint:      "rg16sint",
	ir.StorageFormatRg16Float:     "rg16float",
	ir.StorageFormatRgba8Unorm:    "rgba8unorm",
	ir.StorageFormatRgba8Snorm:    "rgba8snorm",
	ir.StorageFormatRgba8Uint:     "rgba8uint",
	ir.StorageFormatRgba8Sint:     "rgba8sint",
	ir.StorageFormatBgra8Unorm:    "bgra8unorm",
	ir.StorageFormatRgb10a2Uint:   "rgb10a2uint",
	ir.StorageFormatRgb10a2Unorm:  "rgb10a2unorm",
	ir.StorageFormatRg11b10Ufloat: "rg11b10ufloat",
	ir.StorageFormatRg32Uint:      "rg32uint",
	ir.StorageFormatRg32Sint:      "rg32sint",
	ir.StorageFormatRg32Float:     "rg32float",
	ir.StorageFormatRgba16Uint:    "rgba16uint",
	ir.StorageFormatRgba16Sint:    "rgba16sint",
	ir.StorageFormatRgba16Float:   "rgba16float",
	ir.StorageFormatRgba32Uint:    "rgba32uint",
	ir.StorageFormatRgba32Sint:    "rgba32sint",
	ir.StorageFormatRgba32Float:   "rgba32float",
	ir.StorageFormatR16Unorm:      "r16unorm",
	ir.StorageFormatR16Snorm:      "r16snorm",
	ir.StorageFormatRg16Unorm:     "rg16unorm",
	ir.StorageFormatRg16Snorm:     "rg16snorm",
	ir.StorageFormatRgba16Unorm:   "rgba16unorm",
	ir.StorageFormatRgba16Snorm:   "rgba16snorm",
	ir.StorageFormatR64Uint:       "r64uint",
	ir.StorageFormatR64Sint:       "r64sint",
}

var storageAccessNames = [...]string{
	ir.StorageAccessRead:      "read",
	ir.StorageAccessWrite:     "write",
	ir.StorageAccessReadWrite: "read_write",
	ir.StorageAccessAtomic:    "atomic",
}

var dimNames = [...]string{
	ir.Dim1D:   "1d",
	ir.Dim2D:   "2d",
	ir.Dim3D:   "3d",
	ir.DimCube: "cube",
}

// typeName spells a module type the way WGSL source declares it.
func (m *Module) typeName(h ir.TypeHandle) string {
	if int(h) >= len(m.ir.Types) {
		return ""
	}
	t := m.ir.Types[h]
	switch k := t.Inner.(type) {
	case ir.ScalarType:
		return scalarName(k)
	case ir.VectorType:
		return fmt.Sprintf("vec%d<%s>", k.Size, scalarName(k.Scalar))
	case ir.MatrixType:
		return fmt.Sprintf("mat%dx%d<%s>", k.Columns, k.Rows, scalarName(k.Scalar))
	case ir.AtomicType:
		return "atomic<" + scalarName(k.Scalar) + ">"
	case ir.ArrayType:
		if k.Size.Constant == nil {
			return "array<" + m.typeName(k.Base) + ">"
		}
		return fmt.Sprintf("array<%s, %d>", m.typeName(k.Base), *k.Size.Constant)
	case ir.BindingArrayType:
		if k.Size == nil {
			return "binding_array<" + m.typeName(k.Base) + ">"
		}
		return fmt.Sprintf("binding_array<%s, %d>", m.typeName(k.Base), *k.Size)
	case ir.SamplerType:
		if k.Comparison {
			return "sampler_comparison"
		}
		return "sampler"
	case ir.ImageType:
		return imageName(k)
	}
	return t.Name
}

func scalarName(s ir.ScalarType) string {
	switch s.Kind {
	case ir.ScalarSint, ir.ScalarAbstractInt:
		return "i32"
	case ir.ScalarUint:
		return "u32"
	case ir.ScalarBool:
		return "bool"
	}
	if s.Width == 2 {
		return "f16"
	}
	return "f32"
}

func imageName(t ir.ImageType) string {
	var sb strings.Builder
	sb.WriteString("texture_")
	switch t.Class {
	case ir.ImageClassExternal:
		return "texture_external"
	case ir.ImageClassDepth:
		sb.WriteString("depth_")
	case ir.ImageClassStorage:
		sb.WriteString("storage_")
	}
	if t.Multisampled {
		sb.WriteString("multisampled_")
	}
	if int(t.Dim) < len(dimNames) {
		sb.WriteString(dimNames[t.Dim])
	}
	if t.Arrayed {
		sb.WriteString("_array")
	}
	switch t.Class {
	case ir.ImageClassSampled:
		sb.WriteString("<" + scalarName(ir.ScalarType{Kind: t.SampledKind, Width: 4}) + ">")
	case ir.ImageClassStorage:
		access := ""
		if int(t.StorageAccess) < len(storageAccessNames) {
			access = storageAccessNames[t.StorageAccess]
		}
		sb.WriteString("<" + storageFormatNames[t.StorageFormat] + ", " + access + ">")
	}
	return sb.String()
}
