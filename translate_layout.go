package pso

import (
	"slices"

	"github.com/gogpu/pso/gpucore"
)

// vertexElementFormat is the backend shape of a VertexElementType.
type vertexElementFormat struct {
	components uint32
	valueType  gpucore.ValueType
	normalized bool
}

var vertexElementFormats = [...]vertexElementFormat{
	TypeInt:        {1, gpucore.ValueTypeInt32, false},
	TypeFloat:      {1, gpucore.ValueTypeFloat32, false},
	TypeVector2:    {2, gpucore.ValueTypeFloat32, false},
	TypeVector3:    {3, gpucore.ValueTypeFloat32, false},
	TypeVector4:    {4, gpucore.ValueTypeFloat32, false},
	TypeUByte4:     {4, gpucore.ValueTypeUint8, false},
	TypeUByte4Norm: {4, gpucore.ValueTypeUint8, true},
}

var _ = [1]struct{}{}[len(vertexElementFormats)-numVertexElementTypes]

// translateInputLayout converts elements to backend layout elements and
// keeps those consumed by attrs. Each attribute binds to the last element
// declared with its semantic and index. Attributes without an element are
// reported; the layout is still usable.
func translateInputLayout(elements []InputLayoutElementDesc, attrs []gpucore.VertexShaderAttribute) ([]gpucore.LayoutElement, []error) {
	layout := expandLayoutElements(elements)
	errs := assignInputIndices(layout, elements, attrs)
	return removeUnusedElements(layout), errs
}

// expandLayoutElements fills the per-type metadata of every element and
// marks it unassigned.
func expandLayoutElements(elements []InputLayoutElementDesc) []gpucore.LayoutElement {
	out := make([]gpucore.LayoutElement, len(elements))
	for i, el := range elements {
		f := vertexElementFormats[TypeFloat]
		if int(el.ElementType) < len(vertexElementFormats) {
			f = vertexElementFormats[el.ElementType]
		}
		freq := gpucore.FrequencyPerVertex
		if el.InstanceStepRate != 0 {
			freq = gpucore.FrequencyPerInstance
		}
		out[i] = gpucore.LayoutElement{
			InputIndex:           gpucore.UnassignedInput,
			BufferSlot:           el.BufferIndex,
			RelativeOffset:       el.ElementOffset,
			Stride:               el.BufferStride,
			NumComponents:        f.components,
			ValueType:            f.valueType,
			IsNormalized:         f.normalized,
			Frequency:            freq,
			InstanceDataStepRate: el.InstanceStepRate,
		}
	}
	return out
}

// assignInputIndices sets the input slot of the last element matching each
// attribute. layout and elements are parallel.
func assignInputIndices(layout []gpucore.LayoutElement, elements []InputLayoutElementDesc, attrs []gpucore.VertexShaderAttribute) []error {
	var errs []error
	for _, a := range attrs {
		found := false
		for i := len(elements) - 1; i >= 0; i-- {
			if elements[i].Semantic == a.Semantic && elements[i].SemanticIndex == a.SemanticIndex {
				layout[i].InputIndex = a.InputIndex
				found = true
				break
			}
		}
		if !found {
			err := &UnmatchedAttributeError{Attribute: a}
			slogger().Error("pso: vertex attribute not found in layout",
				"attribute", a.String(), "input", a.InputIndex)
			errs = append(errs, err)
		}
	}
	return errs
}

// removeUnusedElements drops unassigned elements, preserving order.
func removeUnusedElements(layout []gpucore.LayoutElement) []gpucore.LayoutElement {
	return slices.DeleteFunc(layout, func(el gpucore.LayoutElement) bool {
		return el.InputIndex == gpucore.UnassignedInput
	})
}
