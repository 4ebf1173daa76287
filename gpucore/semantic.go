package gpucore

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// VertexElementSemantic is the meaning of a vertex element.
type VertexElementSemantic uint8

// Vertex element semantics.
const (
	SemanticPosition VertexElementSemantic = iota
	SemanticNormal
	SemanticBinormal
	SemanticTangent
	SemanticTexCoord
	SemanticColor
	SemanticBlendWeights
	SemanticBlendIndices
	SemanticObjectIndex

	NumSemantics = iota
)

var semanticNames = [NumSemantics]string{
	"POSITION", "NORMAL", "BINORMAL", "TANGENT", "TEXCOORD",
	"COLOR", "BLENDWEIGHT", "BLENDINDICES", "OBJECTINDEX",
}

// String returns the upper-case semantic name.
func (s VertexElementSemantic) String() string {
	if int(s) < len(semanticNames) {
		return semanticNames[s]
	}
	return fmt.Sprintf("Semantic(%d)", uint8(s))
}

// VertexShaderAttribute is one vertex input declared by a vertex shader.
type VertexShaderAttribute struct {
	Semantic      VertexElementSemantic
	SemanticIndex uint32
	InputIndex    uint32
}

// String formats the attribute as semantic name plus index, e.g. TEXCOORD1.
func (a VertexShaderAttribute) String() string {
	return a.Semantic.String() + strconv.FormatUint(uint64(a.SemanticIndex), 10)
}

var semanticAliases = map[string]VertexElementSemantic{
	"position":     SemanticPosition,
	"pos":          SemanticPosition,
	"normal":       SemanticNormal,
	"norm":         SemanticNormal,
	"binormal":     SemanticBinormal,
	"bitangent":    SemanticBinormal,
	"tangent":      SemanticTangent,
	"texcoord":     SemanticTexCoord,
	"tex":          SemanticTexCoord,
	"uv":           SemanticTexCoord,
	"color":        SemanticColor,
	"colour":       SemanticColor,
	"blendweight":  SemanticBlendWeights,
	"blendweights": SemanticBlendWeights,
	"weights":      SemanticBlendWeights,
	"blendindex":   SemanticBlendIndices,
	"blendindices": SemanticBlendIndices,
	"joints":       SemanticBlendIndices,
	"objectindex":  SemanticObjectIndex,
	"instance":     SemanticObjectIndex,
}

// ParseVertexAttribute derives a semantic and semantic index from a shader
// input name. Matching is case-insensitive and ignores underscores; a single
// lower-case "i" prefix before an upper-case letter is dropped (iPos), and
// trailing digits are the semantic index (iTexCoord1, uv_2).
func ParseVertexAttribute(name string) (VertexElementSemantic, uint32, bool) {
	if len(name) > 1 && name[0] == 'i' && unicode.IsUpper(rune(name[1])) {
		name = name[1:]
	}
	end := len(name)
	for end > 0 && name[end-1] >= '0' && name[end-1] <= '9' {
		end--
	}
	var index uint32
	if end < len(name) {
		v, err := strconv.ParseUint(name[end:], 10, 32)
		if err != nil {
			return 0, 0, false
		}
		index = uint32(v)
	}
	key := strings.ToLower(strings.ReplaceAll(name[:end], "_", ""))
	if s, ok := semanticAliases[key]; ok {
		return s, index, true
	}
	if s, ok := semanticAliases[strings.TrimPrefix(key, "in")]; ok {
		return s, index, true
	}
	return 0, 0, false
}
