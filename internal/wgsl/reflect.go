// Package wgsl extracts pipeline reflection data from WGSL source: entry
// points, vertex stage inputs and bind group resources.
//
// Sources are parsed and lowered with naga. Reflection reads the lowered
// module: entry point arguments give the vertex inputs, bound global
// variables give the resources, and a stage only reports the resources its
// entry point reaches, directly or through called functions.
package wgsl

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"

	"github.com/gogpu/pso/gpucore"
)

// Errors returned by Reflect.
var (
	ErrNoEntryPoint = errors.New("wgsl: entry point not found")
	ErrBadStage     = errors.New("wgsl: stage has no WGSL equivalent")
)

// Input is a vertex stage input.
type Input struct {
	Name     string
	Location uint32
	Type     string
}

// Module is a lowered WGSL source.
type Module struct {
	ir *ir.Module
}

// Parse parses and lowers source.
func Parse(source string) (*Module, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("wgsl: %w", err)
	}
	mod, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, fmt.Errorf("wgsl: %w", err)
	}
	return &Module{ir: mod}, nil
}

// Reflect parses source and returns the reflection of the given stage.
// When entryPoint is empty the first entry point of the stage is used.
func Reflect(source string, stage gpucore.ShaderStage, entryPoint string) (*gpucore.ShaderReflection, error) {
	m, err := Parse(source)
	if err != nil {
		return nil, err
	}
	return m.Reflect(stage, entryPoint)
}

// Reflect returns the reflection of the given stage.
func (m *Module) Reflect(stage gpucore.ShaderStage, entryPoint string) (*gpucore.ShaderReflection, error) {
	ep, err := m.entryPoint(stage, entryPoint)
	if err != nil {
		return nil, err
	}
	refl := &gpucore.ShaderReflection{
		Stage:      stage,
		EntryPoint: ep.Name,
		Resources:  m.resources(m.usedGlobals(&ep.Function), stage),
	}
	if stage != gpucore.ShaderStageVertex {
		return refl, nil
	}

	inputs := m.inputs(&ep.Function)
	refl.VertexAttributes = make([]gpucore.VertexShaderAttribute, 0, len(inputs))
	for _, in := range inputs {
		semantic, index, ok := gpucore.ParseVertexAttribute(in.Name)
		if !ok {
			return nil, fmt.Errorf("wgsl: vertex input %q at location %d has no known semantic", in.Name, in.Location)
		}
		refl.VertexAttributes = append(refl.VertexAttributes, gpucore.VertexShaderAttribute{
			Semantic:      semantic,
			SemanticIndex: index,
			InputIndex:    in.Location,
		})
	}
	return refl, nil
}

// EntryPoint returns the first entry point of stage in source.
func EntryPoint(source string, stage gpucore.ShaderStage) (string, error) {
	m, err := Parse(source)
	if err != nil {
		return "", err
	}
	ep, err := m.entryPoint(stage, "")
	if err != nil {
		return "", err
	}
	return ep.Name, nil
}

// Resources returns every bound global variable of source, visible in
// stages, whether or not an entry point uses it.
func Resources(source string, stages gpucore.ShaderStage) ([]gpucore.ShaderResource, error) {
	m, err := Parse(source)
	if err != nil {
		return nil, err
	}
	all := make(map[ir.GlobalVariableHandle]struct{}, len(m.ir.GlobalVariables))
	for i := range m.ir.GlobalVariables {
		all[ir.GlobalVariableHandle(i)] = struct{}{}
	}
	return m.resources(all, stages), nil
}

// Inputs returns the @location inputs of the vertex entry point, sorted by
// location. Struct-typed parameters are expanded to their fields.
func Inputs(source, entryPoint string) ([]Input, error) {
	m, err := Parse(source)
	if err != nil {
		return nil, err
	}
	ep, err := m.entryPoint(gpucore.ShaderStageVertex, entryPoint)
	if err != nil {
		return nil, err
	}
	return m.inputs(&ep.Function), nil
}

func irStage(stage gpucore.ShaderStage) (ir.ShaderStage, bool) {
	switch stage {
	case gpucore.ShaderStageVertex:
		return ir.StageVertex, true
	case gpucore.ShaderStagePixel:
		return ir.StageFragment, true
	case gpucore.ShaderStageCompute:
		return ir.StageCompute, true
	}
	return 0, false
}

func (m *Module) entryPoint(stage gpucore.ShaderStage, want string) (*ir.EntryPoint, error) {
	s, ok := irStage(stage)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBadStage, stage)
	}
	for i := range m.ir.EntryPoints {
		ep := &m.ir.EntryPoints[i]
		if ep.Stage == s && (want == "" || ep.Name == want) {
			return ep, nil
		}
	}
	if want != "" {
		return nil, fmt.Errorf("%w: %s %q", ErrNoEntryPoint, stage, want)
	}
	return nil, fmt.Errorf("%w: %s", ErrNoEntryPoint, stage)
}

func (m *Module) inputs(fn *ir.Function) []Input {
	var inputs []Input
	for _, arg := range fn.Arguments {
		if loc, ok := location(arg.Binding); ok {
			inputs = append(inputs, Input{Name: arg.Name, Location: loc, Type: m.typeName(arg.Type)})
			continue
		}
		if arg.Binding != nil {
			continue
		}
		st, ok := m.ir.Types[arg.Type].Inner.(ir.StructType)
		if !ok {
			continue
		}
		for _, mem := range st.Members {
			if loc, ok := location(mem.Binding); ok {
				inputs = append(inputs, Input{Name: mem.Name, Location: loc, Type: m.typeName(mem.Type)})
			}
		}
	}
	sort.SliceStable(inputs, func(i, j int) bool {
		return inputs[i].Location < inputs[j].Location
	})
	return inputs
}

func location(b *ir.Binding) (uint32, bool) {
	if b == nil {
		return 0, false
	}
	if loc, ok := (*b).(ir.LocationBinding); ok {
		return loc.Location, true
	}
	return 0, false
}

// usedGlobals returns the global variables fn reaches, following calls.
func (m *Module) usedGlobals(fn *ir.Function) map[ir.GlobalVariableHandle]struct{} {
	used := make(map[ir.GlobalVariableHandle]struct{})
	visited := make(map[ir.FunctionHandle]bool)
	var walk func(fn *ir.Function)
	walk = func(fn *ir.Function) {
		var calls []ir.FunctionHandle
		for _, e := range fn.Expressions {
			switch k := e.Kind.(type) {
			case ir.ExprGlobalVariable:
				used[k.Variable] = struct{}{}
			case ir.ExprCallResult:
				calls = append(calls, k.Function)
			}
		}
		calls = appendCalls(calls, fn.Body)
		for _, h := range calls {
			if visited[h] || int(h) >= len(m.ir.Functions) {
				continue
			}
			visited[h] = true
			walk(&m.ir.Functions[h])
		}
	}
	walk(fn)
	return used
}

func appendCalls(calls []ir.FunctionHandle, block ir.Block) []ir.FunctionHandle {
	for _, st := range block {
		switch k := st.Kind.(type) {
		case ir.StmtCall:
			calls = append(calls, k.Function)
		case ir.StmtBlock:
			calls = appendCalls(calls, k.Block)
		case ir.StmtIf:
			calls = appendCalls(calls, k.Accept)
			calls = appendCalls(calls, k.Reject)
		case ir.StmtSwitch:
			for _, c := range k.Cases {
				calls = appendCalls(calls, c.Body)
			}
		case ir.StmtLoop:
			calls = appendCalls(calls, k.Body)
			calls = appendCalls(calls, k.Continuing)
		}
	}
	return calls
}

func (m *Module) resources(used map[ir.GlobalVariableHandle]struct{}, stages gpucore.ShaderStage) []gpucore.ShaderResource {
	out := make([]gpucore.ShaderResource, 0, len(used))
	for h := range used {
		if int(h) >= len(m.ir.GlobalVariables) {
			continue
		}
		gv := &m.ir.GlobalVariables[h]
		if gv.Binding == nil {
			continue
		}
		out = append(out, gpucore.ShaderResource{
			Name:     gv.Name,
			Kind:     m.classify(gv),
			Group:    gv.Binding.Group,
			Binding:  gv.Binding.Binding,
			Stages:   stages,
			TypeName: m.typeName(gv.Type),
			Writable: gv.Space == ir.SpaceStorage && gv.Access == ir.StorageReadWrite,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Group != out[j].Group {
			return out[i].Group < out[j].Group
		}
		return out[i].Binding < out[j].Binding
	})
	return out
}

func (m *Module) classify(gv *ir.GlobalVariable) gpucore.ShaderResourceKind {
	switch gv.Space {
	case ir.SpaceUniform:
		return gpucore.ResourceUniformBuffer
	case ir.SpaceStorage:
		return gpucore.ResourceStorageBuffer
	}
	inner := m.ir.Types[gv.Type].Inner
	if ba, ok := inner.(ir.BindingArrayType); ok {
		inner = m.ir.Types[ba.Base].Inner
	}
	switch t := inner.(type) {
	case ir.SamplerType:
		return gpucore.ResourceSampler
	case ir.ImageType:
		if t.Class == ir.ImageClassStorage {
			return gpucore.ResourceStorageTexture
		}
	}
	return gpucore.ResourceTexture
}
