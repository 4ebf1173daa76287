package pso

import (
	"cmp"
	"slices"

	"github.com/gogpu/pso/gpucore"
)

// ShaderBinding is one bind point of a reflected resource.
type ShaderBinding struct {
	// InternalName is the name declared in the shader.
	InternalName string
	Group        uint32
	Binding      uint32
	Stages       gpucore.ShaderStage

	// Variable is set by ConnectToShaderVariables, nil before or when the
	// binding has no variable.
	Variable gpucore.ShaderVariable
}

// ShaderResourceDesc is a sampled resource: a texture, its sampler, or both.
// A texture tDiffMap and a sampler sDiffMap form the resource DiffMap.
type ShaderResourceDesc struct {
	Name    string
	Texture *ShaderBinding
	Sampler *ShaderBinding
}

// InternalName returns the name an immutable sampler binds to: the sampler
// when declared, else the texture.
func (r *ShaderResourceDesc) InternalName() string {
	if r.Sampler != nil {
		return r.Sampler.InternalName
	}
	return r.Texture.InternalName
}

// Stages returns the stages using the texture or the sampler.
func (r *ShaderResourceDesc) Stages() gpucore.ShaderStage {
	var s gpucore.ShaderStage
	if r.Texture != nil {
		s |= r.Texture.Stages
	}
	if r.Sampler != nil {
		s |= r.Sampler.Stages
	}
	return s
}

// ShaderProgramReflection is the resource table of all stages of a
// pipeline. It is rebuilt with every pipeline build and is read-only
// afterwards, apart from ConnectToShaderVariables.
type ShaderProgramReflection struct {
	attrs     []gpucore.VertexShaderAttribute
	resources map[gpucore.NameHash]*ShaderResourceDesc
	uniforms  map[gpucore.NameHash]*ShaderBinding
	storage   map[gpucore.NameHash]*ShaderBinding
}

func newReflection() *ShaderProgramReflection {
	return &ShaderProgramReflection{
		resources: make(map[gpucore.NameHash]*ShaderResourceDesc),
		uniforms:  make(map[gpucore.NameHash]*ShaderBinding),
		storage:   make(map[gpucore.NameHash]*ShaderBinding),
	}
}

// NewStageReflection merges the reflection of individual stages. Vertex
// attributes are taken from the vertex stage.
func NewStageReflection(stages ...gpucore.ShaderHandle) *ShaderProgramReflection {
	r := newReflection()
	for _, sh := range stages {
		if sh == nil {
			continue
		}
		refl := sh.Reflection()
		if refl == nil {
			continue
		}
		if sh.Stage() == gpucore.ShaderStageVertex {
			r.attrs = slices.Clone(refl.VertexAttributes)
		}
		for _, res := range refl.Resources {
			if res.Stages == gpucore.ShaderStageNone {
				res.Stages = sh.Stage()
			}
			r.add(res)
		}
	}
	return r
}

// NewLinkedReflection builds the reflection of a linked program.
func NewLinkedReflection(p gpucore.LinkedProgram) *ShaderProgramReflection {
	r := newReflection()
	r.attrs = slices.Clone(p.VertexAttributes())
	for _, res := range p.Resources() {
		r.add(res)
	}
	return r
}

func (r *ShaderProgramReflection) add(res gpucore.ShaderResource) {
	switch res.Kind {
	case gpucore.ResourceTexture, gpucore.ResourceSampler:
		name := resourceName(res.Name)
		key := gpucore.HashName(name)
		desc, ok := r.resources[key]
		if !ok {
			desc = &ShaderResourceDesc{Name: name}
			r.resources[key] = desc
		}
		slot := &desc.Texture
		if res.Kind == gpucore.ResourceSampler {
			slot = &desc.Sampler
		}
		*slot = mergeBinding(*slot, res)
	case gpucore.ResourceUniformBuffer:
		key := gpucore.HashName(res.Name)
		r.uniforms[key] = mergeBinding(r.uniforms[key], res)
	default:
		key := gpucore.HashName(res.Name)
		r.storage[key] = mergeBinding(r.storage[key], res)
	}
}

func mergeBinding(b *ShaderBinding, res gpucore.ShaderResource) *ShaderBinding {
	if b != nil && b.InternalName == res.Name {
		b.Stages |= res.Stages
		return b
	}
	return &ShaderBinding{
		InternalName: res.Name,
		Group:        res.Group,
		Binding:      res.Binding,
		Stages:       res.Stages,
	}
}

// resourceName strips the t or s prefix of texture and sampler names.
func resourceName(internal string) string {
	if len(internal) >= 2 && (internal[0] == 't' || internal[0] == 's') &&
		internal[1] >= 'A' && internal[1] <= 'Z' {
		return internal[1:]
	}
	return internal
}

// VertexAttributes returns the vertex inputs of the program.
func (r *ShaderProgramReflection) VertexAttributes() []gpucore.VertexShaderAttribute {
	return r.attrs
}

// Resource returns the sampled resource with the given name hash.
func (r *ShaderProgramReflection) Resource(name gpucore.NameHash) *ShaderResourceDesc {
	return r.resources[name]
}

// UniformBuffer returns the uniform buffer with the given name hash.
func (r *ShaderProgramReflection) UniformBuffer(name gpucore.NameHash) *ShaderBinding {
	return r.uniforms[name]
}

// StorageResource returns the storage buffer or texture with the given name
// hash.
func (r *ShaderProgramReflection) StorageResource(name gpucore.NameHash) *ShaderBinding {
	return r.storage[name]
}

// Resources returns the sampled resources sorted by name.
func (r *ShaderProgramReflection) Resources() []*ShaderResourceDesc {
	out := make([]*ShaderResourceDesc, 0, len(r.resources))
	for _, d := range r.resources {
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b *ShaderResourceDesc) int { return cmp.Compare(a.Name, b.Name) })
	return out
}

// UniformBuffers returns the uniform buffers sorted by name.
func (r *ShaderProgramReflection) UniformBuffers() []*ShaderBinding {
	return sortedBindings(r.uniforms)
}

func sortedBindings(m map[gpucore.NameHash]*ShaderBinding) []*ShaderBinding {
	out := make([]*ShaderBinding, 0, len(m))
	for _, b := range m {
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b *ShaderBinding) int { return cmp.Compare(a.InternalName, b.InternalName) })
	return out
}

// ConnectToShaderVariables resolves the variable of every binding in srb.
// It returns the number of bindings left without a variable.
func (r *ShaderProgramReflection) ConnectToShaderVariables(t PipelineStateType, srb gpucore.ShaderResourceBinding) int {
	stages := gpucore.ShaderStageAllGraphics
	if t == PipelineStateCompute {
		stages = gpucore.ShaderStageCompute
	}

	missing := 0
	connect := func(b *ShaderBinding) {
		if b == nil {
			return
		}
		b.Variable = srb.Variable(stages, b.InternalName)
		if b.Variable == nil {
			missing++
			slogger().Debug("pso: shader variable not found", "name", b.InternalName)
		}
	}
	for _, d := range r.Resources() {
		connect(d.Texture)
		connect(d.Sampler)
	}
	for _, b := range r.UniformBuffers() {
		connect(b)
	}
	for _, b := range sortedBindings(r.storage) {
		connect(b)
	}
	return missing
}
