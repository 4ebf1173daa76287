package wgpu

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/pso/gpucore"
)

// =============================================================================
// Linking
// =============================================================================

type linkedProgram struct {
	attrs     []gpucore.VertexShaderAttribute
	resources []gpucore.ShaderResource
}

func (p *linkedProgram) VertexAttributes() []gpucore.VertexShaderAttribute { return p.attrs }
func (p *linkedProgram) Resources() []gpucore.ShaderResource               { return p.resources }

// link merges the resources of several stages by name. Vertex inputs keep
// their @location slots.
func link(stages []*shaderHandle) *linkedProgram {
	p := &linkedProgram{}
	byName := make(map[string]int)
	for _, sh := range stages {
		if sh.stage == gpucore.ShaderStageVertex {
			p.attrs = append(p.attrs, sh.refl.VertexAttributes...)
		}
		for _, r := range sh.refl.Resources {
			if i, ok := byName[r.Name]; ok {
				p.resources[i].Stages |= sh.stage
				continue
			}
			r.Stages = sh.stage
			byName[r.Name] = len(p.resources)
			p.resources = append(p.resources, r)
		}
	}
	return p
}

func (d *Device) own(sh gpucore.ShaderHandle) (*shaderHandle, error) {
	h, ok := sh.(*shaderHandle)
	if !ok || h.dev != d {
		return nil, fmt.Errorf("%w: %s", ErrForeignShader, sh.Name())
	}
	if h.released.Load() {
		return nil, fmt.Errorf("%w: %s", ErrReleasedShader, h.name)
	}
	return h, nil
}

// =============================================================================
// Layouts
// =============================================================================

type pipelineLayout struct {
	groups []hal.BindGroupLayout
	layout hal.PipelineLayout
}

func (d *Device) createLayout(name string, resources []gpucore.ShaderResource) (*pipelineLayout, error) {
	pl := &pipelineLayout{}
	for i, entries := range bindGroupEntries(resources) {
		bgl, err := d.hal.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s/group%d", name, i),
			Entries: entries,
		})
		if err != nil {
			d.destroyLayout(pl)
			return nil, fmt.Errorf("wgpu: %s: bind group layout %d: %w", name, i, err)
		}
		pl.groups = append(pl.groups, bgl)
	}
	layout, err := d.hal.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            name,
		BindGroupLayouts: pl.groups,
	})
	if err != nil {
		d.destroyLayout(pl)
		return nil, fmt.Errorf("wgpu: %s: pipeline layout: %w", name, err)
	}
	pl.layout = layout
	return pl, nil
}

func (d *Device) destroyLayout(pl *pipelineLayout) {
	if pl.layout != nil {
		d.hal.DestroyPipelineLayout(pl.layout)
	}
	for _, g := range pl.groups {
		d.hal.DestroyBindGroupLayout(g)
	}
}

// =============================================================================
// Immutable samplers
// =============================================================================

// bindSamplers resolves each immutable sampler to a sampler variable of the
// program. A texture name selects the sampler with the same suffix
// (tDiffMap selects sDiffMap).
func (d *Device) bindSamplers(name string, resources []gpucore.ShaderResource, samplers []gpucore.ImmutableSampler) (map[string]hal.Sampler, error) {
	if len(samplers) == 0 {
		return nil, nil
	}
	byName := make(map[string]gpucore.ShaderResource, len(resources))
	for _, r := range resources {
		if r.Kind == gpucore.ResourceSampler {
			byName[r.Name] = r
		}
	}

	out := make(map[string]hal.Sampler, len(samplers))
	for _, is := range samplers {
		target := is.SamplerOrTextureName
		r, ok := byName[target]
		if !ok && strings.HasPrefix(target, "t") {
			target = "s" + target[1:]
			r, ok = byName[target]
		}
		if !ok || r.Stages&is.ShaderStages == 0 {
			slogger().Debug("wgpu: immutable sampler has no sampler variable", "pipeline", name, "sampler", is.SamplerOrTextureName)
			continue
		}
		s, err := d.samplers.GetOrCreate(is.Desc, func() (hal.Sampler, error) {
			return d.hal.CreateSampler(samplerDescriptor(target, is.Desc))
		})
		if err != nil {
			return nil, fmt.Errorf("wgpu: %s: sampler %s: %w", name, target, err)
		}
		out[target] = s
	}
	return out, nil
}

// =============================================================================
// Pipelines
// =============================================================================

// CreateGraphicsPipeline translates ci into a render pipeline. Geometry and
// tessellation stages are rejected.
func (d *Device) CreateGraphicsPipeline(ci *gpucore.GraphicsPipelineCreateInfo) (gpucore.Pipeline, error) {
	if err := d.checkAlive(); err != nil {
		return nil, err
	}
	if ci.VS == nil || ci.PS == nil {
		return nil, ErrMissingStage
	}
	for _, sh := range [...]gpucore.ShaderHandle{ci.GS, ci.HS, ci.DS} {
		if sh != nil {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedStage, sh.Stage())
		}
	}
	vs, err := d.own(ci.VS)
	if err != nil {
		return nil, err
	}
	ps, err := d.own(ci.PS)
	if err != nil {
		return nil, err
	}

	program := link([]*shaderHandle{vs, ps})
	if ci.OnProgramLinked != nil {
		if err := ci.OnProgramLinked(program); err != nil {
			return nil, fmt.Errorf("wgpu: %s: program linked: %w", ci.Name, err)
		}
	}

	primitive, err := primitiveState(ci)
	if err != nil {
		return nil, err
	}
	buffers, err := vertexBuffers(ci.InputLayout)
	if err != nil {
		return nil, fmt.Errorf("wgpu: %s: %w", ci.Name, err)
	}
	targets, err := colorTargets(ci)
	if err != nil {
		return nil, err
	}
	if ci.Rasterizer.FillMode == gpucore.FillWireframe {
		slogger().Warn("wgpu: wireframe fill is not supported, rendering solid", "pipeline", ci.Name)
	}

	samplers, err := d.bindSamplers(ci.Name, program.resources, ci.ImmutableSamplers)
	if err != nil {
		return nil, err
	}
	layout, err := d.createLayout(ci.Name, program.resources)
	if err != nil {
		return nil, err
	}

	desc := &hal.RenderPipelineDescriptor{
		Label:  ci.Name,
		Layout: layout.layout,
		Vertex: hal.VertexState{
			Module:     vs.module,
			EntryPoint: vs.refl.EntryPoint,
			Buffers:    buffers,
		},
		Primitive:    primitive,
		DepthStencil: depthStencilState(ci),
		Multisample:  multisampleState(ci),
		Fragment: &hal.FragmentState{
			Module:     ps.module,
			EntryPoint: ps.refl.EntryPoint,
			Targets:    targets,
		},
	}
	rp, err := d.hal.CreateRenderPipeline(desc)
	if err != nil {
		d.destroyLayout(layout)
		return nil, fmt.Errorf("wgpu: %s: create render pipeline: %w", ci.Name, err)
	}
	recordPipeline(ci.Cache, ci.Name, hashRenderPipeline(vs, ps, desc))
	d.count(func(s *Stats) { s.Pipelines++ })

	slogger().Debug("wgpu: render pipeline created", "name", ci.Name, "buffers", len(buffers), "groups", len(layout.groups), "samplers", len(samplers))
	return &Pipeline{
		dev:       d,
		name:      ci.Name,
		render:    rp,
		layout:    layout,
		resources: program.resources,
		samplers:  samplers,
	}, nil
}

// CreateComputePipeline translates ci into a compute pipeline.
func (d *Device) CreateComputePipeline(ci *gpucore.ComputePipelineCreateInfo) (gpucore.Pipeline, error) {
	if err := d.checkAlive(); err != nil {
		return nil, err
	}
	if ci.CS == nil {
		return nil, ErrMissingStage
	}
	cs, err := d.own(ci.CS)
	if err != nil {
		return nil, err
	}

	program := link([]*shaderHandle{cs})
	if ci.OnProgramLinked != nil {
		if err := ci.OnProgramLinked(program); err != nil {
			return nil, fmt.Errorf("wgpu: %s: program linked: %w", ci.Name, err)
		}
	}

	samplers, err := d.bindSamplers(ci.Name, program.resources, ci.ImmutableSamplers)
	if err != nil {
		return nil, err
	}
	layout, err := d.createLayout(ci.Name, program.resources)
	if err != nil {
		return nil, err
	}

	desc := &hal.ComputePipelineDescriptor{
		Label:  ci.Name,
		Layout: layout.layout,
		Compute: hal.ComputeState{
			Module:     cs.module,
			EntryPoint: cs.refl.EntryPoint,
		},
	}
	cp, err := d.hal.CreateComputePipeline(desc)
	if err != nil {
		d.destroyLayout(layout)
		return nil, fmt.Errorf("wgpu: %s: create compute pipeline: %w", ci.Name, err)
	}
	recordPipeline(ci.Cache, ci.Name, hashComputePipeline(cs, desc))
	d.count(func(s *Stats) { s.Pipelines++ })

	slogger().Debug("wgpu: compute pipeline created", "name", ci.Name, "groups", len(layout.groups))
	return &Pipeline{
		dev:       d,
		name:      ci.Name,
		compute:   cp,
		layout:    layout,
		resources: program.resources,
		samplers:  samplers,
	}, nil
}

// Pipeline is a render or compute pipeline with its layouts.
type Pipeline struct {
	dev       *Device
	name      string
	render    hal.RenderPipeline
	compute   hal.ComputePipeline
	layout    *pipelineLayout
	resources []gpucore.ShaderResource
	samplers  map[string]hal.Sampler
	released  atomic.Bool
}

func (p *Pipeline) Name() string { return p.name }

// RenderPipeline returns the hal render pipeline, or nil for compute.
func (p *Pipeline) RenderPipeline() hal.RenderPipeline { return p.render }

// ComputePipeline returns the hal compute pipeline, or nil for graphics.
func (p *Pipeline) ComputePipeline() hal.ComputePipeline { return p.compute }

// BindGroupLayouts returns one layout per bind group index.
func (p *Pipeline) BindGroupLayouts() []hal.BindGroupLayout { return p.layout.groups }

// Sampler returns the immutable sampler bound to the named sampler
// variable.
func (p *Pipeline) Sampler(name string) (hal.Sampler, bool) {
	s, ok := p.samplers[name]
	return s, ok
}

// CreateShaderResourceBinding returns a variable table covering every
// resource of the pipeline. Sampler variables with an immutable sampler
// start out set to it.
func (p *Pipeline) CreateShaderResourceBinding() (gpucore.ShaderResourceBinding, error) {
	if p.released.Load() {
		return nil, fmt.Errorf("wgpu: %s: pipeline released", p.name)
	}
	srb := &binding{dev: p.dev, vars: make(map[string]*variable, len(p.resources))}
	for _, r := range p.resources {
		v := &variable{name: r.Name, stages: r.Stages, group: r.Group, binding: r.Binding}
		if s, ok := p.samplers[r.Name]; ok {
			v.resource = s
			v.immutable = true
		}
		srb.vars[r.Name] = v
	}
	p.dev.count(func(s *Stats) { s.Bindings++ })
	return srb, nil
}

func (p *Pipeline) Release() {
	if p.released.Swap(true) {
		return
	}
	if p.render != nil {
		p.dev.hal.DestroyRenderPipeline(p.render)
	}
	if p.compute != nil {
		p.dev.hal.DestroyComputePipeline(p.compute)
	}
	p.dev.destroyLayout(p.layout)
	p.dev.count(func(s *Stats) { s.Pipelines-- })
}

// =============================================================================
// Bindings
// =============================================================================

type binding struct {
	dev      *Device
	vars     map[string]*variable
	released atomic.Bool
}

func (b *binding) Variable(stages gpucore.ShaderStage, name string) gpucore.ShaderVariable {
	v, ok := b.vars[name]
	if !ok || v.stages&stages == 0 {
		return nil
	}
	return v
}

func (b *binding) Release() {
	if b.released.Swap(true) {
		return
	}
	b.dev.count(func(s *Stats) { s.Bindings-- })
}

type variable struct {
	name    string
	stages  gpucore.ShaderStage
	group   uint32
	binding uint32

	mu        sync.Mutex
	resource  any
	immutable bool
}

func (v *variable) Name() string { return v.name }

// Slot returns the bind group and binding of the variable.
func (v *variable) Slot() (group, binding uint32) { return v.group, v.binding }

// Set ignores writes to variables holding an immutable sampler.
func (v *variable) Set(resource any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.immutable {
		slogger().Debug("wgpu: ignoring write to immutable sampler", "variable", v.name)
		return
	}
	v.resource = resource
}

func (v *variable) Get() any {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.resource
}
