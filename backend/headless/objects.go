package headless

import (
	"encoding/binary"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/gogpu/pso/gpucore"
)

// =============================================================================
// Shaders
// =============================================================================

type shaderHandle struct {
	dev      *Device
	name     string
	stage    gpucore.ShaderStage
	refl     *gpucore.ShaderReflection
	released atomic.Bool
}

func (s *shaderHandle) Name() string               { return s.name }
func (s *shaderHandle) Stage() gpucore.ShaderStage { return s.stage }

// Reflection hides what a link-time backend cannot know per stage: vertex
// input slots, and resources without separable programs.
func (s *shaderHandle) Reflection() *gpucore.ShaderReflection {
	if s.dev.opts.Backend.EagerReflection() {
		return s.refl
	}
	out := &gpucore.ShaderReflection{Stage: s.refl.Stage, EntryPoint: s.refl.EntryPoint}
	for _, a := range s.refl.VertexAttributes {
		a.InputIndex = gpucore.UnassignedInput
		out.VertexAttributes = append(out.VertexAttributes, a)
	}
	if s.dev.opts.Features.SeparablePrograms {
		out.Resources = s.refl.Resources
	}
	return out
}

func (s *shaderHandle) Release() {
	if s.released.Swap(true) {
		return
	}
	s.dev.mu.Lock()
	s.dev.shaders--
	s.dev.mu.Unlock()
}

// =============================================================================
// Linking
// =============================================================================

type linkedProgram struct {
	attrs     []gpucore.VertexShaderAttribute
	resources []gpucore.ShaderResource
}

func (p *linkedProgram) VertexAttributes() []gpucore.VertexShaderAttribute { return p.attrs }
func (p *linkedProgram) Resources() []gpucore.ShaderResource               { return p.resources }

// link assigns vertex input slots in declaration order and merges resources
// declared by several stages.
func link(stages []*shaderHandle) *linkedProgram {
	p := &linkedProgram{}
	byName := make(map[string]int)
	for _, sh := range stages {
		if sh.stage == gpucore.ShaderStageVertex {
			for i, a := range sh.refl.VertexAttributes {
				a.InputIndex = uint32(i)
				p.attrs = append(p.attrs, a)
			}
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

// =============================================================================
// Pipelines and bindings
// =============================================================================

type pipeline struct {
	dev       *Device
	name      string
	resources []gpucore.ShaderResource
	released  atomic.Bool
}

func (p *pipeline) Name() string { return p.name }

func (p *pipeline) CreateShaderResourceBinding() (gpucore.ShaderResourceBinding, error) {
	srb := &binding{dev: p.dev, vars: make(map[string]*variable, len(p.resources))}
	for _, r := range p.resources {
		srb.vars[r.Name] = &variable{name: r.Name, stages: r.Stages}
	}
	p.dev.mu.Lock()
	p.dev.srbs++
	p.dev.mu.Unlock()
	return srb, nil
}

func (p *pipeline) Release() {
	if p.released.Swap(true) {
		return
	}
	p.dev.mu.Lock()
	p.dev.pipelines--
	p.dev.mu.Unlock()
}

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
	b.dev.mu.Lock()
	b.dev.srbs--
	b.dev.mu.Unlock()
}

type variable struct {
	name   string
	stages gpucore.ShaderStage

	mu       sync.Mutex
	resource any
}

func (v *variable) Name() string { return v.name }

func (v *variable) Set(resource any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.resource = resource
}

func (v *variable) Get() any {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.resource
}

// =============================================================================
// Pipeline cache
// =============================================================================

// Blob layout: magic, version, pipeline count, then sorted names.
const (
	cacheMagic   = 0x4f535048 // "HPSO" little-endian
	cacheVersion = 1
)

type pipelineCache struct {
	dev *Device

	mu       sync.Mutex
	names    map[string]bool
	released bool
}

// CreatePipelineCache restores the set of pipeline names recorded in data.
// Data with the wrong magic or version, or truncated data, yields an empty
// cache.
func (d *Device) CreatePipelineCache(data []byte) (gpucore.PipelineCache, error) {
	c := &pipelineCache{dev: d, names: make(map[string]bool)}
	if len(data) > 0 {
		if names, ok := decodeCache(data); ok {
			for _, n := range names {
				c.names[n] = true
			}
		} else {
			slogger().Warn("headless: ignoring incompatible pipeline cache data", "bytes", len(data))
		}
	}
	d.mu.Lock()
	d.caches++
	d.mu.Unlock()
	return c, nil
}

// recordPipeline remembers name in pc when pc is a headless cache.
func recordPipeline(pc gpucore.PipelineCache, name string) {
	if c, ok := pc.(*pipelineCache); ok {
		c.record(name)
	}
}

func (c *pipelineCache) record(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names[name] = true
}

// Names returns the sorted pipeline names known to the cache.
func (c *pipelineCache) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.names))
	for n := range c.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (c *pipelineCache) Data() ([]byte, error) {
	names := c.Names()
	buf := binary.LittleEndian.AppendUint32(nil, cacheMagic)
	buf = binary.LittleEndian.AppendUint32(buf, cacheVersion)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(names)))
	for _, n := range names {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(n)))
		buf = append(buf, n...)
	}
	return buf, nil
}

func (c *pipelineCache) Release() {
	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return
	}
	c.released = true
	c.mu.Unlock()

	c.dev.mu.Lock()
	c.dev.caches--
	c.dev.mu.Unlock()
}

func decodeCache(data []byte) ([]string, bool) {
	if len(data) < 12 ||
		binary.LittleEndian.Uint32(data) != cacheMagic ||
		binary.LittleEndian.Uint32(data[4:]) != cacheVersion {
		return nil, false
	}
	n := binary.LittleEndian.Uint32(data[8:])
	data = data[12:]
	names := make([]string, 0, min(n, 1024))
	for range n {
		if len(data) < 4 {
			return nil, false
		}
		l := binary.LittleEndian.Uint32(data)
		data = data[4:]
		if uint32(len(data)) < l {
			return nil, false
		}
		names = append(names, string(data[:l]))
		data = data[l:]
	}
	return names, true
}
