package pso

import (
	"fmt"
	"sync"

	"github.com/gogpu/pso/gpucore"
	"github.com/gogpu/pso/render"
	"github.com/gogpu/pso/shader"
)

// PipelineState owns a backend pipeline and its shader resource binding,
// built from one descriptor.
//
// A PipelineState is obtained from a Cache with one reference and must be
// released with Release. It is invalidated when the device is lost or when
// any of its shaders is reloaded, and rebuilt by Restore.
type PipelineState struct {
	cache *Cache
	desc  PipelineStateDesc
	name  string

	// Guarded by cache.mu.
	refs      int32
	queued    bool
	destroyed bool

	mu         sync.Mutex
	handle     gpucore.Pipeline
	srb        gpucore.ShaderResourceBinding
	reflection *ShaderProgramReflection
	err        error
	layoutErrs []error
	builds     int
}

// newPipelineState builds a state with one reference. Called with
// cache.mu held.
func newPipelineState(c *Cache, desc PipelineStateDesc) *PipelineState {
	st := &PipelineState{
		cache: c,
		desc:  desc,
		name:  fmt.Sprintf("%s #%016x", desc.DebugName(), desc.CacheKey()),
		refs:  1,
	}
	for _, s := range desc.Shaders() {
		s.SubscribeReloaded(st, st.onShaderReloaded)
	}
	c.dev.Register(st)
	st.createGPU()
	return st
}

func (st *PipelineState) onShaderReloaded(s *shader.Shader) {
	slogger().Debug("pso: shader reloaded, invalidating pipeline state", "name", st.name, "shader", s.Name())
	st.Invalidate()
}

// Desc returns the descriptor the state was built from.
func (st *PipelineState) Desc() PipelineStateDesc { return st.desc }

// Type returns the pipeline type.
func (st *PipelineState) Type() PipelineStateType { return st.desc.Type() }

// DebugName returns the descriptor name followed by the descriptor hash.
func (st *PipelineState) DebugName() string { return st.name }

// String implements fmt.Stringer.
func (st *PipelineState) String() string { return st.name }

// Handle returns the backend pipeline, or nil while the state is invalid
// or failed to build.
func (st *PipelineState) Handle() gpucore.Pipeline {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.handle
}

// SRB returns the shader resource binding, or nil when Handle is nil.
func (st *PipelineState) SRB() gpucore.ShaderResourceBinding {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.srb
}

// Reflection returns the resource table of the last successful build.
func (st *PipelineState) Reflection() *ShaderProgramReflection {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.reflection
}

// IsValid reports whether the state has a backend pipeline.
func (st *PipelineState) IsValid() bool {
	return st.Handle() != nil
}

// Err returns why the last build failed, or nil.
func (st *PipelineState) Err() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.err
}

// LayoutErrors returns the vertex attributes of the last build that had no
// input layout element, as *UnmatchedAttributeError values.
func (st *PipelineState) LayoutErrors() []error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.layoutErrs
}

// Builds returns how many times the backend pipeline was built.
func (st *PipelineState) Builds() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.builds
}

// AddRef adds a reference. Each reference is dropped with Release.
func (st *PipelineState) AddRef() *PipelineState {
	c := st.cache
	c.mu.Lock()
	defer c.mu.Unlock()
	if st.destroyed {
		slogger().Error("pso: reference added to destroyed pipeline state", "name", st.name)
		return st
	}
	st.refs++
	return st
}

// Release drops a reference. Dropping the last reference removes the cache
// entry and releases the backend objects.
//
// The last reference must be dropped on the thread owning the graphics
// context. Otherwise Release returns ErrForeignThreadRelease, leaves the
// cache entry in place and queues the state for Cache.DrainReleaseQueue.
func (st *PipelineState) Release() error {
	c := st.cache
	c.mu.Lock()
	if st.refs <= 0 {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrReleased, st.name)
	}
	st.refs--
	if st.refs > 0 {
		c.mu.Unlock()
		return nil
	}
	if !c.opts.onOwner() {
		if !st.queued {
			st.queued = true
			c.queue = append(c.queue, st)
		}
		c.mu.Unlock()
		slogger().Warn("pso: pipeline state should be released only from the owning thread", "name", st.name)
		return ErrForeignThreadRelease
	}
	c.releasePipelineState(st.desc)
	st.destroyed = true
	c.mu.Unlock()

	st.destroy()
	return nil
}

// destroy detaches the state from its shaders and the device and releases
// the backend objects.
func (st *PipelineState) destroy() {
	for _, s := range st.desc.Shaders() {
		s.UnsubscribeReloaded(st)
	}
	st.cache.dev.Unregister(st)
	st.Invalidate()
}

// Invalidate releases the backend pipeline and binding.
func (st *PipelineState) Invalidate() {
	st.mu.Lock()
	handle, srb := st.handle, st.srb
	st.handle, st.srb, st.reflection, st.err = nil, nil, nil, nil
	st.mu.Unlock()

	if srb != nil {
		srb.Release()
	}
	if handle != nil {
		handle.Release()
	}
}

// Restore rebuilds an invalid state. The cache and every referenced shader
// are restored first. Restore does nothing while the state is valid.
func (st *PipelineState) Restore() {
	if st.Handle() != nil {
		return
	}
	st.cache.mu.Lock()
	destroyed := st.destroyed
	st.cache.mu.Unlock()
	if destroyed {
		return
	}

	st.cache.Restore()
	for _, s := range st.desc.Shaders() {
		s.Restore()
	}
	st.createGPU()
}

// RestorePriority restores pipeline states after caches and shaders.
func (st *PipelineState) RestorePriority() int { return render.PriorityPipeline }

// =============================================================================
// Build
// =============================================================================

// buildResult is the outcome of a backend pipeline creation.
type buildResult struct {
	pipeline   gpucore.Pipeline
	reflection *ShaderProgramReflection
	layoutErrs []error
}

func (st *PipelineState) createGPU() {
	var (
		res buildResult
		err error
	)
	switch {
	case st.desc.graphics != nil:
		res, err = st.createGraphics(st.desc.graphics)
	case st.desc.compute != nil:
		res, err = st.createCompute(st.desc.compute)
	default:
		err = ErrIncompleteDesc
	}
	if err == nil && res.pipeline == nil {
		err = ErrNoPipeline
	}
	if err != nil {
		st.fail(err, res.layoutErrs)
		return
	}

	srb, err := res.pipeline.CreateShaderResourceBinding()
	if err != nil {
		res.pipeline.Release()
		st.fail(fmt.Errorf("pso: shader resource binding: %w", err), res.layoutErrs)
		return
	}
	res.reflection.ConnectToShaderVariables(st.desc.Type(), srb)

	st.mu.Lock()
	st.handle = res.pipeline
	st.srb = srb
	st.reflection = res.reflection
	st.err = nil
	st.layoutErrs = res.layoutErrs
	st.builds++
	st.mu.Unlock()

	slogger().Debug("pso: pipeline state created", "name", st.name, "type", st.desc.Type())
}

func (st *PipelineState) fail(err error, layoutErrs []error) {
	st.mu.Lock()
	st.err = err
	st.layoutErrs = layoutErrs
	st.mu.Unlock()
	slogger().Error("pso: failed to create pipeline state", "name", st.name, "err", err)
}

// compiledStage returns the compiled stage of s. A nil s yields a nil
// handle unless required.
func compiledStage(s *shader.Shader, required bool) (gpucore.ShaderHandle, error) {
	if s == nil {
		if required {
			return nil, ErrIncompleteDesc
		}
		return nil, nil
	}
	h := s.Handle()
	if h == nil {
		return nil, fmt.Errorf("%w: %s", ErrShaderUnavailable, s.Name())
	}
	return h, nil
}

func stageAttributes(h gpucore.ShaderHandle) []gpucore.VertexShaderAttribute {
	if refl := h.Reflection(); refl != nil {
		return refl.VertexAttributes
	}
	return nil
}

func (st *PipelineState) createGraphics(d *GraphicsPipelineStateDesc) (buildResult, error) {
	var res buildResult

	gpu := st.cache.dev.GPU()
	backend := gpu.Backend()
	eager := backend.EagerReflection()
	separable := eager || gpu.Features().SeparablePrograms
	policy := st.cache.opts.fallback

	ci := &gpucore.GraphicsPipelineCreateInfo{
		Name:                st.name,
		PrimitiveTopology:   translateTopology(d.PrimitiveType),
		NumRenderTargets:    uint32(len(d.Output.RenderTargetFormats)), //nolint:gosec // validated by the backend
		DSVFormat:           d.Output.DepthStencilFormat,
		SampleCount:         max(d.Output.MultiSample, 1),
		Blend:               translateBlend(d),
		DepthStencil:        translateDepthStencil(d),
		Rasterizer:          translateRasterizer(d, backend),
		DefaultVariableType: gpucore.VariableDynamic,
		Cache:               st.cache.Handle(),
	}
	copy(ci.RTVFormats[:], d.Output.RenderTargetFormats)

	var err error
	for _, stage := range [...]struct {
		dst      *gpucore.ShaderHandle
		src      *shader.Shader
		required bool
	}{
		{&ci.VS, d.VertexShader, true},
		{&ci.PS, d.PixelShader, true},
		{&ci.GS, d.GeometryShader, false},
		{&ci.HS, d.HullShader, false},
		{&ci.DS, d.DomainShader, false},
	} {
		if *stage.dst, err = compiledStage(stage.src, stage.required); err != nil {
			return res, err
		}
	}

	if eager {
		ci.InputLayout, res.layoutErrs = translateInputLayout(d.InputLayout, stageAttributes(ci.VS))
	}
	if separable {
		res.reflection = NewStageReflection(ci.Shaders()...)
		if ci.ImmutableSamplers, err = translateSamplers(d.Samplers, res.reflection, gpucore.ShaderStageAllGraphics, policy); err != nil {
			return res, err
		}
	}
	if !eager {
		// Vertex input slots, and without separable programs the resources,
		// are only known once the program is linked.
		ci.OnProgramLinked = func(p gpucore.LinkedProgram) error {
			ci.InputLayout, res.layoutErrs = translateInputLayout(d.InputLayout, p.VertexAttributes())
			if separable {
				return nil
			}
			res.reflection = NewLinkedReflection(p)
			samplers, err := translateSamplers(d.Samplers, res.reflection, gpucore.ShaderStageAllGraphics, policy)
			if err != nil {
				return err
			}
			ci.ImmutableSamplers = samplers
			return nil
		}
	}

	res.pipeline, err = gpu.CreateGraphicsPipeline(ci)
	if err != nil {
		return res, err
	}
	if res.reflection == nil {
		res.reflection = NewStageReflection(ci.Shaders()...)
	}
	return res, nil
}

func (st *PipelineState) createCompute(d *ComputePipelineStateDesc) (buildResult, error) {
	var res buildResult

	gpu := st.cache.dev.GPU()
	separable := gpu.Backend().EagerReflection() || gpu.Features().SeparablePrograms
	policy := st.cache.opts.fallback

	cs, err := compiledStage(d.ComputeShader, true)
	if err != nil {
		return res, err
	}
	ci := &gpucore.ComputePipelineCreateInfo{
		Name:                st.name,
		CS:                  cs,
		DefaultVariableType: gpucore.VariableDynamic,
		Cache:               st.cache.Handle(),
	}

	if separable {
		res.reflection = NewStageReflection(cs)
		if ci.ImmutableSamplers, err = translateSamplers(d.Samplers, res.reflection, gpucore.ShaderStageCompute, policy); err != nil {
			return res, err
		}
	} else {
		ci.OnProgramLinked = func(p gpucore.LinkedProgram) error {
			res.reflection = NewLinkedReflection(p)
			samplers, err := translateSamplers(d.Samplers, res.reflection, gpucore.ShaderStageCompute, policy)
			if err != nil {
				return err
			}
			ci.ImmutableSamplers = samplers
			return nil
		}
	}

	res.pipeline, err = gpu.CreateComputePipeline(ci)
	if err != nil {
		return res, err
	}
	if res.reflection == nil {
		res.reflection = NewStageReflection(cs)
	}
	return res, nil
}
