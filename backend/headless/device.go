// Package headless provides an in-memory gpucore.Device.
//
// The device compiles nothing. It reflects WGSL source, validates create
// infos, records them, and hands out pipeline objects whose resource
// bindings expose every reflected variable. It can emulate either
// reflection family:
//
//	explicit := headless.New(headless.Options{Backend: gpucore.BackendVulkan})
//	linked := headless.New(headless.Options{Backend: gpucore.BackendOpenGL})
//
// On OpenGL the vertex input slots of a shader are only known after the
// program is linked; slots are assigned in declaration order and the
// OnProgramLinked callback of the create info runs before the pipeline is
// finalized. Without Features.SeparablePrograms, per-stage reflection also
// hides resources until link time.
package headless

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/pso/backend"
	"github.com/gogpu/pso/gpucore"
	"github.com/gogpu/pso/internal/wgsl"
)

// Errors returned by the device.
var (
	ErrMissingStage       = errors.New("headless: required shader stage is nil")
	ErrForeignShader      = errors.New("headless: shader was not created by this device")
	ErrUnsupportedStage   = errors.New("headless: shader stage not supported by device features")
	ErrUnassignedInput    = errors.New("headless: layout element has no input slot")
	ErrReleasedShader     = errors.New("headless: shader was released")
	ErrUndefinedTopology  = errors.New("headless: primitive topology is undefined")
	ErrTooManyRenderTargs = errors.New("headless: too many render targets")
)

func init() {
	backend.Register(backend.BackendHeadless, func() (gpucore.Device, error) {
		return New(Options{Backend: gpucore.BackendHeadless, Features: gpucore.Features{SeparablePrograms: true}}), nil
	})
}

// Options configures a Device.
type Options struct {
	Backend  gpucore.Backend
	Features gpucore.Features
}

// Device is an in-memory gpucore.Device. It is safe for concurrent use.
type Device struct {
	opts Options

	mu        sync.Mutex
	failErr   error
	graphics  []gpucore.GraphicsPipelineCreateInfo
	compute   []gpucore.ComputePipelineCreateInfo
	shaders   int
	pipelines int
	srbs      int
	caches    int
	linked    int
}

var _ gpucore.Device = (*Device)(nil)

// New creates a device.
func New(opts Options) *Device {
	return &Device{opts: opts}
}

// Backend returns the emulated backend.
func (d *Device) Backend() gpucore.Backend { return d.opts.Backend }

// Features returns the emulated features.
func (d *Device) Features() gpucore.Features { return d.opts.Features }

// FailPipelines makes every following pipeline creation fail with err.
// Nil restores normal operation.
func (d *Device) FailPipelines(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failErr = err
}

// CreateShader reflects the WGSL source of a single stage.
func (d *Device) CreateShader(ci *gpucore.ShaderCreateInfo) (gpucore.ShaderHandle, error) {
	if err := d.checkStage(ci.Stage); err != nil {
		return nil, err
	}
	var refl *gpucore.ShaderReflection
	switch ci.Stage {
	case gpucore.ShaderStageVertex, gpucore.ShaderStagePixel, gpucore.ShaderStageCompute:
		r, err := wgsl.Reflect(ci.Source, ci.Stage, ci.EntryPoint)
		if err != nil {
			return nil, fmt.Errorf("headless: %s: %w", ci.Name, err)
		}
		refl = r
	default:
		// Geometry and tessellation stages have no WGSL form; the source is
		// only scanned for resources.
		res, err := wgsl.Resources(ci.Source, ci.Stage)
		if err != nil {
			return nil, fmt.Errorf("headless: %s: %w", ci.Name, err)
		}
		refl = &gpucore.ShaderReflection{
			Stage:      ci.Stage,
			EntryPoint: ci.EntryPoint,
			Resources:  res,
		}
	}

	d.mu.Lock()
	d.shaders++
	d.mu.Unlock()
	return &shaderHandle{dev: d, name: ci.Name, stage: ci.Stage, refl: refl}, nil
}

func (d *Device) checkStage(stage gpucore.ShaderStage) error {
	switch stage {
	case gpucore.ShaderStageGeometry:
		if !d.opts.Features.GeometryShaders {
			return fmt.Errorf("%w: %s", ErrUnsupportedStage, stage)
		}
	case gpucore.ShaderStageHull, gpucore.ShaderStageDomain:
		if !d.opts.Features.Tessellation {
			return fmt.Errorf("%w: %s", ErrUnsupportedStage, stage)
		}
	}
	return nil
}

// CreateGraphicsPipeline validates ci, runs the link callback on link-time
// reflection backends and records a copy of the final create info.
func (d *Device) CreateGraphicsPipeline(ci *gpucore.GraphicsPipelineCreateInfo) (gpucore.Pipeline, error) {
	if err := d.injectedFailure(); err != nil {
		return nil, err
	}
	if ci.VS == nil || ci.PS == nil {
		return nil, ErrMissingStage
	}
	if ci.PrimitiveTopology == gpucore.TopologyUndefined {
		return nil, ErrUndefinedTopology
	}
	if ci.NumRenderTargets > gpucore.MaxRenderTargets {
		return nil, fmt.Errorf("%w: %d", ErrTooManyRenderTargs, ci.NumRenderTargets)
	}

	stages := make([]*shaderHandle, 0, 5)
	for _, sh := range ci.Shaders() {
		h, err := d.own(sh)
		if err != nil {
			return nil, err
		}
		stages = append(stages, h)
	}

	program := link(stages)
	if ci.OnProgramLinked != nil {
		d.mu.Lock()
		d.linked++
		d.mu.Unlock()
		if err := ci.OnProgramLinked(program); err != nil {
			return nil, fmt.Errorf("headless: %s: program linked: %w", ci.Name, err)
		}
	}
	for i, el := range ci.InputLayout {
		if el.InputIndex == gpucore.UnassignedInput {
			return nil, fmt.Errorf("%w: element %d", ErrUnassignedInput, i)
		}
	}

	rec := *ci
	rec.InputLayout = append([]gpucore.LayoutElement(nil), ci.InputLayout...)
	rec.ImmutableSamplers = append([]gpucore.ImmutableSampler(nil), ci.ImmutableSamplers...)
	rec.OnProgramLinked = nil

	d.mu.Lock()
	d.graphics = append(d.graphics, rec)
	d.pipelines++
	d.mu.Unlock()
	recordPipeline(ci.Cache, ci.Name)

	slogger().Debug("headless: graphics pipeline created", "name", ci.Name, "layout", len(rec.InputLayout), "samplers", len(rec.ImmutableSamplers))
	return &pipeline{dev: d, name: ci.Name, resources: program.resources}, nil
}

// CreateComputePipeline validates and records ci.
func (d *Device) CreateComputePipeline(ci *gpucore.ComputePipelineCreateInfo) (gpucore.Pipeline, error) {
	if err := d.injectedFailure(); err != nil {
		return nil, err
	}
	if ci.CS == nil {
		return nil, ErrMissingStage
	}
	h, err := d.own(ci.CS)
	if err != nil {
		return nil, err
	}
	program := link([]*shaderHandle{h})
	if ci.OnProgramLinked != nil {
		d.mu.Lock()
		d.linked++
		d.mu.Unlock()
		if err := ci.OnProgramLinked(program); err != nil {
			return nil, fmt.Errorf("headless: %s: program linked: %w", ci.Name, err)
		}
	}

	rec := *ci
	rec.ImmutableSamplers = append([]gpucore.ImmutableSampler(nil), ci.ImmutableSamplers...)
	rec.OnProgramLinked = nil

	d.mu.Lock()
	d.compute = append(d.compute, rec)
	d.pipelines++
	d.mu.Unlock()
	recordPipeline(ci.Cache, ci.Name)

	slogger().Debug("headless: compute pipeline created", "name", ci.Name)
	return &pipeline{dev: d, name: ci.Name, resources: program.resources}, nil
}

func (d *Device) injectedFailure() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.failErr
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

// Stats are live object counts of a Device.
type Stats struct {
	Shaders   int
	Pipelines int
	Bindings  int
	Caches    int
	// Links counts OnProgramLinked invocations.
	Links int
}

// Stats returns live object counts.
func (d *Device) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Stats{
		Shaders:   d.shaders,
		Pipelines: d.pipelines,
		Bindings:  d.srbs,
		Caches:    d.caches,
		Links:     d.linked,
	}
}

// GraphicsCreateInfos returns copies of every graphics create info that
// produced a pipeline, oldest first.
func (d *Device) GraphicsCreateInfos() []gpucore.GraphicsPipelineCreateInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]gpucore.GraphicsPipelineCreateInfo(nil), d.graphics...)
}

// ComputeCreateInfos returns copies of every compute create info that
// produced a pipeline, oldest first.
func (d *Device) ComputeCreateInfos() []gpucore.ComputePipelineCreateInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]gpucore.ComputePipelineCreateInfo(nil), d.compute...)
}

// CachedPipelines returns the sorted pipeline names recorded in pc, or nil
// if pc was not created by a headless device.
func CachedPipelines(pc gpucore.PipelineCache) []string {
	if c, ok := pc.(*pipelineCache); ok {
		return c.Names()
	}
	return nil
}
