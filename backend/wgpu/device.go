package wgpu

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/pso/backend"
	"github.com/gogpu/pso/gpucore"
	"github.com/gogpu/pso/internal/cache"
)

// Errors returned by the device.
var (
	ErrNilDevice         = errors.New("wgpu: hal device is nil")
	ErrNoAdapter         = errors.New("wgpu: no adapter available")
	ErrNoHalDevice       = errors.New("wgpu: provider does not expose a hal.Device")
	ErrDestroyed         = errors.New("wgpu: device destroyed")
	ErrMissingStage      = errors.New("wgpu: required shader stage is nil")
	ErrForeignShader     = errors.New("wgpu: shader was not created by this device")
	ErrReleasedShader    = errors.New("wgpu: shader was released")
	ErrUnsupportedStage  = errors.New("wgpu: shader stage has no WebGPU equivalent")
	ErrUndefinedTopology = errors.New("wgpu: primitive topology is undefined")
	ErrUnassignedInput   = errors.New("wgpu: layout element has no input slot")
	ErrVertexFormat      = errors.New("wgpu: layout element has no WebGPU vertex format")
	ErrTooManyTargets    = errors.New("wgpu: too many render targets")
)

func init() {
	backend.Register(backend.BackendWGPU, func() (gpucore.Device, error) {
		d, err := Open(Options{DetectBackend: true})
		if err != nil {
			return nil, err
		}
		return d, nil
	})
}

// Options configures a Device.
type Options struct {
	// Backend is the reported API family.
	Backend gpucore.Backend

	// DetectBackend makes Open replace Backend with the family of the
	// opened adapter.
	DetectBackend bool

	// SPIRV compiles WGSL to SPIR-V with naga before creating shader
	// modules. Backends without a WGSL front end need it.
	SPIRV bool

	// SPIRVCacheSize bounds the number of compiled SPIR-V blobs kept for
	// reuse. Zero means 64.
	SPIRVCacheSize int
}

// Stats are live object counts of a Device.
type Stats struct {
	Shaders   int
	Pipelines int
	Bindings  int
	Samplers  int
	Caches    int
	// Compiles counts naga invocations.
	Compiles int
}

// Device implements gpucore.Device over a hal.Device. It is safe for
// concurrent use.
//
// WebGPU has no immutable samplers. Samplers requested by a create info
// are created once per distinct description and preset on the matching
// variables of every resource binding of the pipeline.
type Device struct {
	hal      hal.Device
	queue    hal.Queue
	instance hal.Instance
	owned    bool
	opts     Options
	surface  gputypes.TextureFormat

	samplers *cache.Cache[gpucore.SamplerDesc, hal.Sampler]
	spirv    *cache.Cache[uint64, []uint32]

	mu        sync.Mutex
	destroyed bool
	stats     Stats
}

var _ gpucore.Device = (*Device)(nil)

// New wraps an open hal device. The caller keeps ownership of device;
// Destroy releases only the objects created through the wrapper.
func New(device hal.Device, opts Options) (*Device, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	if opts.SPIRVCacheSize == 0 {
		opts.SPIRVCacheSize = 64
	}
	d := &Device{hal: device, opts: opts}
	d.samplers = cache.New[gpucore.SamplerDesc, hal.Sampler](0, func(_ gpucore.SamplerDesc, s hal.Sampler) {
		d.hal.DestroySampler(s)
	})
	d.spirv = cache.New[uint64, []uint32](opts.SPIRVCacheSize, nil)
	return d, nil
}

// Open selects the best registered hal backend, opens its first adapter and
// wraps the resulting device. The device and instance are destroyed by
// Destroy.
func Open(opts Options) (*Device, error) {
	b, err := hal.SelectBestBackend()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoAdapter, err)
	}
	instance, err := b.CreateInstance(&hal.InstanceDescriptor{Backends: gputypes.BackendsAll})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	exposed := adapters[0]
	open, err := exposed.Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: open adapter %q: %w", exposed.Info.Name, err)
	}

	if opts.DetectBackend {
		opts.Backend = backendFor(exposed.Info.Backend)
	}
	d, err := New(open.Device, opts)
	if err != nil {
		open.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	d.queue = open.Queue
	d.instance = instance
	d.owned = true
	slogger().Info("wgpu: device opened", "adapter", exposed.Info.Name, "backend", exposed.Info.Backend.String())
	return d, nil
}

// NewFromProvider wraps the device of a shared GPU context. The provider
// device must be a hal.Device, or the provider must expose one through
// HalDevice() any.
func NewFromProvider(provider gpucontext.DeviceProvider, opts Options) (*Device, error) {
	if provider == nil {
		return nil, ErrNoHalDevice
	}
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}

	device, _ := provider.Device().(hal.Device)
	queue, _ := provider.Queue().(hal.Queue)
	if hp, ok := provider.(halProvider); ok && device == nil {
		device, _ = hp.HalDevice().(hal.Device)
		queue, _ = hp.HalQueue().(hal.Queue)
	}
	if device == nil {
		return nil, ErrNoHalDevice
	}

	d, err := New(device, opts)
	if err != nil {
		return nil, err
	}
	d.queue = queue
	d.surface = provider.SurfaceFormat()
	slogger().Info("wgpu: using shared device", "adapter", provider.AdapterInfo().Name)
	return d, nil
}

// backendFor maps a hal backend onto the API family reported to pipeline
// states. Every hal backend consumes WGSL reflection per stage and takes
// depth bias in depth buffer units, so OpenGL is reported as Vulkan.
func backendFor(b gputypes.Backend) gpucore.Backend {
	switch b {
	case gputypes.BackendMetal:
		return gpucore.BackendMetal
	case gputypes.BackendDX12:
		return gpucore.BackendD3D12
	case gputypes.BackendEmpty:
		return gpucore.BackendHeadless
	default:
		return gpucore.BackendVulkan
	}
}

// Backend returns the reported API family.
func (d *Device) Backend() gpucore.Backend { return d.opts.Backend }

// Features reports separable programs only; WebGPU has neither geometry
// nor tessellation stages.
func (d *Device) Features() gpucore.Features {
	return gpucore.Features{SeparablePrograms: true}
}

// HalDevice returns the wrapped device.
func (d *Device) HalDevice() hal.Device { return d.hal }

// HalQueue returns the queue of the wrapped device, or nil if New was
// given a bare device.
func (d *Device) HalQueue() hal.Queue { return d.queue }

// SurfaceFormat returns the provider surface format, or
// gputypes.TextureFormatUndefined.
func (d *Device) SurfaceFormat() gputypes.TextureFormat { return d.surface }

// SetLogger sets the package logger.
func (d *Device) SetLogger(l *slog.Logger) { setLogger(l) }

// Stats returns live object counts.
func (d *Device) Stats() Stats {
	samplers := d.samplers.Len()
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.stats
	s.Samplers = samplers
	return s
}

// Destroy releases the shared samplers. Opened devices are destroyed with
// their instance. Pipelines and shaders still alive must not be used
// afterwards.
func (d *Device) Destroy() {
	d.mu.Lock()
	if d.destroyed {
		d.mu.Unlock()
		return
	}
	d.destroyed = true
	d.mu.Unlock()

	d.samplers.Clear()
	d.spirv.Clear()
	if d.owned {
		d.hal.Destroy()
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
}

func (d *Device) checkAlive() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroyed {
		return ErrDestroyed
	}
	return nil
}

func (d *Device) count(f func(s *Stats)) {
	d.mu.Lock()
	f(&d.stats)
	d.mu.Unlock()
}
