package wgpu

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"sync/atomic"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/pso/gpucore"
	"github.com/gogpu/pso/internal/wgsl"
)

type shaderHandle struct {
	dev      *Device
	name     string
	stage    gpucore.ShaderStage
	refl     *gpucore.ShaderReflection
	module   hal.ShaderModule
	srcHash  uint64
	released atomic.Bool
}

func (s *shaderHandle) Name() string                           { return s.name }
func (s *shaderHandle) Stage() gpucore.ShaderStage             { return s.stage }
func (s *shaderHandle) Reflection() *gpucore.ShaderReflection { return s.refl }

func (s *shaderHandle) Release() {
	if s.released.Swap(true) {
		return
	}
	s.dev.hal.DestroyShaderModule(s.module)
	s.dev.count(func(st *Stats) { st.Shaders-- })
}

// CreateShader reflects the WGSL source and creates a shader module. Only
// vertex, pixel and compute stages exist in WebGPU.
func (d *Device) CreateShader(ci *gpucore.ShaderCreateInfo) (gpucore.ShaderHandle, error) {
	if err := d.checkAlive(); err != nil {
		return nil, err
	}
	switch ci.Stage {
	case gpucore.ShaderStageVertex, gpucore.ShaderStagePixel, gpucore.ShaderStageCompute:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedStage, ci.Stage)
	}

	refl, err := wgsl.Reflect(ci.Source, ci.Stage, ci.EntryPoint)
	if err != nil {
		return nil, fmt.Errorf("wgpu: %s: %w", ci.Name, err)
	}

	src := hal.ShaderSource{WGSL: ci.Source}
	if d.opts.SPIRV {
		words, err := d.compileSPIRV(ci.Source)
		if err != nil {
			return nil, fmt.Errorf("wgpu: %s: %w", ci.Name, err)
		}
		src = hal.ShaderSource{SPIRV: words}
	}

	module, err := d.hal.CreateShaderModule(&hal.ShaderModuleDescriptor{Label: ci.Name, Source: src})
	if err != nil {
		return nil, fmt.Errorf("wgpu: %s: create shader module: %w", ci.Name, err)
	}
	d.count(func(s *Stats) { s.Shaders++ })

	slogger().Debug("wgpu: shader created", "name", ci.Name, "stage", ci.Stage.String(), "entry", refl.EntryPoint, "spirv", d.opts.SPIRV)
	return &shaderHandle{
		dev:     d,
		name:    ci.Name,
		stage:   ci.Stage,
		refl:    refl,
		module:  module,
		srcHash: sourceHash(ci.Source),
	}, nil
}

// compileSPIRV compiles source with naga. Results are shared by every
// shader with the same source.
func (d *Device) compileSPIRV(source string) ([]uint32, error) {
	return d.spirv.GetOrCreate(sourceHash(source), func() ([]uint32, error) {
		code, err := naga.Compile(source)
		if err != nil {
			return nil, fmt.Errorf("naga: %w", err)
		}
		if len(code)%4 != 0 {
			return nil, fmt.Errorf("naga: SPIR-V size %d is not a multiple of 4", len(code))
		}
		words := make([]uint32, len(code)/4)
		for i := range words {
			words[i] = binary.LittleEndian.Uint32(code[i*4:])
		}
		d.count(func(s *Stats) { s.Compiles++ })
		return words, nil
	})
}

func sourceHash(source string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(source))
	return h.Sum64()
}
