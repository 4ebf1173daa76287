// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package shader provides WGSL shader objects compiled through a render
// device.
//
// A Shader owns one compiled stage. It survives device loss (it is a
// render.DeviceObject) and can be reloaded with new source, notifying
// subscribers such as pipeline states that depend on it.
package shader

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/gogpu/pso/gpucore"
	"github.com/gogpu/pso/internal/signal"
	"github.com/gogpu/pso/internal/wgsl"
	"github.com/gogpu/pso/render"
)

// ErrNilDevice is returned by New without a device.
var ErrNilDevice = errors.New("shader: device is nil")

var nextID atomic.Uint64

// Option configures a Shader.
type Option func(*Shader)

// WithEntryPoint selects the entry point when the source declares several
// of the same stage.
func WithEntryPoint(name string) Option {
	return func(s *Shader) {
		s.entryPoint = name
	}
}

// Shader is a compiled WGSL stage.
type Shader struct {
	dev        *render.Device
	stage      gpucore.ShaderStage
	name       string
	entryPoint string
	id         uint64

	mu     sync.Mutex
	source string
	handle gpucore.ShaderHandle
	attrs  []gpucore.VertexShaderAttribute

	reloaded signal.Signal[*Shader]
}

// New compiles source for stage and registers the shader with dev.
func New(dev *render.Device, stage gpucore.ShaderStage, name, source string, opts ...Option) (*Shader, error) {
	if dev == nil {
		return nil, ErrNilDevice
	}
	s := &Shader{
		dev:    dev,
		stage:  stage,
		name:   name,
		source: source,
		id:     nextID.Add(1),
	}
	for _, opt := range opts {
		opt(s)
	}

	handle, attrs, err := s.compile(source)
	if err != nil {
		return nil, err
	}
	s.handle = handle
	s.attrs = attrs
	dev.Register(s)
	return s, nil
}

func (s *Shader) compile(source string) (gpucore.ShaderHandle, []gpucore.VertexShaderAttribute, error) {
	var attrs []gpucore.VertexShaderAttribute
	if s.stage == gpucore.ShaderStageVertex {
		refl, err := wgsl.Reflect(source, s.stage, s.entryPoint)
		if err != nil {
			return nil, nil, fmt.Errorf("shader: %s: %w", s.name, err)
		}
		attrs = refl.VertexAttributes
	}

	handle, err := s.dev.GPU().CreateShader(&gpucore.ShaderCreateInfo{
		Name:       s.name,
		Stage:      s.stage,
		Source:     source,
		EntryPoint: s.entryPoint,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("shader: compile %s: %w", s.name, err)
	}
	slogger().Debug("shader: compiled", "name", s.name, "stage", s.stage)
	return handle, attrs, nil
}

// Name returns the debug name.
func (s *Shader) Name() string { return s.name }

// Stage returns the pipeline stage.
func (s *Shader) Stage() gpucore.ShaderStage { return s.stage }

// Hash returns an identity hash, stable for the lifetime of the shader and
// distinct between shader objects.
func (s *Shader) Hash() uint64 {
	// splitmix64 finalizer spreads sequential ids.
	z := s.id + 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// ContentHash hashes the stage, entry point and current source. Unlike Hash
// it is equal for equal shaders created in different processes.
func (s *Shader) ContentHash() uint64 {
	h := fnv.New64a()
	_, _ = h.Write(binary.LittleEndian.AppendUint32(nil, uint32(s.stage)))
	_, _ = h.Write([]byte(s.entryPoint))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(s.Source()))
	return h.Sum64()
}

// Source returns the current WGSL source.
func (s *Shader) Source() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

// Handle returns the compiled stage, or nil while invalidated.
func (s *Shader) Handle() gpucore.ShaderHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}

// VertexAttributes returns the vertex inputs declared by a vertex shader.
// Input indices are the WGSL @location values.
func (s *Shader) VertexAttributes() []gpucore.VertexShaderAttribute {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attrs
}

// Reload recompiles the shader from source. On success the previous stage
// is released and reload receivers are notified; on failure the shader keeps
// its previous stage.
func (s *Shader) Reload(source string) error {
	handle, attrs, err := s.compile(source)
	if err != nil {
		slogger().Error("shader: reload failed", "name", s.name, "err", err)
		return err
	}

	s.mu.Lock()
	old := s.handle
	s.handle = handle
	s.attrs = attrs
	s.source = source
	s.mu.Unlock()

	if old != nil {
		old.Release()
	}
	s.reloaded.Emit(s)
	return nil
}

// SubscribeReloaded connects fn for recv. Connecting again replaces fn.
func (s *Shader) SubscribeReloaded(recv any, fn func(*Shader)) {
	s.reloaded.Connect(recv, fn)
}

// UnsubscribeReloaded disconnects recv.
func (s *Shader) UnsubscribeReloaded(recv any) {
	s.reloaded.Disconnect(recv)
}

// Invalidate releases the compiled stage.
func (s *Shader) Invalidate() {
	s.mu.Lock()
	old := s.handle
	s.handle = nil
	s.mu.Unlock()

	if old != nil {
		old.Release()
	}
}

// Restore recompiles the current source if the stage was released.
func (s *Shader) Restore() {
	s.mu.Lock()
	if s.handle != nil {
		s.mu.Unlock()
		return
	}
	source := s.source
	s.mu.Unlock()

	handle, attrs, err := s.compile(source)
	if err != nil {
		slogger().Error("shader: restore failed", "name", s.name, "err", err)
		return
	}

	s.mu.Lock()
	s.handle = handle
	s.attrs = attrs
	s.mu.Unlock()
}

// RestorePriority restores shaders after pipeline caches and before
// pipeline states.
func (s *Shader) RestorePriority() int { return render.PriorityShader }

// Destroy releases the stage and unregisters from the device.
func (s *Shader) Destroy() {
	s.Invalidate()
	s.dev.Unregister(s)
}

// String returns the debug name and stage.
func (s *Shader) String() string {
	return fmt.Sprintf("%s (%s)", s.name, s.stage)
}
