// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shader

import (
	"errors"
	"testing"

	"github.com/gogpu/pso/backend/headless"
	"github.com/gogpu/pso/gpucore"
	"github.com/gogpu/pso/render"
)

const testVS = `
@vertex
fn vs_main(@location(0) position: vec3<f32>, @location(2) uv1: vec2<f32>) -> @builtin(position) vec4<f32> {
    return vec4<f32>(position, 1.0);
}

@vertex
fn vs_shadow(@location(0) position: vec3<f32>) -> @builtin(position) vec4<f32> {
    return vec4<f32>(position, 1.0);
}
`

const testPS = `
@fragment
fn main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0);
}
`

func newDevice(t *testing.T) (*headless.Device, *render.Device) {
	t.Helper()
	gpu := headless.New(headless.Options{Backend: gpucore.BackendVulkan, Features: gpucore.Features{SeparablePrograms: true}})
	return gpu, render.NewDevice(gpu)
}

func TestNew(t *testing.T) {
	gpu, dev := newDevice(t)
	s, err := New(dev, gpucore.ShaderStageVertex, "lit.vs", testVS)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if s.Name() != "lit.vs" || s.Stage() != gpucore.ShaderStageVertex {
		t.Errorf("Name/Stage = %q/%v", s.Name(), s.Stage())
	}
	if s.Handle() == nil {
		t.Fatal("Handle() = nil")
	}
	if gpu.Stats().Shaders != 1 || dev.NumObjects() != 1 {
		t.Errorf("shaders = %d, device objects = %d; want 1, 1", gpu.Stats().Shaders, dev.NumObjects())
	}

	attrs := s.VertexAttributes()
	if len(attrs) != 2 {
		t.Fatalf("len(VertexAttributes()) = %d, want 2", len(attrs))
	}
	if attrs[1].Semantic != gpucore.SemanticTexCoord || attrs[1].SemanticIndex != 1 || attrs[1].InputIndex != 2 {
		t.Errorf("attrs[1] = %+v, want TEXCOORD1 at location 2", attrs[1])
	}
	if got := s.String(); got != "lit.vs (Vertex)" {
		t.Errorf("String() = %q", got)
	}
}

func TestNewErrors(t *testing.T) {
	_, dev := newDevice(t)

	if _, err := New(nil, gpucore.ShaderStageVertex, "x", testVS); !errors.Is(err, ErrNilDevice) {
		t.Errorf("New(nil) err = %v, want ErrNilDevice", err)
	}
	if _, err := New(dev, gpucore.ShaderStageVertex, "empty", "fn f() {}"); err == nil {
		t.Error("New without entry point succeeded")
	}
	if dev.NumObjects() != 0 {
		t.Errorf("failed shaders registered: %d", dev.NumObjects())
	}
}

func TestWithEntryPoint(t *testing.T) {
	_, dev := newDevice(t)
	s, err := New(dev, gpucore.ShaderStageVertex, "shadow.vs", testVS, WithEntryPoint("vs_shadow"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if n := len(s.VertexAttributes()); n != 1 {
		t.Errorf("len(VertexAttributes()) = %d, want 1 for vs_shadow", n)
	}
	if got := s.Handle().Reflection().EntryPoint; got != "vs_shadow" {
		t.Errorf("EntryPoint = %q, want vs_shadow", got)
	}
}

func TestHashIdentity(t *testing.T) {
	_, dev := newDevice(t)
	a, _ := New(dev, gpucore.ShaderStagePixel, "a.ps", testPS)
	b, _ := New(dev, gpucore.ShaderStagePixel, "a.ps", testPS)

	if a.Hash() != a.Hash() {
		t.Error("Hash() is not stable")
	}
	if a.Hash() == b.Hash() {
		t.Error("distinct shaders with equal source share a hash")
	}
}

func TestContentHash(t *testing.T) {
	_, dev := newDevice(t)
	base, err := New(dev, gpucore.ShaderStageVertex, "lit.vs", testVS)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tests := []struct {
		name  string
		stage gpucore.ShaderStage
		src   string
		opts  []Option
		same  bool
	}{
		{"same source", gpucore.ShaderStageVertex, testVS, nil, true},
		{"other entry", gpucore.ShaderStageVertex, testVS, []Option{WithEntryPoint("vs_shadow")}, false},
		{"other source", gpucore.ShaderStageVertex, testVS + "\n", nil, false},
		{"other stage", gpucore.ShaderStagePixel, testPS, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(dev, tt.stage, "other", tt.src, tt.opts...)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if s.Hash() == base.Hash() {
				t.Error("distinct shaders share an identity hash")
			}
			if got := s.ContentHash() == base.ContentHash(); got != tt.same {
				t.Errorf("ContentHash equal = %v, want %v", got, tt.same)
			}
		})
	}
}

func TestReload(t *testing.T) {
	gpu, dev := newDevice(t)
	s, _ := New(dev, gpucore.ShaderStagePixel, "lit.ps", testPS)
	old := s.Handle()

	var notified []*Shader
	recv := new(int)
	s.SubscribeReloaded(recv, func(sh *Shader) { notified = append(notified, sh) })

	if err := s.Reload(testPS); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if s.Handle() == old {
		t.Error("Reload kept the previous stage")
	}
	if len(notified) != 1 || notified[0] != s {
		t.Errorf("notified = %v, want [s]", notified)
	}
	if gpu.Stats().Shaders != 1 {
		t.Errorf("shaders = %d, want 1 (previous released)", gpu.Stats().Shaders)
	}

	// A failed reload keeps the current stage and notifies nobody.
	cur := s.Handle()
	if err := s.Reload("not wgsl"); err == nil {
		t.Fatal("Reload of invalid source succeeded")
	}
	if s.Handle() != cur || s.Source() != testPS || len(notified) != 1 {
		t.Error("failed reload changed the shader")
	}

	s.UnsubscribeReloaded(recv)
	_ = s.Reload(testPS)
	if len(notified) != 1 {
		t.Error("unsubscribed receiver was notified")
	}
}

func TestInvalidateRestore(t *testing.T) {
	gpu, dev := newDevice(t)
	s, _ := New(dev, gpucore.ShaderStageVertex, "lit.vs", testVS)

	s.Invalidate()
	s.Invalidate()
	if s.Handle() != nil || gpu.Stats().Shaders != 0 {
		t.Fatal("Invalidate kept the stage")
	}
	s.Restore()
	if s.Handle() == nil || gpu.Stats().Shaders != 1 {
		t.Fatal("Restore did not recompile")
	}
	s.Restore()
	if gpu.Stats().Shaders != 1 {
		t.Error("Restore of a valid shader recompiled")
	}
	if s.RestorePriority() != render.PriorityShader {
		t.Errorf("RestorePriority() = %d", s.RestorePriority())
	}
}

func TestDestroy(t *testing.T) {
	gpu, dev := newDevice(t)
	s, _ := New(dev, gpucore.ShaderStagePixel, "lit.ps", testPS)

	s.Destroy()
	if dev.NumObjects() != 0 || gpu.Stats().Shaders != 0 {
		t.Errorf("objects = %d, shaders = %d after Destroy", dev.NumObjects(), gpu.Stats().Shaders)
	}
}

func TestDeviceLoss(t *testing.T) {
	_, dev := newDevice(t)
	s, _ := New(dev, gpucore.ShaderStagePixel, "lit.ps", testPS)

	dev.Lose()
	if s.Handle() != nil {
		t.Fatal("stage survived device loss")
	}
	dev.Restore()
	if s.Handle() == nil {
		t.Fatal("stage not restored")
	}
}
