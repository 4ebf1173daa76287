// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"sort"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/pso/gpucore"
	"github.com/gogpu/pso/internal/signal"
)

// DeviceHandle provides GPU device access from the host application.
//
// DeviceHandle is an alias for gpucontext.DeviceProvider so hosts built on
// the gpucontext ecosystem can hand their provider to a Device unchanged.
type DeviceHandle = gpucontext.DeviceProvider

// Restore priorities. Objects with lower priority restore first.
const (
	PriorityCache    = 0
	PriorityShader   = 10
	PriorityPipeline = 20
)

// DeviceObject holds GPU resources that must be released on device loss and
// recreated on restore.
type DeviceObject interface {
	// Invalidate releases GPU resources. Must be safe to call repeatedly.
	Invalidate()

	// Restore recreates GPU resources. Must be a no-op when valid.
	Restore()

	// RestorePriority orders restoration across objects.
	RestorePriority() int
}

// Option configures a Device.
type Option func(*deviceOptions)

type deviceOptions struct {
	host DeviceHandle
}

// WithHost attaches the gpucontext provider of the host application.
func WithHost(h DeviceHandle) Option {
	return func(o *deviceOptions) {
		o.host = h
	}
}

// Device wraps a backend device and tracks registered device objects.
//
// Device is safe for concurrent registration; Lose and Restore are expected
// to run on the thread that owns the graphics context.
type Device struct {
	gpu  gpucore.Device
	host DeviceHandle

	mu      sync.Mutex
	objects []DeviceObject
	lost    bool

	lostSig     signal.Signal[*Device]
	restoredSig signal.Signal[*Device]
}

// NewDevice wraps gpu.
func NewDevice(gpu gpucore.Device, opts ...Option) *Device {
	var o deviceOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.host == nil {
		o.host = NullDeviceHandle{}
	}
	return &Device{gpu: gpu, host: o.host}
}

// GPU returns the backend device.
func (d *Device) GPU() gpucore.Device { return d.gpu }

// Host returns the host provider, NullDeviceHandle if none was attached.
func (d *Device) Host() DeviceHandle { return d.host }

// Backend returns the backend identifier.
func (d *Device) Backend() gpucore.Backend { return d.gpu.Backend() }

// Features returns optional device capabilities.
func (d *Device) Features() gpucore.Features { return d.gpu.Features() }

// IsLost reports whether the device is currently lost.
func (d *Device) IsLost() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lost
}

// Register adds obj to the loss/restore broadcast. Registering twice is a
// no-op.
func (d *Device) Register(obj DeviceObject) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, o := range d.objects {
		if o == obj {
			return
		}
	}
	d.objects = append(d.objects, obj)
}

// Unregister removes obj.
func (d *Device) Unregister(obj DeviceObject) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, o := range d.objects {
		if o == obj {
			d.objects = append(d.objects[:i], d.objects[i+1:]...)
			return
		}
	}
}

// NumObjects returns the number of registered device objects.
func (d *Device) NumObjects() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.objects)
}

// Lose invalidates every registered object in registration order and
// notifies OnDeviceLost receivers.
func (d *Device) Lose() {
	d.mu.Lock()
	if d.lost {
		d.mu.Unlock()
		return
	}
	d.lost = true
	objects := append([]DeviceObject(nil), d.objects...)
	d.mu.Unlock()

	slogger().Warn("render: device lost", "backend", d.gpu.Backend(), "objects", len(objects))
	for _, obj := range objects {
		obj.Invalidate()
	}
	d.lostSig.Emit(d)
}

// Restore restores every registered object, lowest RestorePriority first,
// and notifies OnDeviceRestored receivers.
func (d *Device) Restore() {
	d.mu.Lock()
	d.lost = false
	objects := append([]DeviceObject(nil), d.objects...)
	d.mu.Unlock()

	sort.SliceStable(objects, func(i, j int) bool {
		return objects[i].RestorePriority() < objects[j].RestorePriority()
	})
	for _, obj := range objects {
		obj.Restore()
	}
	slogger().Info("render: device restored", "backend", d.gpu.Backend(), "objects", len(objects))
	d.restoredSig.Emit(d)
}

// OnDeviceLost connects fn for recv. Connecting again replaces fn.
func (d *Device) OnDeviceLost(recv any, fn func(*Device)) {
	d.lostSig.Connect(recv, fn)
}

// OnDeviceRestored connects fn for recv. Connecting again replaces fn.
func (d *Device) OnDeviceRestored(recv any, fn func(*Device)) {
	d.restoredSig.Connect(recv, fn)
}

// Disconnect removes the loss and restore receivers of recv.
func (d *Device) Disconnect(recv any) {
	d.lostSig.Disconnect(recv)
	d.restoredSig.Disconnect(recv)
}

// NullDeviceHandle is a DeviceHandle that provides nil implementations.
// Used when the host does not share a gpucontext device.
type NullDeviceHandle struct{}

// Device returns nil for the null device.
func (NullDeviceHandle) Device() gpucontext.Device { return nil }

// Queue returns nil for the null device.
func (NullDeviceHandle) Queue() gpucontext.Queue { return nil }

// Adapter returns nil for the null device.
func (NullDeviceHandle) Adapter() gpucontext.Adapter { return nil }

// SurfaceFormat returns undefined format for the null device.
func (NullDeviceHandle) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

// AdapterInfo reports an unknown adapter for the null device.
func (NullDeviceHandle) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Type: gpucontext.AdapterTypeUnknown}
}

var _ DeviceHandle = NullDeviceHandle{}
