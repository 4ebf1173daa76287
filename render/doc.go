// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render provides the render device that pipeline objects are built
// against.
//
// A [Device] wraps a backend [gpucore.Device] and tracks every GPU-resource
// holder registered with it. Device loss and restoration are broadcast to
// those holders:
//
//	dev := render.NewDevice(gpu)
//	dev.Register(obj)  // obj implements DeviceObject
//	dev.Lose()         // obj.Invalidate()
//	dev.Restore()      // obj.Restore(), lowest RestorePriority first
//
// # Key Principle
//
// The device is RECEIVED from the host application, it is not created here.
// Hosts built on gpucontext may attach their provider with [WithHost] so
// backends can reach the shared device and queue.
package render
