package backend

import (
	"errors"

	"github.com/gogpu/pso/gpucore"
)

// Backend names.
const (
	// BackendWGPU is the github.com/gogpu/wgpu/hal device (backend/wgpu).
	BackendWGPU = "wgpu"

	// BackendHeadless is the in-memory device (backend/headless).
	BackendHeadless = "headless"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not
	// registered or could not open a device.
	ErrBackendNotAvailable = errors.New("backend: not available")
)

// Factory opens a device. It is called once per Open.
type Factory func() (gpucore.Device, error)
