package pso

import (
	"errors"
	"fmt"

	"github.com/gogpu/pso/gpucore"
)

// Errors returned or logged by pso.
var (
	// ErrForeignThreadRelease is returned by PipelineState.Release when the
	// last reference is dropped off the owning thread.
	ErrForeignThreadRelease = errors.New("pso: pipeline state released off the owning thread")

	// ErrCacheInconsistent is logged when releasing a pipeline state does not
	// find exactly one cache entry.
	ErrCacheInconsistent = errors.New("pso: pipeline state cache is inconsistent")

	// ErrIncompleteDesc marks descriptors without their required shaders.
	ErrIncompleteDesc = errors.New("pso: pipeline state descriptor is incomplete")

	// ErrNoDefaultSampler fails a build under SamplerFallbackError when a
	// sampled resource has no override.
	ErrNoDefaultSampler = errors.New("pso: no sampler override for resource")

	// ErrShaderUnavailable fails a build when a referenced shader has no
	// compiled stage.
	ErrShaderUnavailable = errors.New("pso: shader is not compiled")

	// ErrNoPipeline is reported when a backend returns neither a pipeline
	// nor an error.
	ErrNoPipeline = errors.New("pso: backend returned no pipeline")

	// ErrReleased is returned by Release on a state without references.
	ErrReleased = errors.New("pso: pipeline state already released")

	// ErrNilDevice is returned by NewCache without a device.
	ErrNilDevice = errors.New("pso: device is nil")
)

// UnmatchedAttributeError reports a vertex shader input that no element of
// the input layout provides. The pipeline still builds; reads of the input
// return undefined data.
type UnmatchedAttributeError struct {
	Attribute gpucore.VertexShaderAttribute
}

func (e *UnmatchedAttributeError) Error() string {
	return fmt.Sprintf("pso: attribute #%d with semantic %q is not found in the vertex layout",
		e.Attribute.InputIndex, e.Attribute.String())
}
