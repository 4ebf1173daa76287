package pso

import "github.com/gogpu/pso/internal/affinity"

// SamplerFallback selects what happens when a sampled shader resource has
// no matching override in the descriptor.
type SamplerFallback uint8

const (
	// SamplerFallbackWarn substitutes the bilinear default and logs a
	// warning.
	SamplerFallbackWarn SamplerFallback = iota

	// SamplerFallbackError fails the pipeline build.
	SamplerFallbackError
)

// String returns the policy name.
func (p SamplerFallback) String() string {
	if p == SamplerFallbackError {
		return "error"
	}
	return "warn"
}

// CacheOption configures a Cache during creation.
// Use functional options to customize Cache behavior.
//
// Example:
//
//	// Default: no thread check, default samplers with a warning
//	cache, err := pso.NewCache(dev)
//
//	// Strict: owning thread checks and hard sampler failures
//	cache, err := pso.NewCache(dev,
//	    pso.WithLockedThreadAffinity(),
//	    pso.WithSamplerFallback(pso.SamplerFallbackError))
type CacheOption func(*cacheOptions)

// cacheOptions holds optional configuration for Cache creation.
type cacheOptions struct {
	onOwner  func() bool
	fallback SamplerFallback
}

// defaultCacheOptions returns the default cache options.
func defaultCacheOptions() cacheOptions {
	return cacheOptions{
		onOwner:  func() bool { return true },
		fallback: SamplerFallbackWarn,
	}
}

// WithOwnerCheck sets the predicate that reports whether the caller runs on
// the thread owning the graphics context. Releases that fail the check are
// deferred to DrainReleaseQueue.
//
// Example:
//
//	var onRenderThread atomic.Bool
//	cache, err := pso.NewCache(dev, pso.WithOwnerCheck(onRenderThread.Load))
func WithOwnerCheck(fn func() bool) CacheOption {
	return func(o *cacheOptions) {
		if fn != nil {
			o.onOwner = fn
		}
	}
}

// WithLockedThreadAffinity binds the cache to the operating system thread
// that calls NewCache. The calling goroutine must be locked to its thread
// with runtime.LockOSThread, as GPU applications do for their render loop.
// On platforms without thread identifiers every thread counts as the owner.
func WithLockedThreadAffinity() CacheOption {
	return func(o *cacheOptions) {
		owner := affinity.NewOwner()
		o.onOwner = owner.IsCurrent
	}
}

// WithSamplerFallback sets the policy for sampled resources without an
// override. The default is SamplerFallbackWarn.
func WithSamplerFallback(p SamplerFallback) CacheOption {
	return func(o *cacheOptions) {
		o.fallback = p
	}
}
