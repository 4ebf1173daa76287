// Package cache provides a generic LRU cache for backend objects that own
// GPU resources.
//
// Evicted values are handed to an optional eviction function so the owner
// can destroy the underlying resource:
//
//	samplers := cache.New[SamplerKey, hal.Sampler](64, func(_ SamplerKey, s hal.Sampler) {
//	    device.DestroySampler(s)
//	})
//	s, err := samplers.GetOrCreate(key, func() (hal.Sampler, error) {
//	    return device.CreateSampler(desc)
//	})
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache
