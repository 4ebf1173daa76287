package pso

import (
	"slices"
	"sync"

	"github.com/gogpu/pso/gpucore"
	"github.com/gogpu/pso/render"
)

// Cache deduplicates pipeline states by descriptor and owns the backend
// binary pipeline cache.
//
// The Cache holds no reference to the states it returns. An entry exists
// while some caller holds its state; releasing the last reference removes
// it, and the next lookup of the same descriptor builds a new state.
//
// Thread Safety:
// Lookups are safe for concurrent use. Backend objects are created and
// released under the cache lock, on the thread that owns the graphics
// context.
type Cache struct {
	dev  *render.Device
	opts cacheOptions

	// mu protects the entry map, the release queue and the reference counts
	// of every state.
	mu     sync.Mutex
	states map[uint64][]*PipelineState
	queue  []*PipelineState
	hits   uint64
	misses uint64

	// hmu protects the backend cache handle and its blob.
	hmu         sync.Mutex
	handle      gpucore.PipelineCache
	data        []byte
	initialized bool
}

// NewCache creates a cache for dev and registers it for device loss and
// restore.
func NewCache(dev *render.Device, opts ...CacheOption) (*Cache, error) {
	if dev == nil {
		return nil, ErrNilDevice
	}
	o := defaultCacheOptions()
	for _, opt := range opts {
		opt(&o)
	}
	c := &Cache{
		dev:    dev,
		opts:   o,
		states: make(map[uint64][]*PipelineState),
	}
	propagateLogger(dev.GPU())
	dev.Register(c)
	return c, nil
}

// Device returns the render device of the cache.
func (c *Cache) Device() *render.Device { return c.dev }

// Initialize creates the backend pipeline cache from a persisted blob.
// Nil or empty data starts a cold cache; data the backend cannot interpret
// is ignored by the backend.
func (c *Cache) Initialize(data []byte) error {
	c.hmu.Lock()
	defer c.hmu.Unlock()

	if c.handle != nil {
		c.handle.Release()
		c.handle = nil
	}
	c.data = slices.Clone(data)
	c.initialized = true
	return c.createHandleLocked()
}

func (c *Cache) createHandleLocked() error {
	h, err := c.dev.GPU().CreatePipelineCache(c.data)
	if err != nil {
		slogger().Error("pso: failed to create GPU pipeline cache", "err", err)
		return err
	}
	c.handle = h
	slogger().Debug("pso: GPU pipeline cache created", "bytes", len(c.data))
	return nil
}

// Handle returns the backend pipeline cache, or nil before Initialize and
// while the device is lost.
func (c *Cache) Handle() gpucore.PipelineCache {
	c.hmu.Lock()
	defer c.hmu.Unlock()
	return c.handle
}

// CachedData serializes the backend cache for persistence. The blob is
// taken on demand and is not kept in sync afterwards. Without a backend
// cache it returns nil.
func (c *Cache) CachedData() ([]byte, error) {
	c.hmu.Lock()
	defer c.hmu.Unlock()
	return c.snapshotLocked()
}

func (c *Cache) snapshotLocked() ([]byte, error) {
	if c.handle == nil {
		return nil, nil
	}
	data, err := c.handle.Data()
	if err != nil {
		slogger().Error("pso: failed to read GPU pipeline cache", "err", err)
		return nil, err
	}
	c.data = data
	return slices.Clone(data), nil
}

// GetPipelineState returns the state for desc with one new reference,
// building it on a miss. A state that failed to build is returned as well;
// check PipelineState.Handle before use. It returns nil for a zero desc.
func (c *Cache) GetPipelineState(desc PipelineStateDesc) *PipelineState {
	if !desc.IsValid() {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, st := range c.states[desc.hash] {
		if !st.desc.Equal(desc) {
			continue
		}
		if st.refs == 0 {
			// Released off the owning thread and not yet drained.
			slogger().Debug("pso: pipeline state resurrected", "name", st.name)
		}
		st.refs++
		c.hits++
		return st
	}

	c.misses++
	st := newPipelineState(c, desc)
	c.states[desc.hash] = append(c.states[desc.hash], st)
	return st
}

// GetGraphicsPipelineState is GetPipelineState for a graphics descriptor.
// It returns nil when the vertex or pixel shader is missing.
func (c *Cache) GetGraphicsPipelineState(d GraphicsPipelineStateDesc) *PipelineState {
	if !d.IsInitialized() {
		return nil
	}
	return c.GetPipelineState(NewGraphicsDesc(d))
}

// GetComputePipelineState is GetPipelineState for a compute descriptor.
// It returns nil when the compute shader is missing.
func (c *Cache) GetComputePipelineState(d ComputePipelineStateDesc) *PipelineState {
	if !d.IsInitialized() {
		return nil
	}
	return c.GetPipelineState(NewComputeDesc(d))
}

// releasePipelineState removes the entry of desc. Called with c.mu held.
// Exactly one entry must match.
func (c *Cache) releasePipelineState(desc PipelineStateDesc) {
	bucket := c.states[desc.hash]
	n := len(bucket)
	bucket = slices.DeleteFunc(bucket, func(st *PipelineState) bool { return st.desc.Equal(desc) })
	if removed := n - len(bucket); removed != 1 {
		slogger().Error("pso: unexpected pipeline state release",
			"name", desc.DebugName(), "entries", removed, "err", ErrCacheInconsistent)
	}
	if len(bucket) == 0 {
		delete(c.states, desc.hash)
	} else {
		c.states[desc.hash] = bucket
	}
}

// DrainReleaseQueue destroys the states released off the owning thread. It
// must be called on the owning thread, typically once per frame. States
// looked up again since their release are kept. It returns the number of
// destroyed states.
func (c *Cache) DrainReleaseQueue() int {
	c.mu.Lock()
	if !c.opts.onOwner() {
		c.mu.Unlock()
		slogger().Warn("pso: release queue drained off the owning thread")
		return 0
	}
	queue := c.queue
	c.queue = nil
	dead := queue[:0]
	for _, st := range queue {
		st.queued = false
		if st.refs > 0 || st.destroyed {
			continue
		}
		c.releasePipelineState(st.desc)
		st.destroyed = true
		dead = append(dead, st)
	}
	c.mu.Unlock()

	for _, st := range dead {
		st.destroy()
	}
	return len(dead)
}

// Len returns the number of cache entries, including states waiting in the
// release queue.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, bucket := range c.states {
		n += len(bucket)
	}
	return n
}

// CacheStats are lookup statistics of a Cache.
type CacheStats struct {
	Entries int
	Queued  int
	Hits    uint64
	Misses  uint64
}

// HitRate returns hits / (hits + misses), or 0 without lookups.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Stats returns lookup statistics.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := CacheStats{Queued: len(c.queue), Hits: c.hits, Misses: c.misses}
	for _, bucket := range c.states {
		s.Entries += len(bucket)
	}
	return s
}

// Invalidate snapshots the backend cache into its blob and releases it.
func (c *Cache) Invalidate() {
	c.hmu.Lock()
	defer c.hmu.Unlock()
	if c.handle == nil {
		return
	}
	_, _ = c.snapshotLocked()
	c.handle.Release()
	c.handle = nil
}

// Restore recreates the backend cache from the last blob. It does nothing
// before Initialize or while the cache is valid.
func (c *Cache) Restore() {
	c.hmu.Lock()
	defer c.hmu.Unlock()
	if c.handle != nil || !c.initialized {
		return
	}
	_ = c.createHandleLocked()
}

// RestorePriority restores caches before shaders and pipeline states.
func (c *Cache) RestorePriority() int { return render.PriorityCache }

// Destroy releases the backend cache and detaches the cache from the
// device. States obtained from the cache keep working without a backend
// cache.
func (c *Cache) Destroy() {
	c.Invalidate()
	c.hmu.Lock()
	c.initialized = false
	c.hmu.Unlock()
	c.dev.Unregister(c)
}
