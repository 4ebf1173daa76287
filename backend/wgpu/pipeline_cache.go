package wgpu

import (
	"encoding/binary"
	"hash"
	"hash/fnv"
	"math"
	"sort"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/pso/gpucore"
)

// =============================================================================
// Descriptor hashing
// =============================================================================

// hashRenderPipeline hashes the parts of a render pipeline descriptor that
// survive a process restart: shader sources and entry points, vertex
// layout, fixed function state and target formats.
func hashRenderPipeline(vs, ps *shaderHandle, desc *hal.RenderPipelineDescriptor) uint64 {
	h := fnv.New64a()

	hashWriteUint64(h, vs.srcHash)
	hashWriteString(h, desc.Vertex.EntryPoint)
	hashWriteUint64(h, ps.srcHash)
	if desc.Fragment != nil {
		hashWriteString(h, desc.Fragment.EntryPoint)
	}

	hashWriteUint32(h, uint32(len(desc.Vertex.Buffers)))
	for i := range desc.Vertex.Buffers {
		b := &desc.Vertex.Buffers[i]
		hashWriteUint64(h, b.ArrayStride)
		hashWriteUint32(h, uint32(b.StepMode))
		hashWriteUint32(h, uint32(len(b.Attributes)))
		for _, a := range b.Attributes {
			hashWriteUint32(h, a.ShaderLocation)
			hashWriteUint32(h, uint32(a.Format))
			hashWriteUint64(h, a.Offset)
		}
	}

	hashWriteUint32(h, uint32(desc.Primitive.Topology))
	hashWriteUint32(h, uint32(desc.Primitive.FrontFace))
	hashWriteUint32(h, uint32(desc.Primitive.CullMode))
	hashWriteBool(h, desc.Primitive.UnclippedDepth)

	if ds := desc.DepthStencil; ds != nil {
		hashWriteBool(h, true)
		hashWriteUint32(h, uint32(ds.Format))
		hashWriteBool(h, ds.DepthWriteEnabled)
		hashWriteUint32(h, uint32(ds.DepthCompare))
		for _, f := range [...]hal.StencilFaceState{ds.StencilFront, ds.StencilBack} {
			hashWriteUint32(h, uint32(f.Compare))
			hashWriteUint32(h, uint32(f.FailOp)|uint32(f.DepthFailOp)<<8|uint32(f.PassOp)<<16)
		}
		hashWriteUint32(h, ds.StencilReadMask)
		hashWriteUint32(h, ds.StencilWriteMask)
		hashWriteUint32(h, uint32(ds.DepthBias))
		hashWriteUint32(h, math.Float32bits(ds.DepthBiasSlopeScale))
	} else {
		hashWriteBool(h, false)
	}

	hashWriteUint32(h, desc.Multisample.Count)
	hashWriteBool(h, desc.Multisample.AlphaToCoverageEnabled)

	if desc.Fragment != nil {
		hashWriteUint32(h, uint32(len(desc.Fragment.Targets)))
		for _, t := range desc.Fragment.Targets {
			hashWriteUint32(h, uint32(t.Format))
			hashWriteUint32(h, uint32(t.WriteMask))
			hashBlend(h, t.Blend)
		}
	}
	return h.Sum64()
}

func hashBlend(h hash.Hash64, b *gputypes.BlendState) {
	if b == nil {
		hashWriteBool(h, false)
		return
	}
	hashWriteBool(h, true)
	for _, c := range [...]gputypes.BlendComponent{b.Color, b.Alpha} {
		hashWriteUint32(h, uint32(c.SrcFactor))
		hashWriteUint32(h, uint32(c.DstFactor))
		hashWriteUint32(h, uint32(c.Operation))
	}
}

func hashComputePipeline(cs *shaderHandle, desc *hal.ComputePipelineDescriptor) uint64 {
	h := fnv.New64a()
	hashWriteUint64(h, cs.srcHash)
	hashWriteString(h, desc.Compute.EntryPoint)
	return h.Sum64()
}

func hashWriteUint32(h hash.Hash64, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, _ = h.Write(buf[:])
}

func hashWriteUint64(h hash.Hash64, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, _ = h.Write(buf[:])
}

func hashWriteString(h hash.Hash64, s string) {
	hashWriteUint32(h, uint32(len(s)))
	_, _ = h.Write([]byte(s))
}

func hashWriteBool(h hash.Hash64, v bool) {
	if v {
		_, _ = h.Write([]byte{1})
	} else {
		_, _ = h.Write([]byte{0})
	}
}

// =============================================================================
// Pipeline cache
// =============================================================================

// Blob layout: magic, version, entry count, then sorted entries of name
// length, name and descriptor hash.
const (
	cacheMagic   = 0x4f535057 // "WPSO" little-endian
	cacheVersion = 1
)

// pipelineCache remembers the descriptor hash of every pipeline created
// with it. WebGPU exposes no driver cache, so the blob records which
// pipelines a previous run built and whether their descriptors still match.
type pipelineCache struct {
	dev *Device

	mu       sync.Mutex
	entries  map[string]uint64
	hits     uint64
	misses   uint64
	released bool
}

// CreatePipelineCache restores the entries recorded in data. Data with the
// wrong magic or version, or truncated data, yields an empty cache.
func (d *Device) CreatePipelineCache(data []byte) (gpucore.PipelineCache, error) {
	if err := d.checkAlive(); err != nil {
		return nil, err
	}
	c := &pipelineCache{dev: d, entries: make(map[string]uint64)}
	if len(data) > 0 {
		if entries, ok := decodeCache(data); ok {
			c.entries = entries
		} else {
			slogger().Warn("wgpu: ignoring incompatible pipeline cache data", "bytes", len(data))
		}
	}
	d.count(func(s *Stats) { s.Caches++ })
	return c, nil
}

// recordPipeline records name in pc when pc was created by a wgpu device.
func recordPipeline(pc gpucore.PipelineCache, name string, descHash uint64) {
	if c, ok := pc.(*pipelineCache); ok {
		c.record(name, descHash)
	}
}

// record counts a hit when the cache already knew name with the same
// descriptor.
func (c *pipelineCache) record(name string, descHash uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.entries[name]; ok && old == descHash {
		c.hits++
		return
	}
	c.misses++
	c.entries[name] = descHash
}

func (c *pipelineCache) names() []string {
	out := make([]string, 0, len(c.entries))
	for n := range c.entries {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (c *pipelineCache) Data() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := c.names()
	buf := binary.LittleEndian.AppendUint32(nil, cacheMagic)
	buf = binary.LittleEndian.AppendUint32(buf, cacheVersion)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(names)))
	for _, n := range names {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(n)))
		buf = append(buf, n...)
		buf = binary.LittleEndian.AppendUint64(buf, c.entries[n])
	}
	return buf, nil
}

func (c *pipelineCache) Release() {
	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return
	}
	c.released = true
	c.mu.Unlock()
	c.dev.count(func(s *Stats) { s.Caches-- })
}

func decodeCache(data []byte) (map[string]uint64, bool) {
	if len(data) < 12 ||
		binary.LittleEndian.Uint32(data) != cacheMagic ||
		binary.LittleEndian.Uint32(data[4:]) != cacheVersion {
		return nil, false
	}
	n := binary.LittleEndian.Uint32(data[8:])
	data = data[12:]
	entries := make(map[string]uint64, min(n, 1024))
	for range n {
		if len(data) < 4 {
			return nil, false
		}
		l := binary.LittleEndian.Uint32(data)
		data = data[4:]
		if uint64(len(data)) < uint64(l)+8 {
			return nil, false
		}
		entries[string(data[:l])] = binary.LittleEndian.Uint64(data[l:])
		data = data[l+8:]
	}
	return entries, true
}

// CacheStats reports how many pipelines created with pc matched an entry
// restored from or recorded earlier in pc. ok is false if pc was not created
// by a wgpu device.
func CacheStats(pc gpucore.PipelineCache) (hits, misses uint64, ok bool) {
	c, ok := pc.(*pipelineCache)
	if !ok {
		return 0, 0, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, true
}

// CachedPipelines returns the sorted pipeline names recorded in pc, or nil
// if pc was not created by a wgpu device.
func CachedPipelines(pc gpucore.PipelineCache) []string {
	c, ok := pc.(*pipelineCache)
	if !ok {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.names()
}
