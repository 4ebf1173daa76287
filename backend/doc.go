// Package backend is the registry of pipeline device backends.
//
// Backend packages register a factory from init(); importing them for side
// effects makes them available:
//
//	import (
//		"github.com/gogpu/pso/backend"
//		_ "github.com/gogpu/pso/backend/headless"
//		_ "github.com/gogpu/pso/backend/wgpu"
//	)
//
//	name, gpu, err := backend.Default() // wgpu first, headless as fallback
//
// Or request a backend by name:
//
//	gpu, err := backend.Open(backend.BackendHeadless)
package backend
