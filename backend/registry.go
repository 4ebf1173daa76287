package backend

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gogpu/pso/gpucore"
)

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
	// Priority order for Default (first that opens wins).
	backendPriority = []string{BackendWGPU, BackendHeadless}
)

// Register registers a device factory under name. Typically called from
// init() functions in backend packages. An existing factory of the same
// name is replaced.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = factory
}

// Unregister removes a factory. Useful for tests.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, name)
}

// Available returns the registered backend names in sorted order.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := factories[name]
	return ok
}

// Open opens a device of the named backend.
func Open(name string) (gpucore.Device, error) {
	registryMu.RLock()
	factory, ok := factories[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotAvailable, name)
	}
	dev, err := factory()
	if err != nil {
		return nil, fmt.Errorf("backend: open %q: %w", name, err)
	}
	return dev, nil
}

// Default opens the first backend in priority order that succeeds, then
// any other registered backend. It returns the backend name with the
// device.
func Default() (string, gpucore.Device, error) {
	tried := make(map[string]bool)
	for _, name := range append(backendPriority, Available()...) {
		if tried[name] || !IsRegistered(name) {
			continue
		}
		tried[name] = true
		if dev, err := Open(name); err == nil {
			return name, dev, nil
		}
	}
	return "", nil, ErrBackendNotAvailable
}
