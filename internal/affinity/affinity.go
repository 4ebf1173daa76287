// Package affinity identifies operating system threads so that objects bound
// to a graphics context can check they are used from the owning thread.
//
// Thread identity is only stable for goroutines locked with
// runtime.LockOSThread, which GPU applications do from an init function of
// their main package.
package affinity

// ThreadID is an operating system thread identifier. Zero means unknown.
type ThreadID uint64

// Current returns the identifier of the calling thread, or zero when the
// platform does not expose one.
func Current() ThreadID {
	return currentThread()
}

// Supported reports whether Current returns real identifiers.
func Supported() bool {
	return currentThread() != 0
}

// Owner records the thread that created it.
type Owner struct {
	id ThreadID
}

// NewOwner binds an Owner to the calling thread.
func NewOwner() Owner {
	return Owner{id: Current()}
}

// ID returns the owning thread.
func (o Owner) ID() ThreadID {
	return o.id
}

// IsCurrent reports whether the calling thread is the owner. It is always
// true when thread identity is unavailable.
func (o Owner) IsCurrent() bool {
	if o.id == 0 {
		return true
	}
	return Current() == o.id
}
