package affinity

import (
	"runtime"
	"testing"
)

func TestOwnerSameThread(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	o := NewOwner()
	if !o.IsCurrent() {
		t.Error("IsCurrent() = false on the creating thread")
	}
}

func TestOwnerOtherThread(t *testing.T) {
	if !Supported() {
		t.Skip("thread identity not available on this platform")
	}
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	o := NewOwner()
	done := make(chan bool)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		done <- o.IsCurrent()
	}()
	if <-done {
		t.Error("IsCurrent() = true on a different locked thread")
	}
}

func TestZeroOwner(t *testing.T) {
	var o Owner
	if !o.IsCurrent() {
		t.Error("zero Owner should accept every thread")
	}
}
