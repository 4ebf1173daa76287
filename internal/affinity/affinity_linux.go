//go:build linux

package affinity

import "golang.org/x/sys/unix"

func currentThread() ThreadID {
	return ThreadID(unix.Gettid())
}
