//go:build !linux && !windows

package affinity

func currentThread() ThreadID {
	return 0
}
