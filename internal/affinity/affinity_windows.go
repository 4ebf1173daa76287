//go:build windows

package affinity

import "golang.org/x/sys/windows"

func currentThread() ThreadID {
	return ThreadID(windows.GetCurrentThreadId())
}
