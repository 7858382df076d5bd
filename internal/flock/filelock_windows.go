//go:build windows

package flock

import (
	"golang.org/x/sys/windows"
)

// Exit code reported for processes that have not terminated.
const stillActive = 259

func processIsRunning(pid int) bool {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return false
	}
	defer windows.CloseHandle(h)

	var code uint32
	if err = windows.GetExitCodeProcess(h, &code); err != nil {
		return false
	}
	return code == stillActive
}
