//go:build unix

package flock

import (
	"errors"

	"golang.org/x/sys/unix"
)

func processIsRunning(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
