//go:build windows

package config

import "runtime"

// Windows has no uname(2). The upstream only publishes builds for MinGW-style environments so we
// report the kernel name such a shell would.
func uname() (osName string, machine string, err error) {
	return "MINGW64_NT", runtime.GOARCH, nil
}
