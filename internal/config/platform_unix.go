//go:build unix

package config

import "golang.org/x/sys/unix"

func uname() (osName string, machine string, err error) {
	var u unix.Utsname
	if err = unix.Uname(&u); err != nil {
		return "", "", err
	}
	return unix.ByteSliceToString(u.Sysname[:]), unix.ByteSliceToString(u.Machine[:]), nil
}
