//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package cli

import (
	"os"

	"golang.org/x/sys/unix"
)

// disableEcho turns terminal echo off and returns the function restoring it.
// It fails when the file is not a terminal.
func disableEcho(file *os.File) (func(), error) {
	fd := int(file.Fd())
	state, err := unix.IoctlGetTermios(fd, getTermiosRequest)
	if err != nil {
		return nil, err
	}
	saved := *state
	silent := saved
	silent.Lflag &^= unix.ECHO
	if err := unix.IoctlSetTermios(fd, setTermiosRequest, &silent); err != nil {
		return nil, err
	}
	return func() {
		_ = unix.IoctlSetTermios(fd, setTermiosRequest, &saved)
	}, nil
}
