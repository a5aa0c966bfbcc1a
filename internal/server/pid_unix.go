//go:build !windows

package server

import (
	"os"
	"syscall"
)

func signalZero(proc *os.Process) error {
	return proc.Signal(syscall.Signal(0))
}
