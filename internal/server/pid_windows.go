//go:build windows

package server

import "os"

// FindProcess already fails for processes that do not exist.
func signalZero(*os.Process) error {
	return nil
}
