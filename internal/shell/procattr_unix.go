//go:build unix

package shell

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

func processGroupAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

// killProcessGroup kills the process and every child it spawned, so that a
// timed out su does not leave svc or am running behind it.
func killProcessGroup(process *os.Process) error {
	if process == nil {
		return nil
	}
	if err := unix.Kill(-process.Pid, unix.SIGKILL); err != nil {
		return process.Kill()
	}
	return nil
}
