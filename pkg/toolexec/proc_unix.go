//go:build unix

package toolexec

import (
	"os/exec"
	"syscall"
)

// configureProcess puts the child in its own process group so that a
// timeout kills everything it spawned.
func configureProcess(c *exec.Cmd) {
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error {
		if c.Process == nil {
			return nil
		}
		return syscall.Kill(-c.Process.Pid, syscall.SIGKILL)
	}
}
