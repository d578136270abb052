//go:build !unix

package toolexec

import "os/exec"

func configureProcess(c *exec.Cmd) {}
