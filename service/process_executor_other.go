//go:build !unix

package service

import "os/exec"

func configureProcessGroup(cmd *exec.Cmd) {}

// killProcessGroup kills only the direct child; process groups are a unix concept
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
