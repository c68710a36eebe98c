//go:build !unix

package pipe

import (
	"errors"
	"os"
	"os/exec"
)

func configureCommand(*exec.Cmd) {}

// terminateProcess has no graceful variant off unix.
func terminateProcess(pid int) error {
	return killProcess(pid)
}

func killProcess(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	if err := proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
