//go:build windows

package execx

import "os/exec"

func setProcessGroup(cmd *exec.Cmd) {
	// Job objects would be the full answer; killing the direct child is the
	// best os/exec offers without importing x/sys windows job APIs.
}

func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
}

func platformShell() (string, string) {
	return "cmd", "/C"
}
