package playback

import (
	"os/exec"
	"syscall"
)

// detach puts the player in its own process group and has the kernel send
// it SIGTERM if the mirror dies without running Stop.
func detach(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
	cmd.SysProcAttr.Pdeathsig = syscall.SIGTERM
}
