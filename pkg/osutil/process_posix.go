//go:build unix

package osutil

import (
	"errors"
	"os/exec"
	"syscall"
	"time"
)

// GracefulShutdownDelay is how long a cancelled process group gets to exit
// after SIGTERM before it is sent SIGKILL.
const GracefulShutdownDelay = 2 * time.Second

// SetProcessGroup configures the command to run in its own process group so
// the whole tree can be signalled at once.
func SetProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// SetProcessGroupKill makes context cancellation terminate the entire process
// group: SIGTERM first, SIGKILL once GracefulShutdownDelay has passed.
// Must be called after SetProcessGroup and before cmd.Start().
func SetProcessGroupKill(cmd *exec.Cmd) {
	cmd.Cancel = func() error {
		pgid := -cmd.Process.Pid
		if err := syscall.Kill(pgid, syscall.SIGTERM); err != nil {
			if errors.Is(err, syscall.ESRCH) {
				return nil
			}
			return err
		}

		go func() {
			time.Sleep(GracefulShutdownDelay)
			if syscall.Kill(pgid, 0) == nil {
				_ = syscall.Kill(pgid, syscall.SIGKILL)
			}
		}()
		return nil
	}
}
