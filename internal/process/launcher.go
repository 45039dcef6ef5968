package process

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// Launch spawns the spec's command detached from the controller and captures
// stdout+stderr into one log file at logPath, truncating any prior content.
// It returns the pid of the spawned shell.
//
// baseEnv, when non-empty, replaces the inherited environment; spec.Env
// entries are appended last and therefore win. With an empty baseEnv the
// child inherits the controller's environment.
//
// The child starts in a new session (setsid), so it survives controller exit
// and restarts; the controller never waits on it. The log file descriptor is
// inherited by the child and closed on our side, so the child remains the
// single writer.
func Launch(spec Spec, logPath string, baseEnv []string) (int, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0o750); err != nil {
		return 0, fmt.Errorf("create log dir: %w", err)
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return 0, fmt.Errorf("open log file: %w", err)
	}

	cmd := spec.BuildCommand()
	cmd.Dir = spec.WorkDir
	if cmd.Dir == "" {
		cmd.Dir = spec.Scope
	}
	switch {
	case len(baseEnv) > 0:
		cmd.Env = append(append([]string(nil), baseEnv...), spec.Env...)
	case len(spec.Env) > 0:
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	// New session: detached from our process group and controlling terminal.
	// The child becomes its own session and group leader, so Terminate can
	// signal the whole tree via the negative pid.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		_ = logFile.Close()
		return 0, err
	}
	pid := cmd.Process.Pid
	_ = logFile.Close()
	// We do not track the child; drop the handle so the runtime does not
	// hold it for a Wait that will never come.
	_ = cmd.Process.Release()
	return pid, nil
}

// Terminate sends one SIGTERM to the process group led by pid, best-effort.
// A failed delivery (the process already exited, or we lack permission) is
// deliberately swallowed: stop is a bookkeeping operation and must not fail
// because the OS process is already gone. There is no escalation to SIGKILL
// and no wait for exit.
func Terminate(pid int) {
	if pid <= 0 {
		return
	}
	_ = syscall.Kill(-pid, syscall.SIGTERM)
}
