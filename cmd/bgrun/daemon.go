package main

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"syscall"
)

// daemonize re-execs the current invocation in its own session and exits
// the parent. The child runs the same serve command with the daemonize
// flags stripped, so it does not fork a second time.
func daemonize(pidFile, logFile string) error {
	if os.Getppid() == 1 {
		// Already reparented to init.
		return nil
	}

	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	args := stripDaemonFlags(os.Args[1:])
	if pidFile != "" {
		args = append(args, "--pidfile", pidFile)
	}
	if logFile != "" {
		args = append(args, "--logfile", logFile)
	}

	// #nosec G204 -- re-exec of our own binary with filtered args
	cmd := exec.Command(self, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	cmd.Stdin = nil
	if logFile != "" {
		// #nosec G304 -- operator-chosen log destination
		out, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open daemon log: %w", err)
		}
		cmd.Stdout = out
		cmd.Stderr = out
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawn daemon: %w", err)
	}
	if pidFile != "" {
		if err := writePidFile(pidFile, cmd.Process.Pid); err != nil {
			return fmt.Errorf("write pid file: %w", err)
		}
	}
	fmt.Printf("Daemon started with PID %d\n", cmd.Process.Pid)

	os.Exit(0)
	return nil
}

// stripDaemonFlags removes --daemonize, --pidfile and --logfile (with their
// values) from args. The caller re-appends the resolved pid and log files
// so the child picks up the same paths without daemonizing again.
func stripDaemonFlags(args []string) []string {
	var out []string
	skip := false
	for _, a := range args {
		if skip {
			skip = false
			continue
		}
		switch a {
		case "--daemonize":
		case "--pidfile", "--logfile":
			skip = true
		default:
			out = append(out, a)
		}
	}
	return out
}

func writePidFile(path string, pid int) error {
	// #nosec G306 -- pid files are conventionally world-readable
	return os.WriteFile(path, []byte(strconv.Itoa(pid)), 0o644)
}

func removePidFile(path string) error {
	if path == "" {
		return nil
	}
	return os.Remove(path)
}
