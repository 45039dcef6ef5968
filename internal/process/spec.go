package process

import (
	"fmt"
	"os/exec"
	"strings"
)

// Spec describes a process to be launched and tracked.
type Spec struct {
	Name    string   `json:"name"`
	Command string   `json:"command"`            // opaque shell command string; stored for display, never re-parsed
	WorkDir string   `json:"work_dir,omitempty"` // defaults to the scope root
	Scope   string   `json:"scope"`              // absolute project directory partitioning visibility
	Env     []string `json:"env,omitempty"`      // optional extra KEY=VALUE pairs appended to the inherited env
}

// Validate rejects specs whose name cannot become a filesystem artifact or
// whose command is empty.
func (s *Spec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("spec.name required")
	}
	if !IsSafeName(s.Name) {
		return fmt.Errorf("invalid name %q: allowed [A-Za-z0-9._-], no path separators", s.Name)
	}
	if strings.TrimSpace(s.Command) == "" {
		return fmt.Errorf("spec.command required")
	}
	return nil
}

// IsSafeName reports whether name is usable as an artifact filename stem.
func IsSafeName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

// BuildCommand constructs the *exec.Cmd for the spec's command string. The
// command is always run under a shell: the string is operator-authored and
// may use pipes, redirection, or &&-chains. The absolute shell path avoids a
// PATH dependency when Env is overridden.
func (s *Spec) BuildCommand() *exec.Cmd {
	// #nosec G204 -- running operator-supplied commands is the whole point
	return exec.Command("/bin/sh", "-c", s.Command)
}
