package process

import (
	"strings"
	"testing"
)

func TestSpecValidate(t *testing.T) {
	cases := []struct {
		name string
		spec Spec
		ok   bool
	}{
		{"valid", Spec{Name: "dev-server", Command: "npm run dev"}, true},
		{"dots", Spec{Name: "web.v2", Command: "true"}, true},
		{"empty name", Spec{Command: "true"}, false},
		{"empty command", Spec{Name: "x"}, false},
		{"blank command", Spec{Name: "x", Command: "   "}, false},
		{"path separator", Spec{Name: "a/b", Command: "true"}, false},
		{"traversal", Spec{Name: "..", Command: "true"}, false},
		{"space", Spec{Name: "a b", Command: "true"}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.spec.Validate()
			if c.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !c.ok && err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestBuildCommandAlwaysShell(t *testing.T) {
	s := Spec{Name: "x", Command: "echo hi | wc -l"}
	cmd := s.BuildCommand()
	if !strings.HasSuffix(cmd.Path, "/sh") {
		t.Fatalf("expected shell invocation, got %q", cmd.Path)
	}
	if cmd.Args[len(cmd.Args)-1] != "echo hi | wc -l" {
		t.Fatalf("command string must be passed verbatim, got %q", cmd.Args)
	}
}
