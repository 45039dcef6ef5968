package server

import (
	"path/filepath"
	"testing"
)

func TestNormalizeBasePath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/", ""},
		{"api", "/api"},
		{"/api", "/api"},
		{"/api/", "/api"},
		{"/api/v1", "/api/v1"},
		{" api ", "/api"},
	}
	for _, c := range cases {
		if got := normalizeBasePath(c.in); got != c.want {
			t.Fatalf("normalizeBasePath(%q)=%q want %q", c.in, got, c.want)
		}
	}
}

func TestSafeScopePath(t *testing.T) {
	sep := string(filepath.Separator)
	ok := []string{
		"", // unset
		sep,
		filepath.Join(sep, "tmp", "x"),
		filepath.Join(sep, "tmp", "x") + sep, // one trailing separator
	}
	bad := []string{
		"tmp/x",                                // relative
		sep + "tmp" + sep + ".." + sep + "etc", // traversal
		sep + "tmp" + sep + sep + "x",          // un-clean
	}
	for _, p := range ok {
		if !safeScopePath(p) {
			t.Fatalf("expected %q to be accepted", p)
		}
	}
	for _, p := range bad {
		if safeScopePath(p) {
			t.Fatalf("expected %q to be rejected", p)
		}
	}
}
