package server

import (
	"path/filepath"
	"strings"
)

// normalizeBasePath coerces a mount prefix into "" or "/prefix" form so
// route registration never produces double or trailing slashes.
func normalizeBasePath(bp string) string {
	bp = strings.Trim(strings.TrimSpace(bp), "/")
	if bp == "" {
		return ""
	}
	return "/" + bp
}

// safeScopePath reports whether p is usable as a scope or workdir argument:
// absolute and already in clean form, so it cannot smuggle ".." segments
// into artifact paths. Empty means unset and is left to the manager to
// default.
func safeScopePath(p string) bool {
	if p == "" {
		return true
	}
	if !filepath.IsAbs(p) {
		return false
	}
	clean := filepath.Clean(p)
	// A single trailing separator is tolerated; anything else Clean would
	// rewrite is rejected rather than silently reinterpreted.
	return clean == p || clean+string(filepath.Separator) == p
}
