package store

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

// ScopeID derives a deterministic, filename-safe identifier for an absolute
// project path. A sanitized basename keeps the directory recognizable; the
// hash suffix keeps unrelated projects sharing a basename apart.
func ScopeID(scope string) string {
	clean := filepath.Clean(scope)
	sum := sha256.Sum256([]byte(clean))
	return sanitizeName(filepath.Base(clean)) + "-" + hex.EncodeToString(sum[:])[:12]
}

func sanitizeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := b.String()
	if out == "" {
		out = "scope"
	}
	return out
}

func sameScope(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}

// WithinScope reports whether dir equals scope or lies underneath it.
// Comparison happens at path component boundaries so that "/proj" does not
// claim "/proj-other".
func WithinScope(dir, scope string) bool {
	dir = filepath.Clean(dir)
	scope = filepath.Clean(scope)
	if dir == scope {
		return true
	}
	prefix := scope
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(dir, prefix)
}

// Matches reports whether a record stored under recScope is visible to a
// caller operating in reqScope: the scopes are equal, or the record was
// created at an ancestor of the requesting directory.
func Matches(recScope, reqScope string) bool {
	return WithinScope(reqScope, recScope)
}

// ScopeDir returns the artifact directory for a scope under base.
func ScopeDir(base, scope string) string {
	return filepath.Join(base, ScopeID(scope))
}

// LogFile returns the captured-output path for (scope, name) under base.
// Log placement is always filesystem-based regardless of the record backend.
func LogFile(base, scope, name string) string {
	return filepath.Join(ScopeDir(base, scope), name+".log")
}
