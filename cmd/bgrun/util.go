package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// resolveScope returns the absolute project directory partitioning
// visibility. Empty means the current working directory.
func resolveScope(scope string) (string, error) {
	if scope == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve working directory: %w", err)
		}
		return wd, nil
	}
	abs, err := filepath.Abs(scope)
	if err != nil {
		return "", fmt.Errorf("resolve scope %q: %w", scope, err)
	}
	return abs, nil
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}
