package util

import (
	"fmt"
	"os"
	"path/filepath"
)

// ValidateWorkspacePath validates and cleans a workspace root path.
// Returns the cleaned absolute path or an error.
func ValidateWorkspacePath(workspacePath string) (string, error) {
	workspacePath = filepath.Clean(workspacePath)

	info, err := os.Stat(workspacePath)
	if err != nil {
		return "", fmt.Errorf("cannot access path '%s': %w", workspacePath, err)
	}

	if !info.IsDir() {
		return "", fmt.Errorf("path '%s' is not a directory", workspacePath)
	}

	absPath, err := filepath.Abs(workspacePath)
	if err != nil {
		return workspacePath, nil // Return cleaned path if we can't get absolute
	}

	return absPath, nil
}
