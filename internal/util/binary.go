// Package util provides shared utility functions.
package util

import (
	"fmt"
	"os"
	"os/exec"
)

// FindBinary searches for an executable binary by name.
// Search order:
//  1. explicitPath (if non-empty, typically from persisted encoder settings)
//  2. Environment variable (if envVar is non-empty and set)
//  3. ./name (current directory, useful for development)
//  4. name on PATH (via exec.LookPath)
//
// Each candidate is verified to exist and be executable before being
// returned. Returns the path to the binary or an error if not found.
func FindBinary(name, explicitPath, envVar string) (string, error) {
	if explicitPath != "" {
		if IsExecutable(explicitPath) {
			return explicitPath, nil
		}
		return "", fmt.Errorf("configured binary %s not executable", explicitPath)
	}

	if envVar != "" {
		if envPath := os.Getenv(envVar); envPath != "" {
			if IsExecutable(envPath) {
				return envPath, nil
			}
		}
	}

	localPath := "./" + name
	if IsExecutable(localPath) {
		return localPath, nil
	}

	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("binary %s not found", name)
}

// IsExecutable checks if a file exists and is executable by the current user.
func IsExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	return info.Mode()&0111 != 0
}
