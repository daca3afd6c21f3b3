package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/chatctx/internal/errors"
)

// ResolveOutputDir validates an output directory and returns its absolute form.
// It checks:
// 1. Path traversal (.. sequences)
// 2. The directory itself is not a symlink
// 3. The path is not an existing regular file
//
// The directory may not exist yet; it is created once before writes start.
func ResolveOutputDir(dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", errors.NewInvalidRequest("output directory is required")
	}

	if containsTraversal(dir) {
		return "", errors.NewInvalidRequest("output directory must not contain directory traversal (..)")
	}

	absDir, err := filepath.Abs(filepath.Clean(dir))
	if err != nil {
		return "", errors.NewInvalidRequest(fmt.Sprintf("invalid output directory: %v", err))
	}

	info, err := os.Lstat(absDir)
	if err != nil {
		if os.IsNotExist(err) {
			return absDir, nil
		}
		return "", errors.NewInternal(err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return "", errors.NewInvalidRequest("output directory must not be a symlink")
	}
	if !info.IsDir() {
		return "", errors.NewInvalidRequest(fmt.Sprintf("output path is not a directory: %s", absDir))
	}

	return absDir, nil
}

// ResolveSourcePath cleans a source document path and checks that it exists.
func ResolveSourcePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.NewInvalidRequest("path is required")
	}
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}
	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewFileNotFound(path)
		}
		return "", errors.NewInternal(err)
	}
	if info.IsDir() {
		return "", errors.NewInvalidRequest(fmt.Sprintf("path is a directory: %s", path))
	}
	return absPath, nil
}

// containsTraversal checks if path contains ".." directory traversal.
func containsTraversal(path string) bool {
	for _, part := range strings.Split(path, string(filepath.Separator)) {
		if part == ".." {
			return true
		}
	}
	// Also check for forward slashes on all platforms (e.g., user input)
	if filepath.Separator != '/' {
		for _, part := range strings.Split(path, "/") {
			if part == ".." {
				return true
			}
		}
	}
	return false
}

// SanitizeForFilename sanitizes a record id for safe use in a filename.
// Removes/replaces characters that could be used for path traversal or injection.
func SanitizeForFilename(s string) string {
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, "\\", "-")
	s = strings.ReplaceAll(s, "..", "-")

	// Drop control characters
	var result strings.Builder
	for _, r := range s {
		if r >= 32 && r != 127 {
			result.WriteRune(r)
		}
	}
	s = result.String()

	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	s = strings.Trim(s, "-")

	if s == "" {
		s = "unnamed"
	}
	return s
}
