package ops

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hpungsan/chatctx/internal/errors"
)

// ExtractFilename expands a filename template.
// Supported placeholders: {index} (one-based), {id} (sanitized), {ext}.
func ExtractFilename(template, ext string, index int, id string) string {
	r := strings.NewReplacer(
		"{index}", strconv.Itoa(index),
		"{id}", SanitizeForFilename(id),
		"{ext}", ext,
	)
	return r.Replace(template)
}

// writeFileAtomic writes data to dest via a temp file in the same directory,
// then replaces dest in one step so readers never see a partial extract.
// The directory must already exist.
func writeFileAtomic(dest string, data []byte) error {
	// Refuse to replace a symlink
	if info, err := os.Lstat(dest); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("destination is a symlink")
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return fmt.Errorf("failed to generate temp file name: %w", err)
	}
	tempPath := dest + "." + hex.EncodeToString(randBytes) + ".tmp"

	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	if err != nil {
		return err
	}

	// Clean up temp file on failure (an existing dest is preserved)
	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := file.Write(data); err != nil {
		return err
	}
	if err := file.Sync(); err != nil {
		return err
	}

	// Close before replace (required on Windows; fine elsewhere).
	if err := file.Close(); err != nil {
		return err
	}
	file = nil

	if err := replaceFile(tempPath, dest); err != nil {
		return err
	}

	success = true
	return nil
}

// extractPath joins dir and a rendered filename.
// The name must stay a single path element inside dir.
func extractPath(dir, template, ext string, index int, id string) (string, error) {
	name := ExtractFilename(template, ext, index, id)
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return "", errors.NewInvalidRequest(fmt.Sprintf("extract filename %q escapes the output directory", name))
	}
	return filepath.Join(dir, name), nil
}
