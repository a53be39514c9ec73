package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fpang/civic-certificate/internal/device"
)

// ValidatePhotoPath checks that path is a readable photo file and returns
// its absolute path.
func ValidatePhotoPath(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("photo not found: %s", path)
		}
		return "", fmt.Errorf("failed to access photo: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("photo path is a directory: %s", path)
	}
	if !device.IsPhoto(filepath.Ext(path)) {
		return "", fmt.Errorf("unsupported photo format: %s", filepath.Ext(path))
	}

	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return path, nil
}

// ValidateOutputPath checks that the parent directory of path exists.
func ValidateOutputPath(path string) error {
	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("output directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("output directory %s is not a directory", dir)
	}
	return nil
}
