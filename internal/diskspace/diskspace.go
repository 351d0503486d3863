// Package diskspace checks free space before downloads are written.
package diskspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/objectdesk/objectdesk/internal/cloud/storage"
	"github.com/objectdesk/objectdesk/internal/models"
)

// InsufficientSpaceError reports a destination without room for a download.
type InsufficientSpaceError struct {
	Path           string
	RequiredBytes  int64
	AvailableBytes int64
}

func (e *InsufficientSpaceError) Error() string {
	return fmt.Sprintf("insufficient disk space for %s: need %s, have %s available",
		e.Path, models.HumanSize(e.RequiredBytes), models.HumanSize(e.AvailableBytes))
}

// Is lets errors.Is match storage.ErrInsufficientSpace.
func (e *InsufficientSpaceError) Is(target error) bool {
	return target == storage.ErrInsufficientSpace
}

// CheckAvailableSpace verifies that the filesystem holding targetPath has
// requiredBytes * safetyMargin free. The target itself need not exist; the
// nearest existing ancestor is checked. Filesystems that cannot be queried
// pass.
func CheckAvailableSpace(targetPath string, requiredBytes int64, safetyMargin float64) error {
	available, ok := availableBytes(existingDir(targetPath))
	if !ok {
		return nil
	}

	required := int64(float64(requiredBytes) * safetyMargin)
	if available < required {
		return &InsufficientSpaceError{
			Path:           targetPath,
			RequiredBytes:  required,
			AvailableBytes: available,
		}
	}
	return nil
}

// GetAvailableSpace returns free bytes on the filesystem containing path,
// or 0 when it cannot be determined.
func GetAvailableSpace(path string) int64 {
	available, _ := availableBytes(existingDir(path))
	return available
}

// IsInsufficientSpaceError checks if an error is an InsufficientSpaceError.
func IsInsufficientSpaceError(err error) bool {
	var target *InsufficientSpaceError
	return errors.As(err, &target)
}

// existingDir walks up from filepath.Dir(path) to the first directory that exists.
func existingDir(path string) string {
	dir := filepath.Dir(path)
	for {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
