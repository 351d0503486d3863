// Package paths maps object keys to local download paths.
package paths

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/objectdesk/objectdesk/internal/validation"
)

// ErrUnsafeKey is returned for keys that would escape the destination directory.
var ErrUnsafeKey = errors.New("object key escapes destination directory")

// FileForDownload pairs an object with its local destination.
// The CLI and the GUI both plan downloads with this type.
type FileForDownload struct {
	Key       string // Full object key
	Name      string // Last key segment
	LocalPath string // Full local destination path
	Size      int64
}

// LocalPathForKey returns where key lands under destDir when the download
// was rooted at basePrefix. The remainder of the key after basePrefix is
// kept as a relative path, so folder downloads recreate the hierarchy.
func LocalPathForKey(destDir, basePrefix, key string) (string, error) {
	rel := strings.TrimPrefix(key, basePrefix)
	rel = strings.TrimLeft(rel, "/")
	if rel == "" {
		return "", fmt.Errorf("%w: %q", ErrUnsafeKey, key)
	}

	for _, seg := range strings.Split(rel, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrUnsafeKey, key)
		}
	}

	target := filepath.Join(destDir, filepath.FromSlash(rel))
	if err := validation.ValidatePathInDirectory(target, destDir); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsafeKey, err)
	}
	return target, nil
}

// ResolveCollisions ensures all LocalPaths are unique. When several objects
// from different prefixes map to the same local path, each gets a numeric
// suffix before the extension, in input order: "report_1.csv", "report_2.csv".
//
// Returns the modified list (same slice, modified in place) and the number of
// files that were involved in collisions.
func ResolveCollisions(files []FileForDownload) ([]FileForDownload, int) {
	if len(files) == 0 {
		return files, 0
	}

	pathToIndices := make(map[string][]int)
	order := make([]string, 0, len(files))
	for i, f := range files {
		if _, seen := pathToIndices[f.LocalPath]; !seen {
			order = append(order, f.LocalPath)
		}
		pathToIndices[f.LocalPath] = append(pathToIndices[f.LocalPath], i)
	}

	collisionCount := 0
	for _, path := range order {
		indices := pathToIndices[path]
		if len(indices) <= 1 {
			continue
		}

		collisionCount += len(indices)
		ext := filepath.Ext(path)
		base := path[:len(path)-len(ext)]
		for n, idx := range indices {
			files[idx].LocalPath = fmt.Sprintf("%s_%d%s", base, n+1, ext)
		}
	}

	return files, collisionCount
}
