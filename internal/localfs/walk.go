// Package localfs walks the local directories picked for upload. Dot files
// follow one rule in the CLI and the GUI.
package localfs

import (
	"io/fs"
	"path/filepath"
	"strings"
	"time"
)

// WalkOptions configures WalkFiles.
type WalkOptions struct {
	// IncludeHidden uploads dot files and descends into dot directories.
	IncludeHidden bool
}

// DefaultWalkOptions leaves dot files and dot directories behind.
func DefaultWalkOptions() WalkOptions {
	return WalkOptions{}
}

// hidden reports whether a base name is a dot file. "." and ".." name the
// walk position, not an entry.
func hidden(name string) bool {
	return name != "." && name != ".." && strings.HasPrefix(name, ".")
}

// FileEntry is a regular file found by WalkFiles.
type FileEntry struct {
	Path    string    // Full path to the file
	Rel     string    // Slash-separated path relative to the walk root
	Name    string    // Base name of the file
	Size    int64     // Size in bytes
	ModTime time.Time // Last modification time
}

// WalkFunc is the callback signature for WalkFiles.
// Returning a non-nil error stops the walk and is returned by WalkFiles.
type WalkFunc func(entry FileEntry) error

// WalkFiles visits every regular file below root in lexical order. Symlinks,
// devices and other special files are skipped. The root itself is never
// filtered as hidden, since the caller named it explicitly.
func WalkFiles(root string, opts WalkOptions, fn WalkFunc) error {
	root = filepath.Clean(root)
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if path != root && !opts.IncludeHidden && hidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		return fn(FileEntry{
			Path:    path,
			Rel:     filepath.ToSlash(rel),
			Name:    d.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	})
}
