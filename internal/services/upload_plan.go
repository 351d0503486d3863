package services

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/objectdesk/objectdesk/internal/localfs"
	"github.com/objectdesk/objectdesk/internal/models"
	"github.com/objectdesk/objectdesk/internal/util/filter"
)

// FileForUpload maps a local file to its destination key.
type FileForUpload struct {
	LocalPath string
	Key       string
	Size      int64
}

// UploadOptions selects which local files an upload includes.
type UploadOptions struct {
	// Filter is matched against each destination key; empty keeps everything.
	Filter filter.Config

	// IncludeHidden uploads dot files and descends into dot directories.
	IncludeHidden bool
}

// PlanUpload expands localPaths into the files to send below prefix.
// Directories are walked recursively and keep their own name as the top
// folder, so uploading "results" to "runs/" yields "runs/results/...".
// Files named directly are always kept, hidden or not.
func PlanUpload(localPaths []string, prefix string, opts UploadOptions) ([]FileForUpload, error) {
	if err := opts.Filter.Validate(); err != nil {
		return nil, err
	}

	walk := localfs.DefaultWalkOptions()
	walk.IncludeHidden = opts.IncludeHidden

	var out []FileForUpload
	keep := func(local, key string, size int64) {
		if filter.Matches(models.Entry{Key: key, Size: size}, prefix, opts.Filter) {
			out = append(out, FileForUpload{LocalPath: local, Key: key, Size: size})
		}
	}

	for _, p := range localPaths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}
		if !info.IsDir() {
			keep(p, prefix+filepath.Base(p), info.Size())
			continue
		}

		top := prefix + filepath.Base(filepath.Clean(p)) + "/"
		err = localfs.WalkFiles(p, walk, func(e localfs.FileEntry) error {
			keep(e.Path, top+e.Rel, e.Size)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", p, err)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
