package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/objectdesk/objectdesk/internal/models"
	"github.com/objectdesk/objectdesk/internal/pathutil"
	"github.com/objectdesk/objectdesk/internal/progress"
	"github.com/objectdesk/objectdesk/internal/services"
	"github.com/objectdesk/objectdesk/internal/util/filter"
	ustrings "github.com/objectdesk/objectdesk/internal/util/strings"
)

// expandGlobPatterns expands glob patterns like *.zip, even when quoted.
// Returns a deduplicated list of absolute paths.
func expandGlobPatterns(patterns []string) ([]string, error) {
	var expanded []string
	seen := make(map[string]bool)

	add := func(p string) error {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("failed to get absolute path for %s: %w", p, err)
		}
		if !seen[abs] {
			expanded = append(expanded, abs)
			seen[abs] = true
		}
		return nil
	}

	for _, pattern := range patterns {
		pattern, err := pathutil.ExpandHome(pattern)
		if err != nil {
			return nil, err
		}
		if !strings.ContainsAny(pattern, "*?[") {
			if err := add(pattern); err != nil {
				return nil, err
			}
			continue
		}

		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern '%s': %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match pattern: %s", pattern)
		}
		for _, m := range matches {
			if err := add(m); err != nil {
				return nil, err
			}
		}
	}

	return expanded, nil
}

// executeUpload is shared by 'put' and the 'upload' shortcut. Directories
// are uploaded recursively below dst, keeping their own name.
func executeUpload(ctx context.Context, sess *session, localPaths []string, dst models.ObjectURL, opts services.UploadOptions, maxConcurrent int, out io.Writer) error {
	logger := GetLogger()

	// A key without a trailing slash renames a single file on the way up.
	folder, rename := dst.Key, ""
	if !dst.IsPrefix() {
		folder, rename = models.ParentPrefix(dst.Key), dst.Key
	}

	files, err := services.PlanUpload(localPaths, folder, opts)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(out, "Nothing to upload")
		return nil
	}
	if rename != "" {
		if len(files) != 1 {
			return fmt.Errorf("destination %s must end with '/' when uploading several files", dst)
		}
		files[0].Key = rename
	}

	logger.Info().Int("count", len(files)).Str("bucket", dst.Bucket).Str("prefix", folder).Msg("Starting upload")

	transfers := services.NewTransferService(sess.store, nil, services.TransferServiceConfig{
		MaxConcurrent: maxConcurrent,
	})
	batchID := uuid.NewString()

	if len(files) == 1 {
		f := files[0]
		err := transfers.Upload(ctx, services.TransferRequest{
			Bucket:    dst.Bucket,
			Key:       f.Key,
			LocalPath: f.LocalPath,
			Size:      f.Size,
			BatchID:   batchID,
			Reporter:  progress.NewCLIProgress(),
		})
		if err != nil {
			return fmt.Errorf("failed to upload %s: %w", f.LocalPath, err)
		}
		fmt.Fprintf(out, "✓ Uploaded %s → %s (%s)\n", f.LocalPath, models.ObjectURL{Bucket: dst.Bucket, Key: f.Key}, models.HumanSize(f.Size))
		return nil
	}

	fmt.Fprintf(out, "Uploading %d files to: %s\n\n", len(files), dst)
	ui := progress.NewUploadUI(len(files))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i, f := range files {
		wg.Add(1)
		go func(idx int, f services.FileForUpload) {
			defer wg.Done()
			err := transfers.Upload(ctx, services.TransferRequest{
				Bucket:    dst.Bucket,
				Key:       f.Key,
				LocalPath: f.LocalPath,
				Size:      f.Size,
				BatchID:   batchID,
				Reporter:  ui.AddFileBar(idx+1, f.Key, f.LocalPath, f.Size),
			})
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("failed to upload %s: %w", f.LocalPath, err))
				mu.Unlock()
			}
		}(i, f)
	}
	wg.Wait()
	ui.Wait()

	done := len(files) - len(errs)
	fmt.Fprintf(out, "\n✓ Successfully uploaded %d %s\n", done, ustrings.Pluralize("file", int64(done)))
	if len(errs) > 0 {
		fmt.Fprintf(out, "✗ Failed to upload %d %s\n", len(errs), ustrings.Pluralize("file", int64(len(errs))))
	}
	return errors.Join(errs...)
}

// newPutCmd creates the 'put' command.
func newPutCmd() *cobra.Command {
	var (
		excludePatterns string
		includeHidden   bool
	)

	cmd := &cobra.Command{
		Use:   "put <path> [path...] <url>",
		Short: "Upload local files and directories",
		Long: `Upload local files and directories to a bucket location.

The last argument is the destination. A URL ending in "/" is a folder and
every path is uploaded into it, directories recursively under their own
name. A single file may be given a new key by naming it directly.

Hidden files inside directories are skipped unless --include-hidden is
given. Files named on the command line are always uploaded.

Glob patterns are expanded even when quoted.

Examples:
  # Upload a file into a folder
  objectdesk put report.pdf s3://my-bucket/reports/

  # Upload a file under a new name
  objectdesk put report.pdf s3://my-bucket/reports/2024-q3.pdf

  # Upload a directory, skipping temporary files
  objectdesk put ./results s3://my-bucket/runs/ --exclude "*.tmp,*.log"`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd)
			if err != nil {
				return err
			}
			dst, err := sess.location(args[len(args)-1])
			if err != nil {
				return err
			}

			localPaths, err := expandGlobPatterns(args[:len(args)-1])
			if err != nil {
				return err
			}

			opts := services.UploadOptions{
				Filter:        filter.Config{Exclude: filter.ParsePatternList(excludePatterns)},
				IncludeHidden: includeHidden,
			}
			return executeUpload(GetContext(), sess, localPaths, dst, opts, maxTransfers, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&excludePatterns, "exclude", "", "Skip files matching these patterns (comma-separated globs)")
	cmd.Flags().BoolVar(&includeHidden, "include-hidden", false, "Also upload dot files and dot directories found inside directories")

	return cmd
}
