package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/objectdesk/objectdesk/internal/models"
	"github.com/objectdesk/objectdesk/internal/pathutil"
	"github.com/objectdesk/objectdesk/internal/progress"
	"github.com/objectdesk/objectdesk/internal/services"
	"github.com/objectdesk/objectdesk/internal/util/filter"
	"github.com/objectdesk/objectdesk/internal/util/paths"
	ustrings "github.com/objectdesk/objectdesk/internal/util/strings"
)

// downloadOptions shape a get run.
type downloadOptions struct {
	destDir       string
	overwriteAll  bool
	skipAll       bool
	maxConcurrent int
	match         filter.Config
}

// plannedDownload is one object and where it lands.
type plannedDownload struct {
	bucket string
	paths.FileForDownload
}

// planDownloads resolves every URL and expands folders. Objects from
// different URLs that map to the same local path get numeric suffixes.
func planDownloads(ctx context.Context, sess *session, urls []models.ObjectURL, opts downloadOptions) ([]plannedDownload, error) {
	var (
		buckets []string
		files   []paths.FileForDownload
	)
	for _, u := range urls {
		if u.Key == "" {
			return nil, fmt.Errorf("refusing to download the whole bucket %s; name a folder instead", u.Bucket)
		}
		entry, err := sess.resolveEntry(ctx, u)
		if err != nil {
			return nil, err
		}

		parent := models.ParentPrefix(entry.Key)
		planned, err := sess.files.PlanDownload(ctx, u.Bucket, parent, []models.Entry{entry}, opts.destDir)
		if err != nil {
			return nil, fmt.Errorf("failed to plan download of %s: %w", u, err)
		}
		for _, f := range planned {
			if !filter.Matches(models.Entry{Key: f.Key, Size: f.Size}, parent, opts.match) {
				continue
			}
			buckets = append(buckets, u.Bucket)
			files = append(files, f)
		}
	}

	files, collisions := paths.ResolveCollisions(files)
	if collisions > 0 {
		GetLogger().Warn().Int("files", collisions).Msg("Renamed downloads that mapped to the same local path")
	}

	out := make([]plannedDownload, len(files))
	for i := range files {
		out[i] = plannedDownload{bucket: buckets[i], FileForDownload: files[i]}
	}
	return out, nil
}

// resolveConflicts drops the files the user chose not to overwrite.
// Prompts happen up front so they never interleave with progress bars.
func resolveConflicts(files []plannedDownload, opts downloadOptions) (keep []plannedDownload, skipped int, err error) {
	mode := DownloadSkipOnce
	switch {
	case opts.overwriteAll:
		mode = DownloadOverwriteAll
	case opts.skipAll:
		mode = DownloadSkipAll
	}

	for _, f := range files {
		if _, statErr := os.Stat(f.LocalPath); statErr != nil {
			keep = append(keep, f)
			continue
		}

		action := mode
		if !mode.appliesToAll() {
			action, err = promptDownloadConflict(f.Name, f.LocalPath)
			if err != nil {
				return nil, 0, fmt.Errorf("conflict prompt failed: %w", err)
			}
			if action.appliesToAll() {
				mode = action
			}
		}

		switch action {
		case DownloadAbort:
			return nil, 0, errors.New("download aborted by user")
		case DownloadSkipOnce, DownloadSkipAll:
			skipped++
		default:
			keep = append(keep, f)
		}
	}
	return keep, skipped, nil
}

// executeDownload is shared by 'get' and the 'download' shortcut.
func executeDownload(ctx context.Context, sess *session, urls []models.ObjectURL, opts downloadOptions, out io.Writer) error {
	logger := GetLogger()
	destDir, err := pathutil.ResolveDestination(opts.destDir)
	if err != nil {
		return fmt.Errorf("invalid destination %q: %w", opts.destDir, err)
	}
	opts.destDir = destDir
	if err := opts.match.Validate(); err != nil {
		return err
	}

	files, err := planDownloads(ctx, sess, urls, opts)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(out, "Nothing to download")
		return nil
	}

	files, skipped, err := resolveConflicts(files, opts)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintf(out, "⊘ Skipped %d existing %s\n", skipped, ustrings.Pluralize("file", int64(skipped)))
		return nil
	}

	if err := os.MkdirAll(opts.destDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	logger.Info().Int("count", len(files)).Str("dest", opts.destDir).Msg("Starting download")
	fmt.Fprintf(out, "Downloading %d %s to: %s\n\n", len(files), ustrings.Pluralize("file", int64(len(files))), opts.destDir)

	transfers := services.NewTransferService(sess.store, nil, services.TransferServiceConfig{
		MaxConcurrent: opts.maxConcurrent,
	})
	ui := progress.NewDownloadUI(len(files))
	batchID := uuid.NewString()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i, f := range files {
		wg.Add(1)
		go func(idx int, f plannedDownload) {
			defer wg.Done()
			err := transfers.Download(ctx, services.TransferRequest{
				Bucket:    f.bucket,
				Key:       f.Key,
				LocalPath: f.LocalPath,
				Size:      f.Size,
				BatchID:   batchID,
				Reporter:  ui.AddFileBar(idx+1, f.Key, f.LocalPath, f.Size),
			})
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("failed to download %s: %w", f.Key, err))
				mu.Unlock()
			}
		}(i, f)
	}
	wg.Wait()
	ui.Wait()

	done := len(files) - len(errs)
	fmt.Fprintf(out, "\n✓ Successfully downloaded %d %s\n", done, ustrings.Pluralize("file", int64(done)))
	if skipped > 0 {
		fmt.Fprintf(out, "⊘ Skipped %d existing %s\n", skipped, ustrings.Pluralize("file", int64(skipped)))
	}
	if len(errs) > 0 {
		fmt.Fprintf(out, "✗ Failed to download %d %s\n", len(errs), ustrings.Pluralize("file", int64(len(errs))))
	}
	return errors.Join(errs...)
}

// newGetCmd creates the 'get' command.
func newGetCmd() *cobra.Command {
	var (
		destDir         string
		overwriteAll    bool
		skipAll         bool
		includePatterns string
		excludePatterns string
	)

	cmd := &cobra.Command{
		Use:   "get <url> [url...]",
		Short: "Download objects and folders",
		Long: `Download objects and folders to a local directory.

Folders are downloaded recursively and keep their hierarchy below the
folder's own name. When a local file already exists you are asked whether
to skip or overwrite it, unless --overwrite or --skip-existing is given.

Examples:
  # Download one object to the current directory
  objectdesk get s3://my-bucket/reports/q3.pdf

  # Download a folder, skipping files already present
  objectdesk get s3://my-bucket/results/ --dest ./results --skip-existing

  # Only the CSV files of a folder
  objectdesk get s3://my-bucket/exports/ --include "*.csv"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if overwriteAll && skipAll {
				return fmt.Errorf("--overwrite and --skip-existing are mutually exclusive")
			}
			sess, err := openSession(cmd)
			if err != nil {
				return err
			}

			urls := make([]models.ObjectURL, 0, len(args))
			for _, arg := range args {
				u, err := sess.location(arg)
				if err != nil {
					return err
				}
				urls = append(urls, u)
			}

			return executeDownload(GetContext(), sess, urls, downloadOptions{
				destDir:       destDir,
				overwriteAll:  overwriteAll,
				skipAll:       skipAll,
				maxConcurrent: maxTransfers,
				match: filter.Config{
					Include: filter.ParsePatternList(includePatterns),
					Exclude: filter.ParsePatternList(excludePatterns),
				},
			}, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&destDir, "dest", "d", ".", "Local destination directory")
	cmd.Flags().BoolVar(&overwriteAll, "overwrite", false, "Overwrite existing local files without prompting")
	cmd.Flags().BoolVar(&skipAll, "skip-existing", false, "Skip existing local files without prompting")
	cmd.Flags().StringVar(&includePatterns, "include", "", "Download only names matching these patterns (comma-separated globs)")
	cmd.Flags().StringVar(&excludePatterns, "exclude", "", "Skip names matching these patterns (comma-separated globs)")

	return cmd
}
