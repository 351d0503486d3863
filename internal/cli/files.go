// Package cli provides the object and folder commands.
package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/objectdesk/objectdesk/internal/browser"
	"github.com/objectdesk/objectdesk/internal/events"
	"github.com/objectdesk/objectdesk/internal/models"
	"github.com/objectdesk/objectdesk/internal/services"
	"github.com/objectdesk/objectdesk/internal/util/buffers"
	"github.com/objectdesk/objectdesk/internal/util/filter"
	ustrings "github.com/objectdesk/objectdesk/internal/util/strings"
)

// newLsCmd creates the 'ls' command.
func newLsCmd() *cobra.Command {
	var (
		sortField       string
		descending      bool
		typeName        string
		query           string
		includePatterns string
		excludePatterns string
		pathPatterns    string
		all             bool
		pageSize        int
		long            bool
	)

	cmd := &cobra.Command{
		Use:   "ls [url]",
		Short: "List a bucket location",
		Long: `List the folders and objects at a bucket location.

One page of results is fetched by default, exactly like the first screen of
the browser; use --all to keep paging until the location is exhausted.
Folders are always listed before files.

With no URL and no remembered location, the visible buckets are listed.

Examples:
  # List the root of a bucket
  objectdesk ls s3://my-bucket

  # Every CSV below a folder, largest first
  objectdesk ls s3://my-bucket/reports/ --all --sort size --desc --include "*.csv"

  # Only images whose name contains "thumb"
  objectdesk ls s3://media/2024/ --type images --filter thumb

  # Paths relative to the listed folder
  objectdesk ls s3://logs/app/ --all --path "2024-*/**"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			field, err := browser.ParseSortField(sortField)
			if err != nil {
				return err
			}
			fileType, err := browser.ParseFileType(typeName)
			if err != nil {
				return err
			}
			match := filter.Config{
				Include:     filter.ParsePatternList(includePatterns),
				Exclude:     filter.ParsePatternList(excludePatterns),
				PathInclude: filter.ParsePatternList(pathPatterns),
			}
			if err := match.Validate(); err != nil {
				return err
			}

			sess, err := openSession(cmd)
			if err != nil {
				return err
			}
			ctx := GetContext()

			var arg string
			if len(args) > 0 {
				arg = args[0]
			}
			u, err := sess.location(arg)
			if errors.Is(err, errNoLocation) {
				return listBuckets(cmd, sess)
			}
			if err != nil {
				return err
			}

			if !u.IsPrefix() {
				entry, err := sess.resolveEntry(ctx, u)
				if err != nil {
					return err
				}
				if !entry.IsPrefix {
					printEntries(cmd.OutOrStdout(), []models.Entry{entry}, models.ParentPrefix(entry.Key), long)
					return nil
				}
				u.Key = entry.Key
			}

			if pageSize <= 0 {
				pageSize = sess.settings.Browser.PageSize
			}
			result, err := listLocation(ctx, sess.store, u, listOptions{
				sort:     browser.SortConfig{Field: field, Ascending: !descending},
				fileType: fileType,
				query:    query,
				match:    match,
				all:      all,
				pageSize: pageSize,
			})
			if err != nil {
				return err
			}

			printEntries(cmd.OutOrStdout(), result.Entries, result.Prefix, long)
			sess.remember(u.Bucket, result.Prefix)

			GetLogger().Debug().Int("pages", result.Pages).Int("loaded", result.Loaded).
				Int("shown", len(result.Entries)).Msg("Listing complete")
			if result.HasMore {
				fmt.Fprintf(cmd.ErrOrStderr(), "\nShowing %d %s (more available; use --all to load everything)\n",
					len(result.Entries), ustrings.Pluralize("item", int64(len(result.Entries))))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sortField, "sort", "name", "Sort by name, size or modified")
	cmd.Flags().BoolVar(&descending, "desc", false, "Reverse the sort order (folders stay first)")
	cmd.Flags().StringVarP(&typeName, "type", "t", "all", "File type filter: "+fileTypeNames())
	cmd.Flags().StringVarP(&query, "filter", "f", "", "Show only names containing this text (case-insensitive)")
	cmd.Flags().StringVar(&includePatterns, "include", "", "Include only names matching these patterns (comma-separated globs, e.g. \"*.csv,*.tsv\")")
	cmd.Flags().StringVar(&includePatterns, "glob", "", "Alias for --include")
	cmd.Flags().StringVar(&excludePatterns, "exclude", "", "Exclude names matching these patterns (comma-separated globs)")
	cmd.Flags().StringVar(&pathPatterns, "path", "", "Include only paths matching these patterns relative to the listed folder (\"**\" spans folders)")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Load every page instead of the first")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "Objects per listing call (1-1000, default from settings)")
	cmd.Flags().BoolVarP(&long, "long", "l", false, "Show size, modification time and storage class")

	return cmd
}

func fileTypeNames() string {
	names := make([]string, 0, len(browser.FileTypes()))
	for _, t := range browser.FileTypes() {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}

// newBucketsCmd creates the 'buckets' command.
func newBucketsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "buckets",
		Short: "List the buckets visible to the current credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd)
			if err != nil {
				return err
			}
			return listBuckets(cmd, sess)
		},
	}
}

func listBuckets(cmd *cobra.Command, sess *session) error {
	buckets, err := sess.files.ListBuckets(GetContext())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(buckets) == 0 {
		fmt.Fprintln(out, "No buckets found")
		return nil
	}
	fmt.Fprintf(out, "%-40s %s\n", "BUCKET", "CREATED")
	for _, b := range buckets {
		created := "-"
		if b.CreationDate != nil {
			created = b.CreationDate.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(out, "%-40s %s\n", b.Name, created)
	}
	return nil
}

// newFindCmd creates the 'find' command.
func newFindCmd() *cobra.Command {
	var pageSize int

	cmd := &cobra.Command{
		Use:   "find <url>",
		Short: "Locate an object by URL, paging through its folder",
		Long: `Open an object URL the way the browser opens a pasted link: list the
object's folder page by page until the object has been loaded, then report it.

This is useful for very large folders where the object is far beyond the
first page. Press Ctrl+C to stop the search.

Examples:
  objectdesk find s3://my-bucket/logs/2024/app-000123.log
  objectdesk find https://my-bucket.s3.us-east-1.amazonaws.com/data/file.parquet`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd)
			if err != nil {
				return err
			}
			u, err := sess.location(args[0])
			if err != nil {
				return err
			}
			if pageSize <= 0 {
				pageSize = sess.settings.Browser.PageSize
			}

			var progress func(int)
			if term.IsTerminal(int(os.Stderr.Fd())) {
				progress = func(scanned int) {
					fmt.Fprintf(os.Stderr, "\rSearching %s ... %d scanned", u.ParentPrefix(), scanned)
				}
			}

			result, err := findObject(GetContext(), sess.store, u, pageSize, progress)
			if progress != nil {
				fmt.Fprint(os.Stderr, "\r\033[K")
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			pages := fmt.Sprintf("%d %s", result.Pages, ustrings.Pluralize("page", int64(result.Pages)))
			switch result.Outcome {
			case events.SearchFound:
				fmt.Fprintf(out, "Found %s\n", models.ObjectURL{Bucket: u.Bucket, Key: result.Entry.Key})
				if !result.Entry.IsPrefix {
					fmt.Fprintf(out, "  Size:     %s\n", result.Entry.SizeString())
					fmt.Fprintf(out, "  Modified: %s\n", result.Entry.ModifiedString())
				}
				fmt.Fprintf(out, "  Listed %s\n", pages)
				sess.remember(u.Bucket, u.ParentPrefix())
				return nil
			case events.SearchExhausted:
				return fmt.Errorf("%s not found after listing %s (%d entries scanned)", u, pages, result.Scanned)
			default:
				return fmt.Errorf("search for %s cancelled after %s", u, pages)
			}
		},
	}

	cmd.Flags().IntVar(&pageSize, "page-size", 0, "Objects per listing call (1-1000, default from settings)")

	return cmd
}

// newMkdirCmd creates the 'mkdir' command.
func newMkdirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <url>",
		Short: "Create a folder",
		Long: `Create a folder by writing a zero-byte "name/" marker object.

Example:
  objectdesk mkdir s3://my-bucket/projects/new-folder`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd)
			if err != nil {
				return err
			}
			u, err := sess.location(args[0])
			if err != nil {
				return err
			}
			if u.Key == "" {
				return fmt.Errorf("folder name is required: %w", services.ErrInvalidName)
			}

			folder := services.NormalizeFolder(u.Key)
			key, err := sess.files.CreateFolder(GetContext(), u.Bucket, models.ParentPrefix(folder), models.BaseName(folder))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", models.ObjectURL{Bucket: u.Bucket, Key: key})
			return nil
		},
	}
}

// newCatCmd creates the 'cat' command.
func newCatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cat <url>",
		Short: "Write an object's content to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd)
			if err != nil {
				return err
			}
			u, err := sess.location(args[0])
			if err != nil {
				return err
			}
			if u.IsPrefix() {
				return fmt.Errorf("%s: %w", u, services.ErrIsFolder)
			}

			body, _, err := sess.store.Get(GetContext(), u.Bucket, u.Key)
			if err != nil {
				return err
			}
			defer body.Close()

			_, err = buffers.Copy(cmd.OutOrStdout(), body)
			return err
		},
	}
}

// newRmCmd creates the 'rm' command.
func newRmCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "rm <url> [url...]",
		Short: "Delete objects and folders",
		Long: `Delete objects and folders. Deleting a folder deletes every object
stored below it, including its folder marker.

WARNING: This operation cannot be undone!

Examples:
  # Delete one object (prompts for confirmation)
  objectdesk rm s3://my-bucket/tmp/report.csv

  # Delete a folder and everything in it without prompting
  objectdesk rm s3://my-bucket/tmp/ --yes`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetLogger()
			sess, err := openSession(cmd)
			if err != nil {
				return err
			}
			ctx := GetContext()

			type target struct {
				bucket string
				entry  models.Entry
			}
			var targets []target
			for _, arg := range args {
				u, err := sess.location(arg)
				if err != nil {
					return err
				}
				if u.Key == "" {
					return fmt.Errorf("refusing to delete the whole bucket %s", u.Bucket)
				}
				entry, err := sess.resolveEntry(ctx, u)
				if err != nil {
					return err
				}
				targets = append(targets, target{bucket: u.Bucket, entry: entry})
			}

			if !yes {
				fmt.Fprintf(cmd.OutOrStdout(), "You are about to delete:\n")
				for _, t := range targets {
					suffix := ""
					if t.entry.IsPrefix {
						suffix = " (folder and everything in it)"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "  %s%s\n", models.ObjectURL{Bucket: t.bucket, Key: t.entry.Key}, suffix)
				}
				ok, err := confirm("This cannot be undone. Continue?")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Deletion cancelled")
					return nil
				}
			}

			var (
				deleted int
				errs    []error
			)
			for _, t := range targets {
				result, err := sess.files.Delete(ctx, t.bucket, []models.Entry{t.entry})
				if err != nil {
					return err
				}
				deleted += result.Deleted
				for _, f := range result.Failed {
					fmt.Fprintf(cmd.ErrOrStderr(), "Failed to delete %s: %v\n", f.Key, f.Err)
				}
				if err := result.Err(); err != nil {
					errs = append(errs, err)
				}
			}

			logger.Info().Int("deleted", deleted).Int("failed", len(errs)).Msg("Delete finished")
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d %s\n", deleted, ustrings.Pluralize("object", int64(deleted)))
			return errors.Join(errs...)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation prompt")

	return cmd
}

// newMvCmd creates the 'mv' command.
func newMvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mv <src-url> <dst-url>",
		Short: "Move or rename an object or folder within a bucket",
		Long: `Move or rename an object or folder. Object storage has no rename, so
each object is copied to its new key and the original deleted.

An object moved to a URL ending in "/" keeps its name inside that folder.
A folder is renamed to the destination prefix. Existing destinations are
never overwritten.

Examples:
  objectdesk mv s3://my-bucket/draft.txt s3://my-bucket/final.txt
  objectdesk mv s3://my-bucket/draft.txt s3://my-bucket/archive/
  objectdesk mv s3://my-bucket/old-name/ s3://my-bucket/new-name/`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd)
			if err != nil {
				return err
			}
			ctx := GetContext()

			src, err := sess.location(args[0])
			if err != nil {
				return err
			}
			dst, err := sess.location(args[1])
			if err != nil {
				return err
			}
			if src.Bucket != dst.Bucket {
				return fmt.Errorf("moving between buckets is not supported (%s -> %s)", src.Bucket, dst.Bucket)
			}
			if src.Key == "" || dst.Key == "" {
				return fmt.Errorf("source and destination must name an object or folder: %w", services.ErrInvalidName)
			}

			entry, err := sess.resolveEntry(ctx, src)
			if err != nil {
				return err
			}
			newKey, err := sess.files.Move(ctx, src.Bucket, entry, dst.Key)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Moved %s -> %s\n", models.ObjectURL{Bucket: src.Bucket, Key: entry.Key}, models.ObjectURL{Bucket: src.Bucket, Key: newKey})
			return nil
		},
	}
}
