package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/objectdesk/objectdesk/internal/constants"
	"github.com/objectdesk/objectdesk/internal/models"
	"github.com/objectdesk/objectdesk/internal/services"
)

// AddShortcuts adds shortcut commands to the root command.
// Shortcuts upload to or download from the remembered location.
func AddShortcuts(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newUploadShortcut())
	rootCmd.AddCommand(newDownloadShortcut())
}

// validateMaxConcurrent accepts 0 (the default) or 1..MaxMaxConcurrent.
func validateMaxConcurrent(n int) error {
	if n < 0 || n > constants.MaxMaxConcurrent {
		return fmt.Errorf("--max-concurrent must be between 1 and %d, got %d", constants.MaxMaxConcurrent, n)
	}
	return nil
}

// newUploadShortcut creates the 'upload' shortcut command.
// Shortcut for: put <paths> <url>
func newUploadShortcut() *cobra.Command {
	var to string

	cmd := &cobra.Command{
		Use:   "upload <path> [path...]",
		Short: "Upload to the current location (shortcut for 'put')",
		Long: `Shortcut for uploading files and directories.

Without --to, files go to the location last opened by 'ls' or the browser.

Equivalent to: objectdesk put <paths> <url>

Examples:
  objectdesk upload input.txt data.csv
  objectdesk upload ./results --to s3://my-bucket/runs/
  objectdesk upload "*.dat"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateMaxConcurrent(maxTransfers); err != nil {
				return err
			}
			sess, err := openSession(cmd)
			if err != nil {
				return err
			}
			dst, err := sess.location(to)
			if err != nil {
				return err
			}
			if !dst.IsPrefix() {
				dst.Key += "/"
			}

			localPaths, err := expandGlobPatterns(args)
			if err != nil {
				return err
			}
			return executeUpload(GetContext(), sess, localPaths, dst, services.UploadOptions{}, maxTransfers, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Destination folder URL (default: current location)")

	return cmd
}

// newDownloadShortcut creates the 'download' shortcut command.
// Shortcut for: get <urls> --dest <dir> --overwrite
func newDownloadShortcut() *cobra.Command {
	var (
		outputDir    string
		skipExisting bool
	)

	cmd := &cobra.Command{
		Use:   "download <name|url> [name|url...]",
		Short: "Download from the current location (shortcut for 'get')",
		Long: `Shortcut for downloading objects and folders.

Bare names are looked up in the location last opened by 'ls' or the browser;
full URLs work as well. Existing local files are overwritten unless
--skip-existing is given.

Equivalent to: objectdesk get <urls> --dest <dir> --overwrite

Examples:
  objectdesk download report.csv
  objectdesk download results/ -o ./out
  objectdesk download s3://my-bucket/logs/app.log --skip-existing`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateMaxConcurrent(maxTransfers); err != nil {
				return err
			}
			sess, err := openSession(cmd)
			if err != nil {
				return err
			}

			urls := make([]models.ObjectURL, 0, len(args))
			for _, arg := range args {
				u, err := shortcutURL(sess, arg)
				if err != nil {
					return err
				}
				urls = append(urls, u)
			}

			return executeDownload(GetContext(), sess, urls, downloadOptions{
				destDir:       outputDir,
				overwriteAll:  !skipExisting,
				skipAll:       skipExisting,
				maxConcurrent: maxTransfers,
			}, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&outputDir, "outdir", "o", ".", "Output directory")
	cmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "Skip files that already exist locally")

	return cmd
}

// shortcutURL resolves a bare name against the remembered location.
func shortcutURL(sess *session, arg string) (models.ObjectURL, error) {
	if strings.Contains(arg, "://") {
		return sess.location(arg)
	}
	if sess.settings.Session.Bucket == "" {
		return models.ObjectURL{}, errNoLocation
	}
	return models.ObjectURL{
		Bucket: sess.settings.Session.Bucket,
		Key:    sess.settings.Session.Prefix + arg,
	}, nil
}
