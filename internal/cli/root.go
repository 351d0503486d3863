// Package cli provides the command-line interface for objectdesk.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/objectdesk/objectdesk/internal/config"
	"github.com/objectdesk/objectdesk/internal/logging"
	"github.com/objectdesk/objectdesk/internal/version"
)

var (
	// Global flags
	cfgFile      string
	profileName  string
	backendName  string
	endpointURL  string
	regionName   string
	pathStyle    bool
	verbose      bool
	logToFile    bool
	maxTransfers int

	// Global logger
	logger *logging.Logger

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// NewRootCmd creates the root command for CLI mode.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "objectdesk",
		Short: "objectdesk - browse and manage S3 and Azure object storage",
		Long: `objectdesk ` + version.Version + ` - Built: ` + version.BuildTime + `
File browser for object storage buckets.

Locations are given as object URLs:
  s3://bucket                         bucket root
  s3://bucket/reports/2024/           folder (trailing slash)
  s3://bucket/reports/2024/q1.csv     object
  https://bucket.s3.us-east-1.amazonaws.com/key

Without a URL, commands use the bucket and folder remembered from the last
session. Run 'objectdesk gui' for the desktop browser or 'objectdesk tui'
for the terminal browser.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.NewLogger("cli", nil)
			if verbose {
				logging.SetGlobalLevel(zerolog.DebugLevel)
			}
			if logToFile {
				path, err := logging.EnableFileLogging(config.LogDirectory())
				if err != nil {
					logger.Warn().Err(err).Msg("File logging disabled")
					return
				}
				logger.Debug().Str("path", path).Msg("Logging to file")
			}
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.CloseFileLogging()
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Settings file path (default: per-user config directory)")
	rootCmd.PersistentFlags().StringVarP(&profileName, "profile", "p", "", "AWS profile name (overrides the saved session profile)")
	rootCmd.PersistentFlags().StringVar(&backendName, "backend", "", "Storage backend: s3 or azure (overrides settings)")
	rootCmd.PersistentFlags().StringVar(&endpointURL, "endpoint", "", "Custom endpoint URL, e.g. http://localhost:9000 for MinIO")
	rootCmd.PersistentFlags().StringVar(&regionName, "region", "", "Region for the S3 backend")
	rootCmd.PersistentFlags().BoolVar(&pathStyle, "path-style", false, "Use path-style S3 addressing")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	rootCmd.PersistentFlags().BoolVar(&logToFile, "log-file", false, "Also write a rotating log file in the log directory")
	rootCmd.PersistentFlags().IntVar(&maxTransfers, "max-concurrent", 0, "Maximum concurrent transfers (0 = default)")

	rootCmd.Version = version.Version + " (" + version.BuildTime + ")"

	completionCmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate a shell completion script for objectdesk.

QUICK TEST (current session only):
  source <(objectdesk completion bash)
  source <(objectdesk completion zsh)
  objectdesk completion fish | source`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return rootCmd.GenBashCompletion(out)
			case "zsh":
				return rootCmd.GenZshCompletion(out)
			case "fish":
				return rootCmd.GenFishCompletion(out, true)
			case "powershell":
				return rootCmd.GenPowerShellCompletion(out)
			default:
				return fmt.Errorf("unsupported shell %q", args[0])
			}
		},
	}
	rootCmd.AddCommand(completionCmd)
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	return rootCmd
}

// Execute runs the CLI.
func Execute() error {
	rootContext, cancelFunc = context.WithCancel(context.Background())
	defer cancelFunc()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Loop so repeated Ctrl+C presses do not kill the process mid-cleanup.
	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\n\nReceived signal %v, cancelling operations...\n", sig)
				fmt.Fprintf(os.Stderr, "   Please wait for cleanup to complete.\n\n")
				cancelFunc()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.Execute()

	signal.Stop(sigChan)
	close(sigChan)

	return err
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newLsCmd())
	rootCmd.AddCommand(newFindCmd())
	rootCmd.AddCommand(newBucketsCmd())
	rootCmd.AddCommand(newGetCmd())
	rootCmd.AddCommand(newPutCmd())
	rootCmd.AddCommand(newRmCmd())
	rootCmd.AddCommand(newMvCmd())
	rootCmd.AddCommand(newMkdirCmd())
	rootCmd.AddCommand(newCatCmd())
	rootCmd.AddCommand(newProfilesCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newGUICmd())
	rootCmd.AddCommand(newTUICmd())
	rootCmd.AddCommand(newVersionCmd())

	AddShortcuts(rootCmd)
}

// GetLogger returns the global CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewLogger("cli", nil)
	}
	return logger
}

// GetContext returns the global CLI context with signal handling.
// This context will be cancelled when the user presses Ctrl+C.
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return nil
		},
	}
}
