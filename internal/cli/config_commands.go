package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/objectdesk/objectdesk/internal/config"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage objectdesk settings",
		Long: `Settings management commands for objectdesk.

Commands:
  init  - Interactive settings setup
  show  - Display current settings
  set   - Change one setting
  path  - Show settings file path`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigSetCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize settings interactively",
		Long: `Interactive settings setup for objectdesk.

The settings are saved to the file shown by 'objectdesk config path'.
Use --force to overwrite existing settings.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := settingsPath()
			out := cmd.OutOrStdout()

			if !force {
				if _, err := os.Stat(path); err == nil {
					fmt.Fprintf(out, "Settings already exist at: %s\n", path)
					fmt.Fprintln(out, "Use --force to overwrite or run 'config show' to view current settings.")
					return nil
				}
			}

			settings, err := runConfigWizard(promptInput, out)
			if err != nil {
				return err
			}
			if err := config.SaveSettings(settings, path); err != nil {
				return fmt.Errorf("failed to save settings: %w", err)
			}

			GetLogger().Info().Str("path", path).Msg("Settings initialized")
			fmt.Fprintf(out, "\n✓ Settings saved to: %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing settings")

	return cmd
}

// runConfigWizard asks for the storage and proxy settings. Empty answers
// keep the defaults shown in brackets.
func runConfigWizard(in io.Reader, out io.Writer) (*config.Settings, error) {
	settings := config.NewSettings()
	reader := bufio.NewReader(in)

	ask := func(question, def string) string {
		if def != "" {
			fmt.Fprintf(out, "%s [%s]: ", question, def)
		} else {
			fmt.Fprintf(out, "%s: ", question)
		}
		input, _ := reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if input == "" {
			return def
		}
		return input
	}

	fmt.Fprintln(out, "objectdesk Settings Setup")
	fmt.Fprintln(out, "=========================")
	fmt.Fprintln(out)

	settings.Storage.Backend = strings.ToLower(ask("Storage backend (s3, azure)", config.BackendS3))
	switch settings.Storage.Backend {
	case config.BackendAzure:
		settings.Storage.AzureAccount = ask("Azure storage account", "")
	default:
		settings.Storage.Region = ask("Region", "us-east-1")
		settings.Storage.Endpoint = ask("Custom endpoint (blank for AWS)", "")
		if settings.Storage.Endpoint != "" {
			settings.Storage.PathStyle = strings.HasPrefix(strings.ToLower(ask("Use path-style addressing? (y/n)", "y")), "y")
		}
		settings.Session.Profile = ask("AWS profile", "default")
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Proxy Settings (press Enter for defaults)")
	fmt.Fprintln(out, "-----------------------------------------")
	settings.Proxy.Mode = strings.ToLower(ask("Proxy mode (no-proxy, system, basic, ntlm)", config.ProxyNone))
	if settings.Proxy.Mode == config.ProxyBasic || settings.Proxy.Mode == config.ProxyNTLM {
		settings.Proxy.Host = ask("Proxy host", "")
		port, err := strconv.Atoi(ask("Proxy port", "8080"))
		if err != nil {
			return nil, fmt.Errorf("invalid proxy port: %w", err)
		}
		settings.Proxy.Port = port
		settings.Proxy.User = ask("Proxy user (blank for none)", "")
		settings.Proxy.NoProxy = ask("Bypass proxy for (comma-separated)", "")
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	var effective bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current settings",
		Long: `Display the saved settings. With --effective, the global flags
(--profile, --backend, --endpoint, --region, --path-style) are applied first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.LoadSettings(settingsPath())
			if err != nil {
				return err
			}
			if effective {
				applyOverrides(cmd, settings)
			}
			printSettings(cmd.OutOrStdout(), settingsPath(), settings)
			return nil
		},
	}

	cmd.Flags().BoolVar(&effective, "effective", false, "Apply the global flag overrides before printing")

	return cmd
}

func printSettings(w io.Writer, path string, s *config.Settings) {
	orNone := func(v string) string {
		if v == "" {
			return "(not set)"
		}
		return v
	}

	fmt.Fprintf(w, "Settings file: %s\n\n", path)

	fmt.Fprintln(w, "[session]")
	fmt.Fprintf(w, "  profile         = %s\n", orNone(s.Session.Profile))
	fmt.Fprintf(w, "  bucket          = %s\n", orNone(s.Session.Bucket))
	fmt.Fprintf(w, "  prefix          = %s\n", orNone(s.Session.Prefix))

	fmt.Fprintln(w, "[browser]")
	fmt.Fprintf(w, "  sort_field      = %s\n", s.Browser.SortField)
	fmt.Fprintf(w, "  sort_ascending  = %t\n", s.Browser.SortAscending)
	fmt.Fprintf(w, "  page_size       = %d\n", s.Browser.PageSize)
	fmt.Fprintf(w, "  file_type       = %s\n", s.Browser.FileType)

	fmt.Fprintln(w, "[storage]")
	fmt.Fprintf(w, "  backend         = %s\n", s.Storage.Backend)
	fmt.Fprintf(w, "  endpoint        = %s\n", orNone(s.Storage.Endpoint))
	fmt.Fprintf(w, "  region          = %s\n", orNone(s.Storage.Region))
	fmt.Fprintf(w, "  path_style      = %t\n", s.Storage.PathStyle)
	fmt.Fprintf(w, "  azure_account   = %s\n", orNone(s.Storage.AzureAccount))

	fmt.Fprintln(w, "[proxy]")
	fmt.Fprintf(w, "  mode            = %s\n", s.Proxy.Mode)
	if s.Proxy.Mode == config.ProxyBasic || s.Proxy.Mode == config.ProxyNTLM {
		fmt.Fprintf(w, "  host            = %s\n", orNone(s.Proxy.Host))
		fmt.Fprintf(w, "  port            = %d\n", s.Proxy.Port)
		fmt.Fprintf(w, "  user            = %s\n", orNone(s.Proxy.User))
		fmt.Fprintf(w, "  no_proxy        = %s\n", orNone(s.Proxy.NoProxy))
	}

	fmt.Fprintln(w, "[notifications]")
	fmt.Fprintf(w, "  enabled         = %t\n", s.Notifications.Enabled)
	fmt.Fprintf(w, "  on_failure      = %t\n", s.Notifications.OnFailure)
}

// newConfigSetCmd creates the 'config set' command.
func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <section.key> <value>",
		Short: "Change one setting",
		Long: `Change one setting and save the file. The new value is validated
before anything is written.

Examples:
  objectdesk config set storage.region eu-west-1
  objectdesk config set browser.page_size 500
  objectdesk config set proxy.mode system`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := settingsPath()
			settings, err := config.LoadSettings(path)
			if err != nil {
				return err
			}
			if err := settings.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := settings.Validate(); err != nil {
				return err
			}
			if err := config.SaveSettings(settings, path); err != nil {
				return fmt.Errorf("failed to save settings: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s = %s\n", strings.ToLower(args[0]), args[1])
			return nil
		},
	}
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show settings file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			path := settingsPath()
			fmt.Fprintf(out, "Settings file: %s\n", path)
			if _, err := os.Stat(path); os.IsNotExist(err) {
				fmt.Fprintln(out, "(file does not exist; defaults are in use)")
			}
			fmt.Fprintf(out, "Log directory: %s\n", config.LogDirectory())
			return nil
		},
	}
}

// newProfilesCmd creates the 'profiles' command.
func newProfilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List AWS profiles from the shared config files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles, err := config.ListAWSProfiles()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(profiles) == 0 {
				fmt.Fprintln(out, "No AWS profiles found in ~/.aws/config or ~/.aws/credentials")
				return nil
			}

			current := ""
			if settings, err := loadSettings(cmd); err == nil {
				current = settings.Session.Profile
			}

			fmt.Fprintf(out, "  %-24s %-16s %s\n", "PROFILE", "REGION", "AUTH")
			for _, p := range profiles {
				marker := " "
				if p.Name == current {
					marker = "*"
				}
				auth := "-"
				switch {
				case p.SSO:
					auth = "sso"
				case p.HasCredentials:
					auth = "keys"
				}
				region := p.Region
				if region == "" {
					region = "-"
				}
				fmt.Fprintf(out, "%s %-24s %-16s %s\n", marker, p.Name, region, auth)
			}
			return nil
		},
	}
}
