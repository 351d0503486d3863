package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/objectdesk/objectdesk/internal/cloud/providers"
	"github.com/objectdesk/objectdesk/internal/core"
	"github.com/objectdesk/objectdesk/internal/gui"
	"github.com/objectdesk/objectdesk/internal/logging"
	"github.com/objectdesk/objectdesk/internal/tui"
)

func newGUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gui",
		Short: "Open the desktop browser",
		Long: `Open the desktop file browser at the location remembered from the
last session. Object URLs can be pasted into the location bar to jump to a
folder or select an object.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine(cmd)
			if err != nil {
				return err
			}
			defer engine.Shutdown()
			return gui.Run(GetContext(), engine)
		},
	}
}

func newTUICmd() *cobra.Command {
	var startURL string

	cmd := &cobra.Command{
		Use:   "tui [url]",
		Short: "Open the terminal browser",
		Long: `Open the full-screen terminal browser.

Keys:
  up/down, pgup/pgdn   move            enter / right   open
  space                toggle select   backspace/left  up one level
  /                    filter          s / o           sort field / order
  t                    type filter     g               go to URL
  r                    refresh         esc             cancel search
  q                    quit`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				startURL = args[0]
			}
			// Console log lines would tear the full-screen UI; --log-file
			// still captures them.
			logging.SetConsoleOutput(io.Discard)

			engine, err := newEngine(cmd)
			if err != nil {
				return err
			}
			defer engine.Shutdown()

			ctx := GetContext()
			if err := engine.Connect(ctx); err != nil {
				return fmt.Errorf("failed to connect: %w", err)
			}
			return tui.Run(ctx, engine, startURL)
		},
	}
	return cmd
}

// newEngine builds the engine shared by the interactive front ends. Proxy
// passwords are read before any window or full-screen UI takes the terminal.
func newEngine(cmd *cobra.Command) (*core.Engine, error) {
	if err := validateMaxConcurrent(maxTransfers); err != nil {
		return nil, err
	}
	settings, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}
	if err := resolveProxyPassword(settings); err != nil {
		return nil, err
	}

	factory := providers.NewFactory(GetLogger())
	return core.NewEngine(settings, settingsPath(), factory.Open, maxTransfers), nil
}
