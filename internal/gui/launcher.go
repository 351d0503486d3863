// Package gui provides the desktop file browser.
package gui

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/objectdesk/objectdesk/internal/core"
)

// checkDisplay fails early on headless Linux instead of letting the driver
// abort the process.
func checkDisplay() error {
	if runtime.GOOS == "linux" {
		if os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
			return fmt.Errorf("GUI mode requires a display. No display detected.\n" +
				"DISPLAY and WAYLAND_DISPLAY are not set.\n" +
				"Use 'objectdesk tui' for a terminal browser")
		}
	}
	return nil
}

// Run launches the desktop browser and blocks until the window closes.
func Run(ctx context.Context, engine *core.Engine) error {
	if err := checkDisplay(); err != nil {
		return err
	}
	return launchGUI(ctx, engine)
}
