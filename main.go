// objectdesk - desktop and terminal browser for S3 and Azure Blob object storage.
//
// - No args + display available → GUI
// - No args + no display → CLI help
// - --gui → GUI
// - --cli → CLI (force)
// - Subcommands/flags → CLI
package main

import (
	"os"
	"runtime"
	"slices"

	"github.com/objectdesk/objectdesk/internal/cli"
	"github.com/objectdesk/objectdesk/internal/transfer"
)

func main() {
	// Timing output works in every front end.
	if i := slices.Index(os.Args, "--timing"); i > 0 {
		os.Setenv(transfer.TimingEnvVar, "1")
		os.Args = slices.Delete(os.Args, i, i+1)
	}

	switch {
	case slices.Contains(os.Args, "--gui"):
		os.Args = append(withoutModeFlags(os.Args), "gui")
	case slices.Contains(os.Args, "--cli"):
		os.Args = withoutModeFlags(os.Args)
	case len(os.Args) == 1 && hasDisplay():
		os.Args = append(os.Args, "gui")
	}

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

func withoutModeFlags(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a != "--gui" && a != "--cli" {
			out = append(out, a)
		}
	}
	return out
}

// hasDisplay reports whether a GUI can open. macOS and Windows always have
// one; on Linux and the BSDs it needs an X11 or Wayland session.
func hasDisplay() bool {
	switch runtime.GOOS {
	case "darwin", "windows":
		return true
	}
	return os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
}
